// Package plugin dispatches the booth lifecycle events (startup, state
// entered, cleanup) to registered plugins.
package plugin

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/cjeanneret/BoothGo/internal/debug"
)

// Booth states, in the order a session goes through them.
const (
	StateWait       = "wait"
	StatePreview    = "preview"
	StateCapture    = "capture"
	StateProcessing = "processing"
	StatePrint      = "print"
	StateFinish     = "finish"
)

// States lists every booth state, in session order.
var States = []string{StateWait, StatePreview, StateCapture, StateProcessing, StatePrint, StateFinish}

// ValidState reports whether name is one of States.
func ValidState(name string) bool {
	for _, s := range States {
		if s == name {
			return true
		}
	}
	return false
}

// App is the application state shared with plugins.
type App struct {
	mu                  sync.RWMutex
	previousPictureFile string
	previousPictureURL  string
}

// PreviousPictureFile returns the path of the last saved picture.
func (a *App) PreviousPictureFile() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.previousPictureFile
}

// SetPreviousPictureFile records a newly saved picture and forgets the
// URL of the previous one.
func (a *App) SetPreviousPictureFile(path string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.previousPictureFile = path
	a.previousPictureURL = ""
}

// PreviousPictureURL returns the public link of the last picture, if any.
func (a *App) PreviousPictureURL() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.previousPictureURL
}

// SetPreviousPictureURL records the public link of the last picture.
func (a *App) SetPreviousPictureURL(url string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.previousPictureURL = url
}

// Plugin is the base interface; a plugin receives an event only if it
// implements the matching hook interface.
type Plugin interface {
	Name() string
}

// StartupHook is called once when the booth starts.
type StartupHook interface {
	OnStartup(ctx context.Context, app *App) error
}

// StateEnterHook is called each time the booth enters a state.
type StateEnterHook interface {
	OnStateEnter(ctx context.Context, state string, app *App) error
}

// CleanupHook is called once when the booth stops.
type CleanupHook interface {
	OnCleanup(ctx context.Context, app *App) error
}

// Manager holds the registered plugins.
type Manager struct {
	plugins []Plugin
}

// NewManager returns an empty manager.
func NewManager() *Manager {
	return &Manager{}
}

// Register adds p. Names must be unique.
func (m *Manager) Register(p Plugin) error {
	for _, existing := range m.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin %q already registered", p.Name())
		}
	}
	debug.Verbose("Plugin registered: %s", p.Name())
	m.plugins = append(m.plugins, p)
	return nil
}

// Plugins returns the registered plugins in registration order.
func (m *Manager) Plugins() []Plugin {
	out := make([]Plugin, len(m.plugins))
	copy(out, m.plugins)
	return out
}

// Startup calls every StartupHook in order and stops at the first error.
func (m *Manager) Startup(ctx context.Context, app *App) error {
	for _, p := range m.plugins {
		h, ok := p.(StartupHook)
		if !ok {
			continue
		}
		if err := h.OnStartup(ctx, app); err != nil {
			return fmt.Errorf("plugin %s: startup: %w", p.Name(), err)
		}
	}
	return nil
}

// EnterState calls every StateEnterHook in order and stops at the first error.
func (m *Manager) EnterState(ctx context.Context, state string, app *App) error {
	debug.State(state)
	for _, p := range m.plugins {
		h, ok := p.(StateEnterHook)
		if !ok {
			continue
		}
		if err := h.OnStateEnter(ctx, state, app); err != nil {
			return fmt.Errorf("plugin %s: state %s: %w", p.Name(), state, err)
		}
	}
	return nil
}

// Cleanup calls every CleanupHook, even after a failure, and returns
// all the errors joined.
func (m *Manager) Cleanup(ctx context.Context, app *App) error {
	var errs []error
	for _, p := range m.plugins {
		h, ok := p.(CleanupHook)
		if !ok {
			continue
		}
		if err := h.OnCleanup(ctx, app); err != nil {
			errs = append(errs, fmt.Errorf("plugin %s: cleanup: %w", p.Name(), err))
		}
	}
	return errors.Join(errs...)
}

package booth

import (
	"bytes"
	"context"
	"fmt"
	"image/jpeg"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/cjeanneret/BoothGo/internal/debug"
	"github.com/cjeanneret/BoothGo/internal/hw/camera"
	"github.com/cjeanneret/BoothGo/internal/logic/geometry"
	"github.com/cjeanneret/BoothGo/internal/plugin"
)

// Camera is what a session needs from the camera adapter.
type Camera interface {
	Preview(window geometry.Rect, flip bool) error
	PreviewCountdownContext(ctx context.Context, timeout int, alpha uint8) error
	PreviewWaitContext(ctx context.Context, timeout int, alpha uint8) error
	StopPreview() error
	Capture(effect string) error
	LastCapture() (*bytes.Reader, bool)
	DropCaptures()
}

// Sequence runs photobooth sessions: preview, countdown, capture, save,
// and notifies plugins of every state change.
type Sequence struct {
	camera    Camera
	plugins   *plugin.Manager
	app       *plugin.App
	fs        afero.Fs
	outputDir string
	now       func() time.Time
}

// NewSequence returns a sequence saving pictures into outputDir on fs.
func NewSequence(cam Camera, plugins *plugin.Manager, app *plugin.App, fs afero.Fs, outputDir string) *Sequence {
	return &Sequence{
		camera:    cam,
		plugins:   plugins,
		app:       app,
		fs:        fs,
		outputDir: outputDir,
		now:       time.Now,
	}
}

// ShotParams defines one session.
type ShotParams struct {
	Window    geometry.Rect // preview area on screen
	Flip      bool          // mirror the preview
	Countdown bool          // numbered countdown, otherwise a plain wait
	Timeout   int           // seconds before the shot
	Alpha     uint8         // overlay opacity
	Effect    string        // image effect applied at capture
	Quality   int           // JPEG quality of the saved picture
}

// RunShot performs one session and returns the saved picture path. The
// path is also returned when only a plugin failed after the save.
func (s *Sequence) RunShot(ctx context.Context, p ShotParams) (path string, err error) {
	debug.Section("Starting session")
	s.camera.DropCaptures()

	if err := s.plugins.EnterState(ctx, plugin.StatePreview, s.app); err != nil {
		return "", err
	}
	if err := s.camera.Preview(p.Window, p.Flip); err != nil {
		return "", err
	}
	previewing := true
	defer func() {
		if !previewing {
			return
		}
		if serr := s.camera.StopPreview(); serr != nil && err == nil {
			err = serr
		}
	}()

	if p.Countdown {
		err = s.camera.PreviewCountdownContext(ctx, p.Timeout, p.Alpha)
	} else {
		err = s.camera.PreviewWaitContext(ctx, p.Timeout, p.Alpha)
	}
	if err != nil {
		return "", err
	}

	if err := s.plugins.EnterState(ctx, plugin.StateCapture, s.app); err != nil {
		return "", err
	}
	if err := s.camera.Capture(p.Effect); err != nil {
		return "", err
	}
	previewing = false
	if err := s.camera.StopPreview(); err != nil {
		return "", err
	}

	if err := s.plugins.EnterState(ctx, plugin.StateProcessing, s.app); err != nil {
		return "", err
	}
	path, err = s.save(p.Quality)
	if err != nil {
		return "", err
	}
	s.app.SetPreviousPictureFile(path)
	debug.Saved(path)

	if err := s.plugins.EnterState(ctx, plugin.StatePrint, s.app); err != nil {
		return path, err
	}
	if err := s.plugins.EnterState(ctx, plugin.StateFinish, s.app); err != nil {
		return path, err
	}
	debug.Section("Session complete")
	return path, nil
}

// save decodes the last capture and writes it as a JPEG file named
// after the current time plus a short random suffix.
func (s *Sequence) save(quality int) (string, error) {
	stream, ok := s.camera.LastCapture()
	if !ok {
		return "", fmt.Errorf("no capture to save")
	}
	img, err := camera.PostProcess(stream)
	if err != nil {
		return "", fmt.Errorf("decode capture: %w", err)
	}

	if err := s.fs.MkdirAll(s.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	name := fmt.Sprintf("%s_%s.jpg", s.now().Format("2006-01-02-15-04-05"), uuid.NewString()[:8])
	path := filepath.Join(s.outputDir, name)

	f, err := s.fs.Create(path)
	if err != nil {
		return "", fmt.Errorf("create picture: %w", err)
	}
	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: quality}); err != nil {
		f.Close()
		return "", fmt.Errorf("encode picture: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close picture: %w", err)
	}
	return path, nil
}

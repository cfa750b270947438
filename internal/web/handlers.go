package web

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/cjeanneret/BoothGo/internal/hw/camera"
)

const (
	// MaxRequestBytes caps the POST /run body.
	MaxRequestBytes = 1 << 20
	// MaxTimeoutS is the longest countdown accepted from the UI.
	MaxTimeoutS = 30
	// minRunInterval is the minimum delay between two session starts.
	minRunInterval = 5 * time.Second
)

// Overrides holds session parameters that replace config defaults.
// Zero values mean "use the configured default".
type Overrides struct {
	Effect    string `json:"effect"`
	TimeoutS  int    `json:"timeout_s"`
	Countdown *bool  `json:"countdown,omitempty"`
}

// ValidateOverrides rejects unknown effects and out-of-range timeouts.
func ValidateOverrides(o Overrides) error {
	if o.Effect != "" && !camera.ValidEffect(o.Effect) {
		return fmt.Errorf("unknown effect %q", o.Effect)
	}
	if o.TimeoutS < 0 || o.TimeoutS > MaxTimeoutS {
		return fmt.Errorf("timeout_s must be between 0 and %d, got %d", MaxTimeoutS, o.TimeoutS)
	}
	return nil
}

// RunShotFunc runs one session with the given overrides.
// It is called from the POST /run handler in a goroutine.
type RunShotFunc func(ctx context.Context, overrides Overrides) error

// Picture is the latest saved picture and its hosted link, if any.
type Picture struct {
	File string `json:"file"`
	URL  string `json:"url"`
}

// LatestPictureFunc reports the latest picture.
type LatestPictureFunc func() Picture

// FormConfig holds the form defaults shown by the page.
type FormConfig struct {
	Effect    string   `json:"effect"`
	TimeoutS  int      `json:"timeout_s"`
	Countdown bool     `json:"countdown"`
	Effects   []string `json:"effects"`
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	Broadcaster  *StatusBroadcaster
	RunShot      RunShotFunc
	Latest       LatestPictureFunc
	FormDefaults FormConfig
	staticFS     fs.FS

	runningMu sync.Mutex
	running   bool
	lastStart time.Time
	now       func() time.Time

	// sessions run on baseCtx; Close cancels it and waits for them.
	baseCtx  context.Context
	cancel   context.CancelFunc
	sessions sync.WaitGroup
}

// NewHandlers creates handlers with the given dependencies.
// If runShot is nil, POST /run returns 503 Service Unavailable.
func NewHandlers(broadcaster *StatusBroadcaster, runShot RunShotFunc, latest LatestPictureFunc, formDefaults FormConfig, staticFS fs.FS) *Handlers {
	ctx, cancel := context.WithCancel(context.Background())
	return &Handlers{
		Broadcaster:  broadcaster,
		RunShot:      runShot,
		Latest:       latest,
		FormDefaults: formDefaults,
		staticFS:     staticFS,
		now:          time.Now,
		baseCtx:      ctx,
		cancel:       cancel,
	}
}

// Close cancels the running session, if any, and waits for it to
// return. Later POST /run requests get 503.
func (h *Handlers) Close() {
	h.stop()
	h.sessions.Wait()
}

func (h *Handlers) stop() {
	h.runningMu.Lock()
	h.cancel()
	h.runningMu.Unlock()
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("web: encode response: %v", err)
	}
}

// HandleConfig returns the form defaults as JSON.
func (h *Handlers) HandleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.FormDefaults)
}

// HandlePicture returns the latest picture file and link.
func (h *Handlers) HandlePicture(w http.ResponseWriter, r *http.Request) {
	var p Picture
	if h.Latest != nil {
		p = h.Latest()
	}
	writeJSON(w, http.StatusOK, p)
}

// ServeIndex serves the main HTML page (root path only).
func (h *Handlers) ServeIndex(w http.ResponseWriter, r *http.Request) {
	data, err := fs.ReadFile(h.staticFS, "index.html")
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}

// HandleRun handles POST /run to start a session.
func (h *Handlers) HandleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var overrides Overrides
	body := http.MaxBytesReader(w, r.Body, MaxRequestBytes)
	if err := json.NewDecoder(body).Decode(&overrides); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if err := ValidateOverrides(overrides); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if h.RunShot == nil {
		http.Error(w, "booth not configured", http.StatusServiceUnavailable)
		return
	}

	h.runningMu.Lock()
	if h.baseCtx.Err() != nil {
		h.runningMu.Unlock()
		http.Error(w, "booth shutting down", http.StatusServiceUnavailable)
		return
	}
	if h.running {
		h.runningMu.Unlock()
		http.Error(w, "session already in progress", http.StatusConflict)
		return
	}
	if now := h.now(); !h.lastStart.IsZero() && now.Sub(h.lastStart) < minRunInterval {
		h.runningMu.Unlock()
		http.Error(w, "too many requests", http.StatusTooManyRequests)
		return
	}
	h.running = true
	h.lastStart = h.now()
	h.sessions.Add(1)
	h.runningMu.Unlock()

	go func() {
		defer h.sessions.Done()
		defer func() {
			h.runningMu.Lock()
			h.running = false
			h.runningMu.Unlock()
		}()

		if err := h.RunShot(h.baseCtx, overrides); err != nil {
			h.Broadcaster.Broadcast("error", "Session failed: "+err.Error())
			log.Printf("session failed: %v", err)
			return
		}
		h.Broadcaster.Broadcast("done", "Session complete")
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

// HandleStatusStream handles GET /status/stream for SSE.
func (h *Handlers) HandleStatusStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // nginx

	ch, unsub := h.Broadcaster.Subscribe()
	defer unsub()

	w.Write([]byte(": connected\n\n"))
	flusher.Flush()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			w.Write([]byte("data: " + msg + "\n\n"))
			flusher.Flush()
		case <-ticker.C:
			w.Write([]byte(": heartbeat\n\n"))
			flusher.Flush()
		case <-r.Context().Done():
			return
		case <-h.baseCtx.Done():
			return
		}
	}
}

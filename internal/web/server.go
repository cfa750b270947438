package web

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"time"
)

// Server serves the booth control page and its API.
type Server struct {
	addr     string
	handlers *Handlers
}

// NewServer creates a server for addr. It fails only if the embedded
// static files are missing.
func NewServer(addr string, broadcaster *StatusBroadcaster, runShot RunShotFunc, latest LatestPictureFunc, formDefaults FormConfig) (*Server, error) {
	subFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return nil, fmt.Errorf("web: static files: %w", err)
	}
	return &Server{
		addr:     addr,
		handlers: NewHandlers(broadcaster, runShot, latest, formDefaults, subFS),
	}, nil
}

// Mux returns an http.Handler with all routes registered.
func (s *Server) Mux() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /run", s.handlers.HandleRun)
	mux.HandleFunc("GET /config", s.handlers.HandleConfig)
	mux.HandleFunc("GET /picture", s.handlers.HandlePicture)
	mux.HandleFunc("GET /status/stream", s.handlers.HandleStatusStream)
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(s.handlers.staticFS))))
	mux.HandleFunc("GET /{$}", s.handlers.ServeIndex)

	return mux
}

// Run starts the server and blocks until ctx is cancelled, then shuts down
// gracefully. It returns only once a running session has stopped.
func (s *Server) Run(ctx context.Context) error {
	defer s.handlers.Close()

	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Mux(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	// Ends status streams and the running session as soon as shutdown starts.
	srv.RegisterOnShutdown(s.handlers.stop)
	errCh := make(chan error, 1)
	go func() {
		log.Printf("web server listening on %s", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"
)

// Server is the HTTP surface of a watching ibtopo
type Server struct {
	srv *http.Server
	log *slog.Logger
}

// Routes collects what the server exposes. Nil fields are left unrouted.
type Routes struct {
	Metrics   http.Handler
	Events    http.Handler
	Snapshots SnapshotReader
}

// NewServer builds the server mux for addr
func NewServer(addr string, log *slog.Logger, routes Routes) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           NewMux(log, routes),
			ReadHeaderTimeout: 5 * time.Second,
		},
		log: log,
	}
}

// NewMux returns the router for routes
func NewMux(log *slog.Logger, routes Routes) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	if routes.Metrics != nil {
		mux.Handle("GET /metrics", routes.Metrics)
	}
	if routes.Events != nil {
		mux.Handle("GET /events", routes.Events)
	}
	if routes.Snapshots != nil {
		NewSnapshotHandler(routes.Snapshots, log).Register(mux)
	}
	return mux
}

// Run serves until ctx is done, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(shutdownCtx)
}

// Package diag wires the metrics and health handlers into a small HTTP
// server a worker process runs alongside its scheduler channel, the same
// supporting role the teacher's pprof server plays in cmd/warren's
// worker-start command — an out-of-band surface for operators, not part
// of the work-item path.
package diag

import (
	"context"
	"net/http"
	"time"

	"github.com/cuemby/durabletask/pkg/metrics"
)

// Server exposes /metrics, /health, /ready and /live on one listener.
type Server struct {
	httpServer *http.Server
}

// New builds a Server bound to addr. It does not start listening until Start.
func New(addr string) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/health", metrics.HealthHandler())
	mux.HandleFunc("/ready", metrics.ReadyHandler())
	mux.HandleFunc("/live", metrics.LivenessHandler())

	return &Server{httpServer: &http.Server{Addr: addr, Handler: mux}}
}

// Start runs ListenAndServe in its own goroutine and returns immediately;
// errCh receives the eventual ListenAndServe error (nil on clean Shutdown).
func (s *Server) Start() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()
	return errCh
}

// Shutdown gracefully stops the server within the given timeout.
func (s *Server) Shutdown(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Server exposes /metrics and /healthz over HTTP.
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	mux        *http.ServeMux
	status     func() string
}

// NewServer creates a metrics server listening on addr. status, when set,
// is reported by /healthz.
func NewServer(addr string, reg *Registry, status func() string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      instrument(reg, mux),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
		mux:    mux,
		status: status,
	}

	mux.Handle("/metrics", reg.Handler())
	mux.HandleFunc("/healthz", s.handleHealth)

	return s
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("starting metrics server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("metrics server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down metrics server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	state := "ok"
	if s.status != nil {
		state = s.status()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ok","state":%q}`, state)
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func instrument(reg *Registry, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reg.InFlightInc()
		defer reg.InFlightDec()

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)
		reg.RecordRequest(r.Method, r.URL.Path, rw.statusCode)
	})
}

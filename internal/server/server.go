// Package server exposes one selection session over a JSON HTTP API,
// together with health, readiness and Prometheus endpoints.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/artic-select/pkg/artwork"
	"github.com/Sternrassler/artic-select/pkg/bulk"
	"github.com/Sternrassler/artic-select/pkg/logging"
	"github.com/Sternrassler/artic-select/pkg/metrics"
	"github.com/Sternrassler/artic-select/pkg/view"
)

// HeaderRequestID carries the request id echoed on every response.
const HeaderRequestID = "X-Request-ID"

// DefaultRequestTimeout bounds how long one API call may spend upstream.
const DefaultRequestTimeout = 30 * time.Second

// Session is the selection session served by the API.
// *view.Controller implements it.
type Session interface {
	Snapshot() view.ViewState
	GoToPage(ctx context.Context, n int) (view.ViewState, error)
	ToggleRow(id int, checked bool) (view.ViewState, error)
	ToggleAll(checked bool) (view.ViewState, error)
	ApplyPageSelection(ids []int) (view.ViewState, error)
	SubmitBulk(ctx context.Context, n int) (view.ViewState, bulk.Result, error)
	Clear() view.ViewState
	SelectedRecords() []artwork.Record
	Policy() bulk.Policy
}

// Config holds server configuration.
type Config struct {
	// Session is the selection session. Required.
	Session Session

	// Redis is pinged by /ready. Nil means no Redis dependency.
	Redis *redis.Client

	// RequestTimeout bounds upstream work per request (default 30s).
	RequestTimeout time.Duration
}

// Server is the session API.
type Server struct {
	session Session
	redis   *redis.Client
	timeout time.Duration
	logger  zerolog.Logger
	mux     *http.ServeMux
}

// New creates a server.
func New(cfg Config) (*Server, error) {
	if cfg.Session == nil {
		return nil, errors.New("session is required")
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}

	s := &Server{
		session: cfg.Session,
		redis:   cfg.Redis,
		timeout: cfg.RequestTimeout,
		logger:  logging.NewLogger("server"),
		mux:     http.NewServeMux(),
	}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /ready", s.handleReady)
	s.mux.Handle("GET /metrics", metrics.Handler())

	s.mux.HandleFunc("GET /api/page", s.handleGetPage)
	s.mux.HandleFunc("POST /api/page", s.handleGoToPage)
	s.mux.HandleFunc("POST /api/selection/toggle", s.handleToggleRow)
	s.mux.HandleFunc("POST /api/selection/page", s.handleTogglePage)
	s.mux.HandleFunc("POST /api/selection/bulk", s.handleBulk)
	s.mux.HandleFunc("GET /api/selection", s.handleGetSelection)
	s.mux.HandleFunc("DELETE /api/selection", s.handleClear)
}

// Handler returns the HTTP handler with request logging.
func (s *Server) Handler() http.Handler {
	return s.logRequests(s.mux)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("Starting session API server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info().Msg("Shutting down session API server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := r.Header.Get(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, id)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		ev := s.logger.Debug()
		if rec.status >= http.StatusInternalServerError {
			ev = s.logger.Warn()
		}
		ev.Str("request_id", id).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("Request handled")
	})
}

// Package api provides the REST API server for sign-in sync operations.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	v1 "github.com/NickRomanek/SasWatch-sub002/internal/api/v1"
	"github.com/NickRomanek/SasWatch-sub002/internal/status"
	"github.com/NickRomanek/SasWatch-sub002/internal/store"
	"github.com/NickRomanek/SasWatch-sub002/internal/sync"
)

// ServerOption configures the sync API server
type ServerOption func(*serverConfig)

// serverConfig holds the server configuration
type serverConfig struct {
	middlewares    []func(http.Handler) http.Handler
	metricsHandler http.Handler
	readiness      func(context.Context) error
	deadline       time.Duration
}

// WithMiddlewares adds middleware to the server
func WithMiddlewares(mw ...func(http.Handler) http.Handler) ServerOption {
	return func(cfg *serverConfig) {
		cfg.middlewares = append(cfg.middlewares, mw...)
	}
}

// WithMetricsHandler mounts a Prometheus scrape handler at /metrics
func WithMetricsHandler(h http.Handler) ServerOption {
	return func(cfg *serverConfig) {
		cfg.metricsHandler = h
	}
}

// WithReadinessCheck sets the readiness probe, typically a database ping
func WithReadinessCheck(check func(context.Context) error) ServerOption {
	return func(cfg *serverConfig) {
		cfg.readiness = check
	}
}

// WithSyncDeadline bounds attended sync requests. Zero means
// sync.DefaultDeadline.
func WithSyncDeadline(d time.Duration) ServerOption {
	return func(cfg *serverConfig) {
		cfg.deadline = d
	}
}

// NewServer creates and configures the HTTP router with the given
// collaborators and options
func NewServer(
	manager sync.Manager,
	tracker *status.Tracker,
	st store.SignInStore,
	opts ...ServerOption,
) *chi.Mux {
	cfg := &serverConfig{
		middlewares: []func(http.Handler) http.Handler{},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	r := chi.NewRouter()

	for _, mw := range cfg.middlewares {
		r.Use(mw)
	}

	// Health check routes live at the root, outside the versioned API
	r.Mount("/", v1.HealthRouter(cfg.readiness))

	if cfg.metricsHandler != nil {
		r.Handle("/metrics", cfg.metricsHandler)
	}

	r.Mount("/api/v1", v1.Router(manager, tracker, st, cfg.deadline))

	return r
}

// LoggingMiddleware logs HTTP requests
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		slog.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

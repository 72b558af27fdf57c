// Package api serves the aircraft view, a health check and Prometheus metrics over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"adsb_snapshot/internal/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

type Config struct {
	Addr         string
	RateLimit    float64 // requests per second per client, 0 disables limiting
	RateBurst    int
	CORSOrigins  []string
	RefreshAfter time.Duration // reload hint for clients
}

type Server struct {
	cfg       Config
	presenter Presenter
	clock     SnapshotClock
	pinger    Pinger
	metrics   *metrics.Registry
	router    chi.Router
	upSince   time.Time
}

// NewServer builds the router. clock and pinger may be nil.
func NewServer(cfg Config, presenter Presenter, clock SnapshotClock, pinger Pinger, m *metrics.Registry) *Server {
	if m == nil {
		m = metrics.New()
	}
	s := &Server{
		cfg:       cfg,
		presenter: presenter,
		clock:     clock,
		pinger:    pinger,
		metrics:   m,
		upSince:   time.Now(),
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(metricsMiddleware(s.metrics))
	if len(s.cfg.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.cfg.CORSOrigins,
			AllowedMethods:   []string{"GET", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Group(func(r chi.Router) {
		if s.cfg.RateLimit > 0 {
			r.Use(newRateLimiter(s.cfg.RateLimit, max(s.cfg.RateBurst, 1)).middleware)
		}
		r.Get("/api/aircraft", s.handleAircraft)
	})

	return r
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to serve HTTP: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	slog.Info("Shutting down HTTP server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down HTTP server: %w", err)
	}
	return nil
}

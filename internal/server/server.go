// Package server exposes the screener over HTTP.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"condor-screener/internal/analysis/condor"
	"condor-screener/internal/config"
	"condor-screener/internal/store"
)

// Config holds server dependencies.
type Config struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Logger       zerolog.Logger
	Scanner      *condor.Scanner
	// Screener supplies defaults for query parameters a request omits.
	Screener config.ScreenerConfig
	// History is optional. When set, every scan is recorded and
	// /api/v1/scans is served.
	History store.HistoryStore
	// Now overrides the evaluation clock. Nil means time.Now.
	Now func() time.Time
}

// Server serves the screening API, health probes and metrics.
type Server struct {
	server  *http.Server
	handler *CondorHandler
	health  *HealthChecker
	logger  zerolog.Logger
}

// New creates a new HTTP server.
func New(cfg Config) *Server {
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 15 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 60 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	health := NewHealthChecker()
	handler := NewCondorHandler(cfg.Scanner, cfg.Screener, cfg.History, cfg.Now, cfg.Logger)

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.WriteTimeout))

	// Routes
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Get("/health", health.Health())
	r.Get("/ready", health.Ready())
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/condors/{symbol}", handler.HandleCondors)
		if cfg.History != nil {
			r.Get("/scans", handler.HandleScans)
			r.Get("/scans/{id}", handler.HandleScan)
		}
	})

	return &Server{
		server: &http.Server{
			Addr:              cfg.Addr,
			Handler:           r,
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      cfg.WriteTimeout + 5*time.Second,
			IdleTimeout:       60 * time.Second,
		},
		handler: handler,
		health:  health,
		logger:  cfg.Logger,
	}
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Health returns the server's health checker.
func (s *Server) Health() *HealthChecker {
	return s.health
}

// Start serves until the server stops. It marks the server ready first.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP server starting")
	s.health.SetReady(true)

	err := s.server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("listen and serve: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.health.SetReady(false)
	s.logger.Info().Msg("HTTP server shutting down")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

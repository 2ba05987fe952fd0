// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package api is the HTTP routing layer in front of the delivery assembler.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ManuGH/ytgrab/internal/api/middleware"
	"github.com/ManuGH/ytgrab/internal/cookiestore"
	"github.com/ManuGH/ytgrab/internal/delivery"
	"github.com/ManuGH/ytgrab/internal/media"
	"github.com/ManuGH/ytgrab/internal/transcoder"
)

// Deliverer is the pipeline behind the routes.
type Deliverer interface {
	Deliver(ctx context.Context, rawInput string, target media.TargetKind, out delivery.Outbound) error
	Info(ctx context.Context, rawInput string) (media.Metadata, error)
}

// CookieStatus reports the credential state for /healthz.
type CookieStatus interface {
	Status() cookiestore.Status
}

// Config wires the server's collaborators.
type Config struct {
	Deliverer Deliverer
	Engine    transcoder.Engine
	Cookies   CookieStatus

	RateLimit      middleware.RateLimitConfig
	TracingService string
	// MetricsHandler defaults to promhttp.Handler.
	MetricsHandler http.Handler
}

// Server serves the download API.
type Server struct {
	cfg    Config
	router chi.Router
}

// New builds the router.
func New(cfg Config) *Server {
	if cfg.MetricsHandler == nil {
		cfg.MetricsHandler = promhttp.Handler()
	}
	s := &Server{cfg: cfg}
	s.router = s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := middleware.NewRouter(middleware.StackConfig{
		TracingService: s.cfg.TracingService,
		EnableMetrics:  true,
		EnableLogging:  true,
	})

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.cfg.MetricsHandler)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.RateLimit(s.cfg.RateLimit))
		r.Get("/info", s.handleInfo)
		r.Get("/download/{kind}", s.handleDownload)
	})
	return r
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package api provides the HTTP control and observability surface.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ManuGH/playwatch/internal/api/middleware"
	"github.com/ManuGH/playwatch/internal/health"
	"github.com/ManuGH/playwatch/internal/media"
	"github.com/ManuGH/playwatch/internal/playback/session"
	"github.com/ManuGH/playwatch/internal/preference"
)

// BridgePath is where players open their WebSocket.
const BridgePath = "/ws/player"

// MediaResolver resolves object keys to playable sources.
type MediaResolver interface {
	Resolve(ctx context.Context, key string) (media.Source, error)
}

// Config holds the HTTP-level settings.
type Config struct {
	AllowedOrigins     []string
	RateLimitRPM       int
	RateLimitWhitelist []string
	TracingService     string
}

// Deps are the components the API serves. Preferences, Resolver and Bridge
// are optional.
type Deps struct {
	Registry    *session.Registry
	Preferences *preference.Repository
	Resolver    MediaResolver
	Bridge      http.Handler
	Health      *health.Manager
}

// Server is the HTTP API.
type Server struct {
	cfg     Config
	deps    Deps
	handler http.Handler
}

// New builds the router.
func New(cfg Config, deps Deps) *Server {
	if deps.Health == nil {
		deps.Health = health.NewManager("")
	}
	s := &Server{cfg: cfg, deps: deps}
	s.handler = s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) routes() http.Handler {
	r := middleware.NewRouter(middleware.StackConfig{
		EnableCORS:         len(s.cfg.AllowedOrigins) > 0,
		AllowedOrigins:     s.cfg.AllowedOrigins,
		TracingService:     s.cfg.TracingService,
		EnableLogging:      true,
		RateLimitRPM:       s.cfg.RateLimitRPM,
		RateLimitWhitelist: s.cfg.RateLimitWhitelist,
	})

	r.Get("/healthz", s.deps.Health.ServeHealth)
	r.Get("/readyz", s.deps.Health.ServeReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/sessions", s.handleListSessions)
		r.Get("/sessions/{id}", s.handleGetSession)
		r.Delete("/sessions/{id}", s.handleDeleteSession)
		r.Put("/sessions/{id}/quality", s.handleSetQuality)
		r.Get("/clients/{clientID}/preference", s.handleGetPreference)
		r.Get("/media/source", s.handleMediaSource)
	})

	if s.deps.Bridge != nil {
		r.Handle(BridgePath, s.deps.Bridge)
	}
	return r
}

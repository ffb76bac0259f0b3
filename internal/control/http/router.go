// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package http is the public HTTP surface: the session endpoint, the link
// pages and the probes.
package http

import (
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ManuGH/knotlink/internal/control/middleware"
	"github.com/ManuGH/knotlink/internal/health"
	"github.com/ManuGH/knotlink/internal/linkflow"
	"github.com/ManuGH/knotlink/internal/proxy"
	"github.com/ManuGH/knotlink/internal/ratelimit"
)

// Session endpoint paths. The second is the historical route.
const (
	PathCreateSession       = "/create-session"
	PathCreateSessionLegacy = "/api/knot/create-session"
)

// Settings are the router's static options.
type Settings struct {
	CSP            string
	TrustedProxies []*net.IPNet
	// AllowedOrigins may post the link forms besides the serving host.
	AllowedOrigins []string
	TracingService string
	// RequestsPerMinute bounds session creation per client IP; 0 disables.
	RequestsPerMinute int

	SDKURL            string
	DefaultUserID     string
	DefaultMerchantID int
	DefaultProduct    string
	Environment       string
	FlowTTL           time.Duration
}

// Deps are the services behind the routes.
type Deps struct {
	Sessions *proxy.Service
	Flows    *linkflow.Manager
	Health   *health.Manager
	// Submits throttles link form submissions; nil disables it.
	Submits *ratelimit.Limiter
}

// Server holds the handlers.
type Server struct {
	settings Settings
	deps     Deps
}

// NewServer wires handlers.
func NewServer(settings Settings, deps Deps) *Server {
	return &Server{settings: settings, deps: deps}
}

// Router builds the route tree.
func (s *Server) Router() http.Handler {
	r := middleware.NewRouter(middleware.StackConfig{
		EnableSecurityHeaders: true,
		CSP:                   s.settings.CSP,
		TrustedProxies:        s.settings.TrustedProxies,
		EnableMetrics:         true,
		TracingService:        s.settings.TracingService,
		EnableLogging:         true,
	})

	r.Get("/healthz", s.deps.Health.ServeHealth)
	r.Get("/readyz", s.deps.Health.ServeReady)
	r.Get("/openapi.yaml", serveOpenAPI)

	for _, path := range []string{PathCreateSession, PathCreateSessionLegacy} {
		r.Route(path, s.sessionRoutes)
	}

	r.Group(func(ui chi.Router) {
		ui.Use(middleware.SameOrigin(s.settings.AllowedOrigins))
		ui.Get("/", s.handleIndex)
		ui.Post("/link", s.handleSubmit)
		ui.Post("/link/outcome", s.handleOutcome)
		ui.Get("/link/state", s.handleState)
		ui.Get("/static/*", serveStatic)
	})

	return r
}

func (s *Server) sessionRoutes(r chi.Router) {
	r.Use(middleware.PublicCORS(
		[]string{http.MethodPost, http.MethodOptions},
		[]string{"Content-Type", "Authorization"},
	))
	r.Options("/", handlePreflight)
	r.With(middleware.APIRateLimit(s.settings.RequestsPerMinute, s.settings.TrustedProxies)).Post("/", s.handleCreateSession)
}

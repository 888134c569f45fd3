// Package core provides the API chassis for the EcoShore risk service: the
// chi router, cross-cutting middleware (recovery, request IDs, logging,
// CORS, training-trigger auth), the JSON response envelope, and request
// validation. Domain handlers stay free of these concerns.
package core

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ecoshore/internal/config"
)

// Server bundles the router with the dependencies every handler needs.
type Server struct {
	Config    *config.Config
	Logger    *slog.Logger
	Validator *Validator

	// RouteRegistrars are mounted under the router root by MountRoutes.
	// Populated by the application entry point, which keeps core free of
	// handler imports.
	RouteRegistrars []func(chi.Router)

	router *chi.Mux
}

// NewServer initializes the chassis. The caller mounts routes afterwards
// via MountRoutes; the separation lets tests register custom routes.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}

	return &Server{
		Config:    cfg,
		Logger:    logger,
		Validator: NewValidator(),
		router:    chi.NewRouter(),
	}, nil
}

// MountRoutes registers the global middleware chain and all route
// registrars. Middleware order: Recoverer outermost so it catches panics
// from everything else, then request correlation, logging, CORS.
func (s *Server) MountRoutes() {
	s.router.Use(s.Recoverer)
	s.router.Use(RequestIDMiddleware)
	s.router.Use(RequestLogger(s.Logger))
	s.router.Use(CORSMiddleware(s.Config.Server.CorsAllowedOrigins))

	for _, register := range s.RouteRegistrars {
		register(s.router)
	}
}

// Handler returns the http.Handler for the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"ecoshore/internal/core"
)

// ModelStatus reports whether a trained model is currently serving.
type ModelStatus interface {
	ModelLoaded() bool
}

// HealthPayload is the body of GET /health. Fallback mode is a healthy
// state, so the endpoint always returns 200; callers use modelLoaded to
// decide how much to trust the scores.
type HealthPayload struct {
	Status       string `json:"status"`
	ModelLoaded  bool   `json:"modelLoaded"`
	FallbackMode bool   `json:"fallbackMode"`
	Service      string `json:"service"`
	Version      string `json:"version"`
}

// HealthHandler serves liveness and model-state information.
type HealthHandler struct {
	status  ModelStatus
	service string
	version string
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(status ModelStatus, service, version string) *HealthHandler {
	return &HealthHandler{
		status:  status,
		service: service,
		version: version,
	}
}

// RegisterRoutes mounts the health route on the provided chi.Router.
func (h *HealthHandler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.Health)
}

// Health handles GET /health.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	loaded := h.status.ModelLoaded()
	core.OK(w, r, HealthPayload{
		Status:       "healthy",
		ModelLoaded:  loaded,
		FallbackMode: !loaded,
		Service:      h.service,
		Version:      h.version,
	}, "")
}

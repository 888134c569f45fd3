// Package handlers contains the HTTP handlers for the EcoShore risk service:
// risk prediction, training trigger, and health. Handlers depend on small
// local interfaces so tests can substitute the engine and pipeline.
package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ecoshore/internal/core"
	"ecoshore/internal/engine"
	"ecoshore/internal/types"
)

// RiskPredictor scores a weather window for one beach.
type RiskPredictor interface {
	Predict(beach types.Beach, window []types.DailyWeather) ([]types.DailyPrediction, error)
}

// PredictRequest is the payload for POST /predict. Beach and weather are
// pointers so a missing key can be told apart from an empty value.
type PredictRequest struct {
	Beach   *types.Beach          `json:"beach" validate:"omitempty"`
	Weather *[]types.DailyWeather `json:"weather" validate:"omitempty,dive"`
}

// PredictResponse wraps the per-day predictions with provenance so callers
// can show whether scores came from the trained model or the heuristic.
type PredictResponse struct {
	BeachID     string                  `json:"beachId"`
	BeachName   string                  `json:"beachName"`
	ModelUsed   types.ScoreSource       `json:"modelUsed"`
	Predictions []types.DailyPrediction `json:"predictions"`
}

// PredictHandler serves beach pollution-risk predictions.
type PredictHandler struct {
	predictor RiskPredictor
	validator *core.Validator
	logger    *slog.Logger
}

// NewPredictHandler creates a PredictHandler with the provided dependencies.
func NewPredictHandler(predictor RiskPredictor, v *core.Validator, l *slog.Logger) *PredictHandler {
	if l == nil {
		l = slog.Default()
	}
	return &PredictHandler{
		predictor: predictor,
		validator: v,
		logger:    l,
	}
}

// RegisterRoutes mounts prediction routes on the provided chi.Router.
func (h *PredictHandler) RegisterRoutes(r chi.Router) {
	r.Post("/predict", h.Predict)
}

// Predict handles POST /predict.
//
//  1. Decode and validate the request: beach and weather keys must be
//     present, the weather window must be non-empty, and field-level tag
//     rules must hold.
//  2. Score the window through the engine; the engine truncates windows
//     beyond seven days and fails the whole batch on any unparseable date.
//  3. Respond with the prediction sequence plus aggregate provenance.
func (h *PredictHandler) Predict(w http.ResponseWriter, r *http.Request) {
	var req PredictRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}

	if req.Beach == nil {
		core.Error(w, r, types.NewAppErrorWithDetails(
			types.ErrCodeValidationMissingField,
			"beach is required",
			nil,
			map[string]any{"field": "beach"},
		))
		return
	}
	if req.Weather == nil {
		core.Error(w, r, types.NewAppErrorWithDetails(
			types.ErrCodeValidationMissingField,
			"weather is required",
			nil,
			map[string]any{"field": "weather"},
		))
		return
	}
	if len(*req.Weather) == 0 {
		core.Error(w, r, types.NewAppError(
			types.ErrCodeValidationEmptyWindow,
			"weather window must contain at least one day",
			nil,
		))
		return
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	window := *req.Weather
	if len(window) > engine.MaxWindowDays {
		h.logger.Warn("weather window truncated",
			slog.Int("requested_days", len(window)),
			slog.Int("max_days", engine.MaxWindowDays),
		)
	}

	predictions, err := h.predictor.Predict(*req.Beach, window)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	// Every prediction in a batch shares one source, so the first entry
	// is the aggregate provenance even across a concurrent hot-reload.
	core.OK(w, r, PredictResponse{
		BeachID:     req.Beach.ID,
		BeachName:   req.Beach.Name,
		ModelUsed:   predictions[0].Source,
		Predictions: predictions,
	}, "predictions generated")
}

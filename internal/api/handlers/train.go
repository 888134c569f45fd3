package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ecoshore/internal/core"
	"ecoshore/internal/types"
)

// TrainingRunner executes one full training run.
type TrainingRunner interface {
	Run(ctx context.Context) (*types.TrainingSummary, error)
}

// TrainHandler triggers model retraining.
type TrainHandler struct {
	runner TrainingRunner
	logger *slog.Logger
}

// NewTrainHandler creates a TrainHandler with the provided dependencies.
func NewTrainHandler(runner TrainingRunner, l *slog.Logger) *TrainHandler {
	if l == nil {
		l = slog.Default()
	}
	return &TrainHandler{
		runner: runner,
		logger: l,
	}
}

// RegisterRoutes mounts the training route. The caller wraps it with the
// training-secret middleware; the handler itself performs no auth.
func (h *TrainHandler) RegisterRoutes(r chi.Router) {
	r.Post("/train", h.Train)
}

// Train handles POST /train. The pipeline serializes overlapping runs
// itself (a second concurrent trigger gets training_in_progress) and
// hot-reloads the engine before the summary is returned, so a successful
// response means subsequent predictions already use the new model.
func (h *TrainHandler) Train(w http.ResponseWriter, r *http.Request) {
	summary, err := h.runner.Run(r.Context())
	if err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.Info("training run completed",
		slog.String("run_id", summary.RunID),
		slog.Int("sample_count", summary.SampleCount),
		slog.String("data_origin", string(summary.DataOrigin)),
	)

	core.OK(w, r, summary, "model trained successfully")
}

// Package engine implements the prediction engine: per-day risk scoring
// across a forecast window, model lifecycle (load, hot-reload, fallback
// state), confidence decay, and response assembly.
//
// The engine owns one piece of mutable shared state, the loaded artifact
// pair, held behind an atomic pointer. Reloads swap the pointer wholesale;
// concurrent Predict calls snapshot it once per batch and therefore never
// observe a half-updated artifact or mix sources within one response.
package engine

import (
	"errors"
	"io/fs"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"ecoshore/internal/artifacts"
	"ecoshore/internal/features"
	"ecoshore/internal/forest"
	"ecoshore/internal/risk"
	"ecoshore/internal/seasonal"
	"ecoshore/internal/types"
)

const (
	// MaxWindowDays caps the forecast horizon; extra days are ignored.
	MaxWindowDays = 7

	// ModelConfidence is the base confidence of a forest-backed score.
	ModelConfidence = 0.85

	// confidenceDecayPerDay is subtracted per day of forecast horizon.
	confidenceDecayPerDay = 0.03

	// confidenceFloor is the minimum confidence after decay.
	confidenceFloor = 0.50
)

// modelSet is the immutable artifact pair swapped on (re)load.
type modelSet struct {
	forest   *forest.Forest
	seasonal *seasonal.Model
}

// Engine scores pollution risk for a beach across a forecast window,
// using the loaded regression model when present and the rules-based
// heuristic otherwise.
type Engine struct {
	store  *artifacts.Store
	logger *slog.Logger
	models atomic.Pointer[modelSet]
}

// New creates an Engine backed by the given artifact store. The engine
// starts in fallback mode; call LoadModels to pick up persisted artifacts.
func New(store *artifacts.Store, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:  store,
		logger: logger.With("component", "engine"),
	}
}

// LoadModels attempts to read both model artifacts from the store and swaps
// them in atomically. The regression artifact alone determines loaded vs
// fallback state; the seasonal artifact loads independently. Any read
// failure is logged and treated as "not present"; LoadModels never fails.
// Safe to call at any time, including concurrently with Predict.
func (e *Engine) LoadModels() {
	next := &modelSet{}

	var rf forest.Forest
	switch err := e.store.Load(artifacts.RegressionModel, &rf); {
	case err == nil:
		next.forest = &rf
	case errors.Is(err, fs.ErrNotExist):
		e.logger.Info("no trained regression model found, using rules-based fallback")
	default:
		e.logger.Warn("failed to load regression model, using rules-based fallback", "error", err)
	}

	var sm seasonal.Model
	switch err := e.store.Load(artifacts.SeasonalModel, &sm); {
	case err == nil:
		next.seasonal = &sm
	case errors.Is(err, fs.ErrNotExist):
		// Optional artifact; absence is routine.
	default:
		e.logger.Warn("failed to load seasonal model", "error", err)
	}

	prev := e.models.Swap(next)

	wasLoaded := prev != nil && prev.forest != nil
	isLoaded := next.forest != nil
	if wasLoaded != isLoaded {
		e.logger.Info("prediction engine state changed",
			"from", stateName(wasLoaded),
			"to", stateName(isLoaded),
		)
	} else {
		e.logger.Info("models reloaded",
			"state", stateName(isLoaded),
			"seasonal", next.seasonal != nil,
		)
	}
}

func stateName(loaded bool) string {
	if loaded {
		return "loaded"
	}
	return "fallback"
}

// ModelLoaded reports whether a regression model is currently loaded.
func (e *Engine) ModelLoaded() bool {
	m := e.models.Load()
	return m != nil && m.forest != nil
}

// Source returns the scoring source the engine would use right now, for
// aggregate provenance reporting.
func (e *Engine) Source() types.ScoreSource {
	if e.ModelLoaded() {
		return types.SourceRandomForest
	}
	return types.SourceRulesBased
}

// Predict scores up to the first MaxWindowDays entries of the weather
// window, in input order. An unparseable date on any day fails the whole
// batch with a feature-extraction error: a caller showing a partial week
// is worse than an explicit failure. An empty window yields an empty
// result, not an error.
func (e *Engine) Predict(beach types.Beach, window []types.DailyWeather) ([]types.DailyPrediction, error) {
	if len(window) > MaxWindowDays {
		window = window[:MaxWindowDays]
	}

	// Snapshot the artifact pair once so a concurrent reload cannot mix
	// scoring sources within a single batch.
	models := e.models.Load()
	loaded := models != nil && models.forest != nil

	out := make([]types.DailyPrediction, 0, len(window))
	for i, day := range window {
		date, err := time.Parse(types.DateLayout, day.Date)
		if err != nil {
			return nil, types.NewAppErrorWithDetails(
				types.ErrCodeFeatureExtractionFailed,
				"weather entry has an unparseable date",
				err,
				map[string]any{"index": i, "date": day.Date},
			)
		}

		var (
			score      float64
			confidence float64
			source     types.ScoreSource
		)
		if loaded {
			vec := features.Build(beach, day, date)
			raw, err := models.forest.Predict(vec)
			if err != nil {
				return nil, types.NewAppError(
					types.ErrCodeInternalUnexpected,
					"regression model rejected the feature vector",
					err,
				)
			}
			score = risk.Clamp(raw)
			confidence = ModelConfidence
			source = types.SourceRandomForest
		} else {
			score, confidence = risk.RulesScore(beach, day)
			source = types.SourceRulesBased
		}

		// Forecast reliability degrades with horizon.
		confidence = round2(math.Max(confidenceFloor, confidence-confidenceDecayPerDay*float64(i)))

		level, color := risk.Classify(score)
		out = append(out, types.DailyPrediction{
			Date:       day.Date,
			RiskScore:  round2(score),
			RiskLevel:  level,
			Color:      color,
			Confidence: confidence,
			Source:     source,
			WeatherSnapshot: types.WeatherSnapshot{
				Temp:          day.Temp,
				Humidity:      day.Humidity,
				Precipitation: day.Precipitation,
				WindSpeed:     day.WindSpeed,
			},
		})
	}

	return out, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

package training

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
	"gonum.org/v1/gonum/stat"

	"ecoshore/internal/artifacts"
	"ecoshore/internal/features"
	"ecoshore/internal/forest"
	"ecoshore/internal/seasonal"
	"ecoshore/internal/types"
)

// Training-time backfill defaults for store rows that predate weather
// capture. These deliberately differ from the inference defaults in the
// features package: they describe typical conditions on historical
// collection days, not a forecast-day fallback.
var trainingWeatherDefaults = map[string]float64{
	"temp":          29,
	"humidity":      75,
	"wind_speed":    4,
	"precipitation": 2,
	"uv_index":      9,
}

// splitSeed fixes the train/test shuffle for reproducible evaluation.
const splitSeed = 42

var (
	errEmptyDataset           = errors.New("empty dataset after all fallbacks")
	errMissingSyntheticTarget = errors.New("synthetic record without target score")
)

// testFraction is the held-out share of the dataset.
const testFraction = 0.2

// ModelReloader is the hot-reload hook invoked after a successful run.
type ModelReloader interface {
	LoadModels()
}

// Pipeline orchestrates a full training run: acquire data, assemble the
// feature matrix, fit and evaluate the forest, optionally fit the seasonal
// model, persist artifacts, and hot-reload the engine. Runs are exclusive:
// a second trigger while one is in flight is rejected rather than queued.
type Pipeline struct {
	provider *Provider
	store    *artifacts.Store
	reloader ModelReloader
	logger   *slog.Logger
	sem      *semaphore.Weighted

	forestCfg forest.Config
}

// NewPipeline creates a Pipeline. reloader may be nil (e.g. for the
// one-shot trainer CLI, where no engine is running).
func NewPipeline(provider *Provider, store *artifacts.Store, reloader ModelReloader, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		provider:  provider,
		store:     store,
		reloader:  reloader,
		logger:    logger.With("component", "training"),
		sem:       semaphore.NewWeighted(1),
		forestCfg: forest.DefaultConfig(),
	}
}

// Run executes one training run and returns its summary. Unrecoverable
// errors (degenerate matrix, fit or persistence failure) surface as a
// training_failed AppError; no artifact from the failed stage is persisted.
// A run already in flight yields training_in_progress.
func (p *Pipeline) Run(ctx context.Context) (*types.TrainingSummary, error) {
	if !p.sem.TryAcquire(1) {
		return nil, types.NewAppError(
			types.ErrCodeTrainingInProgress,
			"a training run is already in progress",
			nil,
		)
	}
	defer p.sem.Release(1)

	runID := uuid.NewString()
	logger := p.logger.With("run_id", runID)
	started := time.Now().UTC()

	// 1. Acquire data; synthetic fallback happens inside the provider.
	dataset := p.provider.Fetch(ctx)

	// 2-3. Assemble the feature matrix and target vector.
	X, y, err := buildMatrix(dataset)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeTrainingFailed, "building feature matrix", err)
	}
	logger.Info("feature matrix assembled",
		"samples", len(X),
		"columns", len(features.Columns),
		"origin", dataset.Origin,
	)

	// 4. Seeded 80/20 split.
	trainX, trainY, testX, testY := split(X, y)

	// 5. Fit and evaluate the forest.
	model, err := forest.Fit(trainX, trainY, p.forestCfg)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeTrainingFailed, "fitting regression forest", err)
	}
	metrics := evaluate(model, testX, testY)
	logger.Info("regression forest trained", "mae", metrics.MAE, "r2", metrics.R2)

	// The regression artifact is persisted unconditionally; the seasonal
	// fit below is best-effort and must not affect it.
	if err := p.store.Save(artifacts.RegressionModel, model); err != nil {
		return nil, types.NewAppError(types.ErrCodeTrainingFailed, "persisting regression model", err)
	}

	// 6-7 (seasonal half). Best-effort refinement fit; skips are non-fatal.
	seasonalMetrics := p.fitSeasonal(logger, dataset)

	// Side effect of the training contract: subsequent predictions observe
	// the new artifacts immediately.
	if p.reloader != nil {
		p.reloader.LoadModels()
	}

	summary := &types.TrainingSummary{
		RunID:        runID,
		TrainedAt:    started,
		SampleCount:  len(X),
		DataOrigin:   dataset.Origin,
		RandomForest: metrics,
		Seasonal:     seasonalMetrics,
		ModelsDir:    p.store.Dir(),
	}
	logger.Info("training complete",
		"samples", summary.SampleCount,
		"duration", time.Since(started),
	)
	return summary, nil
}

// fitSeasonal aggregates waste weight to daily totals and fits the harmonic
// model. All failure paths are non-fatal skips reported as zero data points.
func (p *Pipeline) fitSeasonal(logger *slog.Logger, dataset types.Dataset) types.SeasonalMetrics {
	dates := make([]time.Time, len(dataset.Records))
	weights := make([]float64, len(dataset.Records))
	for i, rec := range dataset.Records {
		dates[i] = rec.Date
		weights[i] = rec.Weight
	}

	model, err := seasonal.Fit(seasonal.Aggregate(dates, weights))
	if err != nil {
		logger.Info("seasonal model skipped", "reason", err)
		return types.SeasonalMetrics{}
	}
	if err := p.store.Save(artifacts.SeasonalModel, model); err != nil {
		logger.Warn("seasonal model fit but not persisted", "error", err)
		return types.SeasonalMetrics{}
	}

	logger.Info("seasonal model trained", "data_points", model.DataPoints)
	return types.SeasonalMetrics{DataPoints: model.DataPoints}
}

// buildMatrix derives calendar features from each record's date, backfills
// missing weather columns, and picks the target vector per dataset origin:
// the explicit synthetic target, or waste weight normalized to [0,100] as a
// risk proxy for store rows.
func buildMatrix(dataset types.Dataset) ([][]float64, []float64, error) {
	records := dataset.Records
	if len(records) == 0 {
		return nil, nil, errEmptyDataset
	}

	temp := fillColumn(records, func(r types.HistoricalRecord) *float64 { return r.Temp }, "temp")
	humidity := fillColumn(records, func(r types.HistoricalRecord) *float64 { return r.Humidity }, "humidity")
	wind := fillColumn(records, func(r types.HistoricalRecord) *float64 { return r.WindSpeed }, "wind_speed")
	precip := fillColumn(records, func(r types.HistoricalRecord) *float64 { return r.Precipitation }, "precipitation")
	uv := fillColumn(records, func(r types.HistoricalRecord) *float64 { return r.UVIndex }, "uv_index")

	var maxWeight float64
	for _, rec := range records {
		if rec.Weight > maxWeight {
			maxWeight = rec.Weight
		}
	}
	if maxWeight == 0 {
		maxWeight = 1
	}

	X := make([][]float64, len(records))
	y := make([]float64, len(records))
	for i, rec := range records {
		// Row layout must match features.Columns; inference vectors are
		// built against the same order.
		X[i] = []float64{
			float64(rec.Date.Month()),
			float64(features.MondayIndexedWeekday(rec.Date)),
			temp[i],
			humidity[i],
			wind[i],
			precip[i],
			uv[i],
			rec.SeverityScore,
			rec.TotalWasteCollected,
			rec.TotalCleanups,
		}

		switch {
		case dataset.Origin == types.OriginSynthetic && rec.TargetScore != nil:
			y[i] = *rec.TargetScore
		case dataset.Origin == types.OriginSynthetic:
			return nil, nil, errMissingSyntheticTarget
		default:
			// Weight proxy: no labeled risk score exists in raw records.
			y[i] = math.Max(0, math.Min(100, rec.Weight/maxWeight*100))
		}
	}

	return X, y, nil
}

// fillColumn materializes one weather column: a wholly-absent column takes
// the fixed regional default for every row; a partially-present column has
// its gaps filled with the column median over the current dataset.
func fillColumn(records []types.HistoricalRecord, get func(types.HistoricalRecord) *float64, name string) []float64 {
	present := make([]float64, 0, len(records))
	for _, rec := range records {
		if v := get(rec); v != nil {
			present = append(present, *v)
		}
	}

	var fill float64
	if len(present) == 0 {
		fill = trainingWeatherDefaults[name]
	} else {
		sort.Float64s(present)
		fill = stat.Quantile(0.5, stat.Empirical, present, nil)
	}

	out := make([]float64, len(records))
	for i, rec := range records {
		if v := get(rec); v != nil {
			out[i] = *v
		} else {
			out[i] = fill
		}
	}
	return out
}

// split shuffles with a fixed seed and carves off the trailing testFraction
// as the held-out set. Degenerate datasets (too small for a non-empty test
// split) keep everything in train and evaluate in-sample.
func split(X [][]float64, y []float64) (trainX [][]float64, trainY []float64, testX [][]float64, testY []float64) {
	n := len(X)
	perm := seededPerm(n)

	testN := int(float64(n) * testFraction)
	trainN := n - testN

	for i, j := range perm {
		if i < trainN {
			trainX = append(trainX, X[j])
			trainY = append(trainY, y[j])
		} else {
			testX = append(testX, X[j])
			testY = append(testY, y[j])
		}
	}
	if testN == 0 {
		testX, testY = trainX, trainY
	}
	return trainX, trainY, testX, testY
}

func seededPerm(n int) []int {
	rng := rand.New(rand.NewPCG(splitSeed, splitSeed))
	return rng.Perm(n)
}

// evaluate computes MAE and R² of the model on the held-out split.
func evaluate(model *forest.Forest, X [][]float64, y []float64) types.RegressionMetrics {
	estimates := make([]float64, len(X))
	var absSum float64
	for i := range X {
		pred, err := model.Predict(X[i])
		if err != nil {
			// Width mismatches cannot happen for a matrix built
			// alongside the fit.
			pred = 0
		}
		estimates[i] = pred
		absSum += math.Abs(pred - y[i])
	}

	mae := absSum / float64(len(X))
	r2 := stat.RSquaredFrom(estimates, y, nil)

	return types.RegressionMetrics{
		MAE: math.Round(mae*100) / 100,
		R2:  math.Round(r2*10000) / 10000,
	}
}

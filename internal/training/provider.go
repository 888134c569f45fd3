// Package training implements the model training pipeline: historical data
// acquisition with synthetic fallback, feature matrix assembly, model
// fitting and evaluation, artifact persistence, and the hot-reload handoff
// to the prediction engine.
package training

import (
	"context"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	"github.com/sony/gobreaker/v2"

	"ecoshore/internal/types"
)

// HistoryReader is the read-only slice of the historical store the provider
// consumes.
type HistoryReader interface {
	FetchVerifiedRecords(ctx context.Context) ([]types.HistoricalRecord, error)
}

// minStoreRecords is the smallest store dataset worth training on; anything
// below it degrades to synthesis, same as an unreachable store.
const minStoreRecords = 10

// syntheticSeed fixes the synthetic generator for reproducible datasets.
const syntheticSeed = 42

// Monsoon season for Sri Lanka's southwest monsoon: months 5-9.
const (
	monsoonStartMonth = 5
	monsoonEndMonth   = 9
	monsoonScale      = 1.3
)

// Provider fetches historical pollution records, degrading to a seeded
// synthetic dataset when the store is unavailable or too sparse. Fetch
// never fails: data acquisition problems are a recovered condition.
type Provider struct {
	repo    HistoryReader
	breaker *gobreaker.CircuitBreaker[[]types.HistoricalRecord]
	logger  *slog.Logger
	samples int
}

// NewProvider creates a Provider. repo may be nil when no store is
// configured; every Fetch then synthesizes. samples is the synthetic
// dataset size.
func NewProvider(repo HistoryReader, samples int, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}

	// Repeated store failures trip the breaker so back-to-back training
	// runs stop hammering a dead store and fall straight through to
	// synthesis until the half-open probe succeeds.
	cb := gobreaker.NewCircuitBreaker[[]types.HistoricalRecord](gobreaker.Settings{
		Name:        "history-store",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
	})

	return &Provider{
		repo:    repo,
		breaker: cb,
		logger:  logger.With("component", "data-provider"),
		samples: samples,
	}
}

// Fetch returns a training dataset. Store rows are preferred; an
// unreachable store, a failed query, an open breaker, or a too-small result
// all degrade to synthesis. The returned dataset is always single-origin
// and never empty.
func (p *Provider) Fetch(ctx context.Context) types.Dataset {
	if p.repo == nil {
		p.logger.Info("no historical store configured, using synthetic data")
		return p.Synthesize(p.samples)
	}

	records, err := p.breaker.Execute(func() ([]types.HistoricalRecord, error) {
		return p.repo.FetchVerifiedRecords(ctx)
	})
	if err != nil {
		p.logger.Warn("historical store fetch failed, using synthetic data", "error", err)
		return p.Synthesize(p.samples)
	}
	if len(records) < minStoreRecords {
		p.logger.Warn("historical store returned too few records, using synthetic data",
			"records", len(records), "minimum", minStoreRecords)
		return p.Synthesize(p.samples)
	}

	p.logger.Info("fetched historical records from store", "records", len(records))
	return types.Dataset{Records: records, Origin: types.OriginStore}
}

// Synthesize generates n records with a fixed seed, modeling Sri Lanka
// beach pollution patterns: a monsoon humidity/precipitation boost in
// months 5-9, rain raising the target score, strong wind lowering it.
// The record shape matches store rows closely enough that feature assembly
// is agnostic to origin.
func (p *Provider) Synthesize(n int) types.Dataset {
	p.logger.Info("generating synthetic training samples", "samples", n)
	rng := rand.New(rand.NewPCG(syntheticSeed, syntheticSeed))

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	records := make([]types.HistoricalRecord, n)
	for i := 0; i < n; i++ {
		date := start.AddDate(0, 0, rng.IntN(730))

		monsoon := 1.0
		if isMonsoonMonth(int(date.Month())) {
			monsoon = monsoonScale
		}

		temp := rng.NormFloat64()*3 + 29
		humidity := (rng.NormFloat64()*10 + 75) * monsoon
		windSpeed := uniform(rng, 2, 12)
		precipitation := exponential(rng, 5) * monsoon
		uvIndex := uniform(rng, 6, 12)
		severity := uniform(rng, 10, 80)

		target := severity
		target += precipitation * 0.7
		target -= math.Max(0, windSpeed-5) * 0.4
		target += (humidity - 70) * 0.15
		if isMonsoonMonth(int(date.Month())) {
			target += 10
		}
		target = math.Max(0, math.Min(100, target))

		records[i] = types.HistoricalRecord{
			Date:                date,
			Weight:              uniform(rng, 5, 200),
			SeverityScore:       severity,
			TotalWasteCollected: uniform(rng, 100, 5000),
			TotalCleanups:       float64(1 + rng.IntN(99)),
			Temp:                &temp,
			Humidity:            &humidity,
			WindSpeed:           &windSpeed,
			Precipitation:       &precipitation,
			UVIndex:             &uvIndex,
			TargetScore:         &target,
		}
	}

	return types.Dataset{Records: records, Origin: types.OriginSynthetic}
}

func isMonsoonMonth(month int) bool {
	return month >= monsoonStartMonth && month <= monsoonEndMonth
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

// exponential samples an exponential distribution with the given mean via
// inverse transform.
func exponential(rng *rand.Rand, mean float64) float64 {
	return -mean * math.Log(1-rng.Float64())
}

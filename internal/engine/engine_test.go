package engine

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"ecoshore/internal/artifacts"
	"ecoshore/internal/features"
	"ecoshore/internal/forest"
	"ecoshore/internal/types"
)

func f(v float64) *float64 { return &v }

func newTestEngine(t *testing.T) (*Engine, *artifacts.Store) {
	t.Helper()
	store, err := artifacts.NewStore(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return New(store, nil), store
}

func testBeach() types.Beach {
	return types.Beach{
		ID:            "beach_1",
		Name:          "Galle Face",
		SeverityScore: f(45.2),
	}
}

func testWindow(n int) []types.DailyWeather {
	start := time.Date(2026, 2, 21, 0, 0, 0, 0, time.UTC)
	window := make([]types.DailyWeather, n)
	for i := range window {
		window[i] = types.DailyWeather{
			Date:          start.AddDate(0, 0, i).Format(types.DateLayout),
			Temp:          f(29.5),
			Humidity:      f(80),
			WindSpeed:     f(5.2),
			Precipitation: f(4.1),
			UVIndex:       f(9),
		}
	}
	return window
}

// trainedForest fits a small forest on feature-shaped vectors so the
// artifact has the width the engine feeds it.
func trainedForest(t *testing.T) *forest.Forest {
	t.Helper()
	rng := rand.New(rand.NewPCG(1, 1))
	n := 80
	X := make([][]float64, n)
	y := make([]float64, n)
	day := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		sev := rng.Float64() * 100
		beach := types.Beach{SeverityScore: &sev}
		w := types.DailyWeather{
			Temp:          f(25 + rng.Float64()*10),
			Humidity:      f(60 + rng.Float64()*40),
			WindSpeed:     f(rng.Float64() * 12),
			Precipitation: f(rng.Float64() * 20),
			UVIndex:       f(6 + rng.Float64()*6),
		}
		X[i] = features.Build(beach, w, day.AddDate(0, 0, i))
		y[i] = sev
	}
	model, err := forest.Fit(X, y, forest.Config{NumTrees: 10, MaxDepth: 6, MinLeaf: 3, Seed: 42})
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	return model
}

func TestPredictFallbackMode(t *testing.T) {
	e, _ := newTestEngine(t)

	if e.ModelLoaded() {
		t.Fatal("fresh engine should be in fallback mode")
	}
	if e.Source() != types.SourceRulesBased {
		t.Fatalf("Source = %s, want rules-based", e.Source())
	}

	window := testWindow(7)
	preds, err := e.Predict(testBeach(), window)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if len(preds) != 7 {
		t.Fatalf("got %d predictions, want 7", len(preds))
	}

	// Rules-based decay: base 0.60, floored at 0.50.
	wantConf := []float64{0.60, 0.57, 0.54, 0.51, 0.50, 0.50, 0.50}
	for i, p := range preds {
		if p.Date != window[i].Date {
			t.Errorf("day %d date = %s, want %s", i, p.Date, window[i].Date)
		}
		if p.Source != types.SourceRulesBased {
			t.Errorf("day %d source = %s, want rules-based", i, p.Source)
		}
		if p.Confidence != wantConf[i] {
			t.Errorf("day %d confidence = %v, want %v", i, p.Confidence, wantConf[i])
		}
		if p.RiskScore < 0 || p.RiskScore > 100 {
			t.Errorf("day %d score %v out of range", i, p.RiskScore)
		}
	}
}

func TestPredictModelDecaySequence(t *testing.T) {
	e, store := newTestEngine(t)
	if err := store.Save(artifacts.RegressionModel, trainedForest(t)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	e.LoadModels()

	preds, err := e.Predict(testBeach(), testWindow(7))
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}

	want := []float64{0.85, 0.82, 0.79, 0.76, 0.73, 0.70, 0.67}
	for i, p := range preds {
		if p.Source != types.SourceRandomForest {
			t.Errorf("day %d source = %s, want random-forest", i, p.Source)
		}
		if p.Confidence != want[i] {
			t.Errorf("day %d confidence = %v, want %v", i, p.Confidence, want[i])
		}
	}
}

func TestPredictEmptyWindow(t *testing.T) {
	e, _ := newTestEngine(t)

	preds, err := e.Predict(testBeach(), nil)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if len(preds) != 0 {
		t.Errorf("got %d predictions, want 0", len(preds))
	}
}

func TestPredictTruncatesToSevenDays(t *testing.T) {
	e, _ := newTestEngine(t)

	preds, err := e.Predict(testBeach(), testWindow(10))
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if len(preds) != MaxWindowDays {
		t.Errorf("got %d predictions, want %d", len(preds), MaxWindowDays)
	}
}

func TestPredictBadDateFailsWholeBatch(t *testing.T) {
	e, _ := newTestEngine(t)

	window := testWindow(7)
	window[3].Date = "not-a-date"

	preds, err := e.Predict(testBeach(), window)
	if err == nil {
		t.Fatal("expected batch failure for unparseable date")
	}
	if preds != nil {
		t.Errorf("expected no partial results, got %d", len(preds))
	}

	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected AppError, got %T", err)
	}
	if appErr.Code != types.ErrCodeFeatureExtractionFailed {
		t.Errorf("code = %s, want feature_extraction_failed", appErr.Code)
	}
}

func TestHotReloadSwitchesSource(t *testing.T) {
	e, store := newTestEngine(t)
	e.LoadModels()

	preds, err := e.Predict(testBeach(), testWindow(1))
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if preds[0].Source != types.SourceRulesBased {
		t.Fatalf("pre-reload source = %s, want rules-based", preds[0].Source)
	}

	// A training run persists the artifact, then hot-reloads.
	if err := store.Save(artifacts.RegressionModel, trainedForest(t)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	e.LoadModels()

	if !e.ModelLoaded() {
		t.Fatal("expected loaded state after reload")
	}
	preds, err = e.Predict(testBeach(), testWindow(1))
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if preds[0].Source != types.SourceRandomForest {
		t.Errorf("post-reload source = %s, want random-forest", preds[0].Source)
	}
}

func TestLoadModelsIdempotent(t *testing.T) {
	e, store := newTestEngine(t)
	if err := store.Save(artifacts.RegressionModel, trainedForest(t)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	e.LoadModels()
	first, err := e.Predict(testBeach(), testWindow(7))
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}

	for i := 0; i < 3; i++ {
		e.LoadModels()
		if !e.ModelLoaded() {
			t.Fatalf("reload %d lost model state", i)
		}
		again, err := e.Predict(testBeach(), testWindow(7))
		if err != nil {
			t.Fatalf("Predict after reload %d: %v", i, err)
		}
		for d := range again {
			if again[d].RiskScore != first[d].RiskScore {
				t.Errorf("reload %d day %d score %v, want %v", i, d, again[d].RiskScore, first[d].RiskScore)
			}
		}
	}
}

func TestPredictConcurrentWithReload(t *testing.T) {
	e, store := newTestEngine(t)
	if err := store.Save(artifacts.RegressionModel, trainedForest(t)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	done := make(chan error, 8)
	for g := 0; g < 4; g++ {
		go func() {
			for i := 0; i < 50; i++ {
				if _, err := e.Predict(testBeach(), testWindow(3)); err != nil {
					done <- fmt.Errorf("predict: %w", err)
					return
				}
			}
			done <- nil
		}()
	}
	for g := 0; g < 4; g++ {
		go func() {
			for i := 0; i < 20; i++ {
				e.LoadModels()
			}
			done <- nil
		}()
	}
	for i := 0; i < 8; i++ {
		if err := <-done; err != nil {
			t.Fatal(err)
		}
	}
}

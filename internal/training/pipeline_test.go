package training

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecoshore/internal/artifacts"
	"ecoshore/internal/engine"
	"ecoshore/internal/features"
	"ecoshore/internal/types"
)

func newTestStore(t *testing.T) *artifacts.Store {
	t.Helper()
	store, err := artifacts.NewStore(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store
}

type recordingReloader struct {
	calls int
}

func (r *recordingReloader) LoadModels() { r.calls++ }

func TestRunWithSyntheticData(t *testing.T) {
	store := newTestStore(t)
	reloader := &recordingReloader{}
	p := NewPipeline(NewProvider(nil, 120, nil), store, reloader, nil)

	summary, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, summary.RunID)
	assert.False(t, summary.TrainedAt.IsZero())
	assert.Equal(t, 120, summary.SampleCount)
	assert.Equal(t, types.OriginSynthetic, summary.DataOrigin)
	assert.Equal(t, store.Dir(), summary.ModelsDir)
	assert.GreaterOrEqual(t, summary.RandomForest.MAE, 0.0)

	// Both artifacts persisted: 120 samples over two years comfortably
	// exceed the seasonal model's distinct-day threshold.
	_, err = os.Stat(filepath.Join(store.Dir(), artifacts.RegressionModel))
	assert.NoError(t, err)
	assert.Positive(t, summary.Seasonal.DataPoints)
	_, err = os.Stat(filepath.Join(store.Dir(), artifacts.SeasonalModel))
	assert.NoError(t, err)

	assert.Equal(t, 1, reloader.calls, "successful run must hot-reload exactly once")
}

func TestRunHotReloadsEngine(t *testing.T) {
	store := newTestStore(t)
	eng := engine.New(store, nil)
	eng.LoadModels()
	require.False(t, eng.ModelLoaded())

	p := NewPipeline(NewProvider(nil, 120, nil), store, eng, nil)
	_, err := p.Run(context.Background())
	require.NoError(t, err)

	// The very next prediction must use the freshly trained model.
	require.True(t, eng.ModelLoaded())
	sev := 45.2
	preds, err := eng.Predict(
		types.Beach{SeverityScore: &sev},
		[]types.DailyWeather{{Date: "2026-02-21"}},
	)
	require.NoError(t, err)
	require.Len(t, preds, 1)
	assert.Equal(t, types.SourceRandomForest, preds[0].Source)
}

func TestRunWithStoreData(t *testing.T) {
	store := newTestStore(t)
	reader := &stubReader{records: storeRecords(60)}
	p := NewPipeline(NewProvider(reader, 500, nil), store, nil, nil)

	summary, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, types.OriginStore, summary.DataOrigin)
	assert.Equal(t, 60, summary.SampleCount)
}

func TestRunRecoversFromStoreFailure(t *testing.T) {
	store := newTestStore(t)
	reader := &stubReader{err: errors.New("store down")}
	p := NewPipeline(NewProvider(reader, 120, nil), store, nil, nil)

	summary, err := p.Run(context.Background())
	require.NoError(t, err, "data acquisition failure must be recovered, not surfaced")
	assert.Equal(t, types.OriginSynthetic, summary.DataOrigin)
}

// blockingReader parks Fetch until released, letting tests hold a run open.
type blockingReader struct {
	entered  chan struct{}
	release  chan struct{}
	once     sync.Once
	returned []types.HistoricalRecord
}

func (b *blockingReader) FetchVerifiedRecords(ctx context.Context) ([]types.HistoricalRecord, error) {
	b.once.Do(func() { close(b.entered) })
	<-b.release
	return b.returned, nil
}

func TestRunRejectsOverlappingRuns(t *testing.T) {
	store := newTestStore(t)
	reader := &blockingReader{
		entered:  make(chan struct{}),
		release:  make(chan struct{}),
		returned: storeRecords(60),
	}
	p := NewPipeline(NewProvider(reader, 500, nil), store, nil, nil)

	type result struct {
		summary *types.TrainingSummary
		err     error
	}
	first := make(chan result, 1)
	go func() {
		s, err := p.Run(context.Background())
		first <- result{s, err}
	}()

	// Wait until the first run is inside data acquisition, then trigger a
	// second run.
	<-reader.entered
	_, err := p.Run(context.Background())
	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeTrainingInProgress, appErr.Code)

	close(reader.release)
	r := <-first
	require.NoError(t, r.err)

	// With the first run finished, the pipeline accepts new runs again.
	summary, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, r.summary.RunID, summary.RunID)
}

func TestBuildMatrixStoreTargetProxy(t *testing.T) {
	ds := types.Dataset{Origin: types.OriginStore, Records: storeRecords(3)}
	ds.Records[0].Weight = 25
	ds.Records[1].Weight = 50
	ds.Records[2].Weight = 100

	X, y, err := buildMatrix(ds)
	require.NoError(t, err)
	require.Len(t, X, 3)

	assert.Equal(t, []float64{25, 50, 100}, y, "weight normalized against max weight 100")
}

func TestBuildMatrixBackfillsAbsentColumns(t *testing.T) {
	ds := types.Dataset{Origin: types.OriginStore, Records: storeRecords(2)}

	X, _, err := buildMatrix(ds)
	require.NoError(t, err)

	// Columns: month, dow, temp, humidity, wind, precip, uv, ...
	assert.Equal(t, trainingWeatherDefaults["temp"], X[0][2])
	assert.Equal(t, trainingWeatherDefaults["humidity"], X[0][3])
	assert.Equal(t, trainingWeatherDefaults["wind_speed"], X[0][4])
	assert.Equal(t, trainingWeatherDefaults["precipitation"], X[0][5])
	assert.Equal(t, trainingWeatherDefaults["uv_index"], X[0][6])
}

func TestBuildMatrixMedianFillsPartialColumns(t *testing.T) {
	ds := types.Dataset{Origin: types.OriginStore, Records: storeRecords(4)}
	t1, t2, t3 := 20.0, 30.0, 40.0
	ds.Records[0].Temp = &t1
	ds.Records[1].Temp = &t2
	ds.Records[2].Temp = &t3
	// Records[3].Temp stays nil and takes the column median, 30.

	X, _, err := buildMatrix(ds)
	require.NoError(t, err)
	assert.Equal(t, 30.0, X[3][2])
}

func TestBuildMatrixColumnOrder(t *testing.T) {
	// One record with a distinct sentinel in every slot; a silent column
	// swap anywhere in the row would train the forest on garbage without
	// any runtime error.
	temp, humidity, wind, precip, uv := 61.0, 62.0, 63.0, 64.0, 65.0
	rec := types.HistoricalRecord{
		Date:                time.Date(2026, 2, 21, 0, 0, 0, 0, time.UTC), // Saturday
		Weight:              10,
		SeverityScore:       71,
		TotalWasteCollected: 72,
		TotalCleanups:       73,
		Temp:                &temp,
		Humidity:            &humidity,
		WindSpeed:           &wind,
		Precipitation:       &precip,
		UVIndex:             &uv,
	}
	ds := types.Dataset{Origin: types.OriginStore, Records: []types.HistoricalRecord{rec}}

	X, _, err := buildMatrix(ds)
	require.NoError(t, err)
	require.Len(t, X[0], len(features.Columns))
	assert.Equal(t, []float64{2, 5, 61, 62, 63, 64, 65, 71, 72, 73}, X[0])
}

func TestBuildMatrixCalendarFeatures(t *testing.T) {
	rec := types.HistoricalRecord{
		Date:          time.Date(2026, 2, 21, 0, 0, 0, 0, time.UTC), // Saturday
		Weight:        10,
		SeverityScore: 50,
	}
	ds := types.Dataset{Origin: types.OriginStore, Records: []types.HistoricalRecord{rec}}

	X, _, err := buildMatrix(ds)
	require.NoError(t, err)
	assert.Equal(t, 2.0, X[0][0], "month")
	assert.Equal(t, 5.0, X[0][1], "Monday-indexed day of week")
}

func TestBuildMatrixEmptyDataset(t *testing.T) {
	_, _, err := buildMatrix(types.Dataset{Origin: types.OriginStore})
	assert.ErrorIs(t, err, errEmptyDataset)
}

func TestSplitProportions(t *testing.T) {
	n := 100
	X := make([][]float64, n)
	y := make([]float64, n)
	for i := range X {
		X[i] = []float64{float64(i)}
		y[i] = float64(i)
	}

	trainX, trainY, testX, testY := split(X, y)
	assert.Len(t, trainX, 80)
	assert.Len(t, trainY, 80)
	assert.Len(t, testX, 20)
	assert.Len(t, testY, 20)

	// Deterministic across calls.
	trainX2, _, _, _ := split(X, y)
	assert.Equal(t, trainX, trainX2)
}

func TestSplitTinyDatasetEvaluatesInSample(t *testing.T) {
	X := [][]float64{{1}, {2}, {3}}
	y := []float64{1, 2, 3}

	trainX, _, testX, _ := split(X, y)
	assert.Len(t, trainX, 3)
	assert.Len(t, testX, 3, "no held-out rows: evaluation falls back to in-sample")
}

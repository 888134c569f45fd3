// Package types defines the shared domain types for the EcoShore risk
// service: beach and weather records, prediction outputs, training datasets,
// and the application error taxonomy. It has no dependencies on other
// internal packages so that every layer can import it freely.
package types

import "time"

// DateLayout is the calendar-date format used on the wire for forecast days
// and historical records.
const DateLayout = "2006-01-02"

// RiskLevel is the discrete pollution-risk tier derived from a 0-100 score.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskModerate RiskLevel = "MODERATE"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// ScoreSource identifies which scoring path produced a prediction.
type ScoreSource string

const (
	SourceRandomForest ScoreSource = "random-forest"
	SourceRulesBased   ScoreSource = "rules-based"
)

// Beach carries the aggregate analytics for a beach at prediction time.
// It is a read-only input owned by the upstream store; missing numeric
// fields are substituted with regional defaults during feature building,
// which is why they are pointers rather than zero-valued floats.
type Beach struct {
	ID                  string   `json:"id"`
	Name                string   `json:"name"`
	SeverityScore       *float64 `json:"severityScore" validate:"omitempty,gte=0,lte=100"`
	TotalWasteCollected *float64 `json:"totalWasteCollected" validate:"omitempty,gte=0"`
	TotalCleanups       *int     `json:"totalCleanups" validate:"omitempty,gte=0"`
}

// DailyWeather is a single day of forecast weather. Date is a calendar date
// string (DateLayout); the remaining fields are nullable so that absent
// values can be distinguished from explicit zeros.
type DailyWeather struct {
	Date          string   `json:"date" validate:"required"`
	Temp          *float64 `json:"temp"`
	Humidity      *float64 `json:"humidity"`
	WindSpeed     *float64 `json:"windSpeed"`
	Precipitation *float64 `json:"precipitation"`
	UVIndex       *float64 `json:"uvIndex"`
}

// WeatherSnapshot echoes the raw input weather back in each prediction so
// callers can render the conditions a score was based on.
type WeatherSnapshot struct {
	Temp          *float64 `json:"temp"`
	Humidity      *float64 `json:"humidity"`
	Precipitation *float64 `json:"precipitation"`
	WindSpeed     *float64 `json:"windSpeed"`
}

// DailyPrediction is one day of the prediction window. Never persisted;
// returned to the caller only.
type DailyPrediction struct {
	Date            string          `json:"date"`
	RiskScore       float64         `json:"riskScore"`
	RiskLevel       RiskLevel       `json:"riskLevel"`
	Color           string          `json:"color"`
	Confidence      float64         `json:"confidence"`
	Source          ScoreSource     `json:"source"`
	WeatherSnapshot WeatherSnapshot `json:"weatherSnapshot"`
}

// DatasetOrigin records where a training dataset came from. A dataset is
// always single-origin: the provider never mixes store rows with synthetic
// rows in one run, because their target semantics are not on a guaranteed
// comparable scale.
type DatasetOrigin string

const (
	OriginStore     DatasetOrigin = "store"
	OriginSynthetic DatasetOrigin = "synthetic"
)

// HistoricalRecord is one training observation: a verified waste-collection
// record joined with the beach's aggregate analytics, plus optional weather
// columns and, for synthetic rows, an explicit target score.
type HistoricalRecord struct {
	Date                time.Time
	Weight              float64
	SeverityScore       float64
	TotalWasteCollected float64
	TotalCleanups       float64

	// Weather columns. Present on synthetic rows; usually absent on store
	// rows, in which case the pipeline backfills regional defaults.
	Temp          *float64
	Humidity      *float64
	WindSpeed     *float64
	Precipitation *float64
	UVIndex       *float64

	// TargetScore is set only on synthetic rows. Store rows derive their
	// target from Weight at feature-assembly time.
	TargetScore *float64
}

// Dataset is the unit returned by the data provider to the pipeline.
type Dataset struct {
	Records []HistoricalRecord
	Origin  DatasetOrigin
}

// RegressionMetrics holds the held-out evaluation of the forest model.
type RegressionMetrics struct {
	MAE float64 `json:"mae"`
	R2  float64 `json:"r2"`
}

// SeasonalMetrics describes the optional time-series refinement fit.
// DataPoints is zero when the fit was skipped.
type SeasonalMetrics struct {
	DataPoints int `json:"dataPoints,omitempty"`
}

// TrainingSummary is returned by a successful pipeline run.
type TrainingSummary struct {
	RunID        string            `json:"runId"`
	TrainedAt    time.Time         `json:"trainedAt"`
	SampleCount  int               `json:"sampleCount"`
	DataOrigin   DatasetOrigin     `json:"dataOrigin"`
	RandomForest RegressionMetrics `json:"randomForest"`
	Seasonal     SeasonalMetrics   `json:"seasonal"`
	ModelsDir    string            `json:"modelsDir"`
}

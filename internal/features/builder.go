// Package features maps a beach-state record and a single day's weather
// observation into the fixed-order numeric feature vector consumed by the
// regression model. Training and inference both go through Build, so the
// column order is defined in exactly one place: a training/inference
// mismatch here would silently corrupt predictions with no detectable error.
package features

import (
	"time"

	"ecoshore/internal/types"
)

// Columns is the fixed feature column order the regression forest is
// trained on. Index positions are load-bearing.
var Columns = []string{
	"month",
	"day_of_week",
	"temp",
	"humidity",
	"wind_speed",
	"precipitation",
	"uv_index",
	"severity_score",
	"total_waste_collected",
	"total_cleanups",
}

// Inference-time defaults substituted for missing weather fields. These are
// typical Sri Lanka coastal values; absence of a field is a zero-confidence
// default substitution, not a failure.
const (
	DefaultTemp          = 28.0
	DefaultHumidity      = 75.0
	DefaultWindSpeed     = 4.0
	DefaultPrecipitation = 0.0
	DefaultUVIndex       = 8.0
)

// Defaults substituted for missing beach analytics.
const (
	DefaultSeverityScore       = 30.0
	DefaultTotalWasteCollected = 0.0
	DefaultTotalCleanups       = 0.0
)

// Build converts a beach plus one day of weather into a feature vector in
// Columns order. The date supplies the calendar features: month 1-12 and
// day-of-week 0-6 with Monday=0. Build is total; it never fails.
func Build(beach types.Beach, day types.DailyWeather, date time.Time) []float64 {
	return []float64{
		float64(date.Month()),
		float64(MondayIndexedWeekday(date)),
		orDefault(day.Temp, DefaultTemp),
		orDefault(day.Humidity, DefaultHumidity),
		orDefault(day.WindSpeed, DefaultWindSpeed),
		orDefault(day.Precipitation, DefaultPrecipitation),
		orDefault(day.UVIndex, DefaultUVIndex),
		orDefault(beach.SeverityScore, DefaultSeverityScore),
		orDefault(beach.TotalWasteCollected, DefaultTotalWasteCollected),
		orDefaultInt(beach.TotalCleanups, DefaultTotalCleanups),
	}
}

// MondayIndexedWeekday returns the day of week with Monday=0 .. Sunday=6.
// Go's time.Weekday is Sunday=0, so this shifts the convention to the one
// the model was trained with.
func MondayIndexedWeekday(date time.Time) int {
	return (int(date.Weekday()) + 6) % 7
}

func orDefault(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

func orDefaultInt(v *int, def float64) float64 {
	if v == nil {
		return def
	}
	return float64(*v)
}

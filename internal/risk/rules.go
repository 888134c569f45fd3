package risk

import (
	"ecoshore/internal/features"
	"ecoshore/internal/types"
)

// RulesConfidence is the base confidence of a rules-based score, before
// per-horizon decay.
const RulesConfidence = 0.60

// RulesScore computes the deterministic heuristic pollution score used when
// no trained model is loaded. Physics-inspired shape:
//   - rain drives surface runoff, raising the score, capped at +15
//   - wind above 5 units disperses floating debris, lowering the score
//   - humidity above a 70 baseline nudges the score up (monsoon proxy)
//
// Missing fields take the same regional defaults as feature building.
// Returns the clamped score and RulesConfidence.
func RulesScore(beach types.Beach, day types.DailyWeather) (float64, float64) {
	base := deref(beach.SeverityScore, features.DefaultSeverityScore)
	precipitation := deref(day.Precipitation, features.DefaultPrecipitation)
	windSpeed := deref(day.WindSpeed, features.DefaultWindSpeed)
	humidity := deref(day.Humidity, features.DefaultHumidity)

	rainFactor := min(precipitation*0.8, 15)
	windFactor := max(0, (windSpeed-5)*-0.5)
	humidityFactor := (humidity - 70) * 0.1

	score := Clamp(base + rainFactor + windFactor + humidityFactor)
	return score, RulesConfidence
}

func deref(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

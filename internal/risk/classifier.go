// Package risk contains the pure scoring primitives: the tier classifier
// that maps a 0-100 score onto a discrete risk level, and the rules-based
// heuristic used when no trained model is available.
package risk

import "ecoshore/internal/types"

// Display colors per risk tier, matching the frontend heatmap palette.
var colors = map[types.RiskLevel]string{
	types.RiskLow:      "#22c55e",
	types.RiskModerate: "#eab308",
	types.RiskHigh:     "#f97316",
	types.RiskCritical: "#ef4444",
}

// Classify maps a numeric score onto a risk tier and its display color.
// The score is clamped to [0,100] before comparison. Boundaries are
// closed-open upward: 25 is MODERATE, 75 is CRITICAL.
func Classify(score float64) (types.RiskLevel, string) {
	score = Clamp(score)

	var level types.RiskLevel
	switch {
	case score >= 75:
		level = types.RiskCritical
	case score >= 50:
		level = types.RiskHigh
	case score >= 25:
		level = types.RiskModerate
	default:
		level = types.RiskLow
	}
	return level, colors[level]
}

// Clamp bounds a score to the [0,100] range.
func Clamp(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// Package seasonal implements the optional time-series refinement model: a
// ridge-regularized harmonic regression over daily aggregated waste totals,
// with yearly, weekly, and half-year ("monsoon") seasonal components.
// The fit is best-effort by contract: too little data or a degenerate
// system skips the model without failing the training run.
package seasonal

import (
	"errors"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"
)

// ErrInsufficientData is returned by Fit when fewer than MinDataPoints
// distinct days are available. Callers treat it as a non-fatal skip.
var ErrInsufficientData = errors.New("seasonal: insufficient distinct days to fit")

// MinDataPoints is the minimum number of distinct days required for a fit.
const MinDataPoints = 10

// Seasonal periods in days.
const (
	yearlyPeriod  = 365.25
	weeklyPeriod  = 7.0
	monsoonPeriod = 365.25 / 2
)

// Fourier orders per component. Monsoon gets the highest order because the
// half-year swing is the dominant pattern in the data.
const (
	yearlyOrder  = 3
	weeklyOrder  = 3
	monsoonOrder = 5
)

// ridgeLambda is the L2 penalty on the harmonic coefficients. It keeps the
// normal system positive definite even when the number of observations is
// close to the number of coefficients.
const ridgeLambda = 1.0

// epoch anchors the time axis; any fixed date works as long as fitting and
// prediction share it.
var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Point is one day of aggregated observations.
type Point struct {
	Day   time.Time
	Total float64
}

// Model is a fitted harmonic regression. Fields are exported for gob
// persistence; the model is immutable after Fit.
type Model struct {
	Beta       []float64
	DataPoints int
}

// featureDim is the design-matrix width: intercept plus sin/cos pairs for
// each component order.
const featureDim = 1 + 2*(yearlyOrder+weeklyOrder+monsoonOrder)

// featurize maps a date onto the harmonic feature row.
func featurize(day time.Time) []float64 {
	t := day.Sub(epoch).Hours() / 24

	row := make([]float64, 0, featureDim)
	row = append(row, 1)
	for k := 1; k <= yearlyOrder; k++ {
		omega := 2 * math.Pi * float64(k) * t / yearlyPeriod
		row = append(row, math.Sin(omega), math.Cos(omega))
	}
	for k := 1; k <= weeklyOrder; k++ {
		omega := 2 * math.Pi * float64(k) * t / weeklyPeriod
		row = append(row, math.Sin(omega), math.Cos(omega))
	}
	for k := 1; k <= monsoonOrder; k++ {
		omega := 2 * math.Pi * float64(k) * t / monsoonPeriod
		row = append(row, math.Sin(omega), math.Cos(omega))
	}
	return row
}

// Aggregate collapses raw (date, value) observations into one Point per
// calendar day, summing values, sorted chronologically.
func Aggregate(dates []time.Time, values []float64) []Point {
	totals := make(map[time.Time]float64, len(dates))
	for i, d := range dates {
		day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
		totals[day] += values[i]
	}

	points := make([]Point, 0, len(totals))
	for day, total := range totals {
		points = append(points, Point{Day: day, Total: total})
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].Day.Before(points[j].Day)
	})
	return points
}

// Fit solves the ridge-regularized least squares problem over the given
// daily points. Returns ErrInsufficientData when fewer than MinDataPoints
// days are available.
func Fit(points []Point) (*Model, error) {
	n := len(points)
	if n < MinDataPoints {
		return nil, ErrInsufficientData
	}

	// Normal equations with ridge: (XᵀX + λI) β = Xᵀy.
	// The intercept column is left unpenalized.
	X := mat.NewDense(n, featureDim, nil)
	y := mat.NewVecDense(n, nil)
	for i, p := range points {
		X.SetRow(i, featurize(p.Day))
		y.SetVec(i, p.Total)
	}

	var xtx mat.Dense
	xtx.Mul(X.T(), X)
	for j := 1; j < featureDim; j++ {
		xtx.Set(j, j, xtx.At(j, j)+ridgeLambda)
	}

	var xty mat.VecDense
	xty.MulVec(X.T(), y)

	var beta mat.VecDense
	if err := beta.SolveVec(&xtx, &xty); err != nil {
		return nil, err
	}

	return &Model{
		Beta:       beta.RawVector().Data,
		DataPoints: n,
	}, nil
}

// Predict evaluates the fitted seasonal curve at the given date.
func (m *Model) Predict(day time.Time) float64 {
	row := featurize(day)
	var sum float64
	for i, b := range m.Beta {
		sum += b * row[i]
	}
	return sum
}

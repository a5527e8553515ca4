// Package heuristics holds the numeric building blocks shared by the dimension
// aggregators: clamping, simple statistics, recency decay and correlation.
//
// Everything here is a fixed heuristic. Scores that the dashboard presents as
// "insights" or "predictions" are derived from these formulas, not from a model.
package heuristics

import (
	"math"
	"time"
)

// Clamp limits v to [lo, hi]. NaN maps to lo.
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClampPercent limits v to [0, 100].
func ClampPercent(v float64) float64 {
	return Clamp(v, 0, 100)
}

// ClampCoefficient limits v to [-1, 1].
func ClampCoefficient(v float64) float64 {
	return Clamp(v, -1, 1)
}

// Mean returns the arithmetic mean, or 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// PopulationStdDev returns the population standard deviation, or 0 for an
// empty slice.
func PopulationStdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := Mean(values)
	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(values)))
}

// CoefficientOfVariation returns stddev/mean. The second result is false when
// the mean is zero or there is no data.
func CoefficientOfVariation(values []float64) (float64, bool) {
	mean := Mean(values)
	if len(values) == 0 || mean == 0 {
		return 0, false
	}
	return PopulationStdDev(values) / mean, true
}

// Pearson returns the Pearson correlation coefficient of two equally long
// series, clamped to [-1, 1]. The second result is false when the series are
// too short or one of them has no variance.
func Pearson(xs, ys []float64) (float64, bool) {
	n := len(xs)
	if n < 2 || n != len(ys) {
		return 0, false
	}

	mx, my := Mean(xs), Mean(ys)
	var cov, vx, vy float64
	for i := 0; i < n; i++ {
		dx := xs[i] - mx
		dy := ys[i] - my
		cov += dx * dy
		vx += dx * dx
		vy += dy * dy
	}
	if vx == 0 || vy == 0 {
		return 0, false
	}

	return ClampCoefficient(cov / math.Sqrt(vx*vy)), true
}

// RecencyWeigher weights observations by exponential decay of their age.
//
// The weight of an observation made d days ago is e^(-rate * d). With the
// default rate of 0.1 an observation from a week ago counts about half as much
// as one from today.
type RecencyWeigher struct {
	// rate is the decay rate per day.
	rate float64
}

// DefaultDecayRate is the per-day decay used for predicted focus windows.
const DefaultDecayRate = 0.1

// NewRecencyWeigher creates a weigher with the given per-day decay rate.
func NewRecencyWeigher(rate float64) *RecencyWeigher {
	if rate < 0 {
		rate = 0
	}
	return &RecencyWeigher{rate: rate}
}

// WeightForDays returns e^(-rate * daysAgo). Future observations (negative
// age) are treated as happening now.
func (w *RecencyWeigher) WeightForDays(daysAgo float64) float64 {
	if daysAgo < 0 {
		daysAgo = 0
	}
	return math.Exp(-w.rate * daysAgo)
}

// Weight returns the weight of an observation made at t, seen from now.
func (w *RecencyWeigher) Weight(t, now time.Time) float64 {
	return w.WeightForDays(now.Sub(t).Hours() / 24.0)
}

// StartOfDay returns midnight of t in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DayIndex returns how many calendar days t lies before now (0 = today).
func DayIndex(t, now time.Time) int {
	t = t.In(now.Location())
	return int(math.Round(StartOfDay(now).Sub(StartOfDay(t)).Hours() / 24.0))
}

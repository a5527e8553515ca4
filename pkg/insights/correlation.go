// Package insights models metric correlations shown on the dashboard and
// computes them from stored records.
//
// Correlations are either loaded from stored correlation_insight records or,
// when none exist, filled from a fixed fallback list. Both paths are heuristic.
package insights

import (
	"fmt"
	"math"
	"sort"

	"github.com/cosmoos/cosmo-go/pkg/heuristics"
	"github.com/cosmoos/cosmo-go/pkg/models"
	"github.com/cosmoos/cosmo-go/pkg/storage"
)

// Strength is a qualitative bucket for the magnitude of a coefficient.
type Strength string

const (
	StrengthWeak       Strength = "weak"
	StrengthModerate   Strength = "moderate"
	StrengthStrong     Strength = "strong"
	StrengthVeryStrong Strength = "veryStrong"
)

// StrengthFor buckets |r|: >=0.85 very strong, >=0.70 strong, >=0.50
// moderate, otherwise weak.
func StrengthFor(r float64) Strength {
	a := math.Abs(r)
	switch {
	case a >= 0.85:
		return StrengthVeryStrong
	case a >= 0.70:
		return StrengthStrong
	case a >= 0.50:
		return StrengthModerate
	default:
		return StrengthWeak
	}
}

// Correlation is a pair of named metrics with a coefficient in [-1, 1].
type Correlation struct {
	MetricA     string   `json:"metric_a"`
	MetricB     string   `json:"metric_b"`
	Coefficient float64  `json:"coefficient"`
	Strength    Strength `json:"strength"`
	Insight     string   `json:"insight"`
}

// NewCorrelation clamps r and derives the strength bucket.
func NewCorrelation(metricA, metricB string, r float64, insight string) Correlation {
	r = heuristics.ClampCoefficient(r)
	return Correlation{
		MetricA:     metricA,
		MetricB:     metricB,
		Coefficient: r,
		Strength:    StrengthFor(r),
		Insight:     insight,
	}
}

// IsPositive reports whether the metrics move together.
func (c Correlation) IsPositive() bool {
	return c.Coefficient >= 0
}

// Fallback returns the fixed correlations shown before any have been computed.
// These are illustrative defaults, not measurements.
func Fallback() []Correlation {
	return []Correlation{
		NewCorrelation(MetricSleepHours, MetricFocusQuality, 0.78,
			"Nights with more sleep tend to be followed by higher-quality focus sessions."),
		NewCorrelation(MetricDeepWorkMinutes, MetricMood, 0.62,
			"Days with more deep work tend to end with a better mood."),
		NewCorrelation(MetricFocusQuality, MetricMood, 0.54,
			"Focused days and good moods tend to show up together."),
	}
}

// FromRecords decodes stored correlation_insight records.
func FromRecords(records []*storage.Record) []Correlation {
	stored := models.DecodeAll[models.CorrelationInsight](records)
	out := make([]Correlation, 0, len(stored))
	for _, s := range stored {
		if s.MetricA == "" || s.MetricB == "" {
			continue
		}
		out = append(out, NewCorrelation(s.MetricA, s.MetricB, s.Coefficient, s.Insight))
	}
	return out
}

// Top returns the n correlations with the largest |r|, strongest first.
func Top(correlations []Correlation, n int) []Correlation {
	sorted := make([]Correlation, len(correlations))
	copy(sorted, correlations)
	sort.SliceStable(sorted, func(i, j int) bool {
		return math.Abs(sorted[i].Coefficient) > math.Abs(sorted[j].Coefficient)
	})
	if n >= 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// LoadOrFallback returns the top n stored correlations, or the top n of the
// fallback list when none are stored.
func LoadOrFallback(records []*storage.Record, n int) []Correlation {
	stored := FromRecords(records)
	if len(stored) == 0 {
		return Top(Fallback(), n)
	}
	return Top(stored, n)
}

// Describe writes a one-line insight for a computed coefficient.
func Describe(metricA, metricB string, r float64) string {
	strength := StrengthFor(r)
	if strength == StrengthWeak {
		return fmt.Sprintf("No clear link between %s and %s yet.", metricA, metricB)
	}
	direction := "higher"
	if r < 0 {
		direction = "lower"
	}
	return fmt.Sprintf("Higher %s tends to come with %s %s (%s, r=%.2f).",
		metricA, direction, metricB, strength, r)
}

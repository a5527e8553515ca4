package heuristics_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cosmoos/cosmo-go/pkg/heuristics"
)

func TestClamp(t *testing.T) {
	tests := []struct {
		name     string
		v        float64
		expected float64
	}{
		{"below", -5, 0},
		{"inside", 42, 42},
		{"above", 250, 100},
		{"nan", math.NaN(), 0},
		{"+inf", math.Inf(1), 100},
		{"-inf", math.Inf(-1), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, heuristics.ClampPercent(tt.v))
		})
	}

	assert.Equal(t, -1.0, heuristics.ClampCoefficient(-3))
	assert.Equal(t, 1.0, heuristics.ClampCoefficient(1.0000001))
}

func TestMeanAndStdDev(t *testing.T) {
	assert.Equal(t, 0.0, heuristics.Mean(nil))
	assert.Equal(t, 0.0, heuristics.PopulationStdDev(nil))
	assert.Equal(t, 2.5, heuristics.Mean([]float64{1, 2, 3, 4}))
	assert.InDelta(t, 2.0, heuristics.PopulationStdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9}), 1e-9)
}

func TestCoefficientOfVariation(t *testing.T) {
	_, ok := heuristics.CoefficientOfVariation(nil)
	assert.False(t, ok)

	_, ok = heuristics.CoefficientOfVariation([]float64{0, 0, 0})
	assert.False(t, ok)

	cv, ok := heuristics.CoefficientOfVariation([]float64{60, 60, 60})
	assert.True(t, ok)
	assert.Equal(t, 0.0, cv)
}

func TestPearson(t *testing.T) {
	r, ok := heuristics.Pearson([]float64{1, 2, 3, 4, 5}, []float64{2, 4, 6, 8, 10})
	assert.True(t, ok)
	assert.InDelta(t, 1.0, r, 1e-9)

	r, ok = heuristics.Pearson([]float64{1, 2, 3, 4, 5}, []float64{5, 4, 3, 2, 1})
	assert.True(t, ok)
	assert.InDelta(t, -1.0, r, 1e-9)

	_, ok = heuristics.Pearson([]float64{1, 1, 1}, []float64{1, 2, 3})
	assert.False(t, ok, "no variance")

	_, ok = heuristics.Pearson([]float64{1, 2}, []float64{1})
	assert.False(t, ok, "length mismatch")
}

func TestRecencyWeigher(t *testing.T) {
	w := heuristics.NewRecencyWeigher(0.1)

	assert.Equal(t, 1.0, w.WeightForDays(0))
	assert.Equal(t, 1.0, w.WeightForDays(-2))
	assert.InDelta(t, math.Exp(-0.7), w.WeightForDays(7), 1e-12)
	assert.Greater(t, w.WeightForDays(1), w.WeightForDays(2))

	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	assert.InDelta(t, math.Exp(-0.1), w.Weight(now.Add(-24*time.Hour), now), 1e-12)

	flat := heuristics.NewRecencyWeigher(-1)
	assert.Equal(t, 1.0, flat.WeightForDays(30))
}

func TestDayIndex(t *testing.T) {
	now := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)

	assert.Equal(t, 0, heuristics.DayIndex(now.Add(-7*time.Hour), now))
	assert.Equal(t, 1, heuristics.DayIndex(now.Add(-9*time.Hour), now))
	assert.Equal(t, 6, heuristics.DayIndex(now.AddDate(0, 0, -6), now))
	assert.Equal(t, -1, heuristics.DayIndex(now.AddDate(0, 0, 1), now))
	assert.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), heuristics.StartOfDay(now))
}

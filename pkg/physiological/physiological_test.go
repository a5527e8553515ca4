package physiological_test

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cosmoos/cosmo-go/pkg/health"
	"github.com/cosmoos/cosmo-go/pkg/logging"
	"github.com/cosmoos/cosmo-go/pkg/models"
	"github.com/cosmoos/cosmo-go/pkg/physiological"
	"github.com/cosmoos/cosmo-go/pkg/storage/storagetest"
)

var now = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func TestRecoveryScore(t *testing.T) {
	assert.InDelta(t, 92.5, physiological.RecoveryScore(8, 90, 60, true), 1e-9)
	assert.InDelta(t, 80.0, physiological.RecoveryScore(8, 90, 0, false), 1e-9)
	assert.InDelta(t, 27.5, physiological.RecoveryScore(0, 0, 0, false), 1e-9)

	inputs := []float64{-1e9, -5, 0, 3, 60, 250, 1e9, math.NaN()}
	for _, h := range inputs {
		for _, e := range inputs {
			for _, hrv := range inputs {
				for _, has := range []bool{true, false} {
					r := physiological.RecoveryScore(h, e, hrv, has)
					assert.GreaterOrEqual(t, r, 0.0)
					assert.LessOrEqual(t, r, 100.0)
				}
			}
		}
	}
}

func TestReadinessScore(t *testing.T) {
	tests := []struct {
		name     string
		recovery float64
		hrv      float64
		rhr      float64
		expected float64
	}{
		{"top bonuses", 92.5, 60, 50, 90.5},
		{"mid bonuses", 50, 42, 60, 55},
		{"low bonuses", 50, 31, 70, 45},
		{"weak hrv high rhr", 50, 10, 80, 35},
		{"no data", 50, 0, 0, 30},
		{"clamped", 1e6, 100, 40, 95},
		{"negative", -1e6, -5, -5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, physiological.ReadinessScore(tt.recovery, tt.hrv, tt.rhr), 1e-9)
		})
	}
}

func TestStressAndCortisol(t *testing.T) {
	assert.Equal(t, 50.0, physiological.StressLevel(0, false))
	assert.Equal(t, 0.0, physiological.StressLevel(80, true))
	assert.Equal(t, 0.0, physiological.StressLevel(200, true))
	assert.Equal(t, 100.0, physiological.StressLevel(-10, true))
	assert.Equal(t, 50.0, physiological.StressLevel(40, true))

	assert.Equal(t, physiological.CortisolLow, physiological.CortisolFor(24.9))
	assert.Equal(t, physiological.CortisolNormal, physiological.CortisolFor(25))
	assert.Equal(t, physiological.CortisolElevated, physiological.CortisolFor(50))
	assert.Equal(t, physiological.CortisolHigh, physiological.CortisolFor(75))
}

func TestSleepScore(t *testing.T) {
	assert.InDelta(t, 92.0, physiological.SleepScore(8, 90, 60, 90), 1e-9)
	assert.InDelta(t, 100.0, physiological.SleepScore(10, 100, 200, 200), 1e-9)
	assert.Equal(t, 0.0, physiological.SleepScore(-1, -1, -1, -1))
}

func TestStrainFor(t *testing.T) {
	hour := func(kcal float64) models.Workout {
		return models.Workout{Type: models.WorkoutRunning, DurationMinutes: 60, EnergyKcal: kcal}
	}
	assert.Equal(t, physiological.StrainHigh, physiological.StrainFor(hour(600)))
	assert.Equal(t, physiological.StrainModerate, physiological.StrainFor(hour(360)))
	assert.Equal(t, physiological.StrainLow, physiological.StrainFor(hour(120)))
	assert.Equal(t, physiological.StrainLow, physiological.StrainFor(models.Workout{}))

	explicit := hour(120)
	explicit.Strain = "HIGH"
	assert.Equal(t, physiological.StrainHigh, physiological.StrainFor(explicit))

	derived := models.Workout{Start: now.Add(-time.Hour), End: now, EnergyKcal: 700}
	assert.Equal(t, physiological.StrainHigh, physiological.StrainFor(derived))
}

func TestRecoveryPercent_Monotone(t *testing.T) {
	for _, constant := range []float64{24, 48, 72} {
		prev := -1.0
		for h := -10.0; h <= 100; h += 0.5 {
			pct := physiological.RecoveryPercent(h, constant)
			assert.GreaterOrEqual(t, pct, prev)
			assert.LessOrEqual(t, pct, 100.0)
			prev = pct
		}
		assert.Equal(t, 100.0, physiological.RecoveryPercent(constant, constant))
	}
	assert.Equal(t, 0.0, physiological.RecoveryPercent(-3, 24))
}

func TestMuscleRecoveryFor(t *testing.T) {
	workouts := []models.Workout{
		{
			Type: models.WorkoutStrength, Start: now.Add(-25 * time.Hour), End: now.Add(-24 * time.Hour),
			DurationMinutes: 60, EnergyKcal: 300,
		},
		{
			Type: models.WorkoutRunning, Start: now.Add(-37 * time.Hour), End: now.Add(-36 * time.Hour),
			DurationMinutes: 60, EnergyKcal: 700,
		},
	}

	groups := physiological.MuscleRecoveryFor(workouts, now)
	require.Len(t, groups, len(physiological.AllMuscleGroups))

	byGroup := map[physiological.MuscleGroup]physiological.MuscleRecovery{}
	for _, g := range groups {
		byGroup[g.Group] = g
	}

	assert.Equal(t, 100.0, byGroup[physiological.MuscleChest].RecoveryPercent)
	assert.Equal(t, 24.0, byGroup[physiological.MuscleChest].RecoveryHours)
	assert.InDelta(t, 50.0, byGroup[physiological.MuscleQuads].RecoveryPercent, 1e-9)
	assert.Equal(t, 72.0, byGroup[physiological.MuscleQuads].RecoveryHours)
	assert.Equal(t, "recovering", byGroup[physiological.MuscleQuads].Status)
	assert.Equal(t, 100.0, byGroup[physiological.MuscleBack].RecoveryPercent)
	assert.Nil(t, byGroup[physiological.MuscleBack].LastWorked)
}

func TestBuild(t *testing.T) {
	data := physiological.Build(physiological.Input{
		Tier: health.TierFull,
		Sleep: &models.SleepSession{
			InBedMinutes: 533, AsleepMinutes: 480, DeepMinutes: 60, REMMinutes: 90,
		},
		HRV:       &health.Measurement{Value: 60},
		RestingHR: &health.Measurement{Value: 50},
		Activity:  &health.Activity{Steps: 8000},
	}, now)

	assert.True(t, data.Connected)
	assert.Equal(t, 8.0, data.SleepHours)
	assert.True(t, data.HasHRV)
	assert.Equal(t, "8h 0m", data.FormattedSleep)
	assert.Equal(t, 8000.0, data.Steps)
	assert.GreaterOrEqual(t, data.RecoveryScore, 0.0)
	assert.LessOrEqual(t, data.RecoveryScore, 100.0)
	assert.Equal(t, physiological.ReadinessLabelFor(data.ReadinessScore), data.ReadinessLabel)
	assert.Equal(t, physiological.CortisolNormal, data.CortisolLevel)
	assert.NotNil(t, data.HRVTrend)
	assert.NotNil(t, data.RecentWorkouts)
	assert.Len(t, data.MuscleGroups, len(physiological.AllMuscleGroups))
}

func TestAggregator_Denied(t *testing.T) {
	source := health.NewRecordSource(storagetest.NewMemoryStore(), health.WithSourceLogger(logging.Discard()))
	agg := physiological.NewAggregator(source, physiological.WithLogger(logging.Discard()))

	data, err := agg.Refresh(context.Background())
	require.NoError(t, err)
	assert.False(t, data.Connected)
	assert.Equal(t, health.TierNone, data.Tier)
	assert.Equal(t, 0.0, data.RecoveryScore)
}

func TestAggregator_Refresh(t *testing.T) {
	store := storagetest.NewMemoryStore()
	_, err := health.Import(context.Background(), store, &health.Export{
		Authorization: &models.HealthAuthorization{Granted: true, Tier: "full"},
		Samples: []models.HealthSample{
			{Kind: models.SampleHRV, Value: 55, StartAt: now.Add(-2 * time.Hour)},
			{Kind: models.SampleRestingHeartRate, Value: 58, StartAt: now.Add(-2 * time.Hour)},
			{Kind: models.SampleSteps, Value: 1200, StartAt: now.Add(-3 * time.Hour)},
		},
		Sleep: []models.SleepSession{{
			Start: now.Add(-12 * time.Hour), End: now.Add(-4 * time.Hour),
			InBedMinutes: 480, AsleepMinutes: 450, DeepMinutes: 70, REMMinutes: 100,
		}},
		Workouts: []models.Workout{{
			ID: "w1", Type: models.WorkoutCycling,
			Start: now.Add(-26 * time.Hour), End: now.Add(-25 * time.Hour),
			DurationMinutes: 60, EnergyKcal: 400,
		}},
	})
	require.NoError(t, err)

	clock := func() time.Time { return now }
	source := health.NewRecordSource(store, health.WithSourceClock(clock), health.WithSourceLogger(logging.Discard()))
	agg := physiological.NewAggregator(source, physiological.WithClock(clock), physiological.WithLogger(logging.Discard()))

	data, err := agg.Refresh(context.Background())
	require.NoError(t, err)
	assert.True(t, data.Connected)
	assert.Equal(t, health.TierFull, data.Tier)
	assert.Equal(t, 55.0, data.HRV)
	assert.Equal(t, 58.0, data.RestingHeartRate)
	assert.Equal(t, 7.5, data.SleepHours)
	assert.Equal(t, 1200.0, data.Steps)
	require.Len(t, data.RecentWorkouts, 1)
	assert.Len(t, data.HourlyActivity, 13)
}

func TestAggregator_ActivityTierSkipsVitalsAndSleep(t *testing.T) {
	store := storagetest.NewMemoryStore()
	_, err := health.Import(context.Background(), store, &health.Export{
		Authorization: &models.HealthAuthorization{Granted: true, Tier: "activity"},
		Samples: []models.HealthSample{
			{Kind: models.SampleHRV, Value: 55, StartAt: now.Add(-2 * time.Hour)},
			{Kind: models.SampleRestingHeartRate, Value: 58, StartAt: now.Add(-2 * time.Hour)},
			{Kind: models.SampleSteps, Value: 1200, StartAt: now.Add(-3 * time.Hour)},
		},
		Sleep: []models.SleepSession{{
			Start: now.Add(-12 * time.Hour), End: now.Add(-4 * time.Hour),
			InBedMinutes: 480, AsleepMinutes: 450,
		}},
	})
	require.NoError(t, err)

	clock := func() time.Time { return now }
	source := health.NewRecordSource(store, health.WithSourceClock(clock), health.WithSourceLogger(logging.Discard()))
	agg := physiological.NewAggregator(source, physiological.WithClock(clock), physiological.WithLogger(logging.Discard()))

	data, err := agg.Refresh(context.Background())
	require.NoError(t, err)
	assert.True(t, data.Connected)
	assert.Equal(t, health.TierActivity, data.Tier)
	assert.Equal(t, 1200.0, data.Steps)
	assert.Equal(t, 0.0, data.HRV)
	assert.Equal(t, 0.0, data.RestingHeartRate)
	assert.Equal(t, 0.0, data.SleepHours)
	assert.Empty(t, data.HRVTrend)
}

func TestAggregator_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	source := health.NewRecordSource(storagetest.NewMemoryStore(),
		health.WithAuthorization(true, health.TierFull),
		health.WithSourceLogger(logging.Discard()),
	)
	agg := physiological.NewAggregator(source, physiological.WithLogger(logging.Discard()))
	_, err := agg.Refresh(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

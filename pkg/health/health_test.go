package health_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cosmoos/cosmo-go/pkg/health"
	"github.com/cosmoos/cosmo-go/pkg/logging"
	"github.com/cosmoos/cosmo-go/pkg/models"
	"github.com/cosmoos/cosmo-go/pkg/storage"
	"github.com/cosmoos/cosmo-go/pkg/storage/storagetest"
)

var now = time.Date(2024, 3, 10, 14, 30, 0, 0, time.UTC)

func newSource(store storage.RecordStore, opts ...health.RecordSourceOption) *health.RecordSource {
	opts = append([]health.RecordSourceOption{
		health.WithSourceClock(func() time.Time { return now }),
		health.WithSourceLogger(logging.Discard()),
	}, opts...)
	return health.NewRecordSource(store, opts...)
}

func TestParseTier(t *testing.T) {
	assert.Equal(t, health.TierFull, health.ParseTier("full"))
	assert.Equal(t, health.TierActivity, health.ParseTier("activity"))
	assert.Equal(t, health.TierNone, health.ParseTier("none"))
	assert.Equal(t, health.TierNone, health.ParseTier("bogus"))
}

func TestRequestAuthorization(t *testing.T) {
	ctx := context.Background()

	granted, tier := newSource(storagetest.NewMemoryStore()).RequestAuthorization(ctx)
	assert.False(t, granted)
	assert.Equal(t, health.TierNone, tier)

	granted, tier = newSource(storagetest.NewMemoryStore(), health.WithAuthorization(true, health.TierActivity)).RequestAuthorization(ctx)
	assert.True(t, granted)
	assert.Equal(t, health.TierActivity, tier)

	granted, _ = newSource(storagetest.NewMemoryStore(), health.WithAuthorization(true, health.TierNone)).RequestAuthorization(ctx)
	assert.False(t, granted)

	// a stored answer wins over the configured fallback
	store := storagetest.NewMemoryStore()
	_, err := health.Import(ctx, store, &health.Export{
		Authorization: &models.HealthAuthorization{Granted: false, Tier: "full"},
	})
	require.NoError(t, err)
	granted, _ = newSource(store, health.WithAuthorization(true, health.TierFull)).RequestAuthorization(ctx)
	assert.False(t, granted)
}

func TestRecordSource_Fetches(t *testing.T) {
	ctx := context.Background()
	store := storagetest.NewMemoryStore()

	result, err := health.Import(ctx, store, &health.Export{
		Samples: []models.HealthSample{
			{Kind: models.SampleHRV, Value: 40, StartAt: now.AddDate(0, 0, -2)},
			{Kind: models.SampleHRV, Value: 50, StartAt: now.Add(-3 * time.Hour)},
			{Kind: models.SampleHRV, Value: 60, StartAt: now.Add(-1 * time.Hour)},
			{Kind: models.SampleSteps, Value: 500, StartAt: now.Add(-5 * time.Hour)},
			{Kind: models.SampleSteps, Value: 700, StartAt: now.Add(-5*time.Hour + 10*time.Minute)},
			{Kind: models.SampleActiveEnergy, Value: 320, StartAt: now.Add(-2 * time.Hour)},
			{Kind: models.SampleSteps, Value: 9000, StartAt: now.AddDate(0, 0, -1)},
		},
		Sleep: []models.SleepSession{
			{Start: now.AddDate(0, 0, -2).Add(-10 * time.Hour), End: now.AddDate(0, 0, -2).Add(-2 * time.Hour), AsleepMinutes: 360, InBedMinutes: 400},
			{Start: now.Add(-16 * time.Hour), End: now.Add(-8 * time.Hour), AsleepMinutes: 420, InBedMinutes: 450},
		},
		Workouts: []models.Workout{
			{ID: "w", Type: models.WorkoutYoga, Start: now.AddDate(0, 0, -3), DurationMinutes: 45},
			{ID: "w", Type: models.WorkoutYoga, Start: now.AddDate(0, 0, -10), DurationMinutes: 45},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 7, result.Samples)
	assert.Equal(t, 2, result.Sleep)
	assert.Equal(t, 2, result.Workouts, "workouts are keyed by type and start")

	src := newSource(store)

	hrv := src.LatestHRV(ctx)
	require.NotNil(t, hrv)
	assert.Equal(t, 60.0, hrv.Value)
	assert.Nil(t, src.RestingHeartRate(ctx))

	activity := src.TodayActivity(ctx)
	require.NotNil(t, activity)
	assert.Equal(t, 1200.0, activity.Steps)
	assert.Equal(t, 320.0, activity.ActiveEnergyKcal)

	sleep := src.LastNightSleep(ctx)
	require.NotNil(t, sleep)
	assert.Equal(t, 7.0, sleep.Hours())

	trend := src.HRVTrend(ctx, 7)
	require.Len(t, trend, 2)
	assert.Equal(t, 40.0, trend[0].Value)
	assert.Equal(t, 55.0, trend[1].Value)

	sleepTrend := src.SleepTrend(ctx, 7)
	require.Len(t, sleepTrend, 2)
	assert.Equal(t, 6.0, sleepTrend[0].Value)

	workouts := src.RecentWorkouts(ctx, 7)
	require.Len(t, workouts, 1)

	hourly := src.HourlyActivity(ctx)
	require.Len(t, hourly, 15)
	assert.Equal(t, 1200.0, hourly[9].Steps)
}

func TestImport_Idempotent(t *testing.T) {
	ctx := context.Background()
	store := storagetest.NewMemoryStore()
	export := &health.Export{
		Samples: []models.HealthSample{
			{Kind: models.SampleSteps, Value: 5000, StartAt: now.Add(-4 * time.Hour)},
		},
		Sleep: []models.SleepSession{
			{Start: now.Add(-16 * time.Hour), End: now.Add(-8 * time.Hour), AsleepMinutes: 420, InBedMinutes: 450},
		},
		Workouts: []models.Workout{
			{ID: "w1", Type: models.WorkoutRunning, Start: now.AddDate(0, 0, -1), DurationMinutes: 30},
		},
	}

	for i := 0; i < 2; i++ {
		result, err := health.Import(ctx, store, export)
		require.NoError(t, err)
		assert.Equal(t, 1, result.Samples)
	}
	assert.Equal(t, 3, store.Len(), "one record per imported item")

	src := newSource(store)
	activity := src.TodayActivity(ctx)
	require.NotNil(t, activity)
	assert.Equal(t, 5000.0, activity.Steps)

	sleepTrend := src.SleepTrend(ctx, 7)
	require.Len(t, sleepTrend, 1)
	assert.Equal(t, 7.0, sleepTrend[0].Value)
	assert.Len(t, src.RecentWorkouts(ctx, 7), 1)

	// a corrected value replaces the earlier import
	export.Samples[0].Value = 5200
	_, err := health.Import(ctx, store, export)
	require.NoError(t, err)
	assert.Equal(t, 5200.0, src.TodayActivity(ctx).Steps)
}

func TestRecordSource_StoreFailure(t *testing.T) {
	src := newSource(storagetest.FailingStore{}, health.WithAuthorization(true, health.TierFull))
	ctx := context.Background()

	granted, tier := src.RequestAuthorization(ctx)
	assert.True(t, granted, "falls back to configured authorization")
	assert.Equal(t, health.TierFull, tier)
	assert.Nil(t, src.TodayActivity(ctx))
	assert.Nil(t, src.LastNightSleep(ctx))
	assert.Empty(t, src.HRVTrend(ctx, 7))
	assert.Empty(t, src.RecentWorkouts(ctx, 7))
}

func TestDecodeExport(t *testing.T) {
	export, err := health.DecodeExport(strings.NewReader(`{
		"authorization": {"granted": true, "tier": "activity"},
		"samples": [{"kind": "steps", "value": 42, "start_at": "2024-03-10T09:00:00Z", "end_at": "2024-03-10T09:10:00Z"}],
		"workouts": [{"id": "w1", "type": "running", "start": "2024-03-09T07:00:00Z", "end": "2024-03-09T07:40:00Z", "energy_kcal": 420}]
	}`))
	require.NoError(t, err)
	require.NotNil(t, export.Authorization)
	assert.Equal(t, "activity", export.Authorization.Tier)
	require.Len(t, export.Samples, 1)
	assert.Equal(t, models.SampleSteps, export.Samples[0].Kind)
	require.Len(t, export.Workouts, 1)
	assert.Equal(t, models.WorkoutRunning, export.Workouts[0].Type)

	_, err = health.DecodeExport(strings.NewReader("{"))
	assert.Error(t, err)
}

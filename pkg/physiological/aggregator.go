package physiological

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/cosmoos/cosmo-go/pkg/health"
	"github.com/cosmoos/cosmo-go/pkg/logging"
	"github.com/cosmoos/cosmo-go/pkg/models"
)

// TrendDays is the length of the HRV and sleep trends.
const TrendDays = 7

// WorkoutLookbackDays bounds how far back workouts feed muscle recovery.
const WorkoutLookbackDays = 7

// Aggregator builds Physiological snapshots from a health source.
type Aggregator struct {
	source health.Source
	logger *logrus.Entry
	now    func() time.Time
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithClock overrides the clock.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// WithLogger sets the logger.
func WithLogger(logger *logrus.Logger) Option {
	return func(a *Aggregator) { a.logger = logging.ForDimension(logger, "physiological") }
}

// NewAggregator creates a Physiological aggregator.
func NewAggregator(source health.Source, opts ...Option) *Aggregator {
	a := &Aggregator{
		source: source,
		logger: logging.ForDimension(nil, "physiological"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Refresh requests authorization and, when granted, fetches the series the
// tier allows concurrently and builds a snapshot. The activity tier gets
// steps, energy and workouts only. Denied access yields Empty(). The only
// error returned is the context's.
func (a *Aggregator) Refresh(ctx context.Context) (*DimensionData, error) {
	if a.source == nil {
		return Empty(), nil
	}

	granted, tier := a.source.RequestAuthorization(ctx)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !granted || tier == health.TierNone {
		a.logger.WithField("tier", tier).Info("health access not granted, returning empty snapshot")
		return Empty(), nil
	}

	in := Input{Tier: tier}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { in.Activity = a.source.TodayActivity(gctx); return nil })
	g.Go(func() error { in.Workouts = a.source.RecentWorkouts(gctx, WorkoutLookbackDays); return nil })
	g.Go(func() error { in.HourlyActivity = a.source.HourlyActivity(gctx); return nil })
	// vitals and sleep need the full tier
	if tier == health.TierFull {
		g.Go(func() error { in.Sleep = a.source.LastNightSleep(gctx); return nil })
		g.Go(func() error { in.HRV = a.source.LatestHRV(gctx); return nil })
		g.Go(func() error { in.RestingHR = a.source.RestingHeartRate(gctx); return nil })
		g.Go(func() error { in.Respiratory = a.source.RespiratoryRate(gctx); return nil })
		g.Go(func() error { in.HRVTrend = a.source.HRVTrend(gctx, TrendDays); return nil })
		g.Go(func() error { in.SleepTrend = a.source.SleepTrend(gctx, TrendDays); return nil })
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data := Build(in, a.now())
	a.logger.WithFields(logrus.Fields{
		"recovery":  data.RecoveryScore,
		"readiness": data.ReadinessScore,
	}).Debug("physiological snapshot refreshed")

	return data, nil
}

// Build computes a connected snapshot from fetched input.
func Build(in Input, now time.Time) *DimensionData {
	data := &DimensionData{
		Connected:   true,
		Tier:        in.Tier,
		GeneratedAt: now,
	}

	if in.Sleep != nil {
		data.SleepHours = in.Sleep.Hours()
		data.SleepEfficiency = in.Sleep.Efficiency()
		data.DeepSleepMinutes = in.Sleep.DeepMinutes
		data.REMSleepMinutes = in.Sleep.REMMinutes
		data.CoreSleepMinutes = in.Sleep.CoreMinutes
		data.AwakeMinutes = in.Sleep.AwakeMinutes
	}
	if in.HRV != nil {
		data.HRV = in.HRV.Value
		data.HasHRV = true
	}
	if in.RestingHR != nil {
		data.RestingHeartRate = in.RestingHR.Value
	}
	if in.Respiratory != nil {
		data.RespiratoryRate = in.Respiratory.Value
	}
	if in.Activity != nil {
		data.Steps = in.Activity.Steps
		data.ActiveEnergyKcal = in.Activity.ActiveEnergyKcal
		data.ExerciseMinutes = in.Activity.ExerciseMinutes
	}

	data.RecoveryScore = RecoveryScore(data.SleepHours, data.SleepEfficiency, data.HRV, data.HasHRV)
	data.ReadinessScore = ReadinessScore(data.RecoveryScore, data.HRV, data.RestingHeartRate)
	data.SleepScore = SleepScore(data.SleepHours, data.SleepEfficiency, data.DeepSleepMinutes, data.REMSleepMinutes)
	data.StressLevel = StressLevel(data.HRV, data.HasHRV)
	data.CortisolLevel = CortisolFor(data.StressLevel)

	data.HRVTrend = orEmpty(in.HRVTrend)
	data.SleepTrend = orEmpty(in.SleepTrend)
	data.HourlyActivity = in.HourlyActivity
	if data.HourlyActivity == nil {
		data.HourlyActivity = []health.HourlyBucket{}
	}
	data.RecentWorkouts = in.Workouts
	if data.RecentWorkouts == nil {
		data.RecentWorkouts = []models.Workout{}
	}
	data.MuscleGroups = MuscleRecoveryFor(in.Workouts, now)

	data.FormattedSleep = formatHours(data.SleepHours)
	data.ReadinessLabel = ReadinessLabelFor(data.ReadinessScore)

	return data
}

func orEmpty(values []health.DailyValue) []health.DailyValue {
	if values == nil {
		return []health.DailyValue{}
	}
	return values
}

func formatHours(hours float64) string {
	total := int(hours*60 + 0.5)
	return fmt.Sprintf("%dh %dm", total/60, total%60)
}

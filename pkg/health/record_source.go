package health

import (
	"context"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cosmoos/cosmo-go/pkg/heuristics"
	"github.com/cosmoos/cosmo-go/pkg/logging"
	"github.com/cosmoos/cosmo-go/pkg/models"
	"github.com/cosmoos/cosmo-go/pkg/storage"
)

// RecordSource serves health data that was imported into the record store as
// health_sample, sleep_session and workout records.
type RecordSource struct {
	store      storage.RecordStore
	logger     *logrus.Entry
	now        func() time.Time
	authorized bool
	tier       Tier
}

// RecordSourceOption configures a RecordSource.
type RecordSourceOption func(*RecordSource)

// WithAuthorization sets the fallback authorization used when no
// health_authorization record is stored.
func WithAuthorization(granted bool, tier Tier) RecordSourceOption {
	return func(s *RecordSource) {
		s.authorized = granted
		s.tier = tier
	}
}

// WithSourceClock overrides the clock.
func WithSourceClock(now func() time.Time) RecordSourceOption {
	return func(s *RecordSource) { s.now = now }
}

// WithSourceLogger sets the logger.
func WithSourceLogger(logger *logrus.Logger) RecordSourceOption {
	return func(s *RecordSource) { s.logger = logging.OrDefault(logger).WithField("component", "health") }
}

// NewRecordSource creates a record-backed health source. Access is denied
// unless granted by option or by a stored authorization record.
func NewRecordSource(store storage.RecordStore, opts ...RecordSourceOption) *RecordSource {
	s := &RecordSource{
		store:  store,
		logger: logrus.StandardLogger().WithField("component", "health"),
		now:    time.Now,
		tier:   TierNone,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RequestAuthorization returns the latest stored authorization, or the
// configured fallback.
func (s *RecordSource) RequestAuthorization(ctx context.Context) (bool, Tier) {
	records := s.fetch(ctx, storage.TypeHealthAuthorization, time.Time{})
	auths := models.DecodeAll[models.HealthAuthorization](records)
	if len(auths) > 0 {
		latest := auths[len(auths)-1]
		tier := ParseTier(latest.Tier)
		return latest.Granted && tier != TierNone, tier
	}
	if !s.authorized {
		return false, TierNone
	}
	return s.tier != TierNone, s.tier
}

// TodayActivity sums today's step, energy and exercise samples.
func (s *RecordSource) TodayActivity(ctx context.Context) *Activity {
	samples := s.samplesSince(ctx, heuristics.StartOfDay(s.now()))
	if len(samples) == 0 {
		return nil
	}
	var a Activity
	var found bool
	for _, smp := range samples {
		switch smp.Kind {
		case models.SampleSteps:
			a.Steps += smp.Value
			found = true
		case models.SampleActiveEnergy:
			a.ActiveEnergyKcal += smp.Value
			found = true
		case models.SampleExerciseMinutes:
			a.ExerciseMinutes += smp.Value
			found = true
		}
	}
	if !found {
		return nil
	}
	return &a
}

// LastNightSleep returns the latest sleep session that ended today.
func (s *RecordSource) LastNightSleep(ctx context.Context) *models.SleepSession {
	now := s.now()
	today := heuristics.StartOfDay(now)
	records := s.fetch(ctx, storage.TypeSleepSession, today.AddDate(0, 0, -1))
	sessions := models.DecodeAll[models.SleepSession](records)

	var latest *models.SleepSession
	for i := range sessions {
		if sessions[i].End.Before(today) || sessions[i].End.After(now) {
			continue
		}
		if latest == nil || sessions[i].End.After(latest.End) {
			latest = &sessions[i]
		}
	}
	return latest
}

// LatestHRV returns the most recent HRV sample.
func (s *RecordSource) LatestHRV(ctx context.Context) *Measurement {
	return s.latest(ctx, models.SampleHRV)
}

// RestingHeartRate returns the most recent resting heart rate sample.
func (s *RecordSource) RestingHeartRate(ctx context.Context) *Measurement {
	return s.latest(ctx, models.SampleRestingHeartRate)
}

// RespiratoryRate returns the most recent respiratory rate sample.
func (s *RecordSource) RespiratoryRate(ctx context.Context) *Measurement {
	return s.latest(ctx, models.SampleRespiratoryRate)
}

// HRVTrend returns the daily mean HRV over the last n days.
func (s *RecordSource) HRVTrend(ctx context.Context, days int) []DailyValue {
	now := s.now()
	samples := s.samplesSince(ctx, heuristics.StartOfDay(now).AddDate(0, 0, -(days-1)))

	sums := map[int]float64{}
	counts := map[int]float64{}
	for _, smp := range samples {
		if smp.Kind != models.SampleHRV {
			continue
		}
		day := heuristics.DayIndex(smp.StartAt, now)
		sums[day] += smp.Value
		counts[day]++
	}

	means := map[int]float64{}
	for day, sum := range sums {
		means[day] = sum / counts[day]
	}
	return dailySeries(means, days, now)
}

// SleepTrend returns nightly sleep hours over the last n days, keyed to the
// day the user woke up.
func (s *RecordSource) SleepTrend(ctx context.Context, days int) []DailyValue {
	now := s.now()
	since := heuristics.StartOfDay(now).AddDate(0, 0, -days)
	sessions := models.DecodeAll[models.SleepSession](s.fetch(ctx, storage.TypeSleepSession, since))

	hours := map[int]float64{}
	for _, sl := range sessions {
		hours[heuristics.DayIndex(sl.End, now)] += sl.Hours()
	}
	return dailySeries(hours, days, now)
}

// RecentWorkouts returns workouts started in the last n days, oldest first.
func (s *RecordSource) RecentWorkouts(ctx context.Context, days int) []models.Workout {
	now := s.now()
	since := now.Add(-time.Duration(days) * 24 * time.Hour)
	workouts := models.DecodeAll[models.Workout](s.fetch(ctx, storage.TypeWorkout, since))
	sort.SliceStable(workouts, func(i, j int) bool { return workouts[i].Start.Before(workouts[j].Start) })
	return workouts
}

// HourlyActivity buckets today's step samples by start hour.
func (s *RecordSource) HourlyActivity(ctx context.Context) []HourlyBucket {
	now := s.now()
	samples := s.samplesSince(ctx, heuristics.StartOfDay(now))

	var buckets [24]float64
	var found bool
	for _, smp := range samples {
		if smp.Kind != models.SampleSteps {
			continue
		}
		buckets[smp.StartAt.In(now.Location()).Hour()] += smp.Value
		found = true
	}
	if !found {
		return nil
	}

	out := make([]HourlyBucket, 0, now.Hour()+1)
	for h := 0; h <= now.Hour(); h++ {
		out = append(out, HourlyBucket{Hour: h, Steps: buckets[h]})
	}
	return out
}

func (s *RecordSource) latest(ctx context.Context, kind models.SampleKind) *Measurement {
	// a week is enough to find the latest point-in-time sample
	samples := s.samplesSince(ctx, s.now().AddDate(0, 0, -7))
	var m *Measurement
	for _, smp := range samples {
		if smp.Kind != kind {
			continue
		}
		if m == nil || !smp.StartAt.Before(m.At) {
			m = &Measurement{Value: smp.Value, At: smp.StartAt}
		}
	}
	return m
}

func (s *RecordSource) samplesSince(ctx context.Context, since time.Time) []models.HealthSample {
	return models.DecodeAll[models.HealthSample](s.fetch(ctx, storage.TypeHealthSample, since))
}

func (s *RecordSource) fetch(ctx context.Context, recordType storage.RecordType, since time.Time) []*storage.Record {
	return storage.FetchOrEmpty(ctx, s.store, recordType, &storage.FetchOptions{Since: since}, func(err error) {
		s.logger.WithError(err).WithField("record_type", recordType).Warn("health fetch failed, treating as unavailable")
	})
}

// dailySeries lays out per-day values (0 = today) as an oldest-first series,
// skipping days without data.
func dailySeries(values map[int]float64, days int, now time.Time) []DailyValue {
	today := heuristics.StartOfDay(now)
	var out []DailyValue
	for day := days - 1; day >= 0; day-- {
		if v, ok := values[day]; ok {
			out = append(out, DailyValue{Date: today.AddDate(0, 0, -day), Value: v})
		}
	}
	return out
}

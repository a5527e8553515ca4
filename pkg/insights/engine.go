package insights

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cosmoos/cosmo-go/pkg/heuristics"
	"github.com/cosmoos/cosmo-go/pkg/logging"
	"github.com/cosmoos/cosmo-go/pkg/models"
	"github.com/cosmoos/cosmo-go/pkg/storage"
)

// Metric names used in computed and fallback correlations.
const (
	MetricSleepHours      = "sleep duration"
	MetricFocusQuality    = "focus quality"
	MetricDeepWorkMinutes = "deep work"
	MetricMood            = "mood"
)

// DefaultWindowDays is how many days of history Compute looks at.
const DefaultWindowDays = 30

// MinSamples is the minimum number of days with both metrics present.
const MinSamples = 5

// metricPairs lists the correlations Compute evaluates.
var metricPairs = [][2]string{
	{MetricSleepHours, MetricFocusQuality},
	{MetricSleepHours, MetricMood},
	{MetricDeepWorkMinutes, MetricMood},
	{MetricFocusQuality, MetricMood},
}

// Engine computes correlations between daily metric series and stores them as
// correlation_insight records (one per metric pair).
type Engine struct {
	store      storage.RecordStore
	logger     *logrus.Entry
	now        func() time.Time
	windowDays int
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithEngineClock overrides the clock.
func WithEngineClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// WithEngineLogger sets the logger.
func WithEngineLogger(logger *logrus.Logger) EngineOption {
	return func(e *Engine) { e.logger = logging.OrDefault(logger).WithField("component", "insights") }
}

// WithWindowDays sets how many days of history are considered.
func WithWindowDays(days int) EngineOption {
	return func(e *Engine) {
		if days > 0 {
			e.windowDays = days
		}
	}
}

// NewEngine creates an insight engine over a record store.
func NewEngine(store storage.RecordStore, opts ...EngineOption) *Engine {
	e := &Engine{
		store:      store,
		logger:     logrus.StandardLogger().WithField("component", "insights"),
		now:        time.Now,
		windowDays: DefaultWindowDays,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Compute rebuilds the daily series, evaluates every metric pair with enough
// overlapping days and upserts the results. A pair that can no longer be
// evaluated has its stored record removed. It returns the correlations that
// were stored.
func (e *Engine) Compute(ctx context.Context) ([]Correlation, error) {
	now := e.now()
	since := heuristics.StartOfDay(now).AddDate(0, 0, -(e.windowDays - 1))
	opts := &storage.FetchOptions{Since: since}

	sessionRecords, err := e.store.FetchAll(ctx, storage.TypeDeepWorkSession, opts)
	if err != nil {
		return nil, fmt.Errorf("Compute: sessions: %w", err)
	}
	moodRecords, err := e.store.FetchAll(ctx, storage.TypeMoodCheckIn, opts)
	if err != nil {
		return nil, fmt.Errorf("Compute: moods: %w", err)
	}
	sleepRecords, err := e.store.FetchAll(ctx, storage.TypeSleepSession, opts)
	if err != nil {
		return nil, fmt.Errorf("Compute: sleep: %w", err)
	}

	series := buildSeries(
		models.DecodeAll[models.DeepWorkSession](sessionRecords),
		models.DecodeAll[models.MoodCheckIn](moodRecords),
		models.DecodeAll[models.SleepSession](sleepRecords),
		now,
	)

	var stored []Correlation
	for _, pair := range metricPairs {
		xs, ys := align(series[pair[0]], series[pair[1]])
		if len(xs) < MinSamples {
			e.logger.WithFields(logrus.Fields{
				"metric_a": pair[0],
				"metric_b": pair[1],
				"samples":  len(xs),
			}).Debug("not enough overlapping days for correlation")
			if err := e.retire(ctx, pair); err != nil {
				return stored, err
			}
			continue
		}
		r, ok := heuristics.Pearson(xs, ys)
		if !ok {
			if err := e.retire(ctx, pair); err != nil {
				return stored, err
			}
			continue
		}

		c := NewCorrelation(pair[0], pair[1], r, Describe(pair[0], pair[1], r))
		if err := e.upsert(ctx, c, len(xs), now); err != nil {
			return stored, err
		}
		stored = append(stored, c)
	}

	e.logger.WithField("count", len(stored)).Info("correlation insights computed")
	return stored, nil
}

// retire deletes the stored record of a pair, if any.
func (e *Engine) retire(ctx context.Context, pair [2]string) error {
	existing, err := e.store.FindByLogicalID(ctx, storage.TypeCorrelationInsight, pair[0]+":"+pair[1])
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("retire: %w", err)
	}
	if err := e.store.Delete(ctx, existing.ID); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("retire: %w", err)
	}
	e.logger.WithField("pair", existing.LogicalID).Info("removed correlation without enough data")
	return nil
}

func (e *Engine) upsert(ctx context.Context, c Correlation, samples int, now time.Time) error {
	payload := models.CorrelationInsight{
		MetricA:     c.MetricA,
		MetricB:     c.MetricB,
		Coefficient: c.Coefficient,
		Insight:     c.Insight,
		SampleSize:  samples,
		ComputedAt:  now,
	}
	logicalID := c.MetricA + ":" + c.MetricB

	existing, err := e.store.FindByLogicalID(ctx, storage.TypeCorrelationInsight, logicalID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		record, err := models.NewRecord(storage.TypeCorrelationInsight, logicalID, logicalID, payload, now)
		if err != nil {
			return fmt.Errorf("upsert: %w", err)
		}
		record.Body = c.Insight
		record.Metadata["strength"] = string(c.Strength)
		if _, err := e.store.Create(ctx, record); err != nil {
			return fmt.Errorf("upsert: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("upsert: %w", err)
	}

	if err := existing.SetStructured(payload); err != nil {
		return fmt.Errorf("upsert: %w", err)
	}
	existing.Body = c.Insight
	if existing.Metadata == nil {
		existing.Metadata = map[string]interface{}{}
	}
	existing.Metadata["strength"] = string(c.Strength)
	if err := e.store.Update(ctx, existing); err != nil {
		return fmt.Errorf("upsert: %w", err)
	}
	return nil
}

// buildSeries maps each metric to its per-day values keyed by day index
// (0 = today).
func buildSeries(sessions []models.DeepWorkSession, moods []models.MoodCheckIn, sleeps []models.SleepSession, now time.Time) map[string]map[int]float64 {
	minutes := map[int]float64{}
	qualitySum := map[int]float64{}
	qualityCount := map[int]float64{}
	for _, s := range sessions {
		day := heuristics.DayIndex(s.StartedAt, now)
		minutes[day] += s.Minutes(now)
		qualitySum[day] += s.QualityScore
		qualityCount[day]++
	}
	quality := map[int]float64{}
	for day, sum := range qualitySum {
		quality[day] = sum / qualityCount[day]
	}

	moodSum := map[int]float64{}
	moodCount := map[int]float64{}
	for _, m := range moods {
		day := heuristics.DayIndex(m.CreatedAt, now)
		moodSum[day] += float64(m.Valence)
		moodCount[day]++
	}
	mood := map[int]float64{}
	for day, sum := range moodSum {
		mood[day] = sum / moodCount[day]
	}

	// sleep counts toward the day the user woke up
	sleep := map[int]float64{}
	for _, s := range sleeps {
		sleep[heuristics.DayIndex(s.End, now)] += s.Hours()
	}

	return map[string]map[int]float64{
		MetricDeepWorkMinutes: minutes,
		MetricFocusQuality:    quality,
		MetricMood:            mood,
		MetricSleepHours:      sleep,
	}
}

// align returns the values of a and b for days present in both, oldest first.
func align(a, b map[int]float64) ([]float64, []float64) {
	maxDay := -1
	for day := range a {
		if day > maxDay {
			maxDay = day
		}
	}
	var xs, ys []float64
	for day := maxDay; day >= 0; day-- {
		av, okA := a[day]
		bv, okB := b[day]
		if okA && okB {
			xs = append(xs, av)
			ys = append(ys, bv)
		}
	}
	return xs, ys
}

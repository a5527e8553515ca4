package cognitive

import (
	"context"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/cosmoos/cosmo-go/pkg/heuristics"
	"github.com/cosmoos/cosmo-go/pkg/insights"
	"github.com/cosmoos/cosmo-go/pkg/logging"
	"github.com/cosmoos/cosmo-go/pkg/models"
	"github.com/cosmoos/cosmo-go/pkg/storage"
)

// HistoryDays is how far back sessions are read for window prediction.
const HistoryDays = 30

// TopCorrelations is how many correlations the snapshot carries.
const TopCorrelations = 3

// Aggregator builds Cognitive snapshots from the record store.
type Aggregator struct {
	store          storage.RecordStore
	logger         *logrus.Entry
	now            func() time.Time
	weigher        *heuristics.RecencyWeigher
	recoveryFactor float64
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithClock overrides the clock used to decide what "today" is.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// WithLogger sets the logger.
func WithLogger(logger *logrus.Logger) Option {
	return func(a *Aggregator) { a.logger = logging.ForDimension(logger, "cognitive") }
}

// WithRecoveryFactor replaces the constant recovery sub-score.
func WithRecoveryFactor(v float64) Option {
	return func(a *Aggregator) { a.recoveryFactor = heuristics.ClampPercent(v) }
}

// WithDecayRate sets the per-day recency decay used for window prediction.
func WithDecayRate(rate float64) Option {
	return func(a *Aggregator) { a.weigher = heuristics.NewRecencyWeigher(rate) }
}

// NewAggregator creates a Cognitive aggregator.
func NewAggregator(store storage.RecordStore, opts ...Option) *Aggregator {
	a := &Aggregator{
		store:          store,
		logger:         logging.ForDimension(nil, "cognitive"),
		now:            time.Now,
		weigher:        heuristics.NewRecencyWeigher(heuristics.DefaultDecayRate),
		recoveryFactor: DefaultRecoveryFactor,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Refresh fetches sessions, insights and journal entries concurrently and
// builds a new snapshot. Store failures are logged and read as empty data;
// the only error returned is the context's.
func (a *Aggregator) Refresh(ctx context.Context) (*DimensionData, error) {
	now := a.now()
	today := heuristics.StartOfDay(now)
	historyStart := today.AddDate(0, 0, -(HistoryDays - 1))
	weekStart := today.AddDate(0, 0, -6)

	var sessionRecords, insightRecords, journalRecords []*storage.Record

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sessionRecords = storage.FetchOrEmpty(gctx, a.store, storage.TypeDeepWorkSession,
			&storage.FetchOptions{Since: historyStart}, a.warn(storage.TypeDeepWorkSession))
		return nil
	})
	g.Go(func() error {
		insightRecords = storage.FetchOrEmpty(gctx, a.store, storage.TypeCorrelationInsight,
			nil, a.warn(storage.TypeCorrelationInsight))
		return nil
	})
	g.Go(func() error {
		journalRecords = storage.FetchOrEmpty(gctx, a.store, storage.TypeJournalEntry,
			&storage.FetchOptions{Since: weekStart}, a.warn(storage.TypeJournalEntry))
		return nil
	})
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data := Build(Input{
		Sessions:               models.DecodeAll[models.DeepWorkSession](sessionRecords),
		Correlations:           insights.LoadOrFallback(insightRecords, TopCorrelations),
		JournalEntriesThisWeek: len(journalRecords),
		RecoveryFactor:         a.recoveryFactor,
	}, now, a.weigher)

	a.logger.WithFields(logrus.Fields{
		"cognitive_index": data.CognitiveIndex,
		"sessions_today":  len(data.TodaySessions),
	}).Debug("cognitive snapshot refreshed")

	return data, nil
}

func (a *Aggregator) warn(recordType storage.RecordType) func(error) {
	return func(err error) {
		a.logger.WithError(err).WithField("record_type", recordType).Warn("fetch failed, treating as no data")
	}
}

// Build computes a snapshot from decoded input. It never fails: missing data
// produces zeros and defaults.
func Build(in Input, now time.Time, weigher *heuristics.RecencyWeigher) *DimensionData {
	sessions := make([]models.DeepWorkSession, len(in.Sessions))
	copy(sessions, in.Sessions)
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].StartedAt.Before(sessions[j].StartedAt)
	})

	today := heuristics.StartOfDay(now)
	todaySessions := make([]models.DeepWorkSession, 0)
	var todayMinutes float64
	var distractions int
	var interruptions []Interruption
	var active *models.DeepWorkSession

	for i := range sessions {
		s := sessions[i]
		if s.StartedAt.Before(today) || s.StartedAt.After(now) {
			continue
		}
		todaySessions = append(todaySessions, s)
		todayMinutes += s.Minutes(now)
		distractions += s.DistractionCount
		interruptions = append(interruptions, SynthesizeInterruptions(s, now)...)
		if s.IsActive() {
			active = &sessions[i]
		}
	}

	trend := weeklyTotals(sessions, now)
	totals := make([]float64, len(trend))
	for i, d := range trend {
		totals[i] = d.Minutes
	}

	var latest *models.DeepWorkSession
	for i := len(sessions) - 1; i >= 0; i-- {
		if !sessions[i].StartedAt.After(now) {
			latest = &sessions[i]
			break
		}
	}

	recovery := in.RecoveryFactor
	focus := FocusQuality(todaySessions)
	volume := DeepWorkVolume(todayMinutes)
	consistency := SessionConsistency(totals)
	resilience := InterruptionResilience(distractions, todayMinutes)
	nelo := NELOScore(latest, now)
	windows := PredictWindows(sessions, now, weigher)

	correlations := in.Correlations
	if correlations == nil {
		correlations = []insights.Correlation{}
	}
	if interruptions == nil {
		interruptions = []Interruption{}
	}

	data := &DimensionData{
		CognitiveIndex:         CognitiveIndex(focus, volume, consistency, recovery, resilience),
		FocusQuality:           focus,
		DeepWorkVolume:         volume,
		SessionConsistency:     consistency,
		RecoveryFactor:         recovery,
		InterruptionResilience: resilience,
		NELOScore:              nelo,
		NELOStatus:             StatusForNELO(nelo),
		TodaySessions:          todaySessions,
		ActiveSession:          active,
		TodayMinutes:           todayMinutes,
		TotalDistractions:      distractions,
		Interruptions:          interruptions,
		WeeklyTrend:            trend,
		PredictedWindows:       windows,
		Correlations:           correlations,
		JournalEntriesThisWeek: in.JournalEntriesThisWeek,
		FormattedDeepWork:      FormatMinutes(todayMinutes),
		GeneratedAt:            now,
	}
	for _, w := range windows {
		if w.IsPrimary {
			data.PrimaryWindow = w.Label()
			break
		}
	}

	return data
}

// weeklyTotals returns seven daily totals ending today, oldest first.
func weeklyTotals(sessions []models.DeepWorkSession, now time.Time) []DailyTotal {
	today := heuristics.StartOfDay(now)
	trend := make([]DailyTotal, 7)
	for i := range trend {
		trend[i].Date = today.AddDate(0, 0, i-6)
	}
	for _, s := range sessions {
		day := heuristics.DayIndex(s.StartedAt, now)
		if day < 0 || day > 6 {
			continue
		}
		trend[6-day].Minutes += s.Minutes(now)
	}
	return trend
}

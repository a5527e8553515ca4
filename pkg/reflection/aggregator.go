package reflection

import (
	"context"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/cosmoos/cosmo-go/pkg/heuristics"
	"github.com/cosmoos/cosmo-go/pkg/logging"
	"github.com/cosmoos/cosmo-go/pkg/models"
	"github.com/cosmoos/cosmo-go/pkg/storage"
)

// TrendDays is the length of the mood trend and the "this week" window.
const TrendDays = 7

// StreakLookbackDays bounds how far back the journal streak is counted.
const StreakLookbackDays = 90

// DailyMood is the average valence of one day. Count is 0 on days without a
// check-in.
type DailyMood struct {
	Date    time.Time `json:"date"`
	Average float64   `json:"average"`
	Count   int       `json:"count"`
}

// DimensionData is the Reflection dimension snapshot.
type DimensionData struct {
	// MoodScore is the 7-day mean valence scaled from 1..5 to 0..100.
	MoodScore          float64               `json:"mood_score"`
	HasMood            bool                  `json:"has_mood"`
	MoodTrend          []DailyMood           `json:"mood_trend"`
	LatestMood         *models.MoodCheckIn   `json:"latest_mood,omitempty"`
	LatestMoodLabel    string                `json:"latest_mood_label"`
	JournalStreak      int                   `json:"journal_streak"`
	EntriesThisWeek    int                   `json:"entries_this_week"`
	RecentEntries      []models.JournalEntry `json:"recent_entries"`
	TotalConversations int                   `json:"total_conversations"`
	GeneratedAt        time.Time             `json:"generated_at"`
}

// Input is everything Build needs, already decoded.
type Input struct {
	Moods         []models.MoodCheckIn
	Journal       []models.JournalEntry
	Conversations int
}

// MaxRecentEntries caps RecentEntries.
const MaxRecentEntries = 5

// Aggregator builds Reflection snapshots from the record store.
type Aggregator struct {
	store  storage.RecordStore
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
	return func(a *Aggregator) { a.logger = logging.ForDimension(logger, "reflection") }
}

// NewAggregator creates a Reflection aggregator.
func NewAggregator(store storage.RecordStore, opts ...Option) *Aggregator {
	a := &Aggregator{
		store:  store,
		logger: logging.ForDimension(nil, "reflection"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Refresh fetches moods, journal entries and conversations concurrently and
// builds a snapshot. Store failures read as empty data.
func (a *Aggregator) Refresh(ctx context.Context) (*DimensionData, error) {
	now := a.now()
	today := heuristics.StartOfDay(now)
	moodStart := today.AddDate(0, 0, -(TrendDays - 1))
	journalStart := today.AddDate(0, 0, -(StreakLookbackDays - 1))

	var moodRecords, journalRecords, conversationRecords []*storage.Record

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		moodRecords = storage.FetchOrEmpty(gctx, a.store, storage.TypeMoodCheckIn,
			&storage.FetchOptions{Since: moodStart}, a.warn(storage.TypeMoodCheckIn))
		return nil
	})
	g.Go(func() error {
		journalRecords = storage.FetchOrEmpty(gctx, a.store, storage.TypeJournalEntry,
			&storage.FetchOptions{Since: journalStart}, a.warn(storage.TypeJournalEntry))
		return nil
	})
	g.Go(func() error {
		conversationRecords = storage.FetchOrEmpty(gctx, a.store, storage.TypeConversation,
			nil, a.warn(storage.TypeConversation))
		return nil
	})
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data := Build(Input{
		Moods:         models.DecodeAll[models.MoodCheckIn](moodRecords),
		Journal:       models.DecodeAll[models.JournalEntry](journalRecords),
		Conversations: len(conversationRecords),
	}, now)

	a.logger.WithFields(logrus.Fields{
		"mood_score":     data.MoodScore,
		"journal_streak": data.JournalStreak,
	}).Debug("reflection snapshot refreshed")

	return data, nil
}

func (a *Aggregator) warn(recordType storage.RecordType) func(error) {
	return func(err error) {
		a.logger.WithError(err).WithField("record_type", recordType).Warn("fetch failed, treating as no data")
	}
}

// ScaleValence maps a 1..5 valence onto 0..100.
func ScaleValence(v float64) float64 {
	return heuristics.ClampPercent((v - 1) / 4 * 100)
}

// Build computes a snapshot from decoded input.
func Build(in Input, now time.Time) *DimensionData {
	data := &DimensionData{
		MoodTrend:          moodTrend(in.Moods, now),
		RecentEntries:      []models.JournalEntry{},
		TotalConversations: in.Conversations,
		GeneratedAt:        now,
	}

	var valences []float64
	for i := range in.Moods {
		m := in.Moods[i]
		day := heuristics.DayIndex(m.CreatedAt, now)
		if day < 0 || day >= TrendDays || m.CreatedAt.After(now) {
			continue
		}
		valences = append(valences, float64(m.Valence))
		if data.LatestMood == nil || m.CreatedAt.After(data.LatestMood.CreatedAt) {
			data.LatestMood = &in.Moods[i]
		}
	}
	if len(valences) > 0 {
		data.HasMood = true
		data.MoodScore = ScaleValence(heuristics.Mean(valences))
	}
	if data.LatestMood != nil {
		data.LatestMoodLabel = data.LatestMood.Label
	}

	journal := make([]models.JournalEntry, 0, len(in.Journal))
	for _, e := range in.Journal {
		if e.CreatedAt.After(now) {
			continue
		}
		journal = append(journal, e)
	}
	sort.SliceStable(journal, func(i, j int) bool {
		return journal[i].CreatedAt.After(journal[j].CreatedAt)
	})

	for _, e := range journal {
		if d := heuristics.DayIndex(e.CreatedAt, now); d >= 0 && d < TrendDays {
			data.EntriesThisWeek++
		}
	}
	if len(journal) > MaxRecentEntries {
		data.RecentEntries = journal[:MaxRecentEntries]
	} else {
		data.RecentEntries = journal
	}
	data.JournalStreak = JournalStreak(journal, now)

	return data
}

// JournalStreak counts consecutive days ending today with at least one entry.
// A day without an entry yet today does not break a streak that ran through
// yesterday.
func JournalStreak(entries []models.JournalEntry, now time.Time) int {
	days := map[int]bool{}
	for _, e := range entries {
		if d := heuristics.DayIndex(e.CreatedAt, now); d >= 0 {
			days[d] = true
		}
	}

	start := 0
	if !days[0] {
		start = 1
	}
	streak := 0
	for d := start; days[d]; d++ {
		streak++
	}
	return streak
}

// moodTrend returns TrendDays daily averages ending today, oldest first.
func moodTrend(moods []models.MoodCheckIn, now time.Time) []DailyMood {
	today := heuristics.StartOfDay(now)
	trend := make([]DailyMood, TrendDays)
	sums := make([]float64, TrendDays)
	for i := range trend {
		trend[i].Date = today.AddDate(0, 0, i-(TrendDays-1))
	}
	for _, m := range moods {
		day := heuristics.DayIndex(m.CreatedAt, now)
		if day < 0 || day >= TrendDays || m.CreatedAt.After(now) {
			continue
		}
		idx := TrendDays - 1 - day
		sums[idx] += float64(m.Valence)
		trend[idx].Count++
	}
	for i := range trend {
		if trend[i].Count > 0 {
			trend[i].Average = sums[i] / float64(trend[i].Count)
		}
	}
	return trend
}

package cognitive_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cosmoos/cosmo-go/pkg/cognitive"
	"github.com/cosmoos/cosmo-go/pkg/heuristics"
	"github.com/cosmoos/cosmo-go/pkg/logging"
	"github.com/cosmoos/cosmo-go/pkg/models"
	"github.com/cosmoos/cosmo-go/pkg/storage"
	"github.com/cosmoos/cosmo-go/pkg/storage/storagetest"
)

var now = time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC)

func session(id string, start time.Time, minutes, quality float64, distractions int) models.DeepWorkSession {
	end := start.Add(time.Duration(minutes * float64(time.Minute)))
	return models.DeepWorkSession{
		ID:               id,
		TaskType:         "coding",
		StartedAt:        start,
		EndedAt:          &end,
		DurationMinutes:  minutes,
		QualityScore:     quality,
		DistractionCount: distractions,
	}
}

func todaySessions() []models.DeepWorkSession {
	return []models.DeepWorkSession{
		session("a", time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC), 90, 80, 0),
		session("b", time.Date(2024, 3, 10, 13, 0, 0, 0, time.UTC), 60, 60, 0),
	}
}

func TestCognitiveIndex_Bounds(t *testing.T) {
	assert.Equal(t, 100.0, cognitive.CognitiveIndex(100, 100, 100, 100, 100))
	assert.Equal(t, 0.0, cognitive.CognitiveIndex(0, 0, 0, 0, 0))
	assert.Equal(t, 100.0, cognitive.CognitiveIndex(1e6, 1e6, 1e6, 1e6, 1e6))
	assert.Equal(t, 0.0, cognitive.CognitiveIndex(-1e6, -5, -5, -5, -5))
}

func TestFocusQualityAndVolume(t *testing.T) {
	sessions := todaySessions()

	assert.Equal(t, 70.0, cognitive.FocusQuality(sessions))
	assert.Equal(t, 0.0, cognitive.FocusQuality(nil))
	assert.Equal(t, 62.5, cognitive.DeepWorkVolume(150))
	assert.Equal(t, 100.0, cognitive.DeepWorkVolume(600))
}

func TestSessionConsistency(t *testing.T) {
	assert.Equal(t, 100.0, cognitive.SessionConsistency([]float64{60, 60, 60, 60, 60, 60, 60}))
	assert.Equal(t, 0.0, cognitive.SessionConsistency([]float64{0, 0, 0, 0, 0, 0, 0}))
	assert.Equal(t, 0.0, cognitive.SessionConsistency(nil))

	mixed := cognitive.SessionConsistency([]float64{60, 90, 30, 60, 60, 90, 30})
	assert.Greater(t, mixed, 0.0)
	assert.Less(t, mixed, 100.0)
}

func TestInterruptionResilience(t *testing.T) {
	tests := []struct {
		name         string
		distractions int
		minutes      float64
		expected     float64
	}{
		{"no distractions", 0, 120, 100},
		{"no distractions no time", 0, 0, 100},
		{"distractions no time", 3, 0, 0},
		{"ten percent lost", 4, 120, 90},
		{"all lost", 100, 60, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, cognitive.InterruptionResilience(tt.distractions, tt.minutes), 1e-9)
		})
	}
}

func TestNELOScore(t *testing.T) {
	assert.Equal(t, 50.0, cognitive.NELOScore(nil, now))

	// ended 60 minutes ago, 60-minute session, quality 60
	latest := session("b", now.Add(-2*time.Hour), 60, 60, 0)
	assert.InDelta(t, 78.0, cognitive.NELOScore(&latest, now), 1e-9)

	// just ended, very short, zero quality: 0 + 9 + 9 = 18
	poor := session("c", now.Add(-10*time.Minute), 10, 0, 0)
	assert.InDelta(t, 18.0, cognitive.NELOScore(&poor, now), 1e-9)

	// never below 10 or above 90
	perfect := session("d", now.Add(-5*time.Hour), 60, 100, 0)
	score := cognitive.NELOScore(&perfect, now)
	assert.LessOrEqual(t, score, 90.0)
	assert.GreaterOrEqual(t, score, 10.0)

	assert.Equal(t, cognitive.NELODepleted, cognitive.StatusForNELO(20))
	assert.Equal(t, cognitive.NELOBalanced, cognitive.StatusForNELO(55))
	assert.Equal(t, cognitive.NELOElevated, cognitive.StatusForNELO(56))
}

func TestFormatMinutes(t *testing.T) {
	assert.Equal(t, "45m", cognitive.FormatMinutes(45))
	assert.Equal(t, "2h", cognitive.FormatMinutes(120))
	assert.Equal(t, "2h 30m", cognitive.FormatMinutes(150))
	assert.Equal(t, "0m", cognitive.FormatMinutes(0))
}

func TestPredictWindows(t *testing.T) {
	weigher := heuristics.NewRecencyWeigher(heuristics.DefaultDecayRate)

	windows := cognitive.PredictWindows(nil, now, weigher)
	require.Len(t, windows, 1)
	assert.Equal(t, cognitive.DefaultWindow, windows[0])
	assert.Equal(t, "9:00 - 11:00", windows[0].Label())

	windows = cognitive.PredictWindows(todaySessions(), now, weigher)
	require.Len(t, windows, 2)
	assert.True(t, windows[0].IsPrimary)
	assert.Equal(t, 9, windows[0].StartHour)
	assert.Equal(t, 12, windows[0].EndHour)
	assert.InDelta(t, 80.0, windows[0].Confidence, 1e-9)
	assert.False(t, windows[1].IsPrimary)
	assert.Equal(t, 13, windows[1].StartHour)
	assert.Equal(t, 15, windows[1].EndHour)
}

func TestPredictWindows_SkipsOverlapAndCapsAtMidnight(t *testing.T) {
	history := []models.DeepWorkSession{
		session("late", time.Date(2024, 3, 9, 23, 0, 0, 0, time.UTC), 30, 95, 0),
		session("close", time.Date(2024, 3, 9, 22, 0, 0, 0, time.UTC), 30, 90, 0),
		session("early", time.Date(2024, 3, 9, 7, 0, 0, 0, time.UTC), 30, 50, 0),
	}

	windows := cognitive.PredictWindows(history, now, nil)
	require.Len(t, windows, 2)
	assert.Equal(t, 23, windows[0].StartHour)
	assert.Equal(t, 24, windows[0].EndHour)
	// 22:00-24:00 overlaps the primary window, so the next best hour wins.
	assert.Equal(t, 7, windows[1].StartHour)
	assert.Equal(t, 9, windows[1].EndHour)
}

func TestSynthesizeInterruptions(t *testing.T) {
	s := session("x", now.Add(-2*time.Hour), 100, 70, 4)
	events := cognitive.SynthesizeInterruptions(s, now)

	require.Len(t, events, 4)
	assert.Equal(t, s.StartedAt.Add(20*time.Minute), events[0].At)
	assert.Equal(t, s.StartedAt.Add(80*time.Minute), events[3].At)
	assert.Equal(t, "notification", events[0].Source)
	assert.Equal(t, "phone", events[3].Source)
	assert.InDelta(t, 0.25, events[0].Severity, 1e-9)
	assert.InDelta(t, 1.0, events[3].Severity, 1e-9)

	assert.Empty(t, cognitive.SynthesizeInterruptions(session("y", now, 30, 50, 0), now))
}

func TestBuild_WorkedExample(t *testing.T) {
	data := cognitive.Build(cognitive.Input{
		Sessions:       todaySessions(),
		RecoveryFactor: cognitive.DefaultRecoveryFactor,
	}, now, nil)

	assert.Equal(t, 70.0, data.FocusQuality)
	assert.Equal(t, 62.5, data.DeepWorkVolume)
	assert.Equal(t, 100.0, data.InterruptionResilience)
	assert.Equal(t, 0.0, data.SessionConsistency)
	assert.InDelta(t, 62.875, data.CognitiveIndex, 1e-9)
	assert.Equal(t, 150.0, data.TodayMinutes)
	assert.Equal(t, "2h 30m", data.FormattedDeepWork)
	assert.Len(t, data.TodaySessions, 2)
	assert.Nil(t, data.ActiveSession)
	assert.Empty(t, data.Interruptions)
	assert.InDelta(t, 78.0, data.NELOScore, 1e-9)
	assert.Equal(t, cognitive.NELOElevated, data.NELOStatus)
	assert.Equal(t, "9:00 - 12:00", data.PrimaryWindow)

	require.Len(t, data.WeeklyTrend, 7)
	assert.Equal(t, 150.0, data.WeeklyTrend[6].Minutes)
	assert.Equal(t, time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), data.WeeklyTrend[0].Date)
}

func TestBuild_ActiveSessionAndEmptyInput(t *testing.T) {
	active := models.DeepWorkSession{
		ID:           "live",
		StartedAt:    now.Add(-30 * time.Minute),
		QualityScore: 90,
	}
	data := cognitive.Build(cognitive.Input{Sessions: []models.DeepWorkSession{active}, RecoveryFactor: 75}, now, nil)
	require.NotNil(t, data.ActiveSession)
	assert.Equal(t, "live", data.ActiveSession.ID)
	assert.InDelta(t, 30.0, data.TodayMinutes, 1e-9)

	empty := cognitive.Build(cognitive.Input{RecoveryFactor: 75}, now, nil)
	assert.Equal(t, 0.0, empty.FocusQuality)
	assert.Equal(t, 50.0, empty.NELOScore)
	assert.NotNil(t, empty.Correlations)
	assert.NotNil(t, empty.TodaySessions)
	assert.GreaterOrEqual(t, empty.CognitiveIndex, 0.0)
}

func seedSessions(t *testing.T, store *storagetest.MemoryStore, sessions []models.DeepWorkSession) {
	t.Helper()
	for _, s := range sessions {
		record, err := models.NewRecord(storage.TypeDeepWorkSession, s.ID, s.TaskType, s, s.StartedAt)
		require.NoError(t, err)
		store.MustCreate(record)
	}
}

func TestAggregator_Refresh(t *testing.T) {
	store := storagetest.NewMemoryStore()
	seedSessions(t, store, todaySessions())

	for i := 0; i < 2; i++ {
		entry := models.JournalEntry{ID: string(rune('a' + i)), Text: "note", CreatedAt: now.AddDate(0, 0, -i)}
		record, err := models.NewRecord(storage.TypeJournalEntry, entry.ID, "", entry, entry.CreatedAt)
		require.NoError(t, err)
		store.MustCreate(record)
	}

	agg := cognitive.NewAggregator(store,
		cognitive.WithClock(func() time.Time { return now }),
		cognitive.WithLogger(logging.Discard()),
	)

	data, err := agg.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 70.0, data.FocusQuality)
	assert.Equal(t, 2, data.JournalEntriesThisWeek)
	assert.Len(t, data.Correlations, 3, "fallback correlations when none are stored")
	assert.Equal(t, now, data.GeneratedAt)
}

func TestAggregator_StoreFailureReadsAsEmpty(t *testing.T) {
	agg := cognitive.NewAggregator(storagetest.FailingStore{},
		cognitive.WithClock(func() time.Time { return now }),
		cognitive.WithLogger(logging.Discard()),
	)

	data, err := agg.Refresh(context.Background())
	require.NoError(t, err)
	assert.Empty(t, data.TodaySessions)
	assert.Equal(t, 0.0, data.FocusQuality)
	assert.Equal(t, []cognitive.PredictedWindow{cognitive.DefaultWindow}, data.PredictedWindows)
}

func TestAggregator_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	agg := cognitive.NewAggregator(storagetest.NewMemoryStore(), cognitive.WithLogger(logging.Discard()))
	_, err := agg.Refresh(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAggregator_RecoveryFactorOption(t *testing.T) {
	agg := cognitive.NewAggregator(storagetest.NewMemoryStore(),
		cognitive.WithClock(func() time.Time { return now }),
		cognitive.WithLogger(logging.Discard()),
		cognitive.WithRecoveryFactor(140),
	)

	data, err := agg.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 100.0, data.RecoveryFactor)
}

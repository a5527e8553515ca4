// Package cognitive aggregates deep-work sessions, correlation insights and
// journal activity into the Cognitive dimension snapshot.
package cognitive

import (
	"time"

	"github.com/cosmoos/cosmo-go/pkg/insights"
	"github.com/cosmoos/cosmo-go/pkg/models"
)

// NELOStatus buckets the NELO score.
type NELOStatus string

const (
	NELODepleted NELOStatus = "depleted"
	NELOBalanced NELOStatus = "balanced"
	NELOElevated NELOStatus = "elevated"
)

// PredictedWindow is a time-of-day interval suggested for focused work.
type PredictedWindow struct {
	StartHour  int     `json:"start_hour"`
	EndHour    int     `json:"end_hour"`
	Confidence float64 `json:"confidence"`
	IsPrimary  bool    `json:"is_primary"`
}

// Label formats the window as "9:00 - 11:00".
func (w PredictedWindow) Label() string {
	return formatHour(w.StartHour) + " - " + formatHour(w.EndHour)
}

// Interruption is a synthesized distraction event inside a session.
type Interruption struct {
	SessionID string    `json:"session_id"`
	At        time.Time `json:"at"`
	Source    string    `json:"source"`
	Severity  float64   `json:"severity"`
}

// DailyTotal is the deep-work volume of one calendar day.
type DailyTotal struct {
	Date    time.Time `json:"date"`
	Minutes float64   `json:"minutes"`
}

// DimensionData is the Cognitive dimension snapshot. It is rebuilt from
// scratch on every refresh.
type DimensionData struct {
	CognitiveIndex         float64 `json:"cognitive_index"`
	FocusQuality           float64 `json:"focus_quality"`
	DeepWorkVolume         float64 `json:"deep_work_volume"`
	SessionConsistency     float64 `json:"session_consistency"`
	RecoveryFactor         float64 `json:"recovery_factor"`
	InterruptionResilience float64 `json:"interruption_resilience"`

	NELOScore  float64    `json:"nelo_score"`
	NELOStatus NELOStatus `json:"nelo_status"`

	TodaySessions     []models.DeepWorkSession `json:"today_sessions"`
	ActiveSession     *models.DeepWorkSession  `json:"active_session,omitempty"`
	TodayMinutes      float64                  `json:"today_minutes"`
	TotalDistractions int                      `json:"total_distractions"`
	Interruptions     []Interruption           `json:"interruptions"`

	WeeklyTrend      []DailyTotal           `json:"weekly_trend"`
	PredictedWindows []PredictedWindow      `json:"predicted_windows"`
	Correlations     []insights.Correlation `json:"correlations"`

	JournalEntriesThisWeek int `json:"journal_entries_this_week"`

	FormattedDeepWork string    `json:"formatted_deep_work"`
	PrimaryWindow     string    `json:"primary_window"`
	GeneratedAt       time.Time `json:"generated_at"`
}

// Input is everything Build needs, already decoded.
type Input struct {
	// Sessions holds the session history (any order, any age).
	Sessions []models.DeepWorkSession

	// Correlations holds the correlations to display.
	Correlations []insights.Correlation

	// JournalEntriesThisWeek is the number of journal entries in the last 7 days.
	JournalEntriesThisWeek int

	// RecoveryFactor is the recovery sub-score.
	RecoveryFactor float64
}

// Package models defines the typed payloads carried in the Structured side
// channel of stored records, and the helpers that convert between them.
package models

import (
	"time"

	"github.com/cosmoos/cosmo-go/pkg/storage"
)

// DeepWorkSession is one focused-work interval.
type DeepWorkSession struct {
	ID               string     `json:"id"`
	TaskType         string     `json:"task_type"`
	StartedAt        time.Time  `json:"started_at"`
	EndedAt          *time.Time `json:"ended_at,omitempty"`
	DurationMinutes  float64    `json:"duration_minutes"`
	QualityScore     float64    `json:"quality_score"`
	DistractionCount int        `json:"distraction_count"`
	Notes            string     `json:"notes,omitempty"`
}

// IsActive reports whether the session has not ended yet.
func (s DeepWorkSession) IsActive() bool {
	return s.EndedAt == nil
}

// Minutes returns the recorded duration, or the elapsed time when no duration
// was recorded.
func (s DeepWorkSession) Minutes(now time.Time) float64 {
	if s.DurationMinutes > 0 {
		return s.DurationMinutes
	}
	end := now
	if s.EndedAt != nil {
		end = *s.EndedAt
	}
	if m := end.Sub(s.StartedAt).Minutes(); m > 0 {
		return m
	}
	return 0
}

// JournalEntry is a free-text reflection.
type JournalEntry struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Prompt    string    `json:"prompt,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// MoodCheckIn records how the user feels. Valence runs from 1 (very low) to
// 5 (very good).
type MoodCheckIn struct {
	ID        string    `json:"id"`
	Valence   int       `json:"valence"`
	Label     string    `json:"label,omitempty"`
	Energy    int       `json:"energy,omitempty"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Message is one turn of a conversation.
type Message struct {
	Role    string    `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// Conversation is a saved transcript.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SampleKind identifies a biometric time series.
type SampleKind string

const (
	SampleHRV              SampleKind = "hrv"
	SampleRestingHeartRate SampleKind = "resting_heart_rate"
	SampleRespiratoryRate  SampleKind = "respiratory_rate"
	SampleSteps            SampleKind = "steps"
	SampleActiveEnergy     SampleKind = "active_energy"
	SampleExerciseMinutes  SampleKind = "exercise_minutes"
)

// HealthSample is a single biometric measurement.
type HealthSample struct {
	Kind    SampleKind `json:"kind"`
	Value   float64    `json:"value"`
	Unit    string     `json:"unit,omitempty"`
	StartAt time.Time  `json:"start_at"`
	EndAt   time.Time  `json:"end_at"`
}

// SleepSession is one night of sleep with a stage breakdown in minutes.
type SleepSession struct {
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	InBedMinutes  float64   `json:"in_bed_minutes"`
	AsleepMinutes float64   `json:"asleep_minutes"`
	DeepMinutes   float64   `json:"deep_minutes"`
	REMMinutes    float64   `json:"rem_minutes"`
	CoreMinutes   float64   `json:"core_minutes"`
	AwakeMinutes  float64   `json:"awake_minutes"`
}

// Hours returns time asleep in hours.
func (s SleepSession) Hours() float64 {
	return s.AsleepMinutes / 60.0
}

// Efficiency returns time asleep as a percentage of time in bed.
func (s SleepSession) Efficiency() float64 {
	if s.InBedMinutes <= 0 {
		return 0
	}
	e := s.AsleepMinutes / s.InBedMinutes * 100
	if e > 100 {
		return 100
	}
	return e
}

// WorkoutType enumerates the workout categories with a muscle-group mapping.
type WorkoutType string

const (
	WorkoutStrength WorkoutType = "strength"
	WorkoutRunning  WorkoutType = "running"
	WorkoutCycling  WorkoutType = "cycling"
	WorkoutSwimming WorkoutType = "swimming"
	WorkoutHIIT     WorkoutType = "hiit"
	WorkoutYoga     WorkoutType = "yoga"
	WorkoutWalking  WorkoutType = "walking"
	WorkoutRowing   WorkoutType = "rowing"
	WorkoutOther    WorkoutType = "other"
)

// Workout is one completed workout.
type Workout struct {
	ID              string      `json:"id"`
	Type            WorkoutType `json:"type"`
	Start           time.Time   `json:"start"`
	End             time.Time   `json:"end"`
	DurationMinutes float64     `json:"duration_minutes"`
	EnergyKcal      float64     `json:"energy_kcal"`
	// Strain optionally overrides the derived strain bucket (low, moderate, high).
	Strain string `json:"strain,omitempty"`
}

// CorrelationInsight is the stored form of a computed correlation.
type CorrelationInsight struct {
	MetricA     string    `json:"metric_a"`
	MetricB     string    `json:"metric_b"`
	Coefficient float64   `json:"coefficient"`
	Insight     string    `json:"insight"`
	SampleSize  int       `json:"sample_size,omitempty"`
	ComputedAt  time.Time `json:"computed_at"`
}

// HealthAuthorization is the stored answer to a health access request.
type HealthAuthorization struct {
	Granted bool   `json:"granted"`
	Tier    string `json:"tier"`
}

// NewRecord wraps a payload into a record of the given type. createdAt anchors
// the record on the timeline used by date-range queries.
func NewRecord(recordType storage.RecordType, logicalID, title string, payload interface{}, createdAt time.Time) (*storage.Record, error) {
	record := &storage.Record{
		Type:      recordType,
		LogicalID: logicalID,
		Title:     title,
		CreatedAt: createdAt,
		Metadata:  map[string]interface{}{},
	}
	if err := record.SetStructured(payload); err != nil {
		return nil, err
	}
	return record, nil
}

// DecodeAll decodes the structured payload of every record, skipping records
// that cannot be decoded.
func DecodeAll[T any](records []*storage.Record) []T {
	out := make([]T, 0, len(records))
	for _, r := range records {
		var v T
		if err := r.DecodeStructured(&v); err != nil {
			continue
		}
		out = append(out, v)
	}
	return out
}

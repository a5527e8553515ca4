// Package health defines the platform health source contract and an
// implementation backed by the record store.
//
// Every fetch returns an optional result: nil or an empty slice means the data
// is unavailable, never an error.
package health

import (
	"context"
	"time"

	"github.com/cosmoos/cosmo-go/pkg/models"
)

// Tier is the capability level granted by the health service.
type Tier string

const (
	// TierNone means no access.
	TierNone Tier = "none"

	// TierActivity grants steps, energy and workouts only.
	TierActivity Tier = "activity"

	// TierFull grants every sample type including HRV and sleep stages.
	TierFull Tier = "full"
)

// ParseTier maps a string to a Tier, defaulting to TierNone.
func ParseTier(s string) Tier {
	switch Tier(s) {
	case TierActivity, TierFull:
		return Tier(s)
	default:
		return TierNone
	}
}

// Measurement is a single timestamped value.
type Measurement struct {
	Value float64   `json:"value"`
	At    time.Time `json:"at"`
}

// DailyValue is one point of an N-day trend.
type DailyValue struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// Activity summarizes today's movement.
type Activity struct {
	Steps            float64 `json:"steps"`
	ActiveEnergyKcal float64 `json:"active_energy_kcal"`
	ExerciseMinutes  float64 `json:"exercise_minutes"`
}

// HourlyBucket is the step count of one hour of today.
type HourlyBucket struct {
	Hour  int     `json:"hour"`
	Steps float64 `json:"steps"`
}

// Source is the platform health service.
type Source interface {
	// RequestAuthorization asks for access and reports whether it was
	// granted and at which tier.
	RequestAuthorization(ctx context.Context) (bool, Tier)

	// TodayActivity returns today's steps, energy and exercise minutes.
	TodayActivity(ctx context.Context) *Activity

	// LastNightSleep returns the most recent sleep session that ended today.
	LastNightSleep(ctx context.Context) *models.SleepSession

	// LatestHRV returns the most recent HRV sample in milliseconds.
	LatestHRV(ctx context.Context) *Measurement

	// RestingHeartRate returns the most recent resting heart rate in bpm.
	RestingHeartRate(ctx context.Context) *Measurement

	// RespiratoryRate returns the most recent respiratory rate in breaths/min.
	RespiratoryRate(ctx context.Context) *Measurement

	// HRVTrend returns the daily mean HRV of the last n days, oldest first.
	HRVTrend(ctx context.Context, days int) []DailyValue

	// SleepTrend returns nightly sleep hours of the last n days, oldest first.
	SleepTrend(ctx context.Context, days int) []DailyValue

	// RecentWorkouts returns workouts that started in the last n days.
	RecentWorkouts(ctx context.Context, days int) []models.Workout

	// HourlyActivity returns today's steps bucketed by hour.
	HourlyActivity(ctx context.Context) []HourlyBucket
}

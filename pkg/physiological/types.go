// Package physiological aggregates platform health samples into the
// Physiological dimension snapshot.
package physiological

import (
	"time"

	"github.com/cosmoos/cosmo-go/pkg/health"
	"github.com/cosmoos/cosmo-go/pkg/models"
)

// CortisolLevel is a coarse bucket derived from the stress estimate.
type CortisolLevel string

const (
	CortisolLow      CortisolLevel = "low"
	CortisolNormal   CortisolLevel = "normal"
	CortisolElevated CortisolLevel = "elevated"
	CortisolHigh     CortisolLevel = "high"
)

// Strain buckets a workout's load.
type Strain string

const (
	StrainLow      Strain = "low"
	StrainModerate Strain = "moderate"
	StrainHigh     Strain = "high"
)

// MuscleGroup names a trained muscle group.
type MuscleGroup string

const (
	MuscleChest      MuscleGroup = "chest"
	MuscleShoulders  MuscleGroup = "shoulders"
	MuscleBiceps     MuscleGroup = "biceps"
	MuscleTriceps    MuscleGroup = "triceps"
	MuscleBack       MuscleGroup = "back"
	MuscleCore       MuscleGroup = "core"
	MuscleQuads      MuscleGroup = "quads"
	MuscleHamstrings MuscleGroup = "hamstrings"
	MuscleGlutes     MuscleGroup = "glutes"
	MuscleCalves     MuscleGroup = "calves"
)

// MuscleRecovery is the recovery state of one muscle group.
type MuscleRecovery struct {
	Group           MuscleGroup `json:"group"`
	RecoveryPercent float64     `json:"recovery_percent"`
	LastWorked      *time.Time  `json:"last_worked,omitempty"`
	RecoveryHours   float64     `json:"recovery_hours"`
	Status          string      `json:"status"`
}

// DimensionData is the Physiological dimension snapshot.
//
// When Connected is false every other field is zero and the presentation
// layer shows a "not connected" placeholder instead of the numbers.
type DimensionData struct {
	Connected bool        `json:"connected"`
	Tier      health.Tier `json:"tier"`

	RecoveryScore  float64       `json:"recovery_score"`
	ReadinessScore float64       `json:"readiness_score"`
	SleepScore     float64       `json:"sleep_score"`
	StressLevel    float64       `json:"stress_level"`
	CortisolLevel  CortisolLevel `json:"cortisol_level"`

	SleepHours       float64 `json:"sleep_hours"`
	SleepEfficiency  float64 `json:"sleep_efficiency"`
	DeepSleepMinutes float64 `json:"deep_sleep_minutes"`
	REMSleepMinutes  float64 `json:"rem_sleep_minutes"`
	CoreSleepMinutes float64 `json:"core_sleep_minutes"`
	AwakeMinutes     float64 `json:"awake_minutes"`

	HRV              float64 `json:"hrv"`
	HasHRV           bool    `json:"has_hrv"`
	RestingHeartRate float64 `json:"resting_heart_rate"`
	RespiratoryRate  float64 `json:"respiratory_rate"`

	Steps            float64 `json:"steps"`
	ActiveEnergyKcal float64 `json:"active_energy_kcal"`
	ExerciseMinutes  float64 `json:"exercise_minutes"`

	HRVTrend       []health.DailyValue   `json:"hrv_trend"`
	SleepTrend     []health.DailyValue   `json:"sleep_trend"`
	HourlyActivity []health.HourlyBucket `json:"hourly_activity"`
	MuscleGroups   []MuscleRecovery      `json:"muscle_groups"`
	RecentWorkouts []models.Workout      `json:"recent_workouts"`

	FormattedSleep string    `json:"formatted_sleep"`
	ReadinessLabel string    `json:"readiness_label"`
	GeneratedAt    time.Time `json:"generated_at"`
}

// Empty returns the "not connected" snapshot.
func Empty() *DimensionData {
	return &DimensionData{Tier: health.TierNone}
}

// Input is everything Build needs, already fetched.
type Input struct {
	Tier           health.Tier
	Activity       *health.Activity
	Sleep          *models.SleepSession
	HRV            *health.Measurement
	RestingHR      *health.Measurement
	Respiratory    *health.Measurement
	HRVTrend       []health.DailyValue
	SleepTrend     []health.DailyValue
	Workouts       []models.Workout
	HourlyActivity []health.HourlyBucket
}

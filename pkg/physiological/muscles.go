package physiological

import (
	"strings"
	"time"

	"github.com/cosmoos/cosmo-go/pkg/heuristics"
	"github.com/cosmoos/cosmo-go/pkg/models"
)

// AllMuscleGroups lists every tracked group in display order.
var AllMuscleGroups = []MuscleGroup{
	MuscleChest, MuscleShoulders, MuscleBiceps, MuscleTriceps, MuscleBack,
	MuscleCore, MuscleQuads, MuscleHamstrings, MuscleGlutes, MuscleCalves,
}

// workoutMuscles maps each workout type to the groups it loads.
var workoutMuscles = map[models.WorkoutType][]MuscleGroup{
	models.WorkoutStrength: {MuscleChest, MuscleShoulders, MuscleBiceps, MuscleTriceps, MuscleCore},
	models.WorkoutRunning:  {MuscleQuads, MuscleHamstrings, MuscleCalves, MuscleGlutes},
	models.WorkoutCycling:  {MuscleQuads, MuscleHamstrings, MuscleGlutes, MuscleCalves},
	models.WorkoutSwimming: {MuscleShoulders, MuscleBack, MuscleChest, MuscleCore},
	models.WorkoutHIIT:     {MuscleQuads, MuscleGlutes, MuscleCore, MuscleShoulders},
	models.WorkoutYoga:     {MuscleCore, MuscleHamstrings, MuscleBack},
	models.WorkoutWalking:  {MuscleCalves, MuscleQuads},
	models.WorkoutRowing:   {MuscleBack, MuscleBiceps, MuscleQuads, MuscleCore},
}

// MusclesFor returns the groups loaded by a workout type.
func MusclesFor(t models.WorkoutType) []MuscleGroup {
	return workoutMuscles[t]
}

// RecoveryHoursFor returns the recovery time constant of a strain bucket.
func RecoveryHoursFor(s Strain) float64 {
	switch s {
	case StrainHigh:
		return 72
	case StrainModerate:
		return 48
	default:
		return 24
	}
}

// StrainFor buckets a workout by energy burned per minute (>=10 high, >=6
// moderate) unless the workout carries an explicit strain.
func StrainFor(w models.Workout) Strain {
	switch Strain(strings.ToLower(w.Strain)) {
	case StrainHigh:
		return StrainHigh
	case StrainModerate:
		return StrainModerate
	case StrainLow:
		return StrainLow
	}

	minutes := w.DurationMinutes
	if minutes <= 0 {
		minutes = w.End.Sub(w.Start).Minutes()
	}
	if minutes <= 0 {
		return StrainLow
	}

	perMinute := w.EnergyKcal / minutes
	switch {
	case perMinute >= 10:
		return StrainHigh
	case perMinute >= 6:
		return StrainModerate
	default:
		return StrainLow
	}
}

// RecoveryPercent is min(100, hoursSince/recoveryHours*100); negative elapsed
// time counts as zero.
func RecoveryPercent(hoursSince, recoveryHours float64) float64 {
	if recoveryHours <= 0 {
		return 100
	}
	if hoursSince < 0 {
		hoursSince = 0
	}
	return heuristics.ClampPercent(hoursSince / recoveryHours * 100)
}

func statusFor(percent float64) string {
	switch {
	case percent >= 100:
		return "recovered"
	case percent >= 50:
		return "recovering"
	default:
		return "fatigued"
	}
}

// MuscleRecoveryFor computes the recovery state of every group. Each group
// is governed by the most recent workout that loaded it; groups never worked
// are fully recovered.
func MuscleRecoveryFor(workouts []models.Workout, now time.Time) []MuscleRecovery {
	type lastLoad struct {
		at     time.Time
		strain Strain
	}
	latest := map[MuscleGroup]lastLoad{}

	for _, w := range workouts {
		end := w.End
		if end.IsZero() {
			end = w.Start.Add(time.Duration(w.DurationMinutes * float64(time.Minute)))
		}
		strain := StrainFor(w)
		for _, g := range MusclesFor(w.Type) {
			if prev, ok := latest[g]; !ok || end.After(prev.at) {
				latest[g] = lastLoad{at: end, strain: strain}
			}
		}
	}

	out := make([]MuscleRecovery, 0, len(AllMuscleGroups))
	for _, g := range AllMuscleGroups {
		load, ok := latest[g]
		if !ok {
			out = append(out, MuscleRecovery{Group: g, RecoveryPercent: 100, Status: statusFor(100)})
			continue
		}
		hours := RecoveryHoursFor(load.strain)
		pct := RecoveryPercent(now.Sub(load.at).Hours(), hours)
		at := load.at
		out = append(out, MuscleRecovery{
			Group:           g,
			RecoveryPercent: pct,
			LastWorked:      &at,
			RecoveryHours:   hours,
			Status:          statusFor(pct),
		})
	}
	return out
}

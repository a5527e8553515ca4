package physiological

import (
	"math"

	"github.com/cosmoos/cosmo-go/pkg/heuristics"
)

const (
	targetSleepHours = 8.0
	referenceHRV     = 60.0
	stressHRVCeiling = 80.0

	recoveryBase         = 15.0
	recoveryHRVHalfScore = 12.5
)

// nonNegative maps negative and NaN inputs to 0.
func nonNegative(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return v
}

// RecoveryScore combines sleep duration, sleep efficiency and HRV.
//
//	0.30 * min(100, hours/8*100) + 0.25 * efficiency + 0.25 * min(100, hrv/60*100) + 15
//
// Without HRV the HRV term is replaced by half credit (12.5). The result is
// clamped to [0, 100].
func RecoveryScore(sleepHours, sleepEfficiency, hrv float64, hasHRV bool) float64 {
	sleepTerm := math.Min(100, nonNegative(sleepHours)/targetSleepHours*100)
	efficiencyTerm := heuristics.ClampPercent(sleepEfficiency)

	hrvTerm := recoveryHRVHalfScore
	if hasHRV {
		hrvTerm = 0.25 * math.Min(100, nonNegative(hrv)/referenceHRV*100)
	}

	return heuristics.ClampPercent(0.30*sleepTerm + 0.25*efficiencyTerm + hrvTerm + recoveryBase)
}

// ReadinessScore is 60% of recovery plus step bonuses for HRV and resting
// heart rate, clamped to [0, 100]. A non-positive value means unavailable and
// earns no bonus.
func ReadinessScore(recovery, hrv, restingHR float64) float64 {
	score := 0.6 * heuristics.ClampPercent(recovery)

	switch {
	case hrv >= 50:
		score += 20
	case hrv >= 40:
		score += 15
	case hrv >= 30:
		score += 10
	case hrv > 0:
		score += 5
	}

	if restingHR > 0 {
		switch {
		case restingHR < 55:
			score += 15
		case restingHR < 65:
			score += 10
		case restingHR < 75:
			score += 5
		}
	}

	return heuristics.ClampPercent(score)
}

// StressLevel estimates stress from HRV: 100 - hrv/80*100, clamped. Without
// HRV the neutral 50 is returned.
func StressLevel(hrv float64, hasHRV bool) float64 {
	if !hasHRV {
		return 50
	}
	return heuristics.ClampPercent(100 - hrv/stressHRVCeiling*100)
}

// CortisolFor buckets a stress level at 25/50/75.
func CortisolFor(stress float64) CortisolLevel {
	switch {
	case stress < 25:
		return CortisolLow
	case stress < 50:
		return CortisolNormal
	case stress < 75:
		return CortisolElevated
	default:
		return CortisolHigh
	}
}

// SleepScore = min(1, hours/8)*40 + efficiency*0.30 + min(1, (deep+rem)/180)*30.
func SleepScore(hours, efficiency, deepMinutes, remMinutes float64) float64 {
	duration := math.Min(1, nonNegative(hours)/targetSleepHours) * 40
	eff := heuristics.ClampPercent(efficiency) * 0.30
	restorative := math.Min(1, (nonNegative(deepMinutes)+nonNegative(remMinutes))/180) * 30
	return heuristics.ClampPercent(duration + eff + restorative)
}

// ReadinessLabelFor turns a readiness score into a short label.
func ReadinessLabelFor(readiness float64) string {
	switch {
	case readiness >= 80:
		return "Primed"
	case readiness >= 60:
		return "Ready"
	case readiness >= 40:
		return "Moderate"
	default:
		return "Rest"
	}
}

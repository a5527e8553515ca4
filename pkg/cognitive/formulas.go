package cognitive

import (
	"fmt"
	"time"

	"github.com/cosmoos/cosmo-go/pkg/heuristics"
	"github.com/cosmoos/cosmo-go/pkg/models"
)

// Weights of the cognitive index sub-scores.
const (
	WeightFocusQuality           = 0.30
	WeightDeepWorkVolume         = 0.25
	WeightSessionConsistency     = 0.15
	WeightRecoveryFactor         = 0.15
	WeightInterruptionResilience = 0.15
)

// DeepWorkTargetMinutes is the daily deep-work target (4 hours).
const DeepWorkTargetMinutes = 240.0

// MinutesPerDistraction is the focus time assumed lost to each distraction.
const MinutesPerDistraction = 3.0

// DefaultRecoveryFactor stands in for the recovery sub-score until a sleep
// source feeds the cognitive dimension.
const DefaultRecoveryFactor = 75.0

// CognitiveIndex combines the five sub-scores and clamps to [0, 100].
func CognitiveIndex(focus, volume, consistency, recovery, resilience float64) float64 {
	return heuristics.ClampPercent(
		WeightFocusQuality*focus +
			WeightDeepWorkVolume*volume +
			WeightSessionConsistency*consistency +
			WeightRecoveryFactor*recovery +
			WeightInterruptionResilience*resilience,
	)
}

// FocusQuality is the mean quality score of today's sessions, 0 if none.
func FocusQuality(today []models.DeepWorkSession) float64 {
	if len(today) == 0 {
		return 0
	}
	scores := make([]float64, len(today))
	for i, s := range today {
		scores[i] = s.QualityScore
	}
	return heuristics.ClampPercent(heuristics.Mean(scores))
}

// DeepWorkVolume scales today's minutes against the 240-minute target.
func DeepWorkVolume(todayMinutes float64) float64 {
	return heuristics.ClampPercent(todayMinutes / DeepWorkTargetMinutes * 100)
}

// SessionConsistency is 100 minus the coefficient of variation (in percent)
// of the daily totals. Returns 0 when the mean is zero or there is no data.
func SessionConsistency(dailyTotals []float64) float64 {
	cv, ok := heuristics.CoefficientOfVariation(dailyTotals)
	if !ok {
		return 0
	}
	return heuristics.ClampPercent(100 - cv*100)
}

// InterruptionResilience estimates the share of focus time not lost to
// distractions. Returns 100 when there were no distractions.
func InterruptionResilience(distractions int, totalMinutes float64) float64 {
	if distractions <= 0 {
		return 100
	}
	if totalMinutes <= 0 {
		return 0
	}
	lost := float64(distractions) * MinutesPerDistraction
	return heuristics.ClampPercent(100 - lost/totalMinutes*100)
}

// NELO weights and bounds.
const (
	neloWeightQuality  = 0.4
	neloWeightFatigue  = 0.3
	neloWeightDuration = 0.3

	neloMin     = 10.0
	neloMax     = 90.0
	neloNeutral = 50.0
)

// fatigueFactor is a step function of minutes since the session ended. A
// session that just ended leaves high fatigue and earns little credit.
func fatigueFactor(minutesSinceEnd float64) float64 {
	switch {
	case minutesSinceEnd < 15:
		return 30
	case minutesSinceEnd < 60:
		return 60
	default:
		return 90
	}
}

// durationFactor rewards sessions inside the 35-120 minute range.
func durationFactor(minutes float64) float64 {
	switch {
	case minutes >= 35 && minutes <= 120:
		return 90
	case (minutes >= 20 && minutes < 35) || (minutes > 120 && minutes <= 180):
		return 60
	default:
		return 30
	}
}

// NELOScore computes the neuro-energetic load score from the most recent
// session only. Returns the neutral 50 when there is no session.
func NELOScore(latest *models.DeepWorkSession, now time.Time) float64 {
	if latest == nil {
		return neloNeutral
	}

	var sinceEnd float64
	if latest.EndedAt != nil {
		sinceEnd = now.Sub(*latest.EndedAt).Minutes()
		if sinceEnd < 0 {
			sinceEnd = 0
		}
	}

	score := neloWeightQuality*heuristics.ClampPercent(latest.QualityScore) +
		neloWeightFatigue*fatigueFactor(sinceEnd) +
		neloWeightDuration*durationFactor(latest.Minutes(now))

	return heuristics.Clamp(score, neloMin, neloMax)
}

// StatusForNELO buckets a NELO score: <35 depleted, 35-55 balanced, >55 elevated.
func StatusForNELO(score float64) NELOStatus {
	switch {
	case score < 35:
		return NELODepleted
	case score <= 55:
		return NELOBalanced
	default:
		return NELOElevated
	}
}

// FormatMinutes renders a duration as "2h 30m" or "45m".
func FormatMinutes(minutes float64) string {
	total := int(minutes + 0.5)
	if total < 60 {
		return fmt.Sprintf("%dm", total)
	}
	h, m := total/60, total%60
	if m == 0 {
		return fmt.Sprintf("%dh", h)
	}
	return fmt.Sprintf("%dh %dm", h, m)
}

func formatHour(h int) string {
	return fmt.Sprintf("%d:00", h)
}

package cognitive

import (
	"sort"
	"time"

	"github.com/cosmoos/cosmo-go/pkg/heuristics"
	"github.com/cosmoos/cosmo-go/pkg/models"
)

const (
	primaryWindowHours   = 3
	secondaryWindowHours = 2
	maxWindows           = 2
)

// DefaultWindow is returned when there is no history to learn from.
var DefaultWindow = PredictedWindow{StartHour: 9, EndHour: 11, Confidence: 50, IsPrimary: true}

type hourScore struct {
	hour    int
	average float64
}

// PredictWindows suggests up to two non-overlapping focus windows.
//
// Sessions are grouped by the hour they started in. Each quality score is
// weighted by e^(-0.1 * days ago), hours are ranked by weighted average, and
// windows start at the best hours: a 3-hour primary window and a 2-hour
// secondary one. Without history the fixed 9:00-11:00 window is returned.
func PredictWindows(history []models.DeepWorkSession, now time.Time, weigher *heuristics.RecencyWeigher) []PredictedWindow {
	if weigher == nil {
		weigher = heuristics.NewRecencyWeigher(heuristics.DefaultDecayRate)
	}

	var sumW, sumWQ [24]float64
	for _, s := range history {
		hour := s.StartedAt.In(now.Location()).Hour()
		w := weigher.Weight(s.StartedAt, now)
		sumW[hour] += w
		sumWQ[hour] += w * heuristics.ClampPercent(s.QualityScore)
	}

	var ranked []hourScore
	for h := 0; h < 24; h++ {
		if sumW[h] > 0 {
			ranked = append(ranked, hourScore{hour: h, average: sumWQ[h] / sumW[h]})
		}
	}
	if len(ranked) == 0 {
		return []PredictedWindow{DefaultWindow}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].average == ranked[j].average {
			return ranked[i].hour < ranked[j].hour
		}
		return ranked[i].average > ranked[j].average
	})

	var windows []PredictedWindow
	for _, hs := range ranked {
		if len(windows) == maxWindows {
			break
		}
		length := secondaryWindowHours
		if len(windows) == 0 {
			length = primaryWindowHours
		}
		candidate := PredictedWindow{
			StartHour:  hs.hour,
			EndHour:    minInt(hs.hour+length, 24),
			Confidence: heuristics.ClampPercent(hs.average),
			IsPrimary:  len(windows) == 0,
		}
		if overlapsAny(candidate, windows) {
			continue
		}
		windows = append(windows, candidate)
	}

	return windows
}

func overlapsAny(w PredictedWindow, existing []PredictedWindow) bool {
	for _, e := range existing {
		if w.StartHour < e.EndHour && e.StartHour < w.EndHour {
			return true
		}
	}
	return false
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

package cognitive

import (
	"time"

	"github.com/cosmoos/cosmo-go/pkg/models"
)

// InterruptionSources is cycled through when synthesizing interruptions.
var InterruptionSources = []string{"notification", "slack", "email", "phone", "context_switch"}

// SynthesizeInterruptions spreads a session's distraction count into evenly
// spaced events. Interruptions are not stored individually; the i-th of N
// events sits at start + (i+1)/(N+1) of the session, takes its source
// round-robin from InterruptionSources and has severity (i+1)/N.
func SynthesizeInterruptions(session models.DeepWorkSession, now time.Time) []Interruption {
	n := session.DistractionCount
	if n <= 0 {
		return nil
	}

	duration := time.Duration(session.Minutes(now) * float64(time.Minute))
	step := duration / time.Duration(n+1)

	out := make([]Interruption, n)
	for i := 0; i < n; i++ {
		out[i] = Interruption{
			SessionID: session.ID,
			At:        session.StartedAt.Add(step * time.Duration(i+1)),
			Source:    InterruptionSources[i%len(InterruptionSources)],
			Severity:  float64(i+1) / float64(n),
		}
	}
	return out
}

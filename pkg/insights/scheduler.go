package insights

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Scheduler runs Engine.Compute once a day.
type Scheduler struct {
	engine    *Engine
	scheduler gocron.Scheduler
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewScheduler creates a scheduler that recomputes insights daily at hour:00
// in loc (nil = local time).
func NewScheduler(engine *Engine, hour uint, loc *time.Location) (*Scheduler, error) {
	if loc == nil {
		loc = time.Local
	}
	if hour > 23 {
		return nil, fmt.Errorf("NewScheduler: hour %d out of range", hour)
	}

	s, err := gocron.NewScheduler(gocron.WithLocation(loc))
	if err != nil {
		return nil, fmt.Errorf("NewScheduler: %w", err)
	}

	sched := &Scheduler{engine: engine, scheduler: s, ctx: context.Background()}

	_, err = s.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(hour, 0, 0))),
		gocron.NewTask(sched.run),
		gocron.WithName("correlation-insights"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, fmt.Errorf("NewScheduler: %w", err)
	}

	return sched, nil
}

// Start begins running the daily job.
func (s *Scheduler) Start(ctx context.Context) {
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.scheduler.Start()
}

// Stop cancels any in-flight computation and shuts the scheduler down.
func (s *Scheduler) Stop() error {
	if s.cancel != nil {
		s.cancel()
	}
	return s.scheduler.Shutdown()
}

func (s *Scheduler) run() {
	if _, err := s.engine.Compute(s.ctx); err != nil {
		s.engine.logger.WithError(err).Warn("scheduled insight computation failed")
	}
}

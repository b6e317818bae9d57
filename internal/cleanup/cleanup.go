// Package cleanup runs the Detector's periodic expiry pass on a timer.
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"idsrs/internal/detector"
	"idsrs/internal/logging"
)

// Scheduler periodically invokes Detector.Cleanup. It runs a single
// recurring job; no general-purpose job registry is needed for the one
// timer this system has.
type Scheduler struct {
	sched       gocron.Scheduler
	detector    *detector.Detector
	interval    time.Duration
	maxEntryAge time.Duration
	logger      *slog.Logger
}

// New constructs a cleanup Scheduler. Does not start it; call Run.
func New(d *detector.Detector, interval, maxEntryAge time.Duration, logger *slog.Logger) (*Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	return &Scheduler{
		sched:       sched,
		detector:    d,
		interval:    interval,
		maxEntryAge: maxEntryAge,
		logger:      logging.Default(logger).With("component", "cleanup"),
	}, nil
}

// Run registers the cleanup job and blocks until ctx is cancelled, then
// stops the scheduler.
func (s *Scheduler) Run(ctx context.Context) error {
	_, err := s.sched.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(func() {
			s.logger.Debug("running cleanup pass")
			s.detector.Cleanup(time.Now(), s.maxEntryAge)
		}),
	)
	if err != nil {
		return fmt.Errorf("register cleanup job: %w", err)
	}

	s.sched.Start()
	s.logger.Info("cleanup scheduler started", "interval", s.interval, "max_entry_age", s.maxEntryAge)

	<-ctx.Done()
	return s.sched.Shutdown()
}

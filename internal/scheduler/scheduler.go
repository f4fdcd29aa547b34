// Package scheduler runs the daily report jobs on wall-clock times.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/lorrc/field-dispatch-bot/internal/infrastructure/logging"
)

// jobTimeout bounds a single scheduled run.
const jobTimeout = 5 * time.Minute

// Scheduler wraps a cron runner with job-level logging and timeouts.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger
}

// New creates a scheduler in the local time zone.
func New(logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		logger: logger,
	}
}

// AddDaily schedules run at the given local HH:MM time every day.
func (s *Scheduler) AddDaily(name, at string, run func(context.Context) error) error {
	spec, err := specFromClock(at)
	if err != nil {
		return err
	}

	_, err = s.cron.AddFunc(spec, func() {
		runID := uuid.NewString()
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		ctx = logging.WithRunID(ctx, runID)

		start := time.Now()
		s.logger.InfoContext(ctx, "scheduled job started", "job", name)
		if err := run(ctx); err != nil {
			s.logger.ErrorContext(ctx, "scheduled job failed",
				"job", name,
				"duration_ms", time.Since(start).Milliseconds(),
				"error", err,
			)
			return
		}
		s.logger.InfoContext(ctx, "scheduled job finished",
			"job", name,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
	if err != nil {
		return fmt.Errorf("schedule %s at %s: %w", name, at, err)
	}

	s.logger.Info("job scheduled", "job", name, "at", at)
	return nil
}

// Start launches the cron runner in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// specFromClock converts "HH:MM" into a daily cron expression.
func specFromClock(at string) (string, error) {
	clock, err := time.Parse("15:04", at)
	if err != nil {
		return "", fmt.Errorf("%q is not a HH:MM time: %w", at, err)
	}
	return fmt.Sprintf("%d %d * * *", clock.Minute(), clock.Hour()), nil
}

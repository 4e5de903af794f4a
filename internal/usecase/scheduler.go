package usecase

import (
	"context"
	"time"

	"SubTrack/internal/ports"
)

// Scheduler wires the cron-like driver with the reminder sweep.
type Scheduler struct {
	driver ports.Scheduler
	sweep  *Sweep
}

// NewScheduler returns a helper to start/stop the recurring sweep.
func NewScheduler(driver ports.Scheduler, sweep *Sweep) *Scheduler {
	return &Scheduler{driver: driver, sweep: sweep}
}

// Start registers the sweep with the provided scheduler driver.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.sweep == nil {
		return nil
	}

	job := func(trigger time.Time) {
		_ = s.sweep.Run(ctx, trigger)
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}

package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"SubTrack/internal/ports"
)

// CronScheduler runs the sweep on a cron expression in the configured
// timezone. A tick that finds the previous one still running is skipped.
type CronScheduler struct {
	spec   string
	loc    *time.Location
	logger *slog.Logger
	cron   *cron.Cron
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// NewCronScheduler builds a scheduler from a standard five-field cron
// expression, evaluated in loc.
func NewCronScheduler(spec string, loc *time.Location, logger *slog.Logger) *CronScheduler {
	if loc == nil {
		loc = time.Local
	}
	return &CronScheduler{spec: spec, loc: loc, logger: logger}
}

// Start registers the job and starts ticking.
func (c *CronScheduler) Start(_ context.Context, job func(time.Time)) error {
	if c.cron != nil {
		return nil
	}

	cronLogger := cron.PrintfLogger(slog.NewLogLogger(c.logger.Handler(), slog.LevelInfo))
	c.cron = cron.New(
		cron.WithLocation(c.loc),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger), cron.Recover(cronLogger)),
	)

	if _, err := c.cron.AddFunc(c.spec, func() { job(time.Now().In(c.loc)) }); err != nil {
		c.cron = nil
		return fmt.Errorf("schedule %q: %w", c.spec, err)
	}

	c.cron.Start()
	c.logger.Info("scheduler started", "spec", c.spec, "timezone", c.loc.String())
	return nil
}

// Stop halts ticking and waits for a running job to finish or the context
// to expire.
func (c *CronScheduler) Stop(ctx context.Context) error {
	if c.cron == nil {
		return nil
	}

	done := c.cron.Stop().Done()
	c.cron = nil

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"SubTrack/internal/billing"
	"SubTrack/internal/domain"
	"SubTrack/internal/ports"
)

// SweepDeps wires the reminder sweep's collaborators.
type SweepDeps struct {
	Subscriptions ports.SubscriptionRepository
	Reminders     ports.ReminderRepository
	Messenger     ports.Messenger
	Logger        *slog.Logger
}

// Sweep runs the daily reminder pass: materialize reminder rows for due
// dates entering the lookahead window, then dispatch today's unsent rows.
// Each row operation commits independently, so an interrupted sweep leaves
// no partial state and the next run resumes cleanly.
type Sweep struct {
	subs      ports.SubscriptionRepository
	reminders ports.ReminderRepository
	messenger ports.Messenger
	logger    *slog.Logger

	// Guards against overlapping ticks; a tick that finds the previous one
	// still running is skipped, not queued.
	mu sync.Mutex
}

// lookaheads maps reminder kind to how many days before the due date the
// reminder fires.
var lookaheads = []struct {
	kind domain.ReminderKind
	days int
}{
	{domain.KindWeekBefore, 7},
	{domain.KindDayBefore, 1},
}

// NewSweep constructs the sweep.
func NewSweep(deps SweepDeps) *Sweep {
	return &Sweep{
		subs:      deps.Subscriptions,
		reminders: deps.Reminders,
		messenger: deps.Messenger,
		logger:    deps.Logger,
	}
}

// Run executes one full sweep for the day containing now.
func (s *Sweep) Run(ctx context.Context, now time.Time) error {
	if !s.mu.TryLock() {
		s.info("previous sweep still running, skipping tick")
		return nil
	}
	defer s.mu.Unlock()

	today := truncateToDay(now)

	if err := s.materialize(ctx, today); err != nil {
		s.warn("materialize pass failed", "error", err)
		return fmt.Errorf("materialize reminders: %w", err)
	}
	if err := s.dispatch(ctx, today); err != nil {
		s.warn("dispatch pass failed", "error", err)
		return err
	}
	return nil
}

// materialize inserts one unsent reminder per (subscription, kind) whose
// target date is today. The existence check behind CreateIfAbsent is the
// concurrency guard: running the pass twice for the same day inserts nothing
// the second time.
func (s *Sweep) materialize(ctx context.Context, today time.Time) error {
	subs, err := s.subs.AllActive(ctx)
	if err != nil {
		return fmt.Errorf("load active subscriptions: %w", err)
	}

	created := 0
	for _, sub := range subs {
		days := billing.DaysUntil(sub.BillingDay, today)
		for _, la := range lookaheads {
			if days != la.days {
				continue
			}
			inserted, err := s.reminders.CreateIfAbsent(ctx, domain.Reminder{
				SubscriptionID: sub.ID,
				TargetDate:     today,
				Kind:           la.kind,
			})
			if err != nil {
				// One subscription's failure must not abort the sweep.
				s.warn("create reminder", "subscription", sub.ID, "kind", la.kind, "error", err)
				continue
			}
			if inserted {
				created++
			}
		}
	}

	s.info("materialization pass done", "subscriptions", len(subs), "created", created)
	return nil
}

// dispatch sends every unsent reminder targeted at today. Only a confirmed
// delivery flips the sent flag; failed rows stay unsent and are retried on
// the next day's pass.
func (s *Sweep) dispatch(ctx context.Context, today time.Time) error {
	due, err := s.reminders.DueUnsent(ctx, today)
	if err != nil {
		return fmt.Errorf("load due reminders: %w", err)
	}

	sent := 0
	for _, r := range due {
		if err := s.messenger.Send(ctx, r.OwnerID, renderReminder(r)); err != nil {
			s.warn("deliver reminder", "reminder", r.ID, "owner", r.OwnerID, "error", err)
			continue
		}

		if err := s.reminders.MarkSent(ctx, r.ID); err != nil {
			s.warn("mark reminder sent", "reminder", r.ID, "error", err)
			continue
		}
		if err := s.subs.MarkReminded(ctx, r.SubscriptionID, today); err != nil {
			s.warn("update reminder bookkeeping", "subscription", r.SubscriptionID, "error", err)
		}
		sent++
	}

	s.info("dispatch pass done", "due", len(due), "sent", sent)
	return nil
}

func renderReminder(r domain.DueReminder) string {
	amount := fmt.Sprintf("%g %s", r.Amount, r.Currency)
	switch r.Kind {
	case domain.KindWeekBefore:
		return fmt.Sprintf("Heads up: your %s subscription renews in a week. Amount: %s.", r.ServiceName, amount)
	default:
		return fmt.Sprintf("Reminder: %s will be charged for %s tomorrow. Last chance to cancel if you don't use it.", amount, r.ServiceName)
	}
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func (s *Sweep) info(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Info(msg, args...)
	}
}

func (s *Sweep) warn(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}

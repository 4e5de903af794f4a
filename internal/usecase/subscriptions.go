package usecase

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"SubTrack/internal/billing"
	"SubTrack/internal/domain"
	"SubTrack/internal/ports"
)

// SubscriptionService exposes the listing, editing, statistics, and export
// operations over a user's subscriptions.
type SubscriptionService struct {
	repo   ports.SubscriptionRepository
	usage  ports.UsageRecorder
	logger *slog.Logger
}

// NewSubscriptionService wires the service with its repository.
func NewSubscriptionService(repo ports.SubscriptionRepository, usage ports.UsageRecorder, logger *slog.Logger) *SubscriptionService {
	return &SubscriptionService{repo: repo, usage: usage, logger: logger}
}

// UpcomingPayment is a subscription annotated with its next charge.
type UpcomingPayment struct {
	domain.Subscription
	DueDate   time.Time
	DaysUntil int
}

// Stats summarizes a user's active subscriptions.
type Stats struct {
	ActiveCount  int
	MonthlyTotal float64
	YearlyTotal  float64
	Average      float64
	Categories   []domain.CategoryTotal
}

// List returns the owner's active subscriptions ordered by billing day.
// Soft-deleted rows never appear.
func (s *SubscriptionService) List(ctx context.Context, ownerID int64) ([]domain.Subscription, error) {
	s.record(ctx, ownerID, "view_subscriptions", 0)
	subs, err := s.repo.ByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	return subs, nil
}

// Upcoming annotates each active subscription with its next due date,
// sorted soonest first.
func (s *SubscriptionService) Upcoming(ctx context.Context, ownerID int64, now time.Time) ([]UpcomingPayment, error) {
	s.record(ctx, ownerID, "view_upcoming", 0)
	subs, err := s.repo.ByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("load subscriptions: %w", err)
	}

	payments := make([]UpcomingPayment, 0, len(subs))
	for _, sub := range subs {
		payments = append(payments, UpcomingPayment{
			Subscription: sub,
			DueDate:      billing.NextDueDate(sub.BillingDay, now),
			DaysUntil:    billing.DaysUntil(sub.BillingDay, now),
		})
	}

	sort.Slice(payments, func(i, j int) bool {
		return payments[i].DaysUntil < payments[j].DaysUntil
	})
	return payments, nil
}

// Stats computes the financial summary and per-category breakdown.
func (s *SubscriptionService) Stats(ctx context.Context, ownerID int64) (Stats, error) {
	s.record(ctx, ownerID, "view_stats", 0)

	categories, err := s.repo.CategoryTotals(ctx, ownerID)
	if err != nil {
		return Stats{}, fmt.Errorf("category totals: %w", err)
	}

	var stats Stats
	stats.Categories = categories
	for _, cat := range categories {
		stats.ActiveCount += cat.Count
		stats.MonthlyTotal += cat.Total
	}
	stats.YearlyTotal = stats.MonthlyTotal * 12
	if stats.ActiveCount > 0 {
		stats.Average = stats.MonthlyTotal / float64(stats.ActiveCount)
	}
	return stats, nil
}

// Suggestions derives rule-based savings hints from the subscription list.
func (s *SubscriptionService) Suggestions(subs []domain.Subscription, now time.Time) []string {
	var (
		expensive int
		streaming int
		stale     int
	)
	cutoff := now.AddDate(0, -6, 0)

	for _, sub := range subs {
		if sub.Amount > 50 {
			expensive++
		}
		if sub.Category == domain.CategoryStreaming {
			streaming++
		}
		if !sub.CreatedAt.IsZero() && sub.CreatedAt.Before(cutoff) {
			stale++
		}
	}

	var hints []string
	if expensive > 0 {
		hints = append(hints, fmt.Sprintf("%d subscriptions cost more than 50 a month - consider cheaper alternatives.", expensive))
	}
	if streaming > 2 {
		hints = append(hints, fmt.Sprintf("%d streaming services - could you get by with fewer?", streaming))
	}
	if stale > 0 {
		hints = append(hints, fmt.Sprintf("%d subscriptions are older than 6 months - when did you last review them?", stale))
	}
	if len(hints) == 0 {
		hints = append(hints, "Looks like your subscriptions are well managed.")
	}
	return hints
}

// EditAmount updates the monthly amount of a subscription.
func (s *SubscriptionService) EditAmount(ctx context.Context, id, ownerID int64, amount float64) error {
	if amount <= 0 {
		return fmt.Errorf("amount must be positive")
	}
	return s.edit(ctx, id, ownerID, "edit_amount", func(sub *domain.Subscription) {
		sub.Amount = amount
	})
}

// EditBillingDay updates the day-of-month of a subscription.
func (s *SubscriptionService) EditBillingDay(ctx context.Context, id, ownerID int64, day int) error {
	if !domain.ValidBillingDay(day) {
		return fmt.Errorf("billing day must be between %d and %d", domain.MinBillingDay, domain.MaxBillingDay)
	}
	return s.edit(ctx, id, ownerID, "edit_billing_day", func(sub *domain.Subscription) {
		sub.BillingDay = day
	})
}

// EditCategory reassigns the subscription's category.
func (s *SubscriptionService) EditCategory(ctx context.Context, id, ownerID int64, category domain.Category) error {
	return s.edit(ctx, id, ownerID, "edit_category", func(sub *domain.Subscription) {
		sub.Category = category
	})
}

func (s *SubscriptionService) edit(ctx context.Context, id, ownerID int64, action string, mutate func(*domain.Subscription)) error {
	sub, err := s.repo.ByID(ctx, id, ownerID)
	if err != nil {
		return fmt.Errorf("load subscription %d: %w", id, err)
	}

	mutate(&sub)
	if err := s.repo.Update(ctx, sub); err != nil {
		return fmt.Errorf("update subscription %d: %w", id, err)
	}

	s.record(ctx, ownerID, action, id)
	return nil
}

// Delete soft-deletes a subscription: the row is deactivated, never removed,
// so historical statistics survive.
func (s *SubscriptionService) Delete(ctx context.Context, id, ownerID int64) error {
	if err := s.repo.Deactivate(ctx, id, ownerID); err != nil {
		return fmt.Errorf("deactivate subscription %d: %w", id, err)
	}
	s.record(ctx, ownerID, "delete_subscription", id)
	return nil
}

// ExportCSV renders the owner's active subscriptions as CSV.
func (s *SubscriptionService) ExportCSV(ctx context.Context, ownerID int64) (string, error) {
	s.record(ctx, ownerID, "export_data", 0)

	subs, err := s.repo.ByOwner(ctx, ownerID)
	if err != nil {
		return "", fmt.Errorf("load subscriptions: %w", err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"service", "amount", "currency", "billing_day", "category", "notes", "created_at"}); err != nil {
		return "", fmt.Errorf("write csv header: %w", err)
	}
	for _, sub := range subs {
		row := []string{
			sub.ServiceName,
			strconv.FormatFloat(sub.Amount, 'f', -1, 64),
			sub.Currency,
			strconv.Itoa(sub.BillingDay),
			string(sub.Category),
			sub.Notes,
			sub.CreatedAt.Format("2006-01-02"),
		}
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("write csv row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flush csv: %w", err)
	}
	return buf.String(), nil
}

func (s *SubscriptionService) record(ctx context.Context, ownerID int64, action string, subscriptionID int64) {
	if s.usage == nil {
		return
	}
	if err := s.usage.Record(ctx, ownerID, action, subscriptionID, ""); err != nil && s.logger != nil {
		s.logger.Warn("record usage", "action", action, "error", err)
	}
}

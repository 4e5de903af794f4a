package usecase

import (
	"context"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"SubTrack/internal/domain"
)

func TestUpcomingSortsBySoonestCharge(t *testing.T) {
	t.Parallel()

	repo := &memorySubRepo{subs: []domain.Subscription{
		activeSub(1, 100, "Netflix", 25),
		activeSub(2, 100, "Spotify", 12),
		activeSub(3, 100, "iCloud", 3),
	}}
	svc := NewSubscriptionService(repo, nil, nil)

	// March 10: Spotify in 2 days, Netflix in 15, iCloud rolls to April 3.
	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	payments, err := svc.Upcoming(context.Background(), 100, now)
	if err != nil {
		t.Fatalf("upcoming: %v", err)
	}

	wantOrder := []string{"Spotify", "Netflix", "iCloud"}
	if len(payments) != len(wantOrder) {
		t.Fatalf("got %d payments, want %d", len(payments), len(wantOrder))
	}
	for i, want := range wantOrder {
		if payments[i].ServiceName != want {
			t.Errorf("position %d = %s, want %s", i, payments[i].ServiceName, want)
		}
	}
	if payments[0].DaysUntil != 2 {
		t.Errorf("Spotify DaysUntil = %d, want 2", payments[0].DaysUntil)
	}
	if got := payments[2].DueDate; got.Month() != time.April || got.Day() != 3 {
		t.Errorf("iCloud due date = %v, want April 3", got)
	}
}

func TestStatsAggregatesActiveOnly(t *testing.T) {
	t.Parallel()

	netflix := activeSub(1, 100, "Netflix", 15)
	netflix.Category = domain.CategoryStreaming
	netflix.Amount = 40
	spotify := activeSub(2, 100, "Spotify", 20)
	spotify.Category = domain.CategoryMusic
	spotify.Amount = 20
	cancelled := activeSub(3, 100, "Gym", 5)
	cancelled.Amount = 200
	cancelled.Active = false

	repo := &memorySubRepo{subs: []domain.Subscription{netflix, spotify, cancelled}}
	svc := NewSubscriptionService(repo, nil, nil)

	stats, err := svc.Stats(context.Background(), 100)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.ActiveCount != 2 {
		t.Errorf("ActiveCount = %d, want 2", stats.ActiveCount)
	}
	if stats.MonthlyTotal != 60 {
		t.Errorf("MonthlyTotal = %g, want 60 (deactivated row must not count)", stats.MonthlyTotal)
	}
	if stats.YearlyTotal != 720 {
		t.Errorf("YearlyTotal = %g, want 720", stats.YearlyTotal)
	}
	if stats.Average != 30 {
		t.Errorf("Average = %g, want 30", stats.Average)
	}
}

func TestDeleteIsSoft(t *testing.T) {
	t.Parallel()

	repo := &memorySubRepo{subs: []domain.Subscription{activeSub(1, 100, "Netflix", 15)}}
	svc := NewSubscriptionService(repo, nil, nil)

	if err := svc.Delete(context.Background(), 1, 100); err != nil {
		t.Fatalf("delete: %v", err)
	}

	subs, err := svc.List(context.Background(), 100)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(subs) != 0 {
		t.Fatalf("deleted subscription still listed: %+v", subs)
	}
	// The row itself survives for history.
	if len(repo.subs) != 1 || repo.subs[0].Active {
		t.Fatalf("expected the row kept with Active=false, got %+v", repo.subs)
	}
}

func TestDeleteWrongOwnerFails(t *testing.T) {
	t.Parallel()

	repo := &memorySubRepo{subs: []domain.Subscription{activeSub(1, 100, "Netflix", 15)}}
	svc := NewSubscriptionService(repo, nil, nil)

	if err := svc.Delete(context.Background(), 1, 999); err == nil {
		t.Fatal("deleting another owner's subscription should fail")
	}
	if !repo.subs[0].Active {
		t.Fatal("foreign delete attempt deactivated the row")
	}
}

func TestEditBillingDayValidates(t *testing.T) {
	t.Parallel()

	repo := &memorySubRepo{subs: []domain.Subscription{activeSub(1, 100, "Netflix", 15)}}
	svc := NewSubscriptionService(repo, nil, nil)

	if err := svc.EditBillingDay(context.Background(), 1, 100, 29); err == nil {
		t.Fatal("day 29 should be rejected")
	}
	if err := svc.EditBillingDay(context.Background(), 1, 100, 28); err != nil {
		t.Fatalf("day 28 should be accepted: %v", err)
	}
	if repo.subs[0].BillingDay != 28 {
		t.Errorf("billing day = %d, want 28", repo.subs[0].BillingDay)
	}
}

func TestExportCSV(t *testing.T) {
	t.Parallel()

	sub := activeSub(1, 100, "Netflix", 15)
	sub.Category = domain.CategoryStreaming
	sub.Notes = "family plan, with \"4K\""
	sub.CreatedAt = time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC)
	repo := &memorySubRepo{subs: []domain.Subscription{sub}}
	svc := NewSubscriptionService(repo, nil, nil)

	out, err := svc.ExportCSV(context.Background(), 100)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	records, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	if err != nil {
		t.Fatalf("parse exported csv: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want header plus one row", len(records))
	}
	if records[0][0] != "service" || records[0][3] != "billing_day" {
		t.Errorf("unexpected header: %v", records[0])
	}
	row := records[1]
	want := []string{"Netflix", "39.9", "₪", "15", "streaming", `family plan, with "4K"`, "2026-01-05"}
	for i, field := range want {
		if row[i] != field {
			t.Errorf("field %d = %q, want %q", i, row[i], field)
		}
	}
}

func TestSuggestions(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)
	svc := NewSubscriptionService(&memorySubRepo{}, nil, nil)

	cheap := activeSub(1, 100, "iCloud", 5)
	cheap.Amount = 4
	cheap.CreatedAt = now.AddDate(0, -1, 0)
	if hints := svc.Suggestions([]domain.Subscription{cheap}, now); len(hints) != 1 ||
		!strings.Contains(hints[0], "well managed") {
		t.Fatalf("single cheap fresh subscription should look fine, got %v", hints)
	}

	var heavy []domain.Subscription
	for i := int64(0); i < 3; i++ {
		s := activeSub(i+1, 100, "Stream", 5)
		s.Category = domain.CategoryStreaming
		s.Amount = 60
		s.CreatedAt = now.AddDate(-1, 0, 0)
		heavy = append(heavy, s)
	}
	hints := svc.Suggestions(heavy, now)
	if len(hints) != 3 {
		t.Fatalf("expected expensive, streaming and stale hints, got %v", hints)
	}
}

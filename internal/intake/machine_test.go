package intake

import (
	"context"
	"errors"
	"testing"
	"time"

	"SubTrack/internal/domain"
)

var services = []string{"Netflix", "Spotify", "ChatGPT Plus", "YouTube Premium"}

type fakeSubRepo struct {
	created   []domain.Subscription
	createErr error
}

func (f *fakeSubRepo) Create(_ context.Context, sub domain.Subscription) (int64, error) {
	if f.createErr != nil {
		return 0, f.createErr
	}
	f.created = append(f.created, sub)
	return int64(len(f.created)), nil
}

func (f *fakeSubRepo) ByOwner(context.Context, int64) ([]domain.Subscription, error) {
	return nil, nil
}

func (f *fakeSubRepo) ByID(context.Context, int64, int64) (domain.Subscription, error) {
	return domain.Subscription{}, nil
}

func (f *fakeSubRepo) AllActive(context.Context) ([]domain.Subscription, error) { return nil, nil }
func (f *fakeSubRepo) Update(context.Context, domain.Subscription) error        { return nil }
func (f *fakeSubRepo) Deactivate(context.Context, int64, int64) error           { return nil }
func (f *fakeSubRepo) CategoryTotals(context.Context, int64) ([]domain.CategoryTotal, error) {
	return nil, nil
}
func (f *fakeSubRepo) MarkReminded(context.Context, int64, time.Time) error { return nil }

func TestFullManualFlow(t *testing.T) {
	t.Parallel()

	repo := &fakeSubRepo{}
	m := NewMachine(repo, nil, services, nil)
	ctx := context.Background()
	const conv int64 = 42

	if reply := m.Begin(ctx, conv); reply.State != StateService {
		t.Fatalf("expected service state, got %v", reply.State)
	}

	reply := m.HandleInput(ctx, conv, "Netflix")
	if reply.State != StateAmount {
		t.Fatalf("after service expected amount state, got %v", reply.State)
	}

	reply = m.HandleInput(ctx, conv, "39.90")
	if reply.State != StateCurrency {
		t.Fatalf("after amount expected currency state, got %v", reply.State)
	}

	reply = m.HandleInput(ctx, conv, "₪")
	if reply.State != StateDate {
		t.Fatalf("after currency expected date state, got %v", reply.State)
	}

	reply = m.HandleInput(ctx, conv, "15")
	if reply.State != StateIdle {
		t.Fatalf("after date expected idle state, got %v", reply.State)
	}

	if len(repo.created) != 1 {
		t.Fatalf("expected one committed subscription, got %d", len(repo.created))
	}
	sub := repo.created[0]
	if sub.OwnerID != conv || sub.ServiceName != "Netflix" || sub.Amount != 39.90 ||
		sub.Currency != "₪" || sub.BillingDay != 15 {
		t.Fatalf("unexpected committed subscription: %+v", sub)
	}
	if sub.Category != domain.CategoryStreaming {
		t.Fatalf("expected auto-detected streaming category, got %s", sub.Category)
	}
	if !sub.Active {
		t.Fatal("committed subscription must be active")
	}
	if sub.AutoDetected {
		t.Fatal("manual entry must not be flagged auto-detected")
	}
}

func TestInvalidAmountReprompts(t *testing.T) {
	t.Parallel()

	repo := &fakeSubRepo{}
	m := NewMachine(repo, nil, services, nil)
	ctx := context.Background()
	const conv int64 = 7

	m.Begin(ctx, conv)
	m.HandleInput(ctx, conv, "Spotify")

	for _, bad := range []string{"abc", "0", ""} {
		reply := m.HandleInput(ctx, conv, bad)
		if reply.State != StateAmount {
			t.Fatalf("input %q: expected to stay in amount state, got %v", bad, reply.State)
		}
	}
	if len(repo.created) != 0 {
		t.Fatal("draft must stay uncommitted after invalid amounts")
	}

	// Decorated input is stripped before parsing.
	if reply := m.HandleInput(ctx, conv, "$ 19.99 per month"); reply.State != StateCurrency {
		t.Fatalf("decorated amount should advance, got state %v", reply.State)
	}
}

func TestInvalidDayReprompts(t *testing.T) {
	t.Parallel()

	repo := &fakeSubRepo{}
	m := NewMachine(repo, nil, services, nil)
	ctx := context.Background()
	const conv int64 = 8

	m.Begin(ctx, conv)
	m.HandleInput(ctx, conv, "Notion")
	m.HandleInput(ctx, conv, "10")
	m.HandleInput(ctx, conv, "USD")

	for _, bad := range []string{"0", "29", "31", "fifteen"} {
		reply := m.HandleInput(ctx, conv, bad)
		if reply.State != StateDate {
			t.Fatalf("input %q: expected to stay in date state, got %v", bad, reply.State)
		}
	}
	if len(repo.created) != 0 {
		t.Fatal("draft must stay uncommitted after invalid days")
	}

	if reply := m.HandleInput(ctx, conv, "28"); reply.State != StateIdle {
		t.Fatalf("day 28 should commit, got state %v", reply.State)
	}
	if repo.created[0].BillingDay != 28 {
		t.Fatalf("unexpected billing day: %d", repo.created[0].BillingDay)
	}
}

func TestNumberedShortlistSelection(t *testing.T) {
	t.Parallel()

	repo := &fakeSubRepo{}
	m := NewMachine(repo, nil, services, nil)
	ctx := context.Background()
	const conv int64 = 9

	m.Begin(ctx, conv)

	if reply := m.HandleInput(ctx, conv, "99"); reply.State != StateService {
		t.Fatalf("out-of-range index should re-prompt, got %v", reply.State)
	}

	m.HandleInput(ctx, conv, "2")
	m.HandleInput(ctx, conv, "19.90")
	m.HandleInput(ctx, conv, "$")
	m.HandleInput(ctx, conv, "1")

	if len(repo.created) != 1 || repo.created[0].ServiceName != "Spotify" {
		t.Fatalf("expected Spotify from shortlist index 2, got %+v", repo.created)
	}
}

func TestCustomCurrencyNormalized(t *testing.T) {
	t.Parallel()

	repo := &fakeSubRepo{}
	m := NewMachine(repo, nil, services, nil)
	ctx := context.Background()
	const conv int64 = 10

	m.Begin(ctx, conv)
	m.HandleInput(ctx, conv, "Dropbox")
	m.HandleInput(ctx, conv, "12")

	if reply := m.HandleInput(ctx, conv, "toolong"); reply.State != StateCurrency {
		t.Fatalf("over-long code should re-prompt, got %v", reply.State)
	}

	m.HandleInput(ctx, conv, "chf")
	m.HandleInput(ctx, conv, "3")

	if repo.created[0].Currency != "CHF" {
		t.Fatalf("custom code should be uppercased, got %q", repo.created[0].Currency)
	}
}

func TestCancelDiscardsDraft(t *testing.T) {
	t.Parallel()

	repo := &fakeSubRepo{}
	m := NewMachine(repo, nil, services, nil)
	ctx := context.Background()
	const conv int64 = 11

	m.Begin(ctx, conv)
	m.HandleInput(ctx, conv, "Netflix")
	m.HandleInput(ctx, conv, "39.90")

	if reply := m.Cancel(ctx, conv); reply.State != StateIdle {
		t.Fatalf("cancel should return to idle, got %v", reply.State)
	}
	if m.StateOf(conv) != StateIdle {
		t.Fatal("conversation should be idle after cancel")
	}
	if len(repo.created) != 0 {
		t.Fatal("cancel must not persist anything")
	}
}

func TestBeginFromReceiptEntersDateState(t *testing.T) {
	t.Parallel()

	repo := &fakeSubRepo{}
	m := NewMachine(repo, nil, services, nil)
	ctx := context.Background()
	const conv int64 = 12

	parsed := domain.ParsedReceipt{
		Service:    "Netflix",
		Amount:     39.90,
		Currency:   "₪",
		Confidence: 0.9,
	}

	if reply := m.BeginFromReceipt(ctx, conv, parsed); reply.State != StateDate {
		t.Fatalf("expected date state, got %v", reply.State)
	}

	// Date validation still applies to pre-seeded drafts.
	if reply := m.HandleInput(ctx, conv, "30"); reply.State != StateDate {
		t.Fatalf("invalid day should re-prompt, got %v", reply.State)
	}

	m.HandleInput(ctx, conv, "5")

	if len(repo.created) != 1 {
		t.Fatalf("expected one committed subscription, got %d", len(repo.created))
	}
	sub := repo.created[0]
	if !sub.AutoDetected || sub.Confidence != 0.9 {
		t.Fatalf("provenance fields not carried: %+v", sub)
	}
	if sub.ServiceName != "Netflix" || sub.Amount != 39.90 || sub.Currency != "₪" || sub.BillingDay != 5 {
		t.Fatalf("unexpected committed subscription: %+v", sub)
	}
}

func TestCommitFailureKeepsState(t *testing.T) {
	t.Parallel()

	repo := &fakeSubRepo{createErr: errors.New("store down")}
	m := NewMachine(repo, nil, services, nil)
	ctx := context.Background()
	const conv int64 = 13

	m.Begin(ctx, conv)
	m.HandleInput(ctx, conv, "Netflix")
	m.HandleInput(ctx, conv, "39.90")
	m.HandleInput(ctx, conv, "₪")

	if reply := m.HandleInput(ctx, conv, "15"); reply.State != StateDate {
		t.Fatalf("commit failure should keep date state for retry, got %v", reply.State)
	}

	// Store recovers; retry succeeds.
	repo.createErr = nil
	if reply := m.HandleInput(ctx, conv, "15"); reply.State != StateIdle {
		t.Fatalf("retry after recovery should commit, got %v", reply.State)
	}
}

func TestDraftsAreIndependentAcrossConversations(t *testing.T) {
	t.Parallel()

	repo := &fakeSubRepo{}
	m := NewMachine(repo, nil, services, nil)
	ctx := context.Background()

	m.Begin(ctx, 1)
	m.Begin(ctx, 2)
	m.HandleInput(ctx, 1, "Netflix")
	m.HandleInput(ctx, 2, "Spotify")

	if m.StateOf(1) != StateAmount || m.StateOf(2) != StateAmount {
		t.Fatal("both conversations should be in amount state")
	}

	m.HandleInput(ctx, 1, "39.90")
	m.HandleInput(ctx, 1, "₪")
	m.HandleInput(ctx, 1, "15")

	if m.StateOf(2) != StateAmount {
		t.Fatal("committing one conversation must not touch another")
	}
	if len(repo.created) != 1 || repo.created[0].ServiceName != "Netflix" {
		t.Fatalf("unexpected commits: %+v", repo.created)
	}
}

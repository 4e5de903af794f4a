package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"SubTrack/internal/domain"
	"SubTrack/internal/ports"
)

// psql builds queries with Postgres dollar placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var subscriptionColumns = []string{
	"id", "owner_id", "service_name", "amount", "currency", "billing_day",
	"category", "notes", "active", "auto_detected", "confidence",
	"last_reminder_sent", "times_reminded", "created_at", "updated_at",
}

// SubscriptionRepo persists subscriptions into Postgres.
type SubscriptionRepo struct {
	db *sql.DB
}

var _ ports.SubscriptionRepository = (*SubscriptionRepo)(nil)

// NewSubscriptionRepo wires a sql.DB implementation.
func NewSubscriptionRepo(db *sql.DB) *SubscriptionRepo {
	return &SubscriptionRepo{db: db}
}

// Create inserts a subscription and returns its id.
func (r *SubscriptionRepo) Create(ctx context.Context, sub domain.Subscription) (int64, error) {
	query, args, err := psql.Insert("subscriptions").
		Columns("owner_id", "service_name", "amount", "currency", "billing_day",
			"category", "notes", "active", "auto_detected", "confidence").
		Values(sub.OwnerID, sub.ServiceName, sub.Amount, sub.Currency, sub.BillingDay,
			sub.Category, sub.Notes, true, sub.AutoDetected, sub.Confidence).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert: %w", err)
	}

	var id int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert subscription: %w", err)
	}
	return id, nil
}

// ByOwner returns the owner's active subscriptions ordered by billing day.
func (r *SubscriptionRepo) ByOwner(ctx context.Context, ownerID int64) ([]domain.Subscription, error) {
	query, args, err := psql.Select(subscriptionColumns...).
		From("subscriptions").
		Where(sq.Eq{"owner_id": ownerID, "active": true}).
		OrderBy("billing_day", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}
	return r.querySubscriptions(ctx, query, args)
}

// ByID returns one active subscription owned by ownerID.
func (r *SubscriptionRepo) ByID(ctx context.Context, id, ownerID int64) (domain.Subscription, error) {
	query, args, err := psql.Select(subscriptionColumns...).
		From("subscriptions").
		Where(sq.Eq{"id": id, "owner_id": ownerID, "active": true}).
		ToSql()
	if err != nil {
		return domain.Subscription{}, fmt.Errorf("build select: %w", err)
	}

	sub, err := scanSubscription(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return domain.Subscription{}, fmt.Errorf("load subscription: %w", err)
	}
	return sub, nil
}

// AllActive returns every active subscription across all owners.
func (r *SubscriptionRepo) AllActive(ctx context.Context) ([]domain.Subscription, error) {
	query, args, err := psql.Select(subscriptionColumns...).
		From("subscriptions").
		Where(sq.Eq{"active": true}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}
	return r.querySubscriptions(ctx, query, args)
}

// Update rewrites the mutable fields of a subscription.
func (r *SubscriptionRepo) Update(ctx context.Context, sub domain.Subscription) error {
	query, args, err := psql.Update("subscriptions").
		Set("service_name", sub.ServiceName).
		Set("amount", sub.Amount).
		Set("currency", sub.Currency).
		Set("billing_day", sub.BillingDay).
		Set("category", sub.Category).
		Set("notes", sub.Notes).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": sub.ID, "owner_id": sub.OwnerID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}
	return requireAffected(res)
}

// Deactivate soft-deletes the subscription.
func (r *SubscriptionRepo) Deactivate(ctx context.Context, id, ownerID int64) error {
	query, args, err := psql.Update("subscriptions").
		Set("active", false).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id, "owner_id": ownerID, "active": true}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("deactivate subscription: %w", err)
	}
	return requireAffected(res)
}

// CategoryTotals aggregates the owner's active subscriptions per category,
// biggest spend first.
func (r *SubscriptionRepo) CategoryTotals(ctx context.Context, ownerID int64) ([]domain.CategoryTotal, error) {
	query, args, err := psql.Select("category", "COUNT(*)", "SUM(amount)").
		From("subscriptions").
		Where(sq.Eq{"owner_id": ownerID, "active": true}).
		GroupBy("category").
		OrderBy("SUM(amount) DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query category totals: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var totals []domain.CategoryTotal
	for rows.Next() {
		var t domain.CategoryTotal
		if err := rows.Scan(&t.Category, &t.Count, &t.Total); err != nil {
			return nil, fmt.Errorf("scan category total: %w", err)
		}
		totals = append(totals, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return totals, nil
}

// MarkReminded records that a reminder for the subscription went out.
func (r *SubscriptionRepo) MarkReminded(ctx context.Context, id int64, day time.Time) error {
	query, args, err := psql.Update("subscriptions").
		Set("last_reminder_sent", day).
		Set("times_reminded", sq.Expr("times_reminded + 1")).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("mark reminded: %w", err)
	}
	return nil
}

func (r *SubscriptionRepo) querySubscriptions(ctx context.Context, query string, args []interface{}) ([]domain.Subscription, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query subscriptions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var subs []domain.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return subs, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSubscription(row rowScanner) (domain.Subscription, error) {
	var (
		sub          domain.Subscription
		lastReminder sql.NullTime
	)
	err := row.Scan(
		&sub.ID, &sub.OwnerID, &sub.ServiceName, &sub.Amount, &sub.Currency,
		&sub.BillingDay, &sub.Category, &sub.Notes, &sub.Active,
		&sub.AutoDetected, &sub.Confidence, &lastReminder,
		&sub.TimesReminded, &sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		return domain.Subscription{}, fmt.Errorf("scan subscription: %w", err)
	}
	if lastReminder.Valid {
		sub.LastReminderSent = lastReminder.Time
	}
	return sub, nil
}

func requireAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

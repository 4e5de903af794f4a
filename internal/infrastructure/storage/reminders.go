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

// ReminderRepo persists reminder rows into Postgres.
type ReminderRepo struct {
	db *sql.DB
}

var _ ports.ReminderRepository = (*ReminderRepo)(nil)

// NewReminderRepo wires a sql.DB implementation.
func NewReminderRepo(db *sql.DB) *ReminderRepo {
	return &ReminderRepo{db: db}
}

// CreateIfAbsent inserts the reminder unless its idempotency key already
// exists. ON CONFLICT DO NOTHING keeps concurrent sweeps from duplicating
// rows; the affected count tells the caller whether this run inserted it.
func (r *ReminderRepo) CreateIfAbsent(ctx context.Context, rem domain.Reminder) (bool, error) {
	query, args, err := psql.Insert("reminders").
		Columns("subscription_id", "target_date", "kind").
		Values(rem.SubscriptionID, rem.TargetDate, string(rem.Kind)).
		Suffix("ON CONFLICT (subscription_id, kind, target_date) DO NOTHING").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build insert: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("insert reminder: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// DueUnsent returns unsent reminders targeted at the given day, joined with
// their still-active subscriptions.
func (r *ReminderRepo) DueUnsent(ctx context.Context, day time.Time) ([]domain.DueReminder, error) {
	query, args, err := psql.Select(
		"r.id", "r.subscription_id", "r.target_date", "r.kind", "r.created_at",
		"s.owner_id", "s.service_name", "s.amount", "s.currency").
		From("reminders r").
		Join("subscriptions s ON s.id = r.subscription_id").
		Where(sq.Eq{"r.target_date": day, "r.sent": false, "s.active": true}).
		OrderBy("r.id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query due reminders: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var due []domain.DueReminder
	for rows.Next() {
		var d domain.DueReminder
		err := rows.Scan(
			&d.ID, &d.SubscriptionID, &d.TargetDate, &d.Kind, &d.CreatedAt,
			&d.OwnerID, &d.ServiceName, &d.Amount, &d.Currency,
		)
		if err != nil {
			return nil, fmt.Errorf("scan due reminder: %w", err)
		}
		due = append(due, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return due, nil
}

// MarkSent flips a delivered reminder to sent.
func (r *ReminderRepo) MarkSent(ctx context.Context, id int64) error {
	query, args, err := psql.Update("reminders").
		Set("sent", true).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("mark sent: %w", err)
	}
	return requireAffected(res)
}

package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"SubTrack/internal/domain"
	"SubTrack/internal/ports"
)

// SettingsRepo persists per-owner preferences into Postgres.
type SettingsRepo struct {
	db *sql.DB
}

var _ ports.SettingsRepository = (*SettingsRepo)(nil)

// NewSettingsRepo wires a sql.DB implementation.
func NewSettingsRepo(db *sql.DB) *SettingsRepo {
	return &SettingsRepo{db: db}
}

// Ensure returns the owner's settings, creating the default row on first
// contact. The insert races harmlessly: ON CONFLICT keeps the existing row.
func (r *SettingsRepo) Ensure(ctx context.Context, ownerID int64) (domain.Settings, error) {
	insert, args, err := psql.Insert("user_settings").
		Columns("owner_id").
		Values(ownerID).
		Suffix("ON CONFLICT (owner_id) DO NOTHING").
		ToSql()
	if err != nil {
		return domain.Settings{}, fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, insert, args...); err != nil {
		return domain.Settings{}, fmt.Errorf("ensure settings: %w", err)
	}

	query, args, err := psql.Select(
		"owner_id", "timezone", "notification_time", "preferred_currency",
		"weekly_summary", "created_at", "updated_at").
		From("user_settings").
		Where(sq.Eq{"owner_id": ownerID}).
		ToSql()
	if err != nil {
		return domain.Settings{}, fmt.Errorf("build select: %w", err)
	}

	var s domain.Settings
	err = r.db.QueryRowContext(ctx, query, args...).Scan(
		&s.OwnerID, &s.Timezone, &s.NotificationTime, &s.PreferredCurrency,
		&s.WeeklySummary, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return domain.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	return s, nil
}

package storage

import (
	"context"
	"database/sql"
	"fmt"

	"SubTrack/internal/ports"
)

// UsageRepo appends usage rows into Postgres. Recording is best-effort:
// callers log failures and move on.
type UsageRepo struct {
	db *sql.DB
}

var _ ports.UsageRecorder = (*UsageRepo)(nil)

// NewUsageRepo wires a sql.DB implementation.
func NewUsageRepo(db *sql.DB) *UsageRepo {
	return &UsageRepo{db: db}
}

// Record appends one usage row.
func (r *UsageRepo) Record(ctx context.Context, ownerID int64, action string, subscriptionID int64, sessionID string) error {
	if r.db == nil {
		return nil
	}

	query := `INSERT INTO usage_stats (owner_id, action, subscription_id, session_id)
              VALUES ($1, $2, NULLIF($3, 0), $4)`

	if _, err := r.db.ExecContext(ctx, query, ownerID, action, subscriptionID, sessionID); err != nil {
		return fmt.Errorf("insert usage row: %w", err)
	}
	return nil
}

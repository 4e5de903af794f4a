package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// schema creates the tables on first start. The unique index on
// (subscription_id, kind, target_date) backs the reminder idempotency key.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS subscriptions (
		id BIGSERIAL PRIMARY KEY,
		owner_id BIGINT NOT NULL,
		service_name TEXT NOT NULL,
		amount DOUBLE PRECISION NOT NULL,
		currency TEXT NOT NULL,
		billing_day INT NOT NULL,
		category TEXT NOT NULL DEFAULT 'other',
		notes TEXT NOT NULL DEFAULT '',
		active BOOLEAN NOT NULL DEFAULT TRUE,
		auto_detected BOOLEAN NOT NULL DEFAULT FALSE,
		confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
		last_reminder_sent TIMESTAMPTZ,
		times_reminded INT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_subscriptions_owner
		ON subscriptions (owner_id) WHERE active`,

	`CREATE TABLE IF NOT EXISTS reminders (
		id BIGSERIAL PRIMARY KEY,
		subscription_id BIGINT NOT NULL REFERENCES subscriptions (id),
		target_date DATE NOT NULL,
		kind TEXT NOT NULL,
		sent BOOLEAN NOT NULL DEFAULT FALSE,
		user_response TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (subscription_id, kind, target_date)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_reminders_due
		ON reminders (target_date) WHERE NOT sent`,

	`CREATE TABLE IF NOT EXISTS user_settings (
		owner_id BIGINT PRIMARY KEY,
		timezone TEXT NOT NULL DEFAULT 'Asia/Jerusalem',
		notification_time TEXT NOT NULL DEFAULT '09:00',
		preferred_currency TEXT NOT NULL DEFAULT '₪',
		weekly_summary BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS usage_stats (
		id BIGSERIAL PRIMARY KEY,
		owner_id BIGINT NOT NULL,
		action TEXT NOT NULL,
		subscription_id BIGINT,
		session_id TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// InitSchema applies the schema statements in order.
func InitSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

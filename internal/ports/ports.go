package ports

import (
	"context"
	"time"

	"SubTrack/internal/domain"
)

// SubscriptionRepository persists subscriptions. Removal is a soft delete:
// rows are deactivated, never destroyed.
type SubscriptionRepository interface {
	Create(ctx context.Context, sub domain.Subscription) (int64, error)
	ByOwner(ctx context.Context, ownerID int64) ([]domain.Subscription, error)
	ByID(ctx context.Context, id, ownerID int64) (domain.Subscription, error)
	AllActive(ctx context.Context) ([]domain.Subscription, error)
	Update(ctx context.Context, sub domain.Subscription) error
	Deactivate(ctx context.Context, id, ownerID int64) error
	CategoryTotals(ctx context.Context, ownerID int64) ([]domain.CategoryTotal, error)
	MarkReminded(ctx context.Context, id int64, day time.Time) error
}

// ReminderRepository persists reminder rows keyed by
// (subscription_id, kind, target_date).
type ReminderRepository interface {
	// CreateIfAbsent inserts the reminder unless one already exists for its
	// idempotency key. It reports whether a row was inserted.
	CreateIfAbsent(ctx context.Context, r domain.Reminder) (bool, error)
	// DueUnsent returns unsent reminders targeted at the given day, joined
	// with their active subscriptions.
	DueUnsent(ctx context.Context, day time.Time) ([]domain.DueReminder, error)
	MarkSent(ctx context.Context, id int64) error
}

// SettingsRepository manages per-owner preference rows.
type SettingsRepository interface {
	Ensure(ctx context.Context, ownerID int64) (domain.Settings, error)
}

// UsageRecorder logs user actions best-effort for usage statistics.
type UsageRecorder interface {
	Record(ctx context.Context, ownerID int64, action string, subscriptionID int64, sessionID string) error
}

// Messenger delivers a text message to a recipient. A nil error means the
// transport confirmed delivery.
type Messenger interface {
	Send(ctx context.Context, recipientID int64, text string) error
}

// TextRecognizer turns an acquired image into recognized text.
type TextRecognizer interface {
	Recognize(ctx context.Context, image []byte) (string, error)
}

// Scheduler controls when the reminder sweep executes.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}

package domain

import "time"

// ReminderKind distinguishes the two lookahead reminders per due date.
type ReminderKind string

const (
	KindWeekBefore ReminderKind = "week_before"
	KindDayBefore  ReminderKind = "day_before"
)

// Reminder is one scheduled notification row. The triple
// (SubscriptionID, Kind, TargetDate) is the idempotency key: at most one
// reminder exists per triple, created unsent and flipped to sent at most once.
type Reminder struct {
	ID             int64
	SubscriptionID int64
	TargetDate     time.Time
	Kind           ReminderKind
	Sent           bool
	UserResponse   string
	CreatedAt      time.Time
}

// DueReminder is a reminder joined with the subscription fields the
// dispatcher needs to render and address the message.
type DueReminder struct {
	Reminder
	OwnerID     int64
	ServiceName string
	Amount      float64
	Currency    string
}

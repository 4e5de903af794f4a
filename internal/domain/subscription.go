package domain

import "time"

// Subscription is a core entity describing one recurring paid service.
type Subscription struct {
	ID          int64
	OwnerID     int64
	ServiceName string
	Amount      float64
	Currency    string
	BillingDay  int
	Category    Category
	Notes       string
	Active      bool

	// Provenance of auto-detected records.
	AutoDetected bool
	Confidence   float64

	// Reminder bookkeeping maintained by the dispatcher.
	LastReminderSent time.Time
	TimesReminded    int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// MinBillingDay and MaxBillingDay bound the day-of-month a subscription may
// charge on. Capping at 28 keeps every month valid without short-month rules.
const (
	MinBillingDay = 1
	MaxBillingDay = 28
)

// ValidBillingDay reports whether day is inside the allowed range.
func ValidBillingDay(day int) bool {
	return day >= MinBillingDay && day <= MaxBillingDay
}

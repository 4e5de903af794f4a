package domain

import "time"

// Settings holds per-owner preferences, created with defaults on first contact.
type Settings struct {
	OwnerID           int64
	Timezone          string
	NotificationTime  string
	PreferredCurrency string
	WeeklySummary     bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// CategoryTotal is one row of the per-category spending aggregation.
type CategoryTotal struct {
	Category Category
	Count    int
	Total    float64
}

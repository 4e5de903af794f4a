// Package billing computes due dates for fixed day-of-month subscriptions.
package billing

import "time"

// NextDueDate returns the next date on or after ref whose day of month equals
// billingDay. With billingDay capped at 28 the target day exists in every
// month; December rolls into January of the following year.
func NextDueDate(billingDay int, ref time.Time) time.Time {
	year, month, day := ref.Date()
	if billingDay >= day {
		return time.Date(year, month, billingDay, 0, 0, 0, 0, ref.Location())
	}
	// time.Date normalizes month 13 to January of year+1.
	return time.Date(year, month+1, billingDay, 0, 0, 0, 0, ref.Location())
}

// DaysUntil returns how many days remain from ref until the next charge.
// Zero means the subscription is due today. The rollover branch uses the
// actual length of the reference month, not a fixed 30-day approximation.
func DaysUntil(billingDay int, ref time.Time) int {
	day := ref.Day()
	if billingDay >= day {
		return billingDay - day
	}
	return daysInMonth(ref) - day + billingDay
}

// daysInMonth returns the calendar length of the month containing t.
func daysInMonth(t time.Time) int {
	// Day zero of the following month is the last day of this one.
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
}

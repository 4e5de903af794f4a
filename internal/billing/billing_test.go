package billing

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestDaysUntilSameDay(t *testing.T) {
	t.Parallel()

	for day := 1; day <= 28; day++ {
		ref := date(2025, time.March, day)
		if got := DaysUntil(day, ref); got != 0 {
			t.Fatalf("day %d: expected due today, got %d", day, got)
		}
		if due := NextDueDate(day, ref); !due.Equal(ref) {
			t.Fatalf("day %d: expected due date %v, got %v", day, ref, due)
		}
	}
}

func TestDaysUntilRolloverUsesCalendarLength(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		ref        time.Time
		billingDay int
		want       int
		wantDue    time.Time
	}{
		{
			name:       "30 day month",
			ref:        date(2025, time.September, 20),
			billingDay: 5,
			want:       15, // 10 days left in September plus 5
			wantDue:    date(2025, time.October, 5),
		},
		{
			name:       "31 day month",
			ref:        date(2025, time.January, 20),
			billingDay: 5,
			want:       16,
			wantDue:    date(2025, time.February, 5),
		},
		{
			name:       "february non leap",
			ref:        date(2025, time.February, 27),
			billingDay: 3,
			want:       4,
			wantDue:    date(2025, time.March, 3),
		},
		{
			name:       "february leap year",
			ref:        date(2024, time.February, 27),
			billingDay: 3,
			want:       5,
			wantDue:    date(2024, time.March, 3),
		},
		{
			name:       "december rolls to january",
			ref:        date(2025, time.December, 28),
			billingDay: 10,
			want:       13,
			wantDue:    date(2026, time.January, 10),
		},
		{
			name:       "still ahead in current month",
			ref:        date(2025, time.June, 3),
			billingDay: 21,
			want:       18,
			wantDue:    date(2025, time.June, 21),
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := DaysUntil(tc.billingDay, tc.ref); got != tc.want {
				t.Fatalf("DaysUntil = %d, want %d", got, tc.want)
			}
			if due := NextDueDate(tc.billingDay, tc.ref); !due.Equal(tc.wantDue) {
				t.Fatalf("NextDueDate = %v, want %v", due, tc.wantDue)
			}
		})
	}
}

// The due date is never before the reference date, lands within one calendar
// month, and DaysUntil agrees with the real gap between the two dates.
func TestDueDateProperties(t *testing.T) {
	t.Parallel()

	start := date(2024, time.January, 1)
	for offset := 0; offset < 730; offset++ {
		ref := start.AddDate(0, 0, offset)
		for day := 1; day <= 28; day++ {
			due := NextDueDate(day, ref)
			if due.Before(ref) {
				t.Fatalf("ref %v day %d: due date %v is in the past", ref, day, due)
			}
			if due.After(ref.AddDate(0, 1, 0)) {
				t.Fatalf("ref %v day %d: due date %v is more than a month out", ref, day, due)
			}
			if due.Day() != day {
				t.Fatalf("ref %v day %d: due date %v has wrong day", ref, day, due)
			}

			gap := int(due.Sub(ref).Hours() / 24)
			if got := DaysUntil(day, ref); got != gap {
				t.Fatalf("ref %v day %d: DaysUntil = %d, real gap %d", ref, day, got, gap)
			}
		}
	}
}

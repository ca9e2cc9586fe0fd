package circulation

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultFinePerDay is the overdue charge per whole day late.
var DefaultFinePerDay = decimal.New(50, -2)

// CalendarDate drops the time of day, keeping t's calendar day as
// midnight UTC. All loan dates are stored in this form.
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DueDate is today's calendar date plus the loan period.
func DueDate(today time.Time, periodDays int) time.Time {
	return CalendarDate(today).AddDate(0, 0, periodDays)
}

// DaysLate counts whole calendar days from due to settlement, never negative.
func DaysLate(due, settlement time.Time) int {
	days := int(CalendarDate(settlement).Sub(CalendarDate(due)).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// Fine is zero unless settlement falls after due; otherwise rate per day
// late, rounded to cents.
func Fine(due, settlement time.Time, rate decimal.Decimal) decimal.Decimal {
	days := DaysLate(due, settlement)
	if days == 0 {
		return decimal.Zero
	}
	return rate.Mul(decimal.NewFromInt(int64(days))).Round(2)
}

// IsOverdue reports whether a loan due on due is overdue on today.
// The due date itself is not overdue, matching Fine.
func IsOverdue(due, today time.Time) bool {
	return CalendarDate(today).After(CalendarDate(due))
}

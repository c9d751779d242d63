package scheduling

import (
	"time"

	"github.com/fabtrack/fabtrack-backend/internal/projects"
)

// NextBusinessDay returns the first day on or after t that cutting work may
// be scheduled. Monday through Thursday schedule same-day; Friday and the
// weekend roll forward to the following Monday so nothing lands on a
// non-working day.
func NextBusinessDay(t time.Time) time.Time {
	day := projects.DateOnly(t)
	switch day.Weekday() {
	case time.Friday:
		return day.AddDate(0, 0, 3)
	case time.Saturday:
		return day.AddDate(0, 0, 2)
	case time.Sunday:
		return day.AddDate(0, 0, 1)
	default:
		return day
	}
}

// Package calendar provides the business-day arithmetic used by the CA
// engine: a pluggable holiday source and an inclusive weekday counter.
package calendar

import "time"

// HolidayProvider reports whether a given date is a non-working public
// holiday. Implementations must treat the argument as a calendar date;
// the time-of-day portion is ignored.
type HolidayProvider interface {
	IsHoliday(t time.Time) bool
}

// frenchHolidays is the curated list of French public holidays for the years
// the application is expected to run. The list has no generation rule and
// must be extended each year.
var frenchHolidays = []string{
	// 2024
	"2024-01-01", "2024-04-01", "2024-05-01", "2024-05-08", "2024-05-09",
	"2024-05-20", "2024-07-14", "2024-08-15", "2024-11-01", "2024-11-11",
	"2024-12-25",
	// 2025
	"2025-01-01", "2025-04-21", "2025-05-01", "2025-05-08", "2025-05-29",
	"2025-06-09", "2025-07-14", "2025-08-15", "2025-11-01", "2025-11-11",
	"2025-12-25",
	// 2026
	"2026-01-01", "2026-04-06", "2026-05-01", "2026-05-08", "2026-05-14",
	"2026-05-25", "2026-07-14", "2026-08-15", "2026-11-01", "2026-11-11",
	"2026-12-25",
	// 2027
	"2027-01-01", "2027-03-29", "2027-05-01", "2027-05-06", "2027-05-08",
	"2027-05-17", "2027-07-14", "2027-08-15", "2027-11-01", "2027-11-11",
	"2027-12-25",
}

// ListCalendar is a HolidayProvider backed by an explicit set of dates.
type ListCalendar struct {
	days map[string]struct{}
}

// NewListCalendar builds a calendar from ISO date strings. Unparseable
// entries are ignored rather than rejected; the list is maintained by hand
// and a typo must not take the whole service down.
func NewListCalendar(isoDates []string) *ListCalendar {
	days := make(map[string]struct{}, len(isoDates))
	for _, d := range isoDates {
		if _, err := time.Parse("2006-01-02", d); err != nil {
			continue
		}
		days[d] = struct{}{}
	}
	return &ListCalendar{days: days}
}

// FrenchHolidays returns the built-in French public-holiday calendar.
func FrenchHolidays() *ListCalendar {
	return NewListCalendar(frenchHolidays)
}

// IsHoliday reports whether t falls on a listed holiday.
func (c *ListCalendar) IsHoliday(t time.Time) bool {
	_, ok := c.days[t.Format("2006-01-02")]
	return ok
}

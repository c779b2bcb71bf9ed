package calendar

import (
	"errors"
	"time"
)

// ErrInvalidRange is returned when either endpoint is the zero time or the
// end precedes the start. Callers must not treat the accompanying zero count
// as a valid result.
var ErrInvalidRange = errors.New("invalid date range")

// CountBusinessDays counts the weekdays (Monday through Friday) in the
// inclusive range [start, end] that are not holidays according to cal.
// A single-day range yields 1 or 0 depending on that day alone.
func CountBusinessDays(start, end time.Time, cal HolidayProvider) (int, error) {
	if start.IsZero() || end.IsZero() {
		return 0, ErrInvalidRange
	}

	start = day(start)
	end = day(end)
	if end.Before(start) {
		return 0, ErrInvalidRange
	}

	count := 0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		wd := d.Weekday()
		if wd == time.Saturday || wd == time.Sunday {
			continue
		}
		if cal != nil && cal.IsHoliday(d) {
			continue
		}
		count++
	}

	return count, nil
}

func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

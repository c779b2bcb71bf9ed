// Package analytics implements the CA (chiffre d'affaires) engine: date-range
// allocation of rental revenue across calendar months, business-day billing
// with the long-duration discount and minimum-billing floor, and the
// estimated / confirmed / historical monthly aggregates.
//
// The engine is pure: it operates on read-only snapshots handed in by the
// caller and never mutates equipment or history records.
package analytics

import (
	"fmt"
	"time"
)

// Range is a closed interval of calendar dates, both endpoints inclusive.
type Range struct {
	Start time.Time
	End   time.Time
}

// Intersect returns the overlap of two closed date intervals, i.e.
// [max(starts), min(ends)], and false when the intervals are disjoint.
func Intersect(a, b Range) (Range, bool) {
	start := a.Start
	if b.Start.After(start) {
		start = b.Start
	}

	end := a.End
	if b.End.Before(end) {
		end = b.End
	}

	if start.After(end) {
		return Range{}, false
	}
	return Range{Start: start, End: end}, true
}

// Period identifies a calendar month. Month follows time.Month (January = 1).
type Period struct {
	Year  int
	Month time.Month
}

// PeriodOf returns the period containing t.
func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: t.Month()}
}

// FirstDay returns the first calendar day of the period, midnight UTC.
func (p Period) FirstDay() time.Time {
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC)
}

// LastDay returns the last calendar day of the period, midnight UTC.
func (p Period) LastDay() time.Time {
	return p.FirstDay().AddDate(0, 1, -1)
}

// Range returns the period as a closed date interval.
func (p Period) Range() Range {
	return Range{Start: p.FirstDay(), End: p.LastDay()}
}

// Next returns the following calendar month.
func (p Period) Next() Period {
	d := p.FirstDay().AddDate(0, 1, 0)
	return Period{Year: d.Year(), Month: d.Month()}
}

// Before reports whether p is strictly earlier than q.
func (p Period) Before(q Period) bool {
	if p.Year != q.Year {
		return p.Year < q.Year
	}
	return p.Month < q.Month
}

// Contains reports whether the date t falls within the period.
func (p Period) Contains(t time.Time) bool {
	return t.Year() == p.Year && t.Month() == p.Month
}

// Key renders the period in the "YYYY-MM" form used to key the monthly
// series.
func (p Period) Key() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

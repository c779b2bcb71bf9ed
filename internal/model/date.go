package model

import (
	"fmt"
	"strings"
	"time"
)

const (
	isoDateLayout    = "2006-01-02"
	frenchDateLayout = "02/01/2006"
)

// ParseDate accepts a date in ISO (YYYY-MM-DD) or French display format
// (DD/MM/YYYY) and normalizes it to midnight UTC. The French form is only
// ever accepted at the input boundary; everything internal works on the
// normalized time.Time.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	layout := isoDateLayout
	if strings.Contains(s, "/") {
		layout = frenchDateLayout
	}

	t, err := time.Parse(layout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}

	return Day(t), nil
}

// Day truncates t to midnight UTC, the canonical representation of a
// calendar date in this service.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FormatDate renders a date in the ISO form used on the wire.
func FormatDate(t time.Time) string {
	return t.Format(isoDateLayout)
}

package calendar

import (
	"errors"
	"testing"
	"time"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestCountBusinessDays(t *testing.T) {
	cal := FrenchHolidays()

	tests := []struct {
		name  string
		start string
		end   string
		want  int
	}{
		{name: "full week monday to friday", start: "2025-03-03", end: "2025-03-07", want: 5},
		{name: "weekend only", start: "2025-03-08", end: "2025-03-09", want: 0},
		{name: "single weekday", start: "2025-03-05", end: "2025-03-05", want: 1},
		{name: "single saturday", start: "2025-03-08", end: "2025-03-08", want: 0},
		{name: "week with 1 May holiday", start: "2025-04-28", end: "2025-05-02", want: 4},
		{name: "holiday alone", start: "2025-05-01", end: "2025-05-01", want: 0},
		{name: "spanning two weeks", start: "2025-03-03", end: "2025-03-14", want: 10},
		{name: "full january 2025", start: "2025-01-01", end: "2025-01-31", want: 22},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CountBusinessDays(date(tt.start), date(tt.end), cal)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("CountBusinessDays(%s, %s) = %d, want %d", tt.start, tt.end, got, tt.want)
			}
		})
	}
}

func TestCountBusinessDaysInvalidRange(t *testing.T) {
	cal := FrenchHolidays()

	_, err := CountBusinessDays(date("2025-03-07"), date("2025-03-03"), cal)
	if !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange for end before start, got %v", err)
	}

	_, err = CountBusinessDays(time.Time{}, date("2025-03-03"), cal)
	if !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange for zero start, got %v", err)
	}

	_, err = CountBusinessDays(date("2025-03-03"), time.Time{}, cal)
	if !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange for zero end, got %v", err)
	}
}

func TestCountBusinessDaysNilCalendar(t *testing.T) {
	// Without a holiday source every weekday counts.
	got, err := CountBusinessDays(date("2025-04-28"), date("2025-05-02"), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 5 {
		t.Errorf("expected 5 weekdays, got %d", got)
	}
}

func TestListCalendarIgnoresMalformedEntries(t *testing.T) {
	cal := NewListCalendar([]string{"2025-05-01", "not-a-date", ""})

	if !cal.IsHoliday(date("2025-05-01")) {
		t.Errorf("2025-05-01 should be a holiday")
	}
	if cal.IsHoliday(date("2025-05-02")) {
		t.Errorf("2025-05-02 should not be a holiday")
	}
}

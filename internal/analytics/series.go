package analytics

import (
	"time"

	"github.com/mlebreton/parcloc-system/internal/calendar"
	"github.com/mlebreton/parcloc-system/internal/model"
)

// BuildMonthlySeries computes the monthly CA breakdown for every month from
// January of the previous year through the month containing today, never into
// the future. Past months carry only the historical bucket; the current month
// additionally combines the live estimated and confirmed figures and is
// flagged IsCurrent.
//
// The map carries no order guarantee; callers sort keys ("YYYY-MM")
// chronologically themselves.
func BuildMonthlySeries(equipment []model.Equipment, history []model.LocationHistoryRecord, today time.Time, cal calendar.HolidayProvider) map[string]MonthlyResult {
	current := PeriodOf(today)
	series := make(map[string]MonthlyResult)

	for p := (Period{Year: current.Year - 1, Month: time.January}); !current.Before(p); p = p.Next() {
		if p == current {
			series[p.Key()] = ComputeMonth(equipment, history, p, today, cal)
			continue
		}
		series[p.Key()] = pastMonth(history, p)
	}

	return series
}

// pastMonth builds the historical-only result used for closed months.
func pastMonth(history []model.LocationHistoryRecord, p Period) MonthlyResult {
	res := MonthlyResult{
		Period:       p,
		HistoricalCA: HistoricalCA(history, p),
	}

	count, daysSum, daysCount := historyStats(history, p)
	res.ActiveLocations = count
	if daysCount > 0 {
		res.AvgDaysPerLocation = round2(float64(daysSum) / float64(daysCount))
	}

	return res
}

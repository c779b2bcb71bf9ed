package analytics

import (
	"time"

	"github.com/mlebreton/parcloc-system/internal/calendar"
	"github.com/mlebreton/parcloc-system/internal/model"
)

// MonthlyResult is the per-month CA breakdown. It is recomputed on every
// query and never persisted.
type MonthlyResult struct {
	Period             Period
	EstimatedCA        float64
	ConfirmedCA        float64
	HistoricalCA       float64
	ActiveLocations    int
	AvgDaysPerLocation float64
	// IsCurrent marks the month that combines closed history with live
	// in-progress rentals.
	IsCurrent bool
}

// EstimatedCA projects the month's revenue from in-progress rentals using
// their full theoretical span: each RENTED equipment with both rental dates
// set is clipped to the month and billed on the business days of the clipped
// range. Loans bill nothing.
func EstimatedCA(equipment []model.Equipment, p Period, cal calendar.HolidayProvider) float64 {
	total := 0.0
	for _, eq := range equipment {
		if !isLiveRental(eq) || eq.TheoreticalEnd == nil {
			continue
		}
		span := Range{Start: model.Day(*eq.RentalStart), End: model.Day(*eq.TheoreticalEnd)}
		total += chargeInMonth(eq, span, p, cal)
	}
	return round2(total)
}

// ConfirmedCA counts only the days that have actually elapsed: the effective
// end of each in-progress rental is today, or the theoretical end when it is
// already past. A rental with no theoretical end runs through today.
func ConfirmedCA(equipment []model.Equipment, p Period, today time.Time, cal calendar.HolidayProvider) float64 {
	today = model.Day(today)

	total := 0.0
	for _, eq := range equipment {
		if !isLiveRental(eq) {
			continue
		}
		end := today
		if eq.TheoreticalEnd != nil && model.Day(*eq.TheoreticalEnd).Before(today) {
			end = model.Day(*eq.TheoreticalEnd)
		}
		span := Range{Start: model.Day(*eq.RentalStart), End: end}
		total += chargeInMonth(eq, span, p, cal)
	}
	return round2(total)
}

// HistoricalCA sums the frozen totals of rentals returned within the month.
// The stored ca_total_ht is authoritative: a closed rental books its whole
// charge to the month containing its return date, even when the rental
// spanned several months. Live rentals are pro-rated by intersection instead;
// keeping the two buckets consistent with each other would change figures
// downstream reports already depend on.
func HistoricalCA(records []model.LocationHistoryRecord, p Period) float64 {
	total := 0.0
	for _, rec := range records {
		if rec.IsLoan || rec.TotalHT == nil {
			continue
		}
		ret, ok := rec.ReturnDate()
		if !ok || !p.Contains(ret) {
			continue
		}
		total += *rec.TotalHT
	}
	return round2(total)
}

// ComputeMonth assembles the full breakdown for one month: the historical
// bucket from closed rentals returned within it, plus the live estimated and
// confirmed figures from in-progress rentals intersecting it.
func ComputeMonth(equipment []model.Equipment, history []model.LocationHistoryRecord, p Period, today time.Time, cal calendar.HolidayProvider) MonthlyResult {
	res := MonthlyResult{
		Period:       p,
		EstimatedCA:  EstimatedCA(equipment, p, cal),
		ConfirmedCA:  ConfirmedCA(equipment, p, today, cal),
		HistoricalCA: HistoricalCA(history, p),
		IsCurrent:    p == PeriodOf(today),
	}

	count, daysSum, daysCount := historyStats(history, p)
	res.ActiveLocations = count

	for _, eq := range equipment {
		if eq.Status != model.StatusRented || eq.RentalStart == nil || eq.TheoreticalEnd == nil {
			continue
		}
		span := Range{Start: model.Day(*eq.RentalStart), End: model.Day(*eq.TheoreticalEnd)}
		inter, ok := Intersect(span, p.Range())
		if !ok {
			continue
		}
		res.ActiveLocations++
		if days, err := calendar.CountBusinessDays(inter.Start, inter.End, cal); err == nil {
			daysSum += days
			daysCount++
		}
	}

	if daysCount > 0 {
		res.AvgDaysPerLocation = round2(float64(daysSum) / float64(daysCount))
	}

	return res
}

// historyStats counts the closed rentals returned within the month and sums
// their recorded business days for the per-rental average.
func historyStats(history []model.LocationHistoryRecord, p Period) (count, daysSum, daysCount int) {
	for _, rec := range history {
		ret, ok := rec.ReturnDate()
		if !ok || !p.Contains(ret) {
			continue
		}
		count++
		if rec.BusinessDays != nil {
			daysSum += *rec.BusinessDays
			daysCount++
		}
	}
	return count, daysSum, daysCount
}

// isLiveRental filters the equipment that contributes to the live CA
// buckets: currently rented, start date known, and not a loan.
func isLiveRental(eq model.Equipment) bool {
	return eq.Status == model.StatusRented && eq.RentalStart != nil && !eq.IsLoan
}

// chargeInMonth clips a rental span to the month and bills the clipped range.
// Spans outside the month and invalid ranges contribute nothing.
func chargeInMonth(eq model.Equipment, span Range, p Period, cal calendar.HolidayProvider) float64 {
	inter, ok := Intersect(span, p.Range())
	if !ok {
		return 0
	}

	days, err := calendar.CountBusinessDays(inter.Start, inter.End, cal)
	if err != nil {
		return 0
	}

	return ComputeCharge(days, eq.DailyRateHT, ChargeOptions{
		LongDuration:        eq.IsLongDuration,
		MinimumBillingApply: eq.MinimumBillingApply,
		MinimumBilling:      eq.MinimumBilling,
	})
}

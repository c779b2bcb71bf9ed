package analytics

import (
	"sort"
	"testing"

	"github.com/mlebreton/parcloc-system/internal/calendar"
	"github.com/mlebreton/parcloc-system/internal/model"
)

func TestBuildMonthlySeriesRange(t *testing.T) {
	cal := calendar.FrenchHolidays()
	today := date("2025-03-05")

	series := BuildMonthlySeries(nil, nil, today, cal)

	// January of the previous year through the current month: 12 + 3 entries.
	if len(series) != 15 {
		t.Fatalf("series has %d months, want 15", len(series))
	}
	if _, ok := series["2024-01"]; !ok {
		t.Errorf("series must start at 2024-01")
	}
	if _, ok := series["2025-03"]; !ok {
		t.Errorf("series must include the current month")
	}
	if _, ok := series["2025-04"]; ok {
		t.Errorf("series must never extend into the future")
	}

	keys := make([]string, 0, len(series))
	for k := range series {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if keys[0] != "2024-01" || keys[len(keys)-1] != "2025-03" {
		t.Errorf("sorted keys span %s..%s, want 2024-01..2025-03", keys[0], keys[len(keys)-1])
	}
}

func TestBuildMonthlySeriesCurrentMonthCombinesLive(t *testing.T) {
	cal := calendar.FrenchHolidays()
	today := date("2025-03-05")

	fleet := []model.Equipment{rented(fp(200), "2025-02-24", "2025-03-14")}
	history := []model.LocationHistoryRecord{
		{
			StartDate:    date("2025-01-06"),
			ActualReturn: dp("2025-02-14"),
			TotalHT:      fp(4800),
			BusinessDays: ip(30),
		},
	}

	series := BuildMonthlySeries(fleet, history, today, cal)

	cur := series["2025-03"]
	if !cur.IsCurrent {
		t.Errorf("current month must be flagged")
	}
	// Live rental clipped to March: 3rd through 14th, 10 business days.
	if cur.EstimatedCA != 2000 {
		t.Errorf("current estimated = %v, want 2000", cur.EstimatedCA)
	}
	if cur.ConfirmedCA != 600 {
		t.Errorf("current confirmed = %v, want 600", cur.ConfirmedCA)
	}

	// February is a past month: historical bucket only, even though the live
	// rental overlapped it.
	feb := series["2025-02"]
	if feb.IsCurrent {
		t.Errorf("past month must not be flagged current")
	}
	if feb.HistoricalCA != 4800 {
		t.Errorf("February historical = %v, want 4800", feb.HistoricalCA)
	}
	if feb.EstimatedCA != 0 || feb.ConfirmedCA != 0 {
		t.Errorf("past months carry no live figures: %+v", feb)
	}
	if feb.ActiveLocations != 1 || feb.AvgDaysPerLocation != 30 {
		t.Errorf("February stats = %d/%v, want 1/30", feb.ActiveLocations, feb.AvgDaysPerLocation)
	}

	// Months with no activity report zeros, not absence.
	if res, ok := series["2024-06"]; !ok || res.HistoricalCA != 0 {
		t.Errorf("idle months must be present with zero totals")
	}
}

func TestBuildMonthlySeriesJanuaryToday(t *testing.T) {
	// In January the series still reaches back to January of the previous
	// year: 13 entries.
	series := BuildMonthlySeries(nil, nil, date("2025-01-15"), calendar.FrenchHolidays())
	if len(series) != 13 {
		t.Fatalf("series has %d months, want 13", len(series))
	}
}

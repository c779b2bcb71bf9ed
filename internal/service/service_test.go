package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mlebreton/parcloc-system/internal/calendar"
	"github.com/mlebreton/parcloc-system/internal/model"
	"github.com/mlebreton/parcloc-system/internal/repository"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func dp(s string) *time.Time {
	d := date(s)
	return &d
}

func fp(v float64) *float64 { return &v }

type stubRepo struct {
	mu sync.Mutex

	equipment *model.Equipment
	fleet     []model.Equipment

	historyByEquipment map[int64][]model.LocationHistoryRecord
	historyErrFor      map[int64]error
	historyCalls       int

	listCalls int

	closedRental *model.LocationHistoryRecord
	closedID     int64
}

func (s *stubRepo) Close() error { return nil }

func (s *stubRepo) CreateEquipment(ctx context.Context, eq model.Equipment) (int64, error) {
	return 1, nil
}

func (s *stubRepo) GetEquipment(ctx context.Context, id int64) (*model.Equipment, error) {
	if s.equipment == nil {
		return nil, repository.ErrEquipmentNotFound
	}
	return s.equipment, nil
}

func (s *stubRepo) ListEquipment(ctx context.Context) ([]model.Equipment, error) {
	s.listCalls++
	return s.fleet, nil
}

func (s *stubRepo) UpdateEquipment(ctx context.Context, eq model.Equipment) error { return nil }
func (s *stubRepo) DeleteEquipment(ctx context.Context, id int64) error           { return nil }

func (s *stubRepo) Reserve(ctx context.Context, id int64, info repository.RentalInfo) error {
	return nil
}

func (s *stubRepo) StartRental(ctx context.Context, id int64) error       { return nil }
func (s *stubRepo) CancelReservation(ctx context.Context, id int64) error { return nil }

func (s *stubRepo) SetStatus(ctx context.Context, id int64, status model.EquipmentStatus) error {
	return nil
}

func (s *stubRepo) CloseRental(ctx context.Context, id int64, rec model.LocationHistoryRecord) error {
	s.closedID = id
	s.closedRental = &rec
	return nil
}

func (s *stubRepo) ListHistoryByEquipment(ctx context.Context, equipmentID int64) ([]model.LocationHistoryRecord, error) {
	// The service fetches histories concurrently.
	s.mu.Lock()
	s.historyCalls++
	s.mu.Unlock()
	if err, ok := s.historyErrFor[equipmentID]; ok {
		return nil, err
	}
	return s.historyByEquipment[equipmentID], nil
}

func (s *stubRepo) CreateClient(ctx context.Context, c model.Client) (int64, error) { return 1, nil }
func (s *stubRepo) ListClients(ctx context.Context) ([]model.Client, error)         { return nil, nil }
func (s *stubRepo) UpdateClient(ctx context.Context, c model.Client) error          { return nil }
func (s *stubRepo) DeleteClient(ctx context.Context, id int64) error                { return nil }

func (s *stubRepo) CreateSparePart(ctx context.Context, p model.SparePart) (int64, error) {
	return 1, nil
}

func (s *stubRepo) ListSpareParts(ctx context.Context) ([]model.SparePart, error) { return nil, nil }

func (s *stubRepo) AdjustSparePartStock(ctx context.Context, id int64, delta int) error { return nil }

func (s *stubRepo) ListVGPDueBefore(ctx context.Context, due time.Time) ([]model.Equipment, error) {
	return nil, nil
}

func newTestService(repo *stubRepo, today string) *Service {
	svc := NewService(repo, calendar.FrenchHolidays(), zap.NewNop())
	svc.now = func() time.Time { return date(today) }
	return svc
}

func rentedEquipment() *model.Equipment {
	client := "BTP Morel"
	return &model.Equipment{
		ID:          7,
		Designation: "Treuil 500kg",
		Status:      model.StatusRented,
		DailyRateHT: fp(200),
		Client:      &client,
		RentalStart: dp("2025-03-03"),
	}
}

func TestCloseRentalFreezesCharge(t *testing.T) {
	repo := &stubRepo{equipment: rentedEquipment()}
	svc := newTestService(repo, "2025-03-07")

	rec, err := svc.CloseRental(context.Background(), 7, date("2025-03-07"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if repo.closedID != 7 {
		t.Errorf("closed equipment %d, want 7", repo.closedID)
	}
	if rec.BusinessDays == nil || *rec.BusinessDays != 5 {
		t.Errorf("business days = %v, want 5", rec.BusinessDays)
	}
	if rec.TotalHT == nil || *rec.TotalHT != 1000 {
		t.Errorf("total = %v, want 1000", rec.TotalHT)
	}
	if rec.LongDurationApplied || rec.MinimumBillingApplied {
		t.Errorf("no modifier should apply: %+v", rec)
	}
	if rec.Client != "BTP Morel" {
		t.Errorf("client = %q", rec.Client)
	}
}

func TestCloseRentalLongDuration(t *testing.T) {
	eq := rentedEquipment()
	eq.RentalStart = dp("2025-03-03")
	repo := &stubRepo{equipment: eq}
	svc := newTestService(repo, "2025-04-04")

	// 2025-03-03 through 2025-04-04 spans 25 business days (21 in March from
	// the 3rd, 4 in April, no holidays): discounted.
	rec, err := svc.CloseRental(context.Background(), 7, date("2025-04-04"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !rec.LongDurationApplied {
		t.Errorf("long-duration discount must be recorded")
	}
	if rec.TotalHT == nil || *rec.TotalHT != float64(*rec.BusinessDays)*200*0.8 {
		t.Errorf("total = %v, want discounted %v days at 200", rec.TotalHT, *rec.BusinessDays)
	}
}

func TestCloseRentalMinimumBilling(t *testing.T) {
	eq := rentedEquipment()
	eq.DailyRateHT = fp(50)
	eq.MinimumBillingApply = true
	eq.MinimumBilling = fp(500)
	repo := &stubRepo{equipment: eq}
	svc := newTestService(repo, "2025-03-04")

	// Two business days at 50 = 100, floored to 500.
	rec, err := svc.CloseRental(context.Background(), 7, date("2025-03-04"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rec.TotalHT == nil || *rec.TotalHT != 500 {
		t.Errorf("total = %v, want the 500 floor", rec.TotalHT)
	}
	if !rec.MinimumBillingApplied {
		t.Errorf("minimum billing must be recorded")
	}
}

func TestCloseRentalLoanBillsNothing(t *testing.T) {
	eq := rentedEquipment()
	eq.IsLoan = true
	repo := &stubRepo{equipment: eq}
	svc := newTestService(repo, "2025-03-07")

	rec, err := svc.CloseRental(context.Background(), 7, date("2025-03-07"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rec.TotalHT == nil || *rec.TotalHT != 0 {
		t.Errorf("loan total = %v, want 0", rec.TotalHT)
	}
	if !rec.IsLoan {
		t.Errorf("loan flag must be carried into history")
	}
}

func TestCloseRentalReturnBeforeStart(t *testing.T) {
	repo := &stubRepo{equipment: rentedEquipment()}
	svc := newTestService(repo, "2025-03-07")

	_, err := svc.CloseRental(context.Background(), 7, date("2025-02-28"))
	if !errors.Is(err, ErrInvalidRentalDates) {
		t.Fatalf("expected ErrInvalidRentalDates, got %v", err)
	}
}

func TestCloseRentalRequiresRunningRental(t *testing.T) {
	eq := rentedEquipment()
	eq.Status = model.StatusAvailable
	repo := &stubRepo{equipment: eq}
	svc := newTestService(repo, "2025-03-07")

	_, err := svc.CloseRental(context.Background(), 7, date("2025-03-07"))
	if !errors.Is(err, repository.ErrNoActiveRental) {
		t.Fatalf("expected ErrNoActiveRental, got %v", err)
	}
}

func TestReserveRejectsEndBeforeStart(t *testing.T) {
	svc := newTestService(&stubRepo{}, "2025-03-07")

	err := svc.Reserve(context.Background(), 1, repository.RentalInfo{
		Client:         "BTP Morel",
		Start:          date("2025-03-10"),
		TheoreticalEnd: dp("2025-03-05"),
	})
	if !errors.Is(err, ErrInvalidRentalDates) {
		t.Fatalf("expected ErrInvalidRentalDates, got %v", err)
	}
}

func TestMonthlyCAInvalidMonth(t *testing.T) {
	svc := newTestService(&stubRepo{}, "2025-03-07")

	if _, err := svc.MonthlyCA(context.Background(), 2025, time.Month(13)); err == nil {
		t.Fatalf("expected error for month 13")
	}
}

func TestMonthlySeriesPartialFailure(t *testing.T) {
	repo := &stubRepo{
		fleet: []model.Equipment{
			{ID: 1, Designation: "Palan A"},
			{ID: 2, Designation: "Palan B"},
		},
		historyByEquipment: map[int64][]model.LocationHistoryRecord{
			1: {{EquipmentID: 1, StartDate: date("2025-02-03"), ActualReturn: dp("2025-02-14"), TotalHT: fp(900)}},
		},
		historyErrFor: map[int64]error{2: errors.New("connection reset")},
	}
	svc := newTestService(repo, "2025-03-07")

	report, err := svc.MonthlySeries(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(report.FailedEquipment) != 1 || report.FailedEquipment[0] != 2 {
		t.Fatalf("failed equipment = %v, want [2]", report.FailedEquipment)
	}
	if report.Months["2025-02"].HistoricalCA != 900 {
		t.Errorf("February historical = %v, want 900", report.Months["2025-02"].HistoricalCA)
	}

	// Partial reports are not cached: the next query hits the store again.
	before := repo.listCalls
	if _, err := svc.MonthlySeries(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.listCalls != before+1 {
		t.Errorf("partial report must not be served from cache")
	}
}

func TestMonthlySeriesCached(t *testing.T) {
	repo := &stubRepo{
		fleet: []model.Equipment{{ID: 1, Designation: "Palan A"}},
	}
	svc := newTestService(repo, "2025-03-07")

	if _, err := svc.MonthlySeries(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.MonthlySeries(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.listCalls != 1 {
		t.Errorf("expected the second query to be served from cache, store hit %d times", repo.listCalls)
	}

	// Any write through the service invalidates the cache.
	if err := svc.StartRental(context.Background(), 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.MonthlySeries(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.listCalls != 2 {
		t.Errorf("expected a fresh query after invalidation, store hit %d times", repo.listCalls)
	}
}

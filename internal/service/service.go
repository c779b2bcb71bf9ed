// Package service implements the business logic of the parc-loc service.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mlebreton/parcloc-system/internal/analytics"
	"github.com/mlebreton/parcloc-system/internal/calendar"
	"github.com/mlebreton/parcloc-system/internal/model"
	"github.com/mlebreton/parcloc-system/internal/repository"
)

// ErrInvalidRentalDates is returned when a rental's end precedes its start.
var ErrInvalidRentalDates = errors.New("invalid rental dates")

// historyFetchLimit bounds the per-equipment history fan-out.
const historyFetchLimit = 8

// seriesCacheTTL is how long a computed monthly series stays fresh.
const seriesCacheTTL = 5 * time.Minute

// vgpReminderWindow is how far ahead the reminder job looks for due
// inspections.
const vgpReminderWindow = 30 * 24 * time.Hour

// Repository describes the data-access contract used by the service.
type Repository interface {
	Close() error

	CreateEquipment(ctx context.Context, eq model.Equipment) (int64, error)
	GetEquipment(ctx context.Context, id int64) (*model.Equipment, error)
	ListEquipment(ctx context.Context) ([]model.Equipment, error)
	UpdateEquipment(ctx context.Context, eq model.Equipment) error
	DeleteEquipment(ctx context.Context, id int64) error

	Reserve(ctx context.Context, id int64, info repository.RentalInfo) error
	StartRental(ctx context.Context, id int64) error
	CancelReservation(ctx context.Context, id int64) error
	SetStatus(ctx context.Context, id int64, status model.EquipmentStatus) error
	CloseRental(ctx context.Context, id int64, rec model.LocationHistoryRecord) error
	ListHistoryByEquipment(ctx context.Context, equipmentID int64) ([]model.LocationHistoryRecord, error)

	CreateClient(ctx context.Context, c model.Client) (int64, error)
	ListClients(ctx context.Context) ([]model.Client, error)
	UpdateClient(ctx context.Context, c model.Client) error
	DeleteClient(ctx context.Context, id int64) error

	CreateSparePart(ctx context.Context, p model.SparePart) (int64, error)
	ListSpareParts(ctx context.Context) ([]model.SparePart, error)
	AdjustSparePartStock(ctx context.Context, id int64, delta int) error

	ListVGPDueBefore(ctx context.Context, due time.Time) ([]model.Equipment, error)
}

// CAReport is the output of a CA query: the per-month breakdown plus the ids
// of equipment whose history could not be loaded. Figures are partial when
// FailedEquipment is non-empty; callers surface this instead of silently
// omitting the missing history.
type CAReport struct {
	Months          map[string]analytics.MonthlyResult
	FailedEquipment []int64
}

// Service holds the business logic of the parc-loc service.
type Service struct {
	repo     Repository
	holidays calendar.HolidayProvider
	logger   *zap.Logger
	cron     *cron.Cron

	now func() time.Time

	mu          sync.Mutex
	cachedAt    time.Time
	cachedSerie *CAReport
}

// NewService creates the service over the given repository and holiday
// calendar.
func NewService(repo Repository, holidays calendar.HolidayProvider, logger *zap.Logger) *Service {
	return &Service{
		repo:     repo,
		holidays: holidays,
		logger:   logger,
		now:      time.Now,
	}
}

// Close stops the reminder scheduler and releases the repository.
func (s *Service) Close() error {
	if s.cron != nil {
		s.cron.Stop()
	}
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// CreateEquipment registers a new piece of equipment as AVAILABLE.
func (s *Service) CreateEquipment(ctx context.Context, eq model.Equipment) (int64, error) {
	eq.Status = model.StatusAvailable
	id, err := s.repo.CreateEquipment(ctx, eq)
	if err != nil {
		return 0, err
	}
	s.invalidateSeries()
	return id, nil
}

// GetEquipment returns one fleet record.
func (s *Service) GetEquipment(ctx context.Context, id int64) (*model.Equipment, error) {
	return s.repo.GetEquipment(ctx, id)
}

// ListEquipment returns the whole fleet.
func (s *Service) ListEquipment(ctx context.Context) ([]model.Equipment, error) {
	return s.repo.ListEquipment(ctx)
}

// UpdateEquipment updates the descriptive fields of a fleet record.
func (s *Service) UpdateEquipment(ctx context.Context, eq model.Equipment) error {
	if err := s.repo.UpdateEquipment(ctx, eq); err != nil {
		return err
	}
	s.invalidateSeries()
	return nil
}

// DeleteEquipment removes a fleet record and its history.
func (s *Service) DeleteEquipment(ctx context.Context, id int64) error {
	if err := s.repo.DeleteEquipment(ctx, id); err != nil {
		return err
	}
	s.invalidateSeries()
	return nil
}

// Reserve places a reservation. The theoretical end, when given, must not
// precede the start.
func (s *Service) Reserve(ctx context.Context, id int64, info repository.RentalInfo) error {
	if info.TheoreticalEnd != nil && info.TheoreticalEnd.Before(info.Start) {
		return ErrInvalidRentalDates
	}
	if err := s.repo.Reserve(ctx, id, info); err != nil {
		return err
	}
	s.invalidateSeries()
	return nil
}

// StartRental moves a reservation to RENTED.
func (s *Service) StartRental(ctx context.Context, id int64) error {
	if err := s.repo.StartRental(ctx, id); err != nil {
		return err
	}
	s.invalidateSeries()
	return nil
}

// CancelReservation releases a reservation back to AVAILABLE.
func (s *Service) CancelReservation(ctx context.Context, id int64) error {
	if err := s.repo.CancelReservation(ctx, id); err != nil {
		return err
	}
	s.invalidateSeries()
	return nil
}

// EndMaintenance makes equipment AVAILABLE again after its post-rental
// check-up.
func (s *Service) EndMaintenance(ctx context.Context, id int64) error {
	return s.repo.SetStatus(ctx, id, model.StatusAvailable)
}

// CloseRental returns a rented equipment: the charge is computed once, frozen
// into a history record, and the equipment moves to MAINTENANCE. The frozen
// total is what past months will report from now on.
func (s *Service) CloseRental(ctx context.Context, id int64, returnedAt time.Time) (*model.LocationHistoryRecord, error) {
	eq, err := s.repo.GetEquipment(ctx, id)
	if err != nil {
		return nil, err
	}

	if eq.Status != model.StatusRented || eq.RentalStart == nil {
		return nil, repository.ErrNoActiveRental
	}

	returnedAt = model.Day(returnedAt)
	start := model.Day(*eq.RentalStart)

	days, err := calendar.CountBusinessDays(start, returnedAt, s.holidays)
	if err != nil {
		return nil, fmt.Errorf("%w: return %s precedes start %s",
			ErrInvalidRentalDates, model.FormatDate(returnedAt), model.FormatDate(start))
	}

	opts := analytics.ChargeOptions{
		LongDuration:        eq.IsLongDuration,
		MinimumBillingApply: eq.MinimumBillingApply,
		MinimumBilling:      eq.MinimumBilling,
	}

	total := 0.0
	if !eq.IsLoan {
		total = analytics.ComputeCharge(days, eq.DailyRateHT, opts)
	}

	client := ""
	if eq.Client != nil {
		client = *eq.Client
	}

	rec := model.LocationHistoryRecord{
		EquipmentID:           id,
		Client:                client,
		StartDate:             start,
		ActualReturn:          &returnedAt,
		BusinessDays:          &days,
		DailyRateHT:           eq.DailyRateHT,
		TotalHT:               &total,
		LongDurationApplied:   days >= analytics.LongDurationThreshold || eq.IsLongDuration,
		MinimumBillingApplied: eq.MinimumBillingApply && eq.MinimumBilling != nil && total == *eq.MinimumBilling,
		IsLoan:                eq.IsLoan,
	}

	if err := s.repo.CloseRental(ctx, id, rec); err != nil {
		return nil, err
	}

	s.invalidateSeries()
	return &rec, nil
}

// ListHistory returns the closed rentals of one equipment.
func (s *Service) ListHistory(ctx context.Context, equipmentID int64) ([]model.LocationHistoryRecord, error) {
	return s.repo.ListHistoryByEquipment(ctx, equipmentID)
}

// MonthlyCA computes the CA breakdown of a single month from a fresh
// snapshot of the fleet and its history.
func (s *Service) MonthlyCA(ctx context.Context, year int, month time.Month) (*CAReport, error) {
	if month < time.January || month > time.December {
		return nil, fmt.Errorf("invalid month %d", month)
	}

	fleet, err := s.repo.ListEquipment(ctx)
	if err != nil {
		return nil, err
	}

	history, failed, err := s.fetchAllHistory(ctx, fleet)
	if err != nil {
		return nil, err
	}

	p := analytics.Period{Year: year, Month: month}
	res := analytics.ComputeMonth(fleet, history, p, s.now(), s.holidays)

	return &CAReport{
		Months:          map[string]analytics.MonthlyResult{p.Key(): res},
		FailedEquipment: failed,
	}, nil
}

// MonthlySeries computes the two-year monthly CA series. Results are cached
// for five minutes; any write through the service invalidates the cache.
func (s *Service) MonthlySeries(ctx context.Context) (*CAReport, error) {
	s.mu.Lock()
	if s.cachedSerie != nil && s.now().Sub(s.cachedAt) < seriesCacheTTL {
		cached := s.cachedSerie
		s.mu.Unlock()
		return cached, nil
	}
	s.mu.Unlock()

	fleet, err := s.repo.ListEquipment(ctx)
	if err != nil {
		return nil, err
	}

	history, failed, err := s.fetchAllHistory(ctx, fleet)
	if err != nil {
		return nil, err
	}

	report := &CAReport{
		Months:          analytics.BuildMonthlySeries(fleet, history, s.now(), s.holidays),
		FailedEquipment: failed,
	}

	// A partial report is served but never cached, so a transient history
	// failure does not pin incomplete figures for five minutes.
	if len(failed) == 0 {
		s.mu.Lock()
		s.cachedSerie = report
		s.cachedAt = s.now()
		s.mu.Unlock()
	}

	return report, nil
}

// fetchAllHistory loads the history of every equipment with a bounded
// fan-out. Individual failures are logged and reported as partial results
// rather than failing the whole query.
func (s *Service) fetchAllHistory(ctx context.Context, fleet []model.Equipment) ([]model.LocationHistoryRecord, []int64, error) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(historyFetchLimit)

	var (
		mu      sync.Mutex
		history []model.LocationHistoryRecord
		failed  []int64
	)

	for _, eq := range fleet {
		eq := eq
		g.Go(func() error {
			recs, err := s.repo.ListHistoryByEquipment(ctx, eq.ID)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				s.logger.Warn("history fetch failed",
					zap.Int64("equipmentID", eq.ID), zap.Error(err))
				mu.Lock()
				failed = append(failed, eq.ID)
				mu.Unlock()
				return nil
			}

			mu.Lock()
			history = append(history, recs...)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	sort.Slice(failed, func(i, j int) bool { return failed[i] < failed[j] })
	return history, failed, nil
}

func (s *Service) invalidateSeries() {
	s.mu.Lock()
	s.cachedSerie = nil
	s.mu.Unlock()
}

// ListClients returns the client directory.
func (s *Service) ListClients(ctx context.Context) ([]model.Client, error) {
	return s.repo.ListClients(ctx)
}

// CreateClient adds a directory entry.
func (s *Service) CreateClient(ctx context.Context, c model.Client) (int64, error) {
	return s.repo.CreateClient(ctx, c)
}

// UpdateClient updates a directory entry.
func (s *Service) UpdateClient(ctx context.Context, c model.Client) error {
	return s.repo.UpdateClient(ctx, c)
}

// DeleteClient removes a directory entry.
func (s *Service) DeleteClient(ctx context.Context, id int64) error {
	return s.repo.DeleteClient(ctx, id)
}

// ListSpareParts returns the spare-parts stock.
func (s *Service) ListSpareParts(ctx context.Context) ([]model.SparePart, error) {
	return s.repo.ListSpareParts(ctx)
}

// CreateSparePart adds a stock line.
func (s *Service) CreateSparePart(ctx context.Context, p model.SparePart) (int64, error) {
	return s.repo.CreateSparePart(ctx, p)
}

// AdjustSparePartStock applies a signed stock movement.
func (s *Service) AdjustSparePartStock(ctx context.Context, id int64, delta int) error {
	return s.repo.AdjustSparePartStock(ctx, id, delta)
}

// StartVGPReminders schedules the daily job that logs equipment whose
// statutory inspection falls due within the next thirty days.
func (s *Service) StartVGPReminders(schedule string) error {
	c := cron.New()
	_, err := c.AddFunc(schedule, s.checkVGPDue)
	if err != nil {
		return fmt.Errorf("schedule vgp reminders: %w", err)
	}
	c.Start()
	s.cron = c
	return nil
}

func (s *Service) checkVGPDue() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	due, err := s.repo.ListVGPDueBefore(ctx, s.now().Add(vgpReminderWindow))
	if err != nil {
		s.logger.Error("vgp reminder query failed", zap.Error(err))
		return
	}

	for _, eq := range due {
		s.logger.Warn("vgp inspection due",
			zap.Int64("equipmentID", eq.ID),
			zap.String("designation", eq.Designation),
			zap.Time("dueDate", *eq.NextVGP))
	}
}

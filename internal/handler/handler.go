// Package handler contains the HTTP handlers of the parc-loc API.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/mlebreton/parcloc-system/internal/middleware"
	"github.com/mlebreton/parcloc-system/internal/model"
	"github.com/mlebreton/parcloc-system/internal/repository"
	"github.com/mlebreton/parcloc-system/internal/service"
)

// Service defines the business-logic contract used by the HTTP handlers.
type Service interface {
	CreateEquipment(ctx context.Context, eq model.Equipment) (int64, error)
	GetEquipment(ctx context.Context, id int64) (*model.Equipment, error)
	ListEquipment(ctx context.Context) ([]model.Equipment, error)
	UpdateEquipment(ctx context.Context, eq model.Equipment) error
	DeleteEquipment(ctx context.Context, id int64) error

	Reserve(ctx context.Context, id int64, info repository.RentalInfo) error
	StartRental(ctx context.Context, id int64) error
	CancelReservation(ctx context.Context, id int64) error
	CloseRental(ctx context.Context, id int64, returnedAt time.Time) (*model.LocationHistoryRecord, error)
	EndMaintenance(ctx context.Context, id int64) error
	ListHistory(ctx context.Context, equipmentID int64) ([]model.LocationHistoryRecord, error)

	MonthlyCA(ctx context.Context, year int, month time.Month) (*service.CAReport, error)
	MonthlySeries(ctx context.Context) (*service.CAReport, error)

	ListClients(ctx context.Context) ([]model.Client, error)
	CreateClient(ctx context.Context, c model.Client) (int64, error)
	UpdateClient(ctx context.Context, c model.Client) error
	DeleteClient(ctx context.Context, id int64) error

	ListSpareParts(ctx context.Context) ([]model.SparePart, error)
	CreateSparePart(ctx context.Context, p model.SparePart) (int64, error)
	AdjustSparePartStock(ctx context.Context, id int64, delta int) error
}

// Handler implements the HTTP handlers of the parc-loc API.
type Handler struct {
	service      Service
	logger       *zap.Logger
	session      *middleware.SessionMiddleware
	passwordHash []byte
}

// NewHandler creates the handler set. passwordHash is the bcrypt hash of the
// shared operator password.
func NewHandler(s Service, logger *zap.Logger, session *middleware.SessionMiddleware, passwordHash []byte) *Handler {
	return &Handler{
		service:      s,
		logger:       logger,
		session:      session,
		passwordHash: passwordHash,
	}
}

type loginRequest struct {
	Password string `json:"password"`
}

// Login checks the shared operator password and establishes the session.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if bcrypt.CompareHashAndPassword(h.passwordHash, []byte(req.Password)) != nil {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	h.session.SetSessionCookie(w)
	w.WriteHeader(http.StatusOK)
}

// equipmentPayload is the wire form of a fleet record. Field names follow the
// UI contract.
type equipmentPayload struct {
	ID                      int64    `json:"id,omitempty"`
	Designation             string   `json:"designation"`
	Statut                  string   `json:"statut,omitempty"`
	PrixHT                  *float64 `json:"prixHT"`
	Client                  *string  `json:"client,omitempty"`
	DebutLocation           *string  `json:"debutLocation,omitempty"`
	FinLocationTheorique    *string  `json:"finLocationTheorique,omitempty"`
	EstPret                 bool     `json:"estPret"`
	EstLongDuree            bool     `json:"estLongDuree"`
	MinimumFacturationApply bool     `json:"minimumFacturationApply"`
	MinimumFacturation      *float64 `json:"minimumFacturation,omitempty"`
	ProchaineVGP            *string  `json:"prochaineVGP,omitempty"`
}

func equipmentToPayload(eq model.Equipment) equipmentPayload {
	p := equipmentPayload{
		ID:                      eq.ID,
		Designation:             eq.Designation,
		Statut:                  string(eq.Status),
		PrixHT:                  eq.DailyRateHT,
		Client:                  eq.Client,
		EstPret:                 eq.IsLoan,
		EstLongDuree:            eq.IsLongDuration,
		MinimumFacturationApply: eq.MinimumBillingApply,
		MinimumFacturation:      eq.MinimumBilling,
	}
	if eq.RentalStart != nil {
		s := model.FormatDate(*eq.RentalStart)
		p.DebutLocation = &s
	}
	if eq.TheoreticalEnd != nil {
		s := model.FormatDate(*eq.TheoreticalEnd)
		p.FinLocationTheorique = &s
	}
	if eq.NextVGP != nil {
		s := model.FormatDate(*eq.NextVGP)
		p.ProchaineVGP = &s
	}
	return p
}

// ListEquipment returns the whole fleet.
func (h *Handler) ListEquipment(w http.ResponseWriter, r *http.Request) {
	fleet, err := h.service.ListEquipment(r.Context())
	if err != nil {
		h.logger.Error("list equipment error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resp := make([]equipmentPayload, 0, len(fleet))
	for _, eq := range fleet {
		resp = append(resp, equipmentToPayload(eq))
	}

	writeJSON(w, http.StatusOK, resp)
}

// CreateEquipment registers a new piece of equipment.
func (h *Handler) CreateEquipment(w http.ResponseWriter, r *http.Request) {
	var req equipmentPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Designation == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	eq := model.Equipment{
		Designation: req.Designation,
		DailyRateHT: req.PrixHT,
	}

	if req.ProchaineVGP != nil {
		vgp, err := model.ParseDate(*req.ProchaineVGP)
		if err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		eq.NextVGP = &vgp
	}

	id, err := h.service.CreateEquipment(r.Context(), eq)
	if err != nil {
		h.logger.Error("create equipment error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

// GetEquipment returns one fleet record.
func (h *Handler) GetEquipment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	eq, err := h.service.GetEquipment(r.Context(), id)
	if err != nil {
		h.equipmentError(w, err, id)
		return
	}

	writeJSON(w, http.StatusOK, equipmentToPayload(*eq))
}

// UpdateEquipment updates the descriptive fields of a fleet record.
func (h *Handler) UpdateEquipment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var req equipmentPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Designation == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	eq := model.Equipment{
		ID:          id,
		Designation: req.Designation,
		DailyRateHT: req.PrixHT,
	}

	if req.ProchaineVGP != nil {
		vgp, err := model.ParseDate(*req.ProchaineVGP)
		if err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		eq.NextVGP = &vgp
	}

	if err := h.service.UpdateEquipment(r.Context(), eq); err != nil {
		h.equipmentError(w, err, id)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// DeleteEquipment removes a fleet record.
func (h *Handler) DeleteEquipment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteEquipment(r.Context(), id); err != nil {
		h.equipmentError(w, err, id)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type reserveRequest struct {
	Client                  string   `json:"client"`
	DebutLocation           string   `json:"debutLocation"`
	FinLocationTheorique    *string  `json:"finLocationTheorique,omitempty"`
	EstPret                 bool     `json:"estPret"`
	EstLongDuree            bool     `json:"estLongDuree"`
	MinimumFacturationApply bool     `json:"minimumFacturationApply"`
	MinimumFacturation      *float64 `json:"minimumFacturation,omitempty"`
}

// Reserve places a reservation on available equipment.
func (h *Handler) Reserve(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var req reserveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Client == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	start, err := model.ParseDate(req.DebutLocation)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	info := repository.RentalInfo{
		Client:              req.Client,
		Start:               start,
		IsLoan:              req.EstPret,
		IsLongDuration:      req.EstLongDuree,
		MinimumBillingApply: req.MinimumFacturationApply,
		MinimumBilling:      req.MinimumFacturation,
	}

	if req.FinLocationTheorique != nil {
		end, err := model.ParseDate(*req.FinLocationTheorique)
		if err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		info.TheoreticalEnd = &end
	}

	if err := h.service.Reserve(r.Context(), id, info); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRentalDates):
			http.Error(w, http.StatusText(http.StatusUnprocessableEntity), http.StatusUnprocessableEntity)
		case errors.Is(err, repository.ErrEquipmentUnavailable):
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
		case errors.Is(err, repository.ErrEquipmentNotFound):
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		default:
			h.logger.Error("reserve error", zap.Error(err), zap.Int64("equipmentID", id))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusOK)
}

// StartRental moves a reservation to RENTED.
func (h *Handler) StartRental(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.StartRental)
}

// CancelReservation releases a reservation.
func (h *Handler) CancelReservation(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.CancelReservation)
}

// EndMaintenance makes equipment available after its check-up.
func (h *Handler) EndMaintenance(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.EndMaintenance)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, fn func(context.Context, int64) error) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	if err := fn(r.Context(), id); err != nil {
		h.equipmentError(w, err, id)
		return
	}

	w.WriteHeader(http.StatusOK)
}

type returnRequest struct {
	DateRetour string `json:"dateRetour"`
}

// Return closes a running rental and responds with the frozen history
// record.
func (h *Handler) Return(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var req returnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	returnedAt, err := model.ParseDate(req.DateRetour)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	rec, err := h.service.CloseRental(r.Context(), id, returnedAt)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRentalDates):
			http.Error(w, http.StatusText(http.StatusUnprocessableEntity), http.StatusUnprocessableEntity)
		case errors.Is(err, repository.ErrNoActiveRental):
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
		case errors.Is(err, repository.ErrEquipmentNotFound):
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		default:
			h.logger.Error("return error", zap.Error(err), zap.Int64("equipmentID", id))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusOK, historyToPayload(*rec))
}

// historyPayload is the wire form of a closed rental.
type historyPayload struct {
	ID                      int64    `json:"id,omitempty"`
	EquipmentID             int64    `json:"equipment_id"`
	Client                  string   `json:"client"`
	DateDebut               string   `json:"date_debut"`
	DateRetourReel          *string  `json:"date_retour_reel,omitempty"`
	RentreLe                *string  `json:"rentre_le,omitempty"`
	DureeJoursOuvres        *int     `json:"duree_jours_ouvres,omitempty"`
	PrixHTJour              *float64 `json:"prix_ht_jour,omitempty"`
	CATotalHT               *float64 `json:"ca_total_ht,omitempty"`
	RemiseLD                bool     `json:"remise_ld"`
	MinimumFacturationApply bool     `json:"minimum_facturation_apply"`
	EstPret                 bool     `json:"est_pret"`
}

func historyToPayload(rec model.LocationHistoryRecord) historyPayload {
	p := historyPayload{
		ID:                      rec.ID,
		EquipmentID:             rec.EquipmentID,
		Client:                  rec.Client,
		DateDebut:               model.FormatDate(rec.StartDate),
		DureeJoursOuvres:        rec.BusinessDays,
		PrixHTJour:              rec.DailyRateHT,
		CATotalHT:               rec.TotalHT,
		RemiseLD:                rec.LongDurationApplied,
		MinimumFacturationApply: rec.MinimumBillingApplied,
		EstPret:                 rec.IsLoan,
	}
	if rec.ActualReturn != nil {
		s := model.FormatDate(*rec.ActualReturn)
		p.DateRetourReel = &s
	}
	if rec.ArchivedReturn != nil {
		s := model.FormatDate(*rec.ArchivedReturn)
		p.RentreLe = &s
	}
	return p
}

// GetHistory returns the closed rentals of one equipment.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	records, err := h.service.ListHistory(r.Context(), id)
	if err != nil {
		h.logger.Error("get history error", zap.Error(err), zap.Int64("equipmentID", id))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resp := make([]historyPayload, 0, len(records))
	for _, rec := range records {
		resp = append(resp, historyToPayload(rec))
	}

	writeJSON(w, http.StatusOK, resp)
}

type monthlyCAPayload struct {
	Month              string  `json:"month"`
	EstimatedCA        float64 `json:"estimatedCA"`
	ConfirmedCA        float64 `json:"confirmedCA"`
	HistoricalCA       float64 `json:"historicalCA"`
	ActiveLocations    int     `json:"activeLocations"`
	AvgDaysPerLocation float64 `json:"avgDaysPerLocation"`
	IsCurrent          bool    `json:"isCurrent"`
}

type caReportPayload struct {
	Months []monthlyCAPayload `json:"months"`
	// FailedEquipment warns that the figures are partial: the history of
	// these equipment ids could not be loaded.
	FailedEquipment []int64 `json:"failedEquipment,omitempty"`
}

func reportToPayload(report *service.CAReport) caReportPayload {
	keys := make([]string, 0, len(report.Months))
	for k := range report.Months {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	months := make([]monthlyCAPayload, 0, len(keys))
	for _, k := range keys {
		res := report.Months[k]
		months = append(months, monthlyCAPayload{
			Month:              k,
			EstimatedCA:        res.EstimatedCA,
			ConfirmedCA:        res.ConfirmedCA,
			HistoricalCA:       res.HistoricalCA,
			ActiveLocations:    res.ActiveLocations,
			AvgDaysPerLocation: res.AvgDaysPerLocation,
			IsCurrent:          res.IsCurrent,
		})
	}

	return caReportPayload{Months: months, FailedEquipment: report.FailedEquipment}
}

// MonthlyCA returns the CA breakdown of the month given by the year and
// month query parameters.
func (h *Handler) MonthlyCA(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	month, err := strconv.Atoi(r.URL.Query().Get("month"))
	if err != nil || month < 1 || month > 12 {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	report, err := h.service.MonthlyCA(r.Context(), year, time.Month(month))
	if err != nil {
		h.logger.Error("monthly ca error", zap.Error(err), zap.Int("year", year), zap.Int("month", month))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, reportToPayload(report))
}

// CASeries returns the two-year monthly series in chronological order.
func (h *Handler) CASeries(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.MonthlySeries(r.Context())
	if err != nil {
		h.logger.Error("ca series error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, reportToPayload(report))
}

type clientPayload struct {
	ID        int64  `json:"id,omitempty"`
	Nom       string `json:"nom"`
	Contact   string `json:"contact"`
	Telephone string `json:"telephone"`
	Email     string `json:"email"`
}

// ListClients returns the client directory.
func (h *Handler) ListClients(w http.ResponseWriter, r *http.Request) {
	clients, err := h.service.ListClients(r.Context())
	if err != nil {
		h.logger.Error("list clients error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resp := make([]clientPayload, 0, len(clients))
	for _, c := range clients {
		resp = append(resp, clientPayload{
			ID: c.ID, Nom: c.Name, Contact: c.Contact, Telephone: c.Phone, Email: c.Email,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// CreateClient adds a directory entry.
func (h *Handler) CreateClient(w http.ResponseWriter, r *http.Request) {
	var req clientPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Nom == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	id, err := h.service.CreateClient(r.Context(), model.Client{
		Name: req.Nom, Contact: req.Contact, Phone: req.Telephone, Email: req.Email,
	})
	if err != nil {
		if errors.Is(err, repository.ErrClientExists) {
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
			return
		}
		h.logger.Error("create client error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

// UpdateClient updates a directory entry.
func (h *Handler) UpdateClient(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var req clientPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Nom == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	err := h.service.UpdateClient(r.Context(), model.Client{
		ID: id, Name: req.Nom, Contact: req.Contact, Phone: req.Telephone, Email: req.Email,
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrClientNotFound):
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		case errors.Is(err, repository.ErrClientExists):
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
		default:
			h.logger.Error("update client error", zap.Error(err), zap.Int64("clientID", id))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusOK)
}

// DeleteClient removes a directory entry.
func (h *Handler) DeleteClient(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteClient(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrClientNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("delete client error", zap.Error(err), zap.Int64("clientID", id))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type sparePartPayload struct {
	ID          int64  `json:"id,omitempty"`
	Reference   string `json:"reference"`
	Designation string `json:"designation"`
	Quantite    int    `json:"quantite"`
	SeuilAlerte int    `json:"seuil_alerte"`
}

// ListSpareParts returns the spare-parts stock.
func (h *Handler) ListSpareParts(w http.ResponseWriter, r *http.Request) {
	parts, err := h.service.ListSpareParts(r.Context())
	if err != nil {
		h.logger.Error("list spare parts error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resp := make([]sparePartPayload, 0, len(parts))
	for _, p := range parts {
		resp = append(resp, sparePartPayload{
			ID: p.ID, Reference: p.Reference, Designation: p.Designation,
			Quantite: p.Quantity, SeuilAlerte: p.AlertLevel,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// CreateSparePart adds a stock line.
func (h *Handler) CreateSparePart(w http.ResponseWriter, r *http.Request) {
	var req sparePartPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Reference == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	id, err := h.service.CreateSparePart(r.Context(), model.SparePart{
		Reference: req.Reference, Designation: req.Designation,
		Quantity: req.Quantite, AlertLevel: req.SeuilAlerte,
	})
	if err != nil {
		if errors.Is(err, repository.ErrPartExists) {
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
			return
		}
		h.logger.Error("create spare part error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

type stockRequest struct {
	Delta int `json:"delta"`
}

// AdjustStock applies a signed stock movement to a spare part.
func (h *Handler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var req stockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Delta == 0 {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.service.AdjustSparePartStock(r.Context(), id, req.Delta); err != nil {
		switch {
		case errors.Is(err, repository.ErrPartNotFound):
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		case errors.Is(err, repository.ErrInsufficientStock):
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
		default:
			h.logger.Error("adjust stock error", zap.Error(err), zap.Int64("partID", id))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func (h *Handler) equipmentError(w http.ResponseWriter, err error, id int64) {
	switch {
	case errors.Is(err, repository.ErrEquipmentNotFound):
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	case errors.Is(err, repository.ErrNoActiveRental), errors.Is(err, repository.ErrEquipmentUnavailable):
		http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
	default:
		h.logger.Error("equipment error", zap.Error(err), zap.Int64("equipmentID", id))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

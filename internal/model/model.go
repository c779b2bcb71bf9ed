// Package model contains the domain entities of the parc-loc service.
package model

import "time"

// EquipmentStatus describes the fleet state of a piece of equipment.
type EquipmentStatus string

const (
	StatusAvailable     EquipmentStatus = "AVAILABLE"
	StatusReserved      EquipmentStatus = "RESERVED"
	StatusRented        EquipmentStatus = "RENTED"
	StatusInMaintenance EquipmentStatus = "MAINTENANCE"
)

// Valid reports whether s is one of the known fleet states.
func (s EquipmentStatus) Valid() bool {
	switch s {
	case StatusAvailable, StatusReserved, StatusRented, StatusInMaintenance:
		return true
	}
	return false
}

// Equipment is a live fleet record. The rental fields (Client through
// MinimumBilling) are meaningful only while Status is RESERVED or RENTED;
// closing a rental archives them into a LocationHistoryRecord and moves the
// equipment to MAINTENANCE.
type Equipment struct {
	ID          int64
	Designation string
	Status      EquipmentStatus
	// DailyRateHT is the daily rate in euros excl. tax. Nil means no price is
	// configured; such equipment bills zero and is surfaced elsewhere as a
	// missing-price warning.
	DailyRateHT *float64

	Client              *string
	RentalStart         *time.Time
	TheoreticalEnd      *time.Time
	IsLoan              bool
	IsLongDuration      bool
	MinimumBillingApply bool
	MinimumBilling      *float64

	// NextVGP is the due date of the next statutory inspection.
	NextVGP   *time.Time
	CreatedAt time.Time
}

// LocationHistoryRecord is a closed rental. Monetary fields are frozen at
// return time; past months always report the stored total, never a
// recomputation.
type LocationHistoryRecord struct {
	ID          int64
	EquipmentID int64
	Client      string

	StartDate      time.Time
	ActualReturn   *time.Time
	ArchivedReturn *time.Time // legacy "rentre_le" fallback when ActualReturn is absent

	BusinessDays *int
	DailyRateHT  *float64
	TotalHT      *float64

	LongDurationApplied   bool
	MinimumBillingApplied bool
	IsLoan                bool
}

// ReturnDate resolves the date the rental effectively ended: the actual
// return date when recorded, otherwise the archived fallback.
func (r LocationHistoryRecord) ReturnDate() (time.Time, bool) {
	if r.ActualReturn != nil {
		return *r.ActualReturn, true
	}
	if r.ArchivedReturn != nil {
		return *r.ArchivedReturn, true
	}
	return time.Time{}, false
}

// Client is an entry of the client directory.
type Client struct {
	ID        int64
	Name      string
	Contact   string
	Phone     string
	Email     string
	CreatedAt time.Time
}

// SparePart is a stock line of the spare-parts inventory.
type SparePart struct {
	ID          int64
	Reference   string
	Designation string
	Quantity    int
	AlertLevel  int
}

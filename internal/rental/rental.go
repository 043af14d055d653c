// Package rental holds the tenancy record and the status engine that derives
// its lifecycle state from its dates.
package rental

import (
	"strings"
	"time"

	"github.com/matthewbaird/rentaldesk/internal/timewindow"
	"github.com/matthewbaird/rentaldesk/internal/types"
)

// Status is the single display status stored on a rental.
type Status string

const (
	StatusPending        Status = "pending"
	StatusActive         Status = "active"
	StatusNearExpiration Status = "near_expiration"
	StatusExpired        Status = "expired"
	StatusTerminated     Status = "terminated"
	StatusCancelled      Status = "cancelled"
)

// Statuses lists every valid status in lifecycle order.
var Statuses = []Status{
	StatusPending, StatusActive, StatusNearExpiration,
	StatusExpired, StatusTerminated, StatusCancelled,
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// IsOverride reports whether s is a sticky manual status.
func (s Status) IsOverride() bool {
	return s == StatusTerminated || s == StatusCancelled
}

// Rental is one tenancy agreement.
type Rental struct {
	ID            string    `json:"id"`
	PropertyID    string    `json:"property_id"`
	TenantName    string    `json:"tenant_name"`
	TenantContact string    `json:"tenant_contact,omitempty"`
	TenantID      *string   `json:"tenant_id,omitempty"`
	StartDate     time.Time `json:"start_date"`
	EndDate       time.Time `json:"end_date"`
	MonthlyAmount float64   `json:"monthly_amount"`
	Status        Status    `json:"status"`
	Notes         string    `json:"notes,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Term returns the rental's inclusive date range.
func (r Rental) Term() types.DateRange {
	return types.DateRange{Start: r.StartDate, End: r.EndDate}
}

// Phase returns the derived lifecycle phase, ignoring any manual override.
func (r Rental) Phase(today time.Time) Phase {
	return Classify(r.StartDate, r.EndDate, today)
}

// Override returns the sticky manual status, if one is set.
func (r Rental) Override() (Override, bool) {
	if r.Status.IsOverride() {
		return Override(r.Status), true
	}
	return "", false
}

// Validate checks the record-level invariants.
func (r Rental) Validate() error {
	if strings.TrimSpace(r.PropertyID) == "" {
		return types.NewValidationError("property_id", "is required")
	}
	if strings.TrimSpace(r.TenantName) == "" {
		return types.NewValidationError("tenant_name", "is required")
	}
	if r.StartDate.IsZero() {
		return types.NewValidationError("start_date", "is required")
	}
	if r.EndDate.IsZero() {
		return types.NewValidationError("end_date", "is required")
	}
	if r.EndDate.Before(r.StartDate) {
		return types.NewValidationError("end_date", "must not be before start_date")
	}
	if r.MonthlyAmount <= 0 {
		return types.NewValidationError("monthly_amount", "must be greater than zero")
	}
	if r.Status != "" && !r.Status.Valid() {
		return types.NewValidationError("status", "unknown status %q", r.Status)
	}
	return nil
}

// Input carries the fields supplied when a lease is signed.
type Input struct {
	PropertyID    string
	TenantName    string
	TenantContact string
	StartDate     time.Time
	EndDate       time.Time
	MonthlyAmount float64
	Notes         string
}

// New builds a rental from in, normalising dates and deriving its initial
// status. The ID is left for the caller to assign.
func New(in Input, today time.Time) (Rental, error) {
	r := Rental{
		PropertyID:    strings.TrimSpace(in.PropertyID),
		TenantName:    strings.TrimSpace(in.TenantName),
		TenantContact: strings.TrimSpace(in.TenantContact),
		MonthlyAmount: in.MonthlyAmount,
		Notes:         in.Notes,
	}
	if !in.StartDate.IsZero() {
		r.StartDate = timewindow.Date(in.StartDate)
	}
	if !in.EndDate.IsZero() {
		r.EndDate = timewindow.Date(in.EndDate)
	}
	if err := r.Validate(); err != nil {
		return Rental{}, err
	}
	r.Status = DetermineStatus(r.StartDate, r.EndDate, "", today)
	return r, nil
}

// Package payment models a rental's payment obligations and reduces them to a
// single payment-health value.
package payment

import (
	"errors"
	"strings"
	"time"

	"github.com/matthewbaird/rentaldesk/internal/timewindow"
	"github.com/matthewbaird/rentaldesk/internal/types"
)

// Status of a single payment obligation.
type Status string

const (
	StatusPending Status = "pending"
	StatusPaid    Status = "paid"
	StatusOverdue Status = "overdue"
)

// ErrPaidImmutable is returned when a paid payment would be deleted or paid again.
var ErrPaidImmutable = errors.New("paid payments are part of the audit trail and cannot be changed")

// Payment is one scheduled or completed obligation tied to a rental.
type Payment struct {
	ID          string     `json:"id"`
	RentalID    string     `json:"rental_id"`
	Amount      float64    `json:"amount"`
	DueDate     time.Time  `json:"due_date"`
	Status      Status     `json:"status"`
	PaymentDate *time.Time `json:"payment_date,omitempty"`
	Method      string     `json:"method,omitempty"`
	Notes       string     `json:"notes,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Validate checks the record invariants, including payment_date iff paid.
func (p Payment) Validate() error {
	if strings.TrimSpace(p.RentalID) == "" {
		return types.NewValidationError("rental_id", "is required")
	}
	if p.Amount <= 0 {
		return types.NewValidationError("amount", "must be greater than zero")
	}
	if p.DueDate.IsZero() {
		return types.NewValidationError("due_date", "is required")
	}
	switch p.Status {
	case StatusPending, StatusOverdue:
		if p.PaymentDate != nil {
			return types.NewValidationError("payment_date", "must be empty unless the payment is paid")
		}
	case StatusPaid:
		if p.PaymentDate == nil {
			return types.NewValidationError("payment_date", "is required for a paid payment")
		}
	default:
		return types.NewValidationError("status", "unknown status %q", p.Status)
	}
	return nil
}

// IsOpen reports whether the obligation is still unpaid.
func (p Payment) IsOpen() bool {
	return p.Status == StatusPending || p.Status == StatusOverdue
}

// MarkPaid returns a copy of p recorded as paid on date.
func (p Payment) MarkPaid(date time.Time, method, notes string) (Payment, error) {
	if p.Status == StatusPaid {
		return Payment{}, ErrPaidImmutable
	}
	if date.IsZero() {
		return Payment{}, types.NewValidationError("payment_date", "is required")
	}
	paid := timewindow.Date(date)
	p.Status = StatusPaid
	p.PaymentDate = &paid
	p.Method = strings.TrimSpace(method)
	if notes != "" {
		p.Notes = notes
	}
	return p, p.Validate()
}

// CanDelete reports whether p may be removed. Paid payments never can.
func (p Payment) CanDelete() error {
	if p.Status == StatusPaid {
		return ErrPaidImmutable
	}
	return nil
}

// NewCharge builds a one-off pending charge against a rental.
func NewCharge(rentalID string, amount float64, due time.Time, notes string) (Payment, error) {
	p := Payment{
		RentalID: rentalID,
		Amount:   amount,
		Status:   StatusPending,
		Notes:    notes,
	}
	if !due.IsZero() {
		p.DueDate = timewindow.Date(due)
	}
	if err := p.Validate(); err != nil {
		return Payment{}, err
	}
	return p, nil
}

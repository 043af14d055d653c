package commission

import (
	"strings"
	"time"

	"github.com/matthewbaird/rentaldesk/internal/timewindow"
	"github.com/matthewbaird/rentaldesk/internal/transition"
	"github.com/matthewbaird/rentaldesk/internal/types"
)

// Status of a commission payout.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusCancelled Status = "cancelled"
)

// Transitions is the payout lifecycle.
var Transitions = transition.Table{
	string(StatusPending):   {string(StatusPaid), string(StatusCancelled)},
	string(StatusPaid):      {},
	string(StatusCancelled): {},
}

// Commission is a persisted commission on a property sale. Amounts are
// fixed when the commission is created.
type Commission struct {
	ID               string `json:"id"`
	PropertyID       string `json:"property_id"`
	CapturingAgentID string `json:"capturing_agent_id"`
	SellingAgentID   string `json:"selling_agent_id"`

	Breakdown

	Status      Status     `json:"status"`
	PaymentDate *time.Time `json:"payment_date,omitempty"`
	Notes       string     `json:"notes,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// SameAgent reports whether sellingID names the capturing agent, either
// explicitly or by being absent.
func SameAgent(capturingID string, sellingID *string) bool {
	return sellingID == nil || strings.TrimSpace(*sellingID) == "" || strings.TrimSpace(*sellingID) == capturingID
}

// New builds a pending commission for a sale. When the selling agent is
// missing or equals the capturing agent, the capturing agent is stored in
// both roles and the single-agent split applies.
func New(propertyID, capturingID string, sellingID *string, salePrice float64) (Commission, error) {
	propertyID = strings.TrimSpace(propertyID)
	capturingID = strings.TrimSpace(capturingID)
	if propertyID == "" {
		return Commission{}, types.NewValidationError("property_id", "is required")
	}
	if capturingID == "" {
		return Commission{}, types.NewValidationError("capturing_agent_id", "is required")
	}
	if salePrice <= 0 {
		return Commission{}, types.NewValidationError("sale_price", "must be greater than zero")
	}

	same := SameAgent(capturingID, sellingID)
	selling := capturingID
	if !same {
		selling = strings.TrimSpace(*sellingID)
	}
	return Commission{
		PropertyID:       propertyID,
		CapturingAgentID: capturingID,
		SellingAgentID:   selling,
		Breakdown:        Calculate(salePrice, same),
		Status:           StatusPending,
	}, nil
}

// MarkPaid records the payout date, truncated to its calendar day.
func (c Commission) MarkPaid(date time.Time) (Commission, error) {
	if err := Transitions.Validate(string(c.Status), string(StatusPaid)); err != nil {
		return Commission{}, err
	}
	if date.IsZero() {
		return Commission{}, types.NewValidationError("payment_date", "is required")
	}
	paid := timewindow.Date(date)
	c.Status = StatusPaid
	c.PaymentDate = &paid
	return c, nil
}

// Cancel voids a pending commission.
func (c Commission) Cancel(reason string) (Commission, error) {
	if err := Transitions.Validate(string(c.Status), string(StatusCancelled)); err != nil {
		return Commission{}, err
	}
	c.Status = StatusCancelled
	if reason != "" {
		c.Notes = reason
	}
	return c, nil
}

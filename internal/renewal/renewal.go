// Package renewal decides whether a tenant may ask to extend a rental and
// carries renewal requests through their lifecycle.
package renewal

import (
	"strings"
	"time"

	"github.com/matthewbaird/rentaldesk/internal/rental"
	"github.com/matthewbaird/rentaldesk/internal/timewindow"
	"github.com/matthewbaird/rentaldesk/internal/transition"
	"github.com/matthewbaird/rentaldesk/internal/types"
)

const (
	// MinDurationMonths is the shortest renewal a tenant may request.
	MinDurationMonths = 6
	// WindowDays is how close to expiration a request may first be made.
	WindowDays = 60
)

// Status of a renewal request.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
)

// Transitions is the request lifecycle. Terminal states are never revived.
var Transitions = transition.Table{
	string(StatusPending):   {string(StatusApproved), string(StatusRejected), string(StatusCancelled)},
	string(StatusApproved):  {},
	string(StatusRejected):  {},
	string(StatusCancelled): {},
}

// Request is a tenant-initiated request to extend a rental.
type Request struct {
	ID                      string     `json:"id"`
	RentalID                string     `json:"rental_id"`
	RequestedBy             string     `json:"requested_by"`
	Status                  Status     `json:"status"`
	RequestedDurationMonths int        `json:"requested_duration_months"`
	ProposedAmount          float64    `json:"proposed_amount"`
	TenantMessage           string     `json:"tenant_message,omitempty"`
	AdminResponse           string     `json:"admin_response,omitempty"`
	DecidedBy               string     `json:"decided_by,omitempty"`
	DecidedAt               *time.Time `json:"decided_at,omitempty"`
	CreatedAt               time.Time  `json:"created_at"`
	UpdatedAt               time.Time  `json:"updated_at"`
}

// Input is the data supplied by the tenant.
type Input struct {
	RentalID                string
	RequestedBy             string
	RequestedDurationMonths int
	ProposedAmount          float64
	TenantMessage           string
}

// NewRequest validates in and builds a pending request. Nothing is built
// when a constraint fails; the error names the offending field.
func NewRequest(in Input) (Request, error) {
	if strings.TrimSpace(in.RentalID) == "" {
		return Request{}, types.NewValidationError("rental_id", "is required")
	}
	if in.RequestedDurationMonths < MinDurationMonths {
		return Request{}, types.NewValidationError("requested_duration_months",
			"must be at least %d months", MinDurationMonths)
	}
	if in.ProposedAmount <= 0 {
		return Request{}, types.NewValidationError("proposed_amount", "must be greater than zero")
	}
	return Request{
		RentalID:                in.RentalID,
		RequestedBy:             strings.TrimSpace(in.RequestedBy),
		Status:                  StatusPending,
		RequestedDurationMonths: in.RequestedDurationMonths,
		ProposedAmount:          in.ProposedAmount,
		TenantMessage:           strings.TrimSpace(in.TenantMessage),
	}, nil
}

// Decide moves req to target, recording who decided and when.
func Decide(req Request, target Status, actor, response string, at time.Time) (Request, error) {
	if err := Transitions.Validate(string(req.Status), string(target)); err != nil {
		return Request{}, err
	}
	req.Status = target
	req.DecidedBy = actor
	req.DecidedAt = &at
	if response != "" {
		req.AdminResponse = response
	}
	return req, nil
}

// NewTerms are the commercial terms a rental takes on when a renewal is approved.
type NewTerms struct {
	EndDate       time.Time `json:"end_date"`
	MonthlyAmount float64   `json:"monthly_amount"`
}

// Terms computes the terms resulting from approving req against r: the term
// is extended by the requested months and rent becomes the proposed amount.
func Terms(r rental.Rental, req Request) NewTerms {
	return NewTerms{
		EndDate:       timewindow.ExtendEnd(r.EndDate, req.RequestedDurationMonths),
		MonthlyAmount: req.ProposedAmount,
	}
}

// Apply returns r with terms applied and its status re-derived for today.
func Apply(r rental.Rental, terms NewTerms, today time.Time) rental.Rental {
	r.EndDate = terms.EndDate
	r.MonthlyAmount = terms.MonthlyAmount
	r.Status = rental.DetermineStatus(r.StartDate, r.EndDate, r.Status, today)
	return r
}

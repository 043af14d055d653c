package event

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/matthewbaird/rentaldesk/internal/types"
)

// DomainEvent carries the canonical shape of every domain event.
type DomainEvent struct {
	ID               string
	EventType        string
	OccurredAt       time.Time
	AffectedEntities []types.SourceRef
	Summary          string
	Category         string // "rental", "payment", "renewal", "commission"
	Weight           string // "critical", "major", "minor", "info"
	Payload          json.RawMessage
}

// Event types.
const (
	TypeRentalCreated           = "rental_created"
	TypeRentalStatusChanged     = "rental_status_changed"
	TypeRentalTenantLinked      = "rental_tenant_linked"
	TypeRentalRenewed           = "rental_renewed"
	TypePaymentCreated          = "payment_created"
	TypePaymentReceived         = "payment_received"
	TypePaymentDeleted          = "payment_deleted"
	TypeRenewalRequested        = "renewal_requested"
	TypeRenewalDecided          = "renewal_decided"
	TypeCommissionCreated       = "commission_created"
	TypeCommissionStatusChanged = "commission_status_changed"
)

func newID() string { return uuid.New().String() }

func mustJSON(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}

// short trims an id for summaries.
func short(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func ref(entityType, id, role string) types.SourceRef {
	return types.SourceRef{EntityType: entityType, EntityID: id, Role: role}
}

// ── Rental events ────────────────────────────────────────────────────────────

type RentalCreatedPayload struct {
	RentalID      string  `json:"rental_id"`
	PropertyID    string  `json:"property_id"`
	TenantName    string  `json:"tenant_name"`
	StartDate     string  `json:"start_date"`
	EndDate       string  `json:"end_date"`
	MonthlyAmount float64 `json:"monthly_amount"`
	Status        string  `json:"status"`
}

func NewRentalCreated(p RentalCreatedPayload, at time.Time) DomainEvent {
	return DomainEvent{
		ID:         newID(),
		EventType:  TypeRentalCreated,
		OccurredAt: at,
		AffectedEntities: []types.SourceRef{
			ref("rental", p.RentalID, "subject"),
			ref("property", p.PropertyID, "context"),
		},
		Summary:  fmt.Sprintf("Rental %s created for %s (%s to %s)", short(p.RentalID), p.TenantName, p.StartDate, p.EndDate),
		Category: "rental",
		Weight:   "major",
		Payload:  mustJSON(p),
	}
}

// RentalStatusChangedPayload records a status move. Manual is set when an
// operator forced or cleared an override rather than the dates deciding.
type RentalStatusChangedPayload struct {
	RentalID   string `json:"rental_id"`
	PropertyID string `json:"property_id"`
	From       string `json:"from"`
	To         string `json:"to"`
	Manual     bool   `json:"manual"`
	Reason     string `json:"reason,omitempty"`
}

func NewRentalStatusChanged(p RentalStatusChangedPayload, at time.Time) DomainEvent {
	weight := "minor"
	switch p.To {
	case "expired", "terminated", "cancelled":
		weight = "major"
	}
	return DomainEvent{
		ID:         newID(),
		EventType:  TypeRentalStatusChanged,
		OccurredAt: at,
		AffectedEntities: []types.SourceRef{
			ref("rental", p.RentalID, "subject"),
			ref("property", p.PropertyID, "context"),
		},
		Summary:  fmt.Sprintf("Rental %s moved from %s to %s", short(p.RentalID), p.From, p.To),
		Category: "rental",
		Weight:   weight,
		Payload:  mustJSON(p),
	}
}

type RentalTenantLinkedPayload struct {
	RentalID   string  `json:"rental_id"`
	PropertyID string  `json:"property_id"`
	TenantID   *string `json:"tenant_id"`
}

func NewRentalTenantLinked(p RentalTenantLinkedPayload, at time.Time) DomainEvent {
	refs := []types.SourceRef{
		ref("rental", p.RentalID, "subject"),
		ref("property", p.PropertyID, "context"),
	}
	summary := fmt.Sprintf("Tenant account unlinked from rental %s", short(p.RentalID))
	if p.TenantID != nil {
		refs = append(refs, ref("tenant", *p.TenantID, "related"))
		summary = fmt.Sprintf("Tenant %s linked to rental %s", short(*p.TenantID), short(p.RentalID))
	}
	return DomainEvent{
		ID:               newID(),
		EventType:        TypeRentalTenantLinked,
		OccurredAt:       at,
		AffectedEntities: refs,
		Summary:          summary,
		Category:         "rental",
		Weight:           "info",
		Payload:          mustJSON(p),
	}
}

type RentalRenewedPayload struct {
	RentalID     string  `json:"rental_id"`
	PropertyID   string  `json:"property_id"`
	RequestID    string  `json:"request_id"`
	PreviousEnd  string  `json:"previous_end"`
	NewEnd       string  `json:"new_end"`
	PreviousRent float64 `json:"previous_rent"`
	NewRent      float64 `json:"new_rent"`
}

func NewRentalRenewed(p RentalRenewedPayload, at time.Time) DomainEvent {
	return DomainEvent{
		ID:         newID(),
		EventType:  TypeRentalRenewed,
		OccurredAt: at,
		AffectedEntities: []types.SourceRef{
			ref("rental", p.RentalID, "subject"),
			ref("renewal_request", p.RequestID, "related"),
			ref("property", p.PropertyID, "context"),
		},
		Summary:  fmt.Sprintf("Rental %s extended to %s", short(p.RentalID), p.NewEnd),
		Category: "rental",
		Weight:   "major",
		Payload:  mustJSON(p),
	}
}

// ── Payment events ───────────────────────────────────────────────────────────

type PaymentPayload struct {
	PaymentID   string  `json:"payment_id"`
	RentalID    string  `json:"rental_id"`
	Amount      float64 `json:"amount"`
	DueDate     string  `json:"due_date"`
	PaymentDate string  `json:"payment_date,omitempty"`
	Method      string  `json:"method,omitempty"`
}

func paymentEvent(eventType, summary, weight string, p PaymentPayload, at time.Time) DomainEvent {
	return DomainEvent{
		ID:         newID(),
		EventType:  eventType,
		OccurredAt: at,
		AffectedEntities: []types.SourceRef{
			ref("payment", p.PaymentID, "subject"),
			ref("rental", p.RentalID, "context"),
		},
		Summary:  summary,
		Category: "payment",
		Weight:   weight,
		Payload:  mustJSON(p),
	}
}

func NewPaymentCreated(p PaymentPayload, at time.Time) DomainEvent {
	return paymentEvent(TypePaymentCreated,
		fmt.Sprintf("Payment of %.2f due %s added to rental %s", p.Amount, p.DueDate, short(p.RentalID)),
		"info", p, at)
}

func NewPaymentReceived(p PaymentPayload, at time.Time) DomainEvent {
	return paymentEvent(TypePaymentReceived,
		fmt.Sprintf("Payment of %.2f received on rental %s", p.Amount, short(p.RentalID)),
		"minor", p, at)
}

func NewPaymentDeleted(p PaymentPayload, at time.Time) DomainEvent {
	return paymentEvent(TypePaymentDeleted,
		fmt.Sprintf("Payment %s removed from rental %s", short(p.PaymentID), short(p.RentalID)),
		"minor", p, at)
}

// ── Renewal events ───────────────────────────────────────────────────────────

type RenewalRequestedPayload struct {
	RequestID      string  `json:"request_id"`
	RentalID       string  `json:"rental_id"`
	RequestedBy    string  `json:"requested_by,omitempty"`
	DurationMonths int     `json:"duration_months"`
	ProposedAmount float64 `json:"proposed_amount"`
}

func NewRenewalRequested(p RenewalRequestedPayload, at time.Time) DomainEvent {
	return DomainEvent{
		ID:         newID(),
		EventType:  TypeRenewalRequested,
		OccurredAt: at,
		AffectedEntities: []types.SourceRef{
			ref("renewal_request", p.RequestID, "subject"),
			ref("rental", p.RentalID, "target"),
		},
		Summary:  fmt.Sprintf("Renewal of %d months requested on rental %s", p.DurationMonths, short(p.RentalID)),
		Category: "renewal",
		Weight:   "minor",
		Payload:  mustJSON(p),
	}
}

type RenewalDecidedPayload struct {
	RequestID string `json:"request_id"`
	RentalID  string `json:"rental_id"`
	Decision  string `json:"decision"`
	DecidedBy string `json:"decided_by,omitempty"`
	Response  string `json:"response,omitempty"`
}

func NewRenewalDecided(p RenewalDecidedPayload, at time.Time) DomainEvent {
	return DomainEvent{
		ID:         newID(),
		EventType:  TypeRenewalDecided,
		OccurredAt: at,
		AffectedEntities: []types.SourceRef{
			ref("renewal_request", p.RequestID, "subject"),
			ref("rental", p.RentalID, "target"),
		},
		Summary:  fmt.Sprintf("Renewal request %s %s", short(p.RequestID), p.Decision),
		Category: "renewal",
		Weight:   "minor",
		Payload:  mustJSON(p),
	}
}

// ── Commission events ────────────────────────────────────────────────────────

type CommissionCreatedPayload struct {
	CommissionID     string  `json:"commission_id"`
	PropertyID       string  `json:"property_id"`
	CapturingAgentID string  `json:"capturing_agent_id"`
	SellingAgentID   string  `json:"selling_agent_id"`
	SalePrice        float64 `json:"sale_price"`
	TotalCommission  float64 `json:"total_commission"`
	Policy           string  `json:"policy"`
}

func NewCommissionCreated(p CommissionCreatedPayload, at time.Time) DomainEvent {
	refs := []types.SourceRef{
		ref("commission", p.CommissionID, "subject"),
		ref("property", p.PropertyID, "context"),
		ref("agent", p.CapturingAgentID, "related"),
	}
	if p.SellingAgentID != p.CapturingAgentID {
		refs = append(refs, ref("agent", p.SellingAgentID, "related"))
	}
	return DomainEvent{
		ID:               newID(),
		EventType:        TypeCommissionCreated,
		OccurredAt:       at,
		AffectedEntities: refs,
		Summary:          fmt.Sprintf("Commission of %.2f on sale of property %s", p.TotalCommission, short(p.PropertyID)),
		Category:         "commission",
		Weight:           "major",
		Payload:          mustJSON(p),
	}
}

type CommissionStatusChangedPayload struct {
	CommissionID string `json:"commission_id"`
	PropertyID   string `json:"property_id"`
	From         string `json:"from"`
	To           string `json:"to"`
}

func NewCommissionStatusChanged(p CommissionStatusChangedPayload, at time.Time) DomainEvent {
	return DomainEvent{
		ID:         newID(),
		EventType:  TypeCommissionStatusChanged,
		OccurredAt: at,
		AffectedEntities: []types.SourceRef{
			ref("commission", p.CommissionID, "subject"),
			ref("property", p.PropertyID, "context"),
		},
		Summary:  fmt.Sprintf("Commission %s moved from %s to %s", short(p.CommissionID), p.From, p.To),
		Category: "commission",
		Weight:   "minor",
		Payload:  mustJSON(p),
	}
}

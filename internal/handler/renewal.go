package handler

import (
	"net/http"

	"github.com/matthewbaird/rentaldesk/internal/renewal"
	"github.com/matthewbaird/rentaldesk/internal/rental"
	"github.com/matthewbaird/rentaldesk/internal/service"
	"github.com/matthewbaird/rentaldesk/internal/validate"
)

// RenewalHandler implements HTTP handlers for renewal requests.
type RenewalHandler struct {
	svc *service.Renewals
	v   *validate.Validator
}

// NewRenewalHandler creates a new RenewalHandler.
func NewRenewalHandler(svc *service.Renewals, v *validate.Validator) *RenewalHandler {
	return &RenewalHandler{svc: svc, v: v}
}

// Eligibility answers whether a renewal may be requested now. A denial is
// a normal 200 answer here.
func (h *RenewalHandler) Eligibility(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	elig, err := h.svc.Eligibility(r.Context(), id)
	if err != nil {
		errorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, elig)
}

type renewalRequest struct {
	RentalID                string  `json:"rental_id"`
	RequestedBy             string  `json:"requested_by"`
	RequestedDurationMonths int     `json:"requested_duration_months"`
	ProposedAmount          float64 `json:"proposed_amount"`
	TenantMessage           string  `json:"tenant_message"`
}

func (h *RenewalHandler) CreateRenewal(w http.ResponseWriter, r *http.Request) {
	var req renewalRequest
	if !readBody(w, r, h.v, validate.RenewalRequest, &req) {
		return
	}
	if req.RequestedBy == "" {
		req.RequestedBy = r.Header.Get("X-Actor")
	}
	created, err := h.svc.Request(r.Context(), renewal.Input{
		RentalID:                req.RentalID,
		RequestedBy:             req.RequestedBy,
		RequestedDurationMonths: req.RequestedDurationMonths,
		ProposedAmount:          req.ProposedAmount,
		TenantMessage:           req.TenantMessage,
	})
	if err != nil {
		errorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *RenewalHandler) GetRenewal(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	got, err := h.svc.Get(r.Context(), id)
	if err != nil {
		errorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, got)
}

func (h *RenewalHandler) ListByRental(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	items, err := h.svc.ListByRental(r.Context(), id)
	if err != nil {
		errorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

type decisionRequest struct {
	Response string `json:"response"`
}

type approvalResponse struct {
	Request renewal.Request `json:"request"`
	Rental  rental.Rental   `json:"rental"`
}

// ApproveRenewal accepts the request and extends the rental.
func (h *RenewalHandler) ApproveRenewal(w http.ResponseWriter, r *http.Request) {
	id, actor, req, ok := h.decision(w, r)
	if !ok {
		return
	}
	decided, extended, err := h.svc.Approve(r.Context(), id, actor, req.Response)
	if err != nil {
		errorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, approvalResponse{Request: decided, Rental: extended})
}

func (h *RenewalHandler) RejectRenewal(w http.ResponseWriter, r *http.Request) {
	id, actor, req, ok := h.decision(w, r)
	if !ok {
		return
	}
	decided, err := h.svc.Reject(r.Context(), id, actor, req.Response)
	if err != nil {
		errorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, decided)
}

func (h *RenewalHandler) CancelRenewal(w http.ResponseWriter, r *http.Request) {
	id, actor, req, ok := h.decision(w, r)
	if !ok {
		return
	}
	decided, err := h.svc.Cancel(r.Context(), id, actor, req.Response)
	if err != nil {
		errorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, decided)
}

func (h *RenewalHandler) decision(w http.ResponseWriter, r *http.Request) (string, string, decisionRequest, bool) {
	var req decisionRequest
	id, ok := parseID(w, r, "id")
	if !ok {
		return "", "", req, false
	}
	actor, ok := parseActor(w, r)
	if !ok {
		return "", "", req, false
	}
	if !readBody(w, r, h.v, validate.RenewalDecision, &req) {
		return "", "", req, false
	}
	return id, actor, req, true
}

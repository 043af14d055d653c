package handler

import (
	"net/http"

	"github.com/matthewbaird/rentaldesk/internal/commission"
	"github.com/matthewbaird/rentaldesk/internal/repository"
	"github.com/matthewbaird/rentaldesk/internal/service"
	"github.com/matthewbaird/rentaldesk/internal/validate"
)

// CommissionHandler implements HTTP handlers for sale commissions.
type CommissionHandler struct {
	svc *service.Commissions
	v   *validate.Validator
}

// NewCommissionHandler creates a new CommissionHandler.
func NewCommissionHandler(svc *service.Commissions, v *validate.Validator) *CommissionHandler {
	return &CommissionHandler{svc: svc, v: v}
}

type previewRequest struct {
	SalePrice float64 `json:"sale_price"`
	SameAgent *bool   `json:"same_agent"`
}

// PreviewCommission computes a breakdown without storing it. same_agent
// defaults to true.
func (h *CommissionHandler) PreviewCommission(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if !readBody(w, r, h.v, validate.CommissionPreview, &req) {
		return
	}
	same := req.SameAgent == nil || *req.SameAgent
	writeJSON(w, http.StatusOK, h.svc.Preview(req.SalePrice, same))
}

type createCommissionRequest struct {
	PropertyID       string  `json:"property_id"`
	CapturingAgentID string  `json:"capturing_agent_id"`
	SellingAgentID   *string `json:"selling_agent_id"`
	SalePrice        float64 `json:"sale_price"`
	Notes            string  `json:"notes"`
}

func (h *CommissionHandler) CreateCommission(w http.ResponseWriter, r *http.Request) {
	var req createCommissionRequest
	if !readBody(w, r, h.v, validate.Commission, &req) {
		return
	}
	created, err := h.svc.Create(r.Context(), service.CommissionInput{
		PropertyID:       req.PropertyID,
		CapturingAgentID: req.CapturingAgentID,
		SellingAgentID:   req.SellingAgentID,
		SalePrice:        req.SalePrice,
		Notes:            req.Notes,
	})
	if err != nil {
		errorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *CommissionHandler) GetCommission(w http.ResponseWriter, r *http.Request) {
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

// ListCommissions filters by status, property_id and agent_id.
func (h *CommissionHandler) ListCommissions(w http.ResponseWriter, r *http.Request) {
	p := parsePagination(r)
	qs := r.URL.Query()
	items, err := h.svc.List(r.Context(), repository.CommissionQuery{
		Status:     commission.Status(qs.Get("status")),
		PropertyID: qs.Get("property_id"),
		AgentID:    qs.Get("agent_id"),
		Limit:      p.Limit,
		Offset:     p.Offset,
	})
	if err != nil {
		errorToHTTP(w, err)
		return
	}
	if items == nil {
		items = []commission.Commission{}
	}
	writeJSON(w, http.StatusOK, items)
}

type commissionPaymentRequest struct {
	PaymentDate string `json:"payment_date"`
}

func (h *CommissionHandler) PayCommission(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	var req commissionPaymentRequest
	if !readBody(w, r, h.v, validate.CommissionPayment, &req) {
		return
	}
	paidOn, ok := parseDate(w, "payment_date", req.PaymentDate)
	if !ok {
		return
	}
	updated, err := h.svc.MarkPaid(r.Context(), id, paidOn)
	if err != nil {
		errorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

type commissionCancelRequest struct {
	Reason string `json:"reason"`
}

func (h *CommissionHandler) CancelCommission(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	var req commissionCancelRequest
	if !readBody(w, r, h.v, validate.CommissionCancel, &req) {
		return
	}
	updated, err := h.svc.Cancel(r.Context(), id, req.Reason)
	if err != nil {
		errorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

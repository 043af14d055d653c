package handler

import (
	"net/http"

	"github.com/matthewbaird/rentaldesk/internal/service"
	"github.com/matthewbaird/rentaldesk/internal/validate"
)

// PaymentHandler implements HTTP handlers for a rental's payments.
type PaymentHandler struct {
	svc *service.Payments
	v   *validate.Validator
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(svc *service.Payments, v *validate.Validator) *PaymentHandler {
	return &PaymentHandler{svc: svc, v: v}
}

// SchedulePayments generates the monthly payments for a rental's term.
func (h *PaymentHandler) SchedulePayments(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	created, err := h.svc.Schedule(r.Context(), id)
	if err != nil {
		errorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

type chargeRequest struct {
	Amount  float64 `json:"amount"`
	DueDate string  `json:"due_date"`
	Notes   string  `json:"notes"`
}

func (h *PaymentHandler) CreateCharge(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	var req chargeRequest
	if !readBody(w, r, h.v, validate.Charge, &req) {
		return
	}
	due, ok := parseDate(w, "due_date", req.DueDate)
	if !ok {
		return
	}
	created, err := h.svc.Charge(r.Context(), id, req.Amount, due, req.Notes)
	if err != nil {
		errorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *PaymentHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	items, err := h.svc.List(r.Context(), id)
	if err != nil {
		errorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// PaymentStatus reports the rental's aggregated payment health.
func (h *PaymentHandler) PaymentStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	sum, err := h.svc.Status(r.Context(), id)
	if err != nil {
		errorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

type markPaidRequest struct {
	PaymentDate string `json:"payment_date"`
	Method      string `json:"method"`
	Notes       string `json:"notes"`
}

func (h *PaymentHandler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	var req markPaidRequest
	if !readBody(w, r, h.v, validate.MarkPaid, &req) {
		return
	}
	paidOn, ok := parseDate(w, "payment_date", req.PaymentDate)
	if !ok {
		return
	}
	updated, err := h.svc.MarkPaid(r.Context(), id, paidOn, req.Method, req.Notes)
	if err != nil {
		errorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *PaymentHandler) DeletePayment(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		errorToHTTP(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

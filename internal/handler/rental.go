package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/matthewbaird/rentaldesk/internal/rental"
	"github.com/matthewbaird/rentaldesk/internal/repository"
	"github.com/matthewbaird/rentaldesk/internal/service"
	"github.com/matthewbaird/rentaldesk/internal/validate"
)

// RentalHandler implements HTTP handlers for rentals and their status.
type RentalHandler struct {
	svc *service.Rentals
	v   *validate.Validator
}

// NewRentalHandler creates a new RentalHandler.
func NewRentalHandler(svc *service.Rentals, v *validate.Validator) *RentalHandler {
	return &RentalHandler{svc: svc, v: v}
}

type createRentalRequest struct {
	PropertyID    string  `json:"property_id"`
	TenantName    string  `json:"tenant_name"`
	TenantContact string  `json:"tenant_contact"`
	StartDate     string  `json:"start_date"`
	EndDate       string  `json:"end_date"`
	MonthlyAmount float64 `json:"monthly_amount"`
	Notes         string  `json:"notes"`
}

func (h *RentalHandler) CreateRental(w http.ResponseWriter, r *http.Request) {
	var req createRentalRequest
	if !readBody(w, r, h.v, validate.CreateRental, &req) {
		return
	}
	start, ok := parseDate(w, "start_date", req.StartDate)
	if !ok {
		return
	}
	end, ok := parseDate(w, "end_date", req.EndDate)
	if !ok {
		return
	}
	created, err := h.svc.Create(r.Context(), rental.Input{
		PropertyID:    req.PropertyID,
		TenantName:    req.TenantName,
		TenantContact: req.TenantContact,
		StartDate:     start,
		EndDate:       end,
		MonthlyAmount: req.MonthlyAmount,
		Notes:         req.Notes,
	})
	if err != nil {
		errorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *RentalHandler) GetRental(w http.ResponseWriter, r *http.Request) {
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

// ListRentals accepts a comma-separated status filter and a property_id.
func (h *RentalHandler) ListRentals(w http.ResponseWriter, r *http.Request) {
	p := parsePagination(r)
	q := repository.RentalQuery{
		PropertyID: r.URL.Query().Get("property_id"),
		Limit:      p.Limit,
		Offset:     p.Offset,
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			st := rental.Status(strings.TrimSpace(s))
			if !st.Valid() {
				writeError(w, http.StatusBadRequest, "INVALID_STATUS", "unknown status: "+string(st))
				return
			}
			q.Statuses = append(q.Statuses, st)
		}
	}
	items, err := h.svc.List(r.Context(), q)
	if err != nil {
		errorToHTTP(w, err)
		return
	}
	if items == nil {
		items = []rental.Rental{}
	}
	writeJSON(w, http.StatusOK, items)
}

// RefreshRental recomputes one rental's status and stores it if it changed.
func (h *RentalHandler) RefreshRental(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	res, err := h.svc.RefreshStatus(r.Context(), id)
	if err != nil {
		errorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// RefreshAll sweeps every rental not under a manual override.
func (h *RentalHandler) RefreshAll(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.RefreshAll(r.Context())
	if err != nil {
		errorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type overrideRequest struct {
	Reason string `json:"reason"`
}

func (h *RentalHandler) TerminateRental(w http.ResponseWriter, r *http.Request) {
	h.override(w, r, h.svc.Terminate)
}

func (h *RentalHandler) CancelRental(w http.ResponseWriter, r *http.Request) {
	h.override(w, r, h.svc.Cancel)
}

func (h *RentalHandler) override(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, id, reason string) (rental.Rental, error)) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	var req overrideRequest
	if !readBody(w, r, h.v, validate.OverrideReason, &req) {
		return
	}
	updated, err := apply(r.Context(), id, req.Reason)
	if err != nil {
		errorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *RentalHandler) ClearOverride(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	updated, err := h.svc.ClearOverride(r.Context(), id)
	if err != nil {
		errorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

type linkTenantRequest struct {
	TenantID *string `json:"tenant_id"`
}

func (h *RentalHandler) LinkTenant(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	var req linkTenantRequest
	if !readBody(w, r, h.v, validate.LinkTenant, &req) {
		return
	}
	updated, err := h.svc.LinkTenant(r.Context(), id, req.TenantID)
	if err != nil {
		errorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *RentalHandler) Timeline(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	tl, err := h.svc.Timeline(r.Context(), id)
	if err != nil {
		errorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tl)
}

// Activity returns the rental's audit trail. ?limit= caps the result.
func (h *RentalHandler) Activity(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.svc.Activity(r.Context(), id, limit)
	if err != nil {
		errorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

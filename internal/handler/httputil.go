package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/matthewbaird/rentaldesk/internal/payment"
	"github.com/matthewbaird/rentaldesk/internal/renewal"
	"github.com/matthewbaird/rentaldesk/internal/timewindow"
	"github.com/matthewbaird/rentaldesk/internal/types"
	"github.com/matthewbaird/rentaldesk/internal/validate"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error string             `json:"error"`
	Code  string             `json:"code"`
	Field string             `json:"field,omitempty"`
	Can   *bool              `json:"can,omitempty"`
	Deny  renewal.DenialCode `json:"reason_code,omitempty"`
}

// writeJSON marshals v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("handler: encode response: %v", err)
	}
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Error: message, Code: code})
}

// readBody validates the request body against definition and decodes it
// into dst. On failure the error response has been written.
func readBody(w http.ResponseWriter, r *http.Request, v *validate.Validator, definition string, dst any) bool {
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return false
	}
	if err := v.Check(definition, body); err != nil {
		errorToHTTP(w, err)
		return false
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return true
	}
	if err := json.Unmarshal(body, dst); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return false
	}
	return true
}

// parseID extracts a required path parameter.
func parseID(w http.ResponseWriter, r *http.Request, paramName string) (string, bool) {
	id := strings.TrimSpace(chi.URLParam(r, paramName))
	if id == "" {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "missing "+paramName)
		return "", false
	}
	return id, true
}

// parseDate parses a date field that the schema already checked for shape.
func parseDate(w http.ResponseWriter, field, raw string) (time.Time, bool) {
	t, err := timewindow.ParseDate(raw)
	if err != nil {
		errorToHTTP(w, types.NewValidationError(field, "%v", err))
		return time.Time{}, false
	}
	return t, true
}

// Pagination holds parsed pagination parameters.
type Pagination struct {
	Limit  int
	Offset int
}

// parsePagination extracts page_size and offset from query params.
func parsePagination(r *http.Request) Pagination {
	p := Pagination{Limit: 50, Offset: 0}
	if v := r.URL.Query().Get("page_size"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			p.Limit = n
		}
	}
	if p.Limit > 200 {
		p.Limit = 200
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			p.Offset = n
		}
	}
	return p
}

// errorToHTTP maps service errors to HTTP responses.
func errorToHTTP(w http.ResponseWriter, err error) {
	if ve, ok := types.AsValidationError(err); ok {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: ve.Error(), Code: "VALIDATION_ERROR", Field: ve.Field})
		return
	}
	var denied *renewal.DeniedError
	if errors.As(err, &denied) {
		can := false
		writeJSON(w, http.StatusConflict, errorBody{Error: denied.Reason, Code: "RENEWAL_DENIED", Can: &can, Deny: denied.Code})
		return
	}
	switch {
	case types.IsNotFound(err):
		writeError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, types.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "INVALID_TRANSITION", err.Error())
	case errors.Is(err, payment.ErrPaidImmutable):
		writeError(w, http.StatusConflict, "PAYMENT_IMMUTABLE", err.Error())
	case types.IsConflict(err):
		writeError(w, http.StatusConflict, "CONFLICT", err.Error())
	default:
		log.Printf("handler: internal error: %v", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}

// parseActor reads the X-Actor header that identifies who performs a
// decision.
func parseActor(w http.ResponseWriter, r *http.Request) (string, bool) {
	actor := strings.TrimSpace(r.Header.Get("X-Actor"))
	if actor == "" {
		writeError(w, http.StatusBadRequest, "MISSING_ACTOR", "X-Actor header is required")
		return "", false
	}
	return actor, true
}

package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/rentaldesk/internal/payment"
	"github.com/matthewbaird/rentaldesk/internal/renewal"
	"github.com/matthewbaird/rentaldesk/internal/types"
)

func TestErrorToHTTP(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantField  string
		wantReason string
		wantDenied bool
	}{
		{
			name:       "validation",
			err:        fmt.Errorf("creating rental: %w", types.NewValidationError("monthly_amount", "must be greater than 0")),
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_ERROR",
			wantField:  "monthly_amount",
		},
		{
			name:       "renewal denied",
			err:        fmt.Errorf("requesting renewal: %w", renewal.AlreadyPending(12).Err()),
			wantStatus: http.StatusConflict,
			wantCode:   "RENEWAL_DENIED",
			wantReason: string(renewal.DenyAlreadyPending),
			wantDenied: true,
		},
		{
			name:       "not found",
			err:        fmt.Errorf("rentals r-9: %w", types.ErrNotFound),
			wantStatus: http.StatusNotFound,
			wantCode:   "NOT_FOUND",
		},
		{
			name:       "invalid transition",
			err:        fmt.Errorf("terminated -> active: %w", types.ErrInvalidTransition),
			wantStatus: http.StatusConflict,
			wantCode:   "INVALID_TRANSITION",
		},
		{
			name:       "paid payment",
			err:        payment.ErrPaidImmutable,
			wantStatus: http.StatusConflict,
			wantCode:   "PAYMENT_IMMUTABLE",
		},
		{
			name:       "store conflict",
			err:        fmt.Errorf("inserting into renewal_requests: %w", types.ErrConflict),
			wantStatus: http.StatusConflict,
			wantCode:   "CONFLICT",
		},
		{
			name:       "anything else",
			err:        errors.New("disk on fire"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INTERNAL_ERROR",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			errorToHTTP(rec, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCode, body["code"])
			assert.NotEmpty(t, body["error"])

			if tt.wantField != "" {
				assert.Equal(t, tt.wantField, body["field"])
			} else {
				assert.NotContains(t, body, "field")
			}
			if tt.wantReason != "" {
				assert.Equal(t, tt.wantReason, body["reason_code"])
			} else {
				assert.NotContains(t, body, "reason_code")
			}
			if tt.wantDenied {
				assert.Equal(t, false, body["can"])
			} else {
				assert.NotContains(t, body, "can")
			}
		})
	}
}

func TestErrorToHTTP_HidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	errorToHTTP(rec, errors.New("dial tcp 10.0.0.5:5432: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "10.0.0.5")
}

func TestErrorToHTTP_DeniedReasonIsMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	errorToHTTP(rec, renewal.AlreadyPending(3).Err())

	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Ya tienes una solicitud pendiente para este contrato", body.Error)
	assert.Equal(t, renewal.DenyAlreadyPending, body.Deny)
	require.NotNil(t, body.Can)
	assert.False(t, *body.Can)
}

func TestParseActor(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/v1/renewals/x/approve", nil)
	rec := httptest.NewRecorder()
	_, ok := parseActor(rec, r)
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "MISSING_ACTOR")

	r.Header.Set("X-Actor", "  admin ")
	actor, ok := parseActor(httptest.NewRecorder(), r)
	require.True(t, ok)
	assert.Equal(t, "admin", actor)
}

func TestParsePagination(t *testing.T) {
	tests := []struct {
		query string
		want  Pagination
	}{
		{"", Pagination{Limit: 50}},
		{"?page_size=10&offset=20", Pagination{Limit: 10, Offset: 20}},
		{"?page_size=1000", Pagination{Limit: 200}},
		{"?page_size=-1&offset=-5", Pagination{Limit: 50}},
		{"?page_size=abc", Pagination{Limit: 50}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/v1/rentals"+tt.query, nil)
			assert.Equal(t, tt.want, parsePagination(r))
		})
	}
}

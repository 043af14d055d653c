package rental

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/rentaldesk/internal/types"
)

func TestSetOverride(t *testing.T) {
	r := Rental{StartDate: date("2024-01-01"), EndDate: date("2024-12-31"), Status: StatusActive}

	got, err := SetOverride(r, OverrideTerminated, date("2024-06-15"))
	require.NoError(t, err)
	assert.Equal(t, StatusTerminated, got.Status)

	o, ok := got.Override()
	assert.True(t, ok)
	assert.Equal(t, OverrideTerminated, o)
	assert.Equal(t, PhaseActive, got.Phase(date("2024-06-15")))

	_, err = SetOverride(got, OverrideCancelled, date("2024-06-15"))
	assert.True(t, errors.Is(err, types.ErrInvalidTransition))
}

func TestSetOverride_UsesDerivedStatus(t *testing.T) {
	// Stored as active but the dates say expired: cancelling is refused.
	r := Rental{StartDate: date("2024-01-01"), EndDate: date("2024-03-31"), Status: StatusActive}
	_, err := SetOverride(r, OverrideCancelled, date("2024-06-15"))
	assert.True(t, errors.Is(err, types.ErrInvalidTransition))

	got, err := SetOverride(r, OverrideTerminated, date("2024-06-15"))
	require.NoError(t, err)
	assert.Equal(t, StatusTerminated, got.Status)
}

func TestSetOverride_PendingCanOnlyBeCancelled(t *testing.T) {
	r := Rental{StartDate: date("2024-07-01"), EndDate: date("2025-06-30"), Status: StatusPending}
	_, err := SetOverride(r, OverrideTerminated, date("2024-06-15"))
	assert.Error(t, err)

	got, err := SetOverride(r, OverrideCancelled, date("2024-06-15"))
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, got.Status)
}

func TestClearOverride(t *testing.T) {
	r := Rental{StartDate: date("2024-01-01"), EndDate: date("2024-06-30"), Status: StatusCancelled}
	got, err := ClearOverride(r, date("2024-06-15"))
	require.NoError(t, err)
	assert.Equal(t, StatusNearExpiration, got.Status)

	_, err = ClearOverride(got, date("2024-06-15"))
	assert.True(t, errors.Is(err, types.ErrInvalidTransition))
}

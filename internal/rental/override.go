package rental

import (
	"fmt"
	"time"

	"github.com/matthewbaird/rentaldesk/internal/transition"
	"github.com/matthewbaird/rentaldesk/internal/types"
)

// ManualTransitions lists the overrides an operator may apply from each
// derived status. Overridden rentals only leave their status through
// ClearOverride.
var ManualTransitions = transition.Table{
	string(StatusPending):        {string(StatusCancelled)},
	string(StatusActive):         {string(StatusTerminated), string(StatusCancelled)},
	string(StatusNearExpiration): {string(StatusTerminated), string(StatusCancelled)},
	string(StatusExpired):        {string(StatusTerminated)},
	string(StatusTerminated):     {},
	string(StatusCancelled):      {},
}

// SetOverride forces r into o. The check runs against the status the dates
// give on today, not a possibly stale stored one.
func SetOverride(r Rental, o Override, today time.Time) (Rental, error) {
	current := DetermineStatus(r.StartDate, r.EndDate, r.Status, today)
	if err := ManualTransitions.Validate(string(current), string(o)); err != nil {
		return Rental{}, err
	}
	r.Status = Collapse(r.Phase(today), o)
	return r, nil
}

// ClearOverride removes a manual status and re-derives it from the dates.
func ClearOverride(r Rental, today time.Time) (Rental, error) {
	if !r.Status.IsOverride() {
		return Rental{}, fmt.Errorf("rental status %q has no override to clear: %w", r.Status, types.ErrInvalidTransition)
	}
	r.Status = Collapse(r.Phase(today), "")
	return r, nil
}

package rental

import (
	"time"

	"github.com/matthewbaird/rentaldesk/internal/timewindow"
)

// NearExpirationDays is the remaining-days threshold at or below which an
// in-range rental is reported as near_expiration.
const NearExpirationDays = 30

// Phase is the lifecycle state derived purely from dates.
type Phase string

const (
	PhasePending        Phase = Phase(StatusPending)
	PhaseActive         Phase = Phase(StatusActive)
	PhaseNearExpiration Phase = Phase(StatusNearExpiration)
	PhaseExpired        Phase = Phase(StatusExpired)
)

// Override is a manually forced terminal status.
type Override string

const (
	OverrideTerminated Override = Override(StatusTerminated)
	OverrideCancelled  Override = Override(StatusCancelled)
)

// Classify derives the phase for [start, end] on the calendar day today.
// today == start is active; today == end is still in range.
func Classify(start, end, today time.Time) Phase {
	today = timewindow.Date(today)
	if today.Before(timewindow.Date(start)) {
		return PhasePending
	}
	end = timewindow.Date(end)
	if today.After(end) {
		return PhaseExpired
	}
	if timewindow.RemainingDays(end, today) <= NearExpirationDays {
		return PhaseNearExpiration
	}
	return PhaseActive
}

// Collapse merges a derived phase with an optional override into the single
// display status.
func Collapse(p Phase, o Override) Status {
	if o != "" {
		return Status(o)
	}
	return Status(p)
}

// DetermineStatus returns the status a rental should carry on today.
// A terminated or cancelled current status is returned unchanged.
func DetermineStatus(start, end time.Time, current Status, today time.Time) Status {
	if current.IsOverride() {
		return current
	}
	return Collapse(Classify(start, end, today), "")
}

// Recompute returns the status r should carry on today and whether it
// differs from the stored one.
func Recompute(r Rental, today time.Time) (Status, bool) {
	next := DetermineStatus(r.StartDate, r.EndDate, r.Status, today)
	return next, next != r.Status
}

// InForce reports whether r is running on today: not overridden, started and
// not yet past its end date. near_expiration is a sub-state of active.
func InForce(r Rental, today time.Time) bool {
	switch DetermineStatus(r.StartDate, r.EndDate, r.Status, today) {
	case StatusActive, StatusNearExpiration:
		return true
	}
	return false
}

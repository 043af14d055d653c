// Package clock provides the injectable notion of "now" used by every
// date-dependent rule.
package clock

import (
	"time"

	"github.com/matthewbaird/rentaldesk/internal/timewindow"
)

// Clock reports the current instant.
type Clock interface {
	Now() time.Time
}

// System reads the wall clock in Location (UTC when nil).
type System struct {
	Location *time.Location
}

func (s System) Now() time.Time {
	if s.Location == nil {
		return time.Now().UTC()
	}
	return time.Now().In(s.Location)
}

// Fixed always returns the same instant. Used by tests and by the CLI's
// --as-of flag.
type Fixed time.Time

func (f Fixed) Now() time.Time { return time.Time(f) }

// Today returns the calendar day of c.Now() as a UTC-midnight date.
func Today(c Clock) time.Time {
	return timewindow.Date(c.Now())
}

// FromTimezone builds a System clock for the named IANA zone.
func FromTimezone(name string) (System, error) {
	if name == "" || name == "UTC" {
		return System{Location: time.UTC}, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return System{}, err
	}
	return System{Location: loc}, nil
}

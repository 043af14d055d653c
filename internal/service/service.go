// Package service runs the rental operations against the store: it loads
// records, applies the pure domain rules with today's date and persists the
// outcome, emitting a domain event for every change.
package service

import (
	"time"

	"github.com/matthewbaird/rentaldesk/internal/alertstream"
	"github.com/matthewbaird/rentaldesk/internal/cache"
	"github.com/matthewbaird/rentaldesk/internal/clock"
	"github.com/matthewbaird/rentaldesk/internal/event"
	"github.com/matthewbaird/rentaldesk/internal/notify"
	"github.com/matthewbaird/rentaldesk/internal/repository"
	"github.com/matthewbaird/rentaldesk/internal/store"
)

// Options carries the optional collaborators. Zero values disable them.
type Options struct {
	Clock    clock.Clock
	Recorder event.Recorder
	Notifier notify.Notifier
	Cache    cache.Cache
	AlertTTL time.Duration
	Hub      *alertstream.Hub
}

// Services groups every service over one store.
type Services struct {
	Rentals     *Rentals
	Payments    *Payments
	Renewals    *Renewals
	Commissions *Commissions
	Alerts      *Alerts
	Activity    *repository.Activity
}

// New wires the services over s.
func New(s store.Store, opts Options) *Services {
	if opts.Clock == nil {
		opts.Clock = clock.System{}
	}
	if opts.AlertTTL <= 0 {
		opts.AlertTTL = time.Minute
	}
	rentals := repository.NewRentals(s, opts.Clock)
	payments := repository.NewPayments(s, opts.Clock)
	renewals := repository.NewRenewals(s, opts.Clock)
	commissions := repository.NewCommissions(s, opts.Clock)
	activity := repository.NewActivity(s)

	rs := &Rentals{repo: rentals, activity: activity, opts: opts}
	return &Services{
		Rentals:     rs,
		Payments:    &Payments{repo: payments, rentals: rs, opts: opts},
		Renewals:    &Renewals{repo: renewals, rentals: rs, opts: opts},
		Commissions: &Commissions{repo: commissions, opts: opts},
		Alerts:      &Alerts{rentals: rentals, opts: opts},
		Activity:    activity,
	}
}

func (o Options) today() time.Time {
	return clock.Today(o.Clock)
}

package service

import (
	"context"
	"fmt"
	"log"

	"github.com/matthewbaird/rentaldesk/internal/event"
	"github.com/matthewbaird/rentaldesk/internal/metrics"
	"github.com/matthewbaird/rentaldesk/internal/notify"
	"github.com/matthewbaird/rentaldesk/internal/renewal"
	"github.com/matthewbaird/rentaldesk/internal/rental"
	"github.com/matthewbaird/rentaldesk/internal/repository"
	"github.com/matthewbaird/rentaldesk/internal/timewindow"
	"github.com/matthewbaird/rentaldesk/internal/types"
)

// Renewals evaluates and decides renewal requests.
type Renewals struct {
	repo    *repository.Renewals
	rentals *Rentals
	opts    Options
	// pending serialises Request per rental so the eligibility check and
	// the insert see the same pending state.
	pending keyedMutex
}

// Eligibility reports whether the rental's tenant may request a renewal now.
func (s *Renewals) Eligibility(ctx context.Context, rentalID string) (renewal.Eligibility, error) {
	r, err := s.rentals.repo.Get(ctx, rentalID)
	if err != nil {
		return renewal.Eligibility{}, err
	}
	pending, err := s.repo.Pending(ctx, rentalID)
	if err != nil {
		return renewal.Eligibility{}, err
	}
	return renewal.CanRequest(r, pending, s.opts.today()), nil
}

// Request validates in, checks eligibility and stores a pending request.
// Nothing is stored when validation fails or the rules deny the request.
// A rental holds at most one pending request: concurrent callers are
// serialised per rental and the store's unique index backs the rule up for
// writers outside this process.
func (s *Renewals) Request(ctx context.Context, in renewal.Input) (renewal.Request, error) {
	req, err := renewal.NewRequest(in)
	if err != nil {
		return renewal.Request{}, err
	}
	unlock := s.pending.Lock(req.RentalID)
	defer unlock()

	elig, err := s.Eligibility(ctx, req.RentalID)
	if err != nil {
		return renewal.Request{}, err
	}
	if err := elig.Err(); err != nil {
		return renewal.Request{}, err
	}
	req, err = s.repo.Create(ctx, req)
	if types.IsConflict(err) {
		return renewal.Request{}, renewal.AlreadyPending(elig.DaysUntilExpiration).Err()
	}
	if err != nil {
		return renewal.Request{}, fmt.Errorf("creating renewal request: %w", err)
	}
	event.Emit(ctx, s.opts.Recorder, event.NewRenewalRequested(event.RenewalRequestedPayload{
		RequestID:      req.ID,
		RentalID:       req.RentalID,
		RequestedBy:    req.RequestedBy,
		DurationMonths: req.RequestedDurationMonths,
		ProposedAmount: req.ProposedAmount,
	}, s.opts.Clock.Now()))
	notify.Send(ctx, s.opts.Notifier, notify.Notice{
		Level:    notify.LevelInfo,
		Title:    "Nueva solicitud de renovación",
		Message:  fmt.Sprintf("Renovación de %d meses por %.2f", req.RequestedDurationMonths, req.ProposedAmount),
		RentalID: req.RentalID,
	})
	return req, nil
}

func (s *Renewals) Get(ctx context.Context, id string) (renewal.Request, error) {
	return s.repo.Get(ctx, id)
}

// ListByRental returns every request made on a rental, newest first.
func (s *Renewals) ListByRental(ctx context.Context, rentalID string) ([]renewal.Request, error) {
	if _, err := s.rentals.repo.Get(ctx, rentalID); err != nil {
		return nil, err
	}
	return s.repo.ListByRental(ctx, rentalID)
}

// Approve accepts a pending request and extends the rental with its terms.
// The rental is updated first; if saving the request then fails, the
// rental's previous terms are restored.
func (s *Renewals) Approve(ctx context.Context, id, actor, response string) (renewal.Request, rental.Rental, error) {
	req, err := s.repo.Get(ctx, id)
	if err != nil {
		return renewal.Request{}, rental.Rental{}, err
	}
	now := s.opts.Clock.Now()
	decided, err := renewal.Decide(req, renewal.StatusApproved, actor, response, now)
	if err != nil {
		return renewal.Request{}, rental.Rental{}, err
	}
	before, err := s.rentals.repo.Get(ctx, req.RentalID)
	if err != nil {
		return renewal.Request{}, rental.Rental{}, err
	}
	if o, ok := before.Override(); ok {
		return renewal.Request{}, rental.Rental{}, fmt.Errorf("rental %s is %s: %w", before.ID, o, types.ErrInvalidTransition)
	}
	terms := renewal.Terms(before, req)
	next := renewal.Apply(before, terms, s.opts.today())

	after, err := s.rentals.repo.SetTerms(ctx, before.ID, next.EndDate, next.MonthlyAmount, next.Status)
	if err != nil {
		return renewal.Request{}, rental.Rental{}, fmt.Errorf("extending rental %s: %w", before.ID, err)
	}
	saved, err := s.repo.Save(ctx, decided)
	if err != nil {
		if _, rbErr := s.rentals.repo.SetTerms(ctx, before.ID, before.EndDate, before.MonthlyAmount, before.Status); rbErr != nil {
			log.Printf("renewal: restoring rental %s after failed approval: %v", before.ID, rbErr)
		}
		return renewal.Request{}, rental.Rental{}, fmt.Errorf("saving renewal request %s: %w", id, err)
	}

	metrics.RenewalDecisions.WithLabelValues(string(renewal.StatusApproved)).Inc()
	event.Emit(ctx, s.opts.Recorder, event.NewRenewalDecided(event.RenewalDecidedPayload{
		RequestID: saved.ID,
		RentalID:  saved.RentalID,
		Decision:  string(saved.Status),
		DecidedBy: actor,
		Response:  response,
	}, now))
	event.Emit(ctx, s.opts.Recorder, event.NewRentalRenewed(event.RentalRenewedPayload{
		RentalID:     after.ID,
		PropertyID:   after.PropertyID,
		RequestID:    saved.ID,
		PreviousEnd:  timewindow.FormatDate(before.EndDate),
		NewEnd:       timewindow.FormatDate(after.EndDate),
		PreviousRent: before.MonthlyAmount,
		NewRent:      after.MonthlyAmount,
	}, now))
	if before.Status != after.Status {
		metrics.RentalStatusTransitions.WithLabelValues(string(before.Status), string(after.Status)).Inc()
	}
	s.notifyDecision(ctx, saved)
	return saved, after, nil
}

// Reject declines a pending request.
func (s *Renewals) Reject(ctx context.Context, id, actor, response string) (renewal.Request, error) {
	return s.close(ctx, id, renewal.StatusRejected, actor, response)
}

// Cancel withdraws a pending request.
func (s *Renewals) Cancel(ctx context.Context, id, actor, response string) (renewal.Request, error) {
	return s.close(ctx, id, renewal.StatusCancelled, actor, response)
}

func (s *Renewals) close(ctx context.Context, id string, target renewal.Status, actor, response string) (renewal.Request, error) {
	req, err := s.repo.Get(ctx, id)
	if err != nil {
		return renewal.Request{}, err
	}
	now := s.opts.Clock.Now()
	decided, err := renewal.Decide(req, target, actor, response, now)
	if err != nil {
		return renewal.Request{}, err
	}
	saved, err := s.repo.Save(ctx, decided)
	if err != nil {
		return renewal.Request{}, fmt.Errorf("saving renewal request %s: %w", id, err)
	}
	metrics.RenewalDecisions.WithLabelValues(string(target)).Inc()
	event.Emit(ctx, s.opts.Recorder, event.NewRenewalDecided(event.RenewalDecidedPayload{
		RequestID: saved.ID,
		RentalID:  saved.RentalID,
		Decision:  string(target),
		DecidedBy: actor,
		Response:  response,
	}, now))
	s.notifyDecision(ctx, saved)
	return saved, nil
}

func (s *Renewals) notifyDecision(ctx context.Context, req renewal.Request) {
	n := notify.Notice{Recipient: req.RequestedBy, RentalID: req.RentalID}
	switch req.Status {
	case renewal.StatusApproved:
		n.Level, n.Title, n.Message = notify.LevelSuccess, "Renovación aprobada", "Tu solicitud de renovación fue aprobada"
	case renewal.StatusRejected:
		n.Level, n.Title, n.Message = notify.LevelWarning, "Renovación rechazada", "Tu solicitud de renovación fue rechazada"
	default:
		n.Level, n.Title, n.Message = notify.LevelInfo, "Renovación cancelada", "La solicitud de renovación fue cancelada"
	}
	if req.AdminResponse != "" {
		n.Message += ": " + req.AdminResponse
	}
	notify.Send(ctx, s.opts.Notifier, n)
}

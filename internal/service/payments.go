package service

import (
	"context"
	"fmt"
	"time"

	"github.com/matthewbaird/rentaldesk/internal/event"
	"github.com/matthewbaird/rentaldesk/internal/payment"
	"github.com/matthewbaird/rentaldesk/internal/repository"
	"github.com/matthewbaird/rentaldesk/internal/timewindow"
	"github.com/matthewbaird/rentaldesk/internal/types"
)

// Payments manages a rental's payment obligations.
type Payments struct {
	repo    *repository.Payments
	rentals *Rentals
	opts    Options
}

func paymentPayload(p payment.Payment) event.PaymentPayload {
	out := event.PaymentPayload{
		PaymentID: p.ID,
		RentalID:  p.RentalID,
		Amount:    p.Amount,
		DueDate:   timewindow.FormatDate(p.DueDate),
		Method:    p.Method,
	}
	if p.PaymentDate != nil {
		out.PaymentDate = timewindow.FormatDate(*p.PaymentDate)
	}
	return out
}

// Schedule creates the monthly payments for a rental's whole term. A
// rental that already has payments is refused.
func (s *Payments) Schedule(ctx context.Context, rentalID string) ([]payment.Payment, error) {
	r, err := s.rentals.repo.Get(ctx, rentalID)
	if err != nil {
		return nil, err
	}
	existing, err := s.repo.ListByRental(ctx, rentalID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, types.NewValidationError("rental_id", "rental already has %d payments", len(existing))
	}
	planned, err := payment.Schedule(r)
	if err != nil {
		return nil, err
	}
	created, err := s.repo.CreateAll(ctx, planned)
	if err != nil {
		return created, fmt.Errorf("scheduling payments: %w", err)
	}
	now := s.opts.Clock.Now()
	for _, p := range created {
		event.Emit(ctx, s.opts.Recorder, event.NewPaymentCreated(paymentPayload(p), now))
	}
	return created, nil
}

// Charge adds a one-off obligation.
func (s *Payments) Charge(ctx context.Context, rentalID string, amount float64, due time.Time, notes string) (payment.Payment, error) {
	p, err := payment.NewCharge(rentalID, amount, due, notes)
	if err != nil {
		return payment.Payment{}, err
	}
	if _, err := s.rentals.repo.Get(ctx, rentalID); err != nil {
		return payment.Payment{}, err
	}
	p, err = s.repo.Create(ctx, p)
	if err != nil {
		return payment.Payment{}, fmt.Errorf("creating charge: %w", err)
	}
	event.Emit(ctx, s.opts.Recorder, event.NewPaymentCreated(paymentPayload(p), s.opts.Clock.Now()))
	return p, nil
}

// List returns a rental's payments by due date.
func (s *Payments) List(ctx context.Context, rentalID string) ([]payment.Payment, error) {
	if _, err := s.rentals.repo.Get(ctx, rentalID); err != nil {
		return nil, err
	}
	return s.repo.ListByRental(ctx, rentalID)
}

// Status reduces a rental's payments to one health value for now.
func (s *Payments) Status(ctx context.Context, rentalID string) (payment.Summary, error) {
	ps, err := s.List(ctx, rentalID)
	if err != nil {
		return payment.Summary{}, err
	}
	return payment.Summarize(rentalID, ps, s.opts.Clock.Now()), nil
}

// MarkPaid records receipt of a payment.
func (s *Payments) MarkPaid(ctx context.Context, id string, paidOn time.Time, method, notes string) (payment.Payment, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return payment.Payment{}, err
	}
	paid, err := p.MarkPaid(paidOn, method, notes)
	if err != nil {
		return payment.Payment{}, err
	}
	saved, err := s.repo.Save(ctx, paid)
	if err != nil {
		return payment.Payment{}, fmt.Errorf("saving payment %s: %w", id, err)
	}
	event.Emit(ctx, s.opts.Recorder, event.NewPaymentReceived(paymentPayload(saved), s.opts.Clock.Now()))
	return saved, nil
}

// Delete removes an unpaid payment.
func (s *Payments) Delete(ctx context.Context, id string) error {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := p.CanDelete(); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	event.Emit(ctx, s.opts.Recorder, event.NewPaymentDeleted(paymentPayload(p), s.opts.Clock.Now()))
	return nil
}

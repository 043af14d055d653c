package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/matthewbaird/rentaldesk/internal/commission"
	"github.com/matthewbaird/rentaldesk/internal/event"
	"github.com/matthewbaird/rentaldesk/internal/metrics"
	"github.com/matthewbaird/rentaldesk/internal/repository"
)

// Commissions records sale commissions and their payout.
type Commissions struct {
	repo *repository.Commissions
	opts Options
}

// CommissionInput describes a closed sale.
type CommissionInput struct {
	PropertyID       string
	CapturingAgentID string
	SellingAgentID   *string
	SalePrice        float64
	Notes            string
}

// Preview computes a breakdown without storing anything.
func (s *Commissions) Preview(salePrice float64, sameAgent bool) commission.Breakdown {
	return commission.Calculate(salePrice, sameAgent)
}

// Create records the commission on a sale.
func (s *Commissions) Create(ctx context.Context, in CommissionInput) (commission.Commission, error) {
	c, err := commission.New(in.PropertyID, in.CapturingAgentID, in.SellingAgentID, in.SalePrice)
	if err != nil {
		return commission.Commission{}, err
	}
	c.Notes = strings.TrimSpace(in.Notes)
	c, err = s.repo.Create(ctx, c)
	if err != nil {
		return commission.Commission{}, fmt.Errorf("creating commission: %w", err)
	}
	metrics.CommissionsCreated.WithLabelValues(string(c.Policy())).Inc()
	event.Emit(ctx, s.opts.Recorder, event.NewCommissionCreated(event.CommissionCreatedPayload{
		CommissionID:     c.ID,
		PropertyID:       c.PropertyID,
		CapturingAgentID: c.CapturingAgentID,
		SellingAgentID:   c.SellingAgentID,
		SalePrice:        c.SalePrice,
		TotalCommission:  c.TotalCommission,
		Policy:           string(c.Policy()),
	}, s.opts.Clock.Now()))
	return c, nil
}

func (s *Commissions) Get(ctx context.Context, id string) (commission.Commission, error) {
	return s.repo.Get(ctx, id)
}

func (s *Commissions) List(ctx context.Context, q repository.CommissionQuery) ([]commission.Commission, error) {
	return s.repo.List(ctx, q)
}

// MarkPaid records the payout date.
func (s *Commissions) MarkPaid(ctx context.Context, id string, paidOn time.Time) (commission.Commission, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return commission.Commission{}, err
	}
	next, err := c.MarkPaid(paidOn)
	if err != nil {
		return commission.Commission{}, err
	}
	return s.save(ctx, c, next)
}

// Cancel voids a pending commission.
func (s *Commissions) Cancel(ctx context.Context, id, reason string) (commission.Commission, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return commission.Commission{}, err
	}
	next, err := c.Cancel(strings.TrimSpace(reason))
	if err != nil {
		return commission.Commission{}, err
	}
	return s.save(ctx, c, next)
}

func (s *Commissions) save(ctx context.Context, before, next commission.Commission) (commission.Commission, error) {
	saved, err := s.repo.Save(ctx, next)
	if err != nil {
		return commission.Commission{}, fmt.Errorf("saving commission %s: %w", before.ID, err)
	}
	event.Emit(ctx, s.opts.Recorder, event.NewCommissionStatusChanged(event.CommissionStatusChangedPayload{
		CommissionID: saved.ID,
		PropertyID:   saved.PropertyID,
		From:         string(before.Status),
		To:           string(saved.Status),
	}, s.opts.Clock.Now()))
	return saved, nil
}

package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/matthewbaird/rentaldesk/internal/event"
	"github.com/matthewbaird/rentaldesk/internal/metrics"
	"github.com/matthewbaird/rentaldesk/internal/notify"
	"github.com/matthewbaird/rentaldesk/internal/rental"
	"github.com/matthewbaird/rentaldesk/internal/repository"
	"github.com/matthewbaird/rentaldesk/internal/timewindow"
	"github.com/matthewbaird/rentaldesk/internal/types"
)

// Rentals manages rental records and their status.
type Rentals struct {
	repo     *repository.Rentals
	activity *repository.Activity
	opts     Options
}

// Change describes one persisted status move.
type Change struct {
	RentalID string        `json:"rental_id"`
	From     rental.Status `json:"from"`
	To       rental.Status `json:"to"`
}

// RefreshResult is the outcome of a single status refresh.
type RefreshResult struct {
	Rental   rental.Rental `json:"rental"`
	Previous rental.Status `json:"previous_status"`
	Changed  bool          `json:"changed"`
}

// SweepResult summarises RefreshAll.
type SweepResult struct {
	Checked int      `json:"checked"`
	Updated int      `json:"updated"`
	Changes []Change `json:"changes"`
}

// Timeline is the date arithmetic for one rental on today.
type Timeline struct {
	RentalID        string          `json:"rental_id"`
	Status          rental.Status   `json:"status"`
	Phase           rental.Phase    `json:"phase"`
	Override        rental.Override `json:"override,omitempty"`
	Today           string          `json:"today"`
	RemainingDays   int             `json:"remaining_days"`
	ProgressPercent float64         `json:"progress_percent"`
	DurationDays    int             `json:"duration_days"`
	DurationMonths  int             `json:"duration_months"`
}

// Create validates in, derives the initial status and stores the rental.
func (s *Rentals) Create(ctx context.Context, in rental.Input) (rental.Rental, error) {
	today := s.opts.today()
	r, err := rental.New(in, today)
	if err != nil {
		return rental.Rental{}, err
	}
	r, err = s.repo.Create(ctx, r)
	if err != nil {
		return rental.Rental{}, fmt.Errorf("creating rental: %w", err)
	}
	event.Emit(ctx, s.opts.Recorder, event.NewRentalCreated(event.RentalCreatedPayload{
		RentalID:      r.ID,
		PropertyID:    r.PropertyID,
		TenantName:    r.TenantName,
		StartDate:     timewindow.FormatDate(r.StartDate),
		EndDate:       timewindow.FormatDate(r.EndDate),
		MonthlyAmount: r.MonthlyAmount,
		Status:        string(r.Status),
	}, s.opts.Clock.Now()))
	return r, nil
}

// Get returns the rental with its status recomputed for today. A stale
// stored status is corrected in the same call.
func (s *Rentals) Get(ctx context.Context, id string) (rental.Rental, error) {
	res, err := s.RefreshStatus(ctx, id)
	if err != nil {
		return rental.Rental{}, err
	}
	return res.Rental, nil
}

// List returns stored rentals ordered by end date.
func (s *Rentals) List(ctx context.Context, q repository.RentalQuery) ([]rental.Rental, error) {
	return s.repo.List(ctx, q)
}

// RefreshStatus reads one rental, recomputes its status and writes it back
// only when it differs. At most one update is issued.
func (s *Rentals) RefreshStatus(ctx context.Context, id string) (RefreshResult, error) {
	r, err := s.repo.Get(ctx, id)
	if err != nil {
		return RefreshResult{}, err
	}
	next, changed := rental.Recompute(r, s.opts.today())
	res := RefreshResult{Rental: r, Previous: r.Status}
	if !changed {
		return res, nil
	}
	updated, err := s.persistStatus(ctx, r, next, false, "")
	if err != nil {
		return RefreshResult{}, err
	}
	res.Rental = updated
	res.Changed = true
	return res, nil
}

// RefreshAll refreshes every rental not under a manual override.
func (s *Rentals) RefreshAll(ctx context.Context) (SweepResult, error) {
	candidates, err := s.repo.List(ctx, repository.RentalQuery{Statuses: []rental.Status{
		rental.StatusPending, rental.StatusActive, rental.StatusNearExpiration, rental.StatusExpired,
	}})
	if err != nil {
		return SweepResult{}, fmt.Errorf("listing rentals: %w", err)
	}
	today := s.opts.today()
	res := SweepResult{Changes: []Change{}}
	for _, r := range candidates {
		res.Checked++
		next, changed := rental.Recompute(r, today)
		if !changed {
			continue
		}
		if _, err := s.persistStatus(ctx, r, next, false, ""); err != nil {
			return res, fmt.Errorf("refreshing rental %s: %w", r.ID, err)
		}
		res.Updated++
		res.Changes = append(res.Changes, Change{RentalID: r.ID, From: r.Status, To: next})
	}
	return res, nil
}

// Terminate ends a running rental early.
func (s *Rentals) Terminate(ctx context.Context, id, reason string) (rental.Rental, error) {
	return s.override(ctx, id, rental.OverrideTerminated, reason)
}

// Cancel voids a rental.
func (s *Rentals) Cancel(ctx context.Context, id, reason string) (rental.Rental, error) {
	return s.override(ctx, id, rental.OverrideCancelled, reason)
}

func (s *Rentals) override(ctx context.Context, id string, o rental.Override, reason string) (rental.Rental, error) {
	r, err := s.repo.Get(ctx, id)
	if err != nil {
		return rental.Rental{}, err
	}
	next, err := rental.SetOverride(r, o, s.opts.today())
	if err != nil {
		return rental.Rental{}, err
	}
	return s.persistStatus(ctx, r, next.Status, true, strings.TrimSpace(reason))
}

// ClearOverride removes a manual status; the dates decide again.
func (s *Rentals) ClearOverride(ctx context.Context, id string) (rental.Rental, error) {
	r, err := s.repo.Get(ctx, id)
	if err != nil {
		return rental.Rental{}, err
	}
	next, err := rental.ClearOverride(r, s.opts.today())
	if err != nil {
		return rental.Rental{}, err
	}
	return s.persistStatus(ctx, r, next.Status, true, "override cleared")
}

// LinkTenant attaches (or with nil, detaches) a tenant account.
func (s *Rentals) LinkTenant(ctx context.Context, id string, tenantID *string) (rental.Rental, error) {
	if tenantID != nil {
		trimmed := strings.TrimSpace(*tenantID)
		if trimmed == "" {
			tenantID = nil
		} else {
			tenantID = &trimmed
		}
	}
	r, err := s.repo.SetTenant(ctx, id, tenantID)
	if err != nil {
		return rental.Rental{}, err
	}
	event.Emit(ctx, s.opts.Recorder, event.NewRentalTenantLinked(event.RentalTenantLinkedPayload{
		RentalID:   r.ID,
		PropertyID: r.PropertyID,
		TenantID:   r.TenantID,
	}, s.opts.Clock.Now()))
	return r, nil
}

// Timeline returns the rental's date arithmetic for today.
func (s *Rentals) Timeline(ctx context.Context, id string) (Timeline, error) {
	r, err := s.Get(ctx, id)
	if err != nil {
		return Timeline{}, err
	}
	today := s.opts.today()
	o, _ := r.Override()
	return Timeline{
		RentalID:        r.ID,
		Status:          r.Status,
		Phase:           r.Phase(today),
		Override:        o,
		Today:           timewindow.FormatDate(today),
		RemainingDays:   timewindow.RemainingDays(r.EndDate, today),
		ProgressPercent: timewindow.ProgressPercent(r.StartDate, r.EndDate, today),
		DurationDays:    timewindow.DurationDays(r.StartDate, r.EndDate),
		DurationMonths:  timewindow.DurationMonths(r.StartDate, r.EndDate),
	}, nil
}

// Activity returns the rental's audit trail, newest first.
func (s *Rentals) Activity(ctx context.Context, id string, limit int) ([]types.ActivityEntry, error) {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.activity.ByEntity(ctx, "rental", id, limit)
}

func (s *Rentals) persistStatus(ctx context.Context, r rental.Rental, next rental.Status, manual bool, reason string) (rental.Rental, error) {
	updated, err := s.repo.SetStatus(ctx, r.ID, next)
	if err != nil {
		return rental.Rental{}, fmt.Errorf("updating rental %s status: %w", r.ID, err)
	}
	metrics.RentalStatusTransitions.WithLabelValues(string(r.Status), string(next)).Inc()
	event.Emit(ctx, s.opts.Recorder, event.NewRentalStatusChanged(event.RentalStatusChangedPayload{
		RentalID:   r.ID,
		PropertyID: r.PropertyID,
		From:       string(r.Status),
		To:         string(next),
		Manual:     manual,
		Reason:     reason,
	}, s.opts.Clock.Now()))

	switch next {
	case rental.StatusNearExpiration:
		notify.Send(ctx, s.opts.Notifier, notify.Notice{
			Level:    notify.LevelWarning,
			Title:    "Contrato por vencer",
			Message:  fmt.Sprintf("El contrato de %s vence el %s", r.TenantName, timewindow.FormatDate(r.EndDate)),
			RentalID: r.ID,
		})
	case rental.StatusExpired:
		notify.Send(ctx, s.opts.Notifier, notify.Notice{
			Level:    notify.LevelError,
			Title:    "Contrato vencido",
			Message:  fmt.Sprintf("El contrato de %s venció el %s", r.TenantName, timewindow.FormatDate(r.EndDate)),
			RentalID: r.ID,
		})
	}
	return updated, nil
}

package repository

import (
	"context"

	"github.com/matthewbaird/rentaldesk/internal/clock"
	"github.com/matthewbaird/rentaldesk/internal/renewal"
	"github.com/matthewbaird/rentaldesk/internal/store"
)

// Renewals persists renewal.Request values.
type Renewals struct {
	store store.Store
	clock clock.Clock
}

func NewRenewals(s store.Store, c clock.Clock) *Renewals {
	return &Renewals{store: s, clock: c}
}

func renewalToRecord(r renewal.Request) store.Record {
	return store.Record{
		"id":                        r.ID,
		"rental_id":                 r.RentalID,
		"requested_by":              emptyAsNull(r.RequestedBy),
		"status":                    string(r.Status),
		"requested_duration_months": int64(r.RequestedDurationMonths),
		"proposed_amount":           r.ProposedAmount,
		"tenant_message":            emptyAsNull(r.TenantMessage),
		"admin_response":            emptyAsNull(r.AdminResponse),
		"decided_by":                emptyAsNull(r.DecidedBy),
		"decided_at":                nullableTimestamp(r.DecidedAt),
		"created_at":                formatTimestamp(r.CreatedAt),
		"updated_at":                formatTimestamp(r.UpdatedAt),
	}
}

func renewalFromRecord(rec store.Record) (renewal.Request, error) {
	r := renewal.Request{
		ID:            rec.ID(),
		RentalID:      str(rec, "rental_id"),
		RequestedBy:   str(rec, "requested_by"),
		Status:        renewal.Status(str(rec, "status")),
		TenantMessage: str(rec, "tenant_message"),
		AdminResponse: str(rec, "admin_response"),
		DecidedBy:     str(rec, "decided_by"),
	}
	var err error
	if r.RequestedDurationMonths, err = integer(rec, "requested_duration_months"); err != nil {
		return renewal.Request{}, err
	}
	if r.ProposedAmount, err = num(rec, "proposed_amount"); err != nil {
		return renewal.Request{}, err
	}
	if r.DecidedAt, err = optTimestamp(rec, "decided_at"); err != nil {
		return renewal.Request{}, err
	}
	if r.CreatedAt, err = timestamp(rec, "created_at"); err != nil {
		return renewal.Request{}, err
	}
	if r.UpdatedAt, err = timestamp(rec, "updated_at"); err != nil {
		return renewal.Request{}, err
	}
	return r, nil
}

func (repo *Renewals) Create(ctx context.Context, r renewal.Request) (renewal.Request, error) {
	now := repo.clock.Now()
	r.CreatedAt, r.UpdatedAt = now, now
	rec := renewalToRecord(r)
	if r.ID == "" {
		delete(rec, "id")
	}
	out, err := repo.store.Insert(ctx, store.TableRenewalRequests, rec)
	if err != nil {
		return renewal.Request{}, err
	}
	return renewalFromRecord(out)
}

func (repo *Renewals) Get(ctx context.Context, id string) (renewal.Request, error) {
	recs, err := repo.store.Select(ctx, store.TableRenewalRequests, store.Where("id", id))
	rec, err := first(recs, err, store.TableRenewalRequests, id)
	if err != nil {
		return renewal.Request{}, err
	}
	return renewalFromRecord(rec)
}

// Pending returns the rental's open request, or nil when there is none.
func (repo *Renewals) Pending(ctx context.Context, rentalID string) (*renewal.Request, error) {
	recs, err := repo.store.Select(ctx, store.TableRenewalRequests,
		store.Where("rental_id", rentalID).And("status", string(renewal.StatusPending)).Sorted("created_at", false))
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil
	}
	r, err := renewalFromRecord(recs[0])
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ListByRental returns a rental's requests, newest first.
func (repo *Renewals) ListByRental(ctx context.Context, rentalID string) ([]renewal.Request, error) {
	recs, err := repo.store.Select(ctx, store.TableRenewalRequests,
		store.Where("rental_id", rentalID).Sorted("created_at", true))
	if err != nil {
		return nil, err
	}
	return scanAll(recs, renewalFromRecord)
}

// Save writes the decision fields of r.
func (repo *Renewals) Save(ctx context.Context, r renewal.Request) (renewal.Request, error) {
	rec, err := repo.store.Update(ctx, store.TableRenewalRequests, r.ID, store.Record{
		"status":         string(r.Status),
		"admin_response": emptyAsNull(r.AdminResponse),
		"decided_by":     emptyAsNull(r.DecidedBy),
		"decided_at":     nullableTimestamp(r.DecidedAt),
		"updated_at":     formatTimestamp(repo.clock.Now()),
	})
	if err != nil {
		return renewal.Request{}, err
	}
	return renewalFromRecord(rec)
}

package repository

import (
	"context"
	"time"

	"github.com/matthewbaird/rentaldesk/internal/clock"
	"github.com/matthewbaird/rentaldesk/internal/rental"
	"github.com/matthewbaird/rentaldesk/internal/store"
	"github.com/matthewbaird/rentaldesk/internal/timewindow"
)

// Rentals persists rental.Rental values.
type Rentals struct {
	store store.Store
	clock clock.Clock
}

func NewRentals(s store.Store, c clock.Clock) *Rentals {
	return &Rentals{store: s, clock: c}
}

// RentalQuery narrows List.
type RentalQuery struct {
	Statuses   []rental.Status
	PropertyID string
	Limit      int
	Offset     int
}

func rentalToRecord(r rental.Rental) store.Record {
	return store.Record{
		"id":             r.ID,
		"property_id":    r.PropertyID,
		"tenant_name":    r.TenantName,
		"tenant_contact": emptyAsNull(r.TenantContact),
		"tenant_id":      nullable(r.TenantID),
		"start_date":     timewindow.FormatDate(r.StartDate),
		"end_date":       timewindow.FormatDate(r.EndDate),
		"monthly_amount": r.MonthlyAmount,
		"status":         string(r.Status),
		"notes":          emptyAsNull(r.Notes),
		"created_at":     formatTimestamp(r.CreatedAt),
		"updated_at":     formatTimestamp(r.UpdatedAt),
	}
}

func rentalFromRecord(rec store.Record) (rental.Rental, error) {
	r := rental.Rental{
		ID:            rec.ID(),
		PropertyID:    str(rec, "property_id"),
		TenantName:    str(rec, "tenant_name"),
		TenantContact: str(rec, "tenant_contact"),
		TenantID:      optStr(rec, "tenant_id"),
		Status:        rental.Status(str(rec, "status")),
		Notes:         str(rec, "notes"),
	}
	var err error
	if r.StartDate, err = date(rec, "start_date"); err != nil {
		return rental.Rental{}, err
	}
	if r.EndDate, err = date(rec, "end_date"); err != nil {
		return rental.Rental{}, err
	}
	if r.MonthlyAmount, err = num(rec, "monthly_amount"); err != nil {
		return rental.Rental{}, err
	}
	if r.CreatedAt, err = timestamp(rec, "created_at"); err != nil {
		return rental.Rental{}, err
	}
	if r.UpdatedAt, err = timestamp(rec, "updated_at"); err != nil {
		return rental.Rental{}, err
	}
	return r, nil
}

// Create inserts r, assigning an id when r has none.
func (repo *Rentals) Create(ctx context.Context, r rental.Rental) (rental.Rental, error) {
	now := repo.clock.Now()
	r.CreatedAt, r.UpdatedAt = now, now
	rec := rentalToRecord(r)
	if r.ID == "" {
		delete(rec, "id")
	}
	out, err := repo.store.Insert(ctx, store.TableRentals, rec)
	if err != nil {
		return rental.Rental{}, err
	}
	return rentalFromRecord(out)
}

func (repo *Rentals) Get(ctx context.Context, id string) (rental.Rental, error) {
	recs, err := repo.store.Select(ctx, store.TableRentals, store.Where("id", id))
	rec, err := first(recs, err, store.TableRentals, id)
	if err != nil {
		return rental.Rental{}, err
	}
	return rentalFromRecord(rec)
}

// List returns rentals ordered by end date ascending.
func (repo *Rentals) List(ctx context.Context, q RentalQuery) ([]rental.Rental, error) {
	f := store.Filter{}.Sorted("end_date", false).Page(q.Limit, q.Offset)
	if len(q.Statuses) > 0 {
		in := make([]any, len(q.Statuses))
		for i, s := range q.Statuses {
			in[i] = string(s)
		}
		f.In = map[string][]any{"status": in}
	}
	if q.PropertyID != "" {
		f = f.And("property_id", q.PropertyID)
	}
	recs, err := repo.store.Select(ctx, store.TableRentals, f)
	if err != nil {
		return nil, err
	}
	return scanAll(recs, rentalFromRecord)
}

// Patch applies a partial update and stamps updated_at.
func (repo *Rentals) Patch(ctx context.Context, id string, patch store.Record) (rental.Rental, error) {
	patch = patch.Clone()
	patch["updated_at"] = formatTimestamp(repo.clock.Now())
	rec, err := repo.store.Update(ctx, store.TableRentals, id, patch)
	if err != nil {
		return rental.Rental{}, err
	}
	return rentalFromRecord(rec)
}

// SetStatus writes a new status.
func (repo *Rentals) SetStatus(ctx context.Context, id string, s rental.Status) (rental.Rental, error) {
	return repo.Patch(ctx, id, store.Record{"status": string(s)})
}

// SetTerms writes a new end date, rent and status in one update.
func (repo *Rentals) SetTerms(ctx context.Context, id string, end time.Time, amount float64, s rental.Status) (rental.Rental, error) {
	return repo.Patch(ctx, id, store.Record{
		"end_date":       timewindow.FormatDate(end),
		"monthly_amount": amount,
		"status":         string(s),
	})
}

// SetTenant links or unlinks the tenant account.
func (repo *Rentals) SetTenant(ctx context.Context, id string, tenantID *string) (rental.Rental, error) {
	return repo.Patch(ctx, id, store.Record{"tenant_id": nullable(tenantID)})
}

package repository

import (
	"context"

	"github.com/matthewbaird/rentaldesk/internal/clock"
	"github.com/matthewbaird/rentaldesk/internal/payment"
	"github.com/matthewbaird/rentaldesk/internal/store"
	"github.com/matthewbaird/rentaldesk/internal/timewindow"
)

// Payments persists payment.Payment values.
type Payments struct {
	store store.Store
	clock clock.Clock
}

func NewPayments(s store.Store, c clock.Clock) *Payments {
	return &Payments{store: s, clock: c}
}

func paymentToRecord(p payment.Payment) store.Record {
	return store.Record{
		"id":             p.ID,
		"rental_id":      p.RentalID,
		"amount":         p.Amount,
		"due_date":       timewindow.FormatDate(p.DueDate),
		"status":         string(p.Status),
		"payment_date":   nullableDate(p.PaymentDate),
		"payment_method": emptyAsNull(p.Method),
		"notes":          emptyAsNull(p.Notes),
		"created_at":     formatTimestamp(p.CreatedAt),
		"updated_at":     formatTimestamp(p.UpdatedAt),
	}
}

func paymentFromRecord(rec store.Record) (payment.Payment, error) {
	p := payment.Payment{
		ID:       rec.ID(),
		RentalID: str(rec, "rental_id"),
		Status:   payment.Status(str(rec, "status")),
		Method:   str(rec, "payment_method"),
		Notes:    str(rec, "notes"),
	}
	var err error
	if p.Amount, err = num(rec, "amount"); err != nil {
		return payment.Payment{}, err
	}
	if p.DueDate, err = date(rec, "due_date"); err != nil {
		return payment.Payment{}, err
	}
	if p.PaymentDate, err = optDate(rec, "payment_date"); err != nil {
		return payment.Payment{}, err
	}
	if p.CreatedAt, err = timestamp(rec, "created_at"); err != nil {
		return payment.Payment{}, err
	}
	if p.UpdatedAt, err = timestamp(rec, "updated_at"); err != nil {
		return payment.Payment{}, err
	}
	return p, nil
}

func (repo *Payments) Create(ctx context.Context, p payment.Payment) (payment.Payment, error) {
	now := repo.clock.Now()
	p.CreatedAt, p.UpdatedAt = now, now
	rec := paymentToRecord(p)
	if p.ID == "" {
		delete(rec, "id")
	}
	out, err := repo.store.Insert(ctx, store.TablePayments, rec)
	if err != nil {
		return payment.Payment{}, err
	}
	return paymentFromRecord(out)
}

// CreateAll inserts ps in order. It stops at the first failure and returns
// what was inserted so far.
func (repo *Payments) CreateAll(ctx context.Context, ps []payment.Payment) ([]payment.Payment, error) {
	out := make([]payment.Payment, 0, len(ps))
	for _, p := range ps {
		created, err := repo.Create(ctx, p)
		if err != nil {
			return out, err
		}
		out = append(out, created)
	}
	return out, nil
}

func (repo *Payments) Get(ctx context.Context, id string) (payment.Payment, error) {
	recs, err := repo.store.Select(ctx, store.TablePayments, store.Where("id", id))
	rec, err := first(recs, err, store.TablePayments, id)
	if err != nil {
		return payment.Payment{}, err
	}
	return paymentFromRecord(rec)
}

// ListByRental returns a rental's payments by due date.
func (repo *Payments) ListByRental(ctx context.Context, rentalID string) ([]payment.Payment, error) {
	recs, err := repo.store.Select(ctx, store.TablePayments,
		store.Where("rental_id", rentalID).Sorted("due_date", false))
	if err != nil {
		return nil, err
	}
	return scanAll(recs, paymentFromRecord)
}

// Save writes the mutable fields of p.
func (repo *Payments) Save(ctx context.Context, p payment.Payment) (payment.Payment, error) {
	rec, err := repo.store.Update(ctx, store.TablePayments, p.ID, store.Record{
		"status":         string(p.Status),
		"payment_date":   nullableDate(p.PaymentDate),
		"payment_method": emptyAsNull(p.Method),
		"notes":          emptyAsNull(p.Notes),
		"updated_at":     formatTimestamp(repo.clock.Now()),
	})
	if err != nil {
		return payment.Payment{}, err
	}
	return paymentFromRecord(rec)
}

func (repo *Payments) Delete(ctx context.Context, id string) error {
	ok, err := repo.store.Delete(ctx, store.TablePayments, id)
	if err != nil {
		return err
	}
	if !ok {
		return notFound(store.TablePayments, id)
	}
	return nil
}

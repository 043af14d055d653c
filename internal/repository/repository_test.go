package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/rentaldesk/internal/clock"
	"github.com/matthewbaird/rentaldesk/internal/commission"
	"github.com/matthewbaird/rentaldesk/internal/payment"
	"github.com/matthewbaird/rentaldesk/internal/renewal"
	"github.com/matthewbaird/rentaldesk/internal/rental"
	"github.com/matthewbaird/rentaldesk/internal/store"
	"github.com/matthewbaird/rentaldesk/internal/types"
)

var now = clock.Fixed(time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC))

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func sqliteStore(t *testing.T) *store.SQLStore {
	t.Helper()
	ctx := context.Background()
	s, err := store.OpenSQLite(ctx, "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(ctx))
	return s
}

func stores(t *testing.T) map[string]store.Store {
	return map[string]store.Store{
		"memory": store.NewMemoryStore(),
		"sqlite": sqliteStore(t),
	}
}

func seedRental(t *testing.T, repo *Rentals, end time.Time, status rental.Status) rental.Rental {
	t.Helper()
	r, err := repo.Create(context.Background(), rental.Rental{
		PropertyID:    "prop-1",
		TenantName:    "Ana Pérez",
		StartDate:     day(2024, 1, 1),
		EndDate:       end,
		MonthlyAmount: 950.5,
		Status:        status,
	})
	require.NoError(t, err)
	return r
}

func TestRentals_RoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			repo := NewRentals(s, now)
			created := seedRental(t, repo, day(2024, 12, 31), rental.StatusActive)
			require.NotEmpty(t, created.ID)
			assert.Equal(t, time.Time(now), created.CreatedAt)

			got, err := repo.Get(ctx, created.ID)
			require.NoError(t, err)
			assert.Equal(t, day(2024, 12, 31), got.EndDate)
			assert.Equal(t, 950.5, got.MonthlyAmount)
			assert.Nil(t, got.TenantID)
			assert.Equal(t, rental.StatusActive, got.Status)

			tenant := "tenant-7"
			got, err = repo.SetTenant(ctx, created.ID, &tenant)
			require.NoError(t, err)
			require.NotNil(t, got.TenantID)
			assert.Equal(t, tenant, *got.TenantID)

			got, err = repo.SetTerms(ctx, created.ID, day(2025, 6, 30), 1000, rental.StatusActive)
			require.NoError(t, err)
			assert.Equal(t, day(2025, 6, 30), got.EndDate)
			assert.Equal(t, 1000.0, got.MonthlyAmount)

			_, err = repo.Get(ctx, "missing")
			assert.True(t, types.IsNotFound(err))
		})
	}
}

func TestRentals_ListByStatus(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			repo := NewRentals(s, now)
			seedRental(t, repo, day(2024, 12, 31), rental.StatusActive)
			late := seedRental(t, repo, day(2024, 7, 1), rental.StatusNearExpiration)
			early := seedRental(t, repo, day(2024, 5, 1), rental.StatusExpired)

			got, err := repo.List(ctx, RentalQuery{Statuses: []rental.Status{rental.StatusNearExpiration, rental.StatusExpired}})
			require.NoError(t, err)
			require.Len(t, got, 2)
			assert.Equal(t, early.ID, got[0].ID)
			assert.Equal(t, late.ID, got[1].ID)

			all, err := repo.List(ctx, RentalQuery{})
			require.NoError(t, err)
			assert.Len(t, all, 3)
		})
	}
}

func TestPayments_RoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			r := seedRental(t, NewRentals(s, now), day(2024, 12, 31), rental.StatusActive)
			repo := NewPayments(s, now)

			schedule, err := payment.Schedule(r)
			require.NoError(t, err)
			created, err := repo.CreateAll(ctx, schedule)
			require.NoError(t, err)
			require.Len(t, created, 12)

			paid, err := created[0].MarkPaid(day(2024, 1, 3), "transfer", "")
			require.NoError(t, err)
			saved, err := repo.Save(ctx, paid)
			require.NoError(t, err)
			assert.Equal(t, payment.StatusPaid, saved.Status)
			require.NotNil(t, saved.PaymentDate)
			assert.Equal(t, day(2024, 1, 3), *saved.PaymentDate)
			assert.Equal(t, "transfer", saved.Method)

			list, err := repo.ListByRental(ctx, r.ID)
			require.NoError(t, err)
			require.Len(t, list, 12)
			assert.Equal(t, day(2024, 1, 1), list[0].DueDate)
			assert.Equal(t, day(2024, 12, 1), list[11].DueDate)

			require.NoError(t, repo.Delete(ctx, list[11].ID))
			assert.True(t, types.IsNotFound(repo.Delete(ctx, list[11].ID)))
		})
	}
}

func TestRenewals_Pending(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			r := seedRental(t, NewRentals(s, now), day(2024, 6, 30), rental.StatusNearExpiration)
			repo := NewRenewals(s, now)

			pending, err := repo.Pending(ctx, r.ID)
			require.NoError(t, err)
			assert.Nil(t, pending)

			req, err := renewal.NewRequest(renewal.Input{RentalID: r.ID, RequestedDurationMonths: 12, ProposedAmount: 1000})
			require.NoError(t, err)
			created, err := repo.Create(ctx, req)
			require.NoError(t, err)

			pending, err = repo.Pending(ctx, r.ID)
			require.NoError(t, err)
			require.NotNil(t, pending)
			assert.Equal(t, created.ID, pending.ID)
			assert.Equal(t, 12, pending.RequestedDurationMonths)

			decided, err := renewal.Decide(created, renewal.StatusRejected, "admin", "no", time.Time(now))
			require.NoError(t, err)
			saved, err := repo.Save(ctx, decided)
			require.NoError(t, err)
			assert.Equal(t, renewal.StatusRejected, saved.Status)
			require.NotNil(t, saved.DecidedAt)

			pending, err = repo.Pending(ctx, r.ID)
			require.NoError(t, err)
			assert.Nil(t, pending)
		})
	}
}

func TestCommissions_RoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			repo := NewCommissions(s, now)
			c, err := commission.New("prop-1", "agent-a", nil, 150000)
			require.NoError(t, err)
			created, err := repo.Create(ctx, c)
			require.NoError(t, err)

			got, err := repo.Get(ctx, created.ID)
			require.NoError(t, err)
			assert.True(t, got.SameAgent)
			assert.Equal(t, "agent-a", got.SellingAgentID)
			assert.InDelta(t, 3600, got.CapturingAgentAmount, 1e-9)
			assert.Zero(t, got.SellingAgentAmount)

			paid, err := got.MarkPaid(day(2024, 7, 1))
			require.NoError(t, err)
			saved, err := repo.Save(ctx, paid)
			require.NoError(t, err)
			assert.Equal(t, commission.StatusPaid, saved.Status)

			list, err := repo.List(ctx, CommissionQuery{Status: commission.StatusPaid})
			require.NoError(t, err)
			assert.Len(t, list, 1)
		})
	}
}

func TestActivity_ByEntity(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			repo := NewActivity(s)
			base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
			err := repo.WriteEntries(ctx, []types.ActivityEntry{
				{EventID: "e1", EventType: "rental_created", OccurredAt: base, IndexedEntityType: "rental", IndexedEntityID: "r1", EntityRole: "subject", Summary: "created", Category: "rental", Payload: json.RawMessage(`{"a":1}`)},
				{EventID: "e2", EventType: "rental_status_changed", OccurredAt: base.Add(time.Hour), IndexedEntityType: "rental", IndexedEntityID: "r1", EntityRole: "subject", Summary: "changed", Category: "rental"},
				{EventID: "e2", EventType: "rental_status_changed", OccurredAt: base.Add(time.Hour), IndexedEntityType: "property", IndexedEntityID: "p1", EntityRole: "context", Summary: "changed", Category: "rental"},
			})
			require.NoError(t, err)

			got, err := repo.ByEntity(ctx, "rental", "r1", 10)
			require.NoError(t, err)
			require.Len(t, got, 2)
			assert.Equal(t, "e2", got[0].EventID)
			assert.JSONEq(t, `{"a":1}`, string(got[1].Payload))
		})
	}
}

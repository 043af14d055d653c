package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/rentaldesk/internal/alert"
	"github.com/matthewbaird/rentaldesk/internal/alertstream"
	"github.com/matthewbaird/rentaldesk/internal/cache"
	"github.com/matthewbaird/rentaldesk/internal/clock"
	"github.com/matthewbaird/rentaldesk/internal/commission"
	"github.com/matthewbaird/rentaldesk/internal/event"
	"github.com/matthewbaird/rentaldesk/internal/notify"
	"github.com/matthewbaird/rentaldesk/internal/payment"
	"github.com/matthewbaird/rentaldesk/internal/renewal"
	"github.com/matthewbaird/rentaldesk/internal/rental"
	"github.com/matthewbaird/rentaldesk/internal/repository"
	"github.com/matthewbaird/rentaldesk/internal/store"
	"github.com/matthewbaird/rentaldesk/internal/types"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

type fixture struct {
	store   *store.MemoryStore
	svc     *Services
	notices *notify.Recorder
	clock   clock.Clock
}

func newFixture(t *testing.T, today string, opts ...func(*Options)) *fixture {
	t.Helper()
	st := store.NewMemoryStore()
	clk := clock.Fixed(day(today).Add(10 * time.Hour))
	notices := &notify.Recorder{}
	o := Options{
		Clock:    clk,
		Recorder: event.NewActivityRecorder(repository.NewActivity(st)),
		Notifier: notices,
	}
	for _, fn := range opts {
		fn(&o)
	}
	return &fixture{store: st, svc: New(st, o), notices: notices, clock: clk}
}

// seed stores a rental with the given stored status, bypassing derivation.
func (f *fixture) seed(t *testing.T, start, end string, status rental.Status) rental.Rental {
	t.Helper()
	r, err := repository.NewRentals(f.store, f.clock).Create(context.Background(), rental.Rental{
		PropertyID:    "prop-1",
		TenantName:    "Ana López",
		StartDate:     day(start),
		EndDate:       day(end),
		MonthlyAmount: 12000,
		Status:        status,
	})
	require.NoError(t, err)
	return r
}

func TestRefreshStatus_IssuesExactlyOneUpdate(t *testing.T) {
	f := newFixture(t, "2024-12-15")
	r := f.seed(t, "2024-01-01", "2024-12-31", rental.StatusActive)
	ctx := context.Background()

	res, err := f.svc.Rentals.RefreshStatus(ctx, r.ID)
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, rental.StatusActive, res.Previous)
	assert.Equal(t, rental.StatusNearExpiration, res.Rental.Status)
	assert.Equal(t, 1, f.store.Updates(store.TableRentals))

	res, err = f.svc.Rentals.RefreshStatus(ctx, r.ID)
	require.NoError(t, err)
	assert.False(t, res.Changed)
	assert.Equal(t, 1, f.store.Updates(store.TableRentals))

	require.Len(t, f.notices.Notices(), 1)
	assert.Equal(t, notify.LevelWarning, f.notices.Notices()[0].Level)
}

func TestRefreshStatus_NotFound(t *testing.T) {
	f := newFixture(t, "2024-12-15")
	_, err := f.svc.Rentals.RefreshStatus(context.Background(), "missing")
	assert.True(t, types.IsNotFound(err))
	assert.Equal(t, 0, f.store.Updates(store.TableRentals))
}

func TestRentals_Create(t *testing.T) {
	f := newFixture(t, "2024-12-15")
	ctx := context.Background()

	r, err := f.svc.Rentals.Create(ctx, rental.Input{
		PropertyID:    "prop-1",
		TenantName:    "Ana López",
		StartDate:     day("2025-01-01"),
		EndDate:       day("2025-12-31"),
		MonthlyAmount: 15000,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, r.ID)
	assert.Equal(t, rental.StatusPending, r.Status)

	entries, err := f.svc.Rentals.Activity(ctx, r.ID, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, event.TypeRentalCreated, entries[0].EventType)

	_, err = f.svc.Rentals.Create(ctx, rental.Input{
		PropertyID:    "prop-1",
		TenantName:    "Ana López",
		StartDate:     day("2025-01-01"),
		EndDate:       day("2024-12-31"),
		MonthlyAmount: 15000,
	})
	ve, ok := types.AsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, "end_date", ve.Field)
}

func TestRefreshAll_SkipsOverrides(t *testing.T) {
	f := newFixture(t, "2024-12-15")
	stale := f.seed(t, "2024-01-01", "2024-11-30", rental.StatusActive)
	f.seed(t, "2024-01-01", "2025-06-30", rental.StatusActive)
	f.seed(t, "2023-01-01", "2023-12-31", rental.StatusTerminated)

	res, err := f.svc.Rentals.RefreshAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Checked)
	assert.Equal(t, 1, res.Updated)
	require.Len(t, res.Changes, 1)
	assert.Equal(t, Change{RentalID: stale.ID, From: rental.StatusActive, To: rental.StatusExpired}, res.Changes[0])
}

func TestOverride_TerminateAndClear(t *testing.T) {
	f := newFixture(t, "2024-06-15")
	r := f.seed(t, "2024-01-01", "2024-12-31", rental.StatusActive)
	ctx := context.Background()

	got, err := f.svc.Rentals.Terminate(ctx, r.ID, "tenant left")
	require.NoError(t, err)
	assert.Equal(t, rental.StatusTerminated, got.Status)

	res, err := f.svc.Rentals.RefreshStatus(ctx, r.ID)
	require.NoError(t, err)
	assert.False(t, res.Changed)

	_, err = f.svc.Rentals.Cancel(ctx, r.ID, "")
	assert.ErrorIs(t, err, types.ErrInvalidTransition)

	got, err = f.svc.Rentals.ClearOverride(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, rental.StatusActive, got.Status)
}

func TestTimeline(t *testing.T) {
	f := newFixture(t, "2024-12-15")
	r := f.seed(t, "2024-01-01", "2024-12-31", rental.StatusNearExpiration)

	tl, err := f.svc.Rentals.Timeline(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, 16, tl.RemainingDays)
	assert.Equal(t, "2024-12-15", tl.Today)
	assert.Equal(t, rental.StatusNearExpiration, tl.Status)
	assert.Greater(t, tl.ProgressPercent, 95.0)
}

func TestLinkTenant(t *testing.T) {
	f := newFixture(t, "2024-06-15")
	r := f.seed(t, "2024-01-01", "2024-12-31", rental.StatusActive)
	tenant := " user-9 "

	got, err := f.svc.Rentals.LinkTenant(context.Background(), r.ID, &tenant)
	require.NoError(t, err)
	require.NotNil(t, got.TenantID)
	assert.Equal(t, "user-9", *got.TenantID)

	got, err = f.svc.Rentals.LinkTenant(context.Background(), r.ID, nil)
	require.NoError(t, err)
	assert.Nil(t, got.TenantID)
}

func TestRenewals_RequestValidationStoresNothing(t *testing.T) {
	f := newFixture(t, "2024-12-15")
	r := f.seed(t, "2024-01-01", "2024-12-31", rental.StatusNearExpiration)
	ctx := context.Background()

	_, err := f.svc.Renewals.Request(ctx, renewal.Input{RentalID: r.ID, RequestedDurationMonths: 3, ProposedAmount: 13000})
	ve, ok := types.AsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, "requested_duration_months", ve.Field)

	_, err = f.svc.Renewals.Request(ctx, renewal.Input{RentalID: r.ID, RequestedDurationMonths: 12, ProposedAmount: 0})
	ve, ok = types.AsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, "proposed_amount", ve.Field)

	recs, err := f.store.Select(ctx, store.TableRenewalRequests, store.Filter{})
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestRenewals_Denials(t *testing.T) {
	ctx := context.Background()

	t.Run("too early", func(t *testing.T) {
		f := newFixture(t, "2024-06-01")
		r := f.seed(t, "2024-01-01", "2024-12-31", rental.StatusActive)

		elig, err := f.svc.Renewals.Eligibility(ctx, r.ID)
		require.NoError(t, err)
		assert.False(t, elig.Can)
		assert.Equal(t, renewal.DenyTooEarly, elig.Code)

		_, err = f.svc.Renewals.Request(ctx, renewal.Input{RentalID: r.ID, RequestedDurationMonths: 12, ProposedAmount: 13000})
		var denied *renewal.DeniedError
		require.True(t, errors.As(err, &denied))
		assert.Equal(t, renewal.DenyTooEarly, denied.Code)
	})

	t.Run("already pending", func(t *testing.T) {
		f := newFixture(t, "2024-12-15")
		r := f.seed(t, "2024-01-01", "2024-12-31", rental.StatusNearExpiration)

		_, err := f.svc.Renewals.Request(ctx, renewal.Input{RentalID: r.ID, RequestedDurationMonths: 12, ProposedAmount: 13000})
		require.NoError(t, err)

		_, err = f.svc.Renewals.Request(ctx, renewal.Input{RentalID: r.ID, RequestedDurationMonths: 6, ProposedAmount: 13000})
		var denied *renewal.DeniedError
		require.True(t, errors.As(err, &denied))
		assert.Equal(t, "Ya tienes una solicitud pendiente para este contrato", denied.Error())
	})

	t.Run("missing rental", func(t *testing.T) {
		f := newFixture(t, "2024-12-15")
		_, err := f.svc.Renewals.Eligibility(ctx, "missing")
		assert.True(t, types.IsNotFound(err))
	})
}

func TestRenewals_ConcurrentRequestsStoreOnePending(t *testing.T) {
	f := newFixture(t, "2024-12-15")
	r := f.seed(t, "2024-01-01", "2024-12-31", rental.StatusNearExpiration)
	ctx := context.Background()

	const callers = 32
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
		denials []renewal.DenialCode
		other   []error
	)
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := f.svc.Renewals.Request(ctx, renewal.Input{RentalID: r.ID, RequestedDurationMonths: 12, ProposedAmount: 13000})
			mu.Lock()
			defer mu.Unlock()
			var denied *renewal.DeniedError
			switch {
			case err == nil:
				created++
			case errors.As(err, &denied):
				denials = append(denials, denied.Code)
			default:
				other = append(other, err)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Empty(t, other)
	assert.Equal(t, 1, created)
	require.Len(t, denials, callers-1)
	for _, code := range denials {
		assert.Equal(t, renewal.DenyAlreadyPending, code)
	}

	pending, err := f.store.Select(ctx, store.TableRenewalRequests, store.Filter{
		Eq: map[string]any{"rental_id": r.ID, "status": string(renewal.StatusPending)},
	})
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

// staleReadStore hides renewal requests from reads, as if another writer
// inserted one between the eligibility check and the insert.
type staleReadStore struct {
	store.Store
}

func (s staleReadStore) Select(ctx context.Context, table string, f store.Filter) ([]store.Record, error) {
	if table == store.TableRenewalRequests {
		return nil, nil
	}
	return s.Store.Select(ctx, table, f)
}

func TestRenewals_StoreConflictIsPendingDenial(t *testing.T) {
	f := newFixture(t, "2024-12-15")
	r := f.seed(t, "2024-01-01", "2024-12-31", rental.StatusNearExpiration)
	ctx := context.Background()

	_, err := f.svc.Renewals.Request(ctx, renewal.Input{RentalID: r.ID, RequestedDurationMonths: 12, ProposedAmount: 13000})
	require.NoError(t, err)

	stale := New(staleReadStore{f.store}, Options{Clock: f.clock})
	_, err = stale.Renewals.Request(ctx, renewal.Input{RentalID: r.ID, RequestedDurationMonths: 6, ProposedAmount: 13000})
	var denied *renewal.DeniedError
	require.True(t, errors.As(err, &denied), "got %v", err)
	assert.Equal(t, renewal.DenyAlreadyPending, denied.Code)
	assert.Equal(t, 16, denied.DaysUntilExpiration)
	assert.False(t, types.IsConflict(err))
}

func TestRenewals_Approve(t *testing.T) {
	f := newFixture(t, "2024-12-15")
	r := f.seed(t, "2024-01-01", "2024-12-31", rental.StatusNearExpiration)
	ctx := context.Background()

	req, err := f.svc.Renewals.Request(ctx, renewal.Input{
		RentalID:                r.ID,
		RequestedBy:             "tenant-1",
		RequestedDurationMonths: 6,
		ProposedAmount:          13000,
	})
	require.NoError(t, err)
	assert.Equal(t, renewal.StatusPending, req.Status)

	decided, extended, err := f.svc.Renewals.Approve(ctx, req.ID, "admin", "ok")
	require.NoError(t, err)
	assert.Equal(t, renewal.StatusApproved, decided.Status)
	assert.Equal(t, "admin", decided.DecidedBy)
	require.NotNil(t, decided.DecidedAt)
	assert.Equal(t, day("2025-06-30"), extended.EndDate)
	assert.Equal(t, 13000.0, extended.MonthlyAmount)
	assert.Equal(t, rental.StatusActive, extended.Status)

	_, err = f.svc.Renewals.Reject(ctx, req.ID, "admin", "")
	assert.ErrorIs(t, err, types.ErrInvalidTransition)

	entries, err := f.svc.Rentals.Activity(ctx, r.ID, 0)
	require.NoError(t, err)
	kinds := map[string]bool{}
	for _, e := range entries {
		kinds[e.EventType] = true
	}
	assert.True(t, kinds[event.TypeRentalRenewed])
	assert.True(t, kinds[event.TypeRenewalDecided])

	last := f.notices.Notices()[len(f.notices.Notices())-1]
	assert.Equal(t, "tenant-1", last.Recipient)
	assert.Equal(t, notify.LevelSuccess, last.Level)
}

func TestRenewals_ApproveRefusedOnOverride(t *testing.T) {
	f := newFixture(t, "2024-12-15")
	r := f.seed(t, "2024-01-01", "2024-12-31", rental.StatusNearExpiration)
	ctx := context.Background()

	req, err := f.svc.Renewals.Request(ctx, renewal.Input{RentalID: r.ID, RequestedDurationMonths: 6, ProposedAmount: 13000})
	require.NoError(t, err)
	_, err = f.svc.Rentals.Terminate(ctx, r.ID, "")
	require.NoError(t, err)

	_, _, err = f.svc.Renewals.Approve(ctx, req.ID, "admin", "")
	assert.ErrorIs(t, err, types.ErrInvalidTransition)

	got, err := f.svc.Renewals.Get(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, renewal.StatusPending, got.Status)
}

func TestRenewals_CancelAllowsNewRequest(t *testing.T) {
	f := newFixture(t, "2024-12-15")
	r := f.seed(t, "2024-01-01", "2024-12-31", rental.StatusNearExpiration)
	ctx := context.Background()

	req, err := f.svc.Renewals.Request(ctx, renewal.Input{RentalID: r.ID, RequestedDurationMonths: 6, ProposedAmount: 13000})
	require.NoError(t, err)
	_, err = f.svc.Renewals.Cancel(ctx, req.ID, "tenant-1", "changed my mind")
	require.NoError(t, err)

	elig, err := f.svc.Renewals.Eligibility(ctx, r.ID)
	require.NoError(t, err)
	assert.True(t, elig.Can)
	assert.Equal(t, 16, elig.DaysUntilExpiration)

	all, err := f.svc.Renewals.ListByRental(ctx, r.ID)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestPayments_Lifecycle(t *testing.T) {
	f := newFixture(t, "2024-03-10")
	r := f.seed(t, "2024-01-01", "2024-12-31", rental.StatusActive)
	ctx := context.Background()

	ps, err := f.svc.Payments.Schedule(ctx, r.ID)
	require.NoError(t, err)
	require.Len(t, ps, 12)
	assert.Equal(t, day("2024-01-01"), ps[0].DueDate)
	assert.Equal(t, day("2024-12-01"), ps[11].DueDate)

	_, err = f.svc.Payments.Schedule(ctx, r.ID)
	assert.True(t, types.IsValidationError(err))

	sum, err := f.svc.Payments.Status(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, payment.HealthOverdue, sum.Health)
	assert.Equal(t, 12, sum.OpenCount)

	for _, p := range ps[:3] {
		_, err := f.svc.Payments.MarkPaid(ctx, p.ID, day("2024-03-05"), "transfer", "")
		require.NoError(t, err)
	}
	sum, err = f.svc.Payments.Status(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, payment.HealthOK, sum.Health)
	assert.Equal(t, 36000.0, sum.TotalPaid)

	err = f.svc.Payments.Delete(ctx, ps[0].ID)
	assert.ErrorIs(t, err, payment.ErrPaidImmutable)

	require.NoError(t, f.svc.Payments.Delete(ctx, ps[11].ID))
	err = f.svc.Payments.Delete(ctx, ps[11].ID)
	assert.True(t, types.IsNotFound(err))

	left, err := f.svc.Payments.List(ctx, r.ID)
	require.NoError(t, err)
	assert.Len(t, left, 11)
}

func TestPayments_Charge(t *testing.T) {
	f := newFixture(t, "2024-03-10")
	r := f.seed(t, "2024-01-01", "2024-12-31", rental.StatusActive)
	ctx := context.Background()

	p, err := f.svc.Payments.Charge(ctx, r.ID, 500, day("2024-03-12"), "late fee")
	require.NoError(t, err)
	assert.Equal(t, payment.StatusPending, p.Status)

	sum, err := f.svc.Payments.Status(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, payment.HealthUpcoming, sum.Health)

	_, err = f.svc.Payments.Charge(ctx, "missing", 500, day("2024-03-12"), "")
	assert.True(t, types.IsNotFound(err))
}

func TestCommissions_Lifecycle(t *testing.T) {
	f := newFixture(t, "2024-03-10")
	ctx := context.Background()
	other := "agent-2"

	split, err := f.svc.Commissions.Create(ctx, CommissionInput{
		PropertyID:       "prop-1",
		CapturingAgentID: "agent-1",
		SellingAgentID:   &other,
		SalePrice:        1000000,
	})
	require.NoError(t, err)
	assert.False(t, split.SameAgent)
	assert.Equal(t, 60000.0, split.TotalCommission)
	assert.Equal(t, 12000.0, split.CapturingAgentAmount)
	assert.Equal(t, 12000.0, split.SellingAgentAmount)

	single, err := f.svc.Commissions.Create(ctx, CommissionInput{
		PropertyID:       "prop-2",
		CapturingAgentID: "agent-1",
		SalePrice:        500000,
	})
	require.NoError(t, err)
	assert.True(t, single.SameAgent)
	assert.Equal(t, 12000.0, single.CapturingAgentAmount)
	assert.Equal(t, 0.0, single.SellingAgentAmount)

	paid, err := f.svc.Commissions.MarkPaid(ctx, split.ID, day("2024-03-09"))
	require.NoError(t, err)
	assert.Equal(t, commission.StatusPaid, paid.Status)

	_, err = f.svc.Commissions.Cancel(ctx, split.ID, "")
	assert.ErrorIs(t, err, types.ErrInvalidTransition)

	pending, err := f.svc.Commissions.List(ctx, repository.CommissionQuery{Status: commission.StatusPending})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, single.ID, pending[0].ID)

	_, err = f.svc.Commissions.Create(ctx, CommissionInput{PropertyID: "prop-3", CapturingAgentID: "agent-1", SalePrice: -1})
	assert.True(t, types.IsValidationError(err))
}

func TestCommissions_Preview(t *testing.T) {
	f := newFixture(t, "2024-03-10")
	b := f.svc.Commissions.Preview(2000000, false)
	assert.Equal(t, 120000.0, b.TotalCommission)
	assert.Equal(t, b.Payout(), f.svc.Commissions.Preview(2000000, true).Payout())
}

type countingCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (c *countingCache) Get(_ context.Context, key string, dest any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.data[key]
	if !ok {
		return cache.ErrMiss
	}
	return json.Unmarshal(b, dest)
}

func (c *countingCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = b
	return nil
}

func (c *countingCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}

func TestAlerts_FeedAndCache(t *testing.T) {
	c := &countingCache{data: map[string][]byte{}}
	hub := alertstream.NewHub()
	f := newFixture(t, "2024-12-15", func(o *Options) {
		o.Cache = c
		o.Hub = hub
	})
	ctx := context.Background()
	late := f.seed(t, "2024-01-01", "2024-12-10", rental.StatusExpired)
	soon := f.seed(t, "2024-01-01", "2024-12-20", rental.StatusNearExpiration)
	f.seed(t, "2024-01-01", "2025-12-31", rental.StatusActive)

	feed, err := f.svc.Alerts.Alerts(ctx)
	require.NoError(t, err)
	require.Len(t, feed, 2)
	assert.Equal(t, late.ID, feed[0].Rental.ID)
	assert.Equal(t, -5, feed[0].RemainingDays)
	assert.True(t, feed[0].IsExpired)
	assert.Equal(t, soon.ID, feed[1].Rental.ID)
	assert.Equal(t, alert.LevelCritical, feed[1].Level)
	assert.Len(t, c.data, 1)

	// A cached feed is served even after the store changes.
	_, err = f.svc.Rentals.Terminate(ctx, late.ID, "")
	require.NoError(t, err)
	feed, err = f.svc.Alerts.Alerts(ctx)
	require.NoError(t, err)
	assert.Len(t, feed, 2)

	var pushed []alert.Alert
	unsubscribe := hub.Subscribe(func(a []alert.Alert) { pushed = a })
	defer unsubscribe()

	require.NoError(t, f.svc.Alerts.RefreshAlerts(ctx))
	require.Len(t, pushed, 1)
	assert.Equal(t, soon.ID, pushed[0].Rental.ID)
}

func TestAlerts_NoCache(t *testing.T) {
	f := newFixture(t, "2024-12-15")
	f.seed(t, "2024-01-01", "2024-12-20", rental.StatusNearExpiration)

	feed, err := f.svc.Alerts.Alerts(context.Background())
	require.NoError(t, err)
	assert.Len(t, feed, 1)
	require.NoError(t, f.svc.Alerts.RefreshAlerts(context.Background()))
}

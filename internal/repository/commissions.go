package repository

import (
	"context"

	"github.com/matthewbaird/rentaldesk/internal/clock"
	"github.com/matthewbaird/rentaldesk/internal/commission"
	"github.com/matthewbaird/rentaldesk/internal/store"
)

// Commissions persists commission.Commission values.
type Commissions struct {
	store store.Store
	clock clock.Clock
}

func NewCommissions(s store.Store, c clock.Clock) *Commissions {
	return &Commissions{store: s, clock: c}
}

// CommissionQuery narrows List.
type CommissionQuery struct {
	Status     commission.Status
	PropertyID string
	AgentID    string
	Limit      int
	Offset     int
}

func commissionToRecord(c commission.Commission) store.Record {
	return store.Record{
		"id":                     c.ID,
		"property_id":            c.PropertyID,
		"capturing_agent_id":     c.CapturingAgentID,
		"selling_agent_id":       c.SellingAgentID,
		"sale_price":             c.SalePrice,
		"commission_percentage":  c.CommissionPercentage,
		"total_commission":       c.TotalCommission,
		"same_agent":             c.SameAgent,
		"capturing_agent_share":  c.CapturingAgentShare,
		"selling_agent_share":    c.SellingAgentShare,
		"capturing_agent_amount": c.CapturingAgentAmount,
		"selling_agent_amount":   c.SellingAgentAmount,
		"status":                 string(c.Status),
		"payment_date":           nullableDate(c.PaymentDate),
		"notes":                  emptyAsNull(c.Notes),
		"created_at":             formatTimestamp(c.CreatedAt),
		"updated_at":             formatTimestamp(c.UpdatedAt),
	}
}

func commissionFromRecord(rec store.Record) (commission.Commission, error) {
	c := commission.Commission{
		ID:               rec.ID(),
		PropertyID:       str(rec, "property_id"),
		CapturingAgentID: str(rec, "capturing_agent_id"),
		SellingAgentID:   str(rec, "selling_agent_id"),
		Status:           commission.Status(str(rec, "status")),
		Notes:            str(rec, "notes"),
	}
	c.SameAgent = boolean(rec, "same_agent")
	for col, dst := range map[string]*float64{
		"sale_price":             &c.SalePrice,
		"commission_percentage":  &c.CommissionPercentage,
		"total_commission":       &c.TotalCommission,
		"capturing_agent_share":  &c.CapturingAgentShare,
		"selling_agent_share":    &c.SellingAgentShare,
		"capturing_agent_amount": &c.CapturingAgentAmount,
		"selling_agent_amount":   &c.SellingAgentAmount,
	} {
		v, err := num(rec, col)
		if err != nil {
			return commission.Commission{}, err
		}
		*dst = v
	}
	var err error
	if c.PaymentDate, err = optDate(rec, "payment_date"); err != nil {
		return commission.Commission{}, err
	}
	if c.CreatedAt, err = timestamp(rec, "created_at"); err != nil {
		return commission.Commission{}, err
	}
	if c.UpdatedAt, err = timestamp(rec, "updated_at"); err != nil {
		return commission.Commission{}, err
	}
	return c, nil
}

func (repo *Commissions) Create(ctx context.Context, c commission.Commission) (commission.Commission, error) {
	now := repo.clock.Now()
	c.CreatedAt, c.UpdatedAt = now, now
	rec := commissionToRecord(c)
	if c.ID == "" {
		delete(rec, "id")
	}
	out, err := repo.store.Insert(ctx, store.TableCommissions, rec)
	if err != nil {
		return commission.Commission{}, err
	}
	return commissionFromRecord(out)
}

func (repo *Commissions) Get(ctx context.Context, id string) (commission.Commission, error) {
	recs, err := repo.store.Select(ctx, store.TableCommissions, store.Where("id", id))
	rec, err := first(recs, err, store.TableCommissions, id)
	if err != nil {
		return commission.Commission{}, err
	}
	return commissionFromRecord(rec)
}

// List returns commissions, newest first. AgentID matches the capturing agent.
func (repo *Commissions) List(ctx context.Context, q CommissionQuery) ([]commission.Commission, error) {
	f := store.Filter{}.Sorted("created_at", true).Page(q.Limit, q.Offset)
	if q.Status != "" {
		f = f.And("status", string(q.Status))
	}
	if q.PropertyID != "" {
		f = f.And("property_id", q.PropertyID)
	}
	if q.AgentID != "" {
		f = f.And("capturing_agent_id", q.AgentID)
	}
	recs, err := repo.store.Select(ctx, store.TableCommissions, f)
	if err != nil {
		return nil, err
	}
	return scanAll(recs, commissionFromRecord)
}

// Save writes the payout fields of c. Amounts are never rewritten.
func (repo *Commissions) Save(ctx context.Context, c commission.Commission) (commission.Commission, error) {
	rec, err := repo.store.Update(ctx, store.TableCommissions, c.ID, store.Record{
		"status":       string(c.Status),
		"payment_date": nullableDate(c.PaymentDate),
		"notes":        emptyAsNull(c.Notes),
		"updated_at":   formatTimestamp(repo.clock.Now()),
	})
	if err != nil {
		return commission.Commission{}, err
	}
	return commissionFromRecord(rec)
}

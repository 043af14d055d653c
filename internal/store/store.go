// Package store is the persistence boundary. Records are plain maps keyed by
// column name; the typed repositories on top convert them to domain values.
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Tables known to the service.
const (
	TableRentals         = "rentals"
	TablePayments        = "payments"
	TableRenewalRequests = "renewal_requests"
	TableCommissions     = "commissions"
	TableActivity        = "activity"
)

var knownTables = map[string]bool{
	TableRentals:         true,
	TablePayments:        true,
	TableRenewalRequests: true,
	TableCommissions:     true,
	TableActivity:        true,
}

// Record is one row. Values are string, float64, int64, bool or nil.
type Record map[string]any

// ID returns the record's primary key.
func (r Record) ID() string {
	s, _ := r["id"].(string)
	return s
}

// Clone returns a shallow copy of r.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Filter narrows a Select. All conditions are ANDed.
type Filter struct {
	Eq      map[string]any
	In      map[string][]any
	OrderBy string
	Desc    bool
	Limit   int
	Offset  int
}

// Where returns a filter matching column == value.
func Where(column string, value any) Filter {
	return Filter{Eq: map[string]any{column: value}}
}

// And adds an equality condition.
func (f Filter) And(column string, value any) Filter {
	eq := make(map[string]any, len(f.Eq)+1)
	for k, v := range f.Eq {
		eq[k] = v
	}
	eq[column] = value
	f.Eq = eq
	return f
}

// Sorted sets the ordering column.
func (f Filter) Sorted(column string, desc bool) Filter {
	f.OrderBy = column
	f.Desc = desc
	return f
}

// Page sets limit and offset.
func (f Filter) Page(limit, offset int) Filter {
	f.Limit = limit
	f.Offset = offset
	return f
}

// Store is the persistence collaborator. Errors from the backing database
// are returned unchanged apart from wrapping; nothing is retried.
type Store interface {
	Select(ctx context.Context, table string, f Filter) ([]Record, error)
	Insert(ctx context.Context, table string, rec Record) (Record, error)
	Update(ctx context.Context, table, id string, patch Record) (Record, error)
	Delete(ctx context.Context, table, id string) (bool, error)
}

// uniqueWhere mirrors a partial unique index: among rows of Table whose
// Column equals Value, Key must be unique.
type uniqueWhere struct {
	Table, Key, Column string
	Value              any
}

var partialUniques = []uniqueWhere{
	{Table: TableRenewalRequests, Key: "rental_id", Column: "status", Value: "pending"},
}

func checkTable(table string) error {
	if !knownTables[table] {
		return fmt.Errorf("store: unknown table %q", table)
	}
	return nil
}

func checkColumn(col string) error {
	if col == "" || strings.ContainsAny(col, " ;'\"`()") {
		return fmt.Errorf("store: invalid column %q", col)
	}
	return nil
}

// withID returns rec with an id assigned when it has none.
func withID(rec Record) Record {
	out := rec.Clone()
	if out.ID() == "" {
		out["id"] = uuid.New().String()
	}
	return out
}

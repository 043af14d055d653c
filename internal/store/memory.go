package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/matthewbaird/rentaldesk/internal/types"
)

// MemoryStore implements Store in process memory. Used by tests and by the
// server when no database is configured.
type MemoryStore struct {
	mu      sync.RWMutex
	tables  map[string][]Record
	updates map[string]int
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tables:  make(map[string][]Record),
		updates: make(map[string]int),
	}
}

func (s *MemoryStore) Select(_ context.Context, table string, f Filter) ([]Record, error) {
	if err := checkTable(table); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []Record
	for _, rec := range s.tables[table] {
		if matches(rec, f) {
			matched = append(matched, rec.Clone())
		}
	}
	if f.OrderBy != "" {
		sort.SliceStable(matched, func(i, j int) bool {
			c := compare(matched[i][f.OrderBy], matched[j][f.OrderBy])
			if f.Desc {
				return c > 0
			}
			return c < 0
		})
	}
	if f.Offset > 0 {
		if f.Offset >= len(matched) {
			return nil, nil
		}
		matched = matched[f.Offset:]
	}
	if f.Limit > 0 && len(matched) > f.Limit {
		matched = matched[:f.Limit]
	}
	return matched, nil
}

func (s *MemoryStore) Insert(_ context.Context, table string, rec Record) (Record, error) {
	if err := checkTable(table); err != nil {
		return nil, err
	}
	rec = withID(rec)

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.tables[table] {
		if existing.ID() == rec.ID() {
			return nil, fmt.Errorf("store: duplicate id %s in %s", rec.ID(), table)
		}
	}
	if err := s.checkUnique(table, rec); err != nil {
		return nil, err
	}
	s.tables[table] = append(s.tables[table], rec)
	return rec.Clone(), nil
}

func (s *MemoryStore) Update(_ context.Context, table, id string, patch Record) (Record, error) {
	if err := checkTable(table); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, rec := range s.tables[table] {
		if rec.ID() != id {
			continue
		}
		next := rec.Clone()
		for k, v := range patch {
			if k == "id" {
				continue
			}
			next[k] = v
		}
		if err := s.checkUnique(table, next); err != nil {
			return nil, err
		}
		s.tables[table][i] = next
		s.updates[table]++
		return next.Clone(), nil
	}
	return nil, fmt.Errorf("%s %s: %w", table, id, types.ErrNotFound)
}

func (s *MemoryStore) Delete(_ context.Context, table, id string) (bool, error) {
	if err := checkTable(table); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.tables[table]
	for i, rec := range rows {
		if rec.ID() == id {
			s.tables[table] = append(rows[:i:i], rows[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// checkUnique enforces partialUniques for rec against every other row of
// table. Callers hold s.mu.
func (s *MemoryStore) checkUnique(table string, rec Record) error {
	for _, u := range partialUniques {
		if u.Table != table || compare(rec[u.Column], u.Value) != 0 {
			continue
		}
		for _, other := range s.tables[table] {
			if other.ID() == rec.ID() || compare(other[u.Column], u.Value) != 0 {
				continue
			}
			if compare(other[u.Key], rec[u.Key]) == 0 {
				return fmt.Errorf("%s: %s %v already has a %s row: %w",
					table, u.Key, rec[u.Key], u.Value, types.ErrConflict)
			}
		}
	}
	return nil
}

// Updates returns how many successful updates table has received.
func (s *MemoryStore) Updates(table string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updates[table]
}

func matches(rec Record, f Filter) bool {
	for col, want := range f.Eq {
		if compare(rec[col], want) != 0 {
			return false
		}
	}
	for col, options := range f.In {
		found := false
		for _, o := range options {
			if compare(rec[col], o) == 0 {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// compare orders two column values. nil sorts first; numbers compare
// numerically; everything else by its string form.
func compare(a, b any) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		default:
			return 1
		}
	}
	fa, aNum := number(a)
	fb, bNum := number(b)
	if aNum && bNum {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	}
	sa, sb := fmt.Sprint(a), fmt.Sprint(b)
	switch {
	case sa < sb:
		return -1
	case sa > sb:
		return 1
	}
	return 0
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

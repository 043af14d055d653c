// Package repository maps domain values to and from store records.
package repository

import (
	"fmt"
	"strconv"
	"time"

	"github.com/matthewbaird/rentaldesk/internal/store"
	"github.com/matthewbaird/rentaldesk/internal/timewindow"
)

const timestampLayout = time.RFC3339Nano

func str(rec store.Record, k string) string {
	switch v := rec[k].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func optStr(rec store.Record, k string) *string {
	s := str(rec, k)
	if s == "" {
		return nil
	}
	return &s
}

func num(rec store.Record, k string) (float64, error) {
	switch v := rec[k].(type) {
	case float64:
		return v, nil
	case int64:
		return float64(v), nil
	case int:
		return float64(v), nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("column %s: %w", k, err)
		}
		return f, nil
	case nil:
		return 0, nil
	default:
		return 0, fmt.Errorf("column %s: unexpected %T", k, v)
	}
}

func integer(rec store.Record, k string) (int, error) {
	f, err := num(rec, k)
	return int(f), err
}

func boolean(rec store.Record, k string) bool {
	switch v := rec[k].(type) {
	case bool:
		return v
	case int64:
		return v != 0
	case int:
		return v != 0
	case float64:
		return v != 0
	}
	return false
}

func date(rec store.Record, k string) (time.Time, error) {
	t, err := timewindow.ParseDate(str(rec, k))
	if err != nil {
		return time.Time{}, fmt.Errorf("column %s: %w", k, err)
	}
	return t, nil
}

func optDate(rec store.Record, k string) (*time.Time, error) {
	if str(rec, k) == "" {
		return nil, nil
	}
	t, err := date(rec, k)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func timestamp(rec store.Record, k string) (time.Time, error) {
	s := str(rec, k)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(timestampLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("column %s: %w", k, err)
	}
	return t, nil
}

func optTimestamp(rec store.Record, k string) (*time.Time, error) {
	if str(rec, k) == "" {
		return nil, nil
	}
	t, err := timestamp(rec, k)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func nullable(s *string) any {
	if s == nil || *s == "" {
		return nil
	}
	return *s
}

func nullableDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return timewindow.FormatDate(*t)
}

func nullableTimestamp(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTimestamp(*t)
}

func emptyAsNull(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// scanAll converts every record with fn, stopping at the first error.
func scanAll[T any](recs []store.Record, fn func(store.Record) (T, error)) ([]T, error) {
	out := make([]T, 0, len(recs))
	for _, rec := range recs {
		v, err := fn(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// first returns the first of recs, or ErrNotFound when there is none.
func first(recs []store.Record, err error, table, id string) (store.Record, error) {
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, notFound(table, id)
	}
	return recs[0], nil
}

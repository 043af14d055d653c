package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strings"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/matthewbaird/rentaldesk/internal/types"
)

// Schema is the DDL applied by Migrate and by the atlas migrate command.
//
//go:embed schema.sql
var Schema string

// SQLStore implements Store on top of ent's SQL driver and query builder.
type SQLStore struct {
	drv *entsql.Driver
}

// NewSQLStore wraps an open ent SQL driver.
func NewSQLStore(drv *entsql.Driver) *SQLStore {
	return &SQLStore{drv: drv}
}

// OpenSQLite opens dsn with the modernc driver and returns a store on it.
// The caller owns the returned store and must Close it.
func OpenSQLite(ctx context.Context, dsn string) (*SQLStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	return NewSQLStore(entsql.OpenDB(dialect.SQLite, db)), nil
}

// Close closes the underlying database.
func (s *SQLStore) Close() error {
	return s.drv.Close()
}

// DB exposes the underlying *sql.DB.
func (s *SQLStore) DB() *sql.DB {
	return s.drv.DB()
}

// Migrate applies the embedded schema. Statements are idempotent.
func (s *SQLStore) Migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(Schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		var res sql.Result
		if err := s.drv.Exec(ctx, stmt, []any{}, &res); err != nil {
			return fmt.Errorf("applying schema: %w", err)
		}
	}
	return nil
}

func (s *SQLStore) builder() *entsql.DialectBuilder {
	return entsql.Dialect(dialect.SQLite)
}

func (s *SQLStore) Select(ctx context.Context, table string, f Filter) ([]Record, error) {
	if err := checkTable(table); err != nil {
		return nil, err
	}
	sel := s.builder().Select().From(entsql.Table(table))
	for _, col := range sortedKeys(f.Eq) {
		if err := checkColumn(col); err != nil {
			return nil, err
		}
		v := f.Eq[col]
		if v == nil {
			sel.Where(entsql.IsNull(col))
			continue
		}
		sel.Where(entsql.EQ(col, v))
	}
	for _, col := range sortedKeys(f.In) {
		if err := checkColumn(col); err != nil {
			return nil, err
		}
		sel.Where(entsql.In(col, f.In[col]...))
	}
	if f.OrderBy != "" {
		if err := checkColumn(f.OrderBy); err != nil {
			return nil, err
		}
		if f.Desc {
			sel.OrderBy(entsql.Desc(f.OrderBy))
		} else {
			sel.OrderBy(entsql.Asc(f.OrderBy))
		}
	}
	if f.Limit > 0 {
		sel.Limit(f.Limit)
	}
	if f.Offset > 0 {
		if f.Limit <= 0 {
			sel.Limit(-1)
		}
		sel.Offset(f.Offset)
	}

	query, args := sel.Query()
	var rows entsql.Rows
	if err := s.drv.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("selecting %s: %w", table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("selecting %s: %w", table, err)
	}
	var out []Record
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", table, err)
		}
		rec := make(Record, len(cols))
		for i, c := range cols {
			if b, ok := values[i].([]byte); ok {
				rec[c] = string(b)
				continue
			}
			rec[c] = values[i]
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("selecting %s: %w", table, err)
	}
	return out, nil
}

func (s *SQLStore) Insert(ctx context.Context, table string, rec Record) (Record, error) {
	if err := checkTable(table); err != nil {
		return nil, err
	}
	rec = withID(rec)
	cols := sortedKeys(rec)
	values := make([]any, len(cols))
	for i, c := range cols {
		if err := checkColumn(c); err != nil {
			return nil, err
		}
		values[i] = rec[c]
	}
	query, args := s.builder().Insert(table).Columns(cols...).Values(values...).Query()
	var res sql.Result
	if err := s.drv.Exec(ctx, query, args, &res); err != nil {
		return nil, fmt.Errorf("inserting into %s: %w", table, constraintErr(err))
	}
	return s.get(ctx, table, rec.ID())
}

func (s *SQLStore) Update(ctx context.Context, table, id string, patch Record) (Record, error) {
	if err := checkTable(table); err != nil {
		return nil, err
	}
	upd := s.builder().Update(table)
	n := 0
	for _, col := range sortedKeys(patch) {
		if col == "id" {
			continue
		}
		if err := checkColumn(col); err != nil {
			return nil, err
		}
		if patch[col] == nil {
			upd.SetNull(col)
		} else {
			upd.Set(col, patch[col])
		}
		n++
	}
	if n == 0 {
		return s.get(ctx, table, id)
	}
	query, args := upd.Where(entsql.EQ("id", id)).Query()
	var res sql.Result
	if err := s.drv.Exec(ctx, query, args, &res); err != nil {
		return nil, fmt.Errorf("updating %s %s: %w", table, id, constraintErr(err))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("updating %s %s: %w", table, id, err)
	}
	if affected == 0 {
		return nil, fmt.Errorf("%s %s: %w", table, id, types.ErrNotFound)
	}
	return s.get(ctx, table, id)
}

func (s *SQLStore) Delete(ctx context.Context, table, id string) (bool, error) {
	if err := checkTable(table); err != nil {
		return false, err
	}
	query, args := s.builder().Delete(table).Where(entsql.EQ("id", id)).Query()
	var res sql.Result
	if err := s.drv.Exec(ctx, query, args, &res); err != nil {
		return false, fmt.Errorf("deleting %s %s: %w", table, id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("deleting %s %s: %w", table, id, err)
	}
	return affected > 0, nil
}

func (s *SQLStore) get(ctx context.Context, table, id string) (Record, error) {
	recs, err := s.Select(ctx, table, Where("id", id))
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("%s %s: %w", table, id, types.ErrNotFound)
	}
	return recs[0], nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// constraintErr maps sqlite unique violations onto types.ErrConflict. The
// primary code is checked too for connections without extended codes.
func constraintErr(err error) error {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return err
	}
	unique := se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
		(se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(se.Error(), "UNIQUE constraint failed"))
	if unique {
		return fmt.Errorf("%s: %w", se.Error(), types.ErrConflict)
	}
	return err
}

// Package dbtest provides a scripted database.DB for exercising catalog
// readers of engines that cannot be embedded in a unit test.
//
// Statements are matched by substring against registered scripts, in
// registration order, after collapsing whitespace:
//
//	db := dbtest.New(database.DialectPostgres)
//	db.OnQuery("FROM pg_namespace", []string{"nspname"}, []any{"public"})
//	db.OnError("key_column_usage", errs.New(errs.ErrKindQueryFailed, "boom"))
package dbtest

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/koustreak/dbscope/internal/database"
	"github.com/koustreak/dbscope/internal/errs"
)

// Call is one statement received by the DB.
type Call struct {
	SQL  string
	Args []any
}

type script struct {
	match   string
	args    []any
	columns []string
	rows    [][]any
	desc    []database.ColumnDesc
	probe   bool
	err     error
}

// DB is a scripted, concurrency-safe database.DB.
type DB struct {
	dialect database.Dialect

	mu      sync.Mutex
	scripts []script
	calls   []Call
	closed  bool
}

var _ database.DB = (*DB)(nil)

// New returns an empty script for the given dialect.
func New(dialect database.Dialect) *DB {
	return &DB{dialect: dialect}
}

// OnQuery answers statements containing match with the given result set.
func (db *DB) OnQuery(match string, columns []string, rows ...[]any) *DB {
	db.add(script{match: match, columns: columns, rows: rows})
	return db
}

// OnQueryArgs is OnQuery restricted to statements bound to exactly args.
func (db *DB) OnQueryArgs(match string, args []any, columns []string, rows ...[]any) *DB {
	db.add(script{match: match, args: args, columns: columns, rows: rows})
	return db
}

// OnProbe answers Probe calls containing match with desc.
func (db *DB) OnProbe(match string, desc ...database.ColumnDesc) *DB {
	db.add(script{match: match, desc: desc, probe: true})
	return db
}

// OnError fails every statement containing match with err.
func (db *DB) OnError(match string, err error) *DB {
	db.add(script{match: match, err: err})
	return db
}

func (db *DB) add(s script) {
	db.mu.Lock()
	defer db.mu.Unlock()
	s.match = normalize(s.match)
	db.scripts = append(db.scripts, s)
}

// Calls returns the statements received so far.
func (db *DB) Calls() []Call {
	db.mu.Lock()
	defer db.mu.Unlock()
	return append([]Call(nil), db.calls...)
}

// Called reports whether any received statement contains match.
func (db *DB) Called(match string) bool {
	match = normalize(match)
	for _, c := range db.Calls() {
		if strings.Contains(c.SQL, match) {
			return true
		}
	}
	return false
}

// Closed reports whether Close was called.
func (db *DB) Closed() bool {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.closed
}

func (db *DB) lookup(query string, args []any, probe bool) (script, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	query = normalize(query)
	db.calls = append(db.calls, Call{SQL: query, Args: args})
	for _, s := range db.scripts {
		if !strings.Contains(query, s.match) {
			continue
		}
		if s.args != nil && !reflect.DeepEqual(s.args, args) {
			continue
		}
		if s.err != nil {
			return s, s.err
		}
		if s.probe == probe {
			return s, nil
		}
	}
	return script{}, errs.Newf(errs.ErrKindQueryFailed, "dbtest: unexpected statement %q", query)
}

// --- database.DB implementation ---

func (db *DB) Ping(ctx context.Context) error { return ctx.Err() }

func (db *DB) Close() {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.closed = true
}

func (db *DB) Query(ctx context.Context, query string, args ...any) (database.Rows, error) {
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(errs.ErrKindTimeout, "query failed", err)
	}
	s, err := db.lookup(query, args, false)
	if err != nil {
		return nil, err
	}
	return &rows{columns: s.columns, data: s.rows, pos: -1}, nil
}

func (db *DB) QueryRow(ctx context.Context, query string, args ...any) database.Row {
	r, err := db.Query(ctx, query, args...)
	return &row{rows: r, err: err}
}

func (db *DB) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	s, err := db.lookup(query, args, false)
	if err != nil {
		return 0, err
	}
	return int64(len(s.rows)), nil
}

func (db *DB) Probe(ctx context.Context, query string) ([]database.ColumnDesc, error) {
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(errs.ErrKindTimeout, "probe failed", err)
	}
	s, err := db.lookup(query, nil, true)
	if err != nil {
		return nil, err
	}
	return append([]database.ColumnDesc(nil), s.desc...), nil
}

func (db *DB) Dialect() database.Dialect { return db.dialect }

// --- result sets ---

type rows struct {
	columns []string
	data    [][]any
	pos     int
}

func (r *rows) Next() bool {
	r.pos++
	return r.pos < len(r.data)
}

func (r *rows) Scan(dest ...any) error {
	if r.pos < 0 || r.pos >= len(r.data) {
		return errs.New(errs.ErrKindQueryFailed, "dbtest: Scan called without a current row")
	}
	values := r.data[r.pos]
	if len(dest) != len(values) {
		return errs.Newf(errs.ErrKindQueryFailed, "dbtest: expected %d destinations, got %d", len(values), len(dest))
	}
	for i, v := range values {
		if err := assign(dest[i], v); err != nil {
			return errs.Wrap(errs.ErrKindQueryFailed, fmt.Sprintf("dbtest: column %d", i), err)
		}
	}
	return nil
}

func (r *rows) Columns() ([]string, error) { return r.columns, nil }
func (r *rows) Close()                     {}
func (r *rows) Err() error                 { return nil }

type row struct {
	rows database.Rows
	err  error
}

func (r *row) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	defer r.rows.Close()
	if !r.rows.Next() {
		return errs.Wrap(errs.ErrKindNotFound, "scan failed", sql.ErrNoRows)
	}
	return r.rows.Scan(dest...)
}

// assign stores src into the pointer dest the way database/sql would for
// the value types used in catalog scripts.
func assign(dest, src any) error {
	if s, ok := dest.(sql.Scanner); ok {
		return s.Scan(src)
	}

	dv := reflect.ValueOf(dest)
	if dv.Kind() != reflect.Pointer || dv.IsNil() {
		return fmt.Errorf("destination %T is not a non-nil pointer", dest)
	}
	dv = dv.Elem()

	if src == nil {
		dv.Set(reflect.Zero(dv.Type()))
		return nil
	}

	sv := reflect.ValueOf(src)
	if dv.Kind() == reflect.Pointer && !sv.Type().AssignableTo(dv.Type()) {
		p := reflect.New(dv.Type().Elem())
		if err := assign(p.Interface(), src); err != nil {
			return err
		}
		dv.Set(p)
		return nil
	}

	switch {
	case sv.Type().AssignableTo(dv.Type()):
		dv.Set(sv)
	case dv.Kind() == reflect.String && sv.Kind() != reflect.String && !isBytes(sv):
		dv.SetString(fmt.Sprint(src))
	case sv.Type().ConvertibleTo(dv.Type()):
		dv.Set(sv.Convert(dv.Type()))
	default:
		return fmt.Errorf("cannot assign %T to %s", src, dv.Type())
	}
	return nil
}

func isBytes(v reflect.Value) bool {
	return v.Kind() == reflect.Slice && v.Type().Elem().Kind() == reflect.Uint8
}

func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

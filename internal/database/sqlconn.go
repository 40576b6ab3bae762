package database

import (
	"context"
	"database/sql"
)

// ErrorMapper translates a native driver error into an *errs.Error.
// It must return nil for a nil error.
type ErrorMapper func(err error, msg string) error

// SQLConn adapts a database/sql pool to DB. The MySQL, Oracle and SQLite
// drivers embed it and supply their own dialect and error mapping.
// It is safe for concurrent use by multiple goroutines.
type SQLConn struct {
	db       *sql.DB
	dialect  Dialect
	mapError ErrorMapper
}

// NewSQLConn wraps db. Pool settings from cfg are applied when non-zero.
func NewSQLConn(db *sql.DB, dialect Dialect, cfg *Config, mapError ErrorMapper) *SQLConn {
	if cfg != nil {
		if cfg.MaxConns > 0 {
			db.SetMaxOpenConns(int(cfg.MaxConns))
		}
		if cfg.MinConns > 0 {
			db.SetMaxIdleConns(int(cfg.MinConns))
		}
		db.SetConnMaxLifetime(cfg.MaxConnLifetime)
		db.SetConnMaxIdleTime(cfg.MaxConnIdleTime)
	}
	return &SQLConn{db: db, dialect: dialect, mapError: mapError}
}

// --- DB implementation ---

func (c *SQLConn) Ping(ctx context.Context) error {
	if err := c.db.PingContext(ctx); err != nil {
		return c.mapError(err, "ping failed")
	}
	return nil
}

func (c *SQLConn) Close() {
	_ = c.db.Close()
}

func (c *SQLConn) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, c.mapError(err, "query failed")
	}
	return &sqlRows{rows: rows, mapError: c.mapError}, nil
}

func (c *SQLConn) QueryRow(ctx context.Context, query string, args ...any) Row {
	return &sqlRow{row: c.db.QueryRowContext(ctx, query, args...), mapError: c.mapError}
}

func (c *SQLConn) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := c.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, c.mapError(err, "exec failed")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, c.mapError(err, "rows affected")
	}
	return n, nil
}

// Probe runs query and converts the driver's column type report. No rows
// are read.
func (c *SQLConn) Probe(ctx context.Context, query string) ([]ColumnDesc, error) {
	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, c.mapError(err, "probe failed")
	}
	defer rows.Close()

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, c.mapError(err, "probe failed")
	}
	return DescribeColumnTypes(types), nil
}

func (c *SQLConn) Dialect() Dialect {
	return c.dialect
}

// SQL exposes the underlying pool for driver-specific statements.
func (c *SQLConn) SQL() *sql.DB {
	return c.db
}

// DescribeColumnTypes converts database/sql column metadata. Length,
// precision and scale stay nil when the driver does not report them.
// Nullability defaults to true when unknown.
func DescribeColumnTypes(types []*sql.ColumnType) []ColumnDesc {
	cols := make([]ColumnDesc, len(types))
	for i, ct := range types {
		col := ColumnDesc{
			Name:     ct.Name(),
			TypeName: ct.DatabaseTypeName(),
			Nullable: true,
		}
		if n, ok := ct.Length(); ok {
			col.Length = Int64Ptr(n)
		}
		if p, s, ok := ct.DecimalSize(); ok {
			col.Precision = Int64Ptr(p)
			col.Scale = Int64Ptr(s)
		}
		if nullable, ok := ct.Nullable(); ok {
			col.Nullable = nullable
		}
		cols[i] = col
	}
	return cols
}

// --- database/sql type wrappers ---

type sqlRows struct {
	rows     *sql.Rows
	mapError ErrorMapper
}

func (r *sqlRows) Next() bool                 { return r.rows.Next() }
func (r *sqlRows) Scan(dest ...any) error     { return r.mapError(r.rows.Scan(dest...), "scan failed") }
func (r *sqlRows) Columns() ([]string, error) { return r.rows.Columns() }
func (r *sqlRows) Close()                     { _ = r.rows.Close() }
func (r *sqlRows) Err() error                 { return r.mapError(r.rows.Err(), "row iteration failed") }

type sqlRow struct {
	row      *sql.Row
	mapError ErrorMapper
}

func (r *sqlRow) Scan(dest ...any) error { return r.mapError(r.row.Scan(dest...), "scan failed") }

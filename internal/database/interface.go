package database

import "context"

// DB is the connection contract consumed by the schema introspectors.
// The connection is owned by the caller: introspectors run their catalog
// queries through it but never close or pool it themselves.
type DB interface {
	// Ping verifies the database is reachable.
	Ping(ctx context.Context) error

	// Close releases all resources held by the connection pool.
	Close()

	// Query executes a SQL statement that returns multiple rows.
	Query(ctx context.Context, sql string, args ...any) (Rows, error)

	// QueryRow executes a SQL statement that returns at most one row.
	// Errors are deferred to Row.Scan.
	QueryRow(ctx context.Context, sql string, args ...any) Row

	// Exec executes a statement and returns the number of rows affected.
	Exec(ctx context.Context, sql string, args ...any) (int64, error)

	// Probe executes a row-limited statement and returns the result-set
	// description reported by the driver. Rows are never read.
	Probe(ctx context.Context, sql string) ([]ColumnDesc, error)

	// Dialect reports how identifiers and placeholders are written.
	Dialect() Dialect
}

// Rows is an abstraction over a database result set.
// Callers must always call Close() when done, even on error.
type Rows interface {
	// Next advances to the next row.
	// Returns false when no more rows exist or on error.
	Next() bool

	// Scan copies the current row's columns into the provided destinations.
	Scan(dest ...any) error

	// Columns returns the column names of the result set.
	Columns() ([]string, error)

	// Close releases resources held by the result set.
	Close()

	// Err returns any error encountered during iteration.
	Err() error
}

// Row is an abstraction over a single database row.
type Row interface {
	Scan(dest ...any) error
}

// ColumnDesc describes one column of a table as seen by the catalog or the
// driver. A table's descriptors are ordered; the ordinal of a column is its
// index in the slice.
type ColumnDesc struct {
	Name string `json:"name" yaml:"name"`

	// TypeName is the native type as reported by the driver or catalog
	// (e.g. "VARCHAR", "NUMBER", "varchar(30)").
	TypeName string `json:"type" yaml:"type"`

	// TypeOID is the PostgreSQL type OID. Zero on other backends.
	TypeOID uint32 `json:"oid,omitempty" yaml:"oid,omitempty"`

	// Length is the declared character length, nil when not applicable.
	Length *int64 `json:"length,omitempty" yaml:"length,omitempty"`

	// Precision and Scale describe numeric columns, nil when not reported.
	Precision *int64 `json:"precision,omitempty" yaml:"precision,omitempty"`
	Scale     *int64 `json:"scale,omitempty" yaml:"scale,omitempty"`

	Nullable bool `json:"nullable" yaml:"nullable"`
}

// Package postgres implements database.DB for PostgreSQL on top of pgxpool.
package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/koustreak/dbscope/internal/database"
	"github.com/koustreak/dbscope/internal/errs"
)

// Driver is a PostgreSQL implementation of database.DB backed by pgxpool.
// It is safe for concurrent use by multiple goroutines.
type Driver struct {
	pool *pgxpool.Pool
}

// New connects to PostgreSQL using the provided Config and returns a Driver.
// It calls Ping to validate the connection before returning.
func New(ctx context.Context, cfg *database.Config) (*Driver, error) {
	poolCfg, err := buildPoolConfig(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "failed to create connection pool", err)
	}

	d := &Driver{pool: pool}

	if err := d.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return d, nil
}

// --- database.DB implementation ---

// Ping verifies the database is reachable by acquiring and releasing a connection.
func (d *Driver) Ping(ctx context.Context) error {
	if err := d.pool.Ping(ctx); err != nil {
		return mapError(err, "ping failed")
	}
	return nil
}

// Close drains the connection pool. Call when the application shuts down.
func (d *Driver) Close() {
	d.pool.Close()
}

// Query executes a SQL statement that returns multiple rows.
func (d *Driver) Query(ctx context.Context, sql string, args ...any) (database.Rows, error) {
	rows, err := d.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, mapError(err, "query failed")
	}
	return &pgxRows{rows: rows}, nil
}

// QueryRow executes a SQL statement expected to return at most one row.
func (d *Driver) QueryRow(ctx context.Context, sql string, args ...any) database.Row {
	return &pgxRow{row: d.pool.QueryRow(ctx, sql, args...)}
}

// Exec executes a statement and returns the number of rows affected.
func (d *Driver) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	tag, err := d.pool.Exec(ctx, sql, args...)
	if err != nil {
		return 0, mapError(err, "exec failed")
	}
	return tag.RowsAffected(), nil
}

// Probe runs sql and describes its result set from the RowDescription
// message. pgx does not report nullability; callers that need it must ask
// the catalog.
func (d *Driver) Probe(ctx context.Context, sql string) ([]database.ColumnDesc, error) {
	rows, err := d.pool.Query(ctx, sql)
	if err != nil {
		return nil, mapError(err, "probe failed")
	}
	fields := rows.FieldDescriptions()
	cols := make([]database.ColumnDesc, len(fields))
	for i, f := range fields {
		cols[i] = describeField(f)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "probe failed")
	}
	return cols, nil
}

// Dialect reports PostgreSQL quoting and $n placeholders.
func (d *Driver) Dialect() database.Dialect {
	return database.DialectPostgres
}

// describeField decodes the type modifier of character and numeric columns.
func describeField(f pgconn.FieldDescription) database.ColumnDesc {
	col := database.ColumnDesc{
		Name:     f.Name,
		TypeOID:  f.DataTypeOID,
		Nullable: true,
	}
	if t, ok := typeMap.TypeForOID(f.DataTypeOID); ok {
		col.TypeName = t.Name
	}

	mod := int64(f.TypeModifier)
	switch f.DataTypeOID {
	case pgtype.VarcharOID, pgtype.BPCharOID:
		if mod >= 4 {
			col.Length = database.Int64Ptr(mod - 4)
		}
	case pgtype.NumericOID:
		if mod >= 4 {
			col.Precision = database.Int64Ptr(((mod - 4) >> 16) & 0xffff)
			col.Scale = database.Int64Ptr((mod - 4) & 0xffff)
		}
	}
	return col
}

var typeMap = pgtype.NewMap()

// --- pgx type wrappers ---

// pgxRows wraps pgx.Rows to satisfy database.Rows.
type pgxRows struct {
	rows pgx.Rows
}

func (r *pgxRows) Next() bool             { return r.rows.Next() }
func (r *pgxRows) Scan(dest ...any) error { return mapError(r.rows.Scan(dest...), "scan failed") }
func (r *pgxRows) Close()                 { r.rows.Close() }

func (r *pgxRows) Err() error {
	if err := r.rows.Err(); err != nil {
		return mapError(err, "row iteration failed")
	}
	return nil
}

func (r *pgxRows) Columns() ([]string, error) {
	descs := r.rows.FieldDescriptions()
	cols := make([]string, len(descs))
	for i, d := range descs {
		cols[i] = d.Name
	}
	return cols, nil
}

// pgxRow wraps pgx.Row to satisfy database.Row.
type pgxRow struct {
	row pgx.Row
}

func (r *pgxRow) Scan(dest ...any) error {
	if err := r.row.Scan(dest...); err != nil {
		return mapError(err, "scan failed")
	}
	return nil
}

package schema

import (
	"context"
	"fmt"

	"github.com/koustreak/dbscope/internal/database"
)

// postgresDefaultSchema is where unqualified PostgreSQL names land when no
// schema is configured.
const postgresDefaultSchema = "public"

// PostgresIntrospector reads the pg_catalog tables.
type PostgresIntrospector struct {
	base
}

var _ Introspector = (*PostgresIntrospector)(nil)

// NewPostgres creates a PostgreSQL introspector over db.
func NewPostgres(db database.DB, opts ...Option) *PostgresIntrospector {
	return &PostgresIntrospector{base: newBase(db, database.DriverPostgres, opts)}
}

// ListSchemas returns all user schemas, excluding information_schema and
// the pg_* system schemas.
func (p *PostgresIntrospector) ListSchemas(ctx context.Context) ([]string, error) {
	const q = `
		SELECT n.nspname
		FROM pg_catalog.pg_namespace n
		WHERE n.nspname <> 'information_schema'
		  AND n.nspname NOT LIKE 'pg\_%'
		ORDER BY n.nspname`

	rows, err := p.db.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list schemas: %w", err)
	}
	return database.ScanStrings(rows)
}

// ListVisibleTables returns tables and views visible through the session's
// search_path plus those in the requested schemas.
func (p *PostgresIntrospector) ListVisibleTables(ctx context.Context, candidates ...string) ([]database.QName, error) {
	const q = `
		SELECT n.nspname, c.relname
		FROM pg_catalog.pg_class c
		JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
		WHERE c.relkind IN ('r', 'v')
		  AND n.nspname NOT IN ('pg_catalog', 'pg_toast')
		  AND (pg_catalog.pg_table_is_visible(c.oid) OR n.nspname = ANY($1::text[]))
		ORDER BY n.nspname, c.relname`

	path := p.searchPath(candidates, "")
	rows, err := p.db.Query(ctx, q, path)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var tables []database.QName
	for rows.Next() {
		t := database.QName{DBFormat: true}
		if err := rows.Scan(&t.Schema, &t.Table); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		tables = append(tables, t)
	}
	return tables, rows.Err()
}

// DescribeColumns probes the table for its result-set description and
// takes nullability from information_schema, which the wire protocol does
// not carry.
func (p *PostgresIntrospector) DescribeColumns(ctx context.Context, table database.QName) ([]database.ColumnDesc, error) {
	table, err := p.validated(table, p.ResolveQName)
	if err != nil {
		return nil, err
	}
	p.debug("describe", table)

	const q = `
		SELECT column_name, is_nullable = 'YES'
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2`

	rows, err := p.db.Query(ctx, q, table.Schema, table.Table)
	if err != nil {
		return nil, fmt.Errorf("describe %s: %w", table, err)
	}
	defer rows.Close()

	nullable := make(map[string]bool)
	for rows.Next() {
		var (
			name string
			null bool
		)
		if err := rows.Scan(&name, &null); err != nil {
			return nil, fmt.Errorf("scan column nullability: %w", err)
		}
		nullable[name] = null
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("describe %s: %w", table, err)
	}

	cols, err := p.db.Probe(ctx, p.dialect.ProbeQuery(table))
	if err != nil {
		return nil, fmt.Errorf("describe %s: %w", table, err)
	}
	for i := range cols {
		if null, ok := nullable[cols[i].Name]; ok {
			cols[i].Nullable = null
		}
	}
	return cols, nil
}

// ListForeignKeys expands every foreign-key constraint of the table into its
// column pairs, in constraint column order.
func (p *PostgresIntrospector) ListForeignKeys(ctx context.Context, table database.QName) ([]ForeignKey, error) {
	table, err := p.validated(table, p.ResolveQName)
	if err != nil {
		return nil, err
	}
	p.debug("foreign_keys", table)

	const q = `
		SELECT a1.attname, n2.nspname, c2.relname, a2.attname
		FROM pg_catalog.pg_constraint con
		JOIN pg_catalog.pg_class c1 ON c1.oid = con.conrelid
		JOIN pg_catalog.pg_namespace n1 ON n1.oid = c1.relnamespace
		JOIN pg_catalog.pg_class c2 ON c2.oid = con.confrelid
		JOIN pg_catalog.pg_namespace n2 ON n2.oid = c2.relnamespace
		CROSS JOIN LATERAL unnest(con.conkey, con.confkey) WITH ORDINALITY AS k(src, dst, pos)
		JOIN pg_catalog.pg_attribute a1 ON a1.attrelid = con.conrelid AND a1.attnum = k.src
		JOIN pg_catalog.pg_attribute a2 ON a2.attrelid = con.confrelid AND a2.attnum = k.dst
		WHERE con.contype = 'f'
		  AND n1.nspname = $1
		  AND c1.relname = $2
		ORDER BY con.conname, k.pos`

	rows, err := p.db.Query(ctx, q, table.Schema, table.Table)
	if err != nil {
		return nil, fmt.Errorf("list foreign keys of %s: %w", table, err)
	}
	defer rows.Close()

	var fks []ForeignKey
	for rows.Next() {
		fk := ForeignKey{Target: database.QName{DBFormat: true}}
		if err := rows.Scan(&fk.Column, &fk.Target.Schema, &fk.Target.Table, &fk.TargetColumn); err != nil {
			return nil, fmt.Errorf("scan foreign key: %w", err)
		}
		fks = append(fks, fk)
	}
	return fks, rows.Err()
}

// ListIndexes reports indexes on exactly one key column; INCLUDE columns do
// not count. Expression indexes have no attribute at indkey[0] and drop out
// of the join. Needs PostgreSQL 11 or later.
func (p *PostgresIntrospector) ListIndexes(ctx context.Context, table database.QName) (map[string]IndexInfo, error) {
	table, err := p.validated(table, p.ResolveQName)
	if err != nil {
		return nil, err
	}
	p.debug("indexes", table)

	const q = `
		SELECT a.attname, bool_or(i.indisprimary), bool_or(i.indisunique)
		FROM pg_catalog.pg_index i
		JOIN pg_catalog.pg_class c ON c.oid = i.indrelid
		JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
		JOIN pg_catalog.pg_attribute a ON a.attrelid = c.oid AND a.attnum = i.indkey[0]
		WHERE n.nspname = $1
		  AND c.relname = $2
		  AND i.indnkeyatts = 1
		GROUP BY a.attname`

	rows, err := p.db.Query(ctx, q, table.Schema, table.Table)
	if err != nil {
		return nil, fmt.Errorf("list indexes of %s: %w", table, err)
	}
	defer rows.Close()

	indexes := make(map[string]IndexInfo)
	for rows.Next() {
		var (
			column string
			info   IndexInfo
		)
		if err := rows.Scan(&column, &info.PrimaryKey, &info.Unique); err != nil {
			return nil, fmt.Errorf("scan index: %w", err)
		}
		indexes[column] = info
	}
	return indexes, rows.Err()
}

// ResolveQName fills a missing schema with the configured default, then
// "public".
func (p *PostgresIntrospector) ResolveQName(name database.QName, forceSchema bool) database.QName {
	return p.resolve(name, forceSchema, postgresDefaultSchema)
}

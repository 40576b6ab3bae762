package schema

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/koustreak/dbscope/internal/database"
	"github.com/koustreak/dbscope/internal/errs"
)

// databaseNamer is implemented by connections that know the database named
// in their DSN.
type databaseNamer interface {
	DatabaseName() string
}

// MySQLIntrospector reads information_schema and the SHOW statements.
// MySQL schemas are databases.
type MySQLIntrospector struct {
	base
	dbName string
}

var _ Introspector = (*MySQLIntrospector)(nil)

// NewMySQL creates a MySQL introspector over db.
func NewMySQL(db database.DB, opts ...Option) *MySQLIntrospector {
	m := &MySQLIntrospector{base: newBase(db, database.DriverMySQL, opts)}
	if n, ok := db.(databaseNamer); ok {
		m.dbName = n.DatabaseName()
	}
	return m
}

// ListSchemas returns every database visible to the connection.
func (m *MySQLIntrospector) ListSchemas(ctx context.Context) ([]string, error) {
	rows, err := m.db.Query(ctx, "SHOW DATABASES")
	if err != nil {
		return nil, fmt.Errorf("list schemas: %w", err)
	}
	return database.ScanStrings(rows)
}

// ListVisibleTables returns the tables and views of the search path. With
// no candidates and no configured schema that is the connection database.
func (m *MySQLIntrospector) ListVisibleTables(ctx context.Context, candidates ...string) ([]database.QName, error) {
	q, args, err := sq.Select("table_schema", "table_name").
		From("information_schema.tables").
		Where(sq.Eq{"table_schema": m.searchPath(candidates, m.dbName)}).
		OrderBy("table_schema", "table_name").
		ToSql()
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "build table list query", err)
	}

	rows, err := m.db.Query(ctx, q, args...)
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

// DescribeColumns probes the table. The driver reports neither character
// lengths nor reliable nullability, so both are read from
// information_schema when it exists.
func (m *MySQLIntrospector) DescribeColumns(ctx context.Context, table database.QName) ([]database.ColumnDesc, error) {
	table, err := m.validated(table, m.ResolveQName)
	if err != nil {
		return nil, err
	}
	m.debug("describe", table)

	cols, err := m.db.Probe(ctx, m.dialect.ProbeQuery(table))
	if err != nil {
		return nil, fmt.Errorf("describe %s: %w", table, err)
	}

	catalog, err := m.columnCatalog(ctx, table)
	if err != nil {
		m.log.WarnErr("column catalog unavailable", err)
		return cols, nil
	}
	for i := range cols {
		c, ok := catalog[cols[i].Name]
		if !ok {
			continue
		}
		cols[i].Nullable = c.nullable
		if c.length != nil && cols[i].Length == nil {
			cols[i].Length = c.length
		}
	}
	return cols, nil
}

type mysqlColumn struct {
	length   *int64
	nullable bool
}

func (m *MySQLIntrospector) columnCatalog(ctx context.Context, table database.QName) (map[string]mysqlColumn, error) {
	const q = `
		SELECT column_name, character_maximum_length, is_nullable
		FROM information_schema.columns
		WHERE table_schema = ?
		  AND table_name   = ?`

	rows, err := m.db.Query(ctx, q, table.Schema, table.Table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	catalog := make(map[string]mysqlColumn)
	for rows.Next() {
		var (
			name     string
			length   *int64
			nullable string
		)
		if err := rows.Scan(&name, &length, &nullable); err != nil {
			return nil, err
		}
		catalog[name] = mysqlColumn{length: length, nullable: strings.EqualFold(nullable, "YES")}
	}
	return catalog, rows.Err()
}

// ListForeignKeys reads information_schema.key_column_usage. Servers that
// reject that query get their constraints parsed out of SHOW CREATE TABLE.
func (m *MySQLIntrospector) ListForeignKeys(ctx context.Context, table database.QName) ([]ForeignKey, error) {
	table, err := m.validated(table, m.ResolveQName)
	if err != nil {
		return nil, err
	}
	m.debug("foreign_keys", table)

	fks, err := m.keyColumnUsage(ctx, table)
	if err == nil {
		return fks, nil
	}
	if !errs.IsQueryFailed(err) {
		return nil, fmt.Errorf("list foreign keys of %s: %w", table, err)
	}

	m.log.With().Str("table", table.String()).Err(err).Logger().
		Warn("key_column_usage unavailable, parsing SHOW CREATE TABLE")
	return m.showCreateTable(ctx, table)
}

func (m *MySQLIntrospector) keyColumnUsage(ctx context.Context, table database.QName) ([]ForeignKey, error) {
	const q = `
		SELECT column_name,
		       referenced_table_schema,
		       referenced_table_name,
		       referenced_column_name
		FROM information_schema.key_column_usage
		WHERE table_schema = ?
		  AND table_name   = ?
		  AND referenced_table_name  IS NOT NULL
		  AND referenced_column_name IS NOT NULL
		ORDER BY constraint_name, ordinal_position`

	rows, err := m.db.Query(ctx, q, table.Schema, table.Table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fks []ForeignKey
	for rows.Next() {
		fk := ForeignKey{Target: database.QName{DBFormat: true}}
		if err := rows.Scan(&fk.Column, &fk.Target.Schema, &fk.Target.Table, &fk.TargetColumn); err != nil {
			return nil, err
		}
		fks = append(fks, fk)
	}
	return fks, rows.Err()
}

func (m *MySQLIntrospector) showCreateTable(ctx context.Context, table database.QName) ([]ForeignKey, error) {
	var name, ddl string
	if err := m.db.QueryRow(ctx, "SHOW CREATE TABLE "+m.dialect.Qualify(table)).Scan(&name, &ddl); err != nil {
		return nil, fmt.Errorf("show create table %s: %w", table, err)
	}

	fks := BacktickParser.ParseForeignKeys(ddl)
	for i := range fks {
		if fks[i].Target.Schema == "" {
			fks[i].Target.Schema = table.Schema
		}
	}
	return fks, nil
}

// ListIndexes groups SHOW INDEX rows by key name and keeps keys covering a
// single column. SHOW INDEX gains columns across server versions, so rows are
// read by name.
func (m *MySQLIntrospector) ListIndexes(ctx context.Context, table database.QName) (map[string]IndexInfo, error) {
	table, err := m.validated(table, m.ResolveQName)
	if err != nil {
		return nil, err
	}
	m.debug("indexes", table)

	rows, err := m.db.Query(ctx, "SHOW INDEX FROM "+m.dialect.Qualify(table))
	if err != nil {
		return nil, fmt.Errorf("list indexes of %s: %w", table, err)
	}
	records, err := database.ScanRows(rows)
	if err != nil {
		return nil, fmt.Errorf("list indexes of %s: %w", table, err)
	}

	type key struct {
		columns []string
		unique  bool
	}
	keys := make(map[string]*key)
	var order []string
	for _, r := range records {
		name := database.AsString(r["Key_name"])
		k, ok := keys[name]
		if !ok {
			nonUnique, _ := database.AsInt64(r["Non_unique"])
			k = &key{unique: nonUnique == 0}
			keys[name] = k
			order = append(order, name)
		}
		k.columns = append(k.columns, database.AsString(r["Column_name"]))
	}

	indexes := make(map[string]IndexInfo)
	for _, name := range order {
		k := keys[name]
		// Functional key parts have no column name.
		if len(k.columns) != 1 || k.columns[0] == "" {
			continue
		}
		info := indexes[k.columns[0]]
		info.PrimaryKey = info.PrimaryKey || name == "PRIMARY"
		info.Unique = info.Unique || k.unique
		indexes[k.columns[0]] = info
	}
	return indexes, nil
}

// ResolveQName fills a missing schema with the configured default, then the
// database named in the DSN.
func (m *MySQLIntrospector) ResolveQName(name database.QName, forceSchema bool) database.QName {
	return m.resolve(name, forceSchema, m.dbName)
}

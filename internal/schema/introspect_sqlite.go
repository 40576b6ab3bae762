package schema

import (
	"context"
	"fmt"

	"github.com/koustreak/dbscope/internal/database"
	"github.com/koustreak/dbscope/internal/errs"
)

// SQLiteIntrospector reads sqlite_master and the table PRAGMAs. SQLite has a
// flat namespace per attached database; schemas are dropped from names.
// Foreign keys come only from the stored CREATE TABLE text.
type SQLiteIntrospector struct {
	base
}

var _ Introspector = (*SQLiteIntrospector)(nil)

// NewSQLite creates a SQLite introspector over db.
func NewSQLite(db database.DB, opts ...Option) *SQLiteIntrospector {
	return &SQLiteIntrospector{base: newBase(db, database.DriverSQLite, opts)}
}

// ListSchemas returns the attached databases ("main", "temp", ...).
func (s *SQLiteIntrospector) ListSchemas(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, "PRAGMA database_list")
	if err != nil {
		return nil, fmt.Errorf("list schemas: %w", err)
	}
	records, err := database.ScanRows(rows)
	if err != nil {
		return nil, fmt.Errorf("list schemas: %w", err)
	}
	names := make([]string, 0, len(records))
	for _, r := range records {
		names = append(names, database.AsString(r["name"]))
	}
	return names, nil
}

// ListVisibleTables returns every user table. Candidates are ignored.
func (s *SQLiteIntrospector) ListVisibleTables(ctx context.Context, candidates ...string) ([]database.QName, error) {
	const q = `
		SELECT name FROM sqlite_master
		WHERE type = 'table'
		  AND name NOT LIKE 'sqlite\_%' ESCAPE '\'
		ORDER BY name`

	rows, err := s.db.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	names, err := database.ScanStrings(rows)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	tables := make([]database.QName, len(names))
	for i, n := range names {
		tables[i] = database.QName{Table: n, DBFormat: true}
	}
	return tables, nil
}

type sqliteColumn struct {
	name     string
	typeName string
	notNull  bool
	pk       int64
}

// tableInfo reads PRAGMA table_info: cid, name, type, notnull, dflt_value, pk.
func (s *SQLiteIntrospector) tableInfo(ctx context.Context, table database.QName) ([]sqliteColumn, error) {
	rows, err := s.db.Query(ctx, "PRAGMA table_info("+s.dialect.QuoteIdent(table.Table)+")")
	if err != nil {
		return nil, err
	}
	records, err := database.ScanRows(rows)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errs.Newf(errs.ErrKindNotFound, "table %s does not exist", table)
	}

	cols := make([]sqliteColumn, len(records))
	for i, r := range records {
		notNull, _ := database.AsInt64(r["notnull"])
		pk, _ := database.AsInt64(r["pk"])
		cols[i] = sqliteColumn{
			name:     database.AsString(r["name"]),
			typeName: database.AsString(r["type"]),
			notNull:  notNull != 0,
			pk:       pk,
		}
	}
	return cols, nil
}

// DescribeColumns reads PRAGMA table_info. TypeName is the declared type,
// e.g. "varchar(30)".
func (s *SQLiteIntrospector) DescribeColumns(ctx context.Context, table database.QName) ([]database.ColumnDesc, error) {
	table, err := s.validated(table, s.ResolveQName)
	if err != nil {
		return nil, err
	}
	s.debug("describe", table)

	info, err := s.tableInfo(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("describe %s: %w", table, err)
	}
	cols := make([]database.ColumnDesc, len(info))
	for i, c := range info {
		cols[i] = database.ColumnDesc{Name: c.name, TypeName: c.typeName, Nullable: !c.notNull}
	}
	return cols, nil
}

// ListForeignKeys parses the stored CREATE TABLE statement.
func (s *SQLiteIntrospector) ListForeignKeys(ctx context.Context, table database.QName) ([]ForeignKey, error) {
	table, err := s.validated(table, s.ResolveQName)
	if err != nil {
		return nil, err
	}
	s.debug("foreign_keys", table)

	const q = `SELECT sql FROM sqlite_master WHERE tbl_name = ? AND type = 'table'`

	var ddl string
	if err := s.db.QueryRow(ctx, q, table.Table).Scan(&ddl); err != nil {
		return nil, fmt.Errorf("list foreign keys of %s: %w", table, err)
	}

	fks := DoubleQuoteParser.ParseForeignKeys(ddl)
	for i := range fks {
		fks[i].Target = s.ResolveQName(fks[i].Target, false)
	}
	return fks, nil
}

// ListIndexes reports the primary key when it is a single column, and
// every index over exactly one column.
func (s *SQLiteIntrospector) ListIndexes(ctx context.Context, table database.QName) (map[string]IndexInfo, error) {
	table, err := s.validated(table, s.ResolveQName)
	if err != nil {
		return nil, err
	}
	s.debug("indexes", table)

	info, err := s.tableInfo(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("list indexes of %s: %w", table, err)
	}

	indexes := make(map[string]IndexInfo)
	var pkCols []string
	for _, c := range info {
		if c.pk > 0 {
			pkCols = append(pkCols, c.name)
		}
	}
	if len(pkCols) == 1 {
		indexes[pkCols[0]] = IndexInfo{PrimaryKey: true, Unique: true}
	}

	rows, err := s.db.Query(ctx, "PRAGMA index_list("+s.dialect.QuoteIdent(table.Table)+")")
	if err != nil {
		return nil, fmt.Errorf("list indexes of %s: %w", table, err)
	}
	list, err := database.ScanRows(rows)
	if err != nil {
		return nil, fmt.Errorf("list indexes of %s: %w", table, err)
	}

	for _, idx := range list {
		name := database.AsString(idx["name"])
		unique, _ := database.AsInt64(idx["unique"])

		rows, err := s.db.Query(ctx, "PRAGMA index_info("+s.dialect.QuoteIdent(name)+")")
		if err != nil {
			return nil, fmt.Errorf("list columns of index %s: %w", name, err)
		}
		cols, err := database.ScanRows(rows)
		if err != nil {
			return nil, fmt.Errorf("list columns of index %s: %w", name, err)
		}
		if len(cols) != 1 {
			continue
		}

		column := database.AsString(cols[0]["name"])
		if column == "" {
			continue
		}
		entry := indexes[column]
		entry.Unique = entry.Unique || unique != 0
		indexes[column] = entry
	}
	return indexes, nil
}

// ResolveQName drops the schema.
func (s *SQLiteIntrospector) ResolveQName(name database.QName, forceSchema bool) database.QName {
	return database.QName{Table: name.Table, DBFormat: true}
}

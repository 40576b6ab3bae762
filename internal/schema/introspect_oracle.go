package schema

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/koustreak/dbscope/internal/database"
	"github.com/koustreak/dbscope/internal/errs"
)

// userNamer is implemented by connections that know the connecting user.
type userNamer interface {
	User() string
}

// OracleIntrospector reads the ALL_* dictionary views. Oracle stores
// unquoted identifiers in upper case; this introspector speaks lower case to
// its callers and upper case to the dictionary.
type OracleIntrospector struct {
	base
	user string
}

var _ Introspector = (*OracleIntrospector)(nil)

// NewOracle creates an Oracle introspector over db.
func NewOracle(db database.DB, opts ...Option) *OracleIntrospector {
	o := &OracleIntrospector{base: newBase(db, database.DriverOracle, opts)}
	o.user = o.opts.user
	if o.user == "" {
		if n, ok := db.(userNamer); ok {
			o.user = n.User()
		}
	}
	o.user = strings.ToLower(o.user)
	return o
}

// ListSchemas returns every user, lower-cased.
func (o *OracleIntrospector) ListSchemas(ctx context.Context) ([]string, error) {
	rows, err := o.db.Query(ctx, "SELECT USERNAME FROM ALL_USERS ORDER BY USERNAME")
	if err != nil {
		return nil, fmt.Errorf("list schemas: %w", err)
	}
	users, err := database.ScanStrings(rows)
	if err != nil {
		return nil, fmt.Errorf("list schemas: %w", err)
	}
	for i := range users {
		users[i] = strings.ToLower(users[i])
	}
	return users, nil
}

// ListVisibleTables returns the tables owned by the search path users. With
// no candidates and no configured schema that is the connecting user.
func (o *OracleIntrospector) ListVisibleTables(ctx context.Context, candidates ...string) ([]database.QName, error) {
	path := o.searchPath(candidates, o.user)
	if len(path) == 0 {
		return nil, nil
	}
	owners := make([]string, len(path))
	for i, s := range path {
		owners[i] = strings.ToUpper(s)
	}

	q, args, err := sq.Select("OWNER", "TABLE_NAME").
		From("ALL_TABLES").
		Where(sq.Eq{"OWNER": owners}).
		OrderBy("OWNER", "TABLE_NAME").
		PlaceholderFormat(sq.Colon).
		ToSql()
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "build table list query", err)
	}

	rows, err := o.db.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var tables []database.QName
	for rows.Next() {
		var owner, name string
		if err := rows.Scan(&owner, &name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		tables = append(tables, database.QName{
			Schema:   strings.ToLower(owner),
			Table:    strings.ToLower(name),
			DBFormat: true,
		})
	}
	return tables, rows.Err()
}

// DescribeColumns probes the table; column names are lower-cased.
func (o *OracleIntrospector) DescribeColumns(ctx context.Context, table database.QName) ([]database.ColumnDesc, error) {
	table, err := o.validated(table, o.ResolveQName)
	if err != nil {
		return nil, err
	}
	o.debug("describe", table)

	cols, err := o.db.Probe(ctx, o.dialect.ProbeQuery(table))
	if err != nil {
		return nil, fmt.Errorf("describe %s: %w", table, err)
	}
	for i := range cols {
		cols[i].Name = strings.ToLower(cols[i].Name)
	}
	return cols, nil
}

// ListForeignKeys pairs the columns of each referential constraint with the
// columns of the key it references, position by position.
func (o *OracleIntrospector) ListForeignKeys(ctx context.Context, table database.QName) ([]ForeignKey, error) {
	table, err := o.validated(table, o.ResolveQName)
	if err != nil {
		return nil, err
	}
	o.debug("foreign_keys", table)

	const q = `
		SELECT LOWER(ca.COLUMN_NAME), LOWER(cb.OWNER), LOWER(cb.TABLE_NAME), LOWER(cb.COLUMN_NAME)
		FROM ALL_CONSTRAINTS c
		JOIN ALL_CONS_COLUMNS ca
		  ON ca.OWNER = c.OWNER
		 AND ca.CONSTRAINT_NAME = c.CONSTRAINT_NAME
		JOIN ALL_CONS_COLUMNS cb
		  ON cb.OWNER = c.R_OWNER
		 AND cb.CONSTRAINT_NAME = c.R_CONSTRAINT_NAME
		 AND cb.POSITION = ca.POSITION
		WHERE c.CONSTRAINT_TYPE = 'R'
		  AND c.OWNER = :1
		  AND c.TABLE_NAME = :2
		ORDER BY c.CONSTRAINT_NAME, ca.POSITION`

	rows, err := o.db.Query(ctx, q, strings.ToUpper(table.Schema), strings.ToUpper(table.Table))
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

// ListIndexes reports indexes on exactly one column, and whether a primary
// key constraint is enforced by that index.
func (o *OracleIntrospector) ListIndexes(ctx context.Context, table database.QName) (map[string]IndexInfo, error) {
	table, err := o.validated(table, o.ResolveQName)
	if err != nil {
		return nil, err
	}
	o.debug("indexes", table)

	const q = `
		SELECT LOWER(ic.COLUMN_NAME),
		       MAX(CASE WHEN c.CONSTRAINT_TYPE = 'P' THEN 1 ELSE 0 END),
		       MAX(CASE WHEN i.UNIQUENESS = 'UNIQUE' THEN 1 ELSE 0 END)
		FROM ALL_IND_COLUMNS ic
		JOIN ALL_INDEXES i
		  ON i.OWNER = ic.INDEX_OWNER
		 AND i.INDEX_NAME = ic.INDEX_NAME
		LEFT JOIN ALL_CONSTRAINTS c
		  ON c.OWNER = i.TABLE_OWNER
		 AND c.INDEX_NAME = i.INDEX_NAME
		 AND c.CONSTRAINT_TYPE = 'P'
		WHERE ic.TABLE_OWNER = :1
		  AND ic.TABLE_NAME = :2
		  AND (SELECT COUNT(*) FROM ALL_IND_COLUMNS x
		       WHERE x.INDEX_OWNER = ic.INDEX_OWNER
		         AND x.INDEX_NAME = ic.INDEX_NAME) = 1
		GROUP BY ic.COLUMN_NAME`

	rows, err := o.db.Query(ctx, q, strings.ToUpper(table.Schema), strings.ToUpper(table.Table))
	if err != nil {
		return nil, fmt.Errorf("list indexes of %s: %w", table, err)
	}
	defer rows.Close()

	indexes := make(map[string]IndexInfo)
	for rows.Next() {
		var (
			column          string
			primary, unique int64
		)
		if err := rows.Scan(&column, &primary, &unique); err != nil {
			return nil, fmt.Errorf("scan index: %w", err)
		}
		indexes[column] = IndexInfo{PrimaryKey: primary == 1, Unique: unique == 1}
	}
	return indexes, rows.Err()
}

// ResolveQName fills a missing schema with the configured default, then the
// connecting user. Names come back lower-cased.
func (o *OracleIntrospector) ResolveQName(name database.QName, forceSchema bool) database.QName {
	q := o.resolve(name, forceSchema, o.user)
	q.Schema = strings.ToLower(q.Schema)
	q.Table = strings.ToLower(q.Table)
	return q
}

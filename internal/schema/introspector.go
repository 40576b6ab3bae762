// Package schema reads catalog metadata (schemas, tables, columns, foreign
// keys, indexes) from a live database and maps native column types onto a
// portable set of field kinds.
//
// One Introspector exists per backend. Each runs its catalog statements
// through a caller-owned database.DB and never caches results: every call
// reflects the catalog as it is at that moment.
package schema

import (
	"context"
	"strings"

	"github.com/koustreak/dbscope/internal/database"
	"github.com/koustreak/dbscope/internal/errs"
	"github.com/koustreak/dbscope/internal/logger"
)

// Introspector is the per-backend catalog reader.
type Introspector interface {
	// Backend identifies the database engine.
	Backend() database.Driver

	// ListSchemas returns every schema (database, user) the connection can see.
	ListSchemas(ctx context.Context) ([]string, error)

	// ListVisibleTables returns the tables and views found in the effective
	// search path: candidates plus the configured default schema.
	ListVisibleTables(ctx context.Context, candidates ...string) ([]database.QName, error)

	// DescribeColumns returns the table's columns in creation order.
	DescribeColumns(ctx context.Context, table database.QName) ([]database.ColumnDesc, error)

	// ListForeignKeys returns one edge per referencing column.
	ListForeignKeys(ctx context.Context, table database.QName) ([]ForeignKey, error)

	// ListIndexes reports single-column primary-key and unique indexes by
	// column name.
	ListIndexes(ctx context.Context, table database.QName) (map[string]IndexInfo, error)

	// ResolveQName normalises a name to the backend's canonical form. With
	// forceSchema an unqualified name receives the default schema. Resolving
	// a resolved name returns it unchanged.
	ResolveQName(name database.QName, forceSchema bool) database.QName

	// MapType translates a column descriptor into a portable field type.
	MapType(col database.ColumnDesc) (FieldType, error)
}

// Option configures an Introspector.
type Option func(*options)

type options struct {
	defaultSchema string
	user          string
	log           *logger.Logger
	overrides     map[string]FieldKind
}

func defaultOptions() *options {
	return &options{log: logger.Nop()}
}

// WithDefaultSchema sets the schema unqualified names resolve to before the
// backend's own fallback applies.
func WithDefaultSchema(schema string) Option {
	return func(o *options) {
		o.defaultSchema = schema
	}
}

// WithUser sets the connecting user. Oracle resolves unqualified names to it;
// when unset it is taken from the connection when the driver knows it.
func WithUser(user string) Option {
	return func(o *options) {
		o.user = user
	}
}

// WithLogger attaches a logger; catalog calls are logged at debug level.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithTypeOverrides maps native type names (case-insensitive) to field kinds
// ahead of the built-in tables.
func WithTypeOverrides(overrides map[string]FieldKind) Option {
	return func(o *options) {
		o.overrides = overrides
	}
}

// New returns the Introspector matching db's dialect.
func New(db database.DB, opts ...Option) (Introspector, error) {
	switch db.Dialect() {
	case database.DialectPostgres:
		return NewPostgres(db, opts...), nil
	case database.DialectMySQL:
		return NewMySQL(db, opts...), nil
	case database.DialectOracle:
		return NewOracle(db, opts...), nil
	case database.DialectSQLite:
		return NewSQLite(db, opts...), nil
	}
	return nil, errs.Newf(errs.ErrKindUnsupported, "no introspector for dialect %s", db.Dialect())
}

// base carries what every backend introspector shares.
type base struct {
	db      database.DB
	dialect database.Dialect
	backend database.Driver
	opts    *options
	log     *logger.Logger
	types   typeMapper
}

func newBase(db database.DB, backend database.Driver, opts []Option) base {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return base{
		db:      db,
		dialect: db.Dialect(),
		backend: backend,
		opts:    o,
		log:     o.log.ForBackend(string(backend)),
		types:   newTypeMapper(backend, o.overrides),
	}
}

func (b *base) Backend() database.Driver {
	return b.backend
}

func (b *base) MapType(col database.ColumnDesc) (FieldType, error) {
	return b.types.mapType(col)
}

// resolve implements ResolveQName for backends with real schemas. A name
// without schema takes the configured default, and with forceSchema the
// backend fallback after that.
func (b *base) resolve(name database.QName, forceSchema bool, fallback string) database.QName {
	if name.DBFormat && (name.Schema != "" || !forceSchema) {
		return name
	}
	schema := name.Schema
	if schema == "" {
		schema = b.opts.defaultSchema
	}
	if schema == "" && forceSchema {
		schema = fallback
	}
	return database.QName{Schema: schema, Table: name.Table, DBFormat: true}
}

// searchPath returns candidates followed by the configured default schema,
// without blanks or duplicates.
func (b *base) searchPath(candidates []string, fallback string) []string {
	all := append(append([]string(nil), candidates...), b.opts.defaultSchema)
	if len(candidates) == 0 && b.opts.defaultSchema == "" {
		all = append(all, fallback)
	}
	seen := make(map[string]bool, len(all))
	path := make([]string, 0, len(all))
	for _, s := range all {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		path = append(path, s)
	}
	return path
}

// debug logs one catalog call.
func (b *base) debug(op string, table database.QName) {
	b.log.With().Str("op", op).Str("table", table.String()).Logger().Debug("catalog query")
}

// validated resolves and validates table before a catalog call.
func (b *base) validated(table database.QName, resolver func(database.QName, bool) database.QName) (database.QName, error) {
	if err := table.Validate(); err != nil {
		return database.QName{}, err
	}
	return resolver(table, true), nil
}

// Package app wires configuration to a live connection, an introspector,
// a snapshot store and display formats.
package app

import (
	"context"

	"github.com/koustreak/dbscope/internal/config"
	"github.com/koustreak/dbscope/internal/database"
	"github.com/koustreak/dbscope/internal/database/mysql"
	"github.com/koustreak/dbscope/internal/database/oracle"
	"github.com/koustreak/dbscope/internal/database/postgres"
	"github.com/koustreak/dbscope/internal/database/sqlite"
	"github.com/koustreak/dbscope/internal/errs"
	"github.com/koustreak/dbscope/internal/filestore"
	"github.com/koustreak/dbscope/internal/filestore/local"
	"github.com/koustreak/dbscope/internal/filestore/minio"
	"github.com/koustreak/dbscope/internal/formats"
	"github.com/koustreak/dbscope/internal/logger"
	"github.com/koustreak/dbscope/internal/schema"
	"github.com/koustreak/dbscope/internal/snapshot"
)

// Connect opens the driver named by cfg.Driver.
func Connect(ctx context.Context, cfg *database.Config) (database.DB, error) {
	var (
		db  database.DB
		err error
	)
	switch cfg.Driver {
	case database.DriverPostgres:
		db, err = postgres.New(ctx, cfg)
	case database.DriverMySQL:
		db, err = mysql.New(ctx, cfg)
	case database.DriverOracle:
		db, err = oracle.New(ctx, cfg)
	case database.DriverSQLite:
		db, err = sqlite.New(ctx, cfg)
	default:
		return nil, errs.Newf(errs.ErrKindUnsupported, "unsupported database driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	return db, nil
}

// OpenStore returns the snapshot store selected by cfg.Provider.
func OpenStore(ctx context.Context, cfg *filestore.Config) (filestore.Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Provider {
	case filestore.ProviderMinIO:
		return minio.New(ctx, cfg)
	default:
		return local.New(ctx, cfg)
	}
}

// Session is one open connection and everything built on top of it.
type Session struct {
	DB           database.DB
	Introspector schema.Introspector
	SearchPath   []string
	Formats      *formats.Cache
	Log          *logger.Logger

	cfg *config.Config
}

// Open connects to the configured database. The caller must Close the
// session.
func Open(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Session, error) {
	if log == nil {
		log = logger.Nop()
	}

	dbCfg, err := cfg.DatabaseConfig()
	if err != nil {
		return nil, err
	}
	db, err := Connect(ctx, dbCfg)
	if err != nil {
		return nil, err
	}

	s, err := NewSession(db, cfg, log)
	if err != nil {
		db.Close()
		return nil, err
	}

	log.With().
		Str("backend", string(dbCfg.Driver)).
		Strs("search_path", s.SearchPath).
		Logger().
		Debug("connected")
	return s, nil
}

// NewSession builds a session over an already open connection.
func NewSession(db database.DB, cfg *config.Config, log *logger.Logger) (*Session, error) {
	if log == nil {
		log = logger.Nop()
	}
	opts := []schema.Option{
		schema.WithDefaultSchema(cfg.Database.DefaultSchema),
		schema.WithUser(cfg.Database.User),
		schema.WithLogger(log),
	}
	if len(cfg.Database.TypeOverrides) > 0 {
		overrides := make(map[string]schema.FieldKind, len(cfg.Database.TypeOverrides))
		for native, kind := range cfg.Database.TypeOverrides {
			overrides[native] = schema.FieldKind(kind)
		}
		opts = append(opts, schema.WithTypeOverrides(overrides))
	}

	i, err := schema.New(db, opts...)
	if err != nil {
		return nil, err
	}
	fmts, err := formats.NewCache(formats.DefaultSettings(), cfg.Locale)
	if err != nil {
		return nil, err
	}
	return &Session{
		DB:           db,
		Introspector: i,
		SearchPath:   cfg.Database.SearchPath,
		Formats:      fmts,
		Log:          log,
		cfg:          cfg,
	}, nil
}

// Exporter opens the configured snapshot store.
func (s *Session) Exporter(ctx context.Context) (*snapshot.Exporter, error) {
	store, err := OpenStore(ctx, s.cfg.FilestoreConfig())
	if err != nil {
		return nil, err
	}
	return snapshot.NewExporter(store, s.cfg.Snapshot.Bucket,
		snapshot.WithPrefix(s.cfg.Snapshot.Prefix),
		snapshot.WithLogger(s.Log),
	), nil
}

// Close releases the connection.
func (s *Session) Close() {
	s.DB.Close()
}

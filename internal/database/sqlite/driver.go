// Package sqlite implements database.DB for SQLite on top of database/sql
// and mattn/go-sqlite3.
package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/koustreak/dbscope/internal/database"
	"github.com/koustreak/dbscope/internal/errs"

	_ "github.com/mattn/go-sqlite3" // register "sqlite3" driver
)

// Driver is a SQLite implementation of database.DB.
type Driver struct {
	*database.SQLConn
}

// New opens the database file (or in-memory database) named by cfg.DSN.
func New(ctx context.Context, cfg *database.Config) (*Driver, error) {
	db, err := sql.Open("sqlite3", cfg.DSN)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "invalid sqlite DSN", err)
	}

	d := &Driver{SQLConn: database.NewSQLConn(db, database.DialectSQLite, cfg, mapError)}

	// Every connection to :memory: is a separate database.
	if IsMemory(cfg.DSN) {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
		db.SetConnMaxIdleTime(0)
	}

	if err := d.Ping(ctx); err != nil {
		d.Close()
		return nil, err
	}

	return d, nil
}

// Open is New with default pool settings, handy for tests and fixtures.
func Open(ctx context.Context, dsn string) (*Driver, error) {
	return New(ctx, database.DefaultConfig(database.DriverSQLite, dsn))
}

// IsMemory reports whether dsn names a private in-memory database.
func IsMemory(dsn string) bool {
	return dsn == "" || strings.HasPrefix(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}

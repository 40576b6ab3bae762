// Package oracle implements database.DB for Oracle Database on top of
// database/sql and godror.
package oracle

import (
	"context"
	"database/sql"
	"strings"

	"github.com/godror/godror"
	"github.com/koustreak/dbscope/internal/database"
	"github.com/koustreak/dbscope/internal/errs"
)

// Driver is an Oracle implementation of database.DB.
// It is safe for concurrent use by multiple goroutines.
type Driver struct {
	*database.SQLConn
	user string
}

// New opens an Oracle connection pool and pings it.
// Connect strings look like user/password@host:port/service_name.
func New(ctx context.Context, cfg *database.Config) (*Driver, error) {
	db, err := sql.Open("godror", cfg.DSN)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "invalid oracle connect string", err)
	}

	d := &Driver{
		SQLConn: database.NewSQLConn(db, database.DialectOracle, cfg, mapError),
		user:    userOf(cfg),
	}

	pingCtx := ctx
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	if err := d.Ping(pingCtx); err != nil {
		d.Close()
		return nil, err
	}

	return d, nil
}

// User returns the connecting user in lower case. Oracle owns every table by
// a user, so this is the schema of last resort for unqualified names.
func (d *Driver) User() string {
	return d.user
}

// userOf prefers the configured user and falls back to the connect string.
func userOf(cfg *database.Config) string {
	if cfg.User != "" {
		return strings.ToLower(cfg.User)
	}
	params, err := godror.ParseDSN(cfg.DSN)
	if err != nil {
		return ""
	}
	return strings.ToLower(params.Username)
}

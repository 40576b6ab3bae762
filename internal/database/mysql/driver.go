// Package mysql implements database.DB for MySQL and MariaDB on top of
// database/sql and go-sql-driver/mysql.
package mysql

import (
	"context"
	"database/sql"

	"github.com/go-sql-driver/mysql"
	"github.com/koustreak/dbscope/internal/database"
	"github.com/koustreak/dbscope/internal/errs"
)

// Driver is a MySQL implementation of database.DB backed by database/sql.
// It is safe for concurrent use by multiple goroutines.
type Driver struct {
	*database.SQLConn
	dbName string
}

// New opens a MySQL connection pool using the provided Config and returns a Driver.
// It calls Ping to validate the connection before returning.
func New(ctx context.Context, cfg *database.Config) (*Driver, error) {
	dsn, err := mysql.ParseDSN(cfg.DSN)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "invalid mysql DSN", err)
	}
	if cfg.ConnectTimeout > 0 && dsn.Timeout == 0 {
		dsn.Timeout = cfg.ConnectTimeout
	}

	connector, err := mysql.NewConnector(dsn)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "invalid mysql DSN", err)
	}

	db := sql.OpenDB(connector)
	d := &Driver{
		SQLConn: database.NewSQLConn(db, database.DialectMySQL, cfg, mapError),
		dbName:  dsn.DBName,
	}

	if err := d.Ping(ctx); err != nil {
		d.Close()
		return nil, err
	}

	return d, nil
}

// DatabaseName returns the database named in the DSN. MySQL calls its
// schemas databases; this is the schema unqualified names resolve to.
func (d *Driver) DatabaseName() string {
	return d.dbName
}

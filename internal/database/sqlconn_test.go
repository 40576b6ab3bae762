package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"

	"github.com/koustreak/dbscope/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resultDriver answers every Exec with a fixed result.
type resultDriver struct{ result driver.Result }

func (d resultDriver) Open(string) (driver.Conn, error) { return resultConn(d), nil }

type resultConn struct{ result driver.Result }

func (c resultConn) Prepare(string) (driver.Stmt, error) {
	return nil, errors.New("prepare not supported")
}
func (c resultConn) Close() error              { return nil }
func (c resultConn) Begin() (driver.Tx, error) { return nil, errors.New("tx not supported") }

func (c resultConn) ExecContext(context.Context, string, []driver.NamedValue) (driver.Result, error) {
	return c.result, nil
}

type noRowsAffected struct{}

func (noRowsAffected) LastInsertId() (int64, error) { return 0, nil }
func (noRowsAffected) RowsAffected() (int64, error) { return 0, errors.New("rows affected unavailable") }

func init() {
	sql.Register("dbscope-rows-3", resultDriver{result: driver.RowsAffected(3)})
	sql.Register("dbscope-rows-unknown", resultDriver{result: noRowsAffected{}})
}

func mapQueryFailed(err error, msg string) error {
	if err == nil {
		return nil
	}
	return errs.Wrap(errs.ErrKindQueryFailed, msg, err)
}

func TestSQLConn_Exec(t *testing.T) {
	ctx := context.Background()

	db, err := sql.Open("dbscope-rows-3", "")
	require.NoError(t, err)
	conn := NewSQLConn(db, DialectSQLite, nil, mapQueryFailed)
	defer conn.Close()

	n, err := conn.Exec(ctx, "DELETE FROM t")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	db, err = sql.Open("dbscope-rows-unknown", "")
	require.NoError(t, err)
	conn = NewSQLConn(db, DialectSQLite, nil, mapQueryFailed)
	defer conn.Close()

	_, err = conn.Exec(ctx, "DELETE FROM t")
	require.Error(t, err)
	assert.True(t, errs.IsQueryFailed(err))
	assert.Contains(t, err.Error(), "rows affected unavailable")
}

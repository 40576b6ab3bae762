package mysql

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/koustreak/dbscope/internal/database"
	"github.com/koustreak/dbscope/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapError(t *testing.T) {
	assert.Nil(t, mapError(nil, "x"))

	tests := []struct {
		name string
		err  error
		want func(error) bool
	}{
		{"no rows", sql.ErrNoRows, errs.IsNotFound},
		{"canceled", context.Canceled, errs.IsTimeout},
		{"access denied", &mysql.MySQLError{Number: 1045, Message: "Access denied"}, errs.IsPermissionDenied},
		{"table access", &mysql.MySQLError{Number: 1142}, errs.IsPermissionDenied},
		{"unknown database", &mysql.MySQLError{Number: 1049}, errs.IsQueryFailed},
		{"too many connections", &mysql.MySQLError{Number: 1040}, errs.IsConnectionFailed},
		{"no such table", &mysql.MySQLError{Number: 1146}, errs.IsQueryFailed},
		{"legacy catalog", &mysql.MySQLError{Number: 1109, Message: "Unknown table 'KEY_COLUMN_USAGE'"}, errs.IsQueryFailed},
		{"network", errors.New("driver: bad connection"), errs.IsConnectionFailed},
		{"lock wait timeout", &mysql.MySQLError{Number: 1205}, func(err error) bool {
			return errs.KindOf(err) == errs.ErrKindUnknown
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapError(tt.err, "list foreign keys")
			require.Error(t, got)
			assert.True(t, tt.want(got), "kind was %s", errs.KindOf(got))
		})
	}
}

func TestNew_InvalidDSN(t *testing.T) {
	_, err := New(context.Background(), database.DefaultConfig(database.DriverMySQL, "not a dsn"))
	require.Error(t, err)
	assert.True(t, errs.IsInvalidInput(err))
}

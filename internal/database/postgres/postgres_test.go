package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
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
		{"no rows", pgx.ErrNoRows, errs.IsNotFound},
		{"deadline", context.DeadlineExceeded, errs.IsTimeout},
		{"undefined table", &pgconn.PgError{Code: "42P01", Message: "relation does not exist"}, errs.IsNotFound},
		{"privilege", &pgconn.PgError{Code: "42501"}, errs.IsPermissionDenied},
		{"auth class", &pgconn.PgError{Code: "28P01"}, errs.IsPermissionDenied},
		{"connection class", &pgconn.PgError{Code: "08006"}, errs.IsConnectionFailed},
		{"syntax", &pgconn.PgError{Code: "42601"}, errs.IsQueryFailed},
		{"network", errors.New("dial tcp: refused"), errs.IsConnectionFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapError(tt.err, "probe failed")
			require.Error(t, got)
			assert.True(t, tt.want(got), "kind was %s", errs.KindOf(got))
			assert.ErrorIs(t, got, tt.err)
		})
	}
}

func TestDescribeField(t *testing.T) {
	col := describeField(pgconn.FieldDescription{Name: "name", DataTypeOID: pgtype.VarcharOID, TypeModifier: 104})
	assert.Equal(t, "varchar", col.TypeName)
	require.NotNil(t, col.Length)
	assert.Equal(t, int64(100), *col.Length)

	// numeric(10,2): ((10 << 16) | 2) + 4
	col = describeField(pgconn.FieldDescription{Name: "total", DataTypeOID: pgtype.NumericOID, TypeModifier: (10<<16 | 2) + 4})
	require.NotNil(t, col.Precision)
	require.NotNil(t, col.Scale)
	assert.Equal(t, int64(10), *col.Precision)
	assert.Equal(t, int64(2), *col.Scale)

	col = describeField(pgconn.FieldDescription{Name: "note", DataTypeOID: pgtype.TextOID, TypeModifier: -1})
	assert.Nil(t, col.Length)
	assert.True(t, col.Nullable)
}

func TestBuildPoolConfig(t *testing.T) {
	cfg := database.DefaultConfig(database.DriverPostgres, "postgres://u:p@localhost:5432/shop")
	cfg.MaxConns = 0
	cfg.ConnectTimeout = 3 * time.Second

	poolCfg, err := buildPoolConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, int32(defaultMaxConns), poolCfg.MaxConns)
	assert.Equal(t, int32(1), poolCfg.MinConns)
	assert.Equal(t, 3*time.Second, poolCfg.ConnConfig.ConnectTimeout)

	_, err = buildPoolConfig(&database.Config{DSN: "postgres://%zz"})
	require.Error(t, err)
	assert.True(t, errs.IsInvalidInput(err))
}

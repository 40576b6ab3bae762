package app

import (
	"context"
	"testing"

	"github.com/koustreak/dbscope/internal/config"
	"github.com/koustreak/dbscope/internal/database"
	"github.com/koustreak/dbscope/internal/errs"
	"github.com/koustreak/dbscope/internal/filestore"
	"github.com/koustreak/dbscope/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sqliteConfig(t *testing.T) *config.Config {
	return &config.Config{
		Database: config.Database{
			Driver:        "sqlite",
			DSN:           ":memory:",
			TypeOverrides: map[string]string{"decimal(10,2)": "Decimal"},
		},
		Snapshot:  config.Snapshot{Bucket: "dbscope", Prefix: "snapshots"},
		Filestore: config.Filestore{Provider: "local", Root: t.TempDir()},
		Locale:    "de",
	}
}

func TestOpen_SQLite(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, sqliteConfig(t), nil)
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, database.DriverSQLite, s.Introspector.Backend())
	assert.Equal(t, "de", s.Formats.Locale().String())

	_, err = s.DB.Exec(ctx, `CREATE TABLE "invoices" ("id" INTEGER PRIMARY KEY, "total" decimal(10,2))`)
	require.NoError(t, err)

	info, err := schema.InspectTable(ctx, s.Introspector, database.Table("invoices"))
	require.NoError(t, err)
	assert.Empty(t, info.UnmappedTypes)
	assert.Equal(t, schema.KindDecimal, info.Columns[1].Field.Kind)

	e, err := s.Exporter(ctx)
	require.NoError(t, err)
	obj, err := e.Capture(ctx, s.Introspector)
	require.NoError(t, err)
	assert.Contains(t, obj.Key, "snapshots/sqlite/")
}

func TestConnect_Unsupported(t *testing.T) {
	_, err := Connect(context.Background(), &database.Config{Driver: "db2"})
	require.Error(t, err)
	assert.True(t, errs.IsUnsupported(err))
}

func TestOpenStore(t *testing.T) {
	_, err := OpenStore(context.Background(), &filestore.Config{Provider: "ftp"})
	assert.True(t, errs.IsUnsupported(err))

	store, err := OpenStore(context.Background(), filestore.LocalConfig(t.TempDir()))
	require.NoError(t, err)
	assert.NoError(t, store.Ping(context.Background()))
}

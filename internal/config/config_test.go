package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/koustreak/dbscope/internal/database"
	"github.com/koustreak/dbscope/internal/errs"
	"github.com/koustreak/dbscope/internal/filestore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoad_File(t *testing.T) {
	path := writeFile(t, "dbscope.yaml", `
database:
  driver: postgresql
  dsn: postgres://app@localhost/shop
  default_schema: sales
  search_path: [sales, archive]
  max_conns: 2
  connect_timeout: 3s
  type_overrides:
    citext: Text
log:
  level: debug
filestore:
  provider: minio
  endpoint: localhost:9000
`)

	cfg, err := Load(path, filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, []string{"sales", "archive"}, cfg.Database.SearchPath)
	assert.Equal(t, "Text", cfg.Database.TypeOverrides["citext"])
	assert.Equal(t, ":8080", cfg.Server.Addr)

	db, err := cfg.DatabaseConfig()
	require.NoError(t, err)
	assert.Equal(t, database.DriverPostgres, db.Driver)
	assert.Equal(t, "sales", db.DefaultSchema)
	assert.Equal(t, int32(2), db.MaxConns)
	assert.Equal(t, int32(1), db.MinConns)
	assert.Equal(t, 3*time.Second, db.ConnectTimeout)

	assert.Equal(t, "debug", cfg.LoggerConfig().Level)
	assert.Equal(t, "console", cfg.LoggerConfig().Format)

	fs := cfg.FilestoreConfig()
	assert.Equal(t, filestore.ProviderMinIO, fs.Provider)
	assert.NoError(t, fs.Validate())
}

func TestLoad_EnvOverrides(t *testing.T) {
	envFile := writeFile(t, ".env", "SHOP_DSN=file:shop.db\n")
	t.Setenv("DBSCOPE_DATABASE_DRIVER", "sqlite3")
	t.Setenv("DBSCOPE_DATABASE_DSN_ENV", "SHOP_DSN")
	t.Setenv("DBSCOPE_SERVER_ADDR", "127.0.0.1:9999")
	t.Cleanup(func() { os.Unsetenv("SHOP_DSN") })

	cfg, err := Load("", envFile)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9999", cfg.Server.Addr)

	db, err := cfg.DatabaseConfig()
	require.NoError(t, err)
	assert.Equal(t, database.DriverSQLite, db.Driver)
	assert.Equal(t, "file:shop.db", db.DSN)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, errs.IsInvalidInput(err))

	cfg := &Config{Database: Database{Driver: "postgres", DSNEnv: "DBSCOPE_TEST_UNSET_DSN"}}
	_, err = cfg.DatabaseConfig()
	assert.True(t, errs.IsInvalidInput(err))

	cfg.Database.Driver = "db2"
	_, err = cfg.DatabaseConfig()
	assert.True(t, errs.IsInvalidInput(err))
}

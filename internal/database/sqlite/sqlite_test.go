package sqlite

import (
	"context"
	"testing"

	"github.com/koustreak/dbscope/internal/database"
	"github.com/koustreak/dbscope/internal/errs"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMemory(t *testing.T) *Driver {
	t.Helper()
	d, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(d.Close)
	return d
}

func TestDriver_MemoryIsShared(t *testing.T) {
	ctx := context.Background()
	d := openMemory(t)

	_, err := d.Exec(ctx, `CREATE TABLE "customers" ("id" integer PRIMARY KEY, "name" varchar(30) NOT NULL)`)
	require.NoError(t, err)

	n, err := d.Exec(ctx, `INSERT INTO "customers" ("id", "name") VALUES (1, 'ada'), (2, 'grace')`)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	rows, err := d.Query(ctx, `SELECT "name" FROM "customers" ORDER BY "id"`)
	require.NoError(t, err)
	names, err := database.ScanStrings(rows)
	require.NoError(t, err)
	assert.Equal(t, []string{"ada", "grace"}, names)
}

func TestDriver_Probe(t *testing.T) {
	ctx := context.Background()
	d := openMemory(t)

	_, err := d.Exec(ctx, `CREATE TABLE "t" ("id" integer, "label" varchar(15))`)
	require.NoError(t, err)

	cols, err := d.Probe(ctx, d.Dialect().ProbeQuery(database.Table("t")))
	require.NoError(t, err)
	require.Len(t, cols, 2)
	assert.Equal(t, "id", cols[0].Name)
	assert.Equal(t, "label", cols[1].Name)
	assert.Equal(t, "varchar(15)", cols[1].TypeName)
}

func TestDriver_QueryErrors(t *testing.T) {
	ctx := context.Background()
	d := openMemory(t)

	_, err := d.Query(ctx, `SELECT * FROM "missing"`)
	require.Error(t, err)
	assert.True(t, errs.IsQueryFailed(err))

	var name string
	err = d.QueryRow(ctx, `SELECT name FROM sqlite_master WHERE name = 'nope'`).Scan(&name)
	require.Error(t, err)
	assert.True(t, errs.IsNotFound(err))
}

func TestClassifyCode(t *testing.T) {
	assert.Equal(t, errs.ErrKindPermissionDenied, classifyCode(sqlite3.ErrPerm))
	assert.Equal(t, errs.ErrKindConnectionFailed, classifyCode(sqlite3.ErrNotADB))
	assert.Equal(t, errs.ErrKindTimeout, classifyCode(sqlite3.ErrBusy))
	assert.Equal(t, errs.ErrKindQueryFailed, classifyCode(sqlite3.ErrError))
}

func TestIsMemory(t *testing.T) {
	assert.True(t, IsMemory(":memory:"))
	assert.True(t, IsMemory("file:x?mode=memory&cache=shared"))
	assert.False(t, IsMemory("/var/lib/app.db"))
}

package local

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/koustreak/dbscope/internal/errs"
	"github.com/koustreak/dbscope/internal/filestore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *Driver {
	t.Helper()
	d, err := New(context.Background(), filestore.LocalConfig(t.TempDir()))
	require.NoError(t, err)
	require.NoError(t, d.EnsureBucket(context.Background(), "snaps"))
	return d
}

func put(t *testing.T, d *Driver, key, body string) *filestore.ObjectInfo {
	t.Helper()
	info, err := d.PutObject(context.Background(), "snaps", key, strings.NewReader(body), int64(len(body)),
		filestore.PutOptions{ContentType: "application/yaml"})
	require.NoError(t, err)
	return info
}

func TestDriver_PutGet(t *testing.T) {
	ctx := context.Background()
	d := newStore(t)

	info := put(t, d, "pg/one.yaml", "tables: []\n")
	assert.Equal(t, int64(11), info.Size)
	assert.Len(t, info.ETag, 32)

	obj, err := d.GetObject(ctx, "snaps", "pg/one.yaml")
	require.NoError(t, err)
	defer obj.Close()
	body, err := io.ReadAll(obj)
	require.NoError(t, err)
	assert.Equal(t, "tables: []\n", string(body))
	assert.Equal(t, int64(11), obj.Info().Size)

	_, err = d.StatObject(ctx, "snaps", "pg/missing.yaml")
	assert.True(t, errs.IsNotFound(err))
}

func TestDriver_ListObjects(t *testing.T) {
	ctx := context.Background()
	d := newStore(t)
	put(t, d, "pg/2.yaml", "b")
	put(t, d, "pg/1.yaml", "a")
	put(t, d, "mysql/1.yaml", "c")
	put(t, d, "readme.txt", "d")

	all, err := d.ListObjects(ctx, "snaps", filestore.ListOptions{Recursive: true})
	require.NoError(t, err)
	var keys []string
	for _, o := range all {
		keys = append(keys, o.Key)
	}
	assert.Equal(t, []string{"mysql/1.yaml", "pg/1.yaml", "pg/2.yaml", "readme.txt"}, keys)

	top, err := d.ListObjects(ctx, "snaps", filestore.ListOptions{})
	require.NoError(t, err)
	require.Len(t, top, 3)
	assert.True(t, top[0].IsDir)
	assert.Equal(t, "mysql/", top[0].Key)
	assert.Equal(t, "readme.txt", top[2].Key)

	page, err := d.ListObjects(ctx, "snaps", filestore.ListOptions{Prefix: "pg/", Recursive: true, Marker: "pg/1.yaml", Limit: 5})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "pg/2.yaml", page[0].Key)
}

func TestDriver_InvalidNames(t *testing.T) {
	ctx := context.Background()
	d := newStore(t)

	_, err := d.PutObject(ctx, "snaps", "../escape", strings.NewReader("x"), 1, filestore.PutOptions{})
	assert.True(t, errs.IsInvalidInput(err))

	assert.True(t, errs.IsInvalidInput(d.EnsureBucket(ctx, "a/b")))

	_, err = d.ListObjects(ctx, "nobucket", filestore.ListOptions{})
	assert.True(t, errs.IsNotFound(err))
}

func TestDriver_PresignGetURL(t *testing.T) {
	d := newStore(t)
	put(t, d, "pg/one.yaml", "x")

	u, err := d.PresignGetURL(context.Background(), "snaps", "pg/one.yaml", 0)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(u, "file://"))
	assert.True(t, strings.HasSuffix(u, "/snaps/pg/one.yaml"))
}

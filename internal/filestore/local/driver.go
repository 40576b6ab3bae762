// Package local implements filestore.Store on a directory tree. Each bucket
// is a subdirectory of the root; object keys map to relative paths.
package local

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"io"
	"io/fs"
	"mime"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/koustreak/dbscope/internal/errs"
	"github.com/koustreak/dbscope/internal/filestore"
)

// Driver is a directory-backed filestore.Store.
type Driver struct {
	root string
}

var _ filestore.Store = (*Driver)(nil)

// New returns a Driver rooted at cfg.Root, creating the directory if needed.
func New(ctx context.Context, cfg *filestore.Config) (*Driver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "invalid root directory", err)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, mapError(err, "failed to create root directory")
	}
	d := &Driver{root: root}
	if err := d.Ping(ctx); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Driver) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return errs.Wrap(errs.ErrKindTimeout, "ping failed", err)
	}
	if _, err := os.Stat(d.root); err != nil {
		return mapError(err, "ping failed")
	}
	return nil
}

func (d *Driver) Close() error { return nil }

func (d *Driver) EnsureBucket(ctx context.Context, bucket string) error {
	dir, err := d.bucketDir(bucket)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return mapError(err, "failed to create bucket")
	}
	return nil
}

// PutObject writes through a temporary file so readers never see a
// partial object.
func (d *Driver) PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, opts filestore.PutOptions) (*filestore.ObjectInfo, error) {
	p, err := d.objectPath(bucket, key)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return nil, mapError(err, "failed to create object directory")
	}

	tmp, err := os.CreateTemp(filepath.Dir(p), ".upload-*")
	if err != nil {
		return nil, mapError(err, "failed to upload object")
	}
	defer os.Remove(tmp.Name())

	sum := md5.New()
	n, err := io.Copy(io.MultiWriter(tmp, sum), r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, mapError(err, "failed to upload object")
	}
	if size >= 0 && n != size {
		return nil, errs.Newf(errs.ErrKindInvalidInput, "short upload: got %d of %d bytes", n, size)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return nil, mapError(err, "failed to upload object")
	}

	return &filestore.ObjectInfo{
		Key:          key,
		Size:         n,
		ContentType:  opts.ContentType,
		ETag:         hex.EncodeToString(sum.Sum(nil)),
		LastModified: time.Now().UTC(),
	}, nil
}

func (d *Driver) ListObjects(ctx context.Context, bucket string, opts filestore.ListOptions) ([]filestore.ObjectInfo, error) {
	dir, err := d.bucketDir(bucket)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(dir); err != nil {
		return nil, mapError(err, "failed to list objects")
	}

	var all []filestore.ObjectInfo
	err = filepath.WalkDir(dir, func(p string, e fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if e.IsDir() || strings.HasPrefix(e.Name(), ".upload-") {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, opts.Prefix) {
			return nil
		}
		fi, err := e.Info()
		if err != nil {
			return err
		}
		all = append(all, fileInfo(key, fi))
		return nil
	})
	if err != nil {
		return nil, mapError(err, "failed to list objects")
	}

	if !opts.Recursive {
		all = collapse(all, opts.Prefix)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Key < all[j].Key })

	out := make([]filestore.ObjectInfo, 0, len(all))
	for _, o := range all {
		if opts.Marker != "" && o.Key <= opts.Marker {
			continue
		}
		out = append(out, o)
		if opts.Limit > 0 && len(out) >= opts.Limit {
			break
		}
	}
	return out, nil
}

// collapse replaces objects below the next "/" after prefix with a single
// directory entry.
func collapse(objs []filestore.ObjectInfo, prefix string) []filestore.ObjectInfo {
	seen := make(map[string]bool)
	out := objs[:0]
	for _, o := range objs {
		rest := strings.TrimPrefix(o.Key, prefix)
		i := strings.Index(rest, "/")
		if i < 0 {
			out = append(out, o)
			continue
		}
		dirKey := prefix + rest[:i+1]
		if !seen[dirKey] {
			seen[dirKey] = true
			out = append(out, filestore.ObjectInfo{Key: dirKey, Size: -1, IsDir: true})
		}
	}
	return out
}

func (d *Driver) GetObject(ctx context.Context, bucket, key string) (filestore.Object, error) {
	p, err := d.objectPath(bucket, key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, mapError(err, "failed to get object")
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, mapError(err, "failed to stat object after get")
	}
	info := fileInfo(key, fi)
	return &object{ReadCloser: f, info: &info}, nil
}

func (d *Driver) StatObject(ctx context.Context, bucket, key string) (*filestore.ObjectInfo, error) {
	p, err := d.objectPath(bucket, key)
	if err != nil {
		return nil, err
	}
	fi, err := os.Stat(p)
	if err != nil {
		return nil, mapError(err, "failed to stat object")
	}
	info := fileInfo(key, fi)
	return &info, nil
}

// PresignGetURL returns a file:// URL; local objects need no signature and
// the ttl is ignored.
func (d *Driver) PresignGetURL(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	info, err := d.StatObject(ctx, bucket, key)
	if err != nil {
		return "", err
	}
	p, _ := d.objectPath(bucket, info.Key)
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(p)}
	return u.String(), nil
}

// --- paths ---

func (d *Driver) bucketDir(bucket string) (string, error) {
	if bucket == "" || strings.ContainsAny(bucket, `/\`) || bucket == "." || bucket == ".." {
		return "", errs.Newf(errs.ErrKindInvalidInput, "invalid bucket name %q", bucket)
	}
	return filepath.Join(d.root, bucket), nil
}

func (d *Driver) objectPath(bucket, key string) (string, error) {
	dir, err := d.bucketDir(bucket)
	if err != nil {
		return "", err
	}
	clean := path.Clean("/" + key)
	if clean == "/" || clean != "/"+key {
		return "", errs.Newf(errs.ErrKindInvalidInput, "invalid object key %q", key)
	}
	return filepath.Join(dir, filepath.FromSlash(clean[1:])), nil
}

func fileInfo(key string, fi os.FileInfo) filestore.ObjectInfo {
	return filestore.ObjectInfo{
		Key:          key,
		Size:         fi.Size(),
		ContentType:  mime.TypeByExtension(path.Ext(key)),
		LastModified: fi.ModTime().UTC(),
	}
}

func mapError(err error, msg string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, fs.ErrNotExist):
		return errs.Wrap(errs.ErrKindNotFound, msg, err)
	case errors.Is(err, fs.ErrPermission):
		return errs.Wrap(errs.ErrKindPermissionDenied, msg, err)
	}
	return errs.Wrap(errs.ErrKindQueryFailed, msg, err)
}

type object struct {
	io.ReadCloser
	info *filestore.ObjectInfo
}

func (o *object) Info() *filestore.ObjectInfo { return o.info }

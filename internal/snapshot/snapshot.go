// Package snapshot captures a schema.Snapshot of a database and keeps it
// as YAML in a filestore.Store.
package snapshot

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/koustreak/dbscope/internal/errs"
	"github.com/koustreak/dbscope/internal/filestore"
	"github.com/koustreak/dbscope/internal/logger"
	"github.com/koustreak/dbscope/internal/schema"
	"go.yaml.in/yaml/v3"
)

// ContentType is attached to uploaded snapshots.
const ContentType = "application/yaml"

// keyLayout names snapshots by capture time so keys sort chronologically.
const keyLayout = "20060102T150405Z"

// Encode writes snap as YAML.
func Encode(w io.Writer, snap *schema.Snapshot) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(snap); err != nil {
		return errs.Wrap(errs.ErrKindInvalidInput, "encode snapshot", err)
	}
	return enc.Close()
}

// Decode reads a snapshot written by Encode.
func Decode(r io.Reader) (*schema.Snapshot, error) {
	var snap schema.Snapshot
	if err := yaml.NewDecoder(r).Decode(&snap); err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "decode snapshot", err)
	}
	return &snap, nil
}

// Exporter stores snapshots under <prefix>/<backend>/<time>.yaml in one
// bucket.
type Exporter struct {
	store  filestore.Store
	bucket string
	prefix string
	log    *logger.Logger
	now    func() time.Time
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithPrefix sets the key prefix; the default is "snapshots".
func WithPrefix(prefix string) Option {
	return func(e *Exporter) {
		e.prefix = strings.Trim(prefix, "/")
	}
}

// WithLogger attaches a logger.
func WithLogger(l *logger.Logger) Option {
	return func(e *Exporter) {
		if l != nil {
			e.log = l
		}
	}
}

// WithClock overrides the clock used to name uploads.
func WithClock(now func() time.Time) Option {
	return func(e *Exporter) {
		e.now = now
	}
}

// NewExporter returns an Exporter writing to bucket.
func NewExporter(store filestore.Store, bucket string, opts ...Option) *Exporter {
	e := &Exporter{
		store:  store,
		bucket: bucket,
		prefix: "snapshots",
		log:    logger.Nop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Key returns the object key for a snapshot of backend taken at t.
func (e *Exporter) Key(backend string, t time.Time) string {
	return path.Join(e.prefix, backend, t.UTC().Format(keyLayout)+".yaml")
}

// Capture inspects the search path through i and uploads the result.
func (e *Exporter) Capture(ctx context.Context, i schema.Introspector, candidates ...string) (*filestore.ObjectInfo, error) {
	snap, err := schema.InspectSchema(ctx, i, candidates...)
	if err != nil {
		return nil, fmt.Errorf("capture snapshot: %w", err)
	}
	return e.Save(ctx, snap)
}

// Save uploads snap, creating the bucket when needed.
func (e *Exporter) Save(ctx context.Context, snap *schema.Snapshot) (*filestore.ObjectInfo, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, snap); err != nil {
		return nil, err
	}

	if err := e.store.EnsureBucket(ctx, e.bucket); err != nil {
		return nil, fmt.Errorf("save snapshot: %w", err)
	}

	taken := snap.TakenAt
	if taken.IsZero() {
		taken = e.now()
	}
	key := e.Key(string(snap.Backend), taken)

	info, err := e.store.PutObject(ctx, e.bucket, key, &buf, int64(buf.Len()), filestore.PutOptions{ContentType: ContentType})
	if err != nil {
		return nil, fmt.Errorf("save snapshot: %w", err)
	}

	e.log.With().
		Str("bucket", e.bucket).
		Str("key", key).
		Int("tables", len(snap.Tables)).
		Logger().
		Info("snapshot saved")
	return info, nil
}

// List returns the stored snapshots of backend, newest first. An empty
// backend lists every backend.
func (e *Exporter) List(ctx context.Context, backend string) ([]filestore.ObjectInfo, error) {
	prefix := e.prefix + "/"
	if backend != "" {
		prefix += backend + "/"
	}
	objs, err := e.store.ListObjects(ctx, e.bucket, filestore.ListOptions{Prefix: prefix, Recursive: true})
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}

	out := objs[:0]
	for _, o := range objs {
		if !o.IsDir && strings.HasSuffix(o.Key, ".yaml") {
			out = append(out, o)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return path.Base(out[i].Key) > path.Base(out[j].Key) })
	return out, nil
}

// Load downloads and decodes the snapshot stored at key.
func (e *Exporter) Load(ctx context.Context, key string) (*schema.Snapshot, error) {
	obj, err := e.store.GetObject(ctx, e.bucket, key)
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", key, err)
	}
	defer obj.Close()
	return Decode(obj)
}

// URL returns a download link for the snapshot at key valid for ttl.
func (e *Exporter) URL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	u, err := e.store.PresignGetURL(ctx, e.bucket, key, ttl)
	if err != nil {
		return "", fmt.Errorf("presign snapshot %s: %w", key, err)
	}
	return u, nil
}

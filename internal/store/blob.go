package store

import (
	"context"
	"fmt"

	"github.com/gabriel-vasile/mimetype"
	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"

	"github.com/ligustah/tilerip/pkg/tile"
)

// Blob stores tiles as objects in a gocloud bucket.
type Blob struct {
	bucket *blob.Bucket
	owned  bool
	opts   Options
}

// OpenBlob opens the bucket at url and stores tiles in it. The bucket is
// closed with the store.
//
// Drivers must be registered by the caller, e.g.
//
//	import _ "gocloud.dev/blob/s3blob"
func OpenBlob(ctx context.Context, url string, opts Options) (*Blob, error) {
	bucket, err := blob.OpenBucket(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("store: open bucket: %w", err)
	}
	b := NewBlob(bucket, opts)
	b.owned = true
	return b, nil
}

// NewBlob wraps an open bucket. The caller keeps ownership of bucket.
func NewBlob(bucket *blob.Bucket, opts Options) *Blob {
	return &Blob{bucket: bucket, opts: opts.withDefaults()}
}

// Path returns the object key.
func (b *Blob) Path(id tile.ID) string {
	return Key(id, b.opts.Extension)
}

// Prepare is a no-op: object stores have no directories.
func (b *Blob) Prepare(context.Context, int, int) error {
	return nil
}

func (b *Blob) Exists(ctx context.Context, id tile.ID) (bool, error) {
	ok, err := b.bucket.Exists(ctx, b.Path(id))
	if err != nil {
		return false, fmt.Errorf("store: exists %s: %w", b.Path(id), err)
	}
	return ok, nil
}

// Write uploads the tile, setting Content-Type from the sniffed body.
func (b *Blob) Write(ctx context.Context, id tile.ID, data []byte) error {
	key := b.Path(id)
	err := b.bucket.WriteAll(ctx, key, data, &blob.WriterOptions{
		ContentType: mimetype.Detect(data).String(),
		Metadata:    b.opts.Metadata,
	})
	if err != nil {
		return fmt.Errorf("store: write %s (%s): %w", key, gcerrors.Code(err), err)
	}
	b.opts.Logger.Debug("tile written", "tile", id.String(), "key", key, "bytes", len(data))
	return nil
}

func (b *Blob) Close() error {
	if !b.owned {
		return nil
	}
	return b.bucket.Close()
}

package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/ligustah/tilerip/pkg/tile"
)

// DefaultExtension is the file extension used when none is configured.
const DefaultExtension = "jpg"

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("store: closed")

// Store persists tiles.
type Store interface {
	// Path returns where the tile is stored, for logging and reporting.
	Path(id tile.ID) string

	// Prepare makes the store ready to receive tiles of column (zoom, x).
	// It is idempotent and safe to call concurrently for the same column.
	Prepare(ctx context.Context, zoom, x int) error

	// Exists reports whether the tile has already been stored.
	Exists(ctx context.Context, id tile.ID) (bool, error)

	// Write stores data for the tile, replacing any previous content.
	Write(ctx context.Context, id tile.ID, data []byte) error

	// Close releases resources held by the store.
	Close() error
}

// Options configures a store.
type Options struct {
	// Extension is appended to tile keys without the leading dot.
	// Default: "jpg"
	Extension string

	// Metadata is attached to written objects where the backend supports it.
	Metadata map[string]string

	// Logger receives debug output. Default: discard.
	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	o.Extension = strings.TrimPrefix(o.Extension, ".")
	if o.Extension == "" {
		o.Extension = DefaultExtension
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	return o
}

// Key returns the slash-separated relative key "{zoom}/{x}/{y}.{ext}".
func Key(id tile.ID, ext string) string {
	return columnKey(id.Z, id.X) + "/" + strconv.Itoa(id.Y) + "." + ext
}

func columnKey(zoom, x int) string {
	return strconv.Itoa(zoom) + "/" + strconv.Itoa(x)
}

// Open returns the store for dest.
func Open(ctx context.Context, dest string, opts Options) (Store, error) {
	switch {
	case dest == "":
		return nil, errors.New("store: empty destination")
	case strings.HasSuffix(dest, ".mbtiles"):
		return OpenMBTiles(dest, opts)
	case strings.Contains(dest, "://"):
		return OpenBlob(ctx, dest, opts)
	default:
		s, err := NewDir(dest, opts)
		if err != nil {
			return nil, fmt.Errorf("store: open directory %q: %w", dest, err)
		}
		return s, nil
	}
}

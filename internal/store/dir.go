package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"

	"github.com/ligustah/tilerip/pkg/tile"
)

// Dir stores tiles as files under a root directory.
type Dir struct {
	root string
	fs   billy.Filesystem
	opts Options
}

// NewDir returns a Dir rooted at root on the local filesystem.
// The root is created lazily by the first Prepare.
func NewDir(root string, opts Options) (*Dir, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	return NewDirFS(osfs.New(abs), root, opts), nil
}

// NewDirFS returns a Dir on an arbitrary billy filesystem. root is only used
// to report paths.
func NewDirFS(fs billy.Filesystem, root string, opts Options) *Dir {
	return &Dir{root: root, fs: fs, opts: opts.withDefaults()}
}

// Path returns {root}/{zoom}/{x}/{y}.{ext} in the host path syntax.
func (d *Dir) Path(id tile.ID) string {
	return filepath.Join(d.root, filepath.FromSlash(Key(id, d.opts.Extension)))
}

// Prepare creates {root}/{zoom}/{x} and any missing parents.
func (d *Dir) Prepare(_ context.Context, zoom, x int) error {
	if err := d.fs.MkdirAll(columnKey(zoom, x), 0o755); err != nil {
		return fmt.Errorf("store: mkdir %s: %w", columnKey(zoom, x), err)
	}
	return nil
}

func (d *Dir) Exists(_ context.Context, id tile.ID) (bool, error) {
	key := Key(id, d.opts.Extension)
	_, err := d.fs.Stat(key)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("store: stat %s: %w", key, err)
	}
}

// Write creates or truncates the tile file.
func (d *Dir) Write(_ context.Context, id tile.ID, data []byte) error {
	key := Key(id, d.opts.Extension)
	if err := util.WriteFile(d.fs, key, data, 0o644); err != nil {
		return fmt.Errorf("store: write %s: %w", key, err)
	}
	d.opts.Logger.Debug("tile written", "tile", id.String(), "path", d.Path(id), "bytes", len(data))
	return nil
}

func (d *Dir) Close() error {
	return nil
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ligustah/tilerip/pkg/tile"
)

// MBTiles stores tiles in an MBTiles (SQLite) file.
//
// MBTiles rows are addressed in the TMS scheme, so y is flipped on the way in.
type MBTiles struct {
	path   string
	db     *sql.DB
	insert *sql.Stmt
	exists *sql.Stmt
	opts   Options
}

// OpenMBTiles opens or creates an MBTiles file. Existing tiles are kept, so
// Exists sees tiles from earlier runs.
func OpenMBTiles(path string, opts Options) (*MBTiles, error) {
	opts = opts.withDefaults()

	var err error
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	defer func() {
		if err != nil {
			db.Close()
		}
	}()

	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS metadata (name TEXT, value TEXT);
		CREATE TABLE IF NOT EXISTS tiles (
			zoom_level INTEGER,
			tile_column INTEGER,
			tile_row INTEGER,
			tile_data BLOB
		);
		CREATE UNIQUE INDEX IF NOT EXISTS tile_index ON tiles (zoom_level, tile_column, tile_row);
	`)
	if err != nil {
		return nil, fmt.Errorf("store: create schema: %w", err)
	}

	metadata := map[string]string{"format": opts.Extension}
	for k, v := range opts.Metadata {
		metadata[k] = v
	}
	for k, v := range metadata {
		if _, err = db.Exec("DELETE FROM metadata WHERE name = ?", k); err != nil {
			return nil, fmt.Errorf("store: write metadata: %w", err)
		}
		if _, err = db.Exec("INSERT INTO metadata (name, value) VALUES (?, ?)", k, v); err != nil {
			return nil, fmt.Errorf("store: write metadata: %w", err)
		}
	}

	insert, err := db.Prepare("INSERT OR REPLACE INTO tiles (zoom_level, tile_column, tile_row, tile_data) VALUES (?, ?, ?, ?)")
	if err != nil {
		return nil, err
	}
	exists, err := db.Prepare("SELECT 1 FROM tiles WHERE zoom_level = ? AND tile_column = ? AND tile_row = ?")
	if err != nil {
		insert.Close()
		return nil, err
	}

	return &MBTiles{path: path, db: db, insert: insert, exists: exists, opts: opts}, nil
}

// Path returns "{file}#{zoom}/{x}/{y}.{ext}".
func (m *MBTiles) Path(id tile.ID) string {
	return m.path + "#" + Key(id, m.opts.Extension)
}

// Prepare is a no-op.
func (m *MBTiles) Prepare(context.Context, int, int) error {
	return nil
}

func (m *MBTiles) Exists(ctx context.Context, id tile.ID) (bool, error) {
	var one int
	err := m.exists.QueryRowContext(ctx, id.Z, id.X, tmsRow(id)).Scan(&one)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	default:
		return false, fmt.Errorf("store: query %s: %w", id, err)
	}
}

func (m *MBTiles) Write(ctx context.Context, id tile.ID, data []byte) error {
	if _, err := m.insert.ExecContext(ctx, id.Z, id.X, tmsRow(id), data); err != nil {
		return fmt.Errorf("store: insert %s: %w", id, err)
	}
	m.opts.Logger.Debug("tile written", "tile", id.String(), "file", m.path, "bytes", len(data))
	return nil
}

func (m *MBTiles) Close() error {
	return errors.Join(m.insert.Close(), m.exists.Close(), m.db.Close())
}

// XYZ -> TMS
func tmsRow(id tile.ID) int {
	return (1 << id.Z) - 1 - id.Y
}

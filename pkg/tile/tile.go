package tile

import (
	"fmt"
	"iter"

	"github.com/paulmach/orb/maptile"
)

// ID is a tile coordinate in the XYZ scheme.
//
// X and Y are signed so that out-of-range results from pathological inputs
// stay visible instead of wrapping.
type ID struct {
	Z int
	X int
	Y int
}

// Valid reports whether the ID addresses an existing tile.
func (t ID) Valid() bool {
	if t.Z < 0 || t.Z >= 32 {
		return false
	}
	n := 1 << t.Z
	return t.X >= 0 && t.X < n && t.Y >= 0 && t.Y < n
}

func (t ID) String() string {
	return fmt.Sprintf("%d/%d/%d", t.Z, t.X, t.Y)
}

// MapTile converts a valid ID to its orb representation.
// The result is meaningless if t is not Valid.
func (t ID) MapTile() maptile.Tile {
	return maptile.New(uint32(t.X), uint32(t.Y), maptile.Zoom(t.Z))
}

// FromMapTile converts an orb tile to an ID.
func FromMapTile(t maptile.Tile) ID {
	return ID{Z: int(t.Z), X: int(t.X), Y: int(t.Y)}
}

// Range is the inclusive rectangle of tiles to fetch at one zoom level.
type Range struct {
	Z    int
	XMin int
	XMax int
	YMin int
	YMax int
}

// Count returns the number of tiles in the range, or 0 if it is empty.
func (r Range) Count() int64 {
	if r.XMax < r.XMin || r.YMax < r.YMin {
		return 0
	}
	return int64(r.XMax-r.XMin+1) * int64(r.YMax-r.YMin+1)
}

// All yields every tile in the range in row-major order: y outer, x inner.
func (r Range) All() iter.Seq[ID] {
	return func(yield func(ID) bool) {
		for y := r.YMin; y <= r.YMax; y++ {
			for x := r.XMin; x <= r.XMax; x++ {
				if !yield(ID{Z: r.Z, X: x, Y: y}) {
					return
				}
			}
		}
	}
}

func (r Range) String() string {
	return fmt.Sprintf("z%d x[%d..%d] y[%d..%d]", r.Z, r.XMin, r.XMax, r.YMin, r.YMax)
}

package tile_test

import (
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/paulmach/orb/maptile"

	"github.com/ligustah/tilerip/pkg/tile"
)

func TestForPointAntimeridianEquator(t *testing.T) {
	for z := 1; z <= 20; z++ {
		got := tile.ForPoint(z, 0, -180)
		want := tile.ID{Z: z, X: 0, Y: 1 << (z - 1)}
		if got != want {
			t.Errorf("ForPoint(%d, 0, -180) = %v, want %v", z, got, want)
		}
	}
}

func TestForPointEasternEdge(t *testing.T) {
	for z := 0; z <= 20; z++ {
		got := tile.ForPoint(z, 0, 180-1e-9)
		if want := 1<<z - 1; got.X != want {
			t.Errorf("ForPoint(%d, 0, 180-eps).X = %d, want %d", z, got.X, want)
		}
	}
}

func TestForPointKnownLocations(t *testing.T) {
	tests := []struct {
		name     string
		zoom     int
		lat, lon float64
		want     tile.ID
	}{
		{"berlin", 12, 52.5163, 13.3777, tile.ID{Z: 12, X: 2200, Y: 1343}},
		{"london", 10, 51.5074, -0.1278, tile.ID{Z: 10, X: 511, Y: 340}},
		{"southwest quadrant", 2, -45, -90, tile.ID{Z: 2, X: 1, Y: 2}},
		{"world", 0, 12.3, 45.6, tile.ID{Z: 0, X: 0, Y: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tile.ForPoint(tt.zoom, tt.lat, tt.lon); got != tt.want {
				t.Errorf("ForPoint(%d, %v, %v) = %v, want %v", tt.zoom, tt.lat, tt.lon, got, tt.want)
			}
		})
	}
}

func TestForPointFloorsNegativeValues(t *testing.T) {
	// Truncation toward zero would give 0 here.
	got := tile.ForPoint(1, 0, -181)
	if got.X != -1 {
		t.Errorf("ForPoint(1, 0, -181).X = %d, want -1", got.X)
	}
	if got.Valid() {
		t.Errorf("%v should not be valid", got)
	}
}

func TestForPointPoles(t *testing.T) {
	northY := map[int]int{0: -6, 1: -12, 2: -23, 10: -5686}
	for z, wantY := range northY {
		got := tile.ForPoint(z, 90, 0)
		if want := (tile.ID{Z: z, X: 1 << z / 2, Y: wantY}); got != want {
			t.Errorf("ForPoint(%d, 90, 0) = %v, want %v", z, got, want)
		}
		if got.Valid() {
			t.Errorf("ForPoint(%d, 90, 0) = %v should not be valid", z, got)
		}
	}

	// The row at -90 is int(+Inf), whose value depends on the platform.
	for z := 0; z <= 10; z++ {
		got := tile.ForPoint(z, -90, 0)
		if got.X != 1<<z/2 {
			t.Errorf("ForPoint(%d, -90, 0).X = %d, want %d", z, got.X, 1<<z/2)
		}
		if got.Valid() {
			t.Errorf("ForPoint(%d, -90, 0) = %v should not be valid", z, got)
		}
	}

	r := tile.RangeFor(tile.BoundingBox{LatMin: -90, LatMax: 90, LonMin: -180, LonMax: 180}, 2)
	if r.XMin != 0 || r.XMax != 4 || r.YMin != -23 {
		t.Errorf("RangeFor(-90..90, 2) = %v, want x[0..4] and YMin -23", r)
	}
	if r.YMax >= 0 && r.YMax < 4 {
		t.Errorf("RangeFor(-90..90, 2).YMax = %d, want a row outside the grid", r.YMax)
	}
	t.Logf("RangeFor(-90..90, 2) = %v, count %d", r, r.Count())
}

func TestForPointMatchesMapTile(t *testing.T) {
	for z := 0; z <= 16; z += 4 {
		for _, want := range []maptile.Tile{
			maptile.New(0, 0, maptile.Zoom(z)),
			maptile.New(uint32(1<<z)/3, uint32(1<<z)/2, maptile.Zoom(z)),
			maptile.New(uint32(1<<z)-1, uint32(1<<z)-1, maptile.Zoom(z)),
		} {
			center := want.Center()
			got := tile.ForPoint(z, center.Lat(), center.Lon())
			if diff := cmp.Diff(tile.FromMapTile(want), got); diff != "" {
				t.Errorf("ForPoint(center of %v) mismatch (-want +got):\n%s", want, diff)
			}
		}
	}
}

func TestRangeForSingleTile(t *testing.T) {
	const eps = 1e-7

	for _, mt := range []maptile.Tile{
		maptile.New(0, 0, 0),
		maptile.New(3, 5, 4),
		maptile.New(2200, 1343, 12),
		maptile.New(0, 1023, 10),
	} {
		b := mt.Bound()
		box := tile.BoundingBox{
			LatMin: b.Min.Lat() + eps,
			LatMax: b.Max.Lat() - eps,
			LonMin: b.Min.Lon() + eps,
			LonMax: b.Max.Lon() - eps,
		}

		r := tile.RangeFor(box, int(mt.Z))
		if got := r.Count(); got != 1 {
			t.Fatalf("RangeFor(%v) = %v, want exactly one tile", mt, r)
		}
		got := slices.Collect(r.All())
		if diff := cmp.Diff([]tile.ID{tile.FromMapTile(mt)}, got); diff != "" {
			t.Errorf("RangeFor(%v) tiles mismatch (-want +got):\n%s", mt, diff)
		}
	}
}

func TestRangeForCornerOrientation(t *testing.T) {
	// Northern edge gives the smallest y.
	box := tile.BoundingBox{LatMin: -80, LatMax: 80, LonMin: -179, LonMax: 179}
	want := tile.Range{Z: 3, XMin: 0, XMax: 7, YMin: 0, YMax: 7}
	if diff := cmp.Diff(want, tile.RangeFor(box, 3)); diff != "" {
		t.Errorf("RangeFor mismatch (-want +got):\n%s", diff)
	}
}

func TestRangeAllRowMajor(t *testing.T) {
	r := tile.Range{Z: 5, XMin: 1, XMax: 2, YMin: 7, YMax: 8}
	want := []tile.ID{
		{Z: 5, X: 1, Y: 7},
		{Z: 5, X: 2, Y: 7},
		{Z: 5, X: 1, Y: 8},
		{Z: 5, X: 2, Y: 8},
	}
	if diff := cmp.Diff(want, slices.Collect(r.All())); diff != "" {
		t.Errorf("All() mismatch (-want +got):\n%s", diff)
	}
	if got := r.Count(); got != 4 {
		t.Errorf("Count() = %d, want 4", got)
	}
}

func TestRangeEmpty(t *testing.T) {
	r := tile.Range{Z: 1, XMin: 1, XMax: 0, YMin: 0, YMax: 0}
	if got := r.Count(); got != 0 {
		t.Errorf("Count() = %d, want 0", got)
	}
	if got := slices.Collect(r.All()); len(got) != 0 {
		t.Errorf("All() yielded %v, want nothing", got)
	}
}

func TestPlan(t *testing.T) {
	box := tile.BoundingBox{LatMin: -80, LatMax: 80, LonMin: -179, LonMax: 179}

	ranges, total := tile.Plan(box, 0, 3)
	if len(ranges) != 4 {
		t.Fatalf("len(ranges) = %d, want 4", len(ranges))
	}
	if want := int64(1 + 4 + 16 + 64); total != want {
		t.Errorf("total = %d, want %d", total, want)
	}

	ranges, total = tile.Plan(box, 3, 2)
	if len(ranges) != 0 || total != 0 {
		t.Errorf("Plan(3, 2) = %v, %d; want no ranges", ranges, total)
	}
}

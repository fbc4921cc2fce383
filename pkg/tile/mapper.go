package tile

import "math"

// ForPoint returns the tile containing the point (lat, lon) at the given zoom.
//
// Both indices are floored, so points west of the antimeridian or north of
// the projection limit produce negative values rather than zero.
//
// Latitudes are not clamped. At exactly 90° the intermediate stays finite
// and Y is a large negative value (-12 at zoom 1). At exactly -90° tan φ and
// 1/cos φ cancel, the logarithm is -Inf and Y comes from converting +Inf to
// int, which Go leaves to the platform. Neither result is [ID.Valid], and a
// [RangeFor] box reaching -90° can come out empty.
func ForPoint(zoom int, lat, lon float64) ID {
	x := math.Floor((lon + 180) / 360 * math.Pow(2, float64(zoom)))

	phi := lat * (math.Pi / 180)
	y := math.Floor((1 - math.Log(math.Tan(phi)+1/math.Cos(phi))/math.Pi) * math.Pow(2, float64(zoom-1)))

	return ID{Z: zoom, X: int(x), Y: int(y)}
}

// RangeFor returns the tiles covering box at the given zoom.
func RangeFor(box BoundingBox, zoom int) Range {
	topLeft := ForPoint(zoom, box.LatMax, box.LonMin)
	bottomRight := ForPoint(zoom, box.LatMin, box.LonMax)

	return Range{
		Z:    zoom,
		XMin: topLeft.X,
		XMax: bottomRight.X,
		YMin: topLeft.Y,
		YMax: bottomRight.Y,
	}
}

// Plan returns the ranges for every zoom from zMin to zMax inclusive and the
// total number of tiles they contain. It returns no ranges if zMin > zMax.
func Plan(box BoundingBox, zMin, zMax int) ([]Range, int64) {
	var (
		ranges []Range
		total  int64
	)
	for z := zMin; z <= zMax; z++ {
		r := RangeFor(box, z)
		ranges = append(ranges, r)
		total += r.Count()
	}
	return ranges, total
}

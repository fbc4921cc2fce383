package tile

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

// ErrInvalidBoundingBox is returned for malformed or inverted bounding boxes.
var ErrInvalidBoundingBox = errors.New("tile: invalid bounding box")

// Point is a geographic position in degrees.
type Point struct {
	Lat float64
	Lon float64
}

// BoundingBox is a latitude/longitude rectangle in degrees.
//
// The mapper never corrects a box; use Validate before handing user input to it.
type BoundingBox struct {
	LatMin float64
	LatMax float64
	LonMin float64
	LonMax float64
}

// ParseBoundingBox parses "lonMin,latMin,lonMax,latMax".
func ParseBoundingBox(s string) (BoundingBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return BoundingBox{}, fmt.Errorf("%w: want 4 comma-separated values, got %d", ErrInvalidBoundingBox, len(parts))
	}

	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return BoundingBox{}, fmt.Errorf("%w: %w", ErrInvalidBoundingBox, err)
		}
		v[i] = f
	}

	return BoundingBox{LonMin: v[0], LatMin: v[1], LonMax: v[2], LatMax: v[3]}, nil
}

// Validate checks coordinate ranges and ordering.
func (b BoundingBox) Validate() error {
	switch {
	case b.LatMin < -90 || b.LatMax > 90:
		return fmt.Errorf("%w: latitude outside [-90, 90]", ErrInvalidBoundingBox)
	case b.LonMin < -180 || b.LonMax > 180:
		return fmt.Errorf("%w: longitude outside [-180, 180]", ErrInvalidBoundingBox)
	case b.LatMin >= b.LatMax:
		return fmt.Errorf("%w: latMin %v must be less than latMax %v", ErrInvalidBoundingBox, b.LatMin, b.LatMax)
	case b.LonMin >= b.LonMax:
		return fmt.Errorf("%w: lonMin %v must be less than lonMax %v", ErrInvalidBoundingBox, b.LonMin, b.LonMax)
	}
	return nil
}

// TopLeft returns the north-west corner.
func (b BoundingBox) TopLeft() Point { return Point{Lat: b.LatMax, Lon: b.LonMin} }

// BottomRight returns the south-east corner.
func (b BoundingBox) BottomRight() Point { return Point{Lat: b.LatMin, Lon: b.LonMax} }

// Bound converts the box to an orb.Bound (X is longitude, Y is latitude).
func (b BoundingBox) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{b.LonMin, b.LatMin},
		Max: orb.Point{b.LonMax, b.LatMax},
	}
}

// FromBound converts an orb.Bound to a BoundingBox.
func FromBound(b orb.Bound) BoundingBox {
	return BoundingBox{
		LatMin: b.Min.Lat(),
		LatMax: b.Max.Lat(),
		LonMin: b.Min.Lon(),
		LonMax: b.Max.Lon(),
	}
}

func (b BoundingBox) String() string {
	return fmt.Sprintf("%g,%g,%g,%g", b.LonMin, b.LatMin, b.LonMax, b.LatMax)
}

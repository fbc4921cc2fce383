// Package tile maps geographic coordinates onto slippy-map tile indices.
//
// Tiles are addressed in the XYZ scheme used by web map tile servers: at zoom
// level z the world is divided into 2^z × 2^z square tiles, x grows eastward
// from the antimeridian and y grows southward from the northern edge of the
// Web Mercator projection.
//
// # Coordinates
//
// [ForPoint] returns the tile containing a (latitude, longitude) point:
//
//	id := tile.ForPoint(12, 52.5163, 13.3777) // 12/2200/1343
//
// No clamping is applied. The Mercator projection is undefined at the poles,
// so latitudes at or near ±90° produce extreme indices. Exactly 90° gives a
// finite negative row and exactly -90° a non-finite intermediate whose
// integer conversion is implementation-defined in Go. Callers that accept
// such input must check [ID.Valid].
//
// # Ranges
//
// [RangeFor] derives the inclusive rectangle of tiles covering a
// [BoundingBox] at one zoom level. The top-left corner is taken from
// (LatMax, LonMin) and the bottom-right from (LatMin, LonMax), because y grows
// southward. [Plan] repeats that for a zoom range and counts the tiles.
package tile

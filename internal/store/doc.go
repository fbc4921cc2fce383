// Package store persists downloaded tiles.
//
// Three backends implement [Store]:
//
//   - [Dir]: files under a root directory laid out as {zoom}/{x}/{y}.{ext},
//     backed by a go-billy filesystem (osfs on disk, memfs in tests)
//   - [Blob]: objects in any gocloud.dev bucket (file://, mem://, s3://, gs://)
//     under the same key layout
//   - [MBTiles]: a single SQLite file in the MBTiles layout
//
// [Open] picks a backend from a destination string:
//
//	world.mbtiles           -> MBTiles
//	s3://bucket?region=...  -> Blob
//	./tiles                 -> Dir
//
// Every backend is safe for concurrent use by multiple workers.
package store

// Package scheduler downloads every tile of a bounding box over a zoom range.
//
// It turns the box into per-zoom tile ranges, expands the URL template for
// each tile and feeds the resulting tasks to a fixed pool of workers that
// fetch over HTTP and hand the body to a store.Store.
//
// # Usage
//
// The main entry point is the Run function:
//
//	res, err := scheduler.Run(ctx, client, scheduler.Job{
//	    URL:     "https://tile.example.org/{zoom}/{x}/{y}.png",
//	    MinZoom: 0,
//	    MaxZoom: 12,
//	    Box:     box,
//	    Store:   st,
//	}, scheduler.Options{
//	    Workers: 8,
//	    Limit:   scheduler.Unlimited,
//	})
//
// # Scheduling
//
// Tiles are visited zoom by zoom, row by row (y outer, x inner). Tiles whose
// destination already exists are skipped unless Overwrite is set. The
// scheduling goroutine is the only one that counts submissions, so the Limit
// check needs no locking; once Limit tasks have been submitted the run stops
// early and still succeeds.
//
// # Backpressure
//
// Tasks travel over a channel with capacity Workers. A send blocks while the
// channel is full, so at most 2×Workers tasks are outstanding at any time.
//
// # Errors
//
// Per-tile failures (transport errors, HTTP errors, empty bodies, write
// failures) are logged and the tile is dropped. HTTP 429 is different: the
// first worker to see it cancels the whole run, no further tasks are fetched,
// and Run returns a *RateLimitError once in-flight work has drained.
package scheduler

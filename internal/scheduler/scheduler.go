package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	tilehttp "github.com/ligustah/tilerip/internal/http"
	"github.com/ligustah/tilerip/internal/store"
	"github.com/ligustah/tilerip/pkg/tile"
	"github.com/ligustah/tilerip/pkg/tileurl"
)

// Unlimited disables the tile limit.
const Unlimited = -1

// Fetcher retrieves a tile body. *tilehttp.Client implements it.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*tilehttp.Response, error)
}

// Job describes what to download.
type Job struct {
	// URL is the tile URL template, e.g. "https://host/{zoom}/{x}/{y}.png".
	URL string

	// MinZoom and MaxZoom bound the zoom range, inclusive. Nothing is
	// downloaded if MinZoom > MaxZoom.
	MinZoom int
	MaxZoom int

	// Box is the region to download. It is used as given.
	Box tile.BoundingBox

	// Store receives the tiles.
	Store store.Store
}

// Options configures the scheduler.
type Options struct {
	// Workers is the number of parallel fetch workers.
	// Default: 1
	Workers int

	// Overwrite re-downloads tiles that already exist in the store.
	Overwrite bool

	// Limit is the maximum number of tiles to submit. Once reached the run
	// stops and succeeds. Use Unlimited (any negative value) to disable.
	// Note that the zero value means no tiles at all.
	Limit int

	// Logger receives per-tile diagnostics. Default: discard.
	Logger *slog.Logger

	// Observer is an optional progress observer.
	Observer Observer
}

// DefaultOptions returns options for a single worker, no limit and overwrite
// enabled.
func DefaultOptions() Options {
	return Options{
		Workers:   1,
		Overwrite: true,
		Limit:     Unlimited,
	}
}

// Task is one tile to fetch.
type Task struct {
	Tile tile.ID
	URL  string
	Path string
}

// Result summarises a run.
type Result struct {
	Planned      int64 // Tiles in the requested ranges
	Submitted    int64 // Tasks handed to workers
	Skipped      int64 // Tiles already present in the store
	Written      int64 // Tiles stored successfully
	Failed       int64 // Tiles dropped after an error
	Canceled     int64 // Tasks not fetched because the run was aborted
	LimitReached bool  // The run stopped early at Limit
}

// Run downloads the tiles described by job.
//
// It returns nil when every tile has been processed or the limit was reached,
// a *RateLimitError when the server answered 429, and ctx.Err() when ctx was
// cancelled. The Result is valid in all cases.
func Run(ctx context.Context, fetcher Fetcher, job Job, opts Options) (*Result, error) {
	// Apply defaults
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Observer == nil {
		opts.Observer = Observers()
	}
	if fetcher == nil {
		return nil, errors.New("scheduler: fetcher is required")
	}
	if job.Store == nil {
		return nil, errors.New("scheduler: store is required")
	}

	logger := opts.Logger
	tmpl := tileurl.Parse(job.URL)
	if !tmpl.HasPlaceholders() {
		logger.Warn("URL template does not reference {zoom}, {x} and {y}", "url", job.URL)
	}

	ranges, planned := tile.Plan(job.Box, job.MinZoom, job.MaxZoom)
	res := &Result{Planned: planned}

	// Rate-limit breaker state
	var (
		rlMu    sync.Mutex
		rlErr   *RateLimitError
		written atomic.Int64
		failed  atomic.Int64
		skipped atomic.Int64
		aborted atomic.Int64
	)

	// Cancelled on 429 to stop every worker and the scheduling loop
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := &worker{
		fetcher: fetcher,
		store:   job.Store,
		logger:  logger,
	}

	tasks := make(chan Task, opts.Workers)
	var wg sync.WaitGroup

	// Start workers
	for i := 0; i < opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range tasks {
				outcome, resp := w.process(runCtx, task)
				opts.Observer.TileFinished(task.Tile, outcome)

				switch {
				case outcome == OutcomeWritten:
					written.Add(1)
				case outcome == OutcomeCanceled:
					aborted.Add(1)
				default:
					failed.Add(1)
				}

				if outcome == OutcomeRateLimited {
					rlMu.Lock()
					if rlErr == nil {
						rlErr = &RateLimitError{
							Tile:       task.Tile,
							URL:        task.URL,
							StatusCode: resp.StatusCode,
							Reason:     resp.Reason,
						}
						logger.Error("tile server is rate limiting, stopping", "tile", task.Tile.String(), "url", task.URL)
					}
					rlMu.Unlock()
					cancel()
				}
			}
		}()
	}

	var submitted int64

loop:
	for _, r := range ranges {
		logger.Info("scheduling zoom level", "zoom", r.Z, "range", r.String(), "tiles", r.Count())

		for id := range r.All() {
			if runCtx.Err() != nil {
				break loop
			}

			task := Task{
				Tile: id,
				URL:  tmpl.Expand(id.Z, id.X, id.Y),
				Path: job.Store.Path(id),
			}

			// A failure here resurfaces as a write error in the worker.
			if err := job.Store.Prepare(runCtx, id.Z, id.X); err != nil {
				logger.Warn("prepare destination", "tile", id.String(), "path", task.Path, "error", err)
			}

			if !opts.Overwrite {
				exists, err := job.Store.Exists(runCtx, id)
				if err != nil {
					logger.Warn("check existing tile", "tile", id.String(), "path", task.Path, "error", err)
				}
				if exists {
					skipped.Add(1)
					opts.Observer.TileSkipped(id)
					continue
				}
			}

			if opts.Limit >= 0 && submitted >= int64(opts.Limit) {
				logger.Info("reached limit of tiles", "limit", opts.Limit)
				res.LimitReached = true
				break loop
			}

			select {
			case tasks <- task:
			case <-runCtx.Done():
				break loop
			}

			submitted++
			opts.Observer.TileSubmitted(id)
			logger.Debug("tile submitted", "tile", id.String(), "url", task.URL, "count", submitted)
		}
	}

	// Drain
	close(tasks)
	wg.Wait()

	res.Submitted = submitted
	res.Skipped = skipped.Load()
	res.Written = written.Load()
	res.Failed = failed.Load()
	res.Canceled = aborted.Load()

	logger.Info("finished downloading: all workers exited",
		"submitted", res.Submitted,
		"written", res.Written,
		"failed", res.Failed,
		"skipped", res.Skipped,
	)

	rlMu.Lock()
	defer rlMu.Unlock()
	if rlErr != nil {
		return res, rlErr
	}
	if ctx.Err() != nil {
		return res, ctx.Err()
	}
	return res, nil
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/s3blob"

	"github.com/ligustah/tilerip/internal/config"
	tilehttp "github.com/ligustah/tilerip/internal/http"
	"github.com/ligustah/tilerip/internal/logging"
	"github.com/ligustah/tilerip/internal/metrics"
	"github.com/ligustah/tilerip/internal/progress"
	"github.com/ligustah/tilerip/internal/scheduler"
	"github.com/ligustah/tilerip/internal/store"
	"github.com/ligustah/tilerip/pkg/tile"
)

// runFetch downloads the tiles covering a bounding box over a zoom range.
func runFetch(args []string) int {
	fs := flag.NewFlagSet("fetch", flag.ContinueOnError)
	def := config.Default()

	cf := newConfigFlags(fs)
	cf.string("url", "", "Tile URL template with {zoom}, {x} and {y} (required)", "url", "u")
	cf.string("bbox", "", "Bounding box lonMin,latMin,lonMax,latMax (required)", "bbox", "b")
	cf.int("min_zoom", def.MinZoom, "Minimum zoom level", "min-zoom", "z")
	cf.int("max_zoom", def.MaxZoom, "Maximum zoom level", "max-zoom", "Z")
	cf.string("output", "", "Output directory, .mbtiles file or bucket URL (required)", "output", "o")
	cf.int("workers", def.Workers, "Number of tiles downloaded concurrently", "workers", "t")
	cf.bool("no_overwrite", def.NoOverwrite, "Do not overwrite existing tiles", "no-overwrite", "w")
	cf.int("limit", def.Limit, "Stop after this many tiles (-1 for no limit)", "limit", "l")
	cf.string("extension", def.Extension, "Extension of stored tiles", "ext")
	cf.bool("progress", def.Progress, "Show progress output", "progress")
	cf.string("metrics_addr", def.MetricsAddr, "Serve Prometheus metrics on this address while fetching", "metrics-addr")
	cf.string("log.level", def.Log.Level, "Log level: debug, info, warn or error", "log-level")
	cf.string("log.format", def.Log.Format, "Log format: text or json", "log-format")
	cf.duration("http.timeout", def.HTTP.Timeout, "Timeout for a single tile request", "timeout")
	cf.string("http.user_agent", tilehttp.DefaultUserAgent, "User-Agent header", "user-agent")
	cf.float("http.rate_limit", def.HTTP.RateLimit, "Maximum requests per second (0 for no limit)", "rate")
	cf.int("retry.attempts", def.Retry.Attempts, "Retries for transport errors and 5xx responses", "retry-attempts")
	cf.duration("retry.backoff", def.Retry.Backoff, "Initial retry backoff", "retry-backoff")
	cf.duration("retry.max_backoff", def.Retry.MaxBackoff, "Max retry backoff", "retry-max-backoff")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: tilerip fetch [options]

Download every tile covering a bounding box for a range of zoom levels and
store it as {zoom}/{x}/{y}.{ext}. Settings are read from -config, then from
TILERIP_* environment variables, then from flags.

Exit codes: 0 done or limit reached, 1 rate limited or interrupted,
2 invalid arguments, 5 storage could not be opened.

Options:`)
		fs.PrintDefaults()
	}

	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	cfg, err := cf.load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}
	box, err := cfg.Validate()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fs.Usage()
		return ExitInvalidArgs
	}

	logger := logging.Setup(cfg.Log.Level, cfg.Log.Format, os.Stderr)

	// Setup context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			fmt.Fprintln(os.Stderr, "\n[tilerip] Received interrupt, shutting down...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return fetch(ctx, cfg, box, logger)
}

func fetch(ctx context.Context, cfg config.Config, box tile.BoundingBox, logger *slog.Logger) int {
	// Open store
	st, err := store.Open(ctx, cfg.Output, store.Options{
		Extension: cfg.Extension,
		Logger:    logger,
		Metadata: map[string]string{
			"name":   "tilerip",
			"bounds": box.String(),
		},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening output: %v\n", err)
		return ExitStorageError
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("close output", "output", cfg.Output, "error", err)
		}
	}()

	ranges, planned := tile.Plan(box, cfg.MinZoom, cfg.MaxZoom)
	fmt.Fprintf(os.Stderr, "[tilerip] %d tiles in %d zoom levels (%d-%d)\n", planned, len(ranges), cfg.MinZoom, cfg.MaxZoom)
	if cfg.MinZoom > cfg.MaxZoom {
		logger.Warn("min zoom is greater than max zoom, nothing to do", "min_zoom", cfg.MinZoom, "max_zoom", cfg.MaxZoom)
	}

	total := planned
	if cfg.Limit >= 0 && int64(cfg.Limit) < total {
		total = int64(cfg.Limit)
	}

	// Setup observers
	var observers []scheduler.Observer

	var reporter *progress.Reporter
	if cfg.Progress {
		reporter = progress.NewReporter(progress.Options{
			Total:     total,
			Workers:   cfg.Workers,
			Output:    os.Stderr,
			SourceURL: cfg.URL,
			Bar:       isTerminal(os.Stderr),
		})
		observers = append(observers, reporter)
	}

	if cfg.MetricsAddr != "" {
		collector := metrics.NewCollector()
		collector.SetPlanned(planned)
		observers = append(observers, collector)

		metricsCtx, stopMetrics := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			defer close(done)
			if err := collector.Serve(metricsCtx, cfg.MetricsAddr, logger); err != nil {
				logger.Error("metrics server", "addr", cfg.MetricsAddr, "error", err)
			}
		}()
		defer func() {
			stopMetrics()
			<-done
		}()
	}

	client := tilehttp.NewClient(tilehttp.Options{
		MaxIdleConnsPerHost: cfg.Workers * 2,
		Timeout:             cfg.HTTP.Timeout,
		RetryAttempts:       cfg.Retry.Attempts,
		RetryBackoff:        cfg.Retry.Backoff,
		RetryMaxBackoff:     cfg.Retry.MaxBackoff,
		UserAgent:           cfg.HTTP.UserAgent,
		RateLimit:           cfg.HTTP.RateLimit,
	})

	if reporter != nil {
		reporter.Start()
	}

	res, err := scheduler.Run(ctx, client, scheduler.Job{
		URL:     cfg.URL,
		MinZoom: cfg.MinZoom,
		MaxZoom: cfg.MaxZoom,
		Box:     box,
		Store:   st,
	}, scheduler.Options{
		Workers:   cfg.Workers,
		Overwrite: !cfg.NoOverwrite,
		Limit:     cfg.Limit,
		Logger:    logger,
		Observer:  scheduler.Observers(observers...),
	})

	if reporter != nil {
		reporter.Stop()
	}

	if err != nil {
		var rlErr *scheduler.RateLimitError
		switch {
		case errors.As(err, &rlErr):
			fmt.Fprintf(os.Stderr, "Error: %v\n", rlErr)
			fmt.Fprintln(os.Stderr, "[tilerip] The tile server asked us to slow down; try fewer workers or -rate")
		case ctx.Err() != nil:
			fmt.Fprintln(os.Stderr, "[tilerip] Download interrupted; run again with -no-overwrite to continue")
		default:
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		printSummary(res)
		return ExitGeneralError
	}

	if res.LimitReached {
		fmt.Fprintf(os.Stderr, "[tilerip] Reached limit of %d tiles\n", cfg.Limit)
	}
	printSummary(res)
	fmt.Fprintf(os.Stderr, "[tilerip] Finished downloading to %s\n", cfg.Output)
	return ExitSuccess
}

func printSummary(res *scheduler.Result) {
	if res == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "[tilerip] Tiles: %d written | %d failed | %d skipped | %d not fetched\n",
		res.Written, res.Failed, res.Skipped, res.Canceled)
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

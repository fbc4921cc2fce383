package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	tilehttp "github.com/ligustah/tilerip/internal/http"
	"github.com/ligustah/tilerip/internal/store"
	"github.com/ligustah/tilerip/pkg/tile"
)

// DownloadTiles downloads every tile covering the box for zoom levels
// zMin..zMax into outDir/zoom/x/y.jpg.
//
// Requests are not retried. A negative limit means no limit. Per-tile
// failures are logged to slog.Default. It returns a *RateLimitError if the
// server answered HTTP 429.
func DownloadTiles(ctx context.Context, baseURL string, zMin, zMax int, latMin, latMax, lonMin, lonMax float64, outDir string, workers int, overwrite bool, limit int) error {
	st, err := store.NewDir(outDir, store.Options{Extension: store.DefaultExtension})
	if err != nil {
		return fmt.Errorf("open output directory: %w", err)
	}
	defer st.Close()

	httpOpts := tilehttp.DefaultOptions()
	httpOpts.RetryAttempts = 0
	client := tilehttp.NewClient(httpOpts)

	_, err = Run(ctx, client, Job{
		URL:     baseURL,
		MinZoom: zMin,
		MaxZoom: zMax,
		Box: tile.BoundingBox{
			LatMin: latMin,
			LatMax: latMax,
			LonMin: lonMin,
			LonMax: lonMax,
		},
		Store: st,
	}, Options{
		Workers:   workers,
		Overwrite: overwrite,
		Limit:     limit,
		Logger:    slog.Default(),
	})
	return err
}

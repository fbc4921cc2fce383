package scheduler

import (
	"context"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"

	tilehttp "github.com/ligustah/tilerip/internal/http"
	"github.com/ligustah/tilerip/internal/store"
)

// worker holds what every pool goroutine shares. It never touches scheduler
// counters; outcomes are reported back to Run.
type worker struct {
	fetcher Fetcher
	store   store.Store
	logger  *slog.Logger

	mismatchOnce sync.Once
}

// process fetches and stores a single tile. The response is returned so the
// caller can build a RateLimitError; it is nil unless the server answered.
func (w *worker) process(ctx context.Context, task Task) (Outcome, *tilehttp.Response) {
	if ctx.Err() != nil {
		return OutcomeCanceled, nil
	}

	resp, err := w.fetcher.Fetch(ctx, task.URL)
	if err != nil {
		if ctx.Err() != nil {
			return OutcomeCanceled, nil
		}
		w.logger.Warn("fetch tile", "tile", task.Tile.String(), "url", task.URL, "error", err)
		return OutcomeTransportError, nil
	}

	if resp.StatusCode >= 400 {
		w.logger.Warn("received HTTP error",
			"tile", task.Tile.String(),
			"url", task.URL,
			"status", resp.StatusCode,
			"reason", resp.Reason,
		)
		if resp.StatusCode == http.StatusTooManyRequests {
			return OutcomeRateLimited, resp
		}
		return OutcomeHTTPError, resp
	}

	if len(resp.Body) == 0 {
		w.logger.Warn("no response body from server", "tile", task.Tile.String(), "url", task.URL)
		return OutcomeEmptyBody, resp
	}

	w.checkType(task, resp.Body)

	if err := w.store.Write(ctx, task.Tile, resp.Body); err != nil {
		w.logger.Error("write tile", "tile", task.Tile.String(), "path", task.Path, "error", err)
		return OutcomeWriteError, resp
	}

	w.logger.Debug("tile written", "tile", task.Tile.String(), "path", task.Path, "bytes", len(resp.Body))
	return OutcomeWritten, resp
}

// checkType warns once per run when the server sends a different image
// format than the destination extension suggests.
func (w *worker) checkType(task Task, body []byte) {
	want := normalizeExt(path.Ext(task.Path))
	if want == "" {
		return
	}

	mt := mimetype.Detect(body)
	got := normalizeExt(mt.Extension())
	if got == "" || got == want {
		return
	}

	w.mismatchOnce.Do(func() {
		w.logger.Warn("tile content does not match extension",
			"tile", task.Tile.String(),
			"path", task.Path,
			"detected", mt.String(),
		)
	})
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if ext == "jpeg" {
		return "jpg"
	}
	return ext
}

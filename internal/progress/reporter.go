package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/ligustah/tilerip/internal/scheduler"
	"github.com/ligustah/tilerip/pkg/tile"
)

// Options configures the progress reporter.
type Options struct {
	// Total is the number of tiles expected to be processed.
	Total int64

	// Workers is the number of parallel workers (for display).
	Workers int

	// Output is where to write progress output.
	// Default: os.Stdout
	Output io.Writer

	// UpdateInterval is how often to update the progress display.
	// Default: 500ms
	UpdateInterval time.Duration

	// SourceURL is the tile URL template (for display).
	SourceURL string

	// Bar renders an interactive progress bar instead of status lines.
	Bar bool
}

// Stats is a snapshot of the reporter counters.
type Stats struct {
	Submitted  int64
	Skipped    int64
	Written    int64
	Failed     int64
	InProgress int64
}

// Done returns the number of tiles that will not be touched again.
func (s Stats) Done() int64 {
	return s.Skipped + s.Written + s.Failed
}

// Reporter outputs human-readable progress information.
type Reporter struct {
	opts Options
	bar  *progressbar.ProgressBar

	submitted atomic.Int64
	skipped   atomic.Int64
	written   atomic.Int64
	failed    atomic.Int64
	canceled  atomic.Int64

	mu         sync.Mutex
	startTime  time.Time
	lastUpdate time.Time
	lastDone   int64
	started    bool
	stopped    bool
	stopCh     chan struct{}
	doneCh     chan struct{}
}

var _ scheduler.Observer = (*Reporter)(nil)

// NewReporter creates a new progress reporter.
func NewReporter(opts Options) *Reporter {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.UpdateInterval == 0 {
		opts.UpdateInterval = 500 * time.Millisecond
	}

	r := &Reporter{
		opts:   opts,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	if opts.Bar {
		r.bar = progressbar.NewOptions64(opts.Total,
			progressbar.OptionSetWriter(opts.Output),
			progressbar.OptionSetDescription("[tilerip] tiles"),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("tiles"),
			progressbar.OptionThrottle(opts.UpdateInterval),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionFullWidth(),
		)
	}
	return r
}

// Start begins outputting progress information.
func (r *Reporter) Start() {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return
	}
	r.started = true
	r.startTime = time.Now()
	r.lastUpdate = r.startTime
	r.mu.Unlock()

	// Print header
	fmt.Fprintf(r.opts.Output, "[tilerip] Downloading: %s\n", r.opts.SourceURL)
	fmt.Fprintf(r.opts.Output, "[tilerip] Tiles: %d | Workers: %d\n", r.opts.Total, r.opts.Workers)

	go r.updateLoop()
}

// Stop stops the reporter and prints the final summary. It is safe to call
// more than once.
func (r *Reporter) Stop() {
	r.mu.Lock()
	if r.stopped || !r.started {
		r.stopped = true
		r.mu.Unlock()
		return
	}
	r.stopped = true
	r.mu.Unlock()

	close(r.stopCh)
	<-r.doneCh
}

// TileSubmitted marks a tile as handed to a worker.
func (r *Reporter) TileSubmitted(tile.ID) {
	r.submitted.Add(1)
}

// TileSkipped marks a tile that already existed.
func (r *Reporter) TileSkipped(tile.ID) {
	r.skipped.Add(1)
	r.advance()
}

// TileFinished records the outcome of a submitted tile.
func (r *Reporter) TileFinished(_ tile.ID, outcome scheduler.Outcome) {
	switch {
	case outcome == scheduler.OutcomeWritten:
		r.written.Add(1)
	case outcome == scheduler.OutcomeCanceled:
		r.canceled.Add(1)
		return
	default:
		r.failed.Add(1)
	}
	r.advance()
}

func (r *Reporter) advance() {
	if r.bar != nil {
		_ = r.bar.Add64(1)
	}
}

// Stats returns the current counters.
func (r *Reporter) Stats() Stats {
	written := r.written.Load()
	failed := r.failed.Load()
	submitted := r.submitted.Load()

	// TileFinished can arrive before the matching TileSubmitted.
	inProgress := submitted - written - failed - r.canceled.Load()
	if inProgress < 0 {
		inProgress = 0
	}
	return Stats{
		Submitted:  submitted,
		Skipped:    r.skipped.Load(),
		Written:    written,
		Failed:     failed,
		InProgress: inProgress,
	}
}

// updateLoop periodically updates the progress display.
func (r *Reporter) updateLoop() {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.opts.UpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			r.printFinalStatus()
			return
		case <-ticker.C:
			if r.bar == nil {
				r.printProgress()
			}
		}
	}
}

// printProgress outputs the current progress.
func (r *Reporter) printProgress() {
	now := time.Now()
	s := r.Stats()
	done := s.Done()

	// Calculate speed
	elapsed := now.Sub(r.lastUpdate).Seconds()
	if elapsed < 0.1 {
		elapsed = 0.1
	}
	speed := float64(done-r.lastDone) / elapsed

	r.lastUpdate = now
	r.lastDone = done

	// Calculate percentage and ETA
	var percent float64
	eta := "calculating..."
	if r.opts.Total > 0 {
		percent = float64(done) / float64(r.opts.Total) * 100
		if speed > 0 {
			remaining := float64(r.opts.Total - done)
			eta = formatDuration(time.Duration(remaining / speed * float64(time.Second)))
		}
	}

	fmt.Fprintf(r.opts.Output, "[tilerip] Progress: %.1f%% | %d / %d | Speed: %.0f tiles/s | ETA: %s\n",
		percent, done, r.opts.Total, speed, eta)
	fmt.Fprintf(r.opts.Output, "[tilerip] Tiles: %d written | %d failed | %d skipped | %d in-progress\n",
		s.Written, s.Failed, s.Skipped, s.InProgress)
}

// printFinalStatus outputs the final status.
func (r *Reporter) printFinalStatus() {
	if r.bar != nil {
		_ = r.bar.Finish()
		fmt.Fprintln(r.opts.Output)
	}

	s := r.Stats()
	duration := time.Since(r.startTime)
	avg := float64(s.Written) / max(duration.Seconds(), 0.001)

	fmt.Fprintf(r.opts.Output, "[tilerip] Tiles: %d written | %d failed | %d skipped\n",
		s.Written, s.Failed, s.Skipped)
	fmt.Fprintf(r.opts.Output, "[tilerip] Total time: %s | Average speed: %.1f tiles/s\n",
		formatDuration(duration), avg)
}

// formatDuration formats a duration as a human-readable string.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm %ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh %dm %ds", h, m, s)
}

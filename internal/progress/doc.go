// Package progress reports tile download progress on a terminal.
//
// A Reporter is a scheduler.Observer. Pass it in scheduler.Options and call
// Start before the run and Stop after it.
//
// # Usage
//
//	reporter := progress.NewReporter(progress.Options{
//	    Total:     planned,
//	    Workers:   8,
//	    SourceURL: template,
//	    Output:    os.Stderr,
//	})
//
//	reporter.Start()
//	defer reporter.Stop()
//
// # Output Format
//
// With Bar set, a progressbar is redrawn in place. Otherwise a status line is
// printed every UpdateInterval:
//
//	[tilerip] Downloading: https://tile.example.org/{zoom}/{x}/{y}.png
//	[tilerip] Tiles: 21845 | Workers: 8
//	[tilerip] Progress: 45.2% | 9874 / 21845 | Speed: 120 tiles/s | ETA: 1m 39s
//	[tilerip] Tiles: 9650 written | 12 failed | 212 skipped | 16 in-progress
package progress

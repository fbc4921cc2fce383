package main

import (
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/ligustah/tilerip/pkg/tile"
)

// runPlan prints the tile ranges a fetch with the same box and zoom range
// would request, without contacting the server.
func runPlan(args []string) int {
	fs := flag.NewFlagSet("plan", flag.ContinueOnError)

	cf := newConfigFlags(fs)
	cf.string("bbox", "", "Bounding box lonMin,latMin,lonMax,latMax (required)", "bbox", "b")
	cf.int("min_zoom", 0, "Minimum zoom level", "min-zoom", "z")
	cf.int("max_zoom", 0, "Maximum zoom level", "max-zoom", "Z")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: tilerip plan [options]

Print the tile range and tile count for every zoom level of a bounding box.

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
	if cfg.BBox == "" {
		fmt.Fprintln(os.Stderr, "Error: -bbox is required")
		fs.Usage()
		return ExitInvalidArgs
	}
	box, err := cfg.Box()
	if err == nil {
		err = box.Validate()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}
	if cfg.MinZoom < 0 || cfg.MaxZoom < 0 {
		fmt.Fprintln(os.Stderr, "Error: zoom levels must not be negative")
		return ExitInvalidArgs
	}

	ranges, total := tile.Plan(box, cfg.MinZoom, cfg.MaxZoom)

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "zoom\tx\ty\ttiles\t")
	for _, r := range ranges {
		fmt.Fprintf(tw, "%d\t%d-%d\t%d-%d\t%d\t\n", r.Z, r.XMin, r.XMax, r.YMin, r.YMax, r.Count())
	}
	fmt.Fprintf(tw, "total\t\t\t%d\t\n", total)
	if err := tw.Flush(); err != nil {
		return ExitGeneralError
	}
	return ExitSuccess
}

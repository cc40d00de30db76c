package main

import (
	"fmt"
	"os"
	"time"

	flag "github.com/spf13/pflag"
)

// cliFlags holds the parsed command line.
type cliFlags struct {
	configPath  string
	outDir      string
	workers     int
	timeout     time.Duration
	pageSize    string
	orientation string
	margin      float64
	verbose     bool
	showVersion bool
	runDoctor   bool

	inputs []string
}

func parseFlags(args []string) (*cliFlags, error) {
	fs := flag.NewFlagSet("report2pdf", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: report2pdf [flags] <report.html> [more.html ...]\n\nFlags:\n")
		fs.PrintDefaults()
	}

	f := &cliFlags{}
	fs.StringVarP(&f.configPath, "config", "c", "", "path to YAML config file")
	fs.StringVarP(&f.outDir, "out", "o", ".", "directory for converted output")
	fs.IntVarP(&f.workers, "workers", "w", 0, "concurrent conversions (0 = auto)")
	fs.DurationVar(&f.timeout, "timeout", 0, "per-job time limit (0 = config default)")
	fs.StringVar(&f.pageSize, "page-size", "", "page size: letter, a4, legal")
	fs.StringVar(&f.orientation, "orientation", "", "orientation: portrait, landscape")
	fs.Float64Var(&f.margin, "margin", 0, "page margin in inches")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "enable debug logging")
	fs.BoolVar(&f.showVersion, "version", false, "print version and exit")
	fs.BoolVar(&f.runDoctor, "doctor", false, "check the rendering environment and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	f.inputs = fs.Args()
	return f, nil
}

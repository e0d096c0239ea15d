package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/KilimcininKorOglu/obaidx/internal/bench"
	"github.com/KilimcininKorOglu/obaidx/internal/config"
	"github.com/KilimcininKorOglu/obaidx/internal/storage/btree"
)

// benchCmd handles the bench command.
func benchCmd(args []string) int {
	fs := flag.NewFlagSet("bench", flag.ContinueOnError)
	fs.SetOutput(stderr)

	ops := fs.Int("ops", 10000, "Preloaded keys and operations per workload")
	seed := fs.Int64("seed", 1, "Random seed")
	dir := fs.String("dir", "", "Working directory")
	asCSV := fs.Bool("csv", false, "Write CSV instead of a text report")
	configFile := fs.String("config", "", "Path to configuration file")
	help := fs.Bool("h", false, "Show help message")
	helpLong := fs.Bool("help", false, "Show help message")

	if err := fs.Parse(args); err != nil {
		return 1
	}
	if *help || *helpLong {
		printBenchUsage(stdout)
		return 0
	}
	if *ops <= 0 {
		fmt.Fprintln(stderr, "Error: -ops must be positive")
		return 1
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(stderr, "Invalid configuration: %v\n", err)
		return 1
	}
	logger := newLogger(cfg)

	workDir := *dir
	if workDir == "" {
		workDir, err = os.MkdirTemp("", "obaidx-bench-*")
		if err != nil {
			fmt.Fprintf(stderr, "Failed to create working directory: %v\n", err)
			return 1
		}
		defer os.RemoveAll(workDir)
	}

	treeOpts, err := config.TreeOptions(cfg, btree.Options[int64, []byte]{}, logger)
	if err != nil {
		fmt.Fprintf(stderr, "Invalid configuration: %v\n", err)
		return 1
	}

	report, err := bench.RunSuite(bench.Config{
		Dir:    workDir,
		Ops:    *ops,
		Seed:   *seed,
		Tree:   treeOpts,
		Logger: logger,
	})
	if err != nil {
		fmt.Fprintf(stderr, "Benchmark failed: %v\n", err)
		return 1
	}

	if *asCSV {
		err = report.WriteCSV(stdout)
	} else {
		err = report.GenerateTextReport(stdout)
	}
	if err != nil {
		fmt.Fprintf(stderr, "Failed to write report: %v\n", err)
		return 1
	}
	return 0
}

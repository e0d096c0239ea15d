package main

import (
	"fmt"
	"io"
)

// printUsage prints the main usage information to the given writer.
func printUsage(w io.Writer) {
	fmt.Fprint(w, `obaidx - Disk-backed B+ tree index engine

Usage:
  obaidx <command> [options]

Commands:
  stats       Show file layout and tree shape
  check       Verify tree structure
  dump        Print index entries
  index       Manage document indexes in a data directory
  bench       Compare the B+ tree with Pebble
  config      Configuration management
  version     Show version information

Use "obaidx <command> -h" for more information about a command.
`)
}

// printStatsUsage prints the stats command usage.
func printStatsUsage(w io.Writer) {
	fmt.Fprint(w, `Show file layout and tree shape

Usage:
  obaidx stats <file> [options]

Options:
  -config string
        Path to configuration file
  -h, -help
        Show this help message
`)
}

// printCheckUsage prints the check command usage.
func printCheckUsage(w io.Writer) {
	fmt.Fprint(w, `Verify tree structure

Usage:
  obaidx check <file> [options]

Exits with status 1 when the tree is corrupted.

Options:
  -config string
        Path to configuration file
  -h, -help
        Show this help message
`)
}

// printDumpUsage prints the dump command usage.
func printDumpUsage(w io.Writer) {
	fmt.Fprint(w, `Print index entries

Usage:
  obaidx dump <file> [options]

Options:
  -desc
        Print entries in descending key order
  -limit int
        Stop after this many entries (0 prints all)
  -config string
        Path to configuration file
  -h, -help
        Show this help message
`)
}

// printIndexUsage prints the index command usage.
func printIndexUsage(w io.Writer) {
	fmt.Fprint(w, `Manage document indexes

Usage:
  obaidx index <subcommand> [options]

Subcommands:
  list                          List indexes
  create <name> [-type t]       Create an index (unique, duplicate, substring)
  drop <name>                   Drop an index
  add -id n field=value...      Index a document
  remove -id n field=value...   Remove a document
  lookup <name> <value>         Documents whose field equals value
  range <name> <lo> <hi>        Documents whose field lies in [lo, hi]
  search <name> <pattern>       Documents matching a '*' pattern

Common options:
  -data-dir string
        Data directory (overrides config)
  -config string
        Path to configuration file
`)
}

// printBenchUsage prints the bench command usage.
func printBenchUsage(w io.Writer) {
	fmt.Fprint(w, `Compare the B+ tree with Pebble

Usage:
  obaidx bench [options]

Options:
  -ops int
        Preloaded keys and operations per workload (default 10000)
  -seed int
        Random seed (default 1)
  -dir string
        Working directory (default: a temporary directory, removed afterwards)
  -csv
        Write CSV instead of a text report
  -config string
        Path to configuration file
  -h, -help
        Show this help message
`)
}

// printConfigUsage prints the config command usage.
func printConfigUsage(w io.Writer) {
	fmt.Fprint(w, `Configuration management

Usage:
  obaidx config <subcommand> [options]

Subcommands:
  validate    Validate configuration file
  init        Generate default configuration
  show        Show effective configuration

Environment Variables:
  OBAIDX_DATA_DIR     Override data directory path
  OBAIDX_LOG_LEVEL    Override log level
`)
}

// printVersionUsage prints the version command usage.
func printVersionUsage(w io.Writer) {
	fmt.Fprint(w, `Show version information

Usage:
  obaidx version [options]

Options:
  -short
        Show only version number
  -json
        Show build and file format details as JSON
  -h, -help
        Show this help message
`)
}

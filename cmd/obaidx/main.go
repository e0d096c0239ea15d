// Package main provides the obaidx operator CLI for B+ tree index files.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/KilimcininKorOglu/obaidx/internal/config"
	"github.com/KilimcininKorOglu/obaidx/internal/logging"
)

// Command output. Tests swap these for buffers.
var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

func main() {
	exitCode := run(os.Args)
	os.Exit(exitCode)
}

// run executes the CLI and returns an exit code.
// This is separated from main() to facilitate testing.
func run(args []string) int {
	if len(args) < 2 {
		printUsage(stdout)
		return 1
	}

	switch args[1] {
	case "stats":
		return statsCmd(args[2:])
	case "check":
		return checkCmd(args[2:])
	case "dump":
		return dumpCmd(args[2:])
	case "index":
		return indexCmd(args[2:])
	case "bench":
		return benchCmd(args[2:])
	case "config":
		return configCmd(args[2:])
	case "version":
		return versionCmd(args[2:])
	case "help", "-h", "--help":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", args[1])
		fmt.Fprintln(stderr, "Run 'obaidx help' for usage.")
		return 1
	}
}

// loadConfig loads path, or the defaults when path is empty, and applies
// environment overrides.
func loadConfig(path string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if path != "" {
		var err error
		cfg, err = config.LoadConfig(path)
		if err != nil {
			return nil, err
		}
	}
	config.ApplyEnvOverrides(cfg)

	if errs := config.ValidateConfig(cfg); len(errs) > 0 {
		return nil, errs[0]
	}
	return cfg, nil
}

// newLogger builds the command logger, tagged with a fresh session id.
func newLogger(cfg *config.Config) logging.Logger {
	return logging.New(cfg.LoggingConfig()).WithSession(logging.NewSessionID())
}

// splitFileArg lets a leading positional argument precede the flags, as
// in "dump idx.db -limit 5".
func splitFileArg(args []string) (string, []string) {
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		return args[0], args[1:]
	}
	return "", args
}

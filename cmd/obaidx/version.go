package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/KilimcininKorOglu/obaidx/internal/storage"
	"github.com/KilimcininKorOglu/obaidx/internal/storage/btree"
	"github.com/KilimcininKorOglu/obaidx/internal/storage/codec"
)

// Set at build time with -ldflags "-X main.version=... -X main.commit=...".
var (
	version   = "0.3.0"
	commit    = ""
	buildDate = ""
)

// buildInfo describes the binary and the index files it reads and writes.
type buildInfo struct {
	Version       string   `json:"version"`
	Commit        string   `json:"commit"`
	BuildDate     string   `json:"buildDate"`
	GoVersion     string   `json:"goVersion"`
	Platform      string   `json:"platform"`
	FileFormat    uint32   `json:"fileFormat"`
	Magic         string   `json:"magic"`
	DefaultOrder  int      `json:"defaultOrder"`
	DefaultBlock  int      `json:"defaultBlockSize"`
	Codecs        []string `json:"codecs"`
	PebbleVersion string   `json:"pebbleVersion,omitempty"`
}

// currentBuildInfo fills in what ldflags left empty from the module build
// information.
func currentBuildInfo() buildInfo {
	info := buildInfo{
		Version:      version,
		Commit:       commit,
		BuildDate:    buildDate,
		GoVersion:    runtime.Version(),
		Platform:     runtime.GOOS + "/" + runtime.GOARCH,
		FileFormat:   storage.CurrentVersion,
		Magic:        string(storage.Magic[:]),
		DefaultOrder: btree.DefaultOrder,
		DefaultBlock: storage.DefaultBlockSize,
		Codecs:       codec.Names(),
	}

	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			switch {
			case s.Key == "vcs.revision" && info.Commit == "":
				info.Commit = s.Value
			case s.Key == "vcs.time" && info.BuildDate == "":
				info.BuildDate = s.Value
			}
		}
		for _, dep := range bi.Deps {
			if dep.Path == "github.com/cockroachdb/pebble" {
				info.PebbleVersion = dep.Version
			}
		}
	}

	if info.Commit == "" {
		info.Commit = "unknown"
	}
	if info.BuildDate == "" {
		info.BuildDate = "unknown"
	}
	return info
}

// versionCmd handles the version command.
func versionCmd(args []string) int {
	fs := flag.NewFlagSet("version", flag.ContinueOnError)
	fs.SetOutput(stderr)

	short := fs.Bool("short", false, "Show only version number")
	asJSON := fs.Bool("json", false, "Show version information as JSON")
	help := fs.Bool("h", false, "Show help message")
	helpLong := fs.Bool("help", false, "Show help message")

	if err := fs.Parse(args); err != nil {
		return 1
	}

	if *help || *helpLong {
		printVersionUsage(stdout)
		return 0
	}

	if *short {
		fmt.Fprintln(stdout, version)
		return 0
	}

	info := currentBuildInfo()
	if *asJSON {
		data, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			fmt.Fprintf(stderr, "Failed to marshal version: %v\n", err)
			return 1
		}
		fmt.Fprintln(stdout, string(data))
		return 0
	}

	fmt.Fprintf(stdout, "obaidx version %s\n", info.Version)
	fmt.Fprintf(stdout, "  Commit:       %s\n", info.Commit)
	fmt.Fprintf(stdout, "  Built:        %s\n", info.BuildDate)
	fmt.Fprintf(stdout, "  Go version:   %s (%s)\n", info.GoVersion, info.Platform)
	fmt.Fprintf(stdout, "  File format:  %s v%d\n", info.Magic, info.FileFormat)
	fmt.Fprintf(stdout, "  Defaults:     order %d, %d-byte blocks\n", info.DefaultOrder, info.DefaultBlock)
	fmt.Fprintf(stdout, "  Codecs:       %s\n", strings.Join(info.Codecs, ", "))
	if info.PebbleVersion != "" {
		fmt.Fprintf(stdout, "  Pebble:       %s\n", info.PebbleVersion)
	}
	return 0
}

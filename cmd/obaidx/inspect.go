package main

import (
	"flag"
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/KilimcininKorOglu/obaidx/internal/logging"
	"github.com/KilimcininKorOglu/obaidx/internal/storage"
	"github.com/KilimcininKorOglu/obaidx/internal/storage/btree"
	"github.com/KilimcininKorOglu/obaidx/internal/storage/codec"
)

// rawFile is an index file opened without knowing its types.
type rawFile struct {
	tree   *btree.Tree[[]byte, []byte]
	keys   codec.Raw
	values codec.Raw
	logger logging.Logger
}

// openRawFile opens path read-only. The block layout is taken from the
// file header.
func openRawFile(path, configFile string) (*rawFile, error) {
	cfg, err := loadConfig(configFile)
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg)

	tree, keys, values, err := btree.OpenRaw(path, btree.Options[[]byte, []byte]{
		CacheSize: cfg.Index.CacheSize,
		ReadOnly:  true,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}
	return &rawFile{tree: tree, keys: keys, values: values, logger: logger}, nil
}

// parseFileCmd parses the flags shared by stats, check and dump.
func parseFileCmd(fs *flag.FlagSet, args []string, usage func()) (file string, configFile *string, code int, ok bool) {
	configFile = fs.String("config", "", "Path to configuration file")
	help := fs.Bool("h", false, "Show help message")
	helpLong := fs.Bool("help", false, "Show help message")

	file, rest := splitFileArg(args)
	if err := fs.Parse(rest); err != nil {
		return "", nil, 1, false
	}
	if *help || *helpLong {
		usage()
		return "", nil, 0, false
	}
	if file == "" {
		file = fs.Arg(0)
	}
	if file == "" {
		fmt.Fprintln(stderr, "Error: index file is required")
		return "", nil, 1, false
	}
	return file, configFile, 0, true
}

// statsCmd handles the stats command.
func statsCmd(args []string) int {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	fs.SetOutput(stderr)

	file, configFile, code, ok := parseFileCmd(fs, args, func() { printStatsUsage(stdout) })
	if !ok {
		return code
	}

	f, err := openRawFile(file, *configFile)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to open %s: %v\n", file, err)
		return 1
	}
	defer f.tree.Close()

	recStats, err := f.tree.Records().Stats()
	if err != nil {
		fmt.Fprintf(stderr, "Failed to read block usage: %v\n", err)
		return 1
	}
	treeStats, err := f.tree.Stats()
	if err != nil {
		fmt.Fprintf(stderr, "Failed to walk tree: %v\n", err)
		return 1
	}
	meta := f.tree.Meta()

	fmt.Fprintf(stdout, "File:          %s\n", file)
	fmt.Fprintf(stdout, "Size:          %s\n", humanize.IBytes(uint64(recStats.Size)))
	fmt.Fprintf(stdout, "Block size:    %s\n", humanize.IBytes(uint64(recStats.BlockSize)))
	fmt.Fprintf(stdout, "Blocks:        %s (%s free)\n", humanize.Comma(int64(recStats.Blocks)), humanize.Comma(int64(recStats.FreeBlocks)))
	fmt.Fprintln(stdout)
	fmt.Fprintf(stdout, "Key codec:     %s\n", meta.KeyCodec)
	fmt.Fprintf(stdout, "Value codec:   %s\n", meta.ValueCodec)
	fmt.Fprintf(stdout, "Order:         %d\n", meta.Order)
	fmt.Fprintf(stdout, "Duplicates:    %t\n", meta.Duplicates)
	fmt.Fprintln(stdout)
	fmt.Fprintf(stdout, "Height:        %d\n", treeStats.Height)
	fmt.Fprintf(stdout, "Nodes:         %s (%s internal, %s leaves, %s empty)\n",
		humanize.Comma(int64(treeStats.Nodes)),
		humanize.Comma(int64(treeStats.InternalNodes)),
		humanize.Comma(int64(treeStats.Leaves)),
		humanize.Comma(int64(treeStats.EmptyLeaves)))
	fmt.Fprintf(stdout, "Entries:       %s\n", humanize.Comma(int64(treeStats.Entries)))

	return 0
}

// checkCmd handles the check command.
func checkCmd(args []string) int {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.SetOutput(stderr)

	file, configFile, code, ok := parseFileCmd(fs, args, func() { printCheckUsage(stdout) })
	if !ok {
		return code
	}

	f, err := openRawFile(file, *configFile)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to open %s: %v\n", file, err)
		return 1
	}
	defer f.tree.Close()

	if err := f.tree.Verify(); err != nil {
		if storage.IsCorrupted(err) {
			f.logger.Error("index is corrupted", "file", file, "error", err)
		}
		fmt.Fprintf(stderr, "Corrupted: %v\n", err)
		return 1
	}

	count, err := f.tree.Count()
	if err != nil {
		fmt.Fprintf(stderr, "Corrupted: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "OK: %s entries\n", humanize.Comma(int64(count)))
	return 0
}

// dumpCmd handles the dump command.
func dumpCmd(args []string) int {
	fs := flag.NewFlagSet("dump", flag.ContinueOnError)
	fs.SetOutput(stderr)

	desc := fs.Bool("desc", false, "Descending key order")
	limit := fs.Int("limit", 0, "Maximum number of entries")

	file, configFile, code, ok := parseFileCmd(fs, args, func() { printDumpUsage(stdout) })
	if !ok {
		return code
	}
	if *limit < 0 {
		fmt.Fprintln(stderr, "Error: -limit must not be negative")
		return 1
	}

	f, err := openRawFile(file, *configFile)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to open %s: %v\n", file, err)
		return 1
	}
	defer f.tree.Close()

	it := f.tree.All()
	if *desc {
		it = f.tree.AllDescending()
	}
	defer it.Close()

	n := 0
	for *limit == 0 || n < *limit {
		e, ok := it.Next()
		if !ok {
			break
		}
		fmt.Fprintf(stdout, "%s\t%s\n", f.keys.Format(e.Key), f.values.Format(e.Value))
		n++
	}
	if err := it.Err(); err != nil {
		fmt.Fprintf(stderr, "Dump failed after %d entries: %v\n", n, err)
		return 1
	}
	return 0
}

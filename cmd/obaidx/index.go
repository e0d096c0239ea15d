package main

import (
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/KilimcininKorOglu/obaidx/internal/config"
	"github.com/KilimcininKorOglu/obaidx/internal/storage/btree"
	"github.com/KilimcininKorOglu/obaidx/internal/storage/index"
)

// indexCmd handles the index command.
func indexCmd(args []string) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printIndexUsage(stdout)
		return 0
	}

	switch args[0] {
	case "list":
		return withManager("index list", args[1:], 0, indexList)
	case "create":
		return indexCreateCmd(args[1:])
	case "drop":
		return withManager("index drop", args[1:], 1, func(m *index.Manager, pos []string) int {
			if err := m.DropIndex(pos[0]); err != nil {
				fmt.Fprintf(stderr, "Failed to drop index: %v\n", err)
				return 1
			}
			fmt.Fprintf(stdout, "Dropped index %s\n", pos[0])
			return 0
		})
	case "add", "remove":
		return indexDocumentCmd(args[0], args[1:])
	case "lookup":
		return withManager("index lookup", args[1:], 2, func(m *index.Manager, pos []string) int {
			return printIDs(m.Lookup(pos[0], pos[1]))
		})
	case "range":
		return withManager("index range", args[1:], 3, func(m *index.Manager, pos []string) int {
			return printIDs(m.Range(pos[0], pos[1], pos[2]))
		})
	case "search":
		return withManager("index search", args[1:], 2, func(m *index.Manager, pos []string) int {
			return printIDs(m.Search(pos[0], pos[1]))
		})
	default:
		fmt.Fprintf(stderr, "Unknown index subcommand: %s\n", args[0])
		fmt.Fprintln(stderr, "Run 'obaidx index help' for usage.")
		return 1
	}
}

// managerFlags registers the options every index subcommand accepts.
type managerFlags struct {
	dataDir    *string
	configFile *string
}

func addManagerFlags(fs *flag.FlagSet) managerFlags {
	return managerFlags{
		dataDir:    fs.String("data-dir", "", "Data directory (overrides config)"),
		configFile: fs.String("config", "", "Path to configuration file"),
	}
}

// openManager opens the index manager described by the flags.
func (f managerFlags) openManager() (*index.Manager, error) {
	cfg, err := loadConfig(*f.configFile)
	if err != nil {
		return nil, err
	}
	if *f.dataDir != "" {
		cfg.Storage.DataDir = *f.dataDir
	}
	logger := newLogger(cfg)

	treeOpts, err := config.TreeOptions(cfg, btree.Options[string, uint64]{}, logger)
	if err != nil {
		return nil, err
	}
	return index.Open(cfg.Storage.DataDir, index.Options{Tree: treeOpts, Logger: logger})
}

// parseInterleaved parses flags that may appear before, between or after
// positional arguments.
func parseInterleaved(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		args = fs.Args()
		if len(args) == 0 {
			return positional, nil
		}
		positional = append(positional, args[0])
		args = args[1:]
	}
}

// withManager parses args, requires exactly want positional arguments and
// runs fn against an open manager.
func withManager(name string, args []string, want int, fn func(*index.Manager, []string) int) int {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	flags := addManagerFlags(fs)

	pos, err := parseInterleaved(fs, args)
	if err != nil {
		return 1
	}
	if len(pos) != want {
		fmt.Fprintf(stderr, "Error: %s takes %d argument(s), got %d\n", name, want, len(pos))
		return 1
	}

	m, err := flags.openManager()
	if err != nil {
		fmt.Fprintf(stderr, "Failed to open indexes: %v\n", err)
		return 1
	}
	defer m.Close()

	return fn(m, pos)
}

func indexList(m *index.Manager, _ []string) int {
	for _, name := range m.Indexes() {
		idx, _ := m.GetIndex(name)
		count, err := m.Count(name)
		if err != nil {
			fmt.Fprintf(stderr, "Failed to count %s: %v\n", name, err)
			return 1
		}
		fmt.Fprintf(stdout, "%-20s %-10s %d\n", name, idx.Type, count)
	}
	return 0
}

func indexCreateCmd(args []string) int {
	fs := flag.NewFlagSet("index create", flag.ContinueOnError)
	fs.SetOutput(stderr)
	flags := addManagerFlags(fs)
	typeName := fs.String("type", "unique", "Index type: unique, duplicate, substring")

	pos, err := parseInterleaved(fs, args)
	if err != nil {
		return 1
	}
	if len(pos) != 1 {
		fmt.Fprintln(stderr, "Error: index create takes exactly one index name")
		return 1
	}
	typ, ok := index.ParseIndexType(*typeName)
	if !ok {
		fmt.Fprintf(stderr, "Error: unknown index type %q\n", *typeName)
		return 1
	}

	m, err := flags.openManager()
	if err != nil {
		fmt.Fprintf(stderr, "Failed to open indexes: %v\n", err)
		return 1
	}
	defer m.Close()

	if err := m.CreateIndex(pos[0], typ); err != nil {
		fmt.Fprintf(stderr, "Failed to create index: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "Created %s index %s\n", typ, pos[0])
	return 0
}

func indexDocumentCmd(action string, args []string) int {
	fs := flag.NewFlagSet("index "+action, flag.ContinueOnError)
	fs.SetOutput(stderr)
	flags := addManagerFlags(fs)
	id := fs.Uint64("id", 0, "Document id")

	pos, err := parseInterleaved(fs, args)
	if err != nil {
		return 1
	}
	if *id == 0 {
		fmt.Fprintln(stderr, "Error: -id is required")
		return 1
	}
	doc, err := parseDocument(*id, pos)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	m, err := flags.openManager()
	if err != nil {
		fmt.Fprintf(stderr, "Failed to open indexes: %v\n", err)
		return 1
	}
	defer m.Close()

	if action == "add" {
		err = m.IndexDocument(doc)
	} else {
		err = m.RemoveDocument(doc)
	}
	if err != nil {
		fmt.Fprintf(stderr, "Failed to %s document %d: %v\n", action, *id, err)
		return 1
	}
	return 0
}

// parseDocument builds a document from field=value pairs. Repeating a
// field adds values.
func parseDocument(id uint64, pairs []string) (*index.Document, error) {
	if len(pairs) == 0 {
		return nil, errors.New("at least one field=value pair is required")
	}
	doc := index.NewDocument(id)
	for _, pair := range pairs {
		field, value, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(field) == "" {
			return nil, errors.Newf("invalid field %q, expected field=value", pair)
		}
		doc.Set(field, append(doc.Get(field), value)...)
	}
	return doc, nil
}

func printIDs(ids []uint64, err error) int {
	if err != nil {
		fmt.Fprintf(stderr, "Query failed: %v\n", err)
		return 1
	}
	for _, id := range ids {
		fmt.Fprintln(stdout, strconv.FormatUint(id, 10))
	}
	return 0
}

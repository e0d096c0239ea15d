package bench

import (
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"

	"github.com/KilimcininKorOglu/obaidx/internal/logging"
	"github.com/KilimcininKorOglu/obaidx/internal/storage/btree"
)

// Config configures RunSuite.
type Config struct {
	// Dir receives one subdirectory per engine. It must be empty or absent.
	Dir string
	// Ops is both the preloaded key count and the operations per workload.
	Ops int
	// Seed drives key selection.
	Seed int64
	// Tree supplies layout, order and cache for the B+ tree engine.
	Tree btree.Options[int64, []byte]
	// Workloads to run. Default: Workloads().
	Workloads []Workload
	Logger    logging.Logger
}

// engineOpener opens an engine rooted at dir.
type engineOpener func(dir string) (Engine, error)

// RunSuite preloads each engine with Ops keys and runs every workload
// against it with the same seed.
func RunSuite(cfg Config) (*Report, error) {
	if cfg.Ops <= 0 {
		return nil, errors.Newf("operation count must be positive, got %d", cfg.Ops)
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNop()
	}
	if len(cfg.Workloads) == 0 {
		cfg.Workloads = Workloads()
	}

	report := NewReport()
	logger := cfg.Logger.WithSession(report.RunID)

	openers := []engineOpener{
		func(dir string) (Engine, error) {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, errors.Wrapf(err, "failed to create %s", dir)
			}
			opts := cfg.Tree
			if opts.Logger == nil {
				opts.Logger = logger
			}
			return OpenTreeEngine(filepath.Join(dir, "bench.idx"), opts)
		},
		func(dir string) (Engine, error) {
			return OpenPebbleEngine(dir)
		},
	}
	names := []string{"bptree", "pebble"}

	for i, open := range openers {
		dir := filepath.Join(cfg.Dir, names[i])
		engine, err := open(dir)
		if err != nil {
			return report, err
		}

		results, err := runEngine(engine, cfg, logger)
		closeErr := engine.Close()
		if err != nil {
			return report, errors.CombineErrors(err, closeErr)
		}
		if closeErr != nil {
			return report, closeErr
		}
		report.Add(results...)
	}

	return report, nil
}

func runEngine(engine Engine, cfg Config, logger logging.Logger) ([]Result, error) {
	elapsed, err := Load(engine, cfg.Ops)
	if err != nil {
		return nil, err
	}
	logger.Info("loaded engine", "engine", engine.Name(), "keys", cfg.Ops, "elapsed", elapsed.String())

	results := make([]Result, 0, len(cfg.Workloads))
	for _, w := range cfg.Workloads {
		res, err := Run(engine, w, cfg.Ops, cfg.Seed)
		if err != nil {
			return results, err
		}
		logger.Info("workload finished",
			"engine", res.Engine,
			"workload", string(res.Workload),
			"ops", res.Ops,
			"ns_per_op", res.NsPerOp())
		results = append(results, res)
	}
	return results, nil
}

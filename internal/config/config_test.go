package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"

	"github.com/KilimcininKorOglu/obaidx/internal/logging"
	"github.com/KilimcininKorOglu/obaidx/internal/storage"
	"github.com/KilimcininKorOglu/obaidx/internal/storage/btree"
	"github.com/KilimcininKorOglu/obaidx/internal/storage/codec"
	"github.com/KilimcininKorOglu/obaidx/internal/storage/record"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Storage.DataDir != "/var/lib/obaidx" {
		t.Errorf("expected dataDir /var/lib/obaidx, got %s", cfg.Storage.DataDir)
	}
	if cfg.Storage.BlockSize != "4KiB" {
		t.Errorf("expected blockSize 4KiB, got %s", cfg.Storage.BlockSize)
	}
	if cfg.Index.Order != btree.DefaultOrder {
		t.Errorf("expected order %d, got %d", btree.DefaultOrder, cfg.Index.Order)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected level info, got %s", cfg.Logging.Level)
	}

	if errs := ValidateConfig(cfg); len(errs) != 0 {
		t.Errorf("default config is invalid: %v", errs)
	}
}

func TestParseConfig(t *testing.T) {
	yaml := `
storage:
  dataDir: /data/idx
  blockSize: 8KiB
  blockHeaderSize: 64
  maxRecordSize: 1 MiB
  allocation: append
  syncOnWrite: true
index:
  order: 32
  cacheSize: 256
  allowDuplicates: true
logging:
  level: debug
  format: json
  output: stdout
`
	cfg, err := ParseConfig([]byte(yaml))
	if err != nil {
		t.Fatalf("failed to parse: %v", err)
	}

	if cfg.Storage.DataDir != "/data/idx" {
		t.Errorf("expected dataDir /data/idx, got %s", cfg.Storage.DataDir)
	}
	if cfg.Storage.BlockHeaderSize != 64 {
		t.Errorf("expected blockHeaderSize 64, got %d", cfg.Storage.BlockHeaderSize)
	}
	if !cfg.Storage.SyncOnWrite {
		t.Error("expected syncOnWrite true")
	}
	if cfg.Index.Order != 32 || cfg.Index.CacheSize != 256 || !cfg.Index.AllowDuplicates {
		t.Errorf("unexpected index config %+v", cfg.Index)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("expected format json, got %s", cfg.Logging.Format)
	}

	opts, err := cfg.StorageOptions()
	if err != nil {
		t.Fatalf("failed to convert storage options: %v", err)
	}
	if opts.BlockSize != 8192 || opts.BlockHeaderSize != 64 || !opts.SyncOnWrite {
		t.Errorf("unexpected storage options %+v", opts)
	}

	recOpts, err := cfg.RecordOptions(nil)
	if err != nil {
		t.Fatalf("failed to convert record options: %v", err)
	}
	if recOpts.Policy != record.PolicyAppend || recOpts.MaxRecordSize != 1<<20 {
		t.Errorf("unexpected record options %+v", recOpts)
	}
}

func TestParseConfigPartialKeepsDefaults(t *testing.T) {
	cfg, err := ParseConfig([]byte("index:\n  order: 16\n"))
	if err != nil {
		t.Fatalf("failed to parse: %v", err)
	}
	if cfg.Index.Order != 16 {
		t.Errorf("expected order 16, got %d", cfg.Index.Order)
	}
	if cfg.Index.CacheSize != btree.DefaultCacheSize {
		t.Errorf("expected default cacheSize, got %d", cfg.Index.CacheSize)
	}
	if cfg.Storage.DataDir != "/var/lib/obaidx" {
		t.Errorf("expected default dataDir, got %s", cfg.Storage.DataDir)
	}
}

func TestParseConfigEmpty(t *testing.T) {
	cfg, err := ParseConfig(nil)
	if err != nil {
		t.Fatalf("failed to parse empty config: %v", err)
	}
	if cfg.Index.Order != btree.DefaultOrder {
		t.Errorf("expected default order, got %d", cfg.Index.Order)
	}
}

func TestInvalidYAML(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown key", "storage:\n  pageSize: 4096\n"},
		{"wrong type", "index:\n  order: many\n"},
		{"bad syntax", "storage: [unclosed\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.yaml))
			if !errors.Is(err, ErrInvalidYAML) {
				t.Errorf("expected ErrInvalidYAML, got %v", err)
			}
		})
	}
}

func TestEnvironmentVariableSubstitution(t *testing.T) {
	t.Setenv("OBAIDX_TEST_DIR", "/srv/idx")
	os.Unsetenv("OBAIDX_TEST_UNSET")

	yaml := `
storage:
  dataDir: ${OBAIDX_TEST_DIR}
logging:
  output: ${OBAIDX_TEST_UNSET:-stdout}
`
	cfg, err := ParseConfig([]byte(yaml))
	if err != nil {
		t.Fatalf("failed to parse: %v", err)
	}
	if cfg.Storage.DataDir != "/srv/idx" {
		t.Errorf("expected dataDir /srv/idx, got %s", cfg.Storage.DataDir)
	}
	if cfg.Logging.Output != "stdout" {
		t.Errorf("expected output stdout, got %s", cfg.Logging.Output)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv(EnvDataDir, "/override")
	t.Setenv(EnvLogLevel, "DEBUG")

	cfg := DefaultConfig()
	ApplyEnvOverrides(cfg)

	if cfg.Storage.DataDir != "/override" {
		t.Errorf("expected dataDir /override, got %s", cfg.Storage.DataDir)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected level debug, got %s", cfg.Logging.Level)
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "obaidx.yaml")
	if err := os.WriteFile(path, []byte("index:\n  order: 8\n"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("failed to load: %v", err)
	}
	if cfg.Index.Order != 8 {
		t.Errorf("expected order 8, got %d", cfg.Index.Order)
	}

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, ErrFileNotFound) {
		t.Errorf("expected ErrFileNotFound, got %v", err)
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Index.Order = 12
	cfg.Storage.Allocation = "append"

	data, err := Marshal(cfg)
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}
	if !strings.HasPrefix(string(data), "# obaidx configuration") {
		t.Errorf("missing header comment: %s", data)
	}
	if !strings.Contains(string(data), "blockSize: 4KiB") {
		t.Errorf("expected camelCase keys, got:\n%s", data)
	}

	parsed, err := ParseConfig(data)
	if err != nil {
		t.Fatalf("failed to parse marshaled config: %v", err)
	}
	if *parsed != *cfg {
		t.Errorf("round trip = %+v, want %+v", parsed, cfg)
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		field  string
	}{
		{"missing data dir", func(c *Config) { c.Storage.DataDir = "" }, "storage.dataDir"},
		{"bad block size", func(c *Config) { c.Storage.BlockSize = "lots" }, "storage.blockSize"},
		{"small block size", func(c *Config) { c.Storage.BlockSize = "64" }, "storage.blockSize"},
		{"small header", func(c *Config) { c.Storage.BlockHeaderSize = 16 }, "storage.blockHeaderSize"},
		{"header too large", func(c *Config) { c.Storage.BlockSize = "128"; c.Storage.BlockHeaderSize = 128 }, "storage.blockHeaderSize"},
		{"bad record size", func(c *Config) { c.Storage.MaxRecordSize = "huge" }, "storage.maxRecordSize"},
		{"bad allocation", func(c *Config) { c.Storage.Allocation = "random" }, "storage.allocation"},
		{"small order", func(c *Config) { c.Index.Order = 2 }, "index.order"},
		{"negative cache", func(c *Config) { c.Index.CacheSize = -1 }, "index.cacheSize"},
		{"bad level", func(c *Config) { c.Logging.Level = "verbose" }, "logging.level"},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"relative output", func(c *Config) { c.Logging.Output = "logs/obaidx.log" }, "logging.output"},
		{"missing output dir", func(c *Config) { c.Logging.Output = "/nonexistent/dir/obaidx.log" }, "logging.output"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)

			errs := ValidateConfig(cfg)
			if len(errs) == 0 {
				t.Fatal("expected validation errors")
			}
			found := false
			for _, err := range errs {
				var ve ValidationError
				if errors.As(err, &ve) && ve.Field == tt.field {
					found = true
				}
			}
			if !found {
				t.Errorf("expected error on %s, got %v", tt.field, errs)
			}
		})
	}
}

func TestStorageOptionsInvalid(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storage.BlockSize = "nonsense"
	if _, err := cfg.StorageOptions(); !errors.Is(err, storage.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}

	cfg = DefaultConfig()
	cfg.Storage.Allocation = "random"
	if _, err := cfg.RecordOptions(nil); !errors.Is(err, storage.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestTreeOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Index.Order = 7
	cfg.Index.CacheSize = 99

	opts, err := TreeOptions(cfg, btree.Options[string, uint64]{
		Keys:    codec.String,
		Values:  codec.Uint64,
		Compare: codec.Compare[string],
	}, logging.NewNop())
	if err != nil {
		t.Fatalf("failed to build tree options: %v", err)
	}
	if opts.Order != 7 || opts.CacheSize != 99 {
		t.Errorf("unexpected order/cache %d/%d", opts.Order, opts.CacheSize)
	}
	if opts.Storage.BlockSize != 4096 || opts.Records.MaxRecordSize != 4<<20 {
		t.Errorf("unexpected layout %+v / %+v", opts.Storage, opts.Records)
	}
	if opts.Keys == nil || opts.Logger == nil {
		t.Error("caller fields were dropped")
	}

	tree, err := btree.New(storage.NewMemory(), opts)
	if err != nil {
		t.Fatalf("failed to create tree from config: %v", err)
	}
	defer tree.Close()
	if tree.Order() != 7 {
		t.Errorf("expected tree order 7, got %d", tree.Order())
	}
}

func TestLoggingConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logging.Level = "WARN"
	lc := cfg.LoggingConfig()
	if lc.Level != "warn" || lc.Output != "stderr" {
		t.Errorf("unexpected logging config %+v", lc)
	}
}

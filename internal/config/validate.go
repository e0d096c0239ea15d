package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"

	"github.com/KilimcininKorOglu/obaidx/internal/logging"
	"github.com/KilimcininKorOglu/obaidx/internal/storage"
	"github.com/KilimcininKorOglu/obaidx/internal/storage/btree"
	"github.com/KilimcininKorOglu/obaidx/internal/storage/record"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateConfig validates the configuration and returns a list of validation errors.
// An empty slice indicates the configuration is valid.
func ValidateConfig(config *Config) []error {
	var errs []error

	errs = append(errs, validateStorageConfig(&config.Storage)...)
	errs = append(errs, validateIndexConfig(&config.Index)...)
	errs = append(errs, validateLogConfig(&config.Logging)...)

	return errs
}

// validateStorageConfig validates storage configuration.
func validateStorageConfig(config *StorageConfig) []error {
	var errs []error

	if config.DataDir == "" {
		errs = append(errs, ValidationError{
			Field:   "storage.dataDir",
			Message: "data directory is required",
		})
	}

	blockSize, err := parseSize(config.BlockSize)
	if err != nil {
		errs = append(errs, ValidationError{
			Field:   "storage.blockSize",
			Message: err.Error(),
		})
	} else if blockSize != 0 && blockSize < storage.MinBlockSize {
		errs = append(errs, ValidationError{
			Field:   "storage.blockSize",
			Message: fmt.Sprintf("must be at least %d bytes", storage.MinBlockSize),
		})
	}

	if config.BlockHeaderSize != 0 && config.BlockHeaderSize < storage.MinBlockHeaderSize {
		errs = append(errs, ValidationError{
			Field:   "storage.blockHeaderSize",
			Message: fmt.Sprintf("must be at least %d bytes", storage.MinBlockHeaderSize),
		})
	}
	if err == nil && blockSize != 0 && config.BlockHeaderSize >= blockSize {
		errs = append(errs, ValidationError{
			Field:   "storage.blockHeaderSize",
			Message: "must be smaller than the block size",
		})
	}

	if _, err := parseSize(config.MaxRecordSize); err != nil {
		errs = append(errs, ValidationError{
			Field:   "storage.maxRecordSize",
			Message: err.Error(),
		})
	}

	if _, ok := record.ParsePolicy(config.Allocation); !ok {
		errs = append(errs, ValidationError{
			Field:   "storage.allocation",
			Message: "must be reuse or append",
		})
	}

	return errs
}

// validateIndexConfig validates B+ tree configuration.
func validateIndexConfig(config *IndexConfig) []error {
	var errs []error

	if config.Order != 0 && config.Order < btree.MinOrder {
		errs = append(errs, ValidationError{
			Field:   "index.order",
			Message: fmt.Sprintf("must be at least %d", btree.MinOrder),
		})
	}
	if config.CacheSize < 0 {
		errs = append(errs, ValidationError{
			Field:   "index.cacheSize",
			Message: "must be non-negative",
		})
	}

	return errs
}

// validateLogConfig validates logging configuration.
func validateLogConfig(config *LogConfig) []error {
	var errs []error

	if config.Level != "" && !logging.ValidLevel(strings.ToLower(config.Level)) {
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: "must be debug, info, warn, or error",
		})
	}

	if config.Format != "" && !logging.ValidFormat(strings.ToLower(config.Format)) {
		errs = append(errs, ValidationError{
			Field:   "logging.format",
			Message: "must be text or json",
		})
	}

	if config.Output != "" && config.Output != "stdout" && config.Output != "stderr" {
		dir := filepath.Dir(config.Output)
		if !filepath.IsAbs(config.Output) {
			errs = append(errs, ValidationError{
				Field:   "logging.output",
				Message: "must be stdout, stderr, or an absolute file path",
			})
		} else if _, err := os.Stat(dir); os.IsNotExist(err) {
			errs = append(errs, ValidationError{
				Field:   "logging.output",
				Message: fmt.Sprintf("directory %s does not exist", dir),
			})
		}
	}

	return errs
}

// parseSize parses a byte size like "4KiB", "4 MB" or "4096". An empty
// string is zero.
func parseSize(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, errors.Newf("invalid size format: %s", s)
	}
	if n > math.MaxInt32 {
		return 0, errors.Newf("size %s is too large", s)
	}
	return int(n), nil
}

// StorageOptions converts the storage section to block store options.
func (c *Config) StorageOptions() (storage.Options, error) {
	blockSize, err := parseSize(c.Storage.BlockSize)
	if err != nil {
		return storage.Options{}, errors.Wrap(storage.ErrInvalidConfig, err.Error())
	}
	opts := storage.Options{
		BlockSize:       blockSize,
		BlockHeaderSize: c.Storage.BlockHeaderSize,
		SyncOnWrite:     c.Storage.SyncOnWrite,
	}
	return opts, opts.Validate()
}

// RecordOptions converts the storage section to record store options.
func (c *Config) RecordOptions(logger logging.Logger) (record.Options, error) {
	policy, ok := record.ParsePolicy(c.Storage.Allocation)
	if !ok {
		return record.Options{}, errors.Wrapf(storage.ErrInvalidConfig, "unknown allocation policy %q", c.Storage.Allocation)
	}
	maxSize, err := parseSize(c.Storage.MaxRecordSize)
	if err != nil {
		return record.Options{}, errors.Wrap(storage.ErrInvalidConfig, err.Error())
	}
	return record.Options{Policy: policy, MaxRecordSize: maxSize, Logger: logger}, nil
}

// LoggingConfig converts the logging section for logging.New.
func (c *Config) LoggingConfig() logging.Config {
	return logging.Config{
		Level:  strings.ToLower(c.Logging.Level),
		Format: strings.ToLower(c.Logging.Format),
		Output: c.Logging.Output,
	}
}

// TreeOptions fills the layout, order and cache fields of opts from cfg.
// Serializers, comparers and the duplicate-key mode are left to the
// caller.
func TreeOptions[K, V any](cfg *Config, opts btree.Options[K, V], logger logging.Logger) (btree.Options[K, V], error) {
	storageOpts, err := cfg.StorageOptions()
	if err != nil {
		return opts, err
	}
	recordOpts, err := cfg.RecordOptions(logger)
	if err != nil {
		return opts, err
	}

	opts.Storage = storageOpts
	opts.Records = recordOpts
	opts.Order = cfg.Index.Order
	opts.CacheSize = cfg.Index.CacheSize
	opts.Logger = logger
	return opts, nil
}

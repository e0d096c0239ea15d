// Package config provides configuration parsing and management for obaidx.
//
// # Overview
//
// The config package loads, parses and validates engine configuration from
// YAML files and environment variables:
//
//   - YAML configuration files, strictly decoded
//   - ${VAR} and ${VAR:-default} substitution inside the file
//   - OBAIDX_DATA_DIR and OBAIDX_LOG_LEVEL overrides
//   - Default values for all settings
//
// # Configuration Structure
//
//	type Config struct {
//	    Storage StorageConfig // Block and record store layout
//	    Index   IndexConfig   // B+ tree order and cache
//	    Logging LogConfig     // Logging settings
//	}
//
// # Example
//
//	storage:
//	  dataDir: ${OBAIDX_HOME:-/var/lib/obaidx}
//	  blockSize: 4KiB
//	  blockHeaderSize: 48
//	  maxRecordSize: 4MiB
//	  allocation: reuse
//	index:
//	  order: 64
//	  cacheSize: 1024
//	logging:
//	  level: info
//	  format: json
//	  output: stderr
//
// Sizes accept any form understood by go-humanize ("4096", "4KiB", "4 kB").
//
// # Loading Configuration
//
//	cfg, err := config.LoadConfig("/etc/obaidx/config.yaml")
//	if err != nil {
//	    return err
//	}
//	config.ApplyEnvOverrides(cfg)
//	if errs := config.ValidateConfig(cfg); len(errs) > 0 {
//	    // report errs
//	}
//
//	opts, err := config.TreeOptions(cfg, btree.Options[string, uint64]{...}, logger)
package config

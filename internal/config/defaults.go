package config

import (
	"github.com/KilimcininKorOglu/obaidx/internal/storage"
	"github.com/KilimcininKorOglu/obaidx/internal/storage/btree"
	"github.com/KilimcininKorOglu/obaidx/internal/storage/record"
)

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			DataDir:         "/var/lib/obaidx",
			BlockSize:       "4KiB",
			BlockHeaderSize: storage.DefaultBlockHeaderSize,
			MaxRecordSize:   "4MiB",
			Allocation:      string(record.PolicyReuse),
			SyncOnWrite:     false,
		},
		Index: IndexConfig{
			Order:           btree.DefaultOrder,
			CacheSize:       btree.DefaultCacheSize,
			AllowDuplicates: false,
		},
		Logging: LogConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

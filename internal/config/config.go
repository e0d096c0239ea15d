// Package config provides configuration parsing and management for obaidx.
package config

// Config holds the complete engine configuration.
type Config struct {
	Storage StorageConfig `yaml:"storage" json:"storage"`
	Index   IndexConfig   `yaml:"index" json:"index"`
	Logging LogConfig     `yaml:"logging" json:"logging"`
}

// StorageConfig holds block and record store configuration.
type StorageConfig struct {
	// DataDir holds the index files and the index catalog.
	DataDir string `yaml:"dataDir" json:"dataDir"`
	// BlockSize is a byte size such as "4KiB" or "4096".
	BlockSize string `yaml:"blockSize" json:"blockSize"`
	// BlockHeaderSize is the number of header bytes per block.
	BlockHeaderSize int `yaml:"blockHeaderSize" json:"blockHeaderSize"`
	// MaxRecordSize caps a single record, such as "4MiB".
	MaxRecordSize string `yaml:"maxRecordSize" json:"maxRecordSize"`
	// Allocation is the block allocation policy: reuse or append.
	Allocation  string `yaml:"allocation" json:"allocation"`
	SyncOnWrite bool   `yaml:"syncOnWrite" json:"syncOnWrite"`
}

// IndexConfig holds B+ tree configuration.
type IndexConfig struct {
	Order           int  `yaml:"order" json:"order"`
	CacheSize       int  `yaml:"cacheSize" json:"cacheSize"`
	AllowDuplicates bool `yaml:"allowDuplicates" json:"allowDuplicates"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
	Output string `yaml:"output" json:"output"`
}

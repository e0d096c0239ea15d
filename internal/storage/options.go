package storage

// Block layout defaults and limits.
const (
	// DefaultBlockSize is the block size used for new index files.
	DefaultBlockSize = 4096

	// DefaultBlockHeaderSize is the header region size used for new files.
	DefaultBlockHeaderSize = 48

	// MinBlockSize is the smallest accepted block size.
	MinBlockSize = 128

	// MinBlockHeaderSize fits the six header slots.
	MinBlockHeaderSize = HeaderFieldCount * HeaderFieldSize

	// DiskSectorSize is the prefix Find reads eagerly.
	DiskSectorSize = 4096
)

// Options configures a BlockStore.
type Options struct {
	// BlockSize is the size of each block in bytes.
	// Zero selects DefaultBlockSize for new files and the stored size for
	// existing files.
	BlockSize int

	// BlockHeaderSize is the size of the per-block header region.
	// Zero selects DefaultBlockHeaderSize for new files and the stored size
	// for existing files.
	BlockHeaderSize int

	// SyncOnWrite forces an fsync after every header flush.
	SyncOnWrite bool
}

// DefaultOptions returns options with the default block layout.
func DefaultOptions() Options {
	return Options{
		BlockSize:       DefaultBlockSize,
		BlockHeaderSize: DefaultBlockHeaderSize,
	}
}

// Validate checks the explicit sizes. Zero values are left for Open to fill.
func (o Options) Validate() error {
	if o.BlockSize != 0 && o.BlockSize < MinBlockSize {
		return configf("block size %d is below the minimum of %d", o.BlockSize, MinBlockSize)
	}
	if o.BlockHeaderSize != 0 && o.BlockHeaderSize < MinBlockHeaderSize {
		return configf("block header size %d is below the minimum of %d", o.BlockHeaderSize, MinBlockHeaderSize)
	}
	blockSize := o.BlockSize
	if blockSize == 0 {
		blockSize = DefaultBlockSize
	}
	headerSize := o.BlockHeaderSize
	if headerSize == 0 {
		headerSize = DefaultBlockHeaderSize
	}
	if headerSize >= blockSize {
		return configf("block header size %d must be smaller than block size %d", headerSize, blockSize)
	}
	return nil
}

// WithBlockSize sets the block size.
func (o Options) WithBlockSize(size int) Options {
	o.BlockSize = size
	return o
}

// WithBlockHeaderSize sets the block header size.
func (o Options) WithBlockHeaderSize(size int) Options {
	o.BlockHeaderSize = size
	return o
}

// WithSyncOnWrite enables or disables sync on write.
func (o Options) WithSyncOnWrite(sync bool) Options {
	o.SyncOnWrite = sync
	return o
}

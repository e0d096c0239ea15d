package storage

import (
	"io"
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"
)

// BlockStore allocates and reads fixed-size blocks over a Medium.
// It owns the medium and closes it on Close.
type BlockStore struct {
	medium      Medium
	opts        Options
	blockSize   int
	headerSize  int
	contentSize int
	sectorSize  int

	// mu serializes medium growth.
	mu     sync.Mutex
	closed atomic.Bool
}

// Open creates a BlockStore over medium. An empty medium is initialized
// with a file header; an existing one must carry a valid header whose
// layout matches any sizes set explicitly in opts.
func Open(medium Medium, opts Options) (*BlockStore, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	size, err := medium.Size()
	if err != nil {
		return nil, err
	}

	s := &BlockStore{medium: medium, opts: opts}

	if size == 0 {
		s.blockSize = opts.BlockSize
		if s.blockSize == 0 {
			s.blockSize = DefaultBlockSize
		}
		s.headerSize = opts.BlockHeaderSize
		if s.headerSize == 0 {
			s.headerSize = DefaultBlockHeaderSize
		}
		if err := s.writeFileHeader(); err != nil {
			return nil, err
		}
	} else {
		hdr, err := readFileHeader(medium)
		if err != nil {
			return nil, err
		}
		if opts.BlockSize != 0 && uint32(opts.BlockSize) != hdr.BlockSize {
			return nil, configf("file uses block size %d, not %d", hdr.BlockSize, opts.BlockSize)
		}
		if opts.BlockHeaderSize != 0 && uint32(opts.BlockHeaderSize) != hdr.BlockHeaderSize {
			return nil, configf("file uses block header size %d, not %d", hdr.BlockHeaderSize, opts.BlockHeaderSize)
		}
		s.blockSize = int(hdr.BlockSize)
		s.headerSize = int(hdr.BlockHeaderSize)
	}

	s.contentSize = s.blockSize - s.headerSize
	s.sectorSize = DiskSectorSize
	if s.blockSize < DiskSectorSize {
		s.sectorSize = MinBlockSize
	}
	return s, nil
}

// readFileHeader reads and validates block 0.
func readFileHeader(medium Medium) (*FileHeader, error) {
	buf := make([]byte, FileHeaderSize)
	if _, err := medium.ReadAt(buf, 0); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, corruptf("medium too short for a file header")
		}
		return nil, errors.Wrap(err, "failed to read file header")
	}

	hdr := &FileHeader{}
	if err := hdr.Deserialize(buf); err != nil {
		return nil, err
	}
	if err := hdr.Validate(); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "invalid file header"), ErrCorrupted)
	}
	return hdr, nil
}

// writeFileHeader writes block 0 to an empty medium.
func (s *BlockStore) writeFileHeader() error {
	buf := make([]byte, s.blockSize)
	copy(buf, NewFileHeader(s.blockSize, s.headerSize).Serialize())

	if _, err := s.medium.WriteAt(buf, 0); err != nil {
		return errors.Wrap(err, "failed to write file header")
	}
	return s.medium.Sync()
}

// Find returns the block with the given id, or nil when no such block
// exists. Block 0 holds the file header and is never returned.
func (s *BlockStore) Find(id uint64) (*Block, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if id == 0 {
		return nil, nil
	}

	count, err := s.BlockCount()
	if err != nil {
		return nil, err
	}
	if id >= count {
		return nil, nil
	}

	prefixLen := s.sectorSize
	if prefixLen > s.blockSize {
		prefixLen = s.blockSize
	}
	prefix := make([]byte, prefixLen)
	n, err := s.medium.ReadAt(prefix, s.blockOffset(id))
	if err != nil && !(errors.Is(err, io.EOF) && n == prefixLen) {
		if errors.Is(err, io.EOF) {
			return nil, corruptf("block %d is truncated", id)
		}
		return nil, errors.Wrapf(err, "failed to read block %d", id)
	}

	b := &Block{store: s, id: id, prefix: prefix}
	b.decodeHeader()
	return b, nil
}

// CreateNew appends a zeroed block and returns it.
func (s *BlockStore) CreateNew() (*Block, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	size, err := s.medium.Size()
	if err != nil {
		return nil, err
	}
	if size%int64(s.blockSize) != 0 {
		return nil, corruptf("medium length %d is not a multiple of block size %d", size, s.blockSize)
	}

	id := uint64(size / int64(s.blockSize))
	if err := s.medium.Truncate(size + int64(s.blockSize)); err != nil {
		return nil, errors.Wrapf(err, "failed to grow medium for block %d", id)
	}

	prefixLen := s.sectorSize
	if prefixLen > s.blockSize {
		prefixLen = s.blockSize
	}
	return &Block{
		store:   s,
		id:      id,
		prefix:  make([]byte, prefixLen),
		content: make([]byte, s.contentSize),
	}, nil
}

// BlockCount returns the number of whole blocks on the medium, the header
// block included.
func (s *BlockStore) BlockCount() (uint64, error) {
	size, err := s.medium.Size()
	if err != nil {
		return 0, err
	}
	return uint64(size / int64(s.blockSize)), nil
}

// BlockSize returns the block size in bytes.
func (s *BlockStore) BlockSize() int {
	return s.blockSize
}

// HeaderSize returns the block header size in bytes.
func (s *BlockStore) HeaderSize() int {
	return s.headerSize
}

// ContentSize returns the usable content bytes per block.
func (s *BlockStore) ContentSize() int {
	return s.contentSize
}

// Size returns the medium length in bytes.
func (s *BlockStore) Size() (int64, error) {
	return s.medium.Size()
}

// Sync flushes the medium.
func (s *BlockStore) Sync() error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	return s.medium.Sync()
}

// Close syncs and closes the medium. Closing twice is a no-op.
func (s *BlockStore) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	syncErr := s.medium.Sync()
	closeErr := s.medium.Close()
	return errors.CombineErrors(syncErr, closeErr)
}

func (s *BlockStore) blockOffset(id uint64) int64 {
	return int64(id) * int64(s.blockSize)
}

func (s *BlockStore) checkOpen() error {
	if s.closed.Load() {
		return ErrClosed
	}
	return nil
}

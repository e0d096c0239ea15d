// Package record stores variable-length records as chains of blocks.
package record

import (
	"hash/crc32"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/KilimcininKorOglu/obaidx/internal/logging"
	"github.com/KilimcininKorOglu/obaidx/internal/storage"
)

// DefaultMaxRecordSize bounds a single record.
const DefaultMaxRecordSize = 4 << 20

// Options configures a Store.
type Options struct {
	// Policy selects how released blocks are reused. Default: PolicyReuse.
	Policy Policy

	// MaxRecordSize is the largest record accepted, in bytes.
	// Default: DefaultMaxRecordSize.
	MaxRecordSize int

	// Logger receives debug output. Default: no-op.
	Logger logging.Logger
}

// DefaultOptions returns the default record store options.
func DefaultOptions() Options {
	return Options{
		Policy:        PolicyReuse,
		MaxRecordSize: DefaultMaxRecordSize,
	}
}

// Stats describes block usage.
type Stats struct {
	Blocks     uint64
	FreeBlocks int
	BlockSize  int
	Size       int64
}

// Store is a record store over a BlockStore. The record id is the id of
// the record's first block. Store owns the block store.
type Store struct {
	blocks  *storage.BlockStore
	alloc   Allocator
	maxSize int
	logger  logging.Logger

	// mu serializes mutations so chains are never interleaved.
	mu sync.Mutex
}

// Open creates a Store. With PolicyReuse the free set is rebuilt from the
// deleted flags on disk.
func Open(blocks *storage.BlockStore, opts Options) (*Store, error) {
	policy, ok := ParsePolicy(string(opts.Policy))
	if !ok {
		return nil, errors.Wrapf(storage.ErrInvalidConfig, "unknown allocation policy %q", opts.Policy)
	}
	if opts.MaxRecordSize < 0 {
		return nil, errors.Wrapf(storage.ErrInvalidConfig, "negative max record size %d", opts.MaxRecordSize)
	}
	if opts.MaxRecordSize == 0 {
		opts.MaxRecordSize = DefaultMaxRecordSize
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}

	s := &Store{
		blocks:  blocks,
		maxSize: opts.MaxRecordSize,
		logger:  opts.Logger,
	}

	switch policy {
	case PolicyAppend:
		s.alloc = appendAllocator{}
	default:
		a := newReuseAllocator()
		if err := a.rebuild(blocks); err != nil {
			return nil, err
		}
		s.alloc = a
		s.logger.Debug("rebuilt free block set", "free", a.Free())
	}

	return s, nil
}

// Blocks returns the underlying block store.
func (s *Store) Blocks() *storage.BlockStore {
	return s.blocks
}

// Create stores data as a new record and returns its id.
func (s *Store) Create(data []byte) (uint64, error) {
	if len(data) > s.maxSize {
		return 0, errors.Wrapf(ErrRecordTooLarge, "%d bytes exceeds %d", len(data), s.maxSize)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	chain := make([]*storage.Block, 0, s.blocksNeeded(len(data)))
	for len(chain) < cap(chain) {
		blk, err := s.alloc.Allocate(s.blocks)
		if err != nil {
			return 0, s.abandon(chain, err)
		}
		chain = append(chain, blk)
	}

	if err := s.writeChain(chain, data); err != nil {
		return 0, s.abandon(chain, err)
	}
	return chain[0].ID(), nil
}

// Find returns the record's bytes. A missing or deleted record, or an id
// that is not the head of a chain, yields found == false.
func (s *Store) Find(id uint64) ([]byte, bool, error) {
	head, err := s.blocks.Find(id)
	if err != nil {
		return nil, false, err
	}
	if head == nil || head.IsDeleted() || head.Header(storage.FieldPrevious) != 0 {
		return nil, false, nil
	}

	total := head.Header(storage.FieldRecordLength)
	if total > uint64(s.maxSize) {
		return nil, false, corruptf("record %d claims length %d", id, total)
	}

	data := make([]byte, 0, total)
	err = s.walk(head, func(blk *storage.Block) error {
		used := int(blk.Header(storage.FieldContentLength))
		chunk := make([]byte, used)
		if _, err := blk.Read(chunk, 0); err != nil {
			return err
		}
		if crc32.ChecksumIEEE(chunk) != uint32(blk.Header(storage.FieldChecksum)) {
			return corruptf("checksum mismatch in block %d of record %d", blk.ID(), id)
		}
		data = append(data, chunk...)
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	if uint64(len(data)) != total {
		return nil, false, corruptf("record %d holds %d bytes, header says %d", id, len(data), total)
	}
	return data, true, nil
}

// Update replaces the record's content. Existing blocks are reused in
// order; extra blocks are allocated when data grows and surplus blocks are
// released when it shrinks.
func (s *Store) Update(id uint64, data []byte) error {
	if len(data) > s.maxSize {
		return errors.Wrapf(ErrRecordTooLarge, "%d bytes exceeds %d", len(data), s.maxSize)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	chain, err := s.chain(id)
	if err != nil {
		return err
	}

	need := s.blocksNeeded(len(data))
	owned := len(chain)
	for len(chain) < need {
		blk, err := s.alloc.Allocate(s.blocks)
		if err != nil {
			return s.abandon(chain[owned:], err)
		}
		chain = append(chain, blk)
	}

	surplus := chain[need:]
	if err := s.writeChain(chain[:need], data); err != nil {
		if owned < need {
			return s.abandon(chain[owned:], err)
		}
		return err
	}
	return s.release(surplus)
}

// Delete marks every block of the record deleted and releases it.
func (s *Store) Delete(id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	chain, err := s.chain(id)
	if err != nil {
		return err
	}
	return s.release(chain)
}

// Stats returns block usage.
func (s *Store) Stats() (Stats, error) {
	count, err := s.blocks.BlockCount()
	if err != nil {
		return Stats{}, err
	}
	size, err := s.blocks.Size()
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		Blocks:     count,
		FreeBlocks: s.alloc.Free(),
		BlockSize:  s.blocks.BlockSize(),
		Size:       size,
	}, nil
}

// Sync flushes the medium.
func (s *Store) Sync() error {
	return s.blocks.Sync()
}

// Close closes the block store and its medium.
func (s *Store) Close() error {
	return s.blocks.Close()
}

// blocksNeeded returns how many blocks hold n bytes. Empty records still
// occupy one block.
func (s *Store) blocksNeeded(n int) int {
	size := s.blocks.ContentSize()
	if n == 0 {
		return 1
	}
	return (n + size - 1) / size
}

// writeChain writes data across chain and links the blocks in order.
func (s *Store) writeChain(chain []*storage.Block, data []byte) error {
	size := s.blocks.ContentSize()

	for i, blk := range chain {
		start := i * size
		end := start + size
		if end > len(data) {
			end = len(data)
		}
		chunk := data[start:end]

		if err := blk.Write(chunk, 0); err != nil {
			return err
		}

		var next, prev, length uint64
		if i+1 < len(chain) {
			next = chain[i+1].ID()
		}
		if i > 0 {
			prev = chain[i-1].ID()
		} else {
			length = uint64(len(data))
		}

		blk.SetHeader(storage.FieldNext, next)
		blk.SetHeader(storage.FieldPrevious, prev)
		blk.SetHeader(storage.FieldRecordLength, length)
		blk.SetHeader(storage.FieldContentLength, uint64(len(chunk)))
		blk.SetHeader(storage.FieldDeleted, 0)
		blk.SetHeader(storage.FieldChecksum, uint64(crc32.ChecksumIEEE(chunk)))

		if err := blk.Flush(); err != nil {
			return err
		}
	}
	return nil
}

// release marks blocks deleted and hands them to the allocator.
func (s *Store) release(blocks []*storage.Block) error {
	for _, blk := range blocks {
		blk.ResetHeader()
		blk.SetHeader(storage.FieldDeleted, 1)
		if err := blk.Flush(); err != nil {
			return err
		}
		s.alloc.Release(blk.ID())
	}
	return nil
}

// abandon hands blocks allocated for a failed write back to the allocator
// and returns cause.
func (s *Store) abandon(blocks []*storage.Block, cause error) error {
	if err := s.release(blocks); err != nil {
		s.logger.Error("failed to release blocks of a failed write", "error", err)
		return errors.CombineErrors(cause, err)
	}
	return cause
}

// chain returns the blocks of a live record in order.
func (s *Store) chain(id uint64) ([]*storage.Block, error) {
	head, err := s.blocks.Find(id)
	if err != nil {
		return nil, err
	}
	if head == nil || head.IsDeleted() || head.Header(storage.FieldPrevious) != 0 {
		return nil, errors.Wrapf(ErrRecordNotFound, "record %d", id)
	}

	var chain []*storage.Block
	err = s.walk(head, func(blk *storage.Block) error {
		chain = append(chain, blk)
		return nil
	})
	return chain, err
}

// walk visits the chain starting at head, validating every link.
func (s *Store) walk(head *storage.Block, visit func(*storage.Block) error) error {
	count, err := s.blocks.BlockCount()
	if err != nil {
		return err
	}
	contentSize := uint64(s.blocks.ContentSize())

	blk := head
	for steps := uint64(1); ; steps++ {
		if blk.Header(storage.FieldContentLength) > contentSize {
			return corruptf("block %d uses %d bytes of %d", blk.ID(), blk.Header(storage.FieldContentLength), contentSize)
		}
		if err := visit(blk); err != nil {
			return err
		}

		next := blk.Header(storage.FieldNext)
		if next == 0 {
			return nil
		}
		if steps >= count {
			return corruptf("record %d chain does not terminate", head.ID())
		}

		nb, err := s.blocks.Find(next)
		if err != nil {
			return err
		}
		if nb == nil {
			return corruptf("block %d points to block %d outside the medium", blk.ID(), next)
		}
		if nb.IsDeleted() {
			return corruptf("block %d points to deleted block %d", blk.ID(), next)
		}
		if nb.Header(storage.FieldPrevious) != blk.ID() {
			return corruptf("block %d links back to %d, not %d", next, nb.Header(storage.FieldPrevious), blk.ID())
		}
		blk = nb
	}
}

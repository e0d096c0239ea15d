package record

import (
	"sync"

	"github.com/google/btree"

	"github.com/KilimcininKorOglu/obaidx/internal/storage"
)

// Policy selects how released blocks are handled.
type Policy string

const (
	// PolicyReuse hands released blocks back out, lowest id first.
	PolicyReuse Policy = "reuse"
	// PolicyAppend leaves released blocks as tombstones and always grows
	// the medium.
	PolicyAppend Policy = "append"
)

// ParsePolicy parses a policy name. An empty name selects PolicyReuse.
func ParsePolicy(s string) (Policy, bool) {
	switch Policy(s) {
	case "", PolicyReuse:
		return PolicyReuse, true
	case PolicyAppend:
		return PolicyAppend, true
	default:
		return "", false
	}
}

// Allocator decides where new blocks come from.
type Allocator interface {
	// Allocate returns a block with a zeroed header, ready for use.
	Allocate(blocks *storage.BlockStore) (*storage.Block, error)
	// Release records that a block has been marked deleted on disk.
	Release(id uint64)
	// Free returns the number of blocks available for reuse.
	Free() int
}

// appendAllocator never reuses blocks.
type appendAllocator struct{}

func (appendAllocator) Allocate(blocks *storage.BlockStore) (*storage.Block, error) {
	return blocks.CreateNew()
}

func (appendAllocator) Release(uint64) {}

func (appendAllocator) Free() int { return 0 }

// reuseAllocator keeps released block ids in an ordered set.
type reuseAllocator struct {
	mu   sync.Mutex
	free *btree.BTreeG[uint64]
}

func newReuseAllocator() *reuseAllocator {
	return &reuseAllocator{free: btree.NewOrderedG[uint64](32)}
}

// Allocate pops the lowest free id, falling back to growing the medium.
func (a *reuseAllocator) Allocate(blocks *storage.BlockStore) (*storage.Block, error) {
	a.mu.Lock()
	id, ok := a.free.DeleteMin()
	a.mu.Unlock()

	if !ok {
		return blocks.CreateNew()
	}

	blk, err := blocks.Find(id)
	if err != nil {
		return nil, err
	}
	if blk == nil {
		return nil, corruptf("free block %d lies outside the medium", id)
	}
	if !blk.IsDeleted() {
		return nil, corruptf("free block %d is still in use", id)
	}
	blk.ResetHeader()
	return blk, nil
}

// Release adds id to the free set.
func (a *reuseAllocator) Release(id uint64) {
	a.mu.Lock()
	a.free.ReplaceOrInsert(id)
	a.mu.Unlock()
}

// Free returns the size of the free set.
func (a *reuseAllocator) Free() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.free.Len()
}

// rebuild scans every block header and collects the deleted ones.
func (a *reuseAllocator) rebuild(blocks *storage.BlockStore) error {
	count, err := blocks.BlockCount()
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.free.Clear(false)
	for id := uint64(1); id < count; id++ {
		blk, err := blocks.Find(id)
		if err != nil {
			return err
		}
		if blk != nil && blk.IsDeleted() {
			a.free.ReplaceOrInsert(id)
		}
	}
	return nil
}

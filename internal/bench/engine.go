package bench

import (
	"encoding/binary"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"

	"github.com/KilimcininKorOglu/obaidx/internal/storage/btree"
	"github.com/KilimcininKorOglu/obaidx/internal/storage/codec"
)

// Engine is the key/value surface the workloads drive.
type Engine interface {
	// Name identifies the engine in reports.
	Name() string
	// Insert stores value under key, replacing any previous value.
	Insert(key int64, value []byte) error
	// Get returns the value for key and whether it exists.
	Get(key int64) ([]byte, bool, error)
	// Range scans [lo, hi] in ascending order and returns the number of
	// keys visited.
	Range(lo, hi int64) (int, error)
	Close() error
}

// TreeEngine runs workloads against a B+ tree file.
type TreeEngine struct {
	tree *btree.Tree[int64, []byte]
}

// OpenTreeEngine opens a unique int64 tree at path. opts supplies layout,
// order and cache settings; serializers are filled in here.
func OpenTreeEngine(path string, opts btree.Options[int64, []byte]) (*TreeEngine, error) {
	opts.Keys = codec.Int64
	opts.Values = codec.Bytes
	opts.Compare = codec.Compare[int64]
	opts.CompareValues = codec.CompareBytes
	opts.AllowDuplicateKeys = false

	tree, err := btree.Open(path, opts)
	if err != nil {
		return nil, err
	}
	return &TreeEngine{tree: tree}, nil
}

// Name implements Engine.
func (e *TreeEngine) Name() string { return "bptree" }

// Insert implements Engine. The tree has no update, so an existing key
// is deleted first.
func (e *TreeEngine) Insert(key int64, value []byte) error {
	err := e.tree.Insert(key, value)
	if !errors.Is(err, btree.ErrDuplicateKey) {
		return err
	}
	if _, err := e.tree.Delete(key); err != nil {
		return err
	}
	return e.tree.Insert(key, value)
}

// Get implements Engine.
func (e *TreeEngine) Get(key int64) ([]byte, bool, error) {
	entry, found, err := e.tree.Get(key)
	if err != nil || !found {
		return nil, false, err
	}
	return entry.Value, true, nil
}

// Range implements Engine.
func (e *TreeEngine) Range(lo, hi int64) (int, error) {
	it := e.tree.Range(lo, hi)
	defer it.Close()

	n := 0
	for {
		if _, ok := it.Next(); !ok {
			break
		}
		n++
	}
	return n, it.Err()
}

// Tree exposes the underlying tree for stats and verification.
func (e *TreeEngine) Tree() *btree.Tree[int64, []byte] { return e.tree }

// Close implements Engine.
func (e *TreeEngine) Close() error { return e.tree.Close() }

// PebbleEngine runs workloads against a Pebble LSM store.
type PebbleEngine struct {
	db *pebble.DB
}

// OpenPebbleEngine opens or creates a Pebble store in dir.
func OpenPebbleEngine(dir string) (*PebbleEngine, error) {
	opts := &pebble.Options{
		MemTableSize:                16 << 20,
		MemTableStopWritesThreshold: 4,
		L0CompactionThreshold:       4,
		L0StopWritesThreshold:       12,
	}

	db, err := pebble.Open(filepath.Clean(dir), opts)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open pebble store %s", dir)
	}
	return &PebbleEngine{db: db}, nil
}

// Name implements Engine.
func (e *PebbleEngine) Name() string { return "pebble" }

// Insert implements Engine.
func (e *PebbleEngine) Insert(key int64, value []byte) error {
	return e.db.Set(encodeKey(key), value, pebble.NoSync)
}

// Get implements Engine.
func (e *PebbleEngine) Get(key int64) ([]byte, bool, error) {
	val, closer, err := e.db.Get(encodeKey(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "pebble get")
	}
	// val is only valid until closer.Close.
	out := append([]byte(nil), val...)
	return out, true, closer.Close()
}

// Range implements Engine.
func (e *PebbleEngine) Range(lo, hi int64) (int, error) {
	iter, err := e.db.NewIter(&pebble.IterOptions{
		LowerBound: encodeKey(lo),
		UpperBound: upperBound(hi),
	})
	if err != nil {
		return 0, errors.Wrap(err, "pebble range")
	}

	n := 0
	for valid := iter.First(); valid; valid = iter.Next() {
		if len(iter.Key()) != 8 {
			iter.Close()
			return n, errors.Newf("pebble range: unexpected key length %d", len(iter.Key()))
		}
		n++
	}
	return n, errors.CombineErrors(iter.Error(), iter.Close())
}

// Close implements Engine.
func (e *PebbleEngine) Close() error { return e.db.Close() }

// encodeKey maps an int64 to 8 bytes whose byte order matches the
// numeric order, flipping the sign bit so negatives sort first.
func encodeKey(k int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(k)^(1<<63))
	return b
}

// upperBound returns the exclusive bound just past hi.
func upperBound(hi int64) []byte {
	b := encodeKey(hi)
	// Appending a zero byte yields the smallest key greater than b.
	return append(b, 0)
}

package btree

import (
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/KilimcininKorOglu/obaidx/internal/logging"
	"github.com/KilimcininKorOglu/obaidx/internal/storage"
	"github.com/KilimcininKorOglu/obaidx/internal/storage/codec"
	"github.com/KilimcininKorOglu/obaidx/internal/storage/record"
)

// Tree defaults and limits.
const (
	// DefaultOrder is the maximum number of keys per node.
	DefaultOrder = 64

	// MinOrder is the smallest accepted order.
	MinOrder = 3

	// DefaultCacheSize is the number of decoded nodes kept in memory.
	DefaultCacheSize = 1024
)

// Options configures a Tree.
type Options[K, V any] struct {
	// Keys and Values serialize entries. Both are required.
	Keys   codec.Serializer[K]
	Values codec.Serializer[V]

	// Compare orders keys. Required.
	Compare func(a, b K) int

	// CompareValues is the default value comparer for DeleteValue.
	CompareValues func(a, b V) int

	// AllowDuplicateKeys permits repeated keys. It is fixed when the file
	// is created.
	AllowDuplicateKeys bool

	// Order is the maximum number of keys per node. Stored orders win
	// for existing files. Default: DefaultOrder.
	Order int

	// CacheSize is the node cache capacity. Default: DefaultCacheSize.
	CacheSize int

	// Storage configures the block layout.
	Storage storage.Options

	// Records configures the record store.
	Records record.Options

	// ReadOnly opens the file without write access.
	ReadOnly bool

	// Logger receives engine logs. Default: no-op.
	Logger logging.Logger
}

func (o *Options[K, V]) validate() error {
	if o.Keys == nil || o.Values == nil {
		return errors.Wrap(storage.ErrInvalidConfig, "key and value serializers are required")
	}
	if o.Compare == nil {
		return errors.Wrap(storage.ErrInvalidConfig, "key comparer is required")
	}
	if o.Order == 0 {
		o.Order = DefaultOrder
	}
	if o.Order < MinOrder {
		return errors.Wrapf(storage.ErrInvalidConfig, "order %d is below the minimum of %d", o.Order, MinOrder)
	}
	if o.CacheSize == 0 {
		o.CacheSize = DefaultCacheSize
	}
	if o.CacheSize < 0 {
		return errors.Wrapf(storage.ErrInvalidConfig, "negative cache size %d", o.CacheSize)
	}
	if o.Logger == nil {
		o.Logger = logging.NewNop()
	}
	if o.Records.Logger == nil {
		o.Records.Logger = o.Logger
	}
	return o.Storage.Validate()
}

// Tree is a disk-backed B+ tree. Insert and both delete forms hold the
// write lock for their whole duration; lookups hold the read lock while
// locating their starting position. Iterators run without the lock, so
// mutating the tree while an iterator is open gives undefined results.
type Tree[K, V any] struct {
	mu            sync.RWMutex
	nodes         *NodeManager[K, V]
	compare       func(a, b K) int
	compareValues func(a, b V) int
	duplicates    bool
	order         int
	logger        logging.Logger
	closed        bool
}

// Open opens or creates the index file at path.
func Open[K, V any](path string, opts Options[K, V]) (*Tree[K, V], error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	medium, err := storage.OpenFile(path, opts.ReadOnly)
	if err != nil {
		return nil, err
	}

	tree, err := New(medium, opts)
	if err != nil {
		medium.Close()
		return nil, err
	}
	tree.logger.Info("opened index", "path", path, "order", tree.order, "duplicates", tree.duplicates)
	return tree, nil
}

// New creates a tree over medium. The tree owns the medium from here on;
// on error the caller still owns it.
func New[K, V any](medium storage.Medium, opts Options[K, V]) (*Tree[K, V], error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	blocks, err := storage.Open(medium, opts.Storage)
	if err != nil {
		return nil, err
	}
	records, err := record.Open(blocks, opts.Records)
	if err != nil {
		return nil, err
	}

	meta := Meta{Order: opts.Order, Duplicates: opts.AllowDuplicateKeys}
	nodes, err := NewNodeManager(records, opts.Keys, opts.Values, meta, opts.CacheSize, opts.Logger)
	if err != nil {
		return nil, err
	}

	stored := nodes.Meta()
	return &Tree[K, V]{
		nodes:         nodes,
		compare:       opts.Compare,
		compareValues: opts.CompareValues,
		duplicates:    stored.Duplicates,
		order:         stored.Order,
		logger:        opts.Logger,
	}, nil
}

// OpenRaw opens an existing index file without knowing its key and value
// types. Keys and values are returned encoded; the serializers named in
// the file's meta record provide ordering and formatting.
func OpenRaw(path string, opts Options[[]byte, []byte]) (*Tree[[]byte, []byte], codec.Raw, codec.Raw, error) {
	medium, err := storage.OpenFile(path, opts.ReadOnly)
	if err != nil {
		return nil, codec.Raw{}, codec.Raw{}, err
	}

	meta, err := peekMeta(medium, opts.Storage)
	if err != nil {
		medium.Close()
		return nil, codec.Raw{}, codec.Raw{}, err
	}

	keys, err := codec.RawFor(meta.KeyCodec)
	if err != nil {
		medium.Close()
		return nil, codec.Raw{}, codec.Raw{}, errors.Wrap(err, "key encoding")
	}
	values, err := codec.RawFor(meta.ValueCodec)
	if err != nil {
		medium.Close()
		return nil, codec.Raw{}, codec.Raw{}, errors.Wrap(err, "value encoding")
	}

	opts.Keys = keys
	opts.Values = values
	opts.Compare = keys.Compare
	opts.CompareValues = values.Compare
	opts.AllowDuplicateKeys = meta.Duplicates

	tree, err := New(medium, opts)
	if err != nil {
		medium.Close()
		return nil, codec.Raw{}, codec.Raw{}, err
	}
	return tree, keys, values, nil
}

// peekMeta reads the meta record without taking ownership of medium.
func peekMeta(medium storage.Medium, opts storage.Options) (Meta, error) {
	blocks, err := storage.Open(medium, opts)
	if err != nil {
		return Meta{}, err
	}
	records, err := record.Open(blocks, record.Options{Policy: record.PolicyAppend})
	if err != nil {
		return Meta{}, err
	}
	return ReadMeta(records)
}

// AllowsDuplicates reports whether the tree accepts repeated keys.
func (t *Tree[K, V]) AllowsDuplicates() bool {
	return t.duplicates
}

// Order returns the maximum number of keys per node.
func (t *Tree[K, V]) Order() int {
	return t.order
}

// Meta returns the persisted tree metadata.
func (t *Tree[K, V]) Meta() Meta {
	return t.nodes.Meta()
}

// Records returns the record store, for statistics.
func (t *Tree[K, V]) Records() *record.Store {
	return t.nodes.Records()
}

// SaveChanges flushes dirty nodes.
func (t *Tree[K, V]) SaveChanges() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrClosed
	}
	return t.nodes.SaveChanges()
}

// Close flushes dirty nodes and closes the medium. Closing twice is a
// no-op.
func (t *Tree[K, V]) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true

	err := t.nodes.Close()
	if err != nil {
		t.logger.Error("failed to close index", "error", err)
		return err
	}
	t.logger.Info("closed index")
	return nil
}

// Height returns the number of levels, 1 for a tree that is a single leaf.
func (t *Tree[K, V]) Height() (int, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.closed {
		return 0, ErrClosed
	}

	node, err := t.nodes.Root()
	if err != nil {
		return 0, err
	}

	height := 1
	for !node.leaf {
		if len(node.children) == 0 {
			return 0, corruptf("internal node %d has no children", node.id)
		}
		if node, err = t.nodes.Find(node.children[0]); err != nil {
			return 0, err
		}
		height++
	}
	return height, nil
}

// Count returns the number of entries by scanning every leaf.
func (t *Tree[K, V]) Count() (int, error) {
	it := t.All()
	defer it.Close()

	count := 0
	for {
		if _, ok := it.Next(); !ok {
			break
		}
		count++
	}
	return count, it.Err()
}

// descend walks from the root to the leaf that should hold key, picking
// the leftmost (moveLeft) or rightmost (moveRight) candidate subtree, and
// returns the path of internal nodes taken. Caller holds the lock.
func (t *Tree[K, V]) descend(key K, b bias) ([]frame[K, V], *Node[K, V], error) {
	node, err := t.nodes.Root()
	if err != nil {
		return nil, nil, err
	}

	var path []frame[K, V]
	for !node.leaf {
		idx := node.childIndex(key, t.compare, b)
		if idx >= len(node.children) {
			return nil, nil, corruptf("internal node %d has %d children for %d keys", node.id, len(node.children), len(node.keys))
		}
		path = append(path, frame[K, V]{node: node, index: idx})

		if node, err = t.nodes.Find(node.children[idx]); err != nil {
			return nil, nil, err
		}
	}
	return path, node, nil
}

// edge walks from the root to the leftmost (first) or rightmost (last)
// leaf. Caller holds the lock.
func (t *Tree[K, V]) edge(last bool) ([]frame[K, V], *Node[K, V], error) {
	node, err := t.nodes.Root()
	if err != nil {
		return nil, nil, err
	}

	var path []frame[K, V]
	for !node.leaf {
		if len(node.children) == 0 {
			return nil, nil, corruptf("internal node %d has no children", node.id)
		}
		idx := 0
		if last {
			idx = len(node.children) - 1
		}
		path = append(path, frame[K, V]{node: node, index: idx})

		if node, err = t.nodes.Find(node.children[idx]); err != nil {
			return nil, nil, err
		}
	}
	return path, node, nil
}

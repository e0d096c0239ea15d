package btree

import (
	"encoding/binary"
	"slices"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/KilimcininKorOglu/obaidx/internal/logging"
	"github.com/KilimcininKorOglu/obaidx/internal/storage/codec"
	"github.com/KilimcininKorOglu/obaidx/internal/storage/record"
)

// MetaRecordID is the well-known record holding the tree metadata and the
// root node id. It is the first record created in an index file.
const MetaRecordID = 1

// metaMagic identifies a tree meta record.
var metaMagic = [4]byte{'B', 'P', 'T', '1'}

const metaFlagDuplicates = 1 << 0

// Meta describes a tree as persisted in its meta record.
type Meta struct {
	Root       uint64
	Order      int
	Duplicates bool
	KeyCodec   string
	ValueCodec string
}

func (m Meta) encode() []byte {
	buf := make([]byte, 0, 32+len(m.KeyCodec)+len(m.ValueCodec))
	buf = append(buf, metaMagic[:]...)
	buf = binary.LittleEndian.AppendUint64(buf, m.Root)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(m.Order))

	var flags byte
	if m.Duplicates {
		flags |= metaFlagDuplicates
	}
	buf = append(buf, flags)
	buf = append(buf, byte(len(m.KeyCodec)))
	buf = append(buf, m.KeyCodec...)
	buf = append(buf, byte(len(m.ValueCodec)))
	buf = append(buf, m.ValueCodec...)
	return buf
}

func decodeMeta(data []byte) (Meta, error) {
	r := &reader{buf: data}

	magic, err := r.next(4)
	if err != nil || [4]byte(magic) != metaMagic {
		return Meta{}, corruptf("meta record has no tree magic")
	}

	var m Meta
	if m.Root, err = r.uint64(); err != nil {
		return Meta{}, err
	}
	order, err := r.uint32()
	if err != nil {
		return Meta{}, err
	}
	m.Order = int(order)

	rest, err := r.next(1)
	if err != nil {
		return Meta{}, err
	}
	m.Duplicates = rest[0]&metaFlagDuplicates != 0

	if m.KeyCodec, err = readName(r); err != nil {
		return Meta{}, err
	}
	if m.ValueCodec, err = readName(r); err != nil {
		return Meta{}, err
	}
	return m, nil
}

func readName(r *reader) (string, error) {
	n, err := r.next(1)
	if err != nil {
		return "", err
	}
	b, err := r.next(int(n[0]))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ReadMeta returns the tree metadata stored in records, or
// ErrNotInitialized when the file holds no tree yet.
func ReadMeta(records *record.Store) (Meta, error) {
	data, found, err := records.Find(MetaRecordID)
	if err != nil {
		return Meta{}, err
	}
	if !found {
		return Meta{}, ErrNotInitialized
	}
	return decodeMeta(data)
}

// NodeManager loads and persists nodes through a record store. It owns the
// record store and the root reference. Mutated nodes are tracked by
// identity and written once per SaveChanges.
type NodeManager[K, V any] struct {
	records *record.Store
	codec   nodeCodec[K, V]
	logger  logging.Logger

	mu        sync.Mutex
	cache     *nodeCache[K, V]
	dirty     map[uint64]*Node[K, V]
	created   []uint64
	partial   bool
	meta      Meta
	stored    bool
	metaDirty bool
}

// NewNodeManager creates a node manager. meta is used when the file holds
// no tree yet; otherwise the stored metadata is loaded and checked against
// the serializers.
func NewNodeManager[K, V any](records *record.Store, keys codec.Serializer[K], values codec.Serializer[V], meta Meta, cacheSize int, logger logging.Logger) (*NodeManager[K, V], error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	m := &NodeManager[K, V]{
		records: records,
		codec:   nodeCodec[K, V]{keys: keys, values: values},
		logger:  logger,
		cache:   newNodeCache[K, V](cacheSize),
		dirty:   make(map[uint64]*Node[K, V]),
	}

	stored, err := ReadMeta(records)
	switch {
	case errors.Is(err, ErrNotInitialized):
		meta.Root = 0
		meta.KeyCodec = keys.Name()
		meta.ValueCodec = values.Name()
		m.meta = meta
		return m, nil
	case err != nil:
		return nil, err
	}

	if stored.KeyCodec != keys.Name() || stored.ValueCodec != values.Name() {
		return nil, errors.Wrapf(ErrIncompatible, "file stores %s/%s, opened with %s/%s",
			stored.KeyCodec, stored.ValueCodec, keys.Name(), values.Name())
	}
	if stored.Duplicates != meta.Duplicates {
		return nil, errors.Wrapf(ErrIncompatible, "file has duplicate keys=%v, opened with %v",
			stored.Duplicates, meta.Duplicates)
	}
	if stored.Root == 0 {
		return nil, corruptf("meta record has no root")
	}
	if stored.Order < MinOrder {
		return nil, corruptf("stored order %d is below %d", stored.Order, MinOrder)
	}
	if meta.Order != 0 && meta.Order != stored.Order {
		logger.Info("using stored tree order", "stored", stored.Order, "requested", meta.Order)
	}

	m.meta = stored
	m.stored = true
	return m, nil
}

// Meta returns the current metadata.
func (m *NodeManager[K, V]) Meta() Meta {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.meta
}

// Order returns the tree order.
func (m *NodeManager[K, V]) Order() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.meta.Order
}

// Root returns the root node, creating the meta record and an empty root
// leaf on first use.
func (m *NodeManager[K, V]) Root() (*Node[K, V], error) {
	m.mu.Lock()
	if !m.stored {
		if err := m.initialize(); err != nil {
			m.mu.Unlock()
			return nil, err
		}
	}
	root := m.meta.Root
	m.mu.Unlock()

	return m.Find(root)
}

// initialize persists the meta record and an empty root. Caller holds mu.
func (m *NodeManager[K, V]) initialize() error {
	id, err := m.records.Create(m.meta.encode())
	if err != nil {
		return err
	}
	if id != MetaRecordID {
		return corruptf("meta record created as %d, file already holds records", id)
	}

	root := newNode[K, V](0, true)
	rootID, err := m.records.Create(m.codec.encode(root))
	if err != nil {
		return err
	}
	root.id = rootID

	m.meta.Root = rootID
	if err := m.records.Update(MetaRecordID, m.meta.encode()); err != nil {
		return err
	}

	m.stored = true
	m.cache.put(root, m.dirty)
	m.logger.Debug("created tree root", "root", rootID)
	return nil
}

// Find returns the node with the given id. A missing node is corruption.
func (m *NodeManager[K, V]) Find(id uint64) (*Node[K, V], error) {
	m.mu.Lock()
	if n, ok := m.dirty[id]; ok {
		m.mu.Unlock()
		return n, nil
	}
	if n, ok := m.cache.get(id); ok {
		m.mu.Unlock()
		return n, nil
	}
	m.mu.Unlock()

	if id == 0 || id == MetaRecordID {
		return nil, corruptf("invalid node reference %d", id)
	}

	data, found, err := m.records.Find(id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, corruptf("node %d is missing", id)
	}
	n, err := m.codec.decode(id, data)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if cached, ok := m.cache.get(id); ok {
		return cached, nil
	}
	m.cache.put(n, m.dirty)
	return n, nil
}

// Create allocates a record for a new node and returns it marked dirty.
// An internal node starts with the given children and no keys.
func (m *NodeManager[K, V]) Create(leaf bool, children ...uint64) (*Node[K, V], error) {
	n := newNode[K, V](0, leaf)
	if !leaf {
		n.children = append(n.children, children...)
	}
	id, err := m.records.Create(m.codec.encode(n))
	if err != nil {
		return nil, err
	}
	n.id = id

	m.mu.Lock()
	defer m.mu.Unlock()
	m.dirty[id] = n
	m.created = append(m.created, id)
	m.cache.put(n, m.dirty)
	return n, nil
}

// MarkDirty records that n must be written on the next SaveChanges.
func (m *NodeManager[K, V]) MarkDirty(n *Node[K, V]) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dirty[n.id] = n
}

// SetRoot makes n the root node.
func (m *NodeManager[K, V]) SetRoot(n *Node[K, V]) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.meta.Root = n.id
	m.metaDirty = true
}

// SaveChanges writes every dirty node, then the meta record if the root
// changed.
func (m *NodeManager[K, V]) SaveChanges() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]uint64, 0, len(m.dirty))
	for id := range m.dirty {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	for _, id := range ids {
		if err := m.records.Update(id, m.codec.encode(m.dirty[id])); err != nil {
			return errors.Wrapf(err, "failed to save node %d", id)
		}
		delete(m.dirty, id)
		m.partial = true
	}

	if m.metaDirty {
		if err := m.records.Update(MetaRecordID, m.meta.encode()); err != nil {
			return errors.Wrap(err, "failed to save tree meta")
		}
		m.metaDirty = false
	}
	m.created = m.created[:0]
	m.partial = false
	return nil
}

// Discard drops unsaved changes so the next Find reloads from disk. Records
// of nodes created since the last SaveChanges are deleted.
func (m *NodeManager[K, V]) Discard() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id := range m.dirty {
		m.cache.remove(id)
	}
	clear(m.dirty)

	// After a partial save, stored nodes may already link to new ones.
	if !m.partial {
		for _, id := range m.created {
			if err := m.records.Delete(id); err != nil {
				m.logger.Error("failed to free unsaved node", "node", id, "error", err)
			}
		}
	}
	m.created = m.created[:0]
	m.partial = false

	if m.metaDirty {
		if stored, err := ReadMeta(m.records); err == nil {
			m.meta = stored
		}
		m.metaDirty = false
	}
}

// DirtyCount returns the number of nodes waiting for SaveChanges.
func (m *NodeManager[K, V]) DirtyCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.dirty)
}

// Records returns the underlying record store.
func (m *NodeManager[K, V]) Records() *record.Store {
	return m.records
}

// Close saves pending changes and closes the record store.
func (m *NodeManager[K, V]) Close() error {
	saveErr := m.SaveChanges()
	closeErr := m.records.Close()
	return errors.CombineErrors(saveErr, closeErr)
}

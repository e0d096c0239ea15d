package index

import (
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/KilimcininKorOglu/obaidx/internal/logging"
	"github.com/KilimcininKorOglu/obaidx/internal/storage/btree"
	"github.com/KilimcininKorOglu/obaidx/internal/storage/codec"
)

// Manager errors.
var (
	ErrIndexExists     = errors.New("index already exists")
	ErrIndexNotFound   = errors.New("index not found")
	ErrInvalidName     = errors.New("invalid index name")
	ErrUniqueViolation = errors.New("unique index violation")
	ErrWrongIndexType  = errors.New("operation not supported by index type")
	ErrManagerClosed   = errors.New("index manager is closed")
	ErrPatternTooShort = errors.New("search pattern has no searchable segment")
)

// MaxIndexNameLength bounds index names, which double as file names.
const MaxIndexNameLength = 128

// Options configures a Manager.
type Options struct {
	// Tree is the template for every index tree. Keys, Values, Compare,
	// CompareValues and AllowDuplicateKeys are set by the manager.
	Tree btree.Options[string, uint64]

	// Logger receives manager logs. Default: no-op.
	Logger logging.Logger
}

// Manager maintains named indexes over documents in one data directory.
// Each index is a B+ tree file mapping field values to document ids.
type Manager struct {
	dir     string
	opts    Options
	logger  logging.Logger
	catalog *catalog
	indexes map[string]*Index
	mu      sync.RWMutex
	closed  bool
}

// Open opens the manager in dir, creating the directory and an empty
// catalog if needed, and opens every cataloged index.
func Open(dir string, opts Options) (*Manager, error) {
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	if opts.Tree.Logger == nil {
		opts.Tree.Logger = opts.Logger
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrapf(err, "failed to create data directory %s", dir)
	}

	cat, err := loadCatalog(dir)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		dir:     dir,
		opts:    opts,
		logger:  opts.Logger,
		catalog: cat,
		indexes: make(map[string]*Index, len(cat.Indexes)),
	}

	for _, entry := range cat.Indexes {
		typ, ok := ParseIndexType(entry.Type)
		if !ok {
			m.closeAll()
			return nil, errors.Newf("index %s has unknown type %q", entry.Name, entry.Type)
		}
		idx, err := m.openIndex(entry.Name, typ, filepath.Join(dir, entry.File))
		if err != nil {
			m.closeAll()
			return nil, errors.Wrapf(err, "failed to open index %s", entry.Name)
		}
		m.indexes[idx.Name] = idx
	}

	m.logger.Info("opened index manager", "dir", dir, "indexes", len(m.indexes))
	return m, nil
}

func (m *Manager) treeOptions(typ IndexType) btree.Options[string, uint64] {
	opts := m.opts.Tree
	opts.Keys = codec.String
	opts.Values = codec.Uint64
	opts.Compare = codec.Compare[string]
	opts.CompareValues = codec.Compare[uint64]
	opts.AllowDuplicateKeys = typ.allowsDuplicates()
	return opts
}

func (m *Manager) openIndex(name string, typ IndexType, path string) (*Index, error) {
	tree, err := btree.Open(path, m.treeOptions(typ))
	if err != nil {
		return nil, err
	}
	return &Index{Name: name, Type: typ, path: path, tree: tree}, nil
}

// validateName checks that name is usable as a file name.
func validateName(name string) error {
	if name == "" {
		return errors.Wrap(ErrInvalidName, "name is empty")
	}
	if len(name) > MaxIndexNameLength {
		return errors.Wrapf(ErrInvalidName, "name exceeds %d bytes", MaxIndexNameLength)
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-', r == '.':
		default:
			return errors.Wrapf(ErrInvalidName, "%q contains %q", name, r)
		}
	}
	if name[0] == '.' {
		return errors.Wrapf(ErrInvalidName, "%q starts with a dot", name)
	}
	return nil
}

// CreateIndex creates an index on the named field.
func (m *Manager) CreateIndex(name string, typ IndexType) error {
	name = normalizeName(name)
	if err := validateName(name); err != nil {
		return err
	}
	if typ.String() == "unknown" {
		return errors.Newf("unknown index type %d", typ)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrManagerClosed
	}
	if _, exists := m.indexes[name]; exists {
		return errors.Wrapf(ErrIndexExists, "%s", name)
	}

	file := name + ".idx"
	path := filepath.Join(m.dir, file)
	// A file without a catalog entry is left over from an interrupted drop.
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "failed to remove stale index file %s", path)
	}

	idx, err := m.openIndex(name, typ, path)
	if err != nil {
		return err
	}

	m.catalog.Indexes = append(m.catalog.Indexes, catalogEntry{Name: name, Type: typ.String(), File: file})
	if err := m.catalog.save(m.dir); err != nil {
		m.catalog.Indexes = m.catalog.Indexes[:len(m.catalog.Indexes)-1]
		idx.tree.Close()
		os.Remove(path)
		return err
	}

	m.indexes[name] = idx
	m.logger.Info("created index", "name", name, "type", typ.String())
	return nil
}

// DropIndex removes an index and deletes its file.
func (m *Manager) DropIndex(name string) error {
	name = normalizeName(name)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrManagerClosed
	}
	idx, exists := m.indexes[name]
	if !exists {
		return errors.Wrapf(ErrIndexNotFound, "%s", name)
	}

	entries := slices.DeleteFunc(slices.Clone(m.catalog.Indexes), func(e catalogEntry) bool {
		return e.Name == name
	})
	previous := m.catalog.Indexes
	m.catalog.Indexes = entries
	if err := m.catalog.save(m.dir); err != nil {
		m.catalog.Indexes = previous
		return err
	}

	delete(m.indexes, name)
	closeErr := idx.tree.Close()
	if err := os.Remove(idx.path); err != nil && !os.IsNotExist(err) {
		return errors.CombineErrors(closeErr, errors.Wrapf(err, "failed to remove %s", idx.path))
	}

	m.logger.Info("dropped index", "name", name)
	return closeErr
}

// HasIndex reports whether the named index exists.
func (m *Manager) HasIndex(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, exists := m.indexes[normalizeName(name)]
	return exists
}

// GetIndex returns the named index.
func (m *Manager) GetIndex(name string) (*Index, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	idx, exists := m.indexes[normalizeName(name)]
	return idx, exists
}

// Indexes returns the index names in sorted order.
func (m *Manager) Indexes() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return sortedNames(m.indexes)
}

// keysFor returns the tree keys doc contributes to idx.
func keysFor(idx *Index, doc *Document) []string {
	values := uniqueValues(doc.Get(idx.Name))
	if idx.Type != IndexSubstring {
		return values
	}
	var grams []string
	for _, v := range values {
		grams = append(grams, GenerateUniqueNgrams(v, NgramSize)...)
	}
	return uniqueValues(grams)
}

// IndexDocument adds doc to every index whose field it carries. Unique
// indexes are checked first, so a violation leaves all indexes unchanged.
// Re-indexing a document under the same id is a no-op for unique indexes.
func (m *Manager) IndexDocument(doc *Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrManagerClosed
	}
	return m.indexDocument(doc)
}

// indexDocument does the work of IndexDocument. Caller holds the write lock.
func (m *Manager) indexDocument(doc *Document) error {
	for _, idx := range m.indexes {
		if idx.Type != IndexUnique {
			continue
		}
		for _, key := range keysFor(idx, doc) {
			e, found, err := idx.tree.Get(key)
			if err != nil {
				return err
			}
			if found && e.Value != doc.ID {
				return errors.Wrapf(ErrUniqueViolation, "%s=%q is held by document %d", idx.Name, key, e.Value)
			}
		}
	}

	var done []indexedKey

	for _, idx := range m.indexes {
		for _, key := range keysFor(idx, doc) {
			if idx.Type == IndexUnique {
				if _, found, err := idx.tree.Get(key); err != nil {
					return m.undo(done, doc.ID, err)
				} else if found {
					continue
				}
			}
			if err := idx.tree.Insert(key, doc.ID); err != nil {
				return m.undo(done, doc.ID, err)
			}
			done = append(done, indexedKey{idx, key})
		}
	}

	return nil
}

type indexedKey struct {
	idx *Index
	key string
}

// undo removes keys inserted by a failed IndexDocument and returns cause.
func (m *Manager) undo(done []indexedKey, id uint64, cause error) error {
	for _, a := range done {
		if err := removeKey(a.idx, a.key, id); err != nil {
			m.logger.Error("failed to roll back index entry", "index", a.idx.Name, "key", a.key, "error", err)
			cause = errors.CombineErrors(cause, err)
		}
	}
	return cause
}

func removeKey(idx *Index, key string, id uint64) error {
	if idx.Type == IndexUnique {
		e, found, err := idx.tree.Get(key)
		if err != nil || !found || e.Value != id {
			return err
		}
		_, err = idx.tree.Delete(key)
		return err
	}
	_, err := idx.tree.DeleteValue(key, id, nil)
	return err
}

// RemoveDocument removes doc from every index whose field it carries.
// Unique entries are removed only while they still point at doc.
func (m *Manager) RemoveDocument(doc *Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrManagerClosed
	}
	return m.removeDocument(doc)
}

func (m *Manager) removeDocument(doc *Document) error {
	var errs error
	for _, idx := range m.indexes {
		for _, key := range keysFor(idx, doc) {
			if err := removeKey(idx, key, doc.ID); err != nil {
				errs = errors.CombineErrors(errs, errors.Wrapf(err, "index %s", idx.Name))
			}
		}
	}
	return errs
}

// UpdateDocument replaces old with updated, which must share its id.
// Readers see either the old or the updated document, never neither.
func (m *Manager) UpdateDocument(old, updated *Document) error {
	if old.ID != updated.ID {
		return errors.Newf("document id changed from %d to %d", old.ID, updated.ID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrManagerClosed
	}

	if err := m.removeDocument(old); err != nil {
		return err
	}
	if err := m.indexDocument(updated); err != nil {
		if restoreErr := m.indexDocument(old); restoreErr != nil {
			return errors.CombineErrors(err, restoreErr)
		}
		return err
	}
	return nil
}

// index returns the named index under the read lock.
func (m *Manager) index(name string) (*Index, error) {
	if m.closed {
		return nil, ErrManagerClosed
	}
	idx, exists := m.indexes[normalizeName(name)]
	if !exists {
		return nil, errors.Wrapf(ErrIndexNotFound, "%s", name)
	}
	return idx, nil
}

// collectIDs drains it into a list of document ids.
func collectIDs(it *btree.Iterator[string, uint64]) ([]uint64, error) {
	var ids []uint64
	for {
		e, ok := it.Next()
		if !ok {
			break
		}
		ids = append(ids, e.Value)
	}
	return ids, it.Err()
}

// Lookup returns the ids of documents whose field equals value.
func (m *Manager) Lookup(name, value string) ([]uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	idx, err := m.index(name)
	if err != nil {
		return nil, err
	}
	if idx.Type == IndexSubstring {
		return nil, errors.Wrapf(ErrWrongIndexType, "lookup on substring index %s", idx.Name)
	}
	return collectIDs(idx.tree.EqualTo(value))
}

// Range returns the ids of documents whose field lies in [lo, hi], in
// key order.
func (m *Manager) Range(name, lo, hi string) ([]uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	idx, err := m.index(name)
	if err != nil {
		return nil, err
	}
	if idx.Type == IndexSubstring {
		return nil, errors.Wrapf(ErrWrongIndexType, "range on substring index %s", idx.Name)
	}
	return collectIDs(idx.tree.Range(lo, hi))
}

// Search returns the ids of documents that may have a value matching the
// '*' wildcard pattern on a substring index, sorted ascending. Candidates
// share every trigram of the pattern; callers confirm with MatchesPattern.
func (m *Manager) Search(name, pattern string) ([]uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	idx, err := m.index(name)
	if err != nil {
		return nil, err
	}
	if idx.Type != IndexSubstring {
		return nil, errors.Wrapf(ErrWrongIndexType, "search on %s index %s", idx.Type, idx.Name)
	}

	grams := ExtractSearchableNgrams(pattern, NgramSize)
	if len(grams) == 0 {
		return nil, errors.Wrapf(ErrPatternTooShort, "%q", pattern)
	}

	var result []uint64
	for i, gram := range grams {
		ids, err := collectIDs(idx.tree.EqualTo(gram))
		if err != nil {
			return nil, err
		}
		slices.Sort(ids)
		ids = slices.Compact(ids)
		if i == 0 {
			result = ids
		} else {
			result = intersectIDs(result, ids)
		}
		if len(result) == 0 {
			break
		}
	}
	return result, nil
}

// intersectIDs intersects two ascending id lists.
func intersectIDs(a, b []uint64) []uint64 {
	out := a[:0]
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			i++
		case a[i] > b[j]:
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	return out
}

// Count returns the number of entries in the named index.
func (m *Manager) Count(name string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	idx, err := m.index(name)
	if err != nil {
		return 0, err
	}
	return idx.tree.Count()
}

// Verify checks the structure of every index.
func (m *Manager) Verify() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return ErrManagerClosed
	}
	for _, name := range sortedNames(m.indexes) {
		if err := m.indexes[name].tree.Verify(); err != nil {
			return errors.Wrapf(err, "index %s", name)
		}
	}
	return nil
}

func sortedNames(indexes map[string]*Index) []string {
	names := make([]string, 0, len(indexes))
	for name := range indexes {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Close closes every index. It is safe to call more than once.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	err := m.closeAll()
	m.logger.Info("closed index manager", "dir", m.dir)
	return err
}

func (m *Manager) closeAll() error {
	var errs error
	for name, idx := range m.indexes {
		if err := idx.tree.Close(); err != nil {
			errs = errors.CombineErrors(errs, errors.Wrapf(err, "failed to close index %s", name))
		}
	}
	clear(m.indexes)
	return errs
}

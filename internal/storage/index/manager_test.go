package index

import (
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"

	"github.com/KilimcininKorOglu/obaidx/internal/storage"
	"github.com/KilimcininKorOglu/obaidx/internal/storage/btree"
)

// createTestManager opens a manager on a fresh directory with small
// trees so that a few dozen documents already split nodes.
func createTestManager(t *testing.T) (*Manager, string) {
	t.Helper()

	dir := t.TempDir()
	m, err := Open(dir, testOptions())
	if err != nil {
		t.Fatalf("failed to open index manager: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m, dir
}

func testOptions() Options {
	return Options{
		Tree: btree.Options[string, uint64]{
			Order:   4,
			Storage: storage.Options{BlockSize: 256, BlockHeaderSize: 48},
		},
	}
}

func person(id uint64, uid, city, name string) *Document {
	doc := NewDocument(id)
	doc.Set("uid", uid)
	doc.Set("city", city)
	doc.Set("cn", name)
	return doc
}

func createPeopleIndexes(t *testing.T, m *Manager) {
	t.Helper()
	for name, typ := range map[string]IndexType{
		"uid":  IndexUnique,
		"city": IndexDuplicate,
		"cn":   IndexSubstring,
	} {
		if err := m.CreateIndex(name, typ); err != nil {
			t.Fatalf("failed to create index %s: %v", name, err)
		}
	}
}

func TestIndexTypeString(t *testing.T) {
	tests := []struct {
		indexType IndexType
		expected  string
	}{
		{IndexUnique, "unique"},
		{IndexDuplicate, "duplicate"},
		{IndexSubstring, "substring"},
		{IndexType(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.indexType.String(); got != tt.expected {
				t.Errorf("String() = %s, want %s", got, tt.expected)
			}
			if tt.expected == "unknown" {
				return
			}
			parsed, ok := ParseIndexType(" " + tt.expected + " ")
			if !ok || parsed != tt.indexType {
				t.Errorf("ParseIndexType(%q) = %v, %v", tt.expected, parsed, ok)
			}
		})
	}
}

func TestDocumentFields(t *testing.T) {
	doc := NewDocument(7)
	doc.Set("Mail", "a@example.com", "b@example.com")

	if got := doc.Get("MAIL"); len(got) != 2 {
		t.Errorf("expected 2 values, got %v", got)
	}
	if got := doc.Get("missing"); got != nil {
		t.Errorf("expected nil for missing field, got %v", got)
	}

	doc.Fields["Phone"] = []string{"555"}
	if got := doc.Get("phone"); len(got) != 1 {
		t.Errorf("expected raw field lookup to ignore case, got %v", got)
	}
}

func TestCreateIndex(t *testing.T) {
	m, dir := createTestManager(t)

	if err := m.CreateIndex("UID ", IndexUnique); err != nil {
		t.Fatalf("failed to create index: %v", err)
	}
	if !m.HasIndex("uid") {
		t.Error("index should exist after creation")
	}
	idx, ok := m.GetIndex("Uid")
	if !ok || idx.Type != IndexUnique {
		t.Errorf("unexpected index %+v", idx)
	}
	if _, err := os.Stat(filepath.Join(dir, "uid.idx")); err != nil {
		t.Errorf("index file missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, CatalogFile)); err != nil {
		t.Errorf("catalog missing: %v", err)
	}

	err := m.CreateIndex("uid", IndexDuplicate)
	if !errors.Is(err, ErrIndexExists) {
		t.Errorf("expected ErrIndexExists, got %v", err)
	}
}

func TestCreateIndexInvalidName(t *testing.T) {
	m, _ := createTestManager(t)

	for _, name := range []string{"", "   ", "../etc", "a/b", ".hidden", string(make([]byte, MaxIndexNameLength+1))} {
		if err := m.CreateIndex(name, IndexUnique); !errors.Is(err, ErrInvalidName) {
			t.Errorf("CreateIndex(%q): expected ErrInvalidName, got %v", name, err)
		}
	}

	if err := m.CreateIndex("ok", IndexType(42)); err == nil {
		t.Error("expected error for unknown index type")
	}
}

func TestDropIndex(t *testing.T) {
	m, dir := createTestManager(t)

	if err := m.CreateIndex("city", IndexDuplicate); err != nil {
		t.Fatalf("failed to create index: %v", err)
	}
	if err := m.DropIndex("CITY"); err != nil {
		t.Fatalf("failed to drop index: %v", err)
	}
	if m.HasIndex("city") {
		t.Error("index should not exist after drop")
	}
	if _, err := os.Stat(filepath.Join(dir, "city.idx")); !os.IsNotExist(err) {
		t.Errorf("index file should be removed, stat err = %v", err)
	}

	if err := m.DropIndex("city"); !errors.Is(err, ErrIndexNotFound) {
		t.Errorf("expected ErrIndexNotFound, got %v", err)
	}
}

func TestRecreateDroppedIndexStartsEmpty(t *testing.T) {
	m, _ := createTestManager(t)

	if err := m.CreateIndex("city", IndexDuplicate); err != nil {
		t.Fatalf("failed to create index: %v", err)
	}
	if err := m.IndexDocument(person(1, "alice", "ankara", "Alice")); err != nil {
		t.Fatalf("failed to index document: %v", err)
	}
	if err := m.DropIndex("city"); err != nil {
		t.Fatalf("failed to drop index: %v", err)
	}
	if err := m.CreateIndex("city", IndexUnique); err != nil {
		t.Fatalf("failed to recreate index: %v", err)
	}

	count, err := m.Count("city")
	if err != nil {
		t.Fatalf("failed to count: %v", err)
	}
	if count != 0 {
		t.Errorf("recreated index should be empty, has %d entries", count)
	}
}

func TestIndexDocumentAndLookup(t *testing.T) {
	m, _ := createTestManager(t)
	createPeopleIndexes(t, m)

	docs := []*Document{
		person(1, "alice", "ankara", "Alice Admin"),
		person(2, "bob", "izmir", "Bob Builder"),
		person(3, "carol", "ankara", "Carol Administrator"),
		person(4, "dave", "bursa", "Dave"),
	}
	for _, doc := range docs {
		if err := m.IndexDocument(doc); err != nil {
			t.Fatalf("failed to index document %d: %v", doc.ID, err)
		}
	}

	ids, err := m.Lookup("uid", "bob")
	if err != nil {
		t.Fatalf("failed to look up: %v", err)
	}
	if !slices.Equal(ids, []uint64{2}) {
		t.Errorf("Lookup(uid, bob) = %v, want [2]", ids)
	}

	ids, err = m.Lookup("city", "ankara")
	if err != nil {
		t.Fatalf("failed to look up: %v", err)
	}
	slices.Sort(ids)
	if !slices.Equal(ids, []uint64{1, 3}) {
		t.Errorf("Lookup(city, ankara) = %v, want [1 3]", ids)
	}

	ids, err = m.Lookup("city", "van")
	if err != nil {
		t.Fatalf("failed to look up: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("expected no ids for missing value, got %v", ids)
	}

	count, err := m.Count("city")
	if err != nil {
		t.Fatalf("failed to count: %v", err)
	}
	if count != 4 {
		t.Errorf("expected 4 city entries, got %d", count)
	}
}

func TestIndexDocumentUniqueViolationLeavesNothing(t *testing.T) {
	m, _ := createTestManager(t)
	createPeopleIndexes(t, m)

	if err := m.IndexDocument(person(1, "alice", "ankara", "Alice")); err != nil {
		t.Fatalf("failed to index document: %v", err)
	}

	err := m.IndexDocument(person(2, "alice", "izmir", "Impostor"))
	if !errors.Is(err, ErrUniqueViolation) {
		t.Fatalf("expected ErrUniqueViolation, got %v", err)
	}

	ids, err := m.Lookup("city", "izmir")
	if err != nil {
		t.Fatalf("failed to look up: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("rejected document leaked into city index: %v", ids)
	}
	ids, err = m.Search("cn", "*impostor*")
	if err != nil {
		t.Fatalf("failed to search: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("rejected document leaked into cn index: %v", ids)
	}
}

func TestIndexDocumentIsIdempotentForUnique(t *testing.T) {
	m, _ := createTestManager(t)
	if err := m.CreateIndex("uid", IndexUnique); err != nil {
		t.Fatalf("failed to create index: %v", err)
	}

	doc := NewDocument(9)
	doc.Set("uid", "zed", "zed")
	for i := 0; i < 2; i++ {
		if err := m.IndexDocument(doc); err != nil {
			t.Fatalf("failed to index document (pass %d): %v", i, err)
		}
	}

	count, err := m.Count("uid")
	if err != nil {
		t.Fatalf("failed to count: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 entry, got %d", count)
	}
}

func TestRemoveDocument(t *testing.T) {
	m, _ := createTestManager(t)
	createPeopleIndexes(t, m)

	alice := person(1, "alice", "ankara", "Alice Admin")
	carol := person(3, "carol", "ankara", "Carol Administrator")
	for _, doc := range []*Document{alice, carol} {
		if err := m.IndexDocument(doc); err != nil {
			t.Fatalf("failed to index document: %v", err)
		}
	}

	if err := m.RemoveDocument(alice); err != nil {
		t.Fatalf("failed to remove document: %v", err)
	}

	if ids, _ := m.Lookup("uid", "alice"); len(ids) != 0 {
		t.Errorf("alice should be gone from uid, got %v", ids)
	}
	if ids, _ := m.Lookup("city", "ankara"); !slices.Equal(ids, []uint64{3}) {
		t.Errorf("Lookup(city, ankara) = %v, want [3]", ids)
	}
	if ids, _ := m.Search("cn", "*admin*"); !slices.Equal(ids, []uint64{3}) {
		t.Errorf("Search(cn, *admin*) = %v, want [3]", ids)
	}
}

func TestRemoveDocumentKeepsOtherOwner(t *testing.T) {
	m, _ := createTestManager(t)
	if err := m.CreateIndex("uid", IndexUnique); err != nil {
		t.Fatalf("failed to create index: %v", err)
	}
	if err := m.IndexDocument(person(1, "alice", "", "")); err != nil {
		t.Fatalf("failed to index document: %v", err)
	}

	// A stale copy under another id must not remove the live entry.
	if err := m.RemoveDocument(person(2, "alice", "", "")); err != nil {
		t.Fatalf("failed to remove document: %v", err)
	}
	if ids, _ := m.Lookup("uid", "alice"); !slices.Equal(ids, []uint64{1}) {
		t.Errorf("Lookup(uid, alice) = %v, want [1]", ids)
	}
}

func TestUpdateDocument(t *testing.T) {
	m, _ := createTestManager(t)
	createPeopleIndexes(t, m)

	old := person(1, "alice", "ankara", "Alice")
	if err := m.IndexDocument(old); err != nil {
		t.Fatalf("failed to index document: %v", err)
	}
	if err := m.IndexDocument(person(2, "bob", "izmir", "Bob")); err != nil {
		t.Fatalf("failed to index document: %v", err)
	}

	moved := person(1, "alice", "izmir", "Alice")
	if err := m.UpdateDocument(old, moved); err != nil {
		t.Fatalf("failed to update document: %v", err)
	}
	ids, _ := m.Lookup("city", "izmir")
	slices.Sort(ids)
	if !slices.Equal(ids, []uint64{1, 2}) {
		t.Errorf("Lookup(city, izmir) = %v, want [1 2]", ids)
	}

	// Taking bob's uid fails and restores the previous state.
	clash := person(1, "bob", "bursa", "Alice")
	if err := m.UpdateDocument(moved, clash); !errors.Is(err, ErrUniqueViolation) {
		t.Fatalf("expected ErrUniqueViolation, got %v", err)
	}
	if ids, _ := m.Lookup("uid", "alice"); !slices.Equal(ids, []uint64{1}) {
		t.Errorf("alice should be restored, got %v", ids)
	}

	if err := m.UpdateDocument(moved, person(5, "alice", "", "")); err == nil {
		t.Error("expected error when the id changes")
	}
}

func TestUpdateDocumentIsAtomicForReaders(t *testing.T) {
	m, _ := createTestManager(t)
	createPeopleIndexes(t, m)

	docs := []*Document{
		person(1, "alice", "ankara", "Alice"),
		person(1, "alice", "izmir", "Alice"),
	}
	if err := m.IndexDocument(docs[0]); err != nil {
		t.Fatalf("failed to index document: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 8)

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			if err := m.UpdateDocument(docs[i%2], docs[(i+1)%2]); err != nil {
				errs <- err
				return
			}
		}
	}()

	for r := 0; r < 3; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				ids, err := m.Lookup("uid", "alice")
				if err != nil {
					errs <- err
					return
				}
				if !slices.Equal(ids, []uint64{1}) {
					errs <- errors.Newf("Lookup(uid, alice) = %v during update", ids)
					return
				}
			}
		}()
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent operation failed: %v", err)
	}
}

func TestRange(t *testing.T) {
	m, _ := createTestManager(t)
	if err := m.CreateIndex("uid", IndexUnique); err != nil {
		t.Fatalf("failed to create index: %v", err)
	}

	for i, uid := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		doc := NewDocument(uint64(i + 1))
		doc.Set("uid", uid)
		if err := m.IndexDocument(doc); err != nil {
			t.Fatalf("failed to index document: %v", err)
		}
	}

	ids, err := m.Range("uid", "c", "f")
	if err != nil {
		t.Fatalf("failed to range: %v", err)
	}
	if !slices.Equal(ids, []uint64{3, 4, 5, 6}) {
		t.Errorf("Range(c, f) = %v, want [3 4 5 6]", ids)
	}

	ids, err = m.Range("uid", "x", "z")
	if err != nil {
		t.Fatalf("failed to range: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("expected empty range, got %v", ids)
	}
}

func TestSearch(t *testing.T) {
	m, _ := createTestManager(t)
	if err := m.CreateIndex("cn", IndexSubstring); err != nil {
		t.Fatalf("failed to create index: %v", err)
	}

	names := map[uint64]string{
		1: "Alice Admin",
		2: "Bob Builder",
		3: "Carol Administrator",
		4: "Sysadmin Team",
	}
	for id, name := range names {
		doc := NewDocument(id)
		doc.Set("cn", name)
		if err := m.IndexDocument(doc); err != nil {
			t.Fatalf("failed to index document: %v", err)
		}
	}

	tests := []struct {
		pattern  string
		expected []uint64
	}{
		{"*admin*", []uint64{1, 3, 4}},
		{"*ADMIN*", []uint64{1, 3, 4}},
		{"*builder", []uint64{2}},
		{"car*tor", []uint64{3}},
		{"*nobody*", nil},
	}

	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			ids, err := m.Search("cn", tt.pattern)
			if err != nil {
				t.Fatalf("failed to search: %v", err)
			}
			if !slices.Equal(ids, tt.expected) {
				t.Errorf("Search(%q) = %v, want %v", tt.pattern, ids, tt.expected)
			}
			for _, id := range ids {
				if !MatchesPattern(names[id], tt.pattern) {
					t.Errorf("candidate %d (%q) does not match %q", id, names[id], tt.pattern)
				}
			}
		})
	}

	if _, err := m.Search("cn", "*ad*"); !errors.Is(err, ErrPatternTooShort) {
		t.Errorf("expected ErrPatternTooShort, got %v", err)
	}
}

func TestWrongIndexType(t *testing.T) {
	m, _ := createTestManager(t)
	createPeopleIndexes(t, m)

	if _, err := m.Lookup("cn", "alice"); !errors.Is(err, ErrWrongIndexType) {
		t.Errorf("Lookup on substring: expected ErrWrongIndexType, got %v", err)
	}
	if _, err := m.Range("cn", "a", "b"); !errors.Is(err, ErrWrongIndexType) {
		t.Errorf("Range on substring: expected ErrWrongIndexType, got %v", err)
	}
	if _, err := m.Search("uid", "*alice*"); !errors.Is(err, ErrWrongIndexType) {
		t.Errorf("Search on unique: expected ErrWrongIndexType, got %v", err)
	}
}

func TestIndexNotFound(t *testing.T) {
	m, _ := createTestManager(t)

	if _, err := m.Lookup("nope", "x"); !errors.Is(err, ErrIndexNotFound) {
		t.Errorf("expected ErrIndexNotFound, got %v", err)
	}
	if _, err := m.Count("nope"); !errors.Is(err, ErrIndexNotFound) {
		t.Errorf("expected ErrIndexNotFound, got %v", err)
	}
}

func TestIndexes(t *testing.T) {
	m, _ := createTestManager(t)
	createPeopleIndexes(t, m)

	if got := m.Indexes(); !slices.Equal(got, []string{"city", "cn", "uid"}) {
		t.Errorf("Indexes() = %v", got)
	}
}

func TestManagerPersistence(t *testing.T) {
	dir := t.TempDir()

	func() {
		m, err := Open(dir, testOptions())
		if err != nil {
			t.Fatalf("failed to open index manager: %v", err)
		}
		defer m.Close()

		createPeopleIndexes(t, m)
		for i := uint64(1); i <= 50; i++ {
			doc := NewDocument(i)
			doc.Set("uid", string(rune('a'+i%26))+string(rune('a'+i/26)))
			doc.Set("city", []string{"ankara", "izmir", "bursa"}[i%3])
			if err := m.IndexDocument(doc); err != nil {
				t.Fatalf("failed to index document %d: %v", i, err)
			}
		}
	}()

	m, err := Open(dir, testOptions())
	if err != nil {
		t.Fatalf("failed to reopen index manager: %v", err)
	}
	defer m.Close()

	if got := m.Indexes(); !slices.Equal(got, []string{"city", "cn", "uid"}) {
		t.Errorf("Indexes() after reopen = %v", got)
	}
	idx, _ := m.GetIndex("city")
	if idx.Type != IndexDuplicate {
		t.Errorf("city type should persist, got %v", idx.Type)
	}

	count, err := m.Count("uid")
	if err != nil {
		t.Fatalf("failed to count: %v", err)
	}
	if count != 50 {
		t.Errorf("expected 50 uid entries, got %d", count)
	}
	ids, err := m.Lookup("city", "izmir")
	if err != nil {
		t.Fatalf("failed to look up: %v", err)
	}
	if len(ids) != 17 {
		t.Errorf("expected 17 documents in izmir, got %d", len(ids))
	}
	if err := m.Verify(); err != nil {
		t.Errorf("verify after reopen: %v", err)
	}
}

func TestCorruptCatalog(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, CatalogFile), []byte("indexes: [unclosed"), 0644); err != nil {
		t.Fatalf("failed to write catalog: %v", err)
	}

	_, err := Open(dir, testOptions())
	if !storage.IsCorrupted(err) {
		t.Errorf("expected corruption error, got %v", err)
	}
}

func TestCloseManager(t *testing.T) {
	m, _ := createTestManager(t)
	createPeopleIndexes(t, m)

	if err := m.Close(); err != nil {
		t.Fatalf("failed to close: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Errorf("second close should be a no-op, got %v", err)
	}

	if err := m.CreateIndex("mail", IndexUnique); !errors.Is(err, ErrManagerClosed) {
		t.Errorf("expected ErrManagerClosed, got %v", err)
	}
	if err := m.IndexDocument(NewDocument(1)); !errors.Is(err, ErrManagerClosed) {
		t.Errorf("expected ErrManagerClosed, got %v", err)
	}
	if _, err := m.Lookup("uid", "x"); !errors.Is(err, ErrManagerClosed) {
		t.Errorf("expected ErrManagerClosed, got %v", err)
	}
}

func TestConcurrentIndexOperations(t *testing.T) {
	m, _ := createTestManager(t)
	createPeopleIndexes(t, m)

	var wg sync.WaitGroup
	errs := make(chan error, 40)
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 10; i++ {
				id := uint64(w*100 + i)
				doc := NewDocument(id)
				doc.Set("uid", filepath.Join("u", string(rune('a'+w)), string(rune('a'+i))))
				doc.Set("city", "ankara")
				if err := m.IndexDocument(doc); err != nil {
					errs <- err
				}
				if _, err := m.Lookup("city", "ankara"); err != nil {
					errs <- err
				}
			}
		}(w)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent operation failed: %v", err)
	}
	count, err := m.Count("city")
	if err != nil {
		t.Fatalf("failed to count: %v", err)
	}
	if count != 40 {
		t.Errorf("expected 40 city entries, got %d", count)
	}
}

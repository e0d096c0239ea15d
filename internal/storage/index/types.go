package index

import (
	"strings"

	"github.com/KilimcininKorOglu/obaidx/internal/storage/btree"
)

// IndexType selects how a field's values are keyed.
type IndexType int

const (
	// IndexUnique maps each value to exactly one document.
	IndexUnique IndexType = iota
	// IndexDuplicate allows many documents per value.
	IndexDuplicate
	// IndexSubstring keys documents by the trigrams of their values.
	IndexSubstring
)

// String returns the catalog name of the index type.
func (t IndexType) String() string {
	switch t {
	case IndexUnique:
		return "unique"
	case IndexDuplicate:
		return "duplicate"
	case IndexSubstring:
		return "substring"
	default:
		return "unknown"
	}
}

// ParseIndexType parses a catalog type name.
func ParseIndexType(s string) (IndexType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "unique":
		return IndexUnique, true
	case "duplicate":
		return IndexDuplicate, true
	case "substring":
		return IndexSubstring, true
	default:
		return 0, false
	}
}

// allowsDuplicates reports whether the backing tree stores repeated keys.
func (t IndexType) allowsDuplicates() bool {
	return t != IndexUnique
}

// Index is one named index and its backing tree. The name is also the
// document field it covers.
type Index struct {
	Name string
	Type IndexType

	path string
	tree *btree.Tree[string, uint64]
}

// Document is the unit being indexed: an id and its field values.
type Document struct {
	ID     uint64
	Fields map[string][]string
}

// NewDocument creates an empty document with the given id.
func NewDocument(id uint64) *Document {
	return &Document{
		ID:     id,
		Fields: make(map[string][]string),
	}
}

// Set replaces the values of a field. Field names are case-insensitive.
func (d *Document) Set(field string, values ...string) {
	d.Fields[normalizeName(field)] = values
}

// Get returns the values of a field, matching its name case-insensitively.
func (d *Document) Get(field string) []string {
	if values, ok := d.Fields[normalizeName(field)]; ok {
		return values
	}
	for name, values := range d.Fields {
		if strings.EqualFold(name, field) {
			return values
		}
	}
	return nil
}

// normalizeName lowercases and trims index and field names.
func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// uniqueValues returns values without repeats, keeping first occurrences.
func uniqueValues(values []string) []string {
	if len(values) < 2 {
		return values
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

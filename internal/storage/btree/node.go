package btree

// bias selects which end of a run of equal keys a search lands on.
type bias int

const (
	// moveLeft lands on the first of equal keys.
	moveLeft bias = iota
	// moveRight lands on the last of equal keys.
	moveRight
)

// Entry is a key/value pair stored in a leaf.
type Entry[K, V any] struct {
	Key   K
	Value V
}

// Node is an in-memory B+ tree node. Leaves hold keys with parallel
// values; internal nodes hold separator keys and len(keys)+1 child ids.
// For internal nodes every key in children[i] is <= keys[i] <= every key
// in children[i+1].
type Node[K, V any] struct {
	id       uint64
	leaf     bool
	keys     []K
	values   []V
	children []uint64
}

func newNode[K, V any](id uint64, leaf bool) *Node[K, V] {
	return &Node[K, V]{id: id, leaf: leaf}
}

// ID returns the node id, which is also its record id.
func (n *Node[K, V]) ID() uint64 {
	return n.id
}

// IsLeaf reports whether the node is a leaf.
func (n *Node[K, V]) IsLeaf() bool {
	return n.leaf
}

// Len returns the number of keys.
func (n *Node[K, V]) Len() int {
	return len(n.keys)
}

// Key returns the key at index i.
func (n *Node[K, V]) Key(i int) K {
	return n.keys[i]
}

// Value returns the value at index i of a leaf.
func (n *Node[K, V]) Value(i int) V {
	return n.values[i]
}

// Child returns the child id at index i of an internal node.
func (n *Node[K, V]) Child(i int) uint64 {
	return n.children[i]
}

// overflows reports whether the node holds more keys than order allows.
func (n *Node[K, V]) overflows(order int) bool {
	return len(n.keys) > order
}

// find binary-searches for key. When found, idx is the first (moveLeft) or
// last (moveRight) matching index; otherwise idx is the insertion point.
func (n *Node[K, V]) find(key K, compare func(a, b K) int, b bias) (int, bool) {
	lo, hi := 0, len(n.keys)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		c := compare(n.keys[mid], key)
		if c < 0 || (b == moveRight && c == 0) {
			lo = mid + 1
		} else {
			hi = mid
		}
	}

	if b == moveRight {
		if lo > 0 && compare(n.keys[lo-1], key) == 0 {
			return lo - 1, true
		}
		return lo, false
	}
	return lo, lo < len(n.keys) && compare(n.keys[lo], key) == 0
}

// childIndex picks the child to descend into for key. moveLeft takes the
// leftmost subtree that may hold key, moveRight the rightmost.
func (n *Node[K, V]) childIndex(key K, compare func(a, b K) int, b bias) int {
	idx, found := n.find(key, compare, b)
	if found && b == moveRight {
		return idx + 1
	}
	return idx
}

// insertEntry inserts a key/value pair at index i of a leaf.
func (n *Node[K, V]) insertEntry(i int, key K, value V) {
	n.keys = insertAt(n.keys, i, key)
	n.values = insertAt(n.values, i, value)
}

// removeEntry removes the pair at index i of a leaf.
func (n *Node[K, V]) removeEntry(i int) {
	n.keys = removeAt(n.keys, i)
	n.values = removeAt(n.values, i)
}

// insertChild inserts a separator at index i with child to its right.
func (n *Node[K, V]) insertChild(i int, key K, child uint64) {
	n.keys = insertAt(n.keys, i, key)
	n.children = insertAt(n.children, i+1, child)
}

// split moves the upper half of n into right and returns the separator to
// promote. Leaves copy the first right key up; internal nodes push the
// median key up and keep it in neither half.
func (n *Node[K, V]) split(right *Node[K, V]) K {
	mid := len(n.keys) / 2

	if n.leaf {
		right.keys = append([]K(nil), n.keys[mid:]...)
		right.values = append([]V(nil), n.values[mid:]...)
		n.keys = clip(n.keys[:mid])
		n.values = clip(n.values[:mid])
		return right.keys[0]
	}

	promoted := n.keys[mid]
	right.keys = append([]K(nil), n.keys[mid+1:]...)
	right.children = append([]uint64(nil), n.children[mid+1:]...)
	n.keys = clip(n.keys[:mid])
	n.children = clip(n.children[:mid+1])
	return promoted
}

func insertAt[T any](s []T, i int, v T) []T {
	var zero T
	s = append(s, zero)
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}

func removeAt[T any](s []T, i int) []T {
	copy(s[i:], s[i+1:])
	var zero T
	s[len(s)-1] = zero
	return s[:len(s)-1]
}

// clip drops the spare capacity so later appends cannot overwrite data
// that moved to a sibling.
func clip[T any](s []T) []T {
	return s[:len(s):len(s)]
}

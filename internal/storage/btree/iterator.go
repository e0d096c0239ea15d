package btree

// Direction is the order in which a Traverser visits entries.
type Direction int

const (
	// Ascending visits keys from smallest to largest.
	Ascending Direction = iota
	// Descending visits keys from largest to smallest.
	Descending
)

// frame is one step of a root-to-leaf path: an internal node and the index
// of the child that was taken.
type frame[K, V any] struct {
	node  *Node[K, V]
	index int
}

// Traverser walks leaf entries in one direction. It keeps the descent path
// so moving to a neighbouring leaf climbs only as far as the nearest
// ancestor with a sibling subtree instead of searching from the root.
type Traverser[K, V any] struct {
	nodes *NodeManager[K, V]
	dir   Direction
	path  []frame[K, V]
	leaf  *Node[K, V]
	pos   int
	err   error
	done  bool
}

func newTraverser[K, V any](nodes *NodeManager[K, V], path []frame[K, V], leaf *Node[K, V], pos int, dir Direction) *Traverser[K, V] {
	return &Traverser[K, V]{nodes: nodes, dir: dir, path: path, leaf: leaf, pos: pos}
}

// Next returns the entry at the current position and advances.
func (tr *Traverser[K, V]) Next() (Entry[K, V], bool) {
	var zero Entry[K, V]
	if tr.done {
		return zero, false
	}

	for tr.pos < 0 || tr.pos >= len(tr.leaf.keys) {
		if !tr.nextLeaf() {
			tr.done = true
			return zero, false
		}
	}

	e := Entry[K, V]{Key: tr.leaf.keys[tr.pos], Value: tr.leaf.values[tr.pos]}
	if tr.dir == Ascending {
		tr.pos++
	} else {
		tr.pos--
	}
	return e, true
}

// Err returns the error that stopped the traversal, if any.
func (tr *Traverser[K, V]) Err() error {
	return tr.err
}

// position returns the leaf and index of the entry last returned by Next.
func (tr *Traverser[K, V]) position() (*Node[K, V], int) {
	if tr.dir == Ascending {
		return tr.leaf, tr.pos - 1
	}
	return tr.leaf, tr.pos + 1
}

// nextLeaf moves to the neighbouring leaf in the traversal direction.
func (tr *Traverser[K, V]) nextLeaf() bool {
	// Climb until an ancestor has a child beyond the one we came from.
	for {
		if len(tr.path) == 0 {
			return false
		}
		top := &tr.path[len(tr.path)-1]
		if top.index < 0 || top.index >= len(top.node.children) {
			tr.err = corruptf("node %d has no child %d", top.node.id, top.index)
			return false
		}
		if tr.dir == Ascending && top.index+1 < len(top.node.children) {
			top.index++
			break
		}
		if tr.dir == Descending && top.index > 0 {
			top.index--
			break
		}
		tr.path = tr.path[:len(tr.path)-1]
	}

	// Descend to the nearest leaf of the new subtree.
	top := tr.path[len(tr.path)-1]
	node, err := tr.nodes.Find(top.node.children[top.index])
	if err != nil {
		tr.err = err
		return false
	}
	for !node.leaf {
		if len(node.children) == 0 {
			tr.err = corruptf("internal node %d has no children", node.id)
			return false
		}
		idx := 0
		if tr.dir == Descending {
			idx = len(node.children) - 1
		}
		tr.path = append(tr.path, frame[K, V]{node: node, index: idx})
		if node, err = tr.nodes.Find(node.children[idx]); err != nil {
			tr.err = err
			return false
		}
	}

	tr.leaf = node
	if tr.dir == Ascending {
		tr.pos = 0
	} else {
		tr.pos = len(node.keys) - 1
	}
	return true
}

// Iterator yields entries from a range query, stopping at an optional
// bound.
type Iterator[K, V any] struct {
	tr     *Traverser[K, V]
	stop   func(key K) bool
	err    error
	closed bool
}

// Next returns the next entry, or false when the range is exhausted or an
// error occurred.
func (it *Iterator[K, V]) Next() (Entry[K, V], bool) {
	var zero Entry[K, V]
	if it.closed || it.err != nil || it.tr == nil {
		return zero, false
	}

	e, ok := it.tr.Next()
	if !ok {
		it.err = it.tr.Err()
		return zero, false
	}
	if it.stop != nil && it.stop(e.Key) {
		it.closed = true
		return zero, false
	}
	return e, true
}

// Err returns the error that ended iteration, if any.
func (it *Iterator[K, V]) Err() error {
	return it.err
}

// Close stops the iterator.
func (it *Iterator[K, V]) Close() {
	it.closed = true
}

// Collect drains the iterator into a slice.
func (it *Iterator[K, V]) Collect() ([]Entry[K, V], error) {
	var entries []Entry[K, V]
	for {
		e, ok := it.Next()
		if !ok {
			break
		}
		entries = append(entries, e)
	}
	return entries, it.Err()
}

// errIterator returns an iterator that yields nothing and reports err.
func errIterator[K, V any](err error) *Iterator[K, V] {
	return &Iterator[K, V]{err: err}
}

package btree

// Get returns the entry with the given key. For duplicate trees it returns
// the first entry with that key. Absence is reported as found == false.
func (t *Tree[K, V]) Get(key K) (Entry[K, V], bool, error) {
	var zero Entry[K, V]

	// The entry is read under the lock; writers mutate cached leaves in place.
	t.mu.RLock()
	defer t.mu.RUnlock()

	tr, err := t.seek(key, moveLeft, false, Ascending)
	if err != nil {
		return zero, false, err
	}

	e, ok := tr.Next()
	if !ok {
		return zero, false, tr.Err()
	}
	if t.compare(e.Key, key) != 0 {
		return zero, false, nil
	}
	return e, true, nil
}

// LargerThan returns entries with keys > key in ascending order.
func (t *Tree[K, V]) LargerThan(key K) *Iterator[K, V] {
	return t.query(key, moveRight, false, Ascending, nil)
}

// LargerThanOrEqualTo returns entries with keys >= key in ascending order.
func (t *Tree[K, V]) LargerThanOrEqualTo(key K) *Iterator[K, V] {
	return t.query(key, moveLeft, false, Ascending, nil)
}

// LessThan returns entries with keys < key in descending order.
func (t *Tree[K, V]) LessThan(key K) *Iterator[K, V] {
	return t.query(key, moveLeft, true, Descending, nil)
}

// LessThanOrEqualTo returns entries with keys <= key in descending order.
func (t *Tree[K, V]) LessThanOrEqualTo(key K) *Iterator[K, V] {
	return t.query(key, moveRight, true, Descending, nil)
}

// EqualTo returns every entry whose key equals key: the intersection of
// LargerThanOrEqualTo and LessThanOrEqualTo. Order among equal keys
// follows insertion and is not guaranteed.
func (t *Tree[K, V]) EqualTo(key K) *Iterator[K, V] {
	return t.query(key, moveLeft, false, Ascending, func(k K) bool {
		return t.compare(k, key) > 0
	})
}

// Range returns entries with lo <= key <= hi in ascending order.
func (t *Tree[K, V]) Range(lo, hi K) *Iterator[K, V] {
	return t.query(lo, moveLeft, false, Ascending, func(k K) bool {
		return t.compare(k, hi) > 0
	})
}

// All returns every entry in ascending order.
func (t *Tree[K, V]) All() *Iterator[K, V] {
	return t.scan(Ascending)
}

// AllDescending returns every entry in descending order.
func (t *Tree[K, V]) AllDescending() *Iterator[K, V] {
	return t.scan(Descending)
}

func (t *Tree[K, V]) query(key K, b bias, before bool, dir Direction, stop func(K) bool) *Iterator[K, V] {
	t.mu.RLock()
	defer t.mu.RUnlock()

	tr, err := t.seek(key, b, before, dir)
	if err != nil {
		return errIterator[K, V](err)
	}
	return &Iterator[K, V]{tr: tr, stop: stop}
}

func (t *Tree[K, V]) scan(dir Direction) *Iterator[K, V] {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.closed {
		return errIterator[K, V](ErrClosed)
	}

	path, leaf, err := t.edge(dir == Descending)
	if err != nil {
		return errIterator[K, V](err)
	}
	pos := 0
	if dir == Descending {
		pos = len(leaf.keys) - 1
	}
	return &Iterator[K, V]{tr: newTraverser(t.nodes, path, leaf, pos, dir)}
}

// seek positions a traverser relative to key. With moveLeft the search
// lands on the first entry >= key, with moveRight on the first entry
// > key; before steps one entry back from there. Caller holds the lock.
func (t *Tree[K, V]) seek(key K, b bias, before bool, dir Direction) (*Traverser[K, V], error) {
	if t.closed {
		return nil, ErrClosed
	}

	path, leaf, err := t.descend(key, b)
	if err != nil {
		return nil, err
	}

	pos, found := leaf.find(key, t.compare, b)
	if found && b == moveRight {
		pos++
	}
	if before {
		pos--
	}
	return newTraverser(t.nodes, path, leaf, pos, dir), nil
}

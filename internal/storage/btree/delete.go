package btree

import "github.com/cockroachdb/errors"

// Delete removes key from a unique tree and reports whether it was
// present. Nodes are not merged or rebalanced afterwards; a leaf may be
// left empty. On a duplicate tree it returns ErrInvalidOperation.
func (t *Tree[K, V]) Delete(key K) (bool, error) {
	if t.duplicates {
		return false, errors.Wrap(ErrInvalidOperation, "Delete(key) on a duplicate-key tree; use DeleteValue")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return false, ErrClosed
	}

	_, leaf, err := t.descend(key, moveRight)
	if err != nil {
		return false, err
	}
	pos, found := leaf.find(key, t.compare, moveRight)
	if !found {
		return false, nil
	}

	leaf.removeEntry(pos)
	t.nodes.MarkDirty(leaf)
	if err := t.nodes.SaveChanges(); err != nil {
		t.nodes.Discard()
		return false, err
	}
	return true, nil
}

// DeleteValue removes every entry of a duplicate tree whose key equals key
// and whose value compares equal to value. A nil compare falls back to
// Options.CompareValues. It returns the number of entries removed. On a
// unique tree it returns ErrInvalidOperation.
func (t *Tree[K, V]) DeleteValue(key K, value V, compare func(a, b V) int) (int, error) {
	if !t.duplicates {
		return 0, errors.Wrap(ErrInvalidOperation, "DeleteValue on a unique-key tree; use Delete")
	}
	if compare == nil {
		compare = t.compareValues
	}
	if compare == nil {
		return 0, errors.Wrap(ErrInvalidOperation, "no value comparer configured")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return 0, ErrClosed
	}

	removed := 0
	for {
		// Search again after every removal so each pass sees the current
		// structure.
		ok, err := t.deleteFirstMatch(key, value, compare)
		if err != nil {
			t.nodes.Discard()
			return removed, err
		}
		if !ok {
			return removed, nil
		}
		if err := t.nodes.SaveChanges(); err != nil {
			t.nodes.Discard()
			return removed, err
		}
		removed++
	}
}

// deleteFirstMatch removes the first entry equal to key and value. Caller
// holds the write lock.
func (t *Tree[K, V]) deleteFirstMatch(key K, value V, compare func(a, b V) int) (bool, error) {
	tr, err := t.seek(key, moveLeft, false, Ascending)
	if err != nil {
		return false, err
	}

	for {
		e, ok := tr.Next()
		if !ok {
			return false, tr.Err()
		}
		if t.compare(e.Key, key) != 0 {
			return false, nil
		}
		if compare(e.Value, value) != 0 {
			continue
		}

		leaf, pos := tr.position()
		leaf.removeEntry(pos)
		t.nodes.MarkDirty(leaf)
		return true, nil
	}
}

package btree

// Stats describes the shape of a tree.
type Stats struct {
	Height        int
	Nodes         int
	InternalNodes int
	Leaves        int
	EmptyLeaves   int
	Entries       int
}

// Stats walks the whole tree and reports its shape.
func (t *Tree[K, V]) Stats() (Stats, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var s Stats
	err := t.walk(func(n *Node[K, V], depth int) error {
		s.Nodes++
		if depth > s.Height {
			s.Height = depth
		}
		if !n.leaf {
			s.InternalNodes++
			return nil
		}
		s.Leaves++
		s.Entries += len(n.keys)
		if len(n.keys) == 0 {
			s.EmptyLeaves++
		}
		return nil
	})
	return s, err
}

// Verify checks the structural invariants of the whole tree: sorted keys,
// separator bounds, child arity, node size and uniform leaf depth. It
// returns an ErrTreeCorrupted error describing the first violation.
func (t *Tree[K, V]) Verify() error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.closed {
		return ErrClosed
	}

	root, err := t.nodes.Root()
	if err != nil {
		return err
	}

	leafDepth := 0
	var check func(n *Node[K, V], depth int, lo, hi *K) error
	check = func(n *Node[K, V], depth int, lo, hi *K) error {
		if len(n.keys) > t.order {
			return corruptf("node %d holds %d keys, order is %d", n.id, len(n.keys), t.order)
		}
		for i := range n.keys {
			if i > 0 {
				c := t.compare(n.keys[i-1], n.keys[i])
				if c > 0 || (c == 0 && !t.duplicates && n.leaf) {
					return corruptf("node %d keys out of order at %d", n.id, i)
				}
			}
			if lo != nil && t.compare(n.keys[i], *lo) < 0 {
				return corruptf("node %d key %d below its lower separator", n.id, i)
			}
			if hi != nil && t.compare(n.keys[i], *hi) > 0 {
				return corruptf("node %d key %d above its upper separator", n.id, i)
			}
		}

		if n.leaf {
			if len(n.values) != len(n.keys) {
				return corruptf("leaf %d has %d values for %d keys", n.id, len(n.values), len(n.keys))
			}
			if leafDepth == 0 {
				leafDepth = depth
			} else if depth != leafDepth {
				return corruptf("leaf %d at depth %d, expected %d", n.id, depth, leafDepth)
			}
			return nil
		}

		if len(n.children) != len(n.keys)+1 {
			return corruptf("internal node %d has %d children for %d keys", n.id, len(n.children), len(n.keys))
		}
		for i, id := range n.children {
			child, err := t.nodes.Find(id)
			if err != nil {
				return err
			}
			childLo, childHi := lo, hi
			if i > 0 {
				childLo = &n.keys[i-1]
			}
			if i < len(n.keys) {
				childHi = &n.keys[i]
			}
			if err := check(child, depth+1, childLo, childHi); err != nil {
				return err
			}
		}
		return nil
	}

	return check(root, 1, nil, nil)
}

// walk visits every node depth first. Caller holds the lock.
func (t *Tree[K, V]) walk(visit func(n *Node[K, V], depth int) error) error {
	if t.closed {
		return ErrClosed
	}

	root, err := t.nodes.Root()
	if err != nil {
		return err
	}

	var rec func(n *Node[K, V], depth int) error
	rec = func(n *Node[K, V], depth int) error {
		if err := visit(n, depth); err != nil {
			return err
		}
		for _, id := range n.children {
			child, err := t.nodes.Find(id)
			if err != nil {
				return err
			}
			if err := rec(child, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	return rec(root, 1)
}

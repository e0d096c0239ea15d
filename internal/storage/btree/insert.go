package btree

import "github.com/cockroachdb/errors"

// Insert adds a key/value pair. A unique tree rejects an existing key with
// ErrDuplicateKey; a duplicate tree places the entry after any equal keys.
// Splits propagate up the descent path and all changed nodes are saved
// before Insert returns.
func (t *Tree[K, V]) Insert(key K, value V) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrClosed
	}

	if err := t.insert(key, value); err != nil {
		t.nodes.Discard()
		return err
	}
	if err := t.nodes.SaveChanges(); err != nil {
		t.nodes.Discard()
		return err
	}
	return nil
}

// insert does the work of Insert. Caller holds the write lock.
func (t *Tree[K, V]) insert(key K, value V) error {
	path, leaf, err := t.descend(key, moveRight)
	if err != nil {
		return err
	}

	pos, found := leaf.find(key, t.compare, moveRight)
	if found {
		if !t.duplicates {
			return ErrDuplicateKey
		}
		pos++
	}

	leaf.insertEntry(pos, key, value)
	t.nodes.MarkDirty(leaf)

	return t.splitPath(path, leaf)
}

// splitPath splits node while it overflows, inserting each promoted
// separator into the parent from path. A root split grows the tree by one
// level.
func (t *Tree[K, V]) splitPath(path []frame[K, V], node *Node[K, V]) error {
	for node.overflows(t.order) {
		right, err := t.nodes.Create(node.leaf)
		if err != nil {
			return errors.Wrapf(err, "failed to split node %d", node.id)
		}
		promoted := node.split(right)
		t.nodes.MarkDirty(node)

		if len(path) == 0 {
			root, err := t.nodes.Create(false, node.id)
			if err != nil {
				return errors.Wrap(err, "failed to create new root")
			}
			root.insertChild(0, promoted, right.id)
			t.nodes.SetRoot(root)
			t.logger.Debug("tree grew", "root", root.id, "left", node.id, "right", right.id)
			return nil
		}

		parent := path[len(path)-1]
		path = path[:len(path)-1]

		parent.node.insertChild(parent.index, promoted, right.id)
		t.nodes.MarkDirty(parent.node)
		t.logger.Debug("split node", "node", node.id, "right", right.id, "parent", parent.node.id)

		node = parent.node
	}
	return nil
}

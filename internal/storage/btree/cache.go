package btree

import "container/list"

// nodeCache is an LRU cache of decoded nodes. It is not safe for
// concurrent use; NodeManager guards it.
type nodeCache[K, V any] struct {
	capacity int
	list     *list.List
	entries  map[uint64]*list.Element
}

func newNodeCache[K, V any](capacity int) *nodeCache[K, V] {
	return &nodeCache[K, V]{
		capacity: capacity,
		list:     list.New(),
		entries:  make(map[uint64]*list.Element),
	}
}

// get returns a cached node and marks it recently used.
func (c *nodeCache[K, V]) get(id uint64) (*Node[K, V], bool) {
	elem, ok := c.entries[id]
	if !ok {
		return nil, false
	}
	c.list.MoveToFront(elem)
	return elem.Value.(*Node[K, V]), true
}

// put adds or refreshes n, evicting the least recently used node that is
// not pinned when the cache is over capacity.
func (c *nodeCache[K, V]) put(n *Node[K, V], pinned map[uint64]*Node[K, V]) {
	if elem, ok := c.entries[n.id]; ok {
		elem.Value = n
		c.list.MoveToFront(elem)
		return
	}
	c.entries[n.id] = c.list.PushFront(n)

	for elem := c.list.Back(); c.list.Len() > c.capacity && elem != nil; {
		prev := elem.Prev()
		id := elem.Value.(*Node[K, V]).id
		if _, skip := pinned[id]; !skip {
			c.list.Remove(elem)
			delete(c.entries, id)
		}
		elem = prev
	}
}

// remove drops a node.
func (c *nodeCache[K, V]) remove(id uint64) {
	if elem, ok := c.entries[id]; ok {
		c.list.Remove(elem)
		delete(c.entries, id)
	}
}

// clear drops every node.
func (c *nodeCache[K, V]) clear() {
	c.list.Init()
	c.entries = make(map[uint64]*list.Element)
}

// size returns the number of cached nodes.
func (c *nodeCache[K, V]) size() int {
	return c.list.Len()
}

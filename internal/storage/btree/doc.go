// Package btree implements a disk-backed B+ tree over the record store.
//
// # Overview
//
// Every node is stored as one record, and its node id is that record id.
// Record 1 is the meta record: it holds the root id, the order, the
// duplicate-key flag and the names of the key and value encodings, so a
// file cannot be reopened with a different layout.
//
//   - Leaves hold sorted keys with their values
//   - Internal nodes hold separator keys and one more child id than keys
//   - A node splits once it holds more keys than the order
//   - Deletes never merge or rebalance nodes
//
// # Usage
//
//	tree, err := btree.Open("names.idx", btree.Options[string, string]{
//	    Keys:    codec.String,
//	    Values:  codec.String,
//	    Compare: codec.Compare[string],
//	})
//	defer tree.Close()
//
//	err = tree.Insert("m", "M")
//	e, found, err := tree.Get("m")
//
//	it := tree.LargerThan("m")
//	for e, ok := it.Next(); ok; e, ok = it.Next() {
//	    fmt.Println(e.Key, e.Value)
//	}
//	if err := it.Err(); err != nil { ... }
//
// # Duplicate Keys
//
// A tree opened with AllowDuplicateKeys accepts repeated keys. Delete(key)
// is rejected on such trees; DeleteValue(key, value, compare) removes the
// entries whose value matches instead.
//
// # Iteration
//
// Range queries return lazily evaluated iterators. LargerThan,
// LargerThanOrEqualTo, EqualTo, Range and All ascend; LessThan,
// LessThanOrEqualTo and AllDescending descend. An iterator remembers the
// path it descended and climbs only as far as needed to reach the next
// leaf. Iterators do not hold the tree lock while they are consumed;
// results are undefined if the tree is modified during iteration.
package btree

package btree

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"

	"github.com/KilimcininKorOglu/obaidx/internal/storage/codec"
)

// Node record layout:
//   - Byte 0:    kind (1 = leaf, 0 = internal)
//   - Bytes 1-4: key count (uint32)
//   - leaf:      count x ([key][value])
//   - internal:  child0 (uint64), count x ([key][child uint64])
//
// Variable-size keys and values carry a uint32 length prefix; fixed-size
// ones are written as is.
const (
	nodeKindInternal = 0
	nodeKindLeaf     = 1
	nodeHeaderSize   = 5
	childIDSize      = 8
	lengthPrefixSize = 4
)

// nodeCodec encodes nodes with a key and a value serializer.
type nodeCodec[K, V any] struct {
	keys   codec.Serializer[K]
	values codec.Serializer[V]
}

// encode serializes n into a new buffer.
func (c nodeCodec[K, V]) encode(n *Node[K, V]) []byte {
	buf := make([]byte, nodeHeaderSize, 256)
	if n.leaf {
		buf[0] = nodeKindLeaf
	}
	binary.LittleEndian.PutUint32(buf[1:5], uint32(len(n.keys)))

	if n.leaf {
		for i := range n.keys {
			buf = appendItem(buf, c.keys, n.keys[i])
			buf = appendItem(buf, c.values, n.values[i])
		}
		return buf
	}

	if len(n.children) == 0 {
		// Not yet linked; decode rejects it if it is ever read back.
		return buf
	}
	buf = binary.LittleEndian.AppendUint64(buf, n.children[0])
	for i := range n.keys {
		buf = appendItem(buf, c.keys, n.keys[i])
		buf = binary.LittleEndian.AppendUint64(buf, n.children[i+1])
	}
	return buf
}

// decode rebuilds the node stored under id.
func (c nodeCodec[K, V]) decode(id uint64, data []byte) (*Node[K, V], error) {
	if len(data) < nodeHeaderSize {
		return nil, corruptf("node %d: record of %d bytes is too short", id, len(data))
	}

	kind := data[0]
	if kind != nodeKindLeaf && kind != nodeKindInternal {
		return nil, corruptf("node %d: unknown kind %d", id, kind)
	}
	count := int(binary.LittleEndian.Uint32(data[1:5]))
	if count > len(data) {
		return nil, corruptf("node %d: key count %d exceeds record size", id, count)
	}
	r := &reader{buf: data, off: nodeHeaderSize}

	n := newNode[K, V](id, kind == nodeKindLeaf)
	n.keys = make([]K, 0, count)

	if n.leaf {
		n.values = make([]V, 0, count)
		for i := 0; i < count; i++ {
			k, err := readItem(r, c.keys)
			if err != nil {
				return nil, errors.Wrapf(err, "node %d key %d", id, i)
			}
			v, err := readItem(r, c.values)
			if err != nil {
				return nil, errors.Wrapf(err, "node %d value %d", id, i)
			}
			n.keys = append(n.keys, k)
			n.values = append(n.values, v)
		}
	} else {
		n.children = make([]uint64, 0, count+1)
		child, err := r.uint64()
		if err != nil {
			return nil, errors.Wrapf(err, "node %d child 0", id)
		}
		n.children = append(n.children, child)
		for i := 0; i < count; i++ {
			k, err := readItem(r, c.keys)
			if err != nil {
				return nil, errors.Wrapf(err, "node %d key %d", id, i)
			}
			child, err := r.uint64()
			if err != nil {
				return nil, errors.Wrapf(err, "node %d child %d", id, i+1)
			}
			n.keys = append(n.keys, k)
			n.children = append(n.children, child)
		}
	}

	if r.off != len(data) {
		return nil, corruptf("node %d: %d trailing bytes", id, len(data)-r.off)
	}
	return n, nil
}

func appendItem[T any](buf []byte, s codec.Serializer[T], v T) []byte {
	if _, fixed := s.FixedSize(); fixed {
		return s.Append(buf, v)
	}
	at := len(buf)
	buf = append(buf, 0, 0, 0, 0)
	buf = s.Append(buf, v)
	binary.LittleEndian.PutUint32(buf[at:], uint32(len(buf)-at-lengthPrefixSize))
	return buf
}

func readItem[T any](r *reader, s codec.Serializer[T]) (T, error) {
	var zero T

	size, fixed := s.FixedSize()
	if !fixed {
		n, err := r.uint32()
		if err != nil {
			return zero, err
		}
		size = int(n)
	}

	b, err := r.next(size)
	if err != nil {
		return zero, err
	}
	v, err := s.Decode(b)
	if err != nil {
		return zero, corruptf("undecodable %s item: %v", s.Name(), err)
	}
	return v, nil
}

// reader walks a node record.
type reader struct {
	buf []byte
	off int
}

func (r *reader) next(n int) ([]byte, error) {
	if n < 0 || r.off+n > len(r.buf) {
		return nil, corruptf("node record truncated at offset %d", r.off)
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *reader) uint32() (uint32, error) {
	b, err := r.next(lengthPrefixSize)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *reader) uint64() (uint64, error) {
	b, err := r.next(childIDSize)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

package storage

import (
	"encoding/binary"
	"io"

	"github.com/cockroachdb/errors"
)

// Header slot indexes.
const (
	// FieldNext is the id of the next block in a chain, 0 at the end.
	FieldNext = iota
	// FieldRecordLength is the total record length, kept on the first block.
	FieldRecordLength
	// FieldContentLength is the number of content bytes used by this block.
	FieldContentLength
	// FieldPrevious is the id of the previous block in a chain, 0 at the head.
	FieldPrevious
	// FieldDeleted is non-zero once the block has been released.
	FieldDeleted
	// FieldChecksum is the CRC32 of the used content.
	FieldChecksum

	// HeaderFieldCount is the number of header slots.
	HeaderFieldCount = 6
)

// HeaderFieldSize is the encoded size of one header slot.
const HeaderFieldSize = 8

// Block is a fixed-size unit of the medium. Header slots are cached in
// memory and written back by Flush; content writes go straight to the
// medium.
type Block struct {
	store  *BlockStore
	id     uint64
	header [HeaderFieldCount]uint64
	dirty  bool

	// prefix is the eagerly read start of the block, header included.
	prefix []byte
	// content is the whole content region once loaded, nil before.
	content []byte
}

// ID returns the block id.
func (b *Block) ID() uint64 {
	return b.id
}

// Header returns the value of a header slot.
func (b *Block) Header(field int) uint64 {
	return b.header[field]
}

// SetHeader changes a header slot. The change is persisted by Flush.
func (b *Block) SetHeader(field int, value uint64) {
	if b.header[field] == value {
		return
	}
	b.header[field] = value
	b.dirty = true
}

// ResetHeader zeroes every header slot.
func (b *Block) ResetHeader() {
	for i := range b.header {
		b.SetHeader(i, 0)
	}
}

// IsDeleted reports whether the deleted flag is set.
func (b *Block) IsDeleted() bool {
	return b.header[FieldDeleted] != 0
}

// Dirty reports whether header changes are waiting for Flush.
func (b *Block) Dirty() bool {
	return b.dirty
}

// Read copies content bytes starting at offset into dst and returns the
// number of bytes copied. Content outside the eagerly read prefix is loaded
// on first access.
func (b *Block) Read(dst []byte, offset int) (int, error) {
	contentSize := b.store.contentSize
	if offset < 0 || offset > contentSize {
		return 0, errors.Wrapf(ErrOutOfBounds, "read at %d in block %d", offset, b.id)
	}

	n := len(dst)
	if n > contentSize-offset {
		n = contentSize - offset
	}

	start := b.store.headerSize + offset
	if start+n <= len(b.prefix) {
		return copy(dst[:n], b.prefix[start:start+n]), nil
	}

	if err := b.loadContent(); err != nil {
		return 0, err
	}
	return copy(dst[:n], b.content[offset:offset+n]), nil
}

// Write writes src into the content region at offset.
func (b *Block) Write(src []byte, offset int) error {
	if offset < 0 || offset+len(src) > b.store.contentSize {
		return errors.Wrapf(ErrOutOfBounds, "write of %d bytes at %d in block %d", len(src), offset, b.id)
	}
	if err := b.store.checkOpen(); err != nil {
		return err
	}

	pos := b.store.blockOffset(b.id) + int64(b.store.headerSize+offset)
	if _, err := b.store.medium.WriteAt(src, pos); err != nil {
		return errors.Wrapf(err, "failed to write block %d", b.id)
	}

	if start := b.store.headerSize + offset; start < len(b.prefix) {
		copy(b.prefix[start:], src)
	}
	if b.content != nil {
		copy(b.content[offset:], src)
	}
	return nil
}

// Flush writes dirty header slots to the medium.
func (b *Block) Flush() error {
	if !b.dirty {
		return nil
	}
	if err := b.store.checkOpen(); err != nil {
		return err
	}

	buf := make([]byte, HeaderFieldCount*HeaderFieldSize)
	for i, v := range b.header {
		binary.LittleEndian.PutUint64(buf[i*HeaderFieldSize:], v)
	}

	if _, err := b.store.medium.WriteAt(buf, b.store.blockOffset(b.id)); err != nil {
		return errors.Wrapf(err, "failed to flush header of block %d", b.id)
	}
	copy(b.prefix, buf)
	b.dirty = false

	if b.store.opts.SyncOnWrite {
		return b.store.medium.Sync()
	}
	return nil
}

// loadContent reads the part of the content region not covered by prefix.
func (b *Block) loadContent() error {
	if b.content != nil {
		return nil
	}

	s := b.store
	content := make([]byte, s.contentSize)
	covered := copy(content, b.prefix[s.headerSize:])

	if covered < s.contentSize {
		pos := s.blockOffset(b.id) + int64(s.headerSize+covered)
		n, err := s.medium.ReadAt(content[covered:], pos)
		if err != nil && !(errors.Is(err, io.EOF) && n == s.contentSize-covered) {
			if errors.Is(err, io.EOF) {
				return corruptf("block %d is truncated", b.id)
			}
			return errors.Wrapf(err, "failed to read block %d", b.id)
		}
	}

	b.content = content
	return nil
}

// decodeHeader fills the header slots from the prefix.
func (b *Block) decodeHeader() {
	for i := range b.header {
		b.header[i] = binary.LittleEndian.Uint64(b.prefix[i*HeaderFieldSize:])
	}
}

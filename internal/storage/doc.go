// Package storage provides the block layer of the obaidx index engine.
//
// # Overview
//
// An index file is a sequence of fixed-size blocks. Block 0 holds the file
// header; every other block carries a small header region followed by a
// content region:
//
//	+----------------------+----------------------------------------+
//	| header (48 bytes)    | content (blockSize - headerSize bytes)  |
//	+----------------------+----------------------------------------+
//
// Header slots are little-endian uint64 values:
//
//	slot 0  next block id (0 = end of chain)
//	slot 1  record length (first block of a record only)
//	slot 2  bytes used in this block's content
//	slot 3  previous block id (0 = first block)
//	slot 4  deleted flag
//	slot 5  CRC32 of the used content
//
// The medium always grows by whole blocks, so its length is an exact
// multiple of the block size. A length that is not is reported as
// corruption.
//
// # Lazy Reads
//
// Find reads only a sector-sized prefix of a block. Header fields and any
// content inside that prefix are served from it; the remaining content is
// fetched the first time it is needed:
//
//	store, err := storage.Open(medium, storage.DefaultOptions())
//	blk, err := store.Find(7)
//	next := blk.Header(storage.FieldNext) // no extra I/O
//
// # Media
//
// A Medium is anything that can be read and written at offsets and
// truncated. OpenFile wraps an *os.File and NewMemory provides an
// in-memory medium for tests and tools.
package storage

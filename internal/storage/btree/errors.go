package btree

import (
	"github.com/cockroachdb/errors"

	"github.com/KilimcininKorOglu/obaidx/internal/storage"
)

// B+ tree errors.
var (
	// ErrDuplicateKey is returned when inserting an existing key into a
	// unique tree.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrInvalidOperation is returned when an operation does not match the
	// tree's duplicate-key mode.
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrIncompatible is returned when an index file was created with
	// different serializers or duplicate-key mode.
	ErrIncompatible = errors.New("incompatible index file")

	// ErrNotInitialized is returned when opening an index file that holds
	// no tree yet.
	ErrNotInitialized = errors.New("index not initialized")

	// ErrTreeCorrupted is returned when node links or node records are
	// inconsistent. It is also a storage.ErrCorrupted.
	ErrTreeCorrupted = errors.Wrap(storage.ErrCorrupted, "b+ tree corrupted")

	// ErrClosed is returned when using a closed tree.
	ErrClosed = errors.New("tree closed")
)

func corruptf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrTreeCorrupted, format, args...)
}

package storage

import "github.com/cockroachdb/errors"

// Storage errors.
var (
	// ErrInvalidConfig is returned when block store options are invalid.
	ErrInvalidConfig = errors.New("invalid storage configuration")

	// ErrCorrupted is returned when on-disk structures are inconsistent.
	// Callers should treat it as fatal for the whole index session.
	ErrCorrupted = errors.New("storage corrupted")

	// ErrClosed is returned when operating on a closed store or medium.
	ErrClosed = errors.New("storage closed")

	// ErrReadOnly is returned when writing to a read-only medium.
	ErrReadOnly = errors.New("storage is read-only")

	// ErrOutOfBounds is returned when a block read or write exceeds the
	// content region.
	ErrOutOfBounds = errors.New("offset outside block content")
)

// IsCorrupted reports whether err signals on-disk corruption.
func IsCorrupted(err error) bool {
	return errors.Is(err, ErrCorrupted)
}

// corruptf wraps ErrCorrupted with a formatted message.
func corruptf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrCorrupted, format, args...)
}

// configf wraps ErrInvalidConfig with a formatted message.
func configf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrInvalidConfig, format, args...)
}

package record

import (
	"github.com/cockroachdb/errors"

	"github.com/KilimcininKorOglu/obaidx/internal/storage"
)

// Record store errors.
var (
	// ErrRecordNotFound is returned by Update and Delete for missing records.
	ErrRecordNotFound = errors.New("record not found")

	// ErrRecordTooLarge is returned when data exceeds MaxRecordSize.
	ErrRecordTooLarge = errors.New("record too large")
)

func corruptf(format string, args ...interface{}) error {
	return errors.Wrapf(storage.ErrCorrupted, format, args...)
}

// Package codec provides the key and value serializers used by index trees.
//
// Serializers are stateless values and safe for concurrent use. They only
// convert between native values and bytes; ordering is supplied separately
// by a comparer such as Compare or CompareTime.
package codec

import (
	"bytes"
	"cmp"
	"encoding/binary"
	"math"
	"time"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
)

// ErrInvalidEncoding is returned when bytes cannot be decoded.
var ErrInvalidEncoding = errors.New("invalid encoding")

// Serializer converts values of type T to and from bytes.
type Serializer[T any] interface {
	// Name identifies the encoding. It is persisted with an index so a file
	// cannot be reopened with a different encoding.
	Name() string

	// Append appends the encoding of v to dst.
	Append(dst []byte, v T) []byte

	// Decode decodes a value from exactly the bytes of one encoding.
	Decode(b []byte) (T, error)

	// FixedSize reports the encoded size when it does not depend on the
	// value.
	FixedSize() (int, bool)
}

// Compare orders values of any ordered type.
func Compare[T cmp.Ordered](a, b T) int {
	return cmp.Compare(a, b)
}

// CompareTime orders times chronologically.
func CompareTime(a, b time.Time) int {
	return a.Compare(b)
}

// CompareBytes orders byte slices lexicographically.
func CompareBytes(a, b []byte) int {
	return bytes.Compare(a, b)
}

// Encoding names.
const (
	NameString   = "string"
	NameBytes    = "bytes"
	NameInt32    = "int32"
	NameInt64    = "int64"
	NameUint64   = "uint64"
	NameFloat64  = "float64"
	NameDateTime = "datetime"
)

// Names lists every encoding a file can be written with.
func Names() []string {
	return []string{NameString, NameBytes, NameInt32, NameInt64, NameUint64, NameFloat64, NameDateTime}
}

// Ready-made serializers.
var (
	String   Serializer[string]    = stringCodec{}
	Bytes    Serializer[[]byte]    = bytesCodec{}
	Int32    Serializer[int32]     = int32Codec{}
	Int64    Serializer[int64]     = int64Codec{}
	Uint64   Serializer[uint64]    = uint64Codec{}
	Float64  Serializer[float64]   = float64Codec{}
	DateTime Serializer[time.Time] = dateTimeCodec{}
)

type stringCodec struct{}

func (stringCodec) Name() string { return NameString }

func (stringCodec) Append(dst []byte, v string) []byte { return append(dst, v...) }

func (stringCodec) Decode(b []byte) (string, error) {
	if !utf8.Valid(b) {
		return "", errors.Wrap(ErrInvalidEncoding, "string is not valid UTF-8")
	}
	return string(b), nil
}

func (stringCodec) FixedSize() (int, bool) { return 0, false }

type bytesCodec struct{}

func (bytesCodec) Name() string { return NameBytes }

func (bytesCodec) Append(dst []byte, v []byte) []byte { return append(dst, v...) }

func (bytesCodec) Decode(b []byte) ([]byte, error) {
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

func (bytesCodec) FixedSize() (int, bool) { return 0, false }

type int32Codec struct{}

func (int32Codec) Name() string { return NameInt32 }

func (int32Codec) Append(dst []byte, v int32) []byte {
	return binary.LittleEndian.AppendUint32(dst, uint32(v))
}

func (int32Codec) Decode(b []byte) (int32, error) {
	if len(b) != 4 {
		return 0, sizeError(NameInt32, 4, len(b))
	}
	return int32(binary.LittleEndian.Uint32(b)), nil
}

func (int32Codec) FixedSize() (int, bool) { return 4, true }

type int64Codec struct{}

func (int64Codec) Name() string { return NameInt64 }

func (int64Codec) Append(dst []byte, v int64) []byte {
	return binary.LittleEndian.AppendUint64(dst, uint64(v))
}

func (int64Codec) Decode(b []byte) (int64, error) {
	if len(b) != 8 {
		return 0, sizeError(NameInt64, 8, len(b))
	}
	return int64(binary.LittleEndian.Uint64(b)), nil
}

func (int64Codec) FixedSize() (int, bool) { return 8, true }

type uint64Codec struct{}

func (uint64Codec) Name() string { return NameUint64 }

func (uint64Codec) Append(dst []byte, v uint64) []byte {
	return binary.LittleEndian.AppendUint64(dst, v)
}

func (uint64Codec) Decode(b []byte) (uint64, error) {
	if len(b) != 8 {
		return 0, sizeError(NameUint64, 8, len(b))
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (uint64Codec) FixedSize() (int, bool) { return 8, true }

type float64Codec struct{}

func (float64Codec) Name() string { return NameFloat64 }

func (float64Codec) Append(dst []byte, v float64) []byte {
	return binary.LittleEndian.AppendUint64(dst, math.Float64bits(v))
}

func (float64Codec) Decode(b []byte) (float64, error) {
	if len(b) != 8 {
		return 0, sizeError(NameFloat64, 8, len(b))
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b)), nil
}

func (float64Codec) FixedSize() (int, bool) { return 8, true }

// Tick constants. A tick is 100 nanoseconds counted from
// 0001-01-01 00:00:00 UTC.
const (
	ticksPerSecond  = 10_000_000
	nanosPerTick    = 100
	unixEpochSecond = 62_135_596_800
)

// Ticks converts t to ticks.
func Ticks(t time.Time) int64 {
	return (t.Unix()+unixEpochSecond)*ticksPerSecond + int64(t.Nanosecond())/nanosPerTick
}

// FromTicks converts ticks to a UTC time.
func FromTicks(ticks int64) time.Time {
	sec := ticks / ticksPerSecond
	rem := ticks % ticksPerSecond
	if rem < 0 {
		sec--
		rem += ticksPerSecond
	}
	return time.Unix(sec-unixEpochSecond, rem*nanosPerTick).UTC()
}

type dateTimeCodec struct{}

func (dateTimeCodec) Name() string { return NameDateTime }

func (dateTimeCodec) Append(dst []byte, v time.Time) []byte {
	return binary.LittleEndian.AppendUint64(dst, uint64(Ticks(v)))
}

func (dateTimeCodec) Decode(b []byte) (time.Time, error) {
	if len(b) != 8 {
		return time.Time{}, sizeError(NameDateTime, 8, len(b))
	}
	return FromTicks(int64(binary.LittleEndian.Uint64(b))), nil
}

func (dateTimeCodec) FixedSize() (int, bool) { return 8, true }

func sizeError(name string, want, got int) error {
	return errors.Wrapf(ErrInvalidEncoding, "%s needs %d bytes, got %d", name, want, got)
}

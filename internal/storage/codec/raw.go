package codec

import (
	"bytes"
	"cmp"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
)

// ErrUnknownEncoding is returned by RawFor for unregistered names.
var ErrUnknownEncoding = errors.New("unknown encoding")

// Raw is a Serializer[[]byte] that passes encoded values through untouched
// while still reporting the layout and ordering of a named encoding. Tools
// use it to open an index without knowing its key and value types.
type Raw struct {
	name  string
	size  int
	fixed bool
}

// RawFor returns the raw serializer for a named encoding.
func RawFor(name string) (Raw, error) {
	switch name {
	case NameString, NameBytes:
		return Raw{name: name}, nil
	case NameInt32:
		return Raw{name: name, size: 4, fixed: true}, nil
	case NameInt64, NameUint64, NameFloat64, NameDateTime:
		return Raw{name: name, size: 8, fixed: true}, nil
	default:
		return Raw{}, errors.Wrapf(ErrUnknownEncoding, "%q", name)
	}
}

// Name returns the underlying encoding name.
func (r Raw) Name() string { return r.name }

// Append appends v unchanged.
func (r Raw) Append(dst []byte, v []byte) []byte { return append(dst, v...) }

// Decode returns a copy of b after checking its size.
func (r Raw) Decode(b []byte) ([]byte, error) {
	if r.fixed && len(b) != r.size {
		return nil, sizeError(r.name, r.size, len(b))
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

// FixedSize reports the underlying encoding's size.
func (r Raw) FixedSize() (int, bool) { return r.size, r.fixed }

// Compare orders two encoded values the way the native comparer orders the
// decoded values.
func (r Raw) Compare(a, b []byte) int {
	switch r.name {
	case NameInt32:
		return cmp.Compare(int32(binary.LittleEndian.Uint32(a)), int32(binary.LittleEndian.Uint32(b)))
	case NameInt64, NameDateTime:
		return cmp.Compare(int64(binary.LittleEndian.Uint64(a)), int64(binary.LittleEndian.Uint64(b)))
	case NameUint64:
		return cmp.Compare(binary.LittleEndian.Uint64(a), binary.LittleEndian.Uint64(b))
	case NameFloat64:
		return cmp.Compare(math.Float64frombits(binary.LittleEndian.Uint64(a)), math.Float64frombits(binary.LittleEndian.Uint64(b)))
	default:
		return bytes.Compare(a, b)
	}
}

// Format renders an encoded value for display.
func (r Raw) Format(b []byte) string {
	if r.fixed && len(b) != r.size {
		return fmt.Sprintf("<%d bytes>", len(b))
	}
	switch r.name {
	case NameString:
		return strconv.Quote(string(b))
	case NameInt32:
		return strconv.FormatInt(int64(int32(binary.LittleEndian.Uint32(b))), 10)
	case NameInt64:
		return strconv.FormatInt(int64(binary.LittleEndian.Uint64(b)), 10)
	case NameUint64:
		return strconv.FormatUint(binary.LittleEndian.Uint64(b), 10)
	case NameFloat64:
		return strconv.FormatFloat(math.Float64frombits(binary.LittleEndian.Uint64(b)), 'g', -1, 64)
	case NameDateTime:
		return FromTicks(int64(binary.LittleEndian.Uint64(b))).Format(time.RFC3339Nano)
	default:
		return fmt.Sprintf("%x", b)
	}
}

package storage

import (
	"testing"

	"github.com/cockroachdb/errors"
)

func TestFileHeaderRoundTrip(t *testing.T) {
	h := NewFileHeader(4096, 48)
	buf := h.Serialize()

	if len(buf) != FileHeaderSize {
		t.Fatalf("Serialize() length = %d, want %d", len(buf), FileHeaderSize)
	}

	var got FileHeader
	if err := got.Deserialize(buf); err != nil {
		t.Fatalf("failed to deserialize: %v", err)
	}
	if err := got.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if got.BlockSize != 4096 || got.BlockHeaderSize != 48 {
		t.Errorf("layout = %d/%d, want 4096/48", got.BlockSize, got.BlockHeaderSize)
	}
}

func TestFileHeaderValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(buf []byte)
		wantErr error
	}{
		{"bad magic", func(buf []byte) { buf[0] = 'X' }, ErrInvalidMagic},
		{"future version", func(buf []byte) { buf[4] = 9 }, ErrUnsupportedVersion},
		{"checksum", func(buf []byte) { buf[8] ^= 0xFF }, ErrHeaderChecksum},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := NewFileHeader(4096, 48).Serialize()
			tt.mutate(buf)

			var h FileHeader
			if err := h.Deserialize(buf); err != nil {
				t.Fatalf("failed to deserialize: %v", err)
			}
			if err := h.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestFileHeaderDeserializeShortBuffer(t *testing.T) {
	var h FileHeader
	if err := h.Deserialize(make([]byte, 10)); !errors.Is(err, ErrInvalidHeaderSize) {
		t.Errorf("Deserialize() error = %v, want ErrInvalidHeaderSize", err)
	}
}

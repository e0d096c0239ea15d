package storage

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/cockroachdb/errors"
)

// File header constants.
const (
	// FileHeaderSize is the number of encoded header bytes at the start of
	// block 0. The rest of block 0 is reserved and zero.
	FileHeaderSize = 20

	// CurrentVersion is the current file format version.
	CurrentVersion uint32 = 1
)

// Magic identifies an obaidx index file.
var Magic = [4]byte{'O', 'B', 'I', 'X'}

// Errors for file header operations.
var (
	ErrInvalidMagic       = errors.New("invalid magic number: not an obaidx file")
	ErrUnsupportedVersion = errors.New("unsupported file format version")
	ErrHeaderChecksum     = errors.New("file header checksum mismatch")
	ErrInvalidHeaderSize  = errors.New("invalid header size")
)

// FileHeader is stored at the start of block 0.
// Layout:
//   - Bytes 0-3:   Magic number ("OBIX")
//   - Bytes 4-7:   Version (uint32)
//   - Bytes 8-11:  BlockSize (uint32)
//   - Bytes 12-15: BlockHeaderSize (uint32)
//   - Bytes 16-19: Checksum (CRC32 of bytes 0-15)
type FileHeader struct {
	Magic           [4]byte
	Version         uint32
	BlockSize       uint32
	BlockHeaderSize uint32
	Checksum        uint32
}

// NewFileHeader creates a header for the given layout.
func NewFileHeader(blockSize, headerSize int) *FileHeader {
	return &FileHeader{
		Magic:           Magic,
		Version:         CurrentVersion,
		BlockSize:       uint32(blockSize),
		BlockHeaderSize: uint32(headerSize),
	}
}

// Serialize returns the encoded header with its checksum filled in.
func (h *FileHeader) Serialize() []byte {
	buf := make([]byte, FileHeaderSize)
	copy(buf[0:4], h.Magic[:])
	binary.LittleEndian.PutUint32(buf[4:8], h.Version)
	binary.LittleEndian.PutUint32(buf[8:12], h.BlockSize)
	binary.LittleEndian.PutUint32(buf[12:16], h.BlockHeaderSize)

	h.Checksum = crc32.ChecksumIEEE(buf[0:16])
	binary.LittleEndian.PutUint32(buf[16:20], h.Checksum)
	return buf
}

// Deserialize reads the header from buf without validating it.
func (h *FileHeader) Deserialize(buf []byte) error {
	if len(buf) < FileHeaderSize {
		return ErrInvalidHeaderSize
	}

	copy(h.Magic[:], buf[0:4])
	h.Version = binary.LittleEndian.Uint32(buf[4:8])
	h.BlockSize = binary.LittleEndian.Uint32(buf[8:12])
	h.BlockHeaderSize = binary.LittleEndian.Uint32(buf[12:16])
	h.Checksum = binary.LittleEndian.Uint32(buf[16:20])
	return nil
}

// Validate checks magic, version, checksum and layout sanity.
func (h *FileHeader) Validate() error {
	if h.Magic != Magic {
		return ErrInvalidMagic
	}
	if h.Version == 0 || h.Version > CurrentVersion {
		return errors.Wrapf(ErrUnsupportedVersion, "version %d", h.Version)
	}
	if h.Checksum != h.CalculateChecksum() {
		return ErrHeaderChecksum
	}
	if h.BlockSize < MinBlockSize || h.BlockHeaderSize < MinBlockHeaderSize || h.BlockHeaderSize >= h.BlockSize {
		return errors.Newf("stored layout %d/%d is invalid", h.BlockSize, h.BlockHeaderSize)
	}
	return nil
}

// CalculateChecksum computes the CRC32 of the header fields.
func (h *FileHeader) CalculateChecksum() uint32 {
	buf := make([]byte, 16)
	copy(buf[0:4], h.Magic[:])
	binary.LittleEndian.PutUint32(buf[4:8], h.Version)
	binary.LittleEndian.PutUint32(buf[8:12], h.BlockSize)
	binary.LittleEndian.PutUint32(buf[12:16], h.BlockHeaderSize)
	return crc32.ChecksumIEEE(buf)
}

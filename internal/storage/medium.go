package storage

import (
	"io"
	"os"
	"sync"

	"github.com/cockroachdb/errors"
)

// Medium is a seekable byte medium that a BlockStore lays blocks over.
type Medium interface {
	io.ReaderAt
	io.WriterAt

	// Size returns the current length in bytes.
	Size() (int64, error)

	// Truncate changes the length. Growing zero-fills the new bytes.
	Truncate(size int64) error

	// Sync flushes written data to stable storage.
	Sync() error

	// Close releases the medium.
	Close() error
}

// FileMedium is a Medium backed by an operating system file.
type FileMedium struct {
	file     *os.File
	path     string
	readOnly bool
}

// OpenFile opens or creates the file at path as a Medium.
// A read-only medium requires the file to exist.
func OpenFile(path string, readOnly bool) (*FileMedium, error) {
	flag := os.O_RDWR | os.O_CREATE
	if readOnly {
		flag = os.O_RDONLY
	}

	file, err := os.OpenFile(path, flag, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}

	return &FileMedium{file: file, path: path, readOnly: readOnly}, nil
}

// Path returns the file path.
func (m *FileMedium) Path() string {
	return m.path
}

// ReadAt implements io.ReaderAt.
func (m *FileMedium) ReadAt(p []byte, off int64) (int, error) {
	return m.file.ReadAt(p, off)
}

// WriteAt implements io.WriterAt.
func (m *FileMedium) WriteAt(p []byte, off int64) (int, error) {
	if m.readOnly {
		return 0, ErrReadOnly
	}
	return m.file.WriteAt(p, off)
}

// Size returns the file length.
func (m *FileMedium) Size() (int64, error) {
	info, err := m.file.Stat()
	if err != nil {
		return 0, errors.Wrap(err, "failed to stat medium")
	}
	return info.Size(), nil
}

// Truncate changes the file length.
func (m *FileMedium) Truncate(size int64) error {
	if m.readOnly {
		return ErrReadOnly
	}
	return m.file.Truncate(size)
}

// Sync flushes the file to disk.
func (m *FileMedium) Sync() error {
	if m.readOnly {
		return nil
	}
	return m.file.Sync()
}

// Close closes the file.
func (m *FileMedium) Close() error {
	return m.file.Close()
}

// MemoryMedium is an in-memory Medium. It is safe for concurrent use.
type MemoryMedium struct {
	mu     sync.RWMutex
	data   []byte
	closed bool
}

// NewMemory creates an empty in-memory medium.
func NewMemory() *MemoryMedium {
	return &MemoryMedium{}
}

// NewMemoryFrom creates an in-memory medium holding a copy of data.
func NewMemoryFrom(data []byte) *MemoryMedium {
	buf := make([]byte, len(data))
	copy(buf, data)
	return &MemoryMedium{data: buf}
}

// Bytes returns a copy of the medium contents.
func (m *MemoryMedium) Bytes() []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()

	buf := make([]byte, len(m.data))
	copy(buf, m.data)
	return buf
}

// ReadAt implements io.ReaderAt.
func (m *MemoryMedium) ReadAt(p []byte, off int64) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return 0, ErrClosed
	}
	if off < 0 {
		return 0, errors.Newf("negative offset %d", off)
	}
	if off >= int64(len(m.data)) {
		return 0, io.EOF
	}

	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// WriteAt implements io.WriterAt. Writing past the end grows the medium.
func (m *MemoryMedium) WriteAt(p []byte, off int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, ErrClosed
	}
	if off < 0 {
		return 0, errors.Newf("negative offset %d", off)
	}

	end := off + int64(len(p))
	if end > int64(len(m.data)) {
		m.grow(end)
	}
	return copy(m.data[off:], p), nil
}

// Size returns the medium length.
func (m *MemoryMedium) Size() (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return 0, ErrClosed
	}
	return int64(len(m.data)), nil
}

// Truncate changes the medium length.
func (m *MemoryMedium) Truncate(size int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	if size < 0 {
		return errors.Newf("negative size %d", size)
	}

	if size <= int64(len(m.data)) {
		m.data = m.data[:size]
		return nil
	}
	m.grow(size)
	return nil
}

// Sync is a no-op for memory.
func (m *MemoryMedium) Sync() error {
	return nil
}

// Close marks the medium closed. The contents remain readable via Bytes.
func (m *MemoryMedium) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	return nil
}

// grow extends the data to size bytes, zero-filled. Caller holds mu.
func (m *MemoryMedium) grow(size int64) {
	if size <= int64(cap(m.data)) {
		old := len(m.data)
		m.data = m.data[:size]
		clear(m.data[old:])
		return
	}
	buf := make([]byte, size, size+size/4)
	copy(buf, m.data)
	m.data = buf
}

package page

import (
	"io"
	"os"

	"github.com/brackendb/jetstore/errors"
)

// storage is the abstraction the Pager reads and writes pages through.
// Grounded on the teacher's separation of a storage interface from the
// Pager itself (core/sqlite/internal/pager.Pager wraps *os.File directly;
// this module additionally supports an in-memory store for tests, the
// pattern chirst-cdb's pager/storage.go uses for the same reason).
type storage interface {
	ReadAt(buf []byte, off int64) (int, error)
	WriteAt(buf []byte, off int64) (int, error)
	Size() (int64, error)
	Sync() error
	Close() error
}

type fileStorage struct {
	f *os.File
}

func newFileStorage(path string, readOnly bool) (*fileStorage, error) {
	flags := os.O_RDWR | os.O_CREATE
	if readOnly {
		flags = os.O_RDONLY
	}
	f, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return nil, errors.NewIO("open", path, err)
	}
	return &fileStorage{f: f}, nil
}

func (s *fileStorage) ReadAt(buf []byte, off int64) (int, error) {
	n, err := s.f.ReadAt(buf, off)
	if err != nil && err != io.EOF {
		return n, errors.NewIO("read", s.f.Name(), err)
	}
	return n, nil
}

func (s *fileStorage) WriteAt(buf []byte, off int64) (int, error) {
	n, err := s.f.WriteAt(buf, off)
	if err != nil {
		return n, errors.NewIO("write", s.f.Name(), err)
	}
	return n, nil
}

func (s *fileStorage) Size() (int64, error) {
	info, err := s.f.Stat()
	if err != nil {
		return 0, errors.NewIO("stat", s.f.Name(), err)
	}
	return info.Size(), nil
}

func (s *fileStorage) Sync() error  { return s.f.Sync() }
func (s *fileStorage) Close() error { return s.f.Close() }

// memoryStorage is an in-memory storage, useful for tests and for opening a
// scratch database with no backing file.
type memoryStorage struct {
	data []byte
}

func newMemoryStorage() *memoryStorage { return &memoryStorage{} }

func (s *memoryStorage) ensure(n int64) {
	if int64(len(s.data)) < n {
		grown := make([]byte, n)
		copy(grown, s.data)
		s.data = grown
	}
}

func (s *memoryStorage) ReadAt(buf []byte, off int64) (int, error) {
	s.ensure(off + int64(len(buf)))
	n := copy(buf, s.data[off:])
	return n, nil
}

func (s *memoryStorage) WriteAt(buf []byte, off int64) (int, error) {
	s.ensure(off + int64(len(buf)))
	n := copy(s.data[off:], buf)
	return n, nil
}

func (s *memoryStorage) Size() (int64, error) { return int64(len(s.data)), nil }
func (s *memoryStorage) Sync() error          { return nil }
func (s *memoryStorage) Close() error         { return nil }

package sevenzip

import (
	"fmt"
	"io"
	"os"
)

// ByteSource provides random access to archive bytes.
//
// Implementations exist for local files (via OpenFile) and HTTP range
// requests (the http subpackage). Reads are direct and blocking; callers
// needing timeouts wrap calls externally.
type ByteSource interface {
	io.ReaderAt
	Size() int64
}

// fileSource wraps *os.File to implement ByteSource.
// os.File has ReadAt but not Size, so we cache the size at construction.
type fileSource struct {
	file *os.File
	size int64
}

// newFileSource creates a fileSource from an open file.
func newFileSource(f *os.File) (*fileSource, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat archive: %w", err)
	}
	return &fileSource{file: f, size: info.Size()}, nil
}

// ReadAt implements io.ReaderAt.
func (fs *fileSource) ReadAt(p []byte, off int64) (int, error) {
	return fs.file.ReadAt(p, off)
}

// Size returns the total size of the file.
func (fs *fileSource) Size() int64 {
	return fs.size
}

// Close closes the underlying file.
func (fs *fileSource) Close() error {
	return fs.file.Close()
}

package seekzstd

import (
	"fmt"
	"os"
)

// fileSource wraps *os.File to implement ByteSource.
// os.File has ReadAt but not Size, so we cache the size at construction.
type fileSource struct {
	file *os.File
	size int64
	id   string
}

// newFileSource creates a fileSource from an open file.
func newFileSource(f *os.File) (*fileSource, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat archive: %w", err)
	}
	return &fileSource{file: f, size: info.Size(), id: f.Name()}, nil
}

// ReadAt implements io.ReaderAt.
func (fs *fileSource) ReadAt(p []byte, off int64) (int, error) {
	return fs.file.ReadAt(p, off)
}

// Size returns the total size of the file.
func (fs *fileSource) Size() int64 {
	return fs.size
}

// SourceID identifies the file by path.
func (fs *fileSource) SourceID() string {
	return fs.id
}

// Interface compliance.
var (
	_ ByteSource       = (*fileSource)(nil)
	_ SourceIdentifier = (*fileSource)(nil)
)

// FileReader wraps a Reader with its underlying archive file handle.
// Close must be called to release the file.
type FileReader struct {
	*Reader
	file *os.File
}

// Close closes the underlying archive file.
func (fr *FileReader) Close() error {
	if fr.file == nil {
		return nil
	}
	err := fr.file.Close()
	fr.file = nil
	return err
}

// OpenFile opens a local seekable archive for random access reads.
//
// The returned FileReader must be closed to release the file handle.
func OpenFile(path string, opts ...Option) (*FileReader, error) {
	f, err := os.Open(path) //nolint:gosec // User-provided path is intentional
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}

	source, err := newFileSource(f)
	if err != nil {
		f.Close()
		return nil, err
	}

	r, err := NewReader(source, opts...)
	if err != nil {
		f.Close()
		return nil, err
	}

	return &FileReader{
		Reader: r,
		file:   f,
	}, nil
}

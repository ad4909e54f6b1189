package seekzstd

import "io"

// ByteSource provides random access to the compressed object.
//
// Implementations exist for local files (*os.File via [OpenFile]) and HTTP
// range requests (the http subpackage). ReadAt errors are propagated to the
// caller unchanged in cause; the reader never retries a failed fetch.
type ByteSource interface {
	io.ReaderAt
	Size() int64
}

// SourceIdentifier is optionally implemented by byte sources that can name
// the object they read. The identity is mixed into frame cache keys so a
// cache may be shared across readers of different archives.
type SourceIdentifier interface {
	SourceID() string
}

// Cache stores decompressed frame payloads.
//
// Keys identify a frame within a specific source. Payloads are immutable
// after Put; callers copy out of them and never write into them. A Put for
// a key already present replaces the entry. Implementations must be safe
// for concurrent use and must never return partially written data; they
// may evict entries at any time, since a miss only costs a refetch.
type Cache interface {
	// Get retrieves a frame payload. Returns nil, false on a miss.
	Get(key string) ([]byte, bool)

	// Put stores a frame payload. Errors are treated as a cache miss by
	// the reader, not as read failures.
	Put(key string, payload []byte) error
}

// FrameDecoder decompresses a single compressed frame.
//
// The default decoder pools zstd decoders; inject an alternative via
// [WithFrameDecoder] to support other codecs or decoder configurations.
type FrameDecoder interface {
	// DecodeFrame appends the decompressed content of src to dst and
	// returns the resulting slice.
	DecodeFrame(dst, src []byte) ([]byte, error)
}

// Frame describes one independently decompressible frame of the archive.
//
// Frames are ordered by DecompOffset and exactly tile both the compressed
// and decompressed address spaces: each frame starts where the previous
// one ends, and the last frame ends at the total size of its space.
type Frame struct {
	// ID is the sequence number of the frame in the seek table.
	ID int64

	// CompOffset is the frame's byte offset in the compressed object.
	CompOffset uint64

	// CompSize is the size in bytes of the compressed frame.
	CompSize uint32

	// DecompOffset is the frame's byte offset in the decompressed stream.
	DecompOffset uint64

	// DecompSize is the size in bytes of the decompressed frame content.
	DecompSize uint32

	// Checksum is the lowest 32 bits of the XXH64 hash of the
	// decompressed content. Zero when the seek table carries no checksums.
	Checksum uint32
}

// contains reports whether the decompressed offset falls inside the frame.
func (f Frame) contains(off uint64) bool {
	return off >= f.DecompOffset && off < f.DecompOffset+uint64(f.DecompSize)
}

package seekzstd

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/singleflight"
)

// Reader provides seekable reads of the decompressed stream of a seekable
// archive.
//
// Reader implements io.Reader, io.Seeker, and io.ReaderAt. Read and Seek
// share a cursor and must not be called concurrently; ReadAt is stateless
// and safe for concurrent use. Seek performs no I/O, so seeking is free
// until the next Read.
//
// A failed fetch or decode fails the whole call without advancing the
// cursor; because fetches are idempotent, callers may simply retry.
// Frames cached by earlier successful reads stay valid after a failure.
type Reader struct {
	source  ByteSource
	table   *SeekTable
	cache   Cache
	decoder FrameDecoder
	logger  *slog.Logger

	verify           bool
	maxDecoderMemory uint64
	keyPrefix        string

	fetchGroup singleflight.Group
	pos        int64
}

// Interface compliance.
var (
	_ io.Reader   = (*Reader)(nil)
	_ io.Seeker   = (*Reader)(nil)
	_ io.ReaderAt = (*Reader)(nil)
)

// NewReader creates a Reader over a seekable archive.
//
// Unless a pre-parsed table is supplied via [WithSeekTable], NewReader
// eagerly fetches and validates the seek table from the tail of src;
// construction fails fast on a corrupt or missing table.
func NewReader(src ByteSource, opts ...Option) (*Reader, error) {
	r := &Reader{
		source: src,
		verify: true,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.New(slog.DiscardHandler)
	}
	if r.table == nil {
		table, err := LoadSeekTable(src)
		if err != nil {
			return nil, err
		}
		r.table = table
	}
	if r.decoder == nil {
		r.decoder = defaultDecoderPool(r.maxDecoderMemory)
	}
	if r.cache == nil {
		cache, err := newDefaultCache()
		if err != nil {
			return nil, err
		}
		r.cache = cache
	}
	if id, ok := src.(SourceIdentifier); ok {
		r.keyPrefix = id.SourceID() + "#"
	}
	r.logger.Debug("loaded seek table",
		"frames", r.table.Len(),
		"size", r.table.Size(),
		"compressed_size", r.table.CompressedSize(),
		"checksums", r.table.HasChecksums())
	return r, nil
}

// Size returns the total decompressed size of the archive.
func (r *Reader) Size() int64 {
	return r.table.Size()
}

// SeekTable returns the reader's frame index. The table is immutable and
// may be shared with other readers via [WithSeekTable].
func (r *Reader) SeekTable() *SeekTable {
	return r.table
}

// Seek sets the cursor for the next Read, interpreting offset according to
// whence. Seeking past the end of the stream is permitted; subsequent
// reads return 0 bytes and io.EOF. Seek performs no I/O.
func (r *Reader) Seek(offset int64, whence int) (int64, error) {
	var base int64
	switch whence {
	case io.SeekStart:
		base = 0
	case io.SeekCurrent:
		base = r.pos
	case io.SeekEnd:
		base = r.table.Size()
	default:
		return 0, fmt.Errorf("%w: unknown whence %d", ErrInvalidSeek, whence)
	}
	pos := base + offset
	if offset > 0 && pos < base {
		return 0, fmt.Errorf("%w: position overflows", ErrInvalidSeek)
	}
	if pos < 0 {
		return 0, fmt.Errorf("%w: position %d", ErrInvalidSeek, pos)
	}
	r.pos = pos
	return pos, nil
}

// Read reads from the decompressed stream at the cursor, advancing the
// cursor by the number of bytes read. Requests spanning frame boundaries
// are satisfied by concatenating frames; Read only returns fewer than
// len(p) bytes at end-of-stream.
func (r *Reader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	n, err := r.ReadAt(p, r.pos)
	r.pos += int64(n)
	return n, err
}

// ReadAt reads len(p) bytes of the decompressed stream starting at off.
// It does not touch the cursor and is safe for concurrent use; concurrent
// requests touching the same frame share a single fetch.
//
// Per the io.ReaderAt contract, ReadAt returns io.EOF when fewer than
// len(p) bytes remain. On any other error no byte count is reported, even
// if some frames were already copied.
func (r *Reader) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("seekzstd: read at negative offset %d", off)
	}
	size := r.table.Size()
	n := 0
	for n < len(p) && off < size {
		frame, ok := r.table.Locate(off)
		if !ok {
			break
		}
		payload, err := r.frame(frame)
		if err != nil {
			return 0, err
		}
		c := copy(p[n:], payload[off-int64(frame.DecompOffset):])
		n += c
		off += int64(c)
	}
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// frame returns the decompressed payload for a frame, consulting the
// cache first. Exactly one source range read is issued per cache miss.
func (r *Reader) frame(f Frame) ([]byte, error) {
	key := r.keyPrefix + strconv.FormatInt(f.ID, 10)
	if payload, ok := r.cache.Get(key); ok {
		return payload, nil
	}

	v, err, _ := r.fetchGroup.Do(key, func() (any, error) {
		// Double-check: a concurrent ReadAt may have just cached this frame.
		if payload, ok := r.cache.Get(key); ok {
			return payload, nil
		}
		payload, err := r.fetchFrame(f)
		if err != nil {
			return nil, err
		}
		_ = r.cache.Put(key, payload) //nolint:errcheck // caching is opportunistic
		return payload, nil
	})
	if err != nil {
		return nil, err
	}
	payload, _ := v.([]byte) //nolint:errcheck // type assertion always succeeds when err is nil
	return payload, nil
}

// fetchFrame fetches and decompresses one frame from the source.
func (r *Reader) fetchFrame(f Frame) ([]byte, error) {
	compSize, err := sizeToInt(uint64(f.CompSize))
	if err != nil {
		return nil, err
	}
	comp := make([]byte, compSize)
	if err := readFullAt(r.source, comp, int64(f.CompOffset)); err != nil { //nolint:gosec // offset validated against source size
		return nil, fmt.Errorf("fetch frame %d: %w", f.ID, err)
	}

	payload, err := r.decoder.DecodeFrame(make([]byte, 0, f.DecompSize), comp)
	if err != nil {
		return nil, fmt.Errorf("%w: frame %d: %v", ErrDecompression, f.ID, err)
	}
	if len(payload) != int(f.DecompSize) {
		return nil, fmt.Errorf("%w: frame %d decoded to %d bytes, want %d",
			ErrDecompression, f.ID, len(payload), f.DecompSize)
	}
	if r.verify && r.table.HasChecksums() {
		if sum := uint32(xxhash.Sum64(payload)); sum != f.Checksum {
			return nil, fmt.Errorf("%w: frame %d has checksum %08x, want %08x",
				ErrChecksum, f.ID, sum, f.Checksum)
		}
	}
	r.logger.Debug("fetched frame",
		"frame", f.ID,
		"compressed", f.CompSize,
		"decompressed", f.DecompSize)
	return payload, nil
}

// sizeToInt converts a size to int, guarding 32-bit platforms.
func sizeToInt(size uint64) (int, error) {
	if size > uint64(maxInt) {
		return 0, ErrSizeOverflow
	}
	return int(size), nil
}

const maxInt = int(^uint(0) >> 1)

package seekzstd

import "errors"

// Sentinel errors.
var (
	// ErrNoSeekTable is returned when the object does not end with a
	// seekable-format seek table. Such objects may still be valid zstd
	// streams; they just cannot be read with random access.
	ErrNoSeekTable = errors.New("seekzstd: no seek table")

	// ErrTruncatedIndex is returned when the object is shorter than the
	// seek table it declares.
	ErrTruncatedIndex = errors.New("seekzstd: truncated seek table")

	// ErrCorruptIndex is returned when the seek table fails validation:
	// bad magic numbers, inconsistent sizes, or frames that do not tile
	// the address space contiguously.
	ErrCorruptIndex = errors.New("seekzstd: corrupt seek table")

	// ErrDecompression is returned when a frame fails to decompress or
	// decompresses to a length other than the seek table declares.
	ErrDecompression = errors.New("seekzstd: decompression failed")

	// ErrChecksum is returned when a decompressed frame does not match
	// its seek table checksum.
	ErrChecksum = errors.New("seekzstd: frame checksum mismatch")

	// ErrInvalidSeek is returned when a seek would place the cursor
	// before the start of the stream.
	ErrInvalidSeek = errors.New("seekzstd: invalid seek")

	// ErrSizeOverflow is returned when byte counts exceed supported limits.
	ErrSizeOverflow = errors.New("seekzstd: size overflow")
)

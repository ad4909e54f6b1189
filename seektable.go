package seekzstd

import (
	"encoding/binary"
	"fmt"
	"io"
	"iter"
	"math"
	"sort"
)

// Seek table wire layout, from the zstd seekable format:
//
//	[frame 0][frame 1]...[frame n-1][skippable frame]
//
// where the skippable frame is
//
//	Skippable_Magic_Number  u32 LE  (0x184D2A5E)
//	Frame_Size              u32 LE
//	Seek_Table_Entries      n * (8 or 12 bytes)
//	Seek_Table_Footer       9 bytes
//
// and the footer is
//
//	Number_Of_Frames        u32 LE
//	Seek_Table_Descriptor   u8   (bit 7: checksum flag, bits 2-6 reserved)
//	Seekable_Magic_Number   u32 LE  (0x8F92EAB1)
const (
	skippableMagic = 0x184D2A5E
	seekableMagic  = 0x8F92EAB1

	skippableHeaderSize = 8
	footerSize          = 9
	entrySize           = 8
	entrySizeChecksum   = 12

	descriptorChecksumFlag = 1 << 7
	descriptorReservedMask = 0x7c
)

// SeekTable is the parsed frame index of a seekable archive.
//
// A SeekTable is immutable after construction and safe for concurrent use;
// it may be shared across readers of the same archive via [WithSeekTable].
type SeekTable struct {
	frames     []Frame
	decompSize int64
	compSize   int64
	checksums  bool
}

// LoadSeekTable fetches and parses the seek table from the tail of src.
//
// It issues two range reads: one for the fixed-size footer and one for the
// remainder of the skippable frame. Validation failures are reported as
// [ErrNoSeekTable], [ErrTruncatedIndex], or [ErrCorruptIndex]; source
// errors are propagated unchanged in cause.
func LoadSeekTable(src ByteSource) (*SeekTable, error) {
	size := src.Size()
	if size < skippableHeaderSize+footerSize {
		return nil, fmt.Errorf("%w: object is %d bytes", ErrTruncatedIndex, size)
	}

	var footer [footerSize]byte
	if err := readFullAt(src, footer[:], size-footerSize); err != nil {
		return nil, fmt.Errorf("read seek table footer: %w", err)
	}
	if binary.LittleEndian.Uint32(footer[5:9]) != seekableMagic {
		return nil, ErrNoSeekTable
	}

	numFrames := binary.LittleEndian.Uint32(footer[0:4])
	descriptor := footer[4]
	if descriptor&descriptorReservedMask != 0 {
		return nil, fmt.Errorf("%w: reserved descriptor bits set (0x%02x)", ErrCorruptIndex, descriptor)
	}
	checksums := descriptor&descriptorChecksumFlag != 0

	stride := int64(entrySize)
	if checksums {
		stride = entrySizeChecksum
	}
	trailerSize := skippableHeaderSize + int64(numFrames)*stride + footerSize
	if trailerSize > size {
		return nil, fmt.Errorf("%w: %d frames need a %d byte seek table, object is %d bytes",
			ErrTruncatedIndex, numFrames, trailerSize, size)
	}

	trailer := make([]byte, trailerSize)
	if err := readFullAt(src, trailer, size-trailerSize); err != nil {
		return nil, fmt.Errorf("read seek table: %w", err)
	}
	if binary.LittleEndian.Uint32(trailer[0:4]) != skippableMagic {
		return nil, fmt.Errorf("%w: bad skippable frame magic", ErrCorruptIndex)
	}
	declared := int64(binary.LittleEndian.Uint32(trailer[4:8]))
	if declared != trailerSize-skippableHeaderSize {
		return nil, fmt.Errorf("%w: skippable frame declares %d bytes, footer implies %d",
			ErrCorruptIndex, declared, trailerSize-skippableHeaderSize)
	}

	st := &SeekTable{
		frames:    make([]Frame, 0, numFrames),
		checksums: checksums,
	}
	var compOffset, decompOffset uint64
	entries := trailer[skippableHeaderSize : trailerSize-footerSize]
	for id := int64(0); id < int64(numFrames); id++ {
		e := entries[id*stride:]
		f := Frame{
			ID:           id,
			CompOffset:   compOffset,
			CompSize:     binary.LittleEndian.Uint32(e[0:4]),
			DecompOffset: decompOffset,
			DecompSize:   binary.LittleEndian.Uint32(e[4:8]),
		}
		if checksums {
			f.Checksum = binary.LittleEndian.Uint32(e[8:12])
		}
		if f.CompSize == 0 {
			return nil, fmt.Errorf("%w: frame %d has zero compressed size", ErrCorruptIndex, id)
		}
		compOffset += uint64(f.CompSize)
		decompOffset += uint64(f.DecompSize)
		st.frames = append(st.frames, f)
	}

	if compOffset > math.MaxInt64 || decompOffset > math.MaxInt64 {
		return nil, ErrSizeOverflow
	}
	// The frames plus the trailer must account for the whole object. A
	// mismatch means the index describes some other object; report it as
	// corruption rather than guessing.
	if int64(compOffset)+trailerSize != size {
		return nil, fmt.Errorf("%w: frames cover %d bytes, object has %d before the seek table",
			ErrCorruptIndex, compOffset, size-trailerSize)
	}
	st.compSize = int64(compOffset)
	st.decompSize = int64(decompOffset)
	return st, nil
}

// NewSeekTable builds a SeekTable from already-known frame descriptors.
//
// Frames must be ordered, start at offset zero, and tile both address
// spaces contiguously; any gap or overlap fails with [ErrCorruptIndex].
// Frame IDs are assigned from position. Checksum verification is enabled
// when any frame carries a non-zero checksum.
func NewSeekTable(frames []Frame) (*SeekTable, error) {
	st := &SeekTable{frames: make([]Frame, len(frames))}
	var compOffset, decompOffset uint64
	for i, f := range frames {
		if f.CompOffset != compOffset || f.DecompOffset != decompOffset {
			return nil, fmt.Errorf("%w: frame %d starts at (%d, %d), want (%d, %d)",
				ErrCorruptIndex, i, f.CompOffset, f.DecompOffset, compOffset, decompOffset)
		}
		if f.CompSize == 0 {
			return nil, fmt.Errorf("%w: frame %d has zero compressed size", ErrCorruptIndex, i)
		}
		f.ID = int64(i)
		st.frames[i] = f
		compOffset += uint64(f.CompSize)
		decompOffset += uint64(f.DecompSize)
		if f.Checksum != 0 {
			st.checksums = true
		}
	}
	if compOffset > math.MaxInt64 || decompOffset > math.MaxInt64 {
		return nil, ErrSizeOverflow
	}
	st.compSize = int64(compOffset)
	st.decompSize = int64(decompOffset)
	return st, nil
}

// Locate returns the frame whose decompressed range contains off.
// Returns false when off is negative or at/past the end of the stream.
//
// Locate uses binary search and completes in O(log n) time.
func (st *SeekTable) Locate(off int64) (Frame, bool) {
	if off < 0 || off >= st.decompSize {
		return Frame{}, false
	}
	// First frame ending after off. The contiguity invariant guarantees
	// exactly one match for any in-range offset.
	i := sort.Search(len(st.frames), func(i int) bool {
		f := st.frames[i]
		return f.DecompOffset+uint64(f.DecompSize) > uint64(off)
	})
	return st.frames[i], true
}

// Frame returns the frame with the given ID.
// Returns false if id is out of range.
func (st *SeekTable) Frame(id int64) (Frame, bool) {
	if id < 0 || id >= int64(len(st.frames)) {
		return Frame{}, false
	}
	return st.frames[id], true
}

// Len returns the number of frames in the table.
func (st *SeekTable) Len() int {
	return len(st.frames)
}

// Size returns the total decompressed size of the archive.
func (st *SeekTable) Size() int64 {
	return st.decompSize
}

// CompressedSize returns the total size of the compressed frames,
// excluding the seek table itself.
func (st *SeekTable) CompressedSize() int64 {
	return st.compSize
}

// HasChecksums reports whether the table carries per-frame checksums.
func (st *SeekTable) HasChecksums() bool {
	return st.checksums
}

// Frames returns an iterator over all frames in offset order.
func (st *SeekTable) Frames() iter.Seq[Frame] {
	return func(yield func(Frame) bool) {
		for _, f := range st.frames {
			if !yield(f) {
				return
			}
		}
	}
}

// readFullAt reads exactly len(p) bytes at off.
// io.ReaderAt permits err == io.EOF alongside a full read; only short
// reads are failures.
func readFullAt(src io.ReaderAt, p []byte, off int64) error {
	n, err := src.ReadAt(p, off)
	if n == len(p) {
		return nil
	}
	if err == nil {
		err = io.ErrUnexpectedEOF
	}
	return fmt.Errorf("read %d bytes at %d: %w", len(p), off, err)
}

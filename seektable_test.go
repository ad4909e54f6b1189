package seekzstd

import (
	"encoding/binary"
	"io"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/seekzstd/internal/testarchive"
)

// memSource implements ByteSource over a byte slice, counting range reads.
type memSource struct {
	data  []byte
	reads atomic.Int64
}

func (m *memSource) ReadAt(p []byte, off int64) (int, error) {
	m.reads.Add(1)
	if off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	if off+int64(n) >= int64(len(m.data)) {
		return n, io.EOF
	}
	return n, nil
}

func (m *memSource) Size() int64 {
	return int64(len(m.data))
}

// testData returns n deterministic, mildly compressible bytes.
func testData(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i%251 + i/251)
	}
	return data
}

// splitSizes slices data into consecutive chunks of the given sizes.
func splitSizes(t *testing.T, data []byte, sizes []int) [][]byte {
	t.Helper()
	chunks := make([][]byte, 0, len(sizes))
	for _, n := range sizes {
		require.LessOrEqual(t, n, len(data))
		chunks = append(chunks, data[:n])
		data = data[n:]
	}
	require.Empty(t, data)
	return chunks
}

// buildArchive builds a seekable archive with one frame per size.
func buildArchive(t *testing.T, sizes []int, opts ...testarchive.Option) (data, archive []byte) {
	t.Helper()
	total := 0
	for _, n := range sizes {
		total += n
	}
	data = testData(total)
	archive, err := testarchive.Build(splitSizes(t, data, sizes), opts...)
	require.NoError(t, err)
	return data, archive
}

// trailerStart returns the offset of the skippable frame holding the seek
// table, assuming checksums are present.
func trailerStart(archiveLen, numFrames int) int {
	return archiveLen - (8 + numFrames*12 + 9)
}

func TestLoadSeekTable(t *testing.T) {
	sizes := []int{100, 200, 150}
	_, archive := buildArchive(t, sizes)

	st, err := LoadSeekTable(&memSource{data: archive})
	require.NoError(t, err)

	assert.Equal(t, 3, st.Len())
	assert.Equal(t, int64(450), st.Size())
	assert.True(t, st.HasChecksums())
	assert.Equal(t, int64(trailerStart(len(archive), 3)), st.CompressedSize())

	var decompOffset uint64
	var id int64
	for f := range st.Frames() {
		assert.Equal(t, id, f.ID)
		assert.Equal(t, decompOffset, f.DecompOffset)
		assert.Equal(t, uint32(sizes[id]), f.DecompSize)
		assert.NotZero(t, f.Checksum)
		decompOffset += uint64(f.DecompSize)
		id++
	}

	f, ok := st.Frame(1)
	require.True(t, ok)
	assert.Equal(t, uint64(100), f.DecompOffset)
	_, ok = st.Frame(3)
	assert.False(t, ok)
	_, ok = st.Frame(-1)
	assert.False(t, ok)
}

func TestLoadSeekTableNoChecksums(t *testing.T) {
	_, archive := buildArchive(t, []int{64, 64}, testarchive.WithoutChecksums())

	st, err := LoadSeekTable(&memSource{data: archive})
	require.NoError(t, err)
	assert.False(t, st.HasChecksums())
	assert.Equal(t, int64(128), st.Size())
}

func TestLoadSeekTableEmpty(t *testing.T) {
	archive, err := testarchive.Build(nil)
	require.NoError(t, err)

	st, err := LoadSeekTable(&memSource{data: archive})
	require.NoError(t, err)
	assert.Equal(t, 0, st.Len())
	assert.Equal(t, int64(0), st.Size())

	_, ok := st.Locate(0)
	assert.False(t, ok)
}

func TestLoadSeekTableErrors(t *testing.T) {
	_, archive := buildArchive(t, []int{100, 200, 150})
	start := trailerStart(len(archive), 3)

	t.Run("object too small", func(t *testing.T) {
		_, err := LoadSeekTable(&memSource{data: []byte{1, 2, 3}})
		assert.ErrorIs(t, err, ErrTruncatedIndex)
	})

	t.Run("no seekable magic", func(t *testing.T) {
		_, err := LoadSeekTable(&memSource{data: testData(64)})
		assert.ErrorIs(t, err, ErrNoSeekTable)
	})

	t.Run("declared table larger than object", func(t *testing.T) {
		// A footer claiming 1000 frames on a small object.
		data := testData(32)
		data = binary.LittleEndian.AppendUint32(data, 1000)
		data = append(data, 1<<7)
		data = binary.LittleEndian.AppendUint32(data, 0x8F92EAB1)
		_, err := LoadSeekTable(&memSource{data: data})
		assert.ErrorIs(t, err, ErrTruncatedIndex)
	})

	t.Run("bad skippable magic", func(t *testing.T) {
		bad := append([]byte(nil), archive...)
		binary.LittleEndian.PutUint32(bad[start:], 0xDEADBEEF)
		_, err := LoadSeekTable(&memSource{data: bad})
		assert.ErrorIs(t, err, ErrCorruptIndex)
	})

	t.Run("skippable size mismatch", func(t *testing.T) {
		bad := append([]byte(nil), archive...)
		binary.LittleEndian.PutUint32(bad[start+4:], 7)
		_, err := LoadSeekTable(&memSource{data: bad})
		assert.ErrorIs(t, err, ErrCorruptIndex)
	})

	t.Run("reserved descriptor bits", func(t *testing.T) {
		bad := append([]byte(nil), archive...)
		bad[len(bad)-5] |= 0x04
		_, err := LoadSeekTable(&memSource{data: bad})
		assert.ErrorIs(t, err, ErrCorruptIndex)
	})

	t.Run("frames do not cover object", func(t *testing.T) {
		// Dropping leading compressed bytes leaves a valid trailer that
		// no longer accounts for the object size.
		_, err := LoadSeekTable(&memSource{data: archive[10:]})
		assert.ErrorIs(t, err, ErrCorruptIndex)
	})
}

func TestNewSeekTable(t *testing.T) {
	frames := []Frame{
		{CompOffset: 0, CompSize: 40, DecompOffset: 0, DecompSize: 100},
		{CompOffset: 40, CompSize: 80, DecompOffset: 100, DecompSize: 200},
		{CompOffset: 120, CompSize: 60, DecompOffset: 300, DecompSize: 150},
	}
	st, err := NewSeekTable(frames)
	require.NoError(t, err)
	assert.Equal(t, int64(450), st.Size())
	assert.Equal(t, int64(180), st.CompressedSize())
	assert.False(t, st.HasChecksums())

	f, ok := st.Frame(2)
	require.True(t, ok)
	assert.Equal(t, int64(2), f.ID)
}

func TestNewSeekTableGap(t *testing.T) {
	// Frame 0 ends at decompressed offset 100 but frame 1 starts at 105.
	frames := []Frame{
		{CompOffset: 0, CompSize: 40, DecompOffset: 0, DecompSize: 100},
		{CompOffset: 40, CompSize: 80, DecompOffset: 105, DecompSize: 200},
	}
	_, err := NewSeekTable(frames)
	assert.ErrorIs(t, err, ErrCorruptIndex)
}

func TestNewSeekTableOverlap(t *testing.T) {
	frames := []Frame{
		{CompOffset: 0, CompSize: 40, DecompOffset: 0, DecompSize: 100},
		{CompOffset: 40, CompSize: 80, DecompOffset: 90, DecompSize: 200},
	}
	_, err := NewSeekTable(frames)
	assert.ErrorIs(t, err, ErrCorruptIndex)
}

func TestLocate(t *testing.T) {
	_, archive := buildArchive(t, []int{100, 200, 150})
	st, err := LoadSeekTable(&memSource{data: archive})
	require.NoError(t, err)

	// Every in-range offset maps to exactly one covering frame.
	for off := int64(0); off < st.Size(); off++ {
		f, ok := st.Locate(off)
		if !ok || !f.contains(uint64(off)) {
			t.Fatalf("Locate(%d) = frame %d [%d, %d), ok=%v", off, f.ID,
				f.DecompOffset, f.DecompOffset+uint64(f.DecompSize), ok)
		}
	}

	// Boundary offsets land in the later frame.
	f, ok := st.Locate(100)
	require.True(t, ok)
	assert.Equal(t, int64(1), f.ID)

	_, ok = st.Locate(-1)
	assert.False(t, ok)
	_, ok = st.Locate(st.Size())
	assert.False(t, ok)
	_, ok = st.Locate(st.Size() + 1000)
	assert.False(t, ok)
}

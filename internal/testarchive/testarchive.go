// Package testarchive builds zstd seekable archives for tests.
//
// Writing archives is not part of the public surface; this builder exists
// so tests can exercise readers against real archives produced with the
// same zstd codec the reader decodes with.
package testarchive

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/zstd"
)

const (
	skippableMagic = 0x184D2A5E
	seekableMagic  = 0x8F92EAB1

	checksumFlag = 1 << 7
)

type config struct {
	checksums bool
	level     zstd.EncoderLevel
}

// Option configures archive building.
type Option func(*config)

// WithoutChecksums omits per-frame checksums from the seek table.
func WithoutChecksums() Option {
	return func(cfg *config) {
		cfg.checksums = false
	}
}

// WithLevel sets the zstd compression level.
func WithLevel(level zstd.EncoderLevel) Option {
	return func(cfg *config) {
		cfg.level = level
	}
}

// Build compresses each payload into its own frame and appends a seek
// table, returning the complete archive.
func Build(payloads [][]byte, opts ...Option) ([]byte, error) {
	cfg := config{
		checksums: true,
		level:     zstd.SpeedDefault,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(cfg.level))
	if err != nil {
		return nil, err
	}
	defer enc.Close()

	var archive []byte
	type entry struct {
		compSize, decompSize, checksum uint32
	}
	entries := make([]entry, 0, len(payloads))
	for i, payload := range payloads {
		frame := enc.EncodeAll(payload, nil)
		if len(frame) > 1<<31-1 || len(payload) > 1<<31-1 {
			return nil, fmt.Errorf("frame %d too large", i)
		}
		e := entry{
			compSize:   uint32(len(frame)),
			decompSize: uint32(len(payload)),
		}
		if cfg.checksums {
			e.checksum = uint32(xxhash.Sum64(payload))
		}
		entries = append(entries, e)
		archive = append(archive, frame...)
	}

	stride := 8
	descriptor := byte(0)
	if cfg.checksums {
		stride = 12
		descriptor |= checksumFlag
	}

	// Skippable frame: magic, size, entries, 9-byte footer.
	contentSize := len(entries)*stride + 9
	archive = binary.LittleEndian.AppendUint32(archive, skippableMagic)
	archive = binary.LittleEndian.AppendUint32(archive, uint32(contentSize))
	for _, e := range entries {
		archive = binary.LittleEndian.AppendUint32(archive, e.compSize)
		archive = binary.LittleEndian.AppendUint32(archive, e.decompSize)
		if cfg.checksums {
			archive = binary.LittleEndian.AppendUint32(archive, e.checksum)
		}
	}
	archive = binary.LittleEndian.AppendUint32(archive, uint32(len(entries)))
	archive = append(archive, descriptor)
	archive = binary.LittleEndian.AppendUint32(archive, seekableMagic)

	return archive, nil
}

// BuildChunked splits data into frameSize chunks and builds an archive
// with one frame per chunk.
func BuildChunked(data []byte, frameSize int, opts ...Option) ([]byte, error) {
	if frameSize <= 0 {
		return nil, fmt.Errorf("frame size must be > 0, got %d", frameSize)
	}
	var payloads [][]byte
	for len(data) > 0 {
		n := min(frameSize, len(data))
		payloads = append(payloads, data[:n])
		data = data[n:]
	}
	return Build(payloads, opts...)
}

package seekzstd

import (
	"log/slog"

	"github.com/meigma/seekzstd/cache"
	"github.com/meigma/seekzstd/internal/zstdpool"
)

// DefaultCacheFrames is the capacity of the per-reader frame cache used
// when no [WithCache] option is set.
const DefaultCacheFrames = 8

// Option configures a Reader.
type Option func(*Reader)

// WithCache sets the frame cache.
//
// The default is a per-reader LRU holding [DefaultCacheFrames] frames.
// A cache may be shared across readers; implementations must be safe for
// concurrent use. See the cache and cache/disk subpackages.
func WithCache(c Cache) Option {
	return func(r *Reader) {
		r.cache = c
	}
}

// WithSeekTable supplies a pre-parsed seek table, skipping the trailer
// fetch at construction. Useful for sharing one table across readers or
// for tables obtained out of band.
func WithSeekTable(table *SeekTable) Option {
	return func(r *Reader) {
		r.table = table
	}
}

// WithFrameDecoder sets the frame decoder. The default pools zstd
// decoders.
func WithFrameDecoder(d FrameDecoder) Option {
	return func(r *Reader) {
		r.decoder = d
	}
}

// WithMaxDecoderMemory caps the memory the default zstd decoder may use
// per frame. Zero means no limit. Ignored when [WithFrameDecoder] is set.
func WithMaxDecoderMemory(n uint64) Option {
	return func(r *Reader) {
		r.maxDecoderMemory = n
	}
}

// WithoutChecksums disables verification of per-frame checksums.
func WithoutChecksums() Option {
	return func(r *Reader) {
		r.verify = false
	}
}

// WithLogger sets a logger for the reader.
// If nil, a discard logger is used (default behavior).
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reader) {
		r.logger = logger
	}
}

func newDefaultCache() (Cache, error) {
	return cache.NewLRU(DefaultCacheFrames)
}

func defaultDecoderPool(maxMemory uint64) FrameDecoder {
	return zstdpool.New(maxMemory)
}

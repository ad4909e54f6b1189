// Package cache provides frame caches for seekable archive readers.
//
// Caches store decompressed frame payloads keyed by source identity and
// frame ID. Entries are immutable after insertion and may be evicted at
// any time; a miss only costs a refetch. All implementations are safe for
// concurrent use, so a single cache may be shared across readers.
package cache

// Cache stores decompressed frame payloads.
//
// A Put for a key already present replaces the entry. Get must never
// return partially written data. Implementations handle their own size
// limits and eviction policies.
type Cache interface {
	// Get retrieves a frame payload. Returns nil, false on a miss.
	Get(key string) ([]byte, bool)

	// Put stores a frame payload.
	Put(key string, payload []byte) error
}

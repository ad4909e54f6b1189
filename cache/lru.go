package cache

import (
	"errors"

	lru "github.com/hashicorp/golang-lru/v2"
)

// LRU is an in-memory frame cache bounded by entry count, evicting the
// least recently used frame when full. LRU is safe for concurrent use.
type LRU struct {
	entries *lru.Cache[string, []byte]
}

// Interface compliance.
var _ Cache = (*LRU)(nil)

// NewLRU creates an LRU cache holding at most frames entries.
func NewLRU(frames int) (*LRU, error) {
	if frames <= 0 {
		return nil, errors.New("cache: frame count must be > 0")
	}
	entries, err := lru.New[string, []byte](frames)
	if err != nil {
		return nil, err
	}
	return &LRU{entries: entries}, nil
}

// Get retrieves a frame payload.
func (c *LRU) Get(key string) ([]byte, bool) {
	return c.entries.Get(key)
}

// Put stores a frame payload, evicting the least recently used entry if
// the cache is full.
func (c *LRU) Put(key string, payload []byte) error {
	c.entries.Add(key, payload)
	return nil
}

// Len returns the number of cached frames.
func (c *LRU) Len() int {
	return c.entries.Len()
}

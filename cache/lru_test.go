package cache_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/seekzstd/cache"
)

func TestLRU(t *testing.T) {
	c, err := cache.NewLRU(4)
	require.NoError(t, err)

	_, ok := c.Get("missing")
	assert.False(t, ok)

	require.NoError(t, c.Put("a#0", []byte("frame zero")))
	payload, ok := c.Get("a#0")
	require.True(t, ok)
	assert.Equal(t, []byte("frame zero"), payload)

	// Replacement is idempotent: one entry per key.
	require.NoError(t, c.Put("a#0", []byte("replaced")))
	payload, ok = c.Get("a#0")
	require.True(t, ok)
	assert.Equal(t, []byte("replaced"), payload)
	assert.Equal(t, 1, c.Len())
}

func TestLRUEviction(t *testing.T) {
	c, err := cache.NewLRU(2)
	require.NoError(t, err)

	require.NoError(t, c.Put("f0", []byte("0")))
	require.NoError(t, c.Put("f1", []byte("1")))

	// Touch f0 so f1 becomes the eviction candidate.
	_, ok := c.Get("f0")
	require.True(t, ok)

	require.NoError(t, c.Put("f2", []byte("2")))
	assert.Equal(t, 2, c.Len())

	_, ok = c.Get("f1")
	assert.False(t, ok, "least recently used entry should be evicted")
	_, ok = c.Get("f0")
	assert.True(t, ok)
	_, ok = c.Get("f2")
	assert.True(t, ok)
}

func TestLRUInvalidCapacity(t *testing.T) {
	for _, frames := range []int{0, -1} {
		_, err := cache.NewLRU(frames)
		assert.Error(t, err, fmt.Sprintf("frames = %d", frames))
	}
}

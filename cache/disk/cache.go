// Package disk provides a disk-backed frame cache.
//
// Cached frames survive process restarts, so readers that revisit the
// same archive avoid refetching and redecompressing frames they have seen
// before. Pair it with byte sources that implement SourceID so entries
// from different archives cannot collide.
package disk

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"

	"github.com/meigma/seekzstd/cache"
)

const (
	defaultShardPrefixLen = 2
	defaultDirPerm        = 0o700
	defaultFilePerm       = 0o600
)

// Cache implements cache.Cache using the local filesystem.
//
// Keys are hashed to fixed-width hex names and sharded into
// subdirectories to keep directory sizes manageable. Writes go to a
// temporary file and are renamed into place, so Get never observes
// partially written data. The cache does not bound its own size; prune
// the directory externally if disk usage matters.
type Cache struct {
	dir            string
	shardPrefixLen int
	dirPerm        os.FileMode
}

// Interface compliance.
var _ cache.Cache = (*Cache)(nil)

// Option configures a disk cache.
type Option func(*Cache)

// WithShardPrefixLen sets the number of hex characters used for sharding.
// Use 0 to disable sharding. Defaults to 2.
func WithShardPrefixLen(n int) Option {
	return func(c *Cache) {
		c.shardPrefixLen = n
	}
}

// WithDirPerm sets the directory permissions used for cache directories.
func WithDirPerm(mode os.FileMode) Option {
	return func(c *Cache) {
		c.dirPerm = mode
	}
}

// New creates a disk-backed cache rooted at dir.
func New(dir string, opts ...Option) (*Cache, error) {
	if dir == "" {
		return nil, errors.New("cache dir is empty")
	}
	c := &Cache{
		dir:            dir,
		shardPrefixLen: defaultShardPrefixLen,
		dirPerm:        defaultDirPerm,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.shardPrefixLen < 0 || c.shardPrefixLen > 16 {
		return nil, errors.New("shard prefix length must be between 0 and 16")
	}
	if err := os.MkdirAll(dir, c.dirPerm); err != nil {
		return nil, err
	}
	return c, nil
}

// Get retrieves a frame payload.
func (c *Cache) Get(key string) ([]byte, bool) {
	data, err := os.ReadFile(c.path(key))
	if err != nil {
		return nil, false
	}
	return data, true
}

// Put stores a frame payload atomically.
func (c *Cache) Put(key string, payload []byte) error {
	path := c.path(key)
	if err := os.MkdirAll(filepath.Dir(path), c.dirPerm); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".put-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Chmod(defaultFilePerm); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// Delete removes a cached frame. Missing entries are not an error.
func (c *Cache) Delete(key string) error {
	err := os.Remove(c.path(key))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// path maps a key to its file location. Keys are hashed so arbitrary key
// strings yield filesystem-safe, fixed-width names.
func (c *Cache) path(key string) string {
	name := fmt.Sprintf("%016x", xxhash.Sum64String(key))
	if c.shardPrefixLen == 0 {
		return filepath.Join(c.dir, name)
	}
	return filepath.Join(c.dir, name[:c.shardPrefixLen], name)
}

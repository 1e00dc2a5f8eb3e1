package audio

import (
	"context"
	"sync"
)

// DecodeCache shares decoded PCM across jobs. Entries are immutable once
// filled; at most one decode per source key runs at a time, and concurrent
// readers of the same key wait for that single writer.
type DecodeCache struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry
}

type cacheEntry struct {
	once sync.Once
	buf  *Buffer
	err  error
}

// NewDecodeCache constructs an empty cache.
func NewDecodeCache() *DecodeCache {
	return &DecodeCache{entries: make(map[string]*cacheEntry)}
}

// GetOrDecode returns the cached buffer for key, running decode exactly once
// per key. Decode errors are cached too so a broken source is not re-decoded
// by every element that references it; Evict clears them for retries.
func (c *DecodeCache) GetOrDecode(ctx context.Context, key string, decode func(context.Context) (*Buffer, error)) (*Buffer, error) {
	c.mu.Lock()
	entry, ok := c.entries[key]
	if !ok {
		entry = &cacheEntry{}
		c.entries[key] = entry
	}
	c.mu.Unlock()

	entry.once.Do(func() {
		entry.buf, entry.err = decode(ctx)
	})
	return entry.buf, entry.err
}

// Evict removes the entry for key, allowing a fresh decode attempt.
func (c *DecodeCache) Evict(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Len reports the number of cached entries.
func (c *DecodeCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

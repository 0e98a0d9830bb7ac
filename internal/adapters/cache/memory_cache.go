package cache

import (
	"strings"
	"sync"
	"time"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryCache is the per-process TTL cache behind read paths. It holds only
// non-sensitive derived data (index summaries), so cross-instance coherence
// is handled by invalidation broadcasts plus TTL, not by locking.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry)}
}

func (c *MemoryCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !entry.expiresAt.After(time.Now()) {
		delete(c.entries, key)
		return nil, false
	}
	out := make([]byte, len(entry.value))
	copy(out, entry.value)
	return out, true
}

func (c *MemoryCache) Set(key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	stored := make([]byte, len(value))
	copy(stored, value)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = memoryEntry{value: stored, expiresAt: time.Now().Add(ttl)}
}

func (c *MemoryCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

func (c *MemoryCache) DeletePrefix(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
}

package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	size      int
	expiresAt time.Time
}

// MemoryCache is the in-process fallback used when Redis is disabled
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[int]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryCache creates an in-memory audience cache. A zero ttl never expires.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		entries: make(map[int]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (c *MemoryCache) GetAudienceSize(_ context.Context, segmentID int) (int, error) {
	c.mu.RLock()
	entry, ok := c.entries[segmentID]
	c.mu.RUnlock()

	if !ok {
		return 0, ErrMiss
	}
	if !entry.expiresAt.IsZero() && c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, segmentID)
		c.mu.Unlock()
		return 0, ErrMiss
	}
	return entry.size, nil
}

func (c *MemoryCache) SetAudienceSize(_ context.Context, segmentID int, size int) error {
	entry := memoryEntry{size: size}
	if c.ttl > 0 {
		entry.expiresAt = c.now().Add(c.ttl)
	}

	c.mu.Lock()
	c.entries[segmentID] = entry
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Invalidate(_ context.Context, segmentID int) error {
	c.mu.Lock()
	delete(c.entries, segmentID)
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Ping(context.Context) error { return nil }

func (c *MemoryCache) Close() error { return nil }

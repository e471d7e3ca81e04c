package cache

import (
	"context"
	"sync"
	"time"
)

const defaultCleanupInterval = time.Minute

// MemoryCache is an in-memory cache implementation with TTL support
type MemoryCache struct {
	mu       sync.RWMutex
	items    map[string]entry
	ttl      time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

type entry struct {
	value     []byte
	expiresAt time.Time
}

// NewMemory creates a new in-memory cache with the specified TTL
func NewMemory(ttl time.Duration) *MemoryCache {
	return NewMemoryWithCleanup(ttl, defaultCleanupInterval)
}

// NewMemoryWithCleanup is NewMemory with an explicit janitor interval.
func NewMemoryWithCleanup(ttl, interval time.Duration) *MemoryCache {
	if interval <= 0 {
		interval = defaultCleanupInterval
	}
	c := &MemoryCache{
		items:  make(map[string]entry),
		ttl:    ttl,
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
	go c.cleanup(interval)
	return c
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.items[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		return nil, false
	}
	return e.value, true
}

func (c *MemoryCache) Set(ctx context.Context, key string, value []byte) {
	c.SetWithTTL(ctx, key, value, c.ttl)
}

func (c *MemoryCache) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) {
	stored := make([]byte, len(value))
	copy(stored, value)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = entry{
		value:     stored,
		expiresAt: time.Now().Add(ttl),
	}
}

func (c *MemoryCache) Delete(_ context.Context, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

func (c *MemoryCache) Clear(_ context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]entry)
}

// Len returns the number of stored entries, expired ones included.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Stop ends the janitor goroutine and waits for it. Safe to call twice.
func (c *MemoryCache) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
	})
	<-c.done
}

func (c *MemoryCache) cleanup(interval time.Duration) {
	defer close(c.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.removeExpired()
		case <-c.stopCh:
			return
		}
	}
}

func (c *MemoryCache) removeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for key, e := range c.items {
		if now.After(e.expiresAt) {
			delete(c.items, key)
		}
	}
}

// Ensure MemoryCache implements Cache interface
var _ Cache = (*MemoryCache)(nil)

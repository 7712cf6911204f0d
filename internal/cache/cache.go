package cache

import (
	"strings"
	"sync"
	"time"
)

// Cache provides a simple in-memory cache with idle expiration. Reading an
// entry through GetOrCreate refreshes it.
type Cache struct {
	data  map[string]any
	times map[string]time.Time
	ttl   time.Duration
	mu    sync.RWMutex
	now   func() time.Time

	// OnEvict is called outside the lock for each entry removed by Prune or
	// Delete.
	OnEvict func(key string, val any)
}

// NewCache creates a new cache with the specified TTL
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		data:  make(map[string]any),
		times: make(map[string]time.Time),
		ttl:   ttl,
		now:   time.Now,
	}
}

// Get retrieves a value from the cache
func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	val, exists := c.data[key]
	if !exists {
		return nil, false
	}

	// Check if expired
	if c.now().Sub(c.times[key]) > c.ttl {
		return nil, false
	}

	return val, true
}

// Set stores a value in the cache
func (c *Cache) Set(key string, val any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data[key] = val
	c.times[key] = c.now()
}

// GetOrCreate returns the live value for key, creating it with create when it
// is missing or expired. The entry's idle timer is reset either way.
func (c *Cache) GetOrCreate(key string, create func() any) any {
	c.mu.Lock()
	now := c.now()

	val, exists := c.data[key]
	var expired any
	if exists && now.Sub(c.times[key]) > c.ttl {
		expired = val
		exists = false
	}
	if !exists {
		val = create()
		c.data[key] = val
	}
	c.times[key] = now
	onEvict := c.OnEvict
	c.mu.Unlock()

	if expired != nil && onEvict != nil {
		onEvict(key, expired)
	}
	return val
}

// Delete removes key from the cache.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	val, exists := c.data[key]
	delete(c.data, key)
	delete(c.times, key)
	onEvict := c.OnEvict
	c.mu.Unlock()

	if exists && onEvict != nil {
		onEvict(key, val)
	}
}

// DeletePrefix removes every key starting with prefix and returns how many
// were removed.
func (c *Cache) DeletePrefix(prefix string) int {
	c.mu.Lock()
	evicted := make(map[string]any)
	for key, val := range c.data {
		if strings.HasPrefix(key, prefix) {
			evicted[key] = val
			delete(c.data, key)
			delete(c.times, key)
		}
	}
	onEvict := c.OnEvict
	c.mu.Unlock()

	if onEvict != nil {
		for key, val := range evicted {
			onEvict(key, val)
		}
	}
	return len(evicted)
}

// Prune removes every expired entry and returns how many were removed.
func (c *Cache) Prune() int {
	c.mu.Lock()
	now := c.now()
	evicted := make(map[string]any)
	for key, set := range c.times {
		if now.Sub(set) > c.ttl {
			evicted[key] = c.data[key]
			delete(c.data, key)
			delete(c.times, key)
		}
	}
	onEvict := c.OnEvict
	c.mu.Unlock()

	if onEvict != nil {
		for key, val := range evicted {
			onEvict(key, val)
		}
	}
	return len(evicted)
}

// Len returns the number of stored entries, expired or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

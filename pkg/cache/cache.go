// pkg/cache/cache.go
package cache

import (
	"sync"
	"time"
)

// Item is a counter that lives until Expiration.
type Item struct {
	Count      int64
	Expiration int64
}

// Cache keeps fixed-window counters in memory. It backs the rate limiter
// when Redis is disabled, so limits are per instance.
type Cache struct {
	items map[string]Item
	mu    sync.Mutex
	now   func() time.Time
	stop  chan struct{}
	once  sync.Once
}

func NewCache(gcInterval time.Duration) *Cache {
	cache := &Cache{
		items: make(map[string]Item),
		now:   time.Now,
		stop:  make(chan struct{}),
	}
	if gcInterval > 0 {
		go cache.startGC(gcInterval)
	}
	return cache
}

// WithClock replaces the time source.
func (c *Cache) WithClock(now func() time.Time) *Cache {
	c.now = now
	return c
}

// Incr bumps the counter for key, opening a new window when the previous
// one has expired. It returns the count and the time left in the window.
func (c *Cache) Incr(key string, window time.Duration) (int64, time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now().UnixNano()
	item, found := c.items[key]
	if !found || now >= item.Expiration {
		item = Item{Expiration: now + int64(window)}
	}
	item.Count++
	c.items[key] = item

	return item.Count, time.Duration(item.Expiration - now)
}

func (c *Cache) Get(key string) (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, found := c.items[key]
	if !found || c.now().UnixNano() >= item.Expiration {
		return 0, false
	}
	return item.Count, true
}

func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Close stops the collector. Safe to call twice.
func (c *Cache) Close() {
	c.once.Do(func() { close(c.stop) })
}

func (c *Cache) purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now().UnixNano()
	for k, v := range c.items {
		if now >= v.Expiration {
			delete(c.items, k)
		}
	}
}

func (c *Cache) startGC(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.purge()
		case <-c.stop:
			return
		}
	}
}

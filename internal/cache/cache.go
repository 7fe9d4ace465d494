package cache

import (
	"sync"
	"time"
)

// Item is a cached value with its expiry.
type item struct {
	value     any
	expiresAt time.Time
}

func (i *item) expired() bool {
	return time.Now().After(i.expiresAt)
}

// Cache is a thread-safe TTL cache. Construct instances explicitly and
// inject them where caching is wanted; the scoring packages never depend
// on one.
type Cache struct {
	mu       sync.RWMutex
	items    map[string]*item
	inflight map[string]*call
	ttl      time.Duration
	stop     chan struct{}
}

// call tracks one in-flight computation so concurrent misses for the same
// key wait for a single result instead of computing it in parallel.
type call struct {
	done  chan struct{}
	value any
	err   error
}

// New creates a cache with the given TTL and starts its cleanup loop.
// Call Stop when done with it.
func New(ttl time.Duration) *Cache {
	c := &Cache{
		items:    make(map[string]*item),
		inflight: make(map[string]*call),
		ttl:      ttl,
		stop:     make(chan struct{}),
	}
	go c.cleanup()
	return c
}

// Stop terminates the cleanup goroutine.
func (c *Cache) Stop() {
	close(c.stop)
}

func (c *Cache) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.mu.Lock()
			for key, it := range c.items {
				if it.expired() {
					delete(c.items, key)
				}
			}
			c.mu.Unlock()
		}
	}
}

// Get retrieves a value. The second return is false on miss or expiry.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	it, ok := c.items[key]
	if !ok || it.expired() {
		return nil, false
	}
	return it.value, true
}

// Set stores a value under the cache's TTL.
func (c *Cache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = &item{value: value, expiresAt: time.Now().Add(c.ttl)}
}

// Delete removes a key.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, key)
}

// Clear removes all entries.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*item)
}

// Size returns the number of entries, expired ones included.
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.items)
}

// GetOrCompute returns the cached value for key, computing and storing it
// on a miss. Concurrent callers missing on the same key share one
// computation; errors are returned to every waiter and not cached.
func (c *Cache) GetOrCompute(key string, fn func() (any, error)) (any, error) {
	c.mu.Lock()
	if it, ok := c.items[key]; ok && !it.expired() {
		c.mu.Unlock()
		return it.value, nil
	}
	if cl, ok := c.inflight[key]; ok {
		c.mu.Unlock()
		<-cl.done
		return cl.value, cl.err
	}
	cl := &call{done: make(chan struct{})}
	c.inflight[key] = cl
	c.mu.Unlock()

	cl.value, cl.err = fn()

	c.mu.Lock()
	delete(c.inflight, key)
	if cl.err == nil {
		c.items[key] = &item{value: cl.value, expiresAt: time.Now().Add(c.ttl)}
	}
	c.mu.Unlock()
	close(cl.done)

	return cl.value, cl.err
}

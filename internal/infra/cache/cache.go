// Package cache provides an in-memory TTL cache with sliding expiry.
// It holds live session contexts, so eviction runs a teardown hook.
package cache

import (
	"sync"
	"time"
)

type entry[T any] struct {
	value     T
	expiresAt time.Time
}

// EvictFunc is called outside the lock for every entry that expires or
// is deleted.
type EvictFunc[T any] func(key string, value T)

// Option configures an InMemory cache.
type Option[T any] func(*InMemory[T])

// WithOnEvict registers a teardown hook.
func WithOnEvict[T any](fn EvictFunc[T]) Option[T] {
	return func(c *InMemory[T]) { c.onEvict = fn }
}

// WithClock overrides time.Now, for tests.
func WithClock[T any](now func() time.Time) Option[T] {
	return func(c *InMemory[T]) { c.now = now }
}

// WithSweepInterval sets how often expired entries are collected.
// Zero disables the background sweeper.
func WithSweepInterval[T any](d time.Duration) Option[T] {
	return func(c *InMemory[T]) { c.sweep = d }
}

// InMemory is a thread-safe in-memory cache. Every hit pushes the
// entry's expiry forward by the TTL.
type InMemory[T any] struct {
	mu      sync.Mutex
	items   map[string]entry[T]
	ttl     time.Duration
	sweep   time.Duration
	now     func() time.Time
	onEvict EvictFunc[T]
	done    chan struct{}
	once    sync.Once
}

// New creates a new in-memory cache with the given TTL.
func New[T any](ttl time.Duration, opts ...Option[T]) *InMemory[T] {
	c := &InMemory[T]{
		items: make(map[string]entry[T]),
		ttl:   ttl,
		sweep: ttl,
		now:   time.Now,
		done:  make(chan struct{}),
	}
	for _, o := range opts {
		o(c)
	}
	if c.sweep > 0 {
		go c.cleanup()
	}
	return c
}

// Get retrieves a value and refreshes its expiry. Returns false if not
// found or expired.
func (c *InMemory[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	e, ok := c.items[key]
	now := c.now()
	if !ok {
		c.mu.Unlock()
		var zero T
		return zero, false
	}
	if now.After(e.expiresAt) {
		delete(c.items, key)
		c.mu.Unlock()
		c.evict(key, e.value)
		var zero T
		return zero, false
	}
	e.expiresAt = now.Add(c.ttl)
	c.items[key] = e
	c.mu.Unlock()
	return e.value, true
}

// Set stores a value with the configured TTL. A replaced value is not
// passed to the evict hook.
func (c *InMemory[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = entry[T]{
		value:     value,
		expiresAt: c.now().Add(c.ttl),
	}
}

// Delete removes a value and runs the evict hook for it.
func (c *InMemory[T]) Delete(key string) {
	c.mu.Lock()
	e, ok := c.items[key]
	delete(c.items, key)
	c.mu.Unlock()

	if ok {
		c.evict(key, e.value)
	}
}

// Len returns the number of stored entries, expired or not.
func (c *InMemory[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Sweep removes every expired entry now.
func (c *InMemory[T]) Sweep() {
	c.mu.Lock()
	now := c.now()
	var expired []string
	var values []T
	for k, v := range c.items {
		if now.After(v.expiresAt) {
			expired = append(expired, k)
			values = append(values, v.value)
			delete(c.items, k)
		}
	}
	c.mu.Unlock()

	for i, k := range expired {
		c.evict(k, values[i])
	}
}

// Close stops the sweeper and evicts every remaining entry.
func (c *InMemory[T]) Close() {
	c.once.Do(func() { close(c.done) })

	c.mu.Lock()
	items := c.items
	c.items = make(map[string]entry[T])
	c.mu.Unlock()

	for k, v := range items {
		c.evict(k, v.value)
	}
}

func (c *InMemory[T]) evict(key string, value T) {
	if c.onEvict != nil {
		c.onEvict(key, value)
	}
}

// cleanup periodically removes expired entries.
func (c *InMemory[T]) cleanup() {
	ticker := time.NewTicker(c.sweep)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.Sweep()
		case <-c.done:
			return
		}
	}
}

package cache_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boddenberg/sloth-organize-bfa/internal/infra/cache"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func TestCache_SetAndGet(t *testing.T) {
	c := cache.New[string](5*time.Minute, cache.WithSweepInterval[string](0))
	defer c.Close()

	c.Set("key1", "value1")
	val, ok := c.Get("key1")
	require.True(t, ok)
	assert.Equal(t, "value1", val)
}

func TestCache_GetMiss(t *testing.T) {
	c := cache.New[string](5*time.Minute, cache.WithSweepInterval[string](0))
	defer c.Close()

	_, ok := c.Get("nonexistent")
	assert.False(t, ok)
}

func TestCache_SlidingExpiry(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := cache.New[string](time.Minute,
		cache.WithSweepInterval[string](0),
		cache.WithClock[string](clock.Now),
	)
	defer c.Close()

	c.Set("key1", "value1")
	clock.Advance(50 * time.Second)
	_, ok := c.Get("key1")
	require.True(t, ok, "hit before ttl")

	clock.Advance(50 * time.Second)
	_, ok = c.Get("key1")
	require.True(t, ok, "previous hit should have extended the ttl")

	clock.Advance(61 * time.Second)
	_, ok = c.Get("key1")
	assert.False(t, ok)
}

func TestCache_EvictHook(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	var evicted []string
	c := cache.New[string](time.Minute,
		cache.WithSweepInterval[string](0),
		cache.WithClock[string](clock.Now),
		cache.WithOnEvict[string](func(key, _ string) { evicted = append(evicted, key) }),
	)

	c.Set("a", "1")
	c.Set("b", "2")
	c.Delete("a")
	assert.Equal(t, []string{"a"}, evicted)

	clock.Advance(2 * time.Minute)
	c.Sweep()
	assert.Equal(t, []string{"a", "b"}, evicted)
	assert.Zero(t, c.Len())

	c.Set("c", "3")
	c.Close()
	assert.Equal(t, []string{"a", "b", "c"}, evicted)
}

func TestCache_BackgroundSweep(t *testing.T) {
	var mu sync.Mutex
	evicted := 0
	c := cache.New[string](20*time.Millisecond,
		cache.WithSweepInterval[string](10*time.Millisecond),
		cache.WithOnEvict[string](func(string, string) {
			mu.Lock()
			evicted++
			mu.Unlock()
		}),
	)
	defer c.Close()

	c.Set("key1", "value1")
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return evicted == 1
	}, time.Second, 10*time.Millisecond)
}

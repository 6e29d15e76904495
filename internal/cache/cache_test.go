package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestTTL_GetSet(t *testing.T) {
	c := New[string, int](time.Minute, 10)

	_, ok := c.Get("missing")
	assert.False(t, ok)

	c.Set("a", 1)
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestTTL_Expiry(t *testing.T) {
	clock := newFakeClock()
	c := New[string, string](5*time.Minute, 10, WithClock(clock.Now))

	c.Set("q", "cached")

	clock.Advance(4*time.Minute + 59*time.Second)
	v, ok := c.Get("q")
	require.True(t, ok)
	assert.Equal(t, "cached", v)

	clock.Advance(time.Second)
	_, ok = c.Get("q")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestTTL_EvictsLeastRecentlyUsed(t *testing.T) {
	c := New[string, int](time.Hour, 2)

	c.Set("a", 1)
	c.Set("b", 2)

	// Touch a so b becomes the eviction candidate.
	_, _ = c.Get("a")
	c.Set("c", 3)

	_, okA := c.Get("a")
	_, okB := c.Get("b")
	_, okC := c.Get("c")
	assert.True(t, okA)
	assert.False(t, okB)
	assert.True(t, okC)
	assert.Equal(t, 2, c.Len())
}

func TestTTL_SetExistingRefreshesExpiry(t *testing.T) {
	clock := newFakeClock()
	c := New[string, int](time.Minute, 10, WithClock(clock.Now))

	c.Set("a", 1)
	clock.Advance(50 * time.Second)
	c.Set("a", 2)
	clock.Advance(50 * time.Second)

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 2, v)
	assert.Equal(t, 1, c.Len())
}

func TestTTL_DeleteFunc(t *testing.T) {
	type key struct {
		collection string
		query      string
	}
	c := New[key, int](time.Hour, 10)
	c.Set(key{"docs", "a"}, 1)
	c.Set(key{"docs", "b"}, 2)
	c.Set(key{"faq", "a"}, 3)

	removed := c.DeleteFunc(func(k key) bool { return k.collection == "docs" })

	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, c.Len())
	_, ok := c.Get(key{"faq", "a"})
	assert.True(t, ok)
}

func TestTTL_DeleteAndClear(t *testing.T) {
	c := New[string, int](time.Hour, 10)
	c.Set("a", 1)
	c.Set("b", 2)

	c.Delete("a")
	assert.Equal(t, 1, c.Len())

	c.Clear()
	assert.Equal(t, 0, c.Len())
	_, ok := c.Get("b")
	assert.False(t, ok)
}

func TestTTL_Purge(t *testing.T) {
	clock := newFakeClock()
	c := New[string, int](time.Minute, 10, WithClock(clock.Now))
	c.Set("old", 1)
	clock.Advance(30 * time.Second)
	c.Set("new", 2)
	clock.Advance(45 * time.Second)

	assert.Equal(t, 1, c.Purge())
	assert.Equal(t, 1, c.Len())
}

func TestTTL_MinimumSize(t *testing.T) {
	c := New[string, int](time.Minute, 0)
	assert.Equal(t, 1, c.MaxSize())
}

func TestTTL_ConcurrentAccess(t *testing.T) {
	c := New[string, int](time.Minute, 50)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				k := fmt.Sprintf("k%d", (n+j)%80)
				c.Set(k, j)
				_, _ = c.Get(k)
			}
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), 50)
}

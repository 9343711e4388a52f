package cache

import (
	"context"
	"sync"
	"testing"
	"time"
)

// clock is a settable time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestCache() (*MemoryCache[string], *clock) {
	clk := &clock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewMemoryCache[string]()
	c.now = clk.Now
	return c, clk
}

func TestMemoryCacheBasic(t *testing.T) {
	c, _ := newTestCache()

	if _, found := c.Get("test"); found {
		t.Error("expected cache miss for non-existent key")
	}

	c.Set("test", "value", time.Minute)

	got, found := c.Get("test")
	if !found {
		t.Fatal("expected cache hit")
	}
	if got != "value" {
		t.Errorf("Get() = %q, want %q", got, "value")
	}
}

func TestMemoryCacheTTL(t *testing.T) {
	c, clk := newTestCache()
	c.Set("short", "v", 50*time.Millisecond)

	if _, found := c.Get("short"); !found {
		t.Error("expected cache hit immediately after set")
	}

	clk.Advance(100 * time.Millisecond)

	if _, found := c.Get("short"); found {
		t.Error("expected cache miss after TTL expired")
	}
	if c.Len() != 0 {
		t.Errorf("expired entry not removed on lookup, Len() = %d", c.Len())
	}
}

func TestMemoryCacheInvalidate(t *testing.T) {
	c, _ := newTestCache()
	c.Set("test1", "a", time.Minute)
	c.Set("test2", "b", time.Minute)

	c.Invalidate("test1")

	if _, found := c.Get("test1"); found {
		t.Error("expected test1 to be invalidated")
	}
	if _, found := c.Get("test2"); !found {
		t.Error("expected test2 to still exist")
	}

	c.InvalidateAll()
	if c.Len() != 0 {
		t.Errorf("Len() after InvalidateAll = %d, want 0", c.Len())
	}
}

func TestMemoryCachePrune(t *testing.T) {
	c, clk := newTestCache()
	c.Set("old", "a", time.Second)
	c.Set("new", "b", time.Hour)

	clk.Advance(time.Minute)

	if removed := c.Prune(); removed != 1 {
		t.Errorf("Prune() = %d, want 1", removed)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestMemoryCachePruneEveryStops(t *testing.T) {
	c := NewMemoryCache[int]()
	c.Set("gone", 1, time.Nanosecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.PruneEvery(ctx, 5*time.Millisecond)
		close(done)
	}()

	deadline := time.Now().Add(time.Second)
	for c.Len() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if c.Len() != 0 {
		t.Error("PruneEvery did not remove the expired entry")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("PruneEvery did not return after cancel")
	}
}

func TestMemoryCacheConcurrentAccess(t *testing.T) {
	c := NewMemoryCache[int]()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Set("key", n, time.Minute)
				c.Get("key")
				c.Prune()
			}
		}(i)
	}
	wg.Wait()
}

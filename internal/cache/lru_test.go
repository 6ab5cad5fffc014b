package cache

import (
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time { return f.t }

func newTestCache(size int, ttl time.Duration) (*LRUCache[string], *fakeClock) {
	clk := &fakeClock{t: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[string](size, ttl)
	c.now = clk.now
	return c, clk
}

func TestLRU_EvictsLeastRecentlyUsed(t *testing.T) {
	c, _ := newTestCache(2, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a should be present")
	}
	c.Set("c", "3")

	if _, ok := c.Get("b"); ok {
		t.Fatal("b was least recently used and should be evicted")
	}
	for _, k := range []string{"a", "c"} {
		if _, ok := c.Get(k); !ok {
			t.Errorf("%s should be present", k)
		}
	}
}

func TestLRU_Expiry(t *testing.T) {
	c, clk := newTestCache(10, time.Minute)
	c.Set("a", "1")
	clk.t = clk.t.Add(30 * time.Second)
	c.Set("b", "2")

	clk.t = clk.t.Add(45 * time.Second)
	if _, ok := c.Get("a"); ok {
		t.Fatal("a should have expired")
	}
	if v, ok := c.Get("b"); !ok || v != "2" {
		t.Fatalf("b should be live, got %q %v", v, ok)
	}

	clk.t = clk.t.Add(time.Minute)
	if n := c.CleanExpired(); n != 1 {
		t.Fatalf("expected 1 expired entry, got %d", n)
	}
	if c.Size() != 0 {
		t.Fatalf("expected empty cache, got %d", c.Size())
	}
}

func TestLRU_NoTTL(t *testing.T) {
	c, clk := newTestCache(10, 0)
	c.Set("a", "1")
	clk.t = clk.t.Add(24 * time.Hour)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("entries without ttl must not expire")
	}
}

func TestLRU_OverwriteAndDelete(t *testing.T) {
	c, _ := newTestCache(2, time.Minute)
	c.Set("a", "1")
	c.Set("a", "2")
	if v, _ := c.Get("a"); v != "2" || c.Size() != 1 {
		t.Fatalf("overwrite failed: %q size=%d", v, c.Size())
	}
	c.Delete("a")
	c.Delete("missing")
	if c.Size() != 0 {
		t.Fatalf("expected empty cache, got %d", c.Size())
	}
}

func TestLRU_Purge(t *testing.T) {
	c, _ := newTestCache(5, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")
	if n := c.Purge(); n != 2 {
		t.Fatalf("expected 2 purged, got %d", n)
	}
	if _, ok := c.Get("a"); ok || c.Size() != 0 {
		t.Fatal("cache should be empty after purge")
	}
	c.Set("c", "3")
	if _, ok := c.Get("c"); !ok {
		t.Fatal("cache must remain usable after purge")
	}
}

func TestNewLRUCache_MinimumSize(t *testing.T) {
	c := NewLRUCache[int](0, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	if c.Size() != 1 {
		t.Fatalf("expected size 1, got %d", c.Size())
	}
}

func TestJanitor(t *testing.T) {
	c, clk := newTestCache(5, time.Minute)
	c.Set("a", "1")
	clk.t = clk.t.Add(2 * time.Minute)

	j := NewJanitor()
	j.Register(c)
	if n := j.Sweep(); n != 1 {
		t.Fatalf("expected 1 removed, got %d", n)
	}

	j.Start(time.Millisecond)
	j.Start(time.Millisecond)
	j.Stop()
	j.Stop()
}

package cache

import (
	"testing"
	"time"
)

func count(current int, exists bool) int {
	if !exists {
		return 1
	}
	return current + 1
}

func TestTTLCacheLRUOrder(t *testing.T) {
	c := NewTTLCache[string, int](2, time.Minute)
	c.Set("first", 1)
	c.Set("second", 2)
	if _, ok := c.Get("first"); !ok {
		t.Fatalf("expected first entry")
	}
	c.Set("third", 3)

	if _, ok := c.Get("second"); ok {
		t.Fatalf("least recently used entry should be evicted")
	}
	for key, want := range map[string]int{"first": 1, "third": 3} {
		if got, ok := c.Get(key); !ok || got != want {
			t.Fatalf("Get(%q) = %d, %v", key, got, ok)
		}
	}
	if c.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", c.Len())
	}
}

func TestTTLCacheNonPositiveSettings(t *testing.T) {
	c := NewTTLCache[int, string](0, 0)
	c.Set(1, "a")
	c.Set(2, "b")
	if _, ok := c.Get(1); ok {
		t.Fatalf("size should clamp to one entry")
	}
	if got, ok := c.Get(2); !ok || got != "b" {
		t.Fatalf("expected latest entry, got %q %v", got, ok)
	}
}

func TestTTLCacheModifyCounts(t *testing.T) {
	c := NewTTLCache[string, int](4, time.Minute)
	for want := 1; want <= 3; want++ {
		if got := c.Modify("caller", count); got != want {
			t.Fatalf("Modify #%d = %d", want, got)
		}
	}
	if got := c.Modify("other", count); got != 1 {
		t.Fatalf("keys must count independently, got %d", got)
	}
}

func TestTTLCacheExpiry(t *testing.T) {
	c := NewTTLCache[string, int](4, 20*time.Millisecond)
	c.Set("verdict", 7)
	c.Modify("hits", count)
	time.Sleep(60 * time.Millisecond)

	if _, ok := c.Get("verdict"); ok {
		t.Fatalf("expected entry to expire")
	}
	got := c.Modify("hits", func(current int, exists bool) int {
		if exists {
			t.Fatalf("expired entry reported as existing")
		}
		return count(current, exists)
	})
	if got != 1 {
		t.Fatalf("expected counter to restart, got %d", got)
	}
}

func TestTTLCacheDeleteAndPurge(t *testing.T) {
	c := NewTTLCache[string, int](4, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Fatalf("expected deleted entry to be gone")
	}
	c.Purge()
	if c.Len() != 0 {
		t.Fatalf("expected empty cache after purge, got %d", c.Len())
	}
}

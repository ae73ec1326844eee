package cache

import (
	"testing"
	"time"
)

func TestCacheSetGetDel(t *testing.T) {
	c := New[[]int64](4, time.Minute)

	if _, ok := c.Get("k"); ok {
		t.Fatalf("expected miss on empty cache")
	}
	c.Set("k", []int64{1, 2})
	got, ok := c.Get("k")
	if !ok || len(got) != 2 {
		t.Fatalf("expected hit, got %v %v", got, ok)
	}
	c.Del("k")
	if _, ok := c.Get("k"); ok {
		t.Fatalf("expected miss after Del")
	}
	c.Del("missing")
}

func TestCacheExpires(t *testing.T) {
	c := New[string](4, 20*time.Millisecond)
	c.Set("k", "v")
	time.Sleep(60 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Fatalf("expected entry to expire")
	}
}

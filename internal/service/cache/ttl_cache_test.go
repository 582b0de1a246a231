package cache

import (
	"testing"
	"time"
)

func TestTTLCacheSetGet(t *testing.T) {
	c := NewTTLCache()
	c.Set("k", "v", time.Minute)

	v, ok := c.Get("k")
	if !ok {
		t.Fatalf("key not found")
	}
	if v.(string) != "v" {
		t.Fatalf("got %v", v)
	}
}

func TestTTLCacheMiss(t *testing.T) {
	c := NewTTLCache()
	if _, ok := c.Get("missing"); ok {
		t.Fatalf("unexpected hit")
	}
}

func TestTTLCacheExpiry(t *testing.T) {
	c := NewTTLCache()
	c.Set("k", "v", time.Nanosecond)
	time.Sleep(5 * time.Millisecond)

	if _, ok := c.Get("k"); ok {
		t.Fatalf("entry should have expired")
	}
}

func TestTTLCacheZeroTTLNeverExpires(t *testing.T) {
	c := NewTTLCache()
	c.Set("k", "v", 0)

	if _, ok := c.Get("k"); !ok {
		t.Fatalf("zero ttl entry should stay")
	}
}

func TestTTLCacheBytesRoundTrip(t *testing.T) {
	c := NewTTLCache()
	if err := c.SetBytes("k", []byte(`{"composite_signal":"BUY"}`), time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}

	b, ok, err := c.GetBytes("k")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok {
		t.Fatalf("key not found")
	}
	if string(b) != `{"composite_signal":"BUY"}` {
		t.Fatalf("got %s", b)
	}
}

func TestTTLCacheBytesTypeMismatch(t *testing.T) {
	c := NewTTLCache()
	c.Set("k", 42, time.Minute)

	if _, ok, _ := c.GetBytes("k"); ok {
		t.Fatalf("non-bytes value must not be returned as bytes")
	}
}

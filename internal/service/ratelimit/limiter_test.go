package ratelimit

import (
	"testing"
	"time"
)

func TestAllowConsumesTokens(t *testing.T) {
	l := New()

	for i := 0; i < 3; i++ {
		if !l.Allow("client-a", 3, 0) {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if l.Allow("client-a", 3, 0) {
		t.Fatalf("bucket exhausted, request should be denied")
	}
}

func TestAllowIsolatesKeys(t *testing.T) {
	l := New()

	if !l.Allow("client-a", 1, 0) {
		t.Fatalf("first request for client-a should be allowed")
	}
	if l.Allow("client-a", 1, 0) {
		t.Fatalf("client-a should be exhausted")
	}
	if !l.Allow("client-b", 1, 0) {
		t.Fatalf("client-b has its own bucket")
	}
}

func TestAllowRefills(t *testing.T) {
	l := New()
	key := "client-a"

	if !l.Allow(key, 1, 1000) {
		t.Fatalf("first request should be allowed")
	}

	// pre-date the bucket so refill logic runs without sleeping
	l.mu.Lock()
	l.m[key].tokens = 0
	l.m[key].last = l.m[key].last.Add(-time.Second)
	l.mu.Unlock()

	if !l.Allow(key, 1, 1000) {
		t.Fatalf("bucket should refill after elapsed time")
	}
}

func TestRefillCapsAtCapacity(t *testing.T) {
	l := New()
	key := "client-a"

	l.Allow(key, 2, 1000)
	l.mu.Lock()
	l.m[key].last = l.m[key].last.Add(-10 * time.Second)
	l.mu.Unlock()

	if !l.Allow(key, 2, 1000) {
		t.Fatalf("request after long idle should be allowed")
	}

	l.mu.Lock()
	tokens := l.m[key].tokens
	l.mu.Unlock()
	if tokens > 2 {
		t.Fatalf("refill must cap at capacity, tokens = %f", tokens)
	}
}

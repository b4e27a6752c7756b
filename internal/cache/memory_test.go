package cache

import (
	"strings"
	"testing"
	"time"
)

func TestMemoryCache_SetGet(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)

	value := []byte("User-agent: *\nDisallow: /private")
	if err := c.Set("k", value, 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	// Mutating the caller's slice must not change the cached copy
	value[0] = 'X'

	got, ok := c.Get("k")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if !strings.HasPrefix(string(got), "User-agent") {
		t.Errorf("unexpected cached value: %q", got)
	}
	if c.Len() != 1 {
		t.Errorf("expected 1 entry, got %d", c.Len())
	}
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)
	_ = c.Set("short", []byte("v"), 10*time.Millisecond)

	time.Sleep(30 * time.Millisecond)

	if _, ok := c.Get("short"); ok {
		t.Error("expected entry to expire")
	}
}

func TestMemoryCache_DeleteClear(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)
	_ = c.Set("a", []byte("1"), 0)
	_ = c.Set("b", []byte("2"), 0)

	_ = c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Error("expected a to be deleted")
	}

	_ = c.Clear()
	if c.Len() != 0 {
		t.Errorf("expected empty cache, got %d entries", c.Len())
	}
}

func TestKey(t *testing.T) {
	k1 := Key("robots", "https://bnm.example")
	k2 := Key("robots", "https://bnm.example")
	k3 := Key("robots", "https://imf.example")

	if k1 != k2 {
		t.Error("expected deterministic keys")
	}
	if k1 == k3 {
		t.Error("expected distinct keys for distinct inputs")
	}
	if !strings.HasPrefix(k1, "claimcheck:robots:v1:") {
		t.Errorf("unexpected key prefix: %s", k1)
	}
}

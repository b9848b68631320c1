package cache

import (
	"bytes"
	"context"
	"testing"
	"time"
)

// TestMemoryRoundTrip: set then get returns the stored value
func TestMemoryRoundTrip(t *testing.T) {
	c := New(NewMemory(), "t_", time.Minute)
	ctx := context.Background()

	if err := c.Set(ctx, "greeting", []byte("hello"), time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	value, found, err := c.Get(ctx, "greeting")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !found {
		t.Fatal("value should be present immediately after set")
	}
	if !bytes.Equal(value, []byte("hello")) {
		t.Errorf("expected hello, got %q", value)
	}
}

// TestMemoryGetAbsent reports absence without error
func TestMemoryGetAbsent(t *testing.T) {
	c := New(NewMemory(), "t_", time.Minute)

	_, found, err := c.Get(context.Background(), "never-set")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if found {
		t.Error("absent key should not be found")
	}
}

// TestMemoryOverwrite: a second set replaces the value
func TestMemoryOverwrite(t *testing.T) {
	c := New(NewMemory(), "t_", time.Minute)
	ctx := context.Background()

	c.Set(ctx, "k", []byte("first"), time.Minute)
	c.Set(ctx, "k", []byte("second"), time.Minute)

	value, _, _ := c.Get(ctx, "k")
	if string(value) != "second" {
		t.Errorf("expected overwritten value, got %q", value)
	}
}

// TestMemoryExpiry: entries past their TTL read as absent
func TestMemoryExpiry(t *testing.T) {
	c := New(NewMemory(), "t_", time.Minute)
	ctx := context.Background()

	c.Set(ctx, "ephemeral", []byte("x"), 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)

	if _, found, _ := c.Get(ctx, "ephemeral"); found {
		t.Error("expired entry should read as absent")
	}
}

// TestMemoryNoExpiration: NoExpiration entries persist until deleted
func TestMemoryNoExpiration(t *testing.T) {
	c := New(NewMemory(), "t_", time.Minute)
	ctx := context.Background()

	c.Set(ctx, "durable", []byte("x"), NoExpiration)
	time.Sleep(20 * time.Millisecond)

	if _, found, _ := c.Get(ctx, "durable"); !found {
		t.Error("NoExpiration entry should persist until deleted")
	}
}

// TestSetDefaultTTL: the zero sentinel applies the cache-wide default
func TestSetDefaultTTL(t *testing.T) {
	c := New(NewMemory(), "t_", 20*time.Millisecond)
	ctx := context.Background()

	c.Set(ctx, "k", []byte("v"), DefaultTTL)
	if _, found, _ := c.Get(ctx, "k"); !found {
		t.Fatal("entry should be present before the default TTL passes")
	}

	time.Sleep(50 * time.Millisecond)
	if _, found, _ := c.Get(ctx, "k"); found {
		t.Error("entry stored with DefaultTTL should expire with the cache-wide default")
	}
}

// TestMemoryDelete removes a single entry
func TestMemoryDelete(t *testing.T) {
	c := New(NewMemory(), "t_", time.Minute)
	ctx := context.Background()

	c.Set(ctx, "k", []byte("v"), time.Minute)
	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, found, _ := c.Get(ctx, "k"); found {
		t.Error("deleted entry should be absent")
	}

	// Deleting an absent key is not an error.
	if err := c.Delete(ctx, "missing"); err != nil {
		t.Errorf("deleting absent key should not fail: %v", err)
	}
}

// TestClearRespectsPrefix only touches this cache's namespace
func TestClearRespectsPrefix(t *testing.T) {
	store := NewMemory()
	ours := New(store, "app_", time.Minute)
	theirs := New(store, "other_", time.Minute)
	ctx := context.Background()

	ours.Set(ctx, "k", []byte("v"), NoExpiration)
	theirs.Set(ctx, "k", []byte("v"), NoExpiration)

	if err := ours.Clear(ctx); err != nil {
		t.Fatalf("clear failed: %v", err)
	}

	if _, found, _ := ours.Get(ctx, "k"); found {
		t.Error("own entry should be cleared")
	}
	if _, found, _ := theirs.Get(ctx, "k"); !found {
		t.Error("foreign namespace should survive clear")
	}
}

// TestInvalidatePattern reproduces the user:1:* scenario
func TestInvalidatePattern(t *testing.T) {
	c := New(NewMemory(), "t_", time.Minute)
	ctx := context.Background()

	c.Set(ctx, "user:1:profile", []byte("a"), NoExpiration)
	c.Set(ctx, "user:1:posts", []byte("b"), NoExpiration)
	c.Set(ctx, "user:2:profile", []byte("c"), NoExpiration)

	removed, err := c.Invalidate(ctx, "user:1:*")
	if err != nil {
		t.Fatalf("invalidate failed: %v", err)
	}
	if removed != 2 {
		t.Errorf("expected 2 removals, got %d", removed)
	}

	if _, found, _ := c.Get(ctx, "user:1:profile"); found {
		t.Error("user:1:profile should be invalidated")
	}
	if _, found, _ := c.Get(ctx, "user:1:posts"); found {
		t.Error("user:1:posts should be invalidated")
	}
	if _, found, _ := c.Get(ctx, "user:2:profile"); !found {
		t.Error("user:2:profile should survive")
	}
}

// TestMatchPattern covers substring and glob forms
func TestMatchPattern(t *testing.T) {
	tests := []struct {
		key     string
		pattern string
		want    bool
	}{
		{"webbly_user:1:profile", "user:1:", true},
		{"webbly_user:2:profile", "user:1:", false},
		{"webbly_memo_search_abc", "memo_search_", true},
		{"user:1:profile", "user:1:*", true},
		{"user:10:posts", "user:1:*", false},
		{"a_b_c", "a_*_c", true},
		{"a_c", "a_*_c", false},
		{"anything", "*", true},
		{"exact", "exact", true},
	}
	for _, tt := range tests {
		if got := matchPattern(tt.key, tt.pattern); got != tt.want {
			t.Errorf("matchPattern(%q, %q) = %v, want %v", tt.key, tt.pattern, got, tt.want)
		}
	}
}

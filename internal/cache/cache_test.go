package cache

import (
	"testing"
	"time"
)

func TestGetSet(t *testing.T) {
	c := New[string](5 * time.Minute)

	if _, ok := c.Get("missing"); ok {
		t.Errorf("Get() on empty cache reported a hit")
	}

	c.Set("k", "v")
	got, ok := c.Get("k")
	if !ok {
		t.Fatalf("Get() missed a freshly set key")
	}
	if got != "v" {
		t.Errorf("Get() = %q, want %q", got, "v")
	}
}

func TestExpiry(t *testing.T) {
	ttl := 5 * time.Minute
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		age     time.Duration
		wantHit bool
	}{
		{name: "fresh", age: 0, wantHit: true},
		{name: "just under ttl", age: ttl - time.Nanosecond, wantHit: true},
		{name: "exactly ttl", age: ttl, wantHit: false},
		{name: "past ttl", age: ttl + time.Second, wantHit: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New[int](ttl)
			c.now = func() time.Time { return base }
			c.Set("k", 42)

			c.now = func() time.Time { return base.Add(tt.age) }
			_, ok := c.Get("k")
			if ok != tt.wantHit {
				t.Errorf("Get() hit = %v at age %v, want %v", ok, tt.age, tt.wantHit)
			}
		})
	}
}

func TestClearAndStats(t *testing.T) {
	c := New[int](time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)

	stats := c.Stats()
	if stats.Size != 2 {
		t.Errorf("Stats().Size = %d, want 2", stats.Size)
	}
	if len(stats.Keys) != 2 {
		t.Errorf("Stats().Keys has %d entries, want 2", len(stats.Keys))
	}

	c.Clear()
	if got := c.Stats().Size; got != 0 {
		t.Errorf("Stats().Size after Clear() = %d, want 0", got)
	}
	if _, ok := c.Get("a"); ok {
		t.Errorf("Get() hit after Clear()")
	}
}

func TestFetchedAtSurvivesExpiry(t *testing.T) {
	c := New[int](time.Minute)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return base }
	c.Set("k", 1)

	c.now = func() time.Time { return base.Add(time.Hour) }
	if _, ok := c.Get("k"); ok {
		t.Fatalf("Get() hit on expired entry")
	}
	at, ok := c.FetchedAt("k")
	if !ok {
		t.Fatalf("FetchedAt() missing for expired entry")
	}
	if !at.Equal(base) {
		t.Errorf("FetchedAt() = %v, want %v", at, base)
	}
}

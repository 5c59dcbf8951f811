package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestCache(t *testing.T) *MemoryCache {
	t.Helper()
	c := NewMemoryCache(time.Hour)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestMemoryGetSet(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	if _, err := c.Get(ctx, "k"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("Get missing = %v, want ErrCacheMiss", err)
	}

	val := []byte("hello")
	if err := c.Set(ctx, "k", val, time.Minute); err != nil {
		t.Fatal(err)
	}
	val[0] = 'j'

	got, err := c.Get(ctx, "k")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "hello" {
		t.Errorf("Get = %q, want hello", got)
	}
}

func TestMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	c.Set(ctx, "k", []byte("v"), -time.Second)
	if _, err := c.Get(ctx, "k"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("expired Get = %v, want ErrCacheMiss", err)
	}
	c.removeExpired()
	if c.Len() != 0 {
		t.Errorf("Len after sweep = %d, want 0", c.Len())
	}
}

func TestMemoryDeletePrefix(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	c.Set(ctx, "stats:1:ALL:11", []byte("a"), time.Minute)
	c.Set(ctx, "stats:1:frozen:7", []byte("b"), time.Minute)
	c.Set(ctx, "stats:12:ALL:11", []byte("c"), time.Minute)

	if err := c.DeletePrefix(ctx, "stats:1:"); err != nil {
		t.Fatal(err)
	}
	if c.Len() != 1 {
		t.Fatalf("Len = %d, want 1", c.Len())
	}
	if _, err := c.Get(ctx, "stats:12:ALL:11"); err != nil {
		t.Errorf("other family entry removed: %v", err)
	}
}

func TestMemoryGetOrSet(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	calls := 0
	fn := func() ([]byte, error) {
		calls++
		return []byte("computed"), nil
	}
	for range 3 {
		v, err := c.GetOrSet(ctx, "k", time.Minute, fn)
		if err != nil || string(v) != "computed" {
			t.Fatalf("GetOrSet = %q, %v", v, err)
		}
	}
	if calls != 1 {
		t.Errorf("fn called %d times, want 1", calls)
	}

	boom := errors.New("boom")
	if _, err := c.GetOrSet(ctx, "other", time.Minute, func() ([]byte, error) { return nil, boom }); !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
	if _, err := c.Get(ctx, "other"); !errors.Is(err, ErrCacheMiss) {
		t.Error("failed computation should not be cached")
	}
}

func TestTake(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	c.Set(ctx, "state", []byte("1"), time.Minute)
	if v, err := Take(ctx, c, "state"); err != nil || string(v) != "1" {
		t.Fatalf("Take = %q, %v", v, err)
	}
	if _, err := Take(ctx, c, "state"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("second Take = %v, want ErrCacheMiss", err)
	}
}

func TestCloseTwice(t *testing.T) {
	c := NewMemoryCache(time.Millisecond)
	c.Close()
	c.Close()
}

package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"
)

// newRedisTestCache connects to FOODIAN_TEST_REDIS_ADDR and skips when it is unset.
func newRedisTestCache(t *testing.T) *RedisCache {
	t.Helper()
	addr := os.Getenv("FOODIAN_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("FOODIAN_TEST_REDIS_ADDR not set")
	}
	c, err := NewRedisCache(context.Background(), RedisConfig{
		Addr:      addr,
		KeyPrefix: fmt.Sprintf("foodian-test:%d:", time.Now().UnixNano()),
	})
	if err != nil {
		t.Fatalf("connect redis: %v", err)
	}
	t.Cleanup(func() {
		c.DeletePrefix(context.Background(), "")
		c.Close()
	})
	return c
}

func TestRedisGetSetDelete(t *testing.T) {
	ctx := context.Background()
	c := newRedisTestCache(t)

	if _, err := c.Get(ctx, "k"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("Get missing = %v, want ErrCacheMiss", err)
	}
	if err := c.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatal(err)
	}
	got, err := c.Get(ctx, "k")
	if err != nil || string(got) != "v" {
		t.Fatalf("Get = %q, %v", got, err)
	}
	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Get(ctx, "k"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get after delete = %v", err)
	}
}

func TestRedisDeletePrefixAndTake(t *testing.T) {
	ctx := context.Background()
	c := newRedisTestCache(t)

	for _, k := range []string{"stats:1:a", "stats:1:b", "stats:2:a"} {
		if err := c.Set(ctx, k, []byte(k), time.Minute); err != nil {
			t.Fatal(err)
		}
	}
	if err := c.DeletePrefix(ctx, "stats:1:"); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Get(ctx, "stats:1:a"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("stats:1:a survived DeletePrefix")
	}
	if _, err := c.Get(ctx, "stats:2:a"); err != nil {
		t.Errorf("stats:2:a removed: %v", err)
	}

	if v, err := Take(ctx, c, "stats:2:a"); err != nil || string(v) != "stats:2:a" {
		t.Fatalf("Take = %q, %v", v, err)
	}
	if _, err := Take(ctx, c, "stats:2:a"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("second Take = %v, want ErrCacheMiss", err)
	}
}

package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func testCache(t *testing.T) *RedisCache {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR is not set, skip redis integration test")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { client.Close() })
	return New(client)
}

func testKey(t *testing.T) string {
	return fmt.Sprintf("test:%s:%d", t.Name(), time.Now().UnixNano())
}

func TestOnceSuppressesDuplicateTrigger(t *testing.T) {
	c := testCache(t)
	ctx := context.Background()
	key := testKey(t)
	defer c.Delete(ctx, key)

	var calls int
	ran, err := c.Once(ctx, key, time.Minute, func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("first Once returned error: %v", err)
	}
	if !ran {
		t.Fatal("first trigger must run")
	}

	ran, err = c.Once(ctx, key, time.Minute, func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("second Once returned error: %v", err)
	}
	if ran {
		t.Fatal("duplicate trigger must be suppressed")
	}
	if calls != 1 {
		t.Fatalf("expected fn to run once, ran %d times", calls)
	}
}

func TestOnceReleasesKeyOnFailure(t *testing.T) {
	c := testCache(t)
	ctx := context.Background()
	key := testKey(t)
	defer c.Delete(ctx, key)

	wantErr := errors.New("send failed")
	ran, err := c.Once(ctx, key, time.Minute, func() error { return wantErr })
	if !ran {
		t.Fatal("first trigger must run")
	}
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected fn error back, got %v", err)
	}

	// The failed attempt must not hold the key; a retry claims it.
	ran, err = c.Once(ctx, key, time.Minute, func() error { return nil })
	if err != nil {
		t.Fatalf("retry returned error: %v", err)
	}
	if !ran {
		t.Fatal("retry after failure must run")
	}
}

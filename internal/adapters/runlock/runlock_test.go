package runlock

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// TestLocker_Integration requires a running Redis; it is skipped otherwise.
func TestLocker_Integration(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skip("Skipping Redis integration test: redis not available")
	}
	t.Cleanup(func() { _ = client.Close() })

	locker := New(client, time.Second)

	release, ok, err := locker.TryAcquire(ctx, "1", "1", "run-a")
	if err != nil {
		t.Fatalf("TryAcquire: %v", err)
	}
	if !ok {
		t.Fatal("expected first TryAcquire to succeed")
	}

	if _, ok, err := locker.TryAcquire(ctx, "1", "1", "run-a"); err != nil {
		t.Fatalf("TryAcquire (contended): %v", err)
	} else if ok {
		t.Fatal("expected contended TryAcquire to fail while the first holder is live")
	}

	if err := release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}

	_, ok, err = locker.TryAcquire(ctx, "1", "1", "run-a")
	if err != nil {
		t.Fatalf("TryAcquire (after release): %v", err)
	}
	if !ok {
		t.Fatal("expected TryAcquire to succeed again after release")
	}
}

func TestLockKey_ScopesByTenantNamespaceAndRun(t *testing.T) {
	a := lockKey("1", "1", "run-a")
	b := lockKey("1", "2", "run-a")
	c := lockKey("2", "1", "run-a")
	if a == b || a == c || b == c {
		t.Fatalf("expected distinct lock keys, got %q %q %q", a, b, c)
	}
}

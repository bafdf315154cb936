// Package runlock is the distributed counterpart to pkg/scenario's
// in-process runLocks: a per-run_id mutual-exclusion primitive (§5: "at
// most one in-flight step per run_id") backed by Redis, for deployments
// running more than one engine process against the same Store.
package runlock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker acquires and releases a distributed lock keyed by run_id. A single
// process should still prefer pkg/scenario's in-process runLocks when there
// is no distributed deployment; Locker exists for the multi-process case.
type Locker struct {
	client *redis.Client
	ttl    time.Duration
}

func New(client *redis.Client, ttl time.Duration) *Locker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Locker{client: client, ttl: ttl}
}

func lockKey(tenantID, namespaceID, runID string) string {
	return fmt.Sprintf("decisiongate:runlock:%s:%s:%s", tenantID, namespaceID, runID)
}

// TryAcquire attempts to take the lock for (tenantID, namespaceID, runID).
// On success it returns a release func and true; on contention it returns
// (nil, false) rather than blocking — the caller surfaces run_busy,
// matching pkg/scenario's in-process semantics rather than queueing.
func (l *Locker) TryAcquire(ctx context.Context, tenantID, namespaceID, runID string) (func(context.Context) error, bool, error) {
	key := lockKey(tenantID, namespaceID, runID)
	token := uuid.New().String()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("runlock: acquire %q: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}

	release := func(releaseCtx context.Context) error {
		return l.releaseIfOwner(releaseCtx, key, token)
	}
	return release, true, nil
}

// releaseIfOwner deletes the key only if it still holds our token, so a
// release after the TTL has already rotated the lock to another holder does
// not delete that holder's lock out from under it.
func (l *Locker) releaseIfOwner(ctx context.Context, key, token string) error {
	const script = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end`
	return l.client.Eval(ctx, script, []string{key}, token).Err()
}

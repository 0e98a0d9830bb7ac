package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/stillwaterhq/datacore/internal/domain"
)

const lockPrefix = "lock:"

// Release and extend must compare the stored holder token before acting.
// A plain DEL would let a holder whose lease already expired delete the next
// holder's lock. Both checks run as Lua so compare and act are one step.
var (
	releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
end
return 0
`)

	extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)
)

// RedisResourceLock provides lease-based mutual exclusion across service
// instances. Every lock auto-expires, so a crashed holder never wedges the
// resource for longer than the lease.
type RedisResourceLock struct {
	client *redis.Client
}

func NewRedisResourceLock(client *redis.Client) *RedisResourceLock {
	return &RedisResourceLock{client: client}
}

// Acquire returns the holder token on success and domain.ErrLockBusy when
// another holder owns the key. Callers treat busy as a normal outcome.
func (l *RedisResourceLock) Acquire(ctx context.Context, key string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, lockPrefix+key, token, ttl).Result()
	if err != nil {
		return "", fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return "", domain.ErrLockBusy
	}
	return token, nil
}

// Release is a silent no-op when the token no longer holds the lock. The
// lease expired and someone else may hold it now; there is nothing useful
// for the stale holder to do about that.
func (l *RedisResourceLock) Release(ctx context.Context, key, token string) error {
	if err := releaseScript.Run(ctx, l.client, []string{lockPrefix + key}, token).Err(); err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	return nil
}

// Extend renews the lease while the token still holds the lock. A zero
// result means the lease lapsed and the key is gone or owned by another
// holder; that surfaces as domain.ErrLockBusy so long jobs can abort.
func (l *RedisResourceLock) Extend(ctx context.Context, key, token string, ttl time.Duration) error {
	res, err := extendScript.Run(ctx, l.client, []string{lockPrefix + key}, token, ttl.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("extend lock: %w", err)
	}
	if res == 0 {
		return domain.ErrLockBusy
	}
	return nil
}

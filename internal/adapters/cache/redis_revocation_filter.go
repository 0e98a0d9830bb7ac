package cache

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

const revocationFilterKey = "datacore:revoked:bloom"

// RedisRevocationFilter is the probabilistic fast path for revocation checks,
// backed by the RedisBloom module (Redis Stack). False positives are expected
// and resolved against the authoritative store; false negatives must not
// happen while the filter holds a superset of live revocations.
type RedisRevocationFilter struct {
	client *redis.Client
}

// NewRedisRevocationFilter reserves the filter. An already-existing filter is
// fine: reservation is first-boot initialization, not ownership.
func NewRedisRevocationFilter(ctx context.Context, client *redis.Client, errorRate float64, capacity int64) (*RedisRevocationFilter, error) {
	err := client.BFReserve(ctx, revocationFilterKey, errorRate, capacity).Err()
	if err != nil && !strings.Contains(err.Error(), "exists") {
		return nil, fmt.Errorf("reserve revocation filter: %w", err)
	}
	return &RedisRevocationFilter{client: client}, nil
}

func (f *RedisRevocationFilter) Add(ctx context.Context, jti string) error {
	if err := f.client.BFAdd(ctx, revocationFilterKey, jti).Err(); err != nil {
		return fmt.Errorf("add to revocation filter: %w", err)
	}
	return nil
}

func (f *RedisRevocationFilter) MightContain(ctx context.Context, jti string) (bool, error) {
	present, err := f.client.BFExists(ctx, revocationFilterKey, jti).Result()
	if err != nil {
		return false, fmt.Errorf("query revocation filter: %w", err)
	}
	return present, nil
}

package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/stillwaterhq/datacore/internal/ports"
)

// RedisInvalidationBus broadcasts cache invalidations over pub/sub. Delivery
// is fire-and-forget: instances that miss a message fall back to TTL expiry,
// so a lost invalidation costs staleness, never correctness.
type RedisInvalidationBus struct {
	client  *redis.Client
	channel string
}

func NewRedisInvalidationBus(client *redis.Client, channel string) *RedisInvalidationBus {
	return &RedisInvalidationBus{client: client, channel: channel}
}

func (b *RedisInvalidationBus) Broadcast(ctx context.Context, msg ports.Invalidation) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal invalidation: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, raw).Err(); err != nil {
		return fmt.Errorf("publish invalidation: %w", err)
	}
	return nil
}

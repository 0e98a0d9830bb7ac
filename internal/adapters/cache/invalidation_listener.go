package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/stillwaterhq/datacore/internal/ports"
)

const (
	stateDisconnected = "DISCONNECTED"
	stateConnecting   = "CONNECTING"
	stateListening    = "LISTENING"
	statePurging      = "PURGING"
)

// InvalidationListener subscribes to the invalidation channel and purges the
// local cache on each message. The loop re-subscribes after connection loss;
// entries that expire by TTL cover whatever was missed while disconnected.
type InvalidationListener struct {
	client        *redis.Client
	channel       string
	local         ports.LocalCache
	logger        *slog.Logger
	reconnectWait time.Duration
}

func NewInvalidationListener(client *redis.Client, channel string, local ports.LocalCache, logger *slog.Logger, reconnectWait time.Duration) *InvalidationListener {
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	return &InvalidationListener{
		client:        client,
		channel:       channel,
		local:         local,
		logger:        logger,
		reconnectWait: reconnectWait,
	}
}

func (l *InvalidationListener) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		l.transition(ctx, stateConnecting)
		pubsub := l.client.Subscribe(ctx, l.channel)
		if _, err := pubsub.Receive(ctx); err != nil {
			_ = pubsub.Close()
			l.transition(ctx, stateDisconnected)
			l.logger.WarnContext(ctx, "invalidation subscribe failed",
				"module", "cache",
				"layer", "adapter",
				"operation", "subscribe",
				"outcome", "failure",
				"error", err.Error(),
			)
			if err := l.wait(ctx); err != nil {
				return err
			}
			continue
		}

		l.transition(ctx, stateListening)
		done := make(chan struct{})
		go func() {
			select {
			case <-ctx.Done():
			case <-done:
			}
			_ = pubsub.Close()
		}()

		for msg := range pubsub.Channel() {
			l.apply(ctx, []byte(msg.Payload))
		}
		close(done)
		l.transition(ctx, stateDisconnected)

		if err := l.wait(ctx); err != nil {
			return err
		}
	}
}

// apply handles one broadcast message. Malformed or unknown messages are
// logged and skipped so one bad publisher cannot stall the loop.
func (l *InvalidationListener) apply(ctx context.Context, payload []byte) {
	var msg ports.Invalidation
	if err := json.Unmarshal(payload, &msg); err != nil {
		l.logger.WarnContext(ctx, "invalidation message malformed",
			"module", "cache",
			"layer", "adapter",
			"operation", "apply_invalidation",
			"outcome", "failure",
		)
		return
	}

	switch msg.Kind {
	case ports.InvalidateKey:
		l.local.Delete(msg.Target)
	case ports.InvalidatePrefix:
		l.local.DeletePrefix(msg.Target)
	default:
		l.logger.WarnContext(ctx, "invalidation kind unknown",
			"module", "cache",
			"layer", "adapter",
			"operation", "apply_invalidation",
			"outcome", "failure",
			"kind", msg.Kind,
		)
		return
	}
	l.logger.DebugContext(ctx, "local cache purged",
		"module", "cache",
		"layer", "adapter",
		"operation", "apply_invalidation",
		"outcome", "success",
		"state", statePurging,
		"kind", msg.Kind,
	)
}

func (l *InvalidationListener) transition(ctx context.Context, state string) {
	l.logger.InfoContext(ctx, "invalidation listener state changed",
		"module", "cache",
		"layer", "adapter",
		"operation", "listen",
		"state", state,
	)
}

func (l *InvalidationListener) wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(l.reconnectWait):
		return nil
	}
}

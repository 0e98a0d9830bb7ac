package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/stillwaterhq/datacore/internal/ports"
)

// DispatchStats summarizes one drain cycle.
type DispatchStats struct {
	Claimed   int
	Published int
	Failed    int
}

// OutboxDispatcher claims committed outbox rows and publishes them to the
// bus. Events are never dropped: a failed row goes back to claimable and is
// retried on a later cycle, indefinitely. Delivery is therefore at-least-once
// and consumers must dedupe on event_id.
type OutboxDispatcher struct {
	logger     *slog.Logger
	outbox     ports.OutboxRepository
	publisher  ports.EventPublisher
	interval   time.Duration
	maxBackoff time.Duration
	batchSize  int
	claimTTL   time.Duration
}

func NewOutboxDispatcher(
	logger *slog.Logger,
	outbox ports.OutboxRepository,
	publisher ports.EventPublisher,
	interval time.Duration,
	batchSize int,
	claimTTL time.Duration,
	maxBackoff time.Duration,
) *OutboxDispatcher {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	if claimTTL <= 0 {
		claimTTL = 30 * time.Second
	}
	if maxBackoff <= 0 {
		maxBackoff = time.Minute
	}
	return &OutboxDispatcher{
		logger:     logger,
		outbox:     outbox,
		publisher:  publisher,
		interval:   interval,
		maxBackoff: maxBackoff,
		batchSize:  batchSize,
		claimTTL:   claimTTL,
	}
}

// Run executes the drain loop until context cancellation. The poll delay
// doubles up to maxBackoff while the broker is rejecting everything and
// snaps back to the base interval on the first healthy cycle.
func (w *OutboxDispatcher) Run(ctx context.Context) error {
	delay := w.interval
	for {
		stats, err := w.DrainOnce(ctx)
		switch {
		case err != nil:
			w.logger.ErrorContext(ctx, "outbox drain cycle failed",
				"module", "events.outbox_dispatcher",
				"layer", "adapter",
				"operation", "drain_once",
				"outcome", "failure",
				"error", err,
			)
			delay = w.nextBackoff(delay)
		case stats.Claimed > 0 && stats.Published == 0:
			delay = w.nextBackoff(delay)
		default:
			delay = w.interval
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

// DrainOnce claims one batch under a fresh token and publishes it in commit
// order. Exported so the worker runtime can flush synchronously in tests and
// on demand.
func (w *OutboxDispatcher) DrainOnce(ctx context.Context) (DispatchStats, error) {
	claimToken := uuid.NewString()
	records, err := w.outbox.ClaimPending(ctx, w.batchSize, claimToken, time.Now().UTC().Add(w.claimTTL))
	if err != nil {
		return DispatchStats{}, err
	}

	now := time.Now().UTC()
	stats := DispatchStats{Claimed: len(records)}
	for _, rec := range records {
		if err := w.publisher.Publish(ctx, rec.EventType, rec.PartitionKey, rec.Payload); err != nil {
			stats.Failed++
			w.logger.WarnContext(ctx, "outbox publish failed; retry scheduled",
				"module", "events.outbox_dispatcher",
				"layer", "adapter",
				"operation", "publish_event",
				"outcome", "failure",
				"event_id", rec.EventID,
				"event_type", rec.EventType,
				"payload_bytes", len(rec.Payload),
				"attempt_count", rec.AttemptCount+1,
				"error", err,
			)
			_ = w.outbox.MarkFailed(ctx, rec.ID, claimToken, err.Error(), now)
			continue
		}
		stats.Published++
		_ = w.outbox.MarkProcessed(ctx, rec.ID, claimToken, now)
	}
	if stats.Claimed > 0 {
		w.logger.InfoContext(ctx, "outbox batch processed",
			"module", "events.outbox_dispatcher",
			"layer", "adapter",
			"operation", "drain_once",
			"outcome", "success",
			"batch_size", stats.Claimed,
			"published_count", stats.Published,
			"failed_count", stats.Failed,
		)
	}
	return stats, nil
}

func (w *OutboxDispatcher) nextBackoff(current time.Duration) time.Duration {
	next := current * 2
	if next > w.maxBackoff {
		next = w.maxBackoff
	}
	return next
}

package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/stillwaterhq/datacore/internal/application"
)

// RevocationJanitor periodically prunes expired revocations and re-feeds the
// live ones into the fast-path filter. The re-feed step is what heals the
// filter after a Redis flush or restart: the store is authoritative, the
// filter only has to stay a superset of it.
type RevocationJanitor struct {
	logger    *slog.Logger
	service   *application.Service
	interval  time.Duration
	batchSize int
}

func NewRevocationJanitor(
	logger *slog.Logger,
	service *application.Service,
	interval time.Duration,
	batchSize int,
) *RevocationJanitor {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if batchSize <= 0 {
		batchSize = 1000
	}
	return &RevocationJanitor{
		logger:    logger,
		service:   service,
		interval:  interval,
		batchSize: batchSize,
	}
}

func (w *RevocationJanitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if err := w.service.MaintainRevocations(ctx, w.batchSize); err != nil {
			w.logger.ErrorContext(ctx, "revocation maintenance iteration failed",
				"module", "events.revocation_janitor",
				"layer", "adapter",
				"operation", "maintain_revocations",
				"outcome", "failure",
				"error", err,
			)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

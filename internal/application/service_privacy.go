package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/stillwaterhq/datacore/internal/domain"
	"github.com/stillwaterhq/datacore/internal/ports"
)

// PurgeUserData erases the user's wrapped DEK. Encrypted rows stay where
// they are and become permanently undecryptable, which is the erasure
// guarantee: no scan of data tables, no tombstones, one key row gone.
// Purging a user with no key reports KeyDeleted=false and is not an error,
// so retries of the same purge are harmless.
func (s *Service) PurgeUserData(ctx context.Context, userID uuid.UUID) (PurgeResult, error) {
	if userID == uuid.Nil {
		return PurgeResult{}, fmt.Errorf("%w: user id is required", domain.ErrInvalidInput)
	}

	now := s.nowFn()
	key := domain.UserEncryptionKey{UserID: userID}
	event, err := s.namedEvent(domain.EventKeysPurged, key, domain.ChangeDeleted, now)
	if err != nil {
		return PurgeResult{}, fmt.Errorf("assemble change event: %w", err)
	}

	deleted, err := s.userKeys.DeleteWithEvents(ctx, userID, []ports.OutboxEvent{event})
	if err != nil {
		return PurgeResult{}, err
	}

	s.invalidateJournalIndex(ctx, userID)

	slog.Default().InfoContext(ctx, "user data purged",
		"service", "DataCore-Service",
		"module", "application",
		"layer", "application",
		"operation", "purge_user_data",
		"outcome", "success",
		"user_id", userID,
		"key_deleted", deleted,
	)
	return PurgeResult{UserID: userID, KeyDeleted: deleted, PurgedAt: now}, nil
}

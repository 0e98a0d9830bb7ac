package application

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/google/uuid"

	"github.com/stillwaterhq/datacore/internal/domain"
	"github.com/stillwaterhq/datacore/internal/ports"
)

// encryptionContext builds the write-path context: the user's DEK is fetched
// or lazily created on first protected write. Concurrent first writes race on
// the key row's primary key; losers adopt the winner's key and proceed.
func (s *Service) encryptionContext(ctx context.Context, userID uuid.UUID) (*EncryptionContext, error) {
	key, err := s.userKeys.Get(ctx, userID)
	if err == nil {
		dek, unwrapErr := s.vault.Unwrap(key.WrappedDEK)
		if unwrapErr != nil {
			return nil, unwrapErr
		}
		return newEncryptionContext(userID, dek, s.cipher), nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	dek, err := s.vault.GenerateDEK()
	if err != nil {
		return nil, err
	}
	wrapped, err := s.vault.Wrap(dek)
	if err != nil {
		return nil, err
	}
	insertErr := s.userKeys.Insert(ctx, domain.UserEncryptionKey{
		UserID:     userID,
		WrappedDEK: wrapped,
		CreatedAt:  s.nowFn(),
	})
	if insertErr == nil {
		return newEncryptionContext(userID, dek, s.cipher), nil
	}
	if !errors.Is(insertErr, domain.ErrConflict) {
		return nil, insertErr
	}

	// Another request created the key first. The generated DEK is discarded
	// unused; only the stored one may ever encrypt data.
	key, err = s.userKeys.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	dek, err = s.vault.Unwrap(key.WrappedDEK)
	if err != nil {
		return nil, err
	}
	return newEncryptionContext(userID, dek, s.cipher), nil
}

// existingEncryptionContext builds the read-path context. Reads never create
// keys: a user whose key was purged gets ErrEncryptionContextMissing, which
// is the crypto-erasure guarantee showing through.
func (s *Service) existingEncryptionContext(ctx context.Context, userID uuid.UUID) (*EncryptionContext, error) {
	key, err := s.userKeys.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrEncryptionContextMissing
		}
		return nil, err
	}
	dek, err := s.vault.Unwrap(key.WrappedDEK)
	if err != nil {
		return nil, err
	}
	return newEncryptionContext(userID, dek, s.cipher), nil
}

// hashRequest computes a deterministic request fingerprint for idempotency
// conflict detection.
func hashRequest(req any) string {
	raw, _ := json.Marshal(req)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

func journalIndexPrefix(userID uuid.UUID) string {
	return "journal:index:" + userID.String() + ":"
}

func journalIndexCacheKey(userID uuid.UUID, limit, offset int) string {
	return journalIndexPrefix(userID) + strconv.Itoa(limit) + ":" + strconv.Itoa(offset)
}

// invalidateJournalIndex purges this process immediately and broadcasts the
// purge to the rest of the fleet. Broadcast failures are logged, not
// returned: remote replicas fall back to TTL expiry.
func (s *Service) invalidateJournalIndex(ctx context.Context, userID uuid.UUID) {
	prefix := journalIndexPrefix(userID)
	s.local.DeletePrefix(prefix)
	if err := s.invalidations.Broadcast(ctx, ports.Invalidation{
		Kind:   ports.InvalidatePrefix,
		Target: prefix,
	}); err != nil {
		slog.Default().WarnContext(ctx, "cache invalidation broadcast failed",
			"service", "DataCore-Service",
			"module", "application",
			"layer", "application",
			"operation", "invalidate_journal_index",
			"outcome", "warning",
			"error", err,
		)
	}
}

// reserveIdempotent starts idempotent handling for a mutating request.
// Returns (replayID, true) when a completed record with a matching request
// hash already exists; reservation conflicts surface as
// domain.ErrIdempotencyConflict.
func (s *Service) reserveIdempotent(ctx context.Context, key, requestHash string) (uuid.UUID, bool, error) {
	existing, err := s.idempotency.Get(ctx, key)
	if err != nil {
		return uuid.Nil, false, err
	}
	if existing != nil {
		if existing.RequestHash != requestHash {
			return uuid.Nil, false, fmt.Errorf("%w: key reused with different request", domain.ErrIdempotencyConflict)
		}
		if existing.Status != "COMPLETED" {
			return uuid.Nil, false, fmt.Errorf("%w: original request still in flight", domain.ErrIdempotencyConflict)
		}
		var stored struct {
			EntryID uuid.UUID `json:"entry_id"`
		}
		if err := json.Unmarshal(existing.ResponseBody, &stored); err != nil {
			return uuid.Nil, false, fmt.Errorf("%w: stored response unreadable", domain.ErrIdempotencyConflict)
		}
		return stored.EntryID, true, nil
	}

	if err := s.idempotency.Reserve(ctx, key, requestHash, s.nowFn().Add(s.cfg.IdempotencyTTL)); err != nil {
		return uuid.Nil, false, fmt.Errorf("%w: %v", domain.ErrIdempotencyConflict, err)
	}
	return uuid.Nil, false, nil
}

// completeIdempotent stores only the created row's id. The response body a
// replay needs is rebuilt by re-reading and decrypting the row, so plaintext
// never lands in the idempotency table.
func (s *Service) completeIdempotent(ctx context.Context, key string, responseCode int, entryID uuid.UUID) {
	body, _ := json.Marshal(map[string]string{"entry_id": entryID.String()})
	if err := s.idempotency.Complete(ctx, key, responseCode, body, s.nowFn()); err != nil {
		slog.Default().WarnContext(ctx, "idempotency completion failed",
			"service", "DataCore-Service",
			"module", "application",
			"layer", "application",
			"operation", "complete_idempotent",
			"outcome", "warning",
			"error", err,
		)
	}
}

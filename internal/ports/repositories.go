package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/stillwaterhq/datacore/internal/domain"
)

// OutboxEvent is the write-side event payload prior to storage.
// It is adapter-neutral to keep application code independent of broker specifics.
type OutboxEvent struct {
	EventID      uuid.UUID
	EventType    string
	PartitionKey string
	Payload      []byte
	OccurredAt   time.Time
}

// OutboxRecord is the durable outbox row, including claim and retry metadata.
type OutboxRecord struct {
	ID           int64
	EventID      uuid.UUID
	EventType    string
	PartitionKey string
	Payload      []byte
	Status       string
	AttemptCount int
	LastError    *string
	ClaimToken   *string
	ClaimUntil   *time.Time
	CreatedAt    time.Time
	ProcessedAt  *time.Time
}

// Outbox status values. Failed rows remain claimable: retry is unbounded and
// there is no dead-letter path in this design.
const (
	OutboxStatusPending   = "pending"
	OutboxStatusProcessed = "processed"
	OutboxStatusFailed    = "failed"
)

// OutboxRepository controls the publish-retry workflow for change events.
// Rows are only ever created by the co-committing write methods of the other
// repositories; the dispatcher claims, publishes, and updates status.
type OutboxRepository interface {
	// ClaimPending atomically claims up to limit unprocessed rows, oldest
	// first, skipping rows held by a live claim. Claimed rows carry claimToken
	// until claimUntil, after which they become re-claimable (crash recovery).
	ClaimPending(ctx context.Context, limit int, claimToken string, claimUntil time.Time) ([]OutboxRecord, error)
	// MarkProcessed transitions a claimed row to processed. The claim token
	// must still match; a stale claimant's update is a no-op.
	MarkProcessed(ctx context.Context, id int64, claimToken string, at time.Time) error
	// MarkFailed records a publish failure and releases the claim so the row
	// is retried on a later cycle.
	MarkFailed(ctx context.Context, id int64, claimToken, errMsg string, at time.Time) error
}

// JournalRecord is the stored journal row. Title and body are present only in
// their envelope-encrypted form; decryption happens in the application layer.
type JournalRecord struct {
	EntryID   uuid.UUID
	UserID    uuid.UUID
	TitleEnc  []byte
	BodyEnc   []byte
	Mood      int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// JournalWriteParams carries one encrypted journal write.
type JournalWriteParams struct {
	EntryID  uuid.UUID
	UserID   uuid.UUID
	TitleEnc []byte
	BodyEnc  []byte
	Mood     int
	At       time.Time
}

// JournalRepository persists journal entries. Every mutating method accepts
// the change events produced for it and inserts them into the outbox within
// the same transaction: if the write commits the events exist, if it rolls
// back they do not.
type JournalRepository interface {
	CreateWithEvents(ctx context.Context, params JournalWriteParams, events []OutboxEvent) (JournalRecord, error)
	UpdateWithEvents(ctx context.Context, params JournalWriteParams, events []OutboxEvent) (JournalRecord, error)
	DeleteWithEvents(ctx context.Context, entryID, userID uuid.UUID, events []OutboxEvent) error
	GetByID(ctx context.Context, entryID, userID uuid.UUID) (JournalRecord, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]JournalRecord, error)
}

// UserKeyRepository stores KEK-wrapped DEKs, one per user. Insert must fail
// with domain.ErrConflict when a row already exists; that unique constraint is
// what resolves concurrent first-use creation races.
type UserKeyRepository interface {
	Get(ctx context.Context, userID uuid.UUID) (domain.UserEncryptionKey, error)
	Insert(ctx context.Context, key domain.UserEncryptionKey) error
	// DeleteWithEvents removes the wrapped DEK and co-commits the purge
	// events. Returns false when no key existed.
	DeleteWithEvents(ctx context.Context, userID uuid.UUID, events []OutboxEvent) (bool, error)
}

// RevocationRepository is the authoritative store of revoked token ids.
type RevocationRepository interface {
	// Insert is idempotent: revoking an already-revoked jti succeeds.
	Insert(ctx context.Context, entry domain.RevocationEntry) error
	Exists(ctx context.Context, jti string) (bool, error)
	// DeleteExpired prunes entries whose tokens passed natural expiry.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
	// ListActive returns live entries, used to rebuild the fast-path filter.
	ListActive(ctx context.Context, now time.Time, limit int) ([]domain.RevocationEntry, error)
}

// ExportCreateParams captures a new export request row.
type ExportCreateParams struct {
	ExportID    uuid.UUID
	UserID      uuid.UUID
	Format      string
	RequestedAt time.Time
	ExpiresAt   time.Time
}

// ExportRepository persists export generation lifecycle state.
type ExportRepository interface {
	CreateWithEvents(ctx context.Context, params ExportCreateParams, events []OutboxEvent) (domain.ExportRecord, error)
	// Complete transitions pending -> completed and co-commits the events.
	Complete(ctx context.Context, exportID uuid.UUID, filePath string, entryCount int, completedAt time.Time, events []OutboxEvent) error
	// MarkFailed transitions pending -> failed and co-commits the events.
	MarkFailed(ctx context.Context, exportID uuid.UUID, at time.Time, events []OutboxEvent) error
	GetByID(ctx context.Context, exportID, userID uuid.UUID) (domain.ExportRecord, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]domain.ExportRecord, error)
}

// IdempotencyRecord tracks a previously accepted mutating request.
// Storing response metadata lets handlers return stable replay responses.
type IdempotencyRecord struct {
	Key          string
	RequestHash  string
	Status       string
	ResponseCode int
	ResponseBody []byte
	ExpiresAt    time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IdempotencyRepository enforces idempotent mutation semantics.
type IdempotencyRepository interface {
	Get(ctx context.Context, key string) (*IdempotencyRecord, error)
	Reserve(ctx context.Context, key, requestHash string, expiresAt time.Time) error
	Complete(ctx context.Context, key string, responseCode int, responseBody []byte, at time.Time) error
}

package postgres

import (
	"time"

	"github.com/google/uuid"
)

// outboxEventModel rows are only ever written inside the transaction that
// writes the domain rows they describe. The BIGSERIAL id gives dispatch a
// stable commit-ordered cursor; event_id is the consumer-facing identity.
type outboxEventModel struct {
	ID           int64      `gorm:"column:id;primaryKey;autoIncrement"`
	EventID      uuid.UUID  `gorm:"column:event_id;type:uuid"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      string     `gorm:"column:payload;type:jsonb"`
	Status       string     `gorm:"column:status"`
	AttemptCount int        `gorm:"column:attempt_count"`
	LastError    *string    `gorm:"column:last_error"`
	ClaimToken   *string    `gorm:"column:claim_token"`
	ClaimUntil   *time.Time `gorm:"column:claim_until"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	ProcessedAt  *time.Time `gorm:"column:processed_at"`
}

func (outboxEventModel) TableName() string { return "outbox_events" }

type userEncryptionKeyModel struct {
	UserID     uuid.UUID `gorm:"column:user_id;type:uuid;primaryKey"`
	WrappedDEK []byte    `gorm:"column:wrapped_dek"`
	CreatedAt  time.Time `gorm:"column:created_at"`
}

func (userEncryptionKeyModel) TableName() string { return "user_encryption_keys" }

type tokenRevocationModel struct {
	JTI       string    `gorm:"column:jti;primaryKey"`
	RevokedAt time.Time `gorm:"column:revoked_at"`
	ExpiresAt time.Time `gorm:"column:expires_at"`
}

func (tokenRevocationModel) TableName() string { return "token_revocations" }

type journalEntryModel struct {
	EntryID   uuid.UUID `gorm:"column:entry_id;type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid"`
	TitleEnc  []byte    `gorm:"column:title_enc"`
	BodyEnc   []byte    `gorm:"column:body_enc"`
	Mood      int       `gorm:"column:mood"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (journalEntryModel) TableName() string { return "journal_entries" }

type exportRecordModel struct {
	ExportID    uuid.UUID  `gorm:"column:export_id;type:uuid;primaryKey"`
	UserID      uuid.UUID  `gorm:"column:user_id;type:uuid"`
	Format      string     `gorm:"column:format"`
	Status      string     `gorm:"column:status"`
	FilePath    string     `gorm:"column:file_path"`
	EntryCount  int        `gorm:"column:entry_count"`
	RequestedAt time.Time  `gorm:"column:requested_at"`
	CompletedAt *time.Time `gorm:"column:completed_at"`
	ExpiresAt   time.Time  `gorm:"column:expires_at"`
}

func (exportRecordModel) TableName() string { return "export_records" }

type idempotencyModel struct {
	IdempotencyKey string    `gorm:"column:idempotency_key;primaryKey"`
	RequestHash    string    `gorm:"column:request_hash"`
	Status         string    `gorm:"column:status"`
	ResponseCode   int       `gorm:"column:response_code"`
	ResponseBody   *string   `gorm:"column:response_body;type:jsonb"`
	ExpiresAt      time.Time `gorm:"column:expires_at"`
	CreatedAt      time.Time `gorm:"column:created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at"`
}

func (idempotencyModel) TableName() string { return "idempotency_keys" }

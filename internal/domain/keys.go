package domain

import (
	"time"

	"github.com/google/uuid"
)

const EventKeysPurged = "user_encryption_key.purged"

// UserEncryptionKey is the stored, KEK-wrapped form of a user's DEK.
// The plaintext DEK never persists; deleting this row is the crypto-erasure
// mechanism that makes the user's encrypted content permanently unreadable.
type UserEncryptionKey struct {
	UserID     uuid.UUID
	WrappedDEK []byte
	CreatedAt  time.Time
}

func (k UserEncryptionKey) EventEntity() string { return "user_encryption_key" }

func (k UserEncryptionKey) EventEntityID() string { return k.UserID.String() }

func (k UserEncryptionKey) EventOwner() uuid.UUID { return k.UserID }

// EventBody carries no key material under any circumstances.
func (k UserEncryptionKey) EventBody(ChangeKind) map[string]any {
	return map[string]any{}
}

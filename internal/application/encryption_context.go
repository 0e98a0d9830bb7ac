package application

import (
	"github.com/google/uuid"

	"github.com/stillwaterhq/datacore/internal/domain"
	"github.com/stillwaterhq/datacore/internal/ports"
)

// EncryptionContext binds one user's unwrapped DEK to one operation. It is
// constructed per request, passed explicitly to everything that touches
// protected fields, and discarded with the request; the DEK inside is never
// cached, stored, or logged. A nil or keyless context fails closed.
type EncryptionContext struct {
	userID uuid.UUID
	dek    []byte
	cipher ports.FieldCipher
}

func newEncryptionContext(userID uuid.UUID, dek []byte, cipher ports.FieldCipher) *EncryptionContext {
	return &EncryptionContext{userID: userID, dek: dek, cipher: cipher}
}

func (c *EncryptionContext) UserID() uuid.UUID {
	if c == nil {
		return uuid.Nil
	}
	return c.userID
}

func (c *EncryptionContext) EncryptField(plaintext []byte) ([]byte, error) {
	if c == nil || len(c.dek) == 0 {
		return nil, domain.ErrEncryptionContextMissing
	}
	return c.cipher.Seal(plaintext, c.dek)
}

func (c *EncryptionContext) DecryptField(blob []byte) ([]byte, error) {
	if c == nil || len(c.dek) == 0 {
		return nil, domain.ErrEncryptionContextMissing
	}
	return c.cipher.Open(blob, c.dek)
}

package ports

import (
	"time"

	"github.com/google/uuid"
)

// KeyVault wraps and unwraps per-user data keys under the service master key.
// Wrapped blobs are opaque to callers and safe to persist; plaintext DEKs
// must never leave process memory.
type KeyVault interface {
	// GenerateDEK returns a fresh 256-bit data encryption key.
	GenerateDEK() ([]byte, error)
	Wrap(dek []byte) ([]byte, error)
	// Unwrap recovers the DEK. A tampered or foreign blob yields
	// domain.ErrIntegrity, never a garbage key.
	Unwrap(wrapped []byte) ([]byte, error)
}

// FieldCipher seals and opens individual sensitive fields under a DEK.
type FieldCipher interface {
	// Seal encrypts plaintext. Two calls with identical inputs produce
	// different blobs; callers must not rely on ciphertext equality.
	Seal(plaintext, dek []byte) ([]byte, error)
	// Open decrypts a sealed blob. Any corruption or wrong-key attempt
	// yields domain.ErrIntegrity.
	Open(blob, dek []byte) ([]byte, error)
}

// AccessClaims is the validated identity carried by an access token.
type AccessClaims struct {
	UserID    uuid.UUID
	JTI       string
	Role      string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenVerifier checks token signature and temporal validity. Revocation is
// a separate concern layered on top by the application.
type TokenVerifier interface {
	// Verify returns domain.ErrTokenExpired for expired tokens and
	// domain.ErrUnauthorized for anything else that fails validation.
	Verify(token string) (AccessClaims, error)
}

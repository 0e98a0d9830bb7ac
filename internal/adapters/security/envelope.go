package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"

	"github.com/stillwaterhq/datacore/internal/domain"
)

// EnvelopeCipher encrypts individual fields with AES-256-GCM under a caller
// supplied DEK. Blobs are nonce || ciphertext || tag; the nonce is drawn
// fresh per call, so sealing the same plaintext twice never repeats bytes.
type EnvelopeCipher struct{}

func NewEnvelopeCipher() *EnvelopeCipher {
	return &EnvelopeCipher{}
}

func (c *EnvelopeCipher) Seal(plaintext, dek []byte) ([]byte, error) {
	aead, err := fieldAEAD(dek)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("seal field: %w", err)
	}
	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

func (c *EnvelopeCipher) Open(blob, dek []byte) ([]byte, error) {
	aead, err := fieldAEAD(dek)
	if err != nil {
		return nil, err
	}
	if len(blob) < aead.NonceSize() {
		return nil, domain.ErrIntegrity
	}
	nonce, sealed := blob[:aead.NonceSize()], blob[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, domain.ErrIntegrity
	}
	return plaintext, nil
}

func fieldAEAD(dek []byte) (cipher.AEAD, error) {
	if len(dek) != dekSize {
		return nil, fmt.Errorf("field cipher: unexpected key length %d", len(dek))
	}
	block, err := aes.NewCipher(dek)
	if err != nil {
		return nil, fmt.Errorf("field cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("field cipher: %w", err)
	}
	return aead, nil
}

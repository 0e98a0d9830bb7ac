package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/stillwaterhq/datacore/internal/domain"
)

const (
	dekSize = 32

	// kekInfo labels the derivation so a future scheme change can derive a
	// distinct wrap key from the same master secret.
	kekInfo = "datacore/dek-wrap/v1"
)

// KeyVault wraps per-user data keys under a key-encryption key derived from
// the service master secret via HKDF-SHA256. The master secret itself is
// never used as a cipher key directly.
type KeyVault struct {
	kek []byte
}

// NewKeyVault derives the wrap key from the 32-byte master secret.
func NewKeyVault(masterKey []byte) (*KeyVault, error) {
	if len(masterKey) != dekSize {
		return nil, fmt.Errorf("%w: master key must be %d bytes", domain.ErrConfiguration, dekSize)
	}
	kek := make([]byte, dekSize)
	reader := hkdf.New(sha256.New, masterKey, nil, []byte(kekInfo))
	if _, err := io.ReadFull(reader, kek); err != nil {
		return nil, fmt.Errorf("derive wrap key: %w", err)
	}
	return &KeyVault{kek: kek}, nil
}

func (v *KeyVault) GenerateDEK() ([]byte, error) {
	dek := make([]byte, dekSize)
	if _, err := rand.Read(dek); err != nil {
		return nil, fmt.Errorf("generate data key: %w", err)
	}
	return dek, nil
}

func (v *KeyVault) Wrap(dek []byte) ([]byte, error) {
	if len(dek) != dekSize {
		return nil, fmt.Errorf("wrap data key: unexpected key length %d", len(dek))
	}
	aead, err := v.aead()
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("wrap data key: %w", err)
	}
	return aead.Seal(nonce, nonce, dek, nil), nil
}

func (v *KeyVault) Unwrap(wrapped []byte) ([]byte, error) {
	aead, err := v.aead()
	if err != nil {
		return nil, err
	}
	if len(wrapped) < aead.NonceSize() {
		return nil, domain.ErrIntegrity
	}
	nonce, sealed := wrapped[:aead.NonceSize()], wrapped[aead.NonceSize():]
	dek, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		// Deliberately discard the cipher error: it carries no actionable
		// detail and the sentinel must not leak key context.
		return nil, domain.ErrIntegrity
	}
	return dek, nil
}

func (v *KeyVault) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(v.kek)
	if err != nil {
		return nil, fmt.Errorf("init wrap cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("init wrap cipher: %w", err)
	}
	return aead, nil
}

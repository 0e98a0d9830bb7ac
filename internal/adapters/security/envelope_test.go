package security

import (
	"bytes"
	"crypto/rand"
	"errors"
	"testing"

	"github.com/stillwaterhq/datacore/internal/domain"
)

func testDEK(t *testing.T) []byte {
	t.Helper()
	dek := make([]byte, dekSize)
	if _, err := rand.Read(dek); err != nil {
		t.Fatalf("generate test key: %v", err)
	}
	return dek
}

func TestEnvelopeCipherRoundTrip(t *testing.T) {
	t.Parallel()

	cipher := NewEnvelopeCipher()
	dek := testDEK(t)

	cases := []struct {
		name      string
		plaintext []byte
	}{
		{name: "short text", plaintext: []byte("slept well, feeling calm")},
		{name: "empty", plaintext: []byte{}},
		{name: "binary", plaintext: []byte{0x00, 0xff, 0x10, 0x7f}},
		{name: "unicode", plaintext: []byte("день был тяжёлый 🌧")},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			blob, err := cipher.Seal(tc.plaintext, dek)
			if err != nil {
				t.Fatalf("Seal: %v", err)
			}
			if bytes.Contains(blob, tc.plaintext) && len(tc.plaintext) > 0 {
				t.Fatal("blob contains plaintext")
			}

			got, err := cipher.Open(blob, dek)
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			if !bytes.Equal(got, tc.plaintext) {
				t.Fatalf("round trip mismatch: got %q want %q", got, tc.plaintext)
			}
		})
	}
}

func TestEnvelopeCipherSealIsNonDeterministic(t *testing.T) {
	t.Parallel()

	cipher := NewEnvelopeCipher()
	dek := testDEK(t)
	plaintext := []byte("same entry, sealed twice")

	first, err := cipher.Seal(plaintext, dek)
	if err != nil {
		t.Fatalf("first Seal: %v", err)
	}
	second, err := cipher.Seal(plaintext, dek)
	if err != nil {
		t.Fatalf("second Seal: %v", err)
	}
	if bytes.Equal(first, second) {
		t.Fatal("two seals of the same plaintext produced identical blobs")
	}
}

func TestEnvelopeCipherRejectsTampering(t *testing.T) {
	t.Parallel()

	cipher := NewEnvelopeCipher()
	dek := testDEK(t)

	blob, err := cipher.Seal([]byte("private reflection"), dek)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}

	// Flipping any single byte, nonce, body or tag, must fail closed.
	for i := range blob {
		tampered := make([]byte, len(blob))
		copy(tampered, blob)
		tampered[i] ^= 0x01

		if _, err := cipher.Open(tampered, dek); !errors.Is(err, domain.ErrIntegrity) {
			t.Fatalf("byte %d: got err %v, want ErrIntegrity", i, err)
		}
	}
}

func TestEnvelopeCipherRejectsWrongKey(t *testing.T) {
	t.Parallel()

	cipher := NewEnvelopeCipher()
	blob, err := cipher.Seal([]byte("not for other tenants"), testDEK(t))
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}

	if _, err := cipher.Open(blob, testDEK(t)); !errors.Is(err, domain.ErrIntegrity) {
		t.Fatalf("got err %v, want ErrIntegrity", err)
	}
}

func TestEnvelopeCipherRejectsTruncatedBlob(t *testing.T) {
	t.Parallel()

	cipher := NewEnvelopeCipher()
	dek := testDEK(t)

	cases := []struct {
		name string
		blob []byte
	}{
		{name: "empty", blob: nil},
		{name: "shorter than nonce", blob: []byte{0x01, 0x02, 0x03}},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if _, err := cipher.Open(tc.blob, dek); !errors.Is(err, domain.ErrIntegrity) {
				t.Fatalf("got err %v, want ErrIntegrity", err)
			}
		})
	}
}

func TestEnvelopeCipherRejectsBadKeyLength(t *testing.T) {
	t.Parallel()

	cipher := NewEnvelopeCipher()

	if _, err := cipher.Seal([]byte("x"), []byte("short")); err == nil {
		t.Fatal("Seal accepted a short key")
	}
	if _, err := cipher.Open([]byte("whatever"), []byte("short")); err == nil {
		t.Fatal("Open accepted a short key")
	}
}

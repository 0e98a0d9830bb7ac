package domain

import "errors"

var (
	// ErrNotFound is returned when the requested resource does not exist.
	// Keeping this sentinel in domain allows adapters to map it consistently to 404/NOT_FOUND.
	ErrNotFound = errors.New("resource not found")
	// ErrConflict signals a uniqueness violation on insert.
	// Repositories translate driver-level duplicate-key errors into this sentinel.
	ErrConflict = errors.New("conflict")
	// ErrInvalidInput covers malformed or out-of-range request fields.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnauthorized is returned for missing or unverifiable credentials.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrTokenExpired signals a token past its natural expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenRevoked signals a token rejected by the revocation registry.
	// HTTP maps it to the same response as ErrTokenExpired so clients cannot
	// distinguish revocation from expiry.
	ErrTokenRevoked = errors.New("token revoked")
	// ErrIdempotencyConflict is returned when an Idempotency-Key is replayed
	// with a different request body.
	ErrIdempotencyConflict = errors.New("idempotency conflict")

	// ErrIntegrity is returned when authenticated decryption or key unwrapping
	// detects tampering or a wrong key. It must surface to the caller and must
	// never be accompanied by key material in logs or messages.
	ErrIntegrity = errors.New("integrity check failed")
	// ErrEncryptionContextMissing is returned when a protected field is touched
	// with no DEK bound to the operation. Field access fails closed instead of
	// storing or returning plaintext.
	ErrEncryptionContextMissing = errors.New("encryption context missing")
	// ErrLockBusy signals that another valid holder owns the lock.
	// It is an expected control-flow outcome, not an exceptional failure;
	// callers decide whether to retry, back off, or report busy.
	ErrLockBusy = errors.New("lock busy")
	// ErrBusUnavailable wraps publish failures against the message bus.
	// The dispatcher contains it and retries; it never reaches the writer whose
	// transaction already committed.
	ErrBusUnavailable = errors.New("bus unavailable")
	// ErrConfiguration marks a fatal startup misconfiguration such as a missing
	// master key. The process must not start in this state.
	ErrConfiguration = errors.New("configuration error")
)

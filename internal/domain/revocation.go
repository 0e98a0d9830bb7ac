package domain

import "time"

// RevocationEntry is the authoritative record that a token id was invalidated
// before its natural expiry. Entries become prunable once ExpiresAt passes,
// because the token would then be rejected for expiry anyway.
type RevocationEntry struct {
	JTI       string
	RevokedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the underlying token has passed its natural expiry.
func (e RevocationEntry) Expired(now time.Time) bool {
	return !e.ExpiresAt.After(now)
}

package ports

import (
	"context"
	"time"
)

// ResourceLock is lease-based mutual exclusion over a shared atomic store.
// Acquire is non-blocking: when another valid holder exists it returns
// domain.ErrLockBusy immediately, and the caller decides what "busy" means.
type ResourceLock interface {
	// Acquire sets the lock if absent and returns the random holder token.
	Acquire(ctx context.Context, key string, ttl time.Duration) (string, error)
	// Release deletes the lock only while it still holds token. A release
	// presented with a stale token is a no-op, never an error: the lease
	// expired and someone else may legitimately own the key now.
	Release(ctx context.Context, key, token string) error
	// Extend renews the lease while it still holds token; returns
	// domain.ErrLockBusy once the holder has been superseded.
	Extend(ctx context.Context, key, token string, ttl time.Duration) error
}

// RevocationFilter is the probabilistic fast path of the revocation registry.
// Its one hard requirement is zero false negatives for added members: a
// "definitely absent" answer is trusted without touching the database, while
// "possibly present" is always confirmed against the authoritative store.
type RevocationFilter interface {
	Add(ctx context.Context, jti string) error
	MightContain(ctx context.Context, jti string) (bool, error)
}

// Invalidation names one cache purge target for the whole fleet.
type Invalidation struct {
	Kind   string `json:"type"`
	Target string `json:"target"`
}

const (
	InvalidateKey    = "invalidate_key"
	InvalidatePrefix = "invalidate_prefix"
)

// InvalidationBus fans cache invalidations out to every replica.
type InvalidationBus interface {
	Broadcast(ctx context.Context, inv Invalidation) error
}

// LocalCache is the per-process cache purged by the invalidation listener.
// Values are opaque bytes so cached shapes stay the caller's concern.
type LocalCache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration)
	Delete(key string)
	DeletePrefix(prefix string)
}

package application

import (
	"context"
	"log/slog"

	"github.com/stillwaterhq/datacore/internal/domain"
)

// ValidateToken verifies signature and expiry, then checks the revocation
// registry. Both failure modes are terminal for the request; HTTP renders
// revoked and expired identically so clients cannot tell them apart.
func (s *Service) ValidateToken(ctx context.Context, token string) (Identity, error) {
	claims, err := s.verifier.Verify(token)
	if err != nil {
		return Identity{}, err
	}

	revoked, err := s.IsTokenRevoked(ctx, claims.JTI)
	if err != nil {
		return Identity{}, err
	}
	if revoked {
		return Identity{}, domain.ErrTokenRevoked
	}

	return Identity{
		UserID:    claims.UserID,
		JTI:       claims.JTI,
		Role:      claims.Role,
		ExpiresAt: claims.ExpiresAt,
	}, nil
}

// RevokeCurrentToken invalidates the presented token until its natural
// expiry. The store write is what revokes; the filter add is the fast path
// catching up, and a filter failure only costs later lookups a store hit.
func (s *Service) RevokeCurrentToken(ctx context.Context, ident Identity) error {
	entry := domain.RevocationEntry{
		JTI:       ident.JTI,
		RevokedAt: s.nowFn(),
		ExpiresAt: ident.ExpiresAt,
	}
	if err := s.revocations.Insert(ctx, entry); err != nil {
		return err
	}

	if err := s.filter.Add(ctx, ident.JTI); err != nil {
		slog.Default().WarnContext(ctx, "revocation filter add failed",
			"service", "DataCore-Service",
			"module", "application",
			"layer", "application",
			"operation", "revoke_token",
			"outcome", "warning",
			"error", err,
		)
	}

	slog.Default().InfoContext(ctx, "token revoked",
		"service", "DataCore-Service",
		"module", "application",
		"layer", "application",
		"operation", "revoke_token",
		"outcome", "success",
		"user_id", ident.UserID,
	)
	return nil
}

// IsTokenRevoked consults the filter first. "Definitely absent" is trusted
// and skips the database entirely; "possibly present" or a filter failure is
// settled by the authoritative store.
func (s *Service) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	might, err := s.filter.MightContain(ctx, jti)
	if err != nil {
		slog.Default().WarnContext(ctx, "revocation filter unavailable; using store",
			"service", "DataCore-Service",
			"module", "application",
			"layer", "application",
			"operation", "is_token_revoked",
			"outcome", "warning",
			"error", err.Error(),
		)
		return s.revocations.Exists(ctx, jti)
	}
	if !might {
		return false, nil
	}
	return s.revocations.Exists(ctx, jti)
}

// MaintainRevocations prunes expired registry rows and re-feeds the live
// ones into the filter. The re-feed runs every cycle: it is what restores
// the no-false-negative guarantee after Redis loses the filter.
func (s *Service) MaintainRevocations(ctx context.Context, batchSize int) error {
	now := s.nowFn()
	pruned, err := s.revocations.DeleteExpired(ctx, now)
	if err != nil {
		return err
	}

	live, err := s.revocations.ListActive(ctx, now, batchSize)
	if err != nil {
		return err
	}
	for _, entry := range live {
		if err := s.filter.Add(ctx, entry.JTI); err != nil {
			return err
		}
	}

	slog.Default().InfoContext(ctx, "revocation registry maintained",
		"service", "DataCore-Service",
		"module", "application",
		"layer", "application",
		"operation", "maintain_revocations",
		"outcome", "success",
		"pruned_count", pruned,
		"refed_count", len(live),
	)
	return nil
}

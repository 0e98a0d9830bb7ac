package security

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/stillwaterhq/datacore/internal/domain"
	"github.com/stillwaterhq/datacore/internal/ports"
)

type accessTokenClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// TokenVerifier validates HS256 access tokens minted by the identity
// service. DataCore never issues tokens; it only verifies and revokes them.
type TokenVerifier struct {
	secret []byte
}

func NewTokenVerifier(secret []byte) (*TokenVerifier, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("%w: token secret is required", domain.ErrConfiguration)
	}
	return &TokenVerifier{secret: secret}, nil
}

func (v *TokenVerifier) Verify(token string) (ports.AccessClaims, error) {
	claims := &accessTokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ports.AccessClaims{}, domain.ErrTokenExpired
		}
		return ports.AccessClaims{}, domain.ErrUnauthorized
	}
	if !parsed.Valid {
		return ports.AccessClaims{}, domain.ErrUnauthorized
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return ports.AccessClaims{}, domain.ErrUnauthorized
	}
	if claims.ID == "" {
		return ports.AccessClaims{}, domain.ErrUnauthorized
	}

	out := ports.AccessClaims{
		UserID: userID,
		JTI:    claims.ID,
		Role:   claims.Role,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt == nil {
		// Tokens without an expiry would be irrevocable by the registry
		// janitor, so they are rejected outright.
		return ports.AccessClaims{}, domain.ErrUnauthorized
	}
	out.ExpiresAt = claims.ExpiresAt.Time
	return out, nil
}

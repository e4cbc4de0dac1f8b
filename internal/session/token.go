package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims is the explicit claim schema read from backend tokens.
// Only the "role" claim carries the role.
type TokenClaims struct {
	UserID string `json:"user_id,omitempty"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// ParseToken decodes a backend JWT without verifying its signature. The
// signing key belongs to the backend, which verifies every API call; the
// dashboard only needs the claims to gate routes and detect expiry.
func ParseToken(raw string) (*TokenClaims, error) {
	if raw == "" {
		return nil, fmt.Errorf("%w: empty token", errMalformedState)
	}

	var claims TokenClaims
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformedState, err)
	}

	return &claims, nil
}

// Expired reports whether the token's exp claim is at or before now.
// Tokens without exp never expire on the client side.
func (c *TokenClaims) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && !c.ExpiresAt.After(now)
}

package backend

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessClaims are the claims the auth API puts into access tokens.
type AccessClaims struct {
	jwt.RegisteredClaims
	Email     string `json:"email"`
	Role      string `json:"role"`
	SessionID string `json:"session_id"`
}

// ParseAccessToken decodes an access token without verifying its signature.
// The client never holds the signing key; the backend verifies every request.
func ParseAccessToken(token string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("parse access token: %w", err)
	}
	return claims, nil
}

// tokenExpiry returns the exp claim of token, or the zero time.
func tokenExpiry(token string) time.Time {
	claims, err := ParseAccessToken(token)
	if err != nil || claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}

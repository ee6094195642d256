package models

import "time"

// Identity is the backend's authentication-level user record.
// It is immutable for the lifetime of the session it is bound to.
type Identity struct {
	ID        string         `json:"id"`
	Email     string         `json:"email"`
	CreatedAt time.Time      `json:"created_at"`
	Metadata  map[string]any `json:"user_metadata,omitempty"`
}

// Session is the credential bundle issued by the auth service.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         Identity  `json:"user"`
}

// UserID returns the id of the bound identity, or "" for a nil session.
func (s *Session) UserID() string {
	if s == nil {
		return ""
	}
	return s.User.ID
}

// ExpiresWithin reports whether the access token expires before now+margin.
// A zero ExpiresAt never expires.
func (s *Session) ExpiresWithin(now time.Time, margin time.Duration) bool {
	if s == nil || s.ExpiresAt.IsZero() {
		return false
	}
	return !now.Add(margin).Before(s.ExpiresAt)
}

// SameToken reports whether both sessions carry the same access token.
// Two nil sessions are equal.
func SameToken(a, b *Session) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.AccessToken == b.AccessToken
}

// SignUpResult is returned by the auth service on sign-up. Session is nil when
// the backend withholds it pending email confirmation.
type SignUpResult struct {
	Identity Identity
	Session  *Session
}

type AuthEventType string

const (
	SignedIn       AuthEventType = "SIGNED_IN"
	SignedOut      AuthEventType = "SIGNED_OUT"
	TokenRefreshed AuthEventType = "TOKEN_REFRESHED"
)

// AuthEvent is delivered by the auth service's change stream.
// Session is nil for SignedOut.
type AuthEvent struct {
	Type    AuthEventType
	Session *Session
}

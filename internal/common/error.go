// Package common defines shared constants and sentinel errors used across
// the client layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Authentication errors.
	ErrInvalidCredentials = errors.New("invalid login credentials")
	ErrEmailInUse         = errors.New("email already registered")
	ErrWeakPassword       = errors.New("password is too weak")
	ErrNotAuthenticated   = errors.New("not authenticated")

	// Data access errors.
	ErrPermissionDenied    = errors.New("permission denied")
	ErrNotFound            = errors.New("not found")
	ErrConstraintViolation = errors.New("constraint violation")

	// Transport errors.
	ErrRateLimited = errors.New("rate limited")
	ErrNetwork     = errors.New("network error")
	ErrUnknown     = errors.New("unknown error")

	// Local cache errors.
	ErrCacheCorrupted = errors.New("cached session is corrupted")
)

// Kind returns the taxonomy sentinel err matches, or ErrUnknown.
func Kind(err error) error {
	for _, k := range []error{
		ErrInvalidCredentials, ErrEmailInUse, ErrWeakPassword, ErrNotAuthenticated,
		ErrPermissionDenied, ErrNotFound, ErrConstraintViolation,
		ErrRateLimited, ErrNetwork,
	} {
		if errors.Is(err, k) {
			return k
		}
	}
	return ErrUnknown
}

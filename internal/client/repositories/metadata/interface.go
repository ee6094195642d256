// Package metadata is the local key/value store backing the session cache.
package metadata

import (
	"context"
)

// Repository is a persistent key/value slot store. Get returns (nil, nil)
// for a missing key.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	// GetOrCreate returns the stored value for key, storing value first
	// when the key is absent.
	GetOrCreate(ctx context.Context, key string, value []byte) ([]byte, error)
}

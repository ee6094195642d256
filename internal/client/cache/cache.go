// Package cache persists the last known session in the local metadata store
// so a restarted client can render optimistically before the backend answers.
//
// The cache is a single slot: every Save fully replaces it. When a secret is
// configured the JSON payload is sealed with AES-GCM under a key derived from
// the secret and a per-install salt kept in the same store.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/adullam/internal/client/models"
	"github.com/dmitrijs2005/adullam/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/adullam/internal/common"
	"github.com/dmitrijs2005/adullam/internal/cryptox"
)

// Store is the part of metadata.Repository the cache needs.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

var _ Store = (metadata.Repository)(nil)

// getOrCreator is implemented by stores that can initialize a key atomically.
type getOrCreator interface {
	GetOrCreate(ctx context.Context, key string, value []byte) ([]byte, error)
}

type SessionCache struct {
	store  Store
	secret []byte

	mu  sync.Mutex
	key []byte
}

type Option func(*SessionCache)

// WithSecret enables sealing. An empty secret leaves the cache in plain JSON.
func WithSecret(secret string) Option {
	return func(c *SessionCache) {
		if secret != "" {
			c.secret = []byte(secret)
		}
	}
}

func NewSessionCache(store Store, opts ...Option) *SessionCache {
	c := &SessionCache{store: store}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Load returns the cached session, or (nil, nil) when the slot is empty.
// A payload that cannot be opened or decoded yields common.ErrCacheCorrupted.
func (c *SessionCache) Load(ctx context.Context) (*models.Session, error) {
	raw, err := c.store.Get(ctx, common.SessionCacheKey)
	if err != nil {
		return nil, fmt.Errorf("read session cache: %w", err)
	}
	if raw == nil {
		return nil, nil
	}

	if c.secret != nil {
		key, err := c.cacheKey(ctx)
		if err != nil {
			return nil, err
		}
		raw, err = cryptox.Open(raw, key)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrCacheCorrupted, err)
		}
	}

	var s models.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrCacheCorrupted, err)
	}
	if s.AccessToken == "" {
		return nil, fmt.Errorf("%w: empty access token", common.ErrCacheCorrupted)
	}
	return &s, nil
}

// Save replaces the slot with s; a nil s clears it.
func (c *SessionCache) Save(ctx context.Context, s *models.Session) error {
	if s == nil {
		return c.Clear(ctx)
	}

	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if c.secret != nil {
		key, err := c.cacheKey(ctx)
		if err != nil {
			return err
		}
		if raw, err = cryptox.Seal(raw, key); err != nil {
			return fmt.Errorf("seal session: %w", err)
		}
	}

	if err := c.store.Set(ctx, common.SessionCacheKey, raw); err != nil {
		return fmt.Errorf("write session cache: %w", err)
	}
	return nil
}

// Clear empties the slot. The sealing salt is kept.
func (c *SessionCache) Clear(ctx context.Context) error {
	if err := c.store.Delete(ctx, common.SessionCacheKey); err != nil {
		return fmt.Errorf("clear session cache: %w", err)
	}
	return nil
}

func (c *SessionCache) cacheKey(ctx context.Context) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.key != nil {
		return c.key, nil
	}

	var salt []byte
	if gc, ok := c.store.(getOrCreator); ok {
		var err error
		salt, err = gc.GetOrCreate(ctx, common.CacheSaltKey, common.GenerateRandByteArray(cryptox.SaltSize))
		if err != nil {
			return nil, fmt.Errorf("init cache salt: %w", err)
		}
	} else {
		var err error
		salt, err = c.store.Get(ctx, common.CacheSaltKey)
		if err != nil {
			return nil, fmt.Errorf("read cache salt: %w", err)
		}
		if salt == nil {
			salt = common.GenerateRandByteArray(cryptox.SaltSize)
			if err := c.store.Set(ctx, common.CacheSaltKey, salt); err != nil {
				return nil, fmt.Errorf("write cache salt: %w", err)
			}
		}
	}

	c.key = cryptox.DeriveCacheKey(c.secret, salt)
	return c.key, nil
}

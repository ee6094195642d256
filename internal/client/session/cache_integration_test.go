package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/adullam/internal/client/cache"
	"github.com/dmitrijs2005/adullam/internal/client/migrations"
	"github.com/dmitrijs2005/adullam/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/adullam/internal/common"
)

func TestManager_WithSealedSQLiteCache(t *testing.T) {
	ctx := context.Background()
	db, err := migrations.OpenCache(ctx, "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := metadata.NewSQLiteRepository(db)
	sc := cache.NewSessionCache(repo, cache.WithSecret("device-secret"))
	require.NoError(t, sc.Save(ctx, sess("A1", "u1", "a@x.com")))

	raw, err := repo.Get(ctx, common.SessionCacheKey)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "access_token")

	auth := newFakeAuth()
	auth.setCurrent(sess("A2", "u1", "a@x.com"), nil)
	m := NewManager(Deps{Auth: auth, Profiles: newFakeProfiles(ann), Cache: sc})
	t.Cleanup(m.Close)

	require.NoError(t, m.Start(ctx))
	require.NotNil(t, auth.Restored)
	assert.Equal(t, "A1", auth.Restored.AccessToken)
	assert.Equal(t, "A2", m.Session().AccessToken)

	reopened := cache.NewSessionCache(repo, cache.WithSecret("device-secret"))
	s, err := reopened.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, "A2", s.AccessToken)

	require.NoError(t, m.Logout(ctx))
	s, err = reopened.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, s)
}

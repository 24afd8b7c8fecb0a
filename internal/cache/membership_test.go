package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/workspace-api/internal/authz"
	"github.com/yukikurage/workspace-api/internal/models"
)

func setupTestCache(t *testing.T, ttl time.Duration) (*MembershipCache, *miniredis.Miniredis) {
	s := miniredis.RunT(t)
	c, err := Connect(context.Background(), "redis://"+s.Addr(), ttl)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c, s
}

func TestMembershipCache_RoundTrip(t *testing.T) {
	c, s := setupTestCache(t, time.Minute)
	ctx := context.Background()

	_, ok, err := c.Get(ctx, 7)
	require.NoError(t, err)
	assert.False(t, ok)

	actor := &authz.Actor{
		UserID:         7,
		WorkspaceRoles: map[uint64]models.Role{10: models.RoleAdmin},
		TeamRoles:      map[uint64]models.Role{3: models.RoleManager},
	}
	require.NoError(t, c.Set(ctx, actor))
	assert.True(t, s.Exists("actor:7"))
	assert.Equal(t, time.Minute, s.TTL("actor:7"))

	got, ok, err := c.Get(ctx, 7)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, actor, got)

	s.FastForward(2 * time.Minute)
	_, ok, err = c.Get(ctx, 7)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMembershipCache_Invalidate(t *testing.T) {
	c, s := setupTestCache(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, &authz.Actor{UserID: 1}))
	require.NoError(t, c.Set(ctx, &authz.Actor{UserID: 2}))

	require.NoError(t, c.Invalidate(ctx, 1, 2, 3))
	assert.False(t, s.Exists("actor:1"))
	assert.False(t, s.Exists("actor:2"))
}

func TestMembershipCache_CorruptEntry(t *testing.T) {
	c, s := setupTestCache(t, time.Minute)
	require.NoError(t, s.Set("actor:5", "{not json"))

	_, ok, err := c.Get(context.Background(), 5)
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestMembershipCache_DisabledIsAlwaysAMiss(t *testing.T) {
	ctx := context.Background()

	var nilCache *MembershipCache
	require.NoError(t, nilCache.Set(ctx, &authz.Actor{UserID: 1}))
	_, ok, err := nilCache.Get(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, nilCache.Invalidate(ctx, 1))

	s := miniredis.RunT(t)
	zeroTTL := NewMembershipCache(redis.NewClient(&redis.Options{Addr: s.Addr()}), 0)
	require.NoError(t, zeroTTL.Set(ctx, &authz.Actor{UserID: 1}))
	assert.False(t, s.Exists("actor:1"))
}

package redisstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/b2b-storefront-api/internal/domain/entity"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestStorage_GetSetDelete(t *testing.T) {
	mr, rdb := newRedis(t)
	s := NewStorage(rdb, "rl:")

	got, err := s.Get("missing")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, s.Set("k", []byte("v"), time.Minute))
	assert.True(t, mr.Exists("rl:k"))

	got, err = s.Get("k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	require.NoError(t, s.Delete("k"))
	got, err = s.Get("k")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStorage_Expiration(t *testing.T) {
	mr, rdb := newRedis(t)
	s := NewStorage(rdb, "rl:")

	require.NoError(t, s.Set("k", []byte("1"), time.Second))
	mr.FastForward(2 * time.Second)

	got, err := s.Get("k")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStorage_ResetOnlyOwnPrefix(t *testing.T) {
	mr, rdb := newRedis(t)
	s := NewStorage(rdb, "rl:")

	require.NoError(t, s.Set("a", []byte("1"), 0))
	require.NoError(t, s.Set("b", []byte("2"), 0))
	require.NoError(t, mr.Set("other", "x"))

	require.NoError(t, s.Reset())
	assert.False(t, mr.Exists("rl:a"))
	assert.False(t, mr.Exists("rl:b"))
	assert.True(t, mr.Exists("other"))
}

func TestTenantCache_RoundTripAndTTL(t *testing.T) {
	mr, rdb := newRedis(t)
	c := NewTenantCache(rdb, time.Minute)
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "acme.myshopify.com")
	require.NoError(t, err)
	assert.False(t, ok)

	tn := &entity.Tenant{ID: "t-1", Name: "Acme", ShopDomain: "acme.myshopify.com", Status: "active"}
	require.NoError(t, c.Set(ctx, "acme.myshopify.com", tn))
	assert.Equal(t, time.Minute, mr.TTL("tenant:domain:acme.myshopify.com"))

	got, ok, err := c.Get(ctx, "acme.myshopify.com")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "t-1", got.ID)
	assert.True(t, got.IsActive())

	mr.FastForward(2 * time.Minute)
	_, ok, err = c.Get(ctx, "acme.myshopify.com")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTenantCache_CorruptEntryIsMiss(t *testing.T) {
	mr, rdb := newRedis(t)
	c := NewTenantCache(rdb, time.Minute)
	require.NoError(t, mr.Set("tenant:domain:x.com", "{no json"))

	_, ok, err := c.Get(context.Background(), "x.com")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTenantCache_Invalidate(t *testing.T) {
	_, rdb := newRedis(t)
	c := NewTenantCache(rdb, time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "x.com", &entity.Tenant{ID: "t", Status: "active"}))
	require.NoError(t, c.Invalidate(ctx, "x.com"))
	_, ok, err := c.Get(ctx, "x.com")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTenantCache_RedisDown(t *testing.T) {
	mr, rdb := newRedis(t)
	c := NewTenantCache(rdb, time.Minute)
	mr.Close()

	_, ok, err := c.Get(context.Background(), "x.com")
	assert.Error(t, err)
	assert.False(t, ok)
}

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

func setupTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisCache(client), mr
}

func TestRedisCache_SetThenGet(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, c.SetJSON(ctx, "catalog:top", []item{{"Kanjivaram", 12999}}, time.Minute))
	assert.True(t, mr.Exists("store:catalog:top"))

	var got []item
	found, err := c.GetJSON(ctx, "catalog:top", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []item{{"Kanjivaram", 12999}}, got)
}

func TestRedisCache_Miss(t *testing.T) {
	c, _ := setupTestRedis(t)

	var got []item
	found, err := c.GetJSON(context.Background(), "absent", &got)

	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisCache_TTLExpiry(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()
	require.NoError(t, c.SetJSON(ctx, "k", item{Name: "x"}, time.Minute))

	mr.FastForward(2 * time.Minute)

	var got item
	found, err := c.GetJSON(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisCache_Delete(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()
	require.NoError(t, c.SetJSON(ctx, "a", 1, time.Minute))
	require.NoError(t, c.SetJSON(ctx, "b", 2, time.Minute))

	require.NoError(t, c.Delete(ctx, "a", "b"))
	require.NoError(t, c.Delete(ctx))

	assert.False(t, mr.Exists("store:a"))
	assert.False(t, mr.Exists("store:b"))
}

func TestRedisCache_CorruptValue(t *testing.T) {
	c, mr := setupTestRedis(t)
	require.NoError(t, mr.Set("store:bad", "{not json"))

	var got item
	found, err := c.GetJSON(context.Background(), "bad", &got)

	assert.Error(t, err)
	assert.False(t, found)
}

func TestNoop(t *testing.T) {
	var c Cache = Noop{}
	ctx := context.Background()

	require.NoError(t, c.SetJSON(ctx, "k", 1, time.Minute))
	var v int
	found, err := c.GetJSON(ctx, "k", &v)
	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, c.Delete(ctx, "k"))
}

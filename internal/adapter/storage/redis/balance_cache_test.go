package redis

import (
	"context"
	"testing"
	"time"

	"mobile-money-ledger/internal/core/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBalanceCache_RoundTrip(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	cache := NewBalanceCache(client)
	ctx := context.Background()

	b := &domain.Balance{
		AccountID: uuid.New(),
		Currency:  "HTG",
		Total:     decimal.RequireFromString("1000"),
		Held:      decimal.RequireFromString("300.25"),
		Available: decimal.RequireFromString("699.75"),
	}

	miss, err := cache.Get(ctx, b.AccountID)
	require.NoError(t, err)
	assert.Nil(t, miss)

	stored, err := cache.Set(ctx, b, 0, 30*time.Second)
	require.NoError(t, err)
	assert.True(t, stored)

	got, err := cache.Get(ctx, b.AccountID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, b.AccountID, got.AccountID)
	assert.True(t, b.Total.Equal(got.Total))
	assert.True(t, b.Held.Equal(got.Held))
	assert.True(t, b.Available.Equal(got.Available))
}

func TestBalanceCache_Delete(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	cache := NewBalanceCache(client)
	ctx := context.Background()

	a := &domain.Balance{AccountID: uuid.New()}
	b := &domain.Balance{AccountID: uuid.New()}
	mustSet(t, cache, a, 0, time.Minute)
	mustSet(t, cache, b, 0, time.Minute)

	require.NoError(t, cache.Delete(ctx, a.AccountID, b.AccountID))
	require.NoError(t, cache.Delete(ctx))

	got, err := cache.Get(ctx, a.AccountID)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.False(t, s.Exists("mml:balance:"+b.AccountID.String()))
}

func TestBalanceCache_TTL(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	cache := NewBalanceCache(client)
	ctx := context.Background()

	b := &domain.Balance{AccountID: uuid.New()}
	mustSet(t, cache, b, 0, 5*time.Second)
	s.FastForward(6 * time.Second)

	got, err := cache.Get(ctx, b.AccountID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestBalanceCache_CorruptValue(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	cache := NewBalanceCache(client)

	id := uuid.New()
	require.NoError(t, s.Set("mml:balance:"+id.String(), "not-json"))

	_, err := cache.Get(context.Background(), id)
	assert.Error(t, err)
}

func TestBalanceCache_StaleWriteAfterInvalidateIsDropped(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	cache := NewBalanceCache(client)
	ctx := context.Background()
	id := uuid.New()

	// reader notes the generation and sums the ledger before a commit
	gen, err := cache.Generation(ctx, id)
	require.NoError(t, err)
	assert.Zero(t, gen)
	before := &domain.Balance{AccountID: id, Available: decimal.Zero}

	// writer commits a credit and invalidates
	require.NoError(t, cache.Delete(ctx, id))

	stored, err := cache.Set(ctx, before, gen, time.Minute)
	require.NoError(t, err)
	assert.False(t, stored)
	got, err := cache.Get(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, got, "pre-commit balance must not be cached")

	// a reader that starts after the commit may cache
	gen, err = cache.Generation(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(1), gen)
	after := &domain.Balance{AccountID: id, Available: decimal.RequireFromString("1000")}
	mustSet(t, cache, after, gen, time.Minute)

	got, err = cache.Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Available.Equal(after.Available))
	assert.Greater(t, s.TTL("mml:balance:gen:"+id.String()), time.Duration(0))
}

func TestBalanceCache_ZeroTTLIsNotStored(t *testing.T) {
	s := miniredis.RunT(t)
	cache := NewBalanceCache(goredis.NewClient(&goredis.Options{Addr: s.Addr()}))

	stored, err := cache.Set(context.Background(), &domain.Balance{AccountID: uuid.New()}, 0, 0)
	require.NoError(t, err)
	assert.False(t, stored)
}

func mustSet(t *testing.T, cache *BalanceCache, b *domain.Balance, gen int64, ttl time.Duration) {
	t.Helper()
	stored, err := cache.Set(context.Background(), b, gen, ttl)
	require.NoError(t, err)
	require.True(t, stored)
}

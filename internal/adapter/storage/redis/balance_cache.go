package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"mobile-money-ledger/internal/core/domain"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// generationTTL outlives any balance computation by a wide margin. An expired
// generation reads as 0, which still rejects writers holding a later value.
const generationTTL = 24 * time.Hour

// setIfGeneration stores ARGV[2] at KEYS[2] for ARGV[3] ms when the generation
// counter at KEYS[1] still equals ARGV[1].
var setIfGeneration = goredis.NewScript(`
local gen = redis.call('GET', KEYS[1])
if not gen then gen = '0' end
if gen ~= ARGV[1] then return 0 end
redis.call('SET', KEYS[2], ARGV[2], 'PX', ARGV[3])
return 1
`)

// BalanceCache implements ports.BalanceCache. Entries are a shadow of the
// ledger; every commit touching an account deletes its entry and advances its
// generation, so a balance summed before the commit can no longer be stored.
type BalanceCache struct {
	client goredis.UniversalClient
	prefix string
}

// NewBalanceCache creates a new Redis-backed balance cache.
func NewBalanceCache(client goredis.UniversalClient) *BalanceCache {
	return &BalanceCache{
		client: client,
		prefix: keyPrefix + "balance:",
	}
}

// Get returns the cached balance or nil, nil on miss.
func (c *BalanceCache) Get(ctx context.Context, accountID uuid.UUID) (*domain.Balance, error) {
	raw, err := c.client.Get(ctx, c.key(accountID)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis balance get: %w", err)
	}

	var b domain.Balance
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, fmt.Errorf("decode cached balance: %w", err)
	}
	return &b, nil
}

// Generation returns the account's invalidation counter, 0 when never invalidated.
func (c *BalanceCache) Generation(ctx context.Context, accountID uuid.UUID) (int64, error) {
	gen, err := c.client.Get(ctx, c.generationKey(accountID)).Int64()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("redis balance generation: %w", err)
	}
	return gen, nil
}

// Set caches a balance computed under generation. It reports false without
// writing when the account was invalidated in the meantime.
func (c *BalanceCache) Set(ctx context.Context, b *domain.Balance, generation int64, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		return false, nil
	}
	raw, err := json.Marshal(b)
	if err != nil {
		return false, fmt.Errorf("encode balance: %w", err)
	}
	stored, err := setIfGeneration.Run(ctx, c.client,
		[]string{c.generationKey(b.AccountID), c.key(b.AccountID)},
		generation, raw, ttl.Milliseconds(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("redis balance set: %w", err)
	}
	return stored == 1, nil
}

// Delete evicts the given accounts and advances their generations atomically.
func (c *BalanceCache) Delete(ctx context.Context, accountIDs ...uuid.UUID) error {
	if len(accountIDs) == 0 {
		return nil
	}
	_, err := c.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		for _, id := range accountIDs {
			pipe.Incr(ctx, c.generationKey(id))
			pipe.Expire(ctx, c.generationKey(id), generationTTL)
			pipe.Del(ctx, c.key(id))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis balance delete: %w", err)
	}
	return nil
}

func (c *BalanceCache) key(accountID uuid.UUID) string {
	return c.prefix + accountID.String()
}

func (c *BalanceCache) generationKey(accountID uuid.UUID) string {
	return c.prefix + "gen:" + accountID.String()
}

// Package redis caches immutable account lookups in Redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/bank-ledger-core/internal/domain/account"
	"github.com/go-redis/redis/v8"
)

const accountKeyPrefix = "ledger:account:number:"

// AccountCache implements account.Cache on top of Redis. Accounts never change
// after creation so entries only expire through the TTL.
type AccountCache struct {
	client redis.Cmdable
	ttl    time.Duration
	logger *slog.Logger
}

// NewAccountCache creates a cache storing entries for ttl
func NewAccountCache(logger *slog.Logger, client redis.Cmdable, ttl time.Duration) *AccountCache {
	return &AccountCache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func accountKey(number int64) string {
	return accountKeyPrefix + strconv.FormatInt(number, 10)
}

// Get returns the cached account. Any failure is reported as a miss.
func (c *AccountCache) Get(ctx context.Context, number int64) (*account.Account, bool) {
	raw, err := c.client.Get(ctx, accountKey(number)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("Account cache read failed", "number", number, "error", err)
		}
		return nil, false
	}

	var acc account.Account
	if err := json.Unmarshal([]byte(raw), &acc); err != nil {
		c.logger.Warn("Dropping undecodable account cache entry", "number", number, "error", err)
		_ = c.client.Del(ctx, accountKey(number)).Err()
		return nil, false
	}

	return &acc, true
}

// Set stores the account. Failures are logged and ignored.
func (c *AccountCache) Set(ctx context.Context, acc *account.Account) {
	payload, err := json.Marshal(acc)
	if err != nil {
		c.logger.Warn("Failed to encode account for cache", "number", acc.Number, "error", err)
		return
	}

	if err := c.client.Set(ctx, accountKey(acc.Number), string(payload), c.ttl).Err(); err != nil {
		c.logger.Warn("Account cache write failed", "number", acc.Number, "error", err)
	}
}

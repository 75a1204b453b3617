package redisx

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

type Options struct {
	Addr     string
	Password string
	DB       int
}

func New(o Options) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         o.Addr,
		Password:     o.Password,
		DB:           o.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

func Exists(ctx context.Context, rdb redis.Cmdable, key string) (bool, error) {
	n, err := rdb.Exists(ctx, key).Result()
	return n > 0, err
}

// Claim sets key only if absent. It reports whether this caller won.
func Claim(ctx context.Context, rdb redis.Cmdable, key string, ttl time.Duration) (bool, error) {
	return rdb.SetNX(ctx, key, "1", ttl).Result()
}

// IdempotencyCache is the Redis fast path in front of orders.external_id.
// Keys belong to one user; the same key from another user never matches.
type IdempotencyCache struct {
	RDB redis.Cmdable
	TTL time.Duration
}

func (c *IdempotencyCache) Lookup(ctx context.Context, userID int64, key string) (string, bool, error) {
	v, err := c.RDB.Get(ctx, IdemOrderKey(userID, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (c *IdempotencyCache) Remember(ctx context.Context, userID int64, key, orderID string) error {
	ttl := c.TTL
	if ttl <= 0 {
		ttl = TTLIdempotency
	}
	return c.RDB.Set(ctx, IdemOrderKey(userID, key), orderID, ttl).Err()
}

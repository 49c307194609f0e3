package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "wadash:msg:"

type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: ttl}
}

// Dial connects to addr and verifies the server answers.
func Dial(ctx context.Context, addr, password string, db int, ttl time.Duration) (*RedisCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to reach redis at %s: %w", addr, err)
	}
	return NewRedisCache(rdb, ttl), nil
}

type sentValue struct {
	Phone  string    `json:"phone"`
	SentAt time.Time `json:"sentAt"`
}

func key(id int64) string {
	return fmt.Sprintf("%s%d", keyPrefix, id)
}

func (c *RedisCache) StoreSent(ctx context.Context, id int64, phone string, sentAt time.Time) error {
	val := sentValue{
		Phone:  phone,
		SentAt: sentAt.UTC(),
	}

	b, err := json.Marshal(val)
	if err != nil {
		return err
	}

	return c.rdb.Set(ctx, key(id), b, c.ttl).Err()
}

// Close releases the underlying client.
func (c *RedisCache) Close() error {
	return c.rdb.Close()
}

var _ MessageCache = (*RedisCache)(nil)

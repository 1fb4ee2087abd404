package redisclient

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func batchKey(batchID int64) string {
	return fmt.Sprintf("batch:%d:available", batchID)
}

// SetBatchAvailability caches the remaining quantity of a batch. The
// database row stays the source of truth; the cache only feeds storefront
// reads and expires on its own.
func (c *Client) SetBatchAvailability(ctx context.Context, batchID int64, quantity int, ttl time.Duration) error {
	return c.rdb.Set(ctx, batchKey(batchID), quantity, ttl).Err()
}

// GetBatchAvailability reads a cached batch quantity. The second return is
// false on a cache miss.
func (c *Client) GetBatchAvailability(ctx context.Context, batchID int64) (int, bool, error) {
	val, err := c.rdb.Get(ctx, batchKey(batchID)).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}

	quantity, err := strconv.Atoi(val)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt availability entry for batch %d: %w", batchID, err)
	}
	return quantity, true, nil
}

// InvalidateBatch drops the cached quantity after a reservation commits
func (c *Client) InvalidateBatch(ctx context.Context, batchID int64) error {
	return c.rdb.Del(ctx, batchKey(batchID)).Err()
}

// SetIdempotencyKey stores an idempotency key with TTL
func (c *Client) SetIdempotencyKey(ctx context.Context, key string, orderID int64, ttl time.Duration) error {
	return c.rdb.Set(ctx, fmt.Sprintf("idempotency:%s", key), orderID, ttl).Err()
}

// CheckIdempotencyKey looks up the order recorded for an idempotency key.
// The second return is false when the key is unknown.
func (c *Client) CheckIdempotencyKey(ctx context.Context, key string) (int64, bool, error) {
	val, err := c.rdb.Get(ctx, fmt.Sprintf("idempotency:%s", key)).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}

	orderID, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt idempotency entry %s: %w", key, err)
	}
	return orderID, true, nil
}

// Package redis provides the per-account tick lock and the hot cache the
// gateway reads (latest price and analysis snapshot per account).
package redis

import (
	"context"
	"fmt"
	"log"
	"time"

	goredis "github.com/go-redis/redis/v8"
)

// Config configures the Redis client.
type Config struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int
}

// Client wraps the Redis connection used for locking and caching.
type Client struct {
	client *goredis.Client
}

// Redis returns the underlying client for health checks.
func (c *Client) Redis() *goredis.Client { return c.client }

// New creates a Client and pings the server.
func New(cfg Config) (*Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Printf("[redis] connected to %s", cfg.Addr)
	return &Client{client: client}, nil
}

// Close releases the connection pool.
func (c *Client) Close() error {
	return c.client.Close()
}

func lockKey(accountID int64) string {
	return fmt.Sprintf("lock:tick:%d", accountID)
}

// Acquire takes the per-account tick lock with SET NX PX. ok is false when
// another tick currently holds it. The returned release deletes the key;
// the TTL bounds the damage if a holder dies without releasing.
func (c *Client) Acquire(ctx context.Context, accountID int64, ttl time.Duration) (func(), bool, error) {
	key := lockKey(accountID)
	ok, err := c.client.SetNX(ctx, key, time.Now().UnixNano(), ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("redis setnx %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}
	release := func() {
		rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := c.client.Del(rctx, key).Err(); err != nil {
			log.Printf("[redis] release %s: %v (ttl will expire it)", key, err)
		}
	}
	return release, true, nil
}

const cacheTTL = 10 * time.Minute

// SetSnapshot caches the latest tick snapshot JSON for an account.
func (c *Client) SetSnapshot(ctx context.Context, accountID int64, data []byte) error {
	key := fmt.Sprintf("snapshot:%d", accountID)
	if err := c.client.Set(ctx, key, data, cacheTTL).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// GetSnapshot returns the cached tick snapshot, or nil when absent/expired.
func (c *Client) GetSnapshot(ctx context.Context, accountID int64) ([]byte, error) {
	key := fmt.Sprintf("snapshot:%d", accountID)
	data, err := c.client.Get(ctx, key).Bytes()
	if err == goredis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return data, nil
}

// SetPrice caches the latest fetched price for a symbol.
func (c *Client) SetPrice(ctx context.Context, symbol string, price float64) error {
	key := "price:" + symbol
	if err := c.client.Set(ctx, key, price, cacheTTL).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// GetPrice returns the cached price; ok is false when absent or expired.
func (c *Client) GetPrice(ctx context.Context, symbol string) (float64, bool, error) {
	key := "price:" + symbol
	price, err := c.client.Get(ctx, key).Float64()
	if err == goredis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return price, true, nil
}

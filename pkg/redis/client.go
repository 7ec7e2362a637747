// Package redis wraps go-redis for the pieces of the linking core that need a
// shared Redis: distributed pair locks held while subjects are merged.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/redis/go-redis/v9"
)

// Config holds Redis connection configuration
type Config struct {
	Host     string
	Port     int
	Password string
	DB       int
	// KeyPrefix namespaces every key written by this service
	KeyPrefix string
}

// Client wraps the Redis client with logging
type Client struct {
	rdb    redis.UniversalClient
	logger ectologger.Logger
	prefix string
}

// NewClient connects to Redis and verifies the connection with a ping
func NewClient(ctx context.Context, cfg Config, logger ectologger.Logger) (*Client, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}

	logger.WithContext(ctx).Infof("Connected to Redis at %s", addr)

	return NewClientFromRedis(rdb, cfg.KeyPrefix, logger), nil
}

// NewClientFromRedis wraps an existing go-redis client
func NewClientFromRedis(rdb redis.UniversalClient, prefix string, logger ectologger.Logger) *Client {
	if prefix == "" {
		prefix = "thistle:"
	}
	return &Client{rdb: rdb, logger: logger, prefix: prefix}
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping checks if Redis is reachable
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *Client) key(parts ...string) string {
	key := c.prefix
	for i, p := range parts {
		if i > 0 {
			key += ":"
		}
		key += p
	}
	return key
}

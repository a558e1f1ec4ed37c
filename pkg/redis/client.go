package redis

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jorge-redcloud/demand-planning/pkg/config"
)

// PingTimeout bounds the connection check in New and Ping
const PingTimeout = 3 * time.Second

// Client wraps the API read cache connection.
// A disabled client has no connection; Cache treats it as a pass-through.
// ⭐ SSOT: Redis 연결은 여기서만 관리
type Client struct {
	rdb     *redis.Client
	addr    string
	enabled bool
}

// New connects to Redis when REDIS_ENABLED is set.
// The ping is bounded by ctx and PingTimeout, whichever ends first.
func New(ctx context.Context, cfg *config.Config) (*Client, error) {
	if !cfg.Redis.Enabled {
		return &Client{enabled: false}, nil
	}

	addr := net.JoinHostPort(cfg.Redis.Host, cfg.Redis.Port)
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		DialTimeout:  PingTimeout,
		ReadTimeout:  PingTimeout,
		WriteTimeout: PingTimeout,
	})

	c := &Client{rdb: rdb, addr: addr, enabled: true}
	if err := c.Ping(ctx); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return c, nil
}

// Ping checks the connection; a disabled client is always healthy
func (c *Client) Ping(ctx context.Context) error {
	if !c.enabled {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, PingTimeout)
	defer cancel()

	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis %s unreachable: %w", c.addr, err)
	}
	return nil
}

// Close closes the Redis connection
func (c *Client) Close() error {
	if c.rdb != nil {
		return c.rdb.Close()
	}
	return nil
}

// Enabled returns whether Redis is enabled
func (c *Client) Enabled() bool {
	return c.enabled
}

// Addr returns host:port, empty when disabled
func (c *Client) Addr() string {
	return c.addr
}

// Redis returns the underlying redis client for advanced usage
func (c *Client) Redis() *redis.Client {
	return c.rdb
}

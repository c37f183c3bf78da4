// Package redisclient owns the shared redis connection; the distributed
// rate limiter is its only consumer.
package redisclient

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

type Client struct {
	rdb *redis.Client
}

type Config struct {
	// host:port, or a redis:// / rediss:// URL carrying its own credentials
	Addr     string
	Password string
	DB       int
}

func New(cfg Config) (*Client, error) {
	opts := &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}

	if strings.Contains(cfg.Addr, "://") {
		parsed, err := redis.ParseURL(cfg.Addr)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		opts = parsed
	}

	// the limiter fails open, so slow redis must not stall a login
	opts.DialTimeout = 2 * time.Second
	opts.ReadTimeout = 500 * time.Millisecond
	opts.WriteTimeout = 500 * time.Millisecond

	return &Client{rdb: redis.NewClient(opts)}, nil
}

// Ping checks connectivity; used at startup and by /readyz.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

// Cmdable exposes the client to the rate limiter's pipelines.
func (c *Client) Cmdable() redis.Cmdable {
	return c.rdb
}

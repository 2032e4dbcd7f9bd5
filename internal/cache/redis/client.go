// Package redis holds the Redis-backed holders cache and API rate limiter.
// Every key they write lives under one namespace so several deployments can
// share a Redis database.
package redis

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces keys when ClientConfig.KeyPrefix is empty.
const DefaultKeyPrefix = "predik:"

// ClientConfig holds connection parameters for the Redis client.
type ClientConfig struct {
	Addr       string
	Password   string
	DB         int
	PoolSize   int
	MaxRetries int
	TLSEnabled bool
	// KeyPrefix is prepended to every key. A trailing ":" is added if
	// missing.
	KeyPrefix string
}

// Client is a go-redis connection plus the key namespace of this service.
type Client struct {
	rdb    *redis.Client
	prefix string
}

// New dials Redis and verifies the connection with a PING.
func New(ctx context.Context, cfg ClientConfig) (*Client, error) {
	rdb := redis.NewClient(cfg.options())
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", cfg.Addr, err)
	}
	return NewFromConn(rdb, cfg.KeyPrefix), nil
}

// NewFromConn wraps an existing connection. Tests use it with miniredis.
func NewFromConn(rdb *redis.Client, prefix string) *Client {
	return &Client{rdb: rdb, prefix: normalizePrefix(prefix)}
}

func (cfg ClientConfig) options() *redis.Options {
	opts := &redis.Options{
		Addr:       cfg.Addr,
		Password:   cfg.Password,
		DB:         cfg.DB,
		PoolSize:   cfg.PoolSize,
		MaxRetries: cfg.MaxRetries,
	}
	if cfg.TLSEnabled {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return opts
}

func normalizePrefix(p string) string {
	if p == "" {
		return DefaultKeyPrefix
	}
	if !strings.HasSuffix(p, ":") {
		p += ":"
	}
	return p
}

// key joins parts under the client's namespace, e.g. "predik:holders:slug".
func (c *Client) key(parts ...string) string {
	return c.prefix + strings.Join(parts, ":")
}

// Ping implements the health check.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: ping: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (c *Client) Close() error {
	return c.rdb.Close()
}

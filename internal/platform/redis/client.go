// Package redis dials the Redis backing the token revocation list. Whether
// Redis is used at all is a deployment choice carried in the config URL.
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"btoflow/internal/platform/config"
)

// Connect dials Redis per cfg and verifies the connection with a ping before
// handing it out. An empty URL means Redis is not configured; Connect then
// returns nil and the caller falls back to in-process revocation.
func Connect(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("redis url: %w", err)
	}
	tune(opts, cfg)

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("dial redis: %w", err)
	}
	return client, nil
}

// tune overlays the pool and timeout settings the URL form cannot carry.
func tune(opts *redis.Options, cfg config.RedisConfig) {
	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns
	opts.DialTimeout = cfg.DialTimeout
	opts.ReadTimeout = cfg.ReadTimeout
	opts.WriteTimeout = cfg.WriteTimeout
}

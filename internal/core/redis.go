// AngelaMos | 2026
// redis.go

package core

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nexxstore/storefront/internal/config"
)

// Redis backs sealed session storage and the login rate limiter.
type Redis struct {
	Client  *redis.Client
	timeout time.Duration
}

// NewRedis returns nil without error when no URL is configured; Redis is
// optional for file-backed session storage.
func NewRedis(
	ctx context.Context,
	cfg config.RedisConfig,
	service string,
) (*Redis, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	opts, err := redisOptions(cfg, service)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	r := &Redis{Client: client, timeout: cfg.ConnectTimeout}
	if err := r.Ping(ctx); err != nil {
		_ = client.Close() //nolint:errcheck // connection never became usable
		return nil, err
	}
	return r, nil
}

// redisOptions applies pool settings from config on top of the URL. A
// client_name in the URL wins over service.
func redisOptions(cfg config.RedisConfig, service string) (*redis.Options, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	if opts.ClientName == "" {
		opts.ClientName = service
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	opts.MinIdleConns = cfg.MinIdleConns
	if cfg.PoolTimeout > 0 {
		opts.PoolTimeout = cfg.PoolTimeout
	}
	if cfg.ConnMaxIdleTime > 0 {
		opts.ConnMaxIdleTime = cfg.ConnMaxIdleTime
	}
	if cfg.ConnectTimeout > 0 {
		opts.DialTimeout = cfg.ConnectTimeout
	}
	return opts, nil
}

func (r *Redis) Close() error {
	if r == nil || r.Client == nil {
		return nil
	}
	return r.Client.Close()
}

// Ping backs the readiness check for session storage.
func (r *Redis) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.Client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("session redis unreachable: %w", err)
	}
	return nil
}

func (r *Redis) PoolStats() *redis.PoolStats {
	return r.Client.PoolStats()
}

// AngelaMos | 2026
// redis_test.go

package core

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/nexxstore/storefront/internal/config"
)

func TestNewRedis(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	cfg := config.RedisConfig{
		URL:            "redis://" + mr.Addr(),
		PoolSize:       4,
		PoolTimeout:    2 * time.Second,
		ConnectTimeout: time.Second,
	}

	r, err := NewRedis(context.Background(), cfg, "storefront")
	if err != nil {
		t.Fatalf("NewRedis: %v", err)
	}
	t.Cleanup(func() { _ = r.Close() })

	name, err := r.Client.ClientGetName(context.Background()).Result()
	if err != nil {
		t.Fatalf("ClientGetName: %v", err)
	}
	if name != "storefront" {
		t.Errorf("client name: got %q, want %q", name, "storefront")
	}
	if opts := r.Client.Options(); opts.PoolSize != 4 || opts.PoolTimeout != 2*time.Second {
		t.Errorf("pool: got size %d timeout %v", opts.PoolSize, opts.PoolTimeout)
	}

	mr.Close()
	if err := r.Ping(context.Background()); err == nil {
		t.Error("Ping succeeded against a stopped server")
	}
}

func TestNewRedisDisabled(t *testing.T) {
	t.Parallel()

	r, err := NewRedis(context.Background(), config.RedisConfig{}, "storefront")
	if err != nil || r != nil {
		t.Fatalf("got %v, %v; want nil, nil", r, err)
	}
	if err := r.Close(); err != nil {
		t.Errorf("Close on nil: %v", err)
	}
}

func TestRedisOptionsKeepURLName(t *testing.T) {
	t.Parallel()

	opts, err := redisOptions(config.RedisConfig{
		URL: "redis://localhost:6379/2?client_name=worker",
	}, "storefront")
	if err != nil {
		t.Fatalf("redisOptions: %v", err)
	}
	if opts.ClientName != "worker" || opts.DB != 2 {
		t.Errorf("got name %q db %d", opts.ClientName, opts.DB)
	}

	if _, err := redisOptions(config.RedisConfig{URL: "http://nope"}, "storefront"); err == nil {
		t.Error("expected error for non-redis scheme")
	}
}

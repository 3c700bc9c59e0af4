package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ClientConfig holds the connection settings not carried by the URL.
type ClientConfig struct {
	URL         string
	PoolSize    int           // 0 keeps the driver default
	PingTimeout time.Duration // defaults to 5s
}

// NewClient creates a Redis client and verifies the connection.
func NewClient(ctx context.Context, cfg ClientConfig) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}

	client := redis.NewClient(opts)

	if err := Ping(ctx, client, cfg.PingTimeout); err != nil {
		client.Close()
		return nil, err
	}

	return client, nil
}

// Ping checks that the server answers within timeout. It backs the
// readiness probe.
func Ping(ctx context.Context, client redis.UniversalClient, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}

	return nil
}

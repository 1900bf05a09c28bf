package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// ClientConfig holds connection settings for the Redis backend.
type ClientConfig struct {
	// Addr is the host:port of the Redis server.
	Addr string

	// Password is optional.
	Password string

	// DB selects the logical database.
	DB int

	// DialTimeoutSeconds bounds connection establishment and the startup ping.
	// Default: 5
	DialTimeoutSeconds int32

	// PoolSize is the maximum number of socket connections.
	// Default: 10
	PoolSize int
}

// Validate checks that the configuration is valid.
func (c *ClientConfig) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("redis address is required")
	}
	if c.DB < 0 {
		return fmt.Errorf("redis db must not be negative")
	}
	return nil
}

// ApplyDefaults applies default values to unset configuration fields.
func (c *ClientConfig) ApplyDefaults() {
	if c.DialTimeoutSeconds == 0 {
		c.DialTimeoutSeconds = 5
	}
	if c.PoolSize == 0 {
		c.PoolSize = 10
	}
}

// NewClient creates a Redis client and pings it to verify connectivity.
func NewClient(ctx context.Context, cfg *ClientConfig) (*goredis.Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("client config is required")
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid redis config: %w", err)
	}

	dialTimeout := time.Duration(cfg.DialTimeoutSeconds) * time.Second

	client := goredis.NewClient(&goredis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: dialTimeout,
		PoolSize:    cfg.PoolSize,
	})

	pingCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	log.Info().
		Str("addr", cfg.Addr).
		Int("db", cfg.DB).
		Msg("Connected to Redis")

	return client, nil
}

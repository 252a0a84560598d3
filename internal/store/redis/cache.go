package redis

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	goredis "github.com/go-redis/redis/v8"
)

const (
	defaultPrefix       = "chart:"
	defaultMaxFailures  = 3
	defaultResetTimeout = 30 * time.Second
)

// CacheConfig configures the Redis chart cache.
type CacheConfig struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int
	Prefix   string // key prefix, default "chart:"

	// Circuit breaker: after MaxFailures consecutive errors the cache is
	// bypassed for ResetTimeout.
	MaxFailures  int
	ResetTimeout time.Duration
}

// Cache stores encoded enriched chart series under "{prefix}{key}" and
// announces fresh entries on "pub:{prefix}{key}".
// All calls go through a circuit breaker so an unavailable Redis costs one
// fast rejection instead of a network timeout per request.
type Cache struct {
	client *goredis.Client
	prefix string
	cb     *CircuitBreaker
}

// NewCache connects to Redis and pings the server.
func NewCache(cfg CacheConfig) (*Cache, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Printf("[redis] connected to %s", cfg.Addr)
	return newCache(client, cfg), nil
}

func newCache(client *goredis.Client, cfg CacheConfig) *Cache {
	if cfg.Prefix == "" {
		cfg.Prefix = defaultPrefix
	}
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = defaultMaxFailures
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = defaultResetTimeout
	}
	cb := NewCircuitBreaker(cfg.MaxFailures, cfg.ResetTimeout)
	cb.OnStateChange = func(from, to State) {
		log.Printf("[redis] circuit breaker %s -> %s", from, to)
	}
	return &Cache{client: client, prefix: cfg.Prefix, cb: cb}
}

// Client returns the underlying Redis client for health checks.
func (c *Cache) Client() *goredis.Client { return c.client }

// Breaker exposes the circuit breaker so callers can observe its state.
func (c *Cache) Breaker() *CircuitBreaker { return c.cb }

// Get returns the cached payload for key. A miss is (nil, false, nil).
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var data []byte
	err := c.cb.Execute(func() error {
		b, err := c.client.Get(ctx, c.prefix+key).Bytes()
		if errors.Is(err, goredis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}
		data = b
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("redis GET %s: %w", key, err)
	}
	return data, data != nil, nil
}

// Set stores data with ttl and publishes it to subscribers in one pipeline.
func (c *Cache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	err := c.cb.Execute(func() error {
		pipe := c.client.Pipeline()
		pipe.Set(ctx, c.prefix+key, data, ttl)
		pipe.Publish(ctx, "pub:"+c.prefix+key, data)
		_, err := pipe.Exec(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("redis SET %s: %w", key, err)
	}
	return nil
}

// Close releases the client.
func (c *Cache) Close() error {
	return c.client.Close()
}

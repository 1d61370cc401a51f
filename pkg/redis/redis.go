package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ShaneJP-Dev/event-ticket-scanner/pkg/config"
	"github.com/ShaneJP-Dev/event-ticket-scanner/pkg/retry"
)

// Config holds Redis connection configuration
type Config struct {
	Host         string
	Port         int
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Retry configuration
	MaxRetries    int
	RetryInterval time.Duration
}

// DefaultConfig returns default Redis configuration
func DefaultConfig() *Config {
	return &Config{
		Host:          "localhost",
		Port:          6379,
		Password:      "",
		DB:            0,
		PoolSize:      50,
		MinIdleConns:  5,
		DialTimeout:   5 * time.Second,
		ReadTimeout:   3 * time.Second,
		WriteTimeout:  3 * time.Second,
		MaxRetries:    3,
		RetryInterval: time.Second,
	}
}

// ConfigFrom maps the application Redis settings onto a client config
func ConfigFrom(r config.RedisConfig) *Config {
	cfg := DefaultConfig()
	cfg.Host = r.Host
	cfg.Port = r.Port
	cfg.Password = r.Password
	cfg.DB = r.DB
	if r.PoolSize > 0 {
		cfg.PoolSize = r.PoolSize
	}
	if r.MinIdleConns > 0 {
		cfg.MinIdleConns = r.MinIdleConns
	}
	if r.DialTimeout > 0 {
		cfg.DialTimeout = r.DialTimeout
	}
	if r.ReadTimeout > 0 {
		cfg.ReadTimeout = r.ReadTimeout
	}
	if r.WriteTimeout > 0 {
		cfg.WriteTimeout = r.WriteTimeout
	}
	return cfg
}

// Addr returns the Redis address
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Client is the Redis connection shared by the event cache, the activity
// feed and idempotency keys
type Client struct {
	client  *redis.Client
	scripts sync.Map // name -> *redis.Script
}

// NewClient dials Redis and pings it until it answers, retrying up to
// cfg.MaxRetries times
func NewClient(ctx context.Context, cfg *Config) (*Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	result := retry.Do(ctx, &retry.Config{
		MaxRetries:      cfg.MaxRetries,
		InitialInterval: cfg.RetryInterval,
		MaxInterval:     cfg.RetryInterval,
		Multiplier:      1,
	}, func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})
	if result.Err != nil {
		rdb.Close()
		if errors.Is(result.Err, retry.ErrContextCanceled) {
			return nil, fmt.Errorf("connecting to redis: %w", ctx.Err())
		}
		return nil, fmt.Errorf("failed to connect to redis after %d attempts: %w", result.Attempts, result.LastError)
	}

	return &Client{client: rdb}, nil
}

// Ping checks if Redis connection is alive
func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.client.Close()
}

// script returns the registered script for name, creating it on first use
func (c *Client) script(name, src string) *redis.Script {
	if s, ok := c.scripts.Load(name); ok {
		return s.(*redis.Script)
	}
	s, _ := c.scripts.LoadOrStore(name, redis.NewScript(src))
	return s.(*redis.Script)
}

// EvalWithFallback runs a Lua script by SHA and falls back to EVAL when
// the server's script cache does not have it (after a restart or FLUSH)
func (c *Client) EvalWithFallback(ctx context.Context, name, script string, keys []string, args ...interface{}) *redis.Cmd {
	return c.script(name, script).Run(ctx, c.client, keys, args...)
}

// Get gets a value by key
func (c *Client) Get(ctx context.Context, key string) *redis.StringCmd {
	return c.client.Get(ctx, key)
}

// Set sets a value with optional expiration
func (c *Client) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	return c.client.Set(ctx, key, value, expiration)
}

// SetNX sets a value only if key doesn't exist
func (c *Client) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd {
	return c.client.SetNX(ctx, key, value, expiration)
}

// Del deletes keys
func (c *Client) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	return c.client.Del(ctx, keys...)
}

// LRange gets a range from a list
func (c *Client) LRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd {
	return c.client.LRange(ctx, key, start, stop)
}

// IsNil reports whether err is the redis "key does not exist" reply
func IsNil(err error) bool {
	return errors.Is(err, redis.Nil)
}

// Package redis is the storefront's Redis access: access sessions, reset
// tokens, blob carts, local device stores, auth throttles and idempotent
// replays all live under the "sf:" namespace.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cyglobaltech/storefront-backend/pkg/config"
	"github.com/cyglobaltech/storefront-backend/pkg/logger"
)

// ErrNil is returned by reads against missing keys or hash fields.
var ErrNil = redis.Nil

var errNotConnected = errors.New("redis client not initialized")

// IsNil reports whether err means the key or field was absent.
func IsNil(err error) bool {
	return errors.Is(err, redis.Nil)
}

// cmdable is the slice of go-redis the storefront uses.
type cmdable interface {
	Ping(context.Context) *redis.StatusCmd
	Set(context.Context, string, any, time.Duration) *redis.StatusCmd
	Get(context.Context, string) *redis.StringCmd
	SetNX(context.Context, string, any, time.Duration) *redis.BoolCmd
	Incr(context.Context, string) *redis.IntCmd
	Expire(context.Context, string, time.Duration) *redis.BoolCmd
	Del(context.Context, ...string) *redis.IntCmd
	HSetNX(context.Context, string, string, any) *redis.BoolCmd
	HGet(context.Context, string, string) *redis.StringCmd
	HLen(context.Context, string) *redis.IntCmd
}

type Client struct {
	store cmdable
	conn  *redis.Client
}

// New connects with the configured pool and timeouts and pings once.
func New(ctx context.Context, cfg config.RedisConfig, logg *logger.Logger) (*Client, error) {
	opts, err := optionsFor(cfg)
	if err != nil {
		return nil, err
	}
	conn := redis.NewClient(opts)
	if err := conn.Ping(ctx).Err(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", opts.Addr, err)
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "redis_db", opts.DB), "redis.connected")
	}
	return &Client{store: conn, conn: conn}, nil
}

// optionsFor prefers the URL; pool and timeout settings from config fill in
// whatever the URL leaves unset.
func optionsFor(cfg config.RedisConfig) (*redis.Options, error) {
	var opts *redis.Options
	switch {
	case cfg.URL != "":
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		opts = parsed
	case cfg.Address != "":
		opts = &redis.Options{Addr: cfg.Address, Password: cfg.Password}
	default:
		return nil, errors.New("redis url or address is required")
	}

	fill := func(dst *int, v int) {
		if *dst == 0 {
			*dst = v
		}
	}
	fillDur := func(dst *time.Duration, v time.Duration) {
		if *dst == 0 {
			*dst = v
		}
	}
	fill(&opts.DB, cfg.DB)
	fill(&opts.PoolSize, cfg.PoolSize)
	fill(&opts.MinIdleConns, cfg.MinIdleConns)
	fillDur(&opts.DialTimeout, cfg.DialTimeout)
	fillDur(&opts.ReadTimeout, cfg.ReadTimeout)
	fillDur(&opts.WriteTimeout, cfg.WriteTimeout)
	return opts, nil
}

func (c *Client) ready() error {
	if c == nil || c.store == nil {
		return errNotConnected
	}
	return nil
}

func (c *Client) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if err := c.ready(); err != nil {
		return err
	}
	return c.store.Set(ctx, key, value, ttl).Err()
}

// Get returns ErrNil for a missing key.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	if err := c.ready(); err != nil {
		return "", err
	}
	return c.store.Get(ctx, key).Result()
}

// SetNX writes only when key is absent and reports whether it wrote.
func (c *Client) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if err := c.ready(); err != nil {
		return false, err
	}
	return c.store.SetNX(ctx, key, value, ttl).Result()
}

func (c *Client) Del(ctx context.Context, keys ...string) error {
	if err := c.ready(); err != nil {
		return err
	}
	return c.store.Del(ctx, keys...).Err()
}

// HSetNX adds a hash field only when it does not exist yet.
func (c *Client) HSetNX(ctx context.Context, key, field string, value any) (bool, error) {
	if err := c.ready(); err != nil {
		return false, err
	}
	return c.store.HSetNX(ctx, key, field, value).Result()
}

// HGet returns ErrNil when the field is absent.
func (c *Client) HGet(ctx context.Context, key, field string) (string, error) {
	if err := c.ready(); err != nil {
		return "", err
	}
	return c.store.HGet(ctx, key, field).Result()
}

func (c *Client) HLen(ctx context.Context, key string) (int64, error) {
	if err := c.ready(); err != nil {
		return 0, err
	}
	return c.store.HLen(ctx, key).Result()
}

// FixedWindowAllow counts one attempt against scope. The window starts at
// the first attempt and the counter expires with it.
func (c *Client) FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error) {
	if err := c.ready(); err != nil {
		return false, 0, err
	}
	key := c.RateLimitKey(scope)
	attempts, err := c.store.Incr(ctx, key).Result()
	if err != nil {
		return false, 0, err
	}
	if attempts == 1 && window > 0 {
		if err := c.store.Expire(ctx, key, window).Err(); err != nil {
			// A counter without a TTL would throttle forever.
			_ = c.store.Del(ctx, key).Err()
			return false, attempts, err
		}
	}
	return attempts <= limit, attempts, nil
}

func (c *Client) Ping(ctx context.Context) error {
	if err := c.ready(); err != nil {
		return err
	}
	return c.store.Ping(ctx).Err()
}

func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"pos/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DashboardCache caches rendered dashboard responses. Misses and backend
// failures look the same to callers.
type DashboardCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte)
	Invalidate(ctx context.Context)
}

// NoopCache never stores anything
type NoopCache struct{}

func (NoopCache) Get(context.Context, string) ([]byte, bool) { return nil, false }
func (NoopCache) Set(context.Context, string, []byte)        {}
func (NoopCache) Invalidate(context.Context)                 {}

// RedisDashboardCache keys entries by a generation counter; Invalidate bumps
// the counter so older entries are never read again and expire by TTL.
type RedisDashboardCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
	log    *zap.Logger
}

// NewRedisDashboardCache connects to redis and pings it
func NewRedisDashboardCache(ctx context.Context, cfg *config.RedisConfig, log *zap.Logger) (*RedisDashboardCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return newRedisDashboardCache(client, cfg.TTL, log), nil
}

func newRedisDashboardCache(client *redis.Client, ttl time.Duration, log *zap.Logger) *RedisDashboardCache {
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisDashboardCache{client: client, ttl: ttl, prefix: "pos:dashboard:", log: log}
}

// Close closes the redis client
func (c *RedisDashboardCache) Close() error {
	return c.client.Close()
}

func (c *RedisDashboardCache) generation(ctx context.Context) (string, error) {
	gen, err := c.client.Get(ctx, c.prefix+"gen").Result()
	if errors.Is(err, redis.Nil) {
		return "0", nil
	}
	return gen, err
}

func (c *RedisDashboardCache) Get(ctx context.Context, key string) ([]byte, bool) {
	gen, err := c.generation(ctx)
	if err != nil {
		c.log.Debug("dashboard cache unavailable", zap.Error(err))
		return nil, false
	}
	val, err := c.client.Get(ctx, c.prefix+gen+":"+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Debug("dashboard cache read failed", zap.Error(err))
		}
		return nil, false
	}
	return val, true
}

func (c *RedisDashboardCache) Set(ctx context.Context, key string, value []byte) {
	gen, err := c.generation(ctx)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, c.prefix+gen+":"+key, value, c.ttl).Err(); err != nil {
		c.log.Debug("dashboard cache write failed", zap.Error(err))
	}
}

func (c *RedisDashboardCache) Invalidate(ctx context.Context) {
	if err := c.client.Incr(ctx, c.prefix+"gen").Err(); err != nil {
		c.log.Warn("dashboard cache invalidation failed", zap.Error(err))
	}
}

// CacheKey builds a cache key from ordered parts
func CacheKey(parts ...string) string {
	key := ""
	for i, p := range parts {
		if i > 0 {
			key += "|"
		}
		key += strconv.Quote(p)
	}
	return key
}

package redis

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/turtacn/TradeLink-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/TradeLink-Intelligence/pkg/errors"
)

var (
	ErrCacheMiss           = errors.New(errors.ErrCodeNotFound, "cache miss")
	ErrSerializationFailed = errors.New(errors.ErrCodeSerialization, "cache serialization failed")
)

const nullMarker = "__null__"

// Cache is a JSON read-through cache with stampede protection.
type Cache struct {
	client       *Client
	logger       logging.Logger
	defaultTTL   time.Duration
	nullCacheTTL time.Duration
	jitter       float64
	onAccess     func(hit bool)
	group        singleflight.Group
}

type CacheOption func(*Cache)

// WithDefaultTTL applies when a caller passes ttl 0.
func WithDefaultTTL(ttl time.Duration) CacheOption {
	return func(c *Cache) { c.defaultTTL = ttl }
}

// WithNullCacheTTL sets how long a nil loader result is remembered.
func WithNullCacheTTL(ttl time.Duration) CacheOption {
	return func(c *Cache) { c.nullCacheTTL = ttl }
}

// WithJitter spreads expirations by up to ±fraction of the TTL.
func WithJitter(fraction float64) CacheOption {
	return func(c *Cache) { c.jitter = fraction }
}

// WithAccessObserver is told whether each GetOrSet was served from Redis.
func WithAccessObserver(fn func(hit bool)) CacheOption {
	return func(c *Cache) { c.onAccess = fn }
}

func NewCache(client *Client, log logging.Logger, opts ...CacheOption) *Cache {
	if log == nil {
		log = logging.NewNopLogger()
	}
	c := &Cache{
		client:       client,
		logger:       log.Named("cache"),
		defaultTTL:   15 * time.Minute,
		nullCacheTTL: 30 * time.Second,
		jitter:       0.1,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) ttl(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	if c.jitter <= 0 {
		return ttl
	}
	return ttl + time.Duration(float64(ttl)*c.jitter*(rand.Float64()*2-1))
}

// Get decodes the cached value into dest or returns ErrCacheMiss.
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) error {
	data, err := c.client.rdb.Get(ctx, c.client.Key(key)).Bytes()
	if stderrors.Is(err, redis.Nil) {
		return ErrCacheMiss
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "cache get failed")
	}
	if string(data) == nullMarker {
		return ErrCacheMiss
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return ErrSerializationFailed
	}
	return nil
}

// Set stores value as JSON.
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return ErrSerializationFailed
	}
	if err := c.client.rdb.Set(ctx, c.client.Key(key), data, c.ttl(ttl)).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "cache set failed")
	}
	return nil
}

// Delete removes keys.
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.client.Key(k)
	}
	if err := c.client.rdb.Del(ctx, full...).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "cache delete failed")
	}
	return nil
}

// GetOrSet fills dest from the cache, or from loader on a miss. Concurrent
// misses on one key share a single loader call. A loader error is returned
// unchanged and nothing is cached.
func (c *Cache) GetOrSet(ctx context.Context, key string, dest interface{}, ttl time.Duration, loader func(ctx context.Context) (interface{}, error)) error {
	err := c.Get(ctx, key, dest)
	if err == nil {
		c.observe(true)
		return nil
	}
	if err != ErrCacheMiss {
		return err
	}
	c.observe(false)

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		val, loadErr := loader(ctx)
		if loadErr != nil {
			return nil, loadErr
		}
		if val == nil {
			c.client.rdb.Set(ctx, c.client.Key(key), nullMarker, c.nullCacheTTL)
			return nil, nil
		}
		data, mErr := json.Marshal(val)
		if mErr != nil {
			return nil, ErrSerializationFailed
		}
		if sErr := c.client.rdb.Set(ctx, c.client.Key(key), data, c.ttl(ttl)).Err(); sErr != nil {
			c.logger.Warn("cache fill failed", logging.String("key", key), logging.Err(sErr))
		}
		return data, nil
	})
	if err != nil {
		return err
	}
	if v == nil {
		return ErrCacheMiss
	}
	if err := json.Unmarshal(v.([]byte), dest); err != nil {
		return ErrSerializationFailed
	}
	return nil
}

func (c *Cache) observe(hit bool) {
	if c.onAccess != nil {
		c.onAccess(hit)
	}
}

// DeleteByPrefix removes every key under prefix and returns the count.
func (c *Cache) DeleteByPrefix(ctx context.Context, prefix string) (int64, error) {
	var (
		deleted int64
		cursor  uint64
	)
	match := c.client.Key(prefix) + "*"
	for {
		keys, next, err := c.client.rdb.Scan(ctx, cursor, match, 100).Result()
		if err != nil {
			return deleted, errors.Wrap(err, errors.ErrCodeCacheError, "cache scan failed")
		}
		if len(keys) > 0 {
			if err := c.client.rdb.Del(ctx, keys...).Err(); err != nil {
				return deleted, errors.Wrap(err, errors.ErrCodeCacheError, "cache delete failed")
			}
			deleted += int64(len(keys))
		}
		cursor = next
		if cursor == 0 {
			return deleted, nil
		}
	}
}

//Personal.AI order the ending

package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
)

// ErrCacheMiss is returned by a VectorCache that holds no entry for a key.
var ErrCacheMiss = errors.New("embedding: cache miss")

// VectorCache stores vectors by opaque key.
type VectorCache interface {
	Get(ctx context.Context, key string) ([]float32, error)
	Set(ctx context.Context, key string, vec []float32) error
}

// Cached wraps a Provider with a VectorCache. Cache failures are logged and
// never surface to callers. Entries are keyed by kind, model, role and text,
// and a cached vector is only served when its length matches the dimension
// the wrapped provider produces now.
type Cached struct {
	inner  Provider
	cache  VectorCache
	logger *zap.Logger

	mu  sync.Mutex
	dim int
}

// NewCached decorates p with cache.
func NewCached(p Provider, cache VectorCache, logger *zap.Logger) *Cached {
	return &Cached{inner: p, cache: cache, logger: logger}
}

func (c *Cached) Kind() Kind { return c.inner.Kind() }

func (c *Cached) Model() string { return c.inner.Model() }

// Embed returns a cached vector when present, otherwise embeds and stores it.
func (c *Cached) Embed(ctx context.Context, text string, role Role) ([]float32, error) {
	dim, err := c.dimension(ctx)
	if err != nil {
		return nil, err
	}

	key := cacheKey(c.inner.Kind(), c.inner.Model(), role, text)
	vec, err := c.cache.Get(ctx, key)
	switch {
	case err == nil && len(vec) == dim:
		return vec, nil
	case err == nil:
		c.logger.Debug("stale embedding cache entry",
			zap.String("key", key), zap.Int("cached", len(vec)), zap.Int("want", dim))
	case !errors.Is(err, ErrCacheMiss):
		c.logger.Warn("embedding cache read failed", zap.Error(err))
	}

	vec, err = c.inner.Embed(ctx, text, role)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, vec)
	return vec, nil
}

// dimension probes the wrapped provider once, bypassing the cache.
func (c *Cached) dimension(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dim > 0 {
		return c.dim, nil
	}
	vec, err := c.inner.Embed(ctx, probeText, RoleDocument)
	if err != nil {
		return 0, err
	}
	if len(vec) == 0 {
		return 0, emptyVector("probe")
	}
	c.dim = len(vec)
	c.store(ctx, cacheKey(c.inner.Kind(), c.inner.Model(), RoleDocument, probeText), vec)
	return c.dim, nil
}

func (c *Cached) store(ctx context.Context, key string, vec []float32) {
	if err := c.cache.Set(ctx, key, vec); err != nil {
		c.logger.Warn("embedding cache write failed", zap.Error(err))
	}
}

func cacheKey(kind Kind, model string, role Role, text string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("stylist:embed:%s:%s:%s:%s", kind, model, role, hex.EncodeToString(sum[:]))
}

// RedisCache is a VectorCache backed by Redis with msgpack-encoded values.
type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisCache connects to redisURL. A zero ttl keeps entries forever.
func NewRedisCache(ctx context.Context, redisURL string, ttl time.Duration) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisCache{rdb: rdb, ttl: ttl}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]float32, error) {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	var vec []float32
	if err := msgpack.Unmarshal(data, &vec); err != nil {
		return nil, fmt.Errorf("decode cached vector: %w", err)
	}
	return vec, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, vec []float32) error {
	data, err := msgpack.Marshal(vec)
	if err != nil {
		return fmt.Errorf("encode vector: %w", err)
	}
	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Close shuts down the Redis connection.
func (c *RedisCache) Close() error {
	return c.rdb.Close()
}

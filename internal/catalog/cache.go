package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/joseph-ayodele/coa-verifier/internal/common"
	"github.com/joseph-ayodele/coa-verifier/internal/entity"
)

const keyPrefix = "coa:catalog:"

// Lookuper is anything that answers catalog lookups.
type Lookuper interface {
	Lookup(ctx context.Context, substance, food string) (entity.ReferenceLimit, error)
}

// cached is the stored form of one lookup. Found=false records a negative entry.
type cached struct {
	Found bool                   `json:"found"`
	Limit *entity.ReferenceLimit `json:"limit,omitempty"`
}

// CachedCatalog puts a redis read-through cache in front of a catalog. A nil client disables
// caching, and redis errors fall through to the wrapped catalog.
type CachedCatalog struct {
	next   Lookuper
	rdb    *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewCachedCatalog(next Lookuper, rdb *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedCatalog {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedCatalog{next: next, rdb: rdb, ttl: ttl, logger: logger}
}

// CacheKey returns the redis key for a lookup.
func CacheKey(substance, food string) string {
	return keyPrefix + substance + "|" + food
}

func (c *CachedCatalog) Lookup(ctx context.Context, substance, food string) (entity.ReferenceLimit, error) {
	if c.rdb == nil {
		return c.next.Lookup(ctx, substance, food)
	}
	key := CacheKey(substance, food)

	if hit, ok := c.get(ctx, key); ok {
		c.logger.Debug("catalog.cache.hit", "key", key, "found", hit.Found)
		if !hit.Found || hit.Limit == nil {
			return entity.ReferenceLimit{}, common.ErrNotFound
		}
		return *hit.Limit, nil
	}

	ref, err := c.next.Lookup(ctx, substance, food)
	switch {
	case err == nil:
		c.set(ctx, key, cached{Found: true, Limit: &ref})
	case errors.Is(err, common.ErrNotFound):
		c.set(ctx, key, cached{Found: false})
	}
	return ref, err
}

func (c *CachedCatalog) get(ctx context.Context, key string) (cached, bool) {
	val, err := c.rdb.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("catalog.cache.get_error", "key", key, "error", err)
		}
		return cached{}, false
	}
	var out cached
	if err := json.Unmarshal([]byte(val), &out); err != nil {
		c.logger.Warn("catalog.cache.decode_error", "key", key, "error", err)
		return cached{}, false
	}
	return out, true
}

func (c *CachedCatalog) set(ctx context.Context, key string, v cached) {
	b, err := json.Marshal(v)
	if err != nil {
		c.logger.Warn("catalog.cache.encode_error", "key", key, "error", err)
		return
	}
	if err := c.rdb.Set(ctx, key, b, c.ttl).Err(); err != nil {
		c.logger.Warn("catalog.cache.set_error", "key", key, "error", err)
	}
}

// NewRedisClient connects to redis and pings it. An empty addr returns a nil client.
func NewRedisClient(ctx context.Context, addr, password string, db int, logger *slog.Logger) (*redis.Client, error) {
	if addr == "" {
		return nil, nil
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	logger.Info("connected to redis", "addr", addr, "db", db)
	return rdb, nil
}

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"family-os/internal/family"
	"family-os/internal/logger"
)

// Cache is a byte cache with per-entry expiry.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type memoryEntry struct {
	val     []byte
	expires time.Time
}

// MemoryCache is an in-process Cache.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryCache creates an empty in-process cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: map[string]memoryEntry{}, now: time.Now}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !c.now().Before(e.expires) {
		delete(c.entries, key)
		return nil, false, nil
	}
	return e.val, true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, val []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = memoryEntry{val: val, expires: c.now().Add(ttl)}
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

// RedisCache shares cached documents between processes.
type RedisCache struct {
	rdb *goredis.Client
}

// NewRedisCache connects to addr and checks the connection.
func NewRedisCache(ctx context.Context, addr string) (*RedisCache, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisCache{rdb: rdb}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, val, ttl).Err()
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, key).Err()
}

// Close closes the redis client.
func (c *RedisCache) Close() error {
	return c.rdb.Close()
}

// Cached serves Get from a cache for up to ttl and drops the entry on every
// write through it. Cache failures are logged and fall back to the store.
type Cached struct {
	DocumentStore
	cache Cache
	ttl   time.Duration
	log   *logger.Logger
}

// NewCached wraps inner with cache.
func NewCached(inner DocumentStore, cache Cache, ttl time.Duration, log *logger.Logger) *Cached {
	return &Cached{DocumentStore: inner, cache: cache, ttl: ttl, log: log.With("component", "family-cache")}
}

func cacheKey(id string) string {
	return "family-os:family:" + id
}

// Get returns a private copy of the cached document, loading it on a miss.
func (c *Cached) Get(ctx context.Context, id string) (*family.Family, error) {
	key := cacheKey(id)
	if c.ttl > 0 {
		raw, ok, err := c.cache.Get(ctx, key)
		if err != nil {
			c.log.Warn("cache read failed", "family_id", id, "error", err)
		}
		if ok {
			if fam, err := decodeFamily(id, raw); err == nil {
				return fam, nil
			}
			c.log.Warn("dropping unreadable cache entry", "family_id", id)
		}
	}

	fam, err := c.DocumentStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if c.ttl > 0 {
		if raw, err := json.Marshal(fam); err == nil {
			if err := c.cache.Set(ctx, key, raw, c.ttl); err != nil {
				c.log.Warn("cache write failed", "family_id", id, "error", err)
			}
		}
	}
	return fam, nil
}

func (c *Cached) Set(ctx context.Context, id string, fam *family.Family) error {
	defer c.Invalidate(ctx, id)
	return c.DocumentStore.Set(ctx, id, fam)
}

func (c *Cached) Update(ctx context.Context, id string, fields map[string]any) error {
	defer c.Invalidate(ctx, id)
	return c.DocumentStore.Update(ctx, id, fields)
}

// Invalidate forces the next Get to read the store.
func (c *Cached) Invalidate(ctx context.Context, id string) {
	if err := c.cache.Delete(ctx, cacheKey(id)); err != nil {
		c.log.Warn("cache invalidation failed", "family_id", id, "error", err)
	}
}

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrCacheNotAvailable = errors.New("cache not available")
	ErrCacheNotFound     = errors.New("cache not found")
)

// CacheConfig is the key namespace and default lifetime of one kind of cached data
type CacheConfig struct {
	TTL    time.Duration
	Prefix string
}

var (
	// computed reports, "report:<kind>:<yyyy-mm>[:suffix]"
	ReportCacheConfig = CacheConfig{TTL: 5 * time.Minute, Prefix: "report:"}

	// live fixed values read by every report
	ReferenceCacheConfig = CacheConfig{TTL: 10 * time.Minute, Prefix: "reference:"}
)

// scanBatch bounds SCAN pages and DEL calls during pattern invalidation
const scanBatch = 100

// CacheHelper stores JSON values under one key prefix. With a nil client every
// read misses and every write is a no-op.
type CacheHelper struct {
	client *redis.Client
	prefix string
}

func NewCacheHelper(client *redis.Client, prefix string) *CacheHelper {
	return &CacheHelper{client: client, prefix: prefix}
}

func (c *CacheHelper) key(k string) string {
	return c.prefix + k
}

// Get decodes the value at key into dest
func (c *CacheHelper) Get(ctx context.Context, key string, dest interface{}) error {
	if c.client == nil {
		return ErrCacheNotAvailable
	}

	raw, err := c.client.Get(ctx, c.key(key)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return ErrCacheNotFound
	case err != nil:
		return fmt.Errorf("cache get: %w", err)
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("cache decode: %w", err)
	}
	return nil
}

// Set encodes value as JSON and stores it for ttl
func (c *CacheHelper) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if c.client == nil {
		return nil
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	return c.client.Set(ctx, c.key(key), raw, ttl).Err()
}

// Delete removes the given keys in one DEL
func (c *CacheHelper) Delete(ctx context.Context, keys ...string) error {
	if c.client == nil || len(keys) == 0 {
		return nil
	}

	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.key(k)
	}
	return c.client.Del(ctx, full...).Err()
}

// InvalidatePattern deletes every key matching pattern, walking the keyspace
// with SCAN so a large cache never blocks redis the way KEYS would.
func (c *CacheHelper) InvalidatePattern(ctx context.Context, pattern string) error {
	if c.client == nil {
		return nil
	}

	match := c.key(pattern)
	iter := c.client.Scan(ctx, 0, match, scanBatch).Iterator()

	batch := make([]string, 0, scanBatch)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		err := c.client.Del(ctx, batch...).Err()
		batch = batch[:0]
		return err
	}

	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == scanBatch {
			if err := flush(); err != nil {
				return fmt.Errorf("cache delete %q: %w", match, err)
			}
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("cache scan %q: %w", match, err)
	}
	if err := flush(); err != nil {
		return fmt.Errorf("cache delete %q: %w", match, err)
	}
	return nil
}

// CacheOrExecute implements cache-aside: a hit fills dest, a miss runs fetchFunc
// and stores its result. Fetch errors are returned and never cached.
func (c *CacheHelper) CacheOrExecute(ctx context.Context, key string, dest interface{}, ttl time.Duration, fetchFunc func() (interface{}, error)) error {
	err := c.Get(ctx, key, dest)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrCacheNotFound) && !errors.Is(err, ErrCacheNotAvailable) {
		slog.WarnContext(ctx, "Report cache read failed, computing", "error", err, "key", key)
	}

	value, err := fetchFunc()
	if err != nil {
		return fmt.Errorf("fetch function error: %w", err)
	}

	// round-trip through JSON so a miss and a hit give dest the same shape
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}

	if c.client != nil {
		// the response is already computed; a cancelled request should still populate the cache
		setCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if err := c.client.Set(setCtx, c.key(key), raw, ttl).Err(); err != nil {
			slog.ErrorContext(ctx, "Report cache write failed", "error", err, "key", key)
		}
	}

	return json.Unmarshal(raw, dest)
}

// CacheManager groups the report and reference stores over one client
type CacheManager struct {
	Reports   *CacheHelper
	Reference *CacheHelper

	reportTTL time.Duration
	client    *redis.Client
}

// NewCacheManager builds both stores. A nil client yields stores that always
// miss, so callers never branch on cache presence.
func NewCacheManager(client *redis.Client, reportTTL time.Duration) *CacheManager {
	if reportTTL <= 0 {
		reportTTL = ReportCacheConfig.TTL
	}
	return &CacheManager{
		Reports:   NewCacheHelper(client, ReportCacheConfig.Prefix),
		Reference: NewCacheHelper(client, ReferenceCacheConfig.Prefix),
		reportTTL: reportTTL,
		client:    client,
	}
}

func (cm *CacheManager) ReportTTL() time.Duration {
	return cm.reportTTL
}

// HealthCheck pings redis; ErrCacheNotAvailable when running without one
func (cm *CacheManager) HealthCheck(ctx context.Context) error {
	if cm.client == nil {
		return ErrCacheNotAvailable
	}
	if err := cm.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("cache health check failed: %w", err)
	}
	return nil
}

// ReportKey builds "<kind>:<yyyy-mm>[:suffix]" under the report prefix
func ReportKey(kind, periodKey string, suffix ...string) string {
	key := kind + ":" + periodKey
	for _, s := range suffix {
		key += ":" + s
	}
	return key
}

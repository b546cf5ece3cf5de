package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	awspkg "github.com/dailykart/dailykart/pkg/aws"
	"github.com/dailykart/dailykart/services/storefront/models"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	ListCachePrefix = "products:v:"
	CacheVersionKey = "products:version"

	DefaultCacheTTL = 30 * time.Second
)

// Cache stores product listings per scope ("all" or a category name).
// Get reports the cache version it looked at, hit or miss; SetAsync stores
// under that version and is dropped once Invalidate has moved past it.
type Cache interface {
	Get(ctx context.Context, scope string) ([]models.Product, int64, bool)
	SetAsync(scope string, version int64, products []models.Product)
	Invalidate(ctx context.Context) error
}

// RedisCache keys listings by a version counter; Invalidate bumps the
// counter so every older listing becomes unreachable and expires on its own.
type RedisCache struct {
	redis   *redis.Client
	ttl     time.Duration
	metrics *awspkg.MetricsClient
}

func NewRedisCache(client *redis.Client, ttl time.Duration, metrics *awspkg.MetricsClient) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &RedisCache{redis: client, ttl: ttl, metrics: metrics}
}

func (rc *RedisCache) Get(ctx context.Context, scope string) ([]models.Product, int64, bool) {
	version, err := rc.version(ctx)
	if err != nil {
		zap.L().Warn("Failed to read catalog cache version", zap.Error(err))
		return nil, 0, false
	}

	raw, err := rc.redis.Get(ctx, listKey(version, scope)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			zap.L().Warn("Failed to read catalog cache", zap.String("scope", scope), zap.Error(err))
		}
		rc.record(ctx, awspkg.MetricCacheMisses)
		return nil, version, false
	}

	var products []models.Product
	if err := json.Unmarshal(raw, &products); err != nil {
		zap.L().Warn("Failed to unmarshal cached products", zap.String("scope", scope), zap.Error(err))
		rc.record(ctx, awspkg.MetricCacheMisses)
		return nil, version, false
	}
	rc.record(ctx, awspkg.MetricCacheHits)
	return products, version, true
}

// SetAsync writes under the version the caller read. After an Invalidate that
// key is no longer read, so a listing fetched before the bump never resurfaces.
func (rc *RedisCache) SetAsync(scope string, version int64, products []models.Product) {
	if version <= 0 {
		return
	}
	go func() {
		bgCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		b, err := json.Marshal(products)
		if err != nil {
			zap.L().Warn("Failed to marshal products for cache", zap.Error(err))
			return
		}
		if err := rc.redis.Set(bgCtx, listKey(version, scope), b, rc.ttl).Err(); err != nil {
			zap.L().Warn("Failed to cache products", zap.String("scope", scope), zap.Error(err))
		}
	}()
}

func (rc *RedisCache) Invalidate(ctx context.Context) error {
	v, err := rc.redis.Incr(ctx, CacheVersionKey).Result()
	if err != nil {
		return fmt.Errorf("failed to invalidate catalog cache: %w", err)
	}
	zap.L().Info("Catalog cache invalidated", zap.Int64("new_version", v))
	return nil
}

func (rc *RedisCache) version(ctx context.Context) (int64, error) {
	v, err := rc.redis.Get(ctx, CacheVersionKey).Int64()
	if err == nil && v > 0 {
		return v, nil
	}
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, err
	}
	// SetNX so a concurrent Invalidate is never overwritten.
	if err := rc.redis.SetNX(ctx, CacheVersionKey, 1, 0).Err(); err != nil {
		return 0, err
	}
	return rc.redis.Get(ctx, CacheVersionKey).Int64()
}

func (rc *RedisCache) record(ctx context.Context, metric string) {
	if !rc.metrics.IsEnabled() {
		return
	}
	_ = rc.metrics.RecordCount(ctx, metric, map[string]string{"Cache": "catalog"})
}

func listKey(version int64, scope string) string {
	return fmt.Sprintf("%s%d:%s", ListCachePrefix, version, scope)
}

// MemoryCache is the in-process fallback used when Redis is not configured.
type MemoryCache struct {
	mu         sync.Mutex
	ttl        time.Duration
	generation int64
	entries    map[string]memoryEntry
	now        func() time.Time
}

type memoryEntry struct {
	products []models.Product
	expires  time.Time
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &MemoryCache{ttl: ttl, generation: 1, entries: make(map[string]memoryEntry), now: time.Now}
}

func (mc *MemoryCache) Get(_ context.Context, scope string) ([]models.Product, int64, bool) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	e, ok := mc.entries[scope]
	if !ok || !mc.now().Before(e.expires) {
		delete(mc.entries, scope)
		return nil, mc.generation, false
	}
	return append([]models.Product(nil), e.products...), mc.generation, true
}

func (mc *MemoryCache) SetAsync(scope string, version int64, products []models.Product) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	if version != mc.generation {
		return
	}
	mc.entries[scope] = memoryEntry{
		products: append([]models.Product(nil), products...),
		expires:  mc.now().Add(mc.ttl),
	}
}

func (mc *MemoryCache) Invalidate(context.Context) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.generation++
	clear(mc.entries)
	return nil
}

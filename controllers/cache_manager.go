package controllers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"grocery-service/models"
	awspkg "grocery-service/pkg/aws"
)

const (
	InventoryListCachePrefix = "inventory:v:"
	CacheVersionKey          = "inventory:version"
	DefaultCacheTTL          = 5 * time.Minute
)

// CacheManager caches per-owner inventory listings in Redis. Invalidation
// bumps a shared version counter, so stale keys simply age out under TTL.
type CacheManager struct {
	redis   *redis.Client
	metrics *awspkg.MetricsClient
	ttl     time.Duration
}

func NewCacheManager(redisClient *redis.Client, metrics *awspkg.MetricsClient) *CacheManager {
	return &CacheManager{
		redis:   redisClient,
		metrics: metrics,
		ttl:     DefaultCacheTTL,
	}
}

// GetInventoryList retrieves a cached inventory list for the owner.
func (cm *CacheManager) GetInventoryList(ctx context.Context, ownerID string) ([]models.InventoryItem, bool) {
	if cm == nil || cm.redis == nil {
		return nil, false
	}

	version, err := cm.getCacheVersion(ctx)
	if err != nil || version == 0 {
		return nil, false
	}

	cacheKey := cm.listCacheKey(version, ownerID)
	cachedData, err := cm.redis.Get(ctx, cacheKey).Result()
	if err != nil {
		cm.recordCacheMetric(awspkg.MetricCacheMisses)
		return nil, false
	}

	var items []models.InventoryItem
	if err := json.Unmarshal([]byte(cachedData), &items); err != nil {
		zap.L().Warn("Failed to unmarshal cached inventory list", zap.Error(err))
		return nil, false
	}

	cm.recordCacheMetric(awspkg.MetricCacheHits)
	return items, true
}

// SetInventoryListAsync caches an inventory list without blocking the request.
func (cm *CacheManager) SetInventoryListAsync(ownerID string, items []models.InventoryItem) {
	if cm == nil || cm.redis == nil {
		return
	}

	go func() {
		bgCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		version, err := cm.getCacheVersion(bgCtx)
		if err != nil || version == 0 {
			return
		}

		jsonBytes, err := json.Marshal(items)
		if err != nil {
			zap.L().Warn("Failed to marshal inventory list for cache", zap.Error(err))
			return
		}

		cacheKey := cm.listCacheKey(version, ownerID)
		if err := cm.redis.Set(bgCtx, cacheKey, jsonBytes, cm.ttl).Err(); err != nil {
			zap.L().Warn("Failed to cache inventory list", zap.Error(err))
		}
	}()
}

// Invalidate invalidates all inventory list caches by bumping the version.
func (cm *CacheManager) Invalidate(ctx context.Context) error {
	if cm == nil || cm.redis == nil {
		return nil
	}

	newVersion, err := cm.redis.Incr(ctx, CacheVersionKey).Result()
	if err != nil {
		return fmt.Errorf("failed to invalidate cache: %w", err)
	}

	zap.L().Info("Inventory cache invalidated", zap.Int64("new_version", newVersion))
	return nil
}

func (cm *CacheManager) getCacheVersion(ctx context.Context) (int64, error) {
	const maxRetries = 3

	for i := 0; i < maxRetries; i++ {
		ver, err := cm.redis.Get(ctx, CacheVersionKey).Int64()
		if err == nil && ver > 0 {
			return ver, nil
		}

		if err == redis.Nil {
			if err := cm.redis.Set(ctx, CacheVersionKey, 1, 0).Err(); err == nil {
				return 1, nil
			}
		}

		if i < maxRetries-1 {
			time.Sleep(time.Millisecond * 50)
		}
	}

	return 0, fmt.Errorf("failed to get cache version after %d retries", maxRetries)
}

func (cm *CacheManager) listCacheKey(version int64, ownerID string) string {
	return fmt.Sprintf("%s%d:owner:%s", InventoryListCachePrefix, version, ownerID)
}

func (cm *CacheManager) recordCacheMetric(metric string) {
	if !cm.metrics.IsEnabled() {
		return
	}
	go func() {
		mctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = cm.metrics.RecordCount(mctx, metric, map[string]string{"Service": "grocery-service"})
	}()
}

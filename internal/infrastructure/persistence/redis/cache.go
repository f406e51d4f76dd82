package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"brand-card-studio/pkg/logger"
	"brand-card-studio/pkg/metrics"
)

const datasetCacheName = "dataset"

// DatasetCache 数据集页面缓存，按品牌 ID 存放渲染后的 HTML
type DatasetCache struct {
	client *Client
	ttl    time.Duration
	group  singleflight.Group
}

// NewDatasetCache 创建数据集页面缓存
func NewDatasetCache(client *Client, ttl time.Duration) *DatasetCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &DatasetCache{client: client, ttl: ttl}
}

// DatasetKey 构建缓存键
func DatasetKey(brandID string) string {
	return "dataset:" + brandID
}

// GetOrRender 读穿缓存，同一品牌的并发未命中只渲染一次
func (c *DatasetCache) GetOrRender(ctx context.Context, brandID string, render func(ctx context.Context) ([]byte, error)) ([]byte, error) {
	key := DatasetKey(brandID)
	ctx, span := tracer.Start(ctx, "cache.Dataset.GetOrRender",
		trace.WithAttributes(attribute.String("cache.key", key)))
	defer span.End()

	val, err := c.client.rdb.Get(ctx, key).Bytes()
	if err == nil {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		metrics.CacheRequestsTotal.WithLabelValues(datasetCacheName, "hit").Inc()
		return val, nil
	}
	if !errors.Is(err, redis.Nil) {
		// 缓存不可用时直接渲染
		span.RecordError(err)
		metrics.CacheRequestsTotal.WithLabelValues(datasetCacheName, "error").Inc()
		logger.Warn(ctx, "dataset cache read failed", "key", key, "error", err.Error())
		return render(ctx)
	}

	span.SetAttributes(attribute.Bool("cache.hit", false))
	metrics.CacheRequestsTotal.WithLabelValues(datasetCacheName, "miss").Inc()

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		page, err := render(ctx)
		if err != nil {
			return nil, err
		}
		if err := c.client.rdb.Set(ctx, key, page, c.ttl).Err(); err != nil {
			span.RecordError(err)
			logger.Warn(ctx, "dataset cache write failed", "key", key, "error", err.Error())
		}
		return page, nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return v.([]byte), nil
}

// Invalidate 删除品牌的缓存页面
func (c *DatasetCache) Invalidate(ctx context.Context, brandIDs ...string) error {
	if len(brandIDs) == 0 {
		return nil
	}
	ctx, span := tracer.Start(ctx, "cache.Dataset.Invalidate",
		trace.WithAttributes(attribute.Int("cache.key_count", len(brandIDs))))
	defer span.End()

	keys := make([]string, len(brandIDs))
	for i, id := range brandIDs {
		keys[i] = DatasetKey(id)
	}
	if err := c.client.rdb.Del(ctx, keys...).Err(); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

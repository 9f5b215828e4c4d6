package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/SergeiKhy/linkshort/internal/metrics"
	"github.com/SergeiKhy/linkshort/internal/models"
	"github.com/redis/go-redis/v9"
)

var ErrCacheMiss = errors.New("cache miss")

// CacheRepository кэш ссылок по короткому коду для пути редиректа
type CacheRepository interface {
	Get(ctx context.Context, code string) (*models.Link, error)
	Set(ctx context.Context, code string, link *models.Link, ttl time.Duration) error
	Delete(ctx context.Context, codes ...string) error
}

// cacheRepository двухуровневый кэш: local (L1) и Redis (L2).
// Любой из уровней может отсутствовать.
type cacheRepository struct {
	redis *RedisDB
	local *LocalCache
}

func NewCacheRepository(redis *RedisDB, local *LocalCache) CacheRepository {
	return &cacheRepository{redis: redis, local: local}
}

func (r *cacheRepository) Get(ctx context.Context, code string) (*models.Link, error) {
	if r.local != nil {
		if link, ok := r.local.Get(code); ok {
			metrics.CacheOperations.WithLabelValues("l1", "hit").Inc()
			return link, nil
		}
		metrics.CacheOperations.WithLabelValues("l1", "miss").Inc()
	}

	if r.redis == nil {
		return nil, ErrCacheMiss
	}

	data, err := r.redis.Client.Get(ctx, r.key(code)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			metrics.CacheOperations.WithLabelValues("l2", "miss").Inc()
			return nil, ErrCacheMiss
		}
		metrics.CacheOperations.WithLabelValues("l2", "error").Inc()
		return nil, fmt.Errorf("failed to read cache: %w", err)
	}

	var link models.Link
	if err := json.Unmarshal(data, &link); err != nil {
		return nil, fmt.Errorf("failed to unmarshal link: %w", err)
	}
	metrics.CacheOperations.WithLabelValues("l2", "hit").Inc()

	// Прогрев L1 из L2
	if r.local != nil {
		r.local.Set(code, &link, 0)
	}

	return &link, nil
}

func (r *cacheRepository) Set(ctx context.Context, code string, link *models.Link, ttl time.Duration) error {
	if r.local != nil {
		r.local.Set(code, link, ttl)
	}

	if r.redis == nil {
		return nil
	}

	data, err := json.Marshal(link)
	if err != nil {
		return fmt.Errorf("failed to marshal link: %w", err)
	}

	return r.redis.Client.Set(ctx, r.key(code), data, ttl).Err()
}

func (r *cacheRepository) Delete(ctx context.Context, codes ...string) error {
	if len(codes) == 0 {
		return nil
	}

	if r.local != nil {
		for _, code := range codes {
			r.local.Del(code)
		}
	}

	if r.redis == nil {
		return nil
	}

	keys := make([]string, len(codes))
	for i, code := range codes {
		keys[i] = r.key(code)
	}
	return r.redis.Client.Del(ctx, keys...).Err()
}

func (r *cacheRepository) key(code string) string {
	return "link:" + code
}

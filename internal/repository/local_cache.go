package repository

import (
	"fmt"
	"time"

	"github.com/SergeiKhy/linkshort/internal/models"
	"github.com/dgraph-io/ristretto"
)

// LocalCache процессный кэш ссылок на ristretto (L1).
// TTL записи не превышает ttl, заданный при создании.
type LocalCache struct {
	cache *ristretto.Cache
	ttl   time.Duration
}

// NewLocalCache создаёт L1 кэш на maxItems записей (cost=1 на запись)
func NewLocalCache(maxItems int64, ttl time.Duration) (*LocalCache, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxItems * 10,
		MaxCost:     maxItems,
		BufferItems: 64,

		// MaxCost считается в записях, без накладных расходов ristretto
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create local cache: %w", err)
	}

	return &LocalCache{cache: cache, ttl: ttl}, nil
}

func (l *LocalCache) Get(code string) (*models.Link, bool) {
	v, ok := l.cache.Get(code)
	if !ok {
		return nil, false
	}
	link, ok := v.(*models.Link)
	if !ok {
		return nil, false
	}
	return link.Clone(), true
}

func (l *LocalCache) Set(code string, link *models.Link, ttl time.Duration) {
	if ttl <= 0 || ttl > l.ttl {
		ttl = l.ttl
	}
	l.cache.SetWithTTL(code, link.Clone(), 1, ttl)
}

func (l *LocalCache) Del(code string) {
	l.cache.Del(code)
}

// Wait дожидается применения буферизованных записей
func (l *LocalCache) Wait() {
	l.cache.Wait()
}

func (l *LocalCache) Close() {
	l.cache.Close()
}

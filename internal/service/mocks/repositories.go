package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/SergeiKhy/linkshort/internal/models"
	"github.com/SergeiKhy/linkshort/internal/repository"
)

// MockLinkRepository implements repository.LinkRepository for testing.
// It keeps copies of the stored links and enforces short code uniqueness
// the same way the database constraint does.
type MockLinkRepository struct {
	mu      sync.RWMutex
	links   map[int64]*models.Link
	byShort map[string]int64
	nextID  int64

	// BeforeCreate runs before the uniqueness check, outside the lock.
	// Tests use it to slip a competing insert between pre-check and create.
	BeforeCreate func(link *models.Link)

	// AfterGetByShortCode runs after a successful read, outside the lock.
	// Tests use it to change the row while the caller still holds the old copy.
	AfterGetByShortCode func(code string)

	// Err, when set, is returned by every method.
	Err error

	incrementCalls int
}

func NewMockLinkRepository() *MockLinkRepository {
	return &MockLinkRepository{
		links:   make(map[int64]*models.Link),
		byShort: make(map[string]int64),
		nextID:  1,
	}
}

func (m *MockLinkRepository) Create(ctx context.Context, link *models.Link) error {
	if m.BeforeCreate != nil {
		m.BeforeCreate(link)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}
	if _, exists := m.byShort[link.Short]; exists {
		return repository.ErrCodeExists
	}

	link.ID = m.nextID
	m.nextID++
	link.Clicks = 0
	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now().UTC()
	}

	m.links[link.ID] = link.Clone()
	m.byShort[link.Short] = link.ID
	return nil
}

func (m *MockLinkRepository) GetAll(ctx context.Context, limit int) ([]models.Link, error) {
	return m.sorted(limit, func(a, b *models.Link) bool {
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
}

func (m *MockLinkRepository) GetTop(ctx context.Context, limit int) ([]models.Link, error) {
	return m.sorted(limit, func(a, b *models.Link) bool {
		if a.Clicks != b.Clicks {
			return a.Clicks > b.Clicks
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
}

func (m *MockLinkRepository) sorted(limit int, less func(a, b *models.Link) bool) ([]models.Link, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.Err != nil {
		return nil, m.Err
	}

	all := make([]*models.Link, 0, len(m.links))
	for _, link := range m.links {
		all = append(all, link)
	}
	sort.Slice(all, func(i, j int) bool { return less(all[i], all[j]) })

	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}

	result := make([]models.Link, 0, len(all))
	for _, link := range all {
		result = append(result, *link.Clone())
	}
	return result, nil
}

func (m *MockLinkRepository) GetByShortCode(ctx context.Context, code string) (*models.Link, error) {
	link, err := m.getByShortCode(code)
	if err == nil && m.AfterGetByShortCode != nil {
		m.AfterGetByShortCode(code)
	}
	return link, err
}

func (m *MockLinkRepository) getByShortCode(code string) (*models.Link, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.Err != nil {
		return nil, m.Err
	}
	id, exists := m.byShort[code]
	if !exists {
		return nil, repository.ErrLinkNotFound
	}
	return m.links[id].Clone(), nil
}

func (m *MockLinkRepository) GetByID(ctx context.Context, id int64) (*models.Link, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.Err != nil {
		return nil, m.Err
	}
	link, exists := m.links[id]
	if !exists {
		return nil, repository.ErrLinkNotFound
	}
	return link.Clone(), nil
}

func (m *MockLinkRepository) Update(ctx context.Context, params models.UpdateLinkParams) (*models.Link, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}
	link, exists := m.links[params.ID]
	if !exists {
		return nil, repository.ErrLinkNotFound
	}

	if params.Short != nil && *params.Short != link.Short {
		if _, taken := m.byShort[*params.Short]; taken {
			return nil, repository.ErrCodeExists
		}
		delete(m.byShort, link.Short)
		link.Short = *params.Short
		m.byShort[link.Short] = link.ID
	}

	link.URL = params.URL
	link.Title = params.Title
	link.Description = params.Description

	return link.Clone(), nil
}

func (m *MockLinkRepository) Delete(ctx context.Context, id int64) (*models.Link, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}
	link, exists := m.links[id]
	if !exists {
		return nil, repository.ErrLinkNotFound
	}
	delete(m.links, id)
	delete(m.byShort, link.Short)
	return link, nil
}

func (m *MockLinkRepository) IncrementClicks(ctx context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.incrementCalls++
	if m.Err != nil {
		return m.Err
	}
	id, exists := m.byShort[code]
	if !exists {
		return repository.ErrLinkNotFound
	}
	m.links[id].Clicks++
	return nil
}

func (m *MockLinkRepository) Aggregate(ctx context.Context) (*models.LinkStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.Err != nil {
		return nil, m.Err
	}

	stats := &models.LinkStats{TotalLinks: int64(len(m.links))}
	for _, link := range m.links {
		stats.TotalClicks += link.Clicks
		if link.Clicks > stats.MaxClicks {
			stats.MaxClicks = link.Clicks
		}
	}
	if stats.TotalLinks > 0 {
		stats.AvgClicks = float64(stats.TotalClicks) / float64(stats.TotalLinks)
	}
	return stats, nil
}

// SetClicks sets a counter directly, bypassing the monotonic increment path.
func (m *MockLinkRepository) SetClicks(code string, clicks int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.byShort[code]; ok {
		m.links[id].Clicks = clicks
	}
}

// Count returns the number of stored links.
func (m *MockLinkRepository) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.links)
}

// IncrementCalls returns how many times IncrementClicks was called.
func (m *MockLinkRepository) IncrementCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.incrementCalls
}

func (m *MockLinkRepository) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links = make(map[int64]*models.Link)
	m.byShort = make(map[string]int64)
	m.nextID = 1
	m.incrementCalls = 0
	m.Err = nil
}

// MockCacheRepository implements repository.CacheRepository for testing
type MockCacheRepository struct {
	mu    sync.RWMutex
	cache map[string]*models.Link

	// GetErr, when set, is returned by Get instead of a hit or a miss.
	GetErr error
}

func NewMockCacheRepository() *MockCacheRepository {
	return &MockCacheRepository{
		cache: make(map[string]*models.Link),
	}
}

func (m *MockCacheRepository) Get(ctx context.Context, code string) (*models.Link, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.GetErr != nil {
		return nil, m.GetErr
	}
	link, exists := m.cache[code]
	if !exists {
		return nil, repository.ErrCacheMiss
	}
	return link.Clone(), nil
}

func (m *MockCacheRepository) Set(ctx context.Context, code string, link *models.Link, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache[code] = link.Clone()
	return nil
}

func (m *MockCacheRepository) Delete(ctx context.Context, codes ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, code := range codes {
		delete(m.cache, code)
	}
	return nil
}

// Has reports whether code is cached.
func (m *MockCacheRepository) Has(code string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.cache[code]
	return ok
}

func (m *MockCacheRepository) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache = make(map[string]*models.Link)
	m.GetErr = nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SergeiKhy/linkshort/internal/models"
	"github.com/SergeiKhy/linkshort/internal/repository"
	"github.com/SergeiKhy/linkshort/internal/shortcode"
	"go.uber.org/zap"
)

// RedirectService разрешает короткий код в целевой URL
type RedirectService interface {
	Resolve(ctx context.Context, code string) (string, error)
}

type redirectService struct {
	linkRepo  repository.LinkRepository
	cacheRepo repository.CacheRepository
	clicks    ClickRecorder
	cacheTTL  time.Duration
	logger    *zap.Logger
}

// NewRedirectService создаёт сервис редиректов
func NewRedirectService(
	linkRepo repository.LinkRepository,
	cacheRepo repository.CacheRepository,
	clicks ClickRecorder,
	cacheTTL time.Duration,
	logger *zap.Logger,
) RedirectService {
	if cacheTTL <= 0 {
		cacheTTL = defaultCacheTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &redirectService{
		linkRepo:  linkRepo,
		cacheRepo: cacheRepo,
		clicks:    clicks,
		cacheTTL:  cacheTTL,
		logger:    logger,
	}
}

// Resolve возвращает URL для редиректа и ставит клик в очередь.
// Запись клика не задерживает ответ посетителю.
func (s *redirectService) Resolve(ctx context.Context, code string) (string, error) {
	if shortcode.IsReserved(code) {
		return "", ErrNotFound
	}

	link, err := s.lookup(ctx, code)
	if err != nil {
		return "", err
	}

	if s.clicks != nil {
		if err := s.clicks.RecordClick(ctx, link.Short); err != nil {
			s.logger.Warn("Failed to enqueue click", zap.String("short", link.Short), zap.Error(err))
		}
	}

	return link.URL, nil
}

func (s *redirectService) lookup(ctx context.Context, code string) (*models.Link, error) {
	if s.cacheRepo != nil {
		link, err := s.cacheRepo.Get(ctx, code)
		if err == nil {
			return link, nil
		}
		if !errors.Is(err, repository.ErrCacheMiss) {
			// Кэш недоступен, идём в хранилище
			s.logger.Warn("Cache read failed", zap.String("short", code), zap.Error(err))
		}
	}

	link, err := s.linkRepo.GetByShortCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	if s.cacheRepo != nil {
		if err := s.cacheRepo.Set(ctx, code, link, s.cacheTTL); err != nil {
			// L1 мог записаться даже при ошибке Redis, поэтому проверяем в любом случае
			s.logger.Warn("Failed to cache link", zap.String("short", code), zap.Error(err))
		}
		return s.verifyCached(ctx, code, link)
	}

	return link, nil
}

// verifyCached перечитывает строку после записи в кэш.
// Удаление или правка между чтением и записью в кэш иначе оставили бы
// устаревшую запись на весь cacheTTL: писатель инвалидирует кэш раньше, чем мы его заполнили.
func (s *redirectService) verifyCached(ctx context.Context, code string, cached *models.Link) (*models.Link, error) {
	fresh, err := s.linkRepo.GetByShortCode(ctx, code)
	switch {
	case errors.Is(err, repository.ErrLinkNotFound):
		s.dropCached(ctx, code)
		return nil, ErrNotFound
	case err != nil:
		// Подтвердить нельзя, не оставляем запись в кэше
		s.logger.Warn("Failed to verify cached link", zap.String("short", code), zap.Error(err))
		s.dropCached(ctx, code)
		return cached, nil
	case fresh.ID != cached.ID || fresh.URL != cached.URL || fresh.Short != cached.Short:
		s.dropCached(ctx, code)
		return fresh, nil
	}
	return cached, nil
}

func (s *redirectService) dropCached(ctx context.Context, code string) {
	if err := s.cacheRepo.Delete(ctx, code); err != nil {
		s.logger.Warn("Failed to evict stale link", zap.String("short", code), zap.Error(err))
	}
}

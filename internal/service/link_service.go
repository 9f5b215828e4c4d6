package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/SergeiKhy/linkshort/internal/metrics"
	"github.com/SergeiKhy/linkshort/internal/models"
	"github.com/SergeiKhy/linkshort/internal/repository"
	"github.com/SergeiKhy/linkshort/internal/shortcode"
	"go.uber.org/zap"
)

// Константы сервиса
const (
	maxAllocationAttempts = 5
	maxURLLength          = 2048
	defaultListLimit      = 100
	defaultCacheTTL       = 24 * time.Hour
)

// CodeGenerator источник кандидатов в короткие коды
type CodeGenerator interface {
	Generate() string
}

// LinkService интерфейс сервиса ссылок
type LinkService interface {
	CreateLink(ctx context.Context, input *models.CreateLinkInput) (*models.Link, error)
	ListLinks(ctx context.Context, limit int) ([]models.Link, error)
	GetLink(ctx context.Context, code string) (*models.Link, error)
	UpdateLink(ctx context.Context, id int64, input *models.UpdateLinkInput) (*models.Link, error)
	DeleteLink(ctx context.Context, id int64) error
}

// linkService реализация сервиса ссылок
type linkService struct {
	linkRepo  repository.LinkRepository
	cacheRepo repository.CacheRepository
	generator CodeGenerator
	cacheTTL  time.Duration
	logger    *zap.Logger
}

// NewLinkService создаёт новый экземпляр сервиса
func NewLinkService(
	linkRepo repository.LinkRepository,
	cacheRepo repository.CacheRepository,
	generator CodeGenerator,
	cacheTTL time.Duration,
	logger *zap.Logger,
) LinkService {
	if generator == nil {
		generator = shortcode.NewGenerator()
	}
	if cacheTTL <= 0 {
		cacheTTL = defaultCacheTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &linkService{
		linkRepo:  linkRepo,
		cacheRepo: cacheRepo,
		generator: generator,
		cacheTTL:  cacheTTL,
		logger:    logger,
	}
}

// CreateLink создаёт новую короткую ссылку.
//
// Предварительная проверка занятости кода лишь экономит запрос на вставку:
// окончательно уникальность решает ограничение хранилища, и проигранная
// гонка между проверкой и вставкой обрабатывается так же, как занятый код.
func (s *linkService) CreateLink(ctx context.Context, input *models.CreateLinkInput) (*models.Link, error) {
	if err := validateURL(input.URL); err != nil {
		return nil, err
	}

	link := &models.Link{
		URL:         input.URL,
		Title:       emptyToNil(input.Title),
		Description: emptyToNil(input.Description),
		CreatedAt:   time.Now().UTC(),
	}

	if input.CustomShort != nil && *input.CustomShort != "" {
		if err := s.createWithCustomCode(ctx, link, *input.CustomShort); err != nil {
			return nil, err
		}
		metrics.LinksCreated.WithLabelValues("custom").Inc()
	} else {
		if err := s.createWithGeneratedCode(ctx, link); err != nil {
			return nil, err
		}
		metrics.LinksCreated.WithLabelValues("generated").Inc()
	}

	s.cacheLink(ctx, link)

	return link, nil
}

func (s *linkService) createWithCustomCode(ctx context.Context, link *models.Link, code string) error {
	if !shortcode.ValidFormat(code) {
		return ErrInvalidShortFormat
	}

	taken, err := s.codeTaken(ctx, code)
	if err != nil {
		return err
	}
	if taken {
		return ErrShortTaken
	}

	link.Short = code
	if err := s.linkRepo.Create(ctx, link); err != nil {
		if errors.Is(err, repository.ErrCodeExists) {
			// Другой запрос занял код между проверкой и вставкой
			return ErrShortTaken
		}
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	return nil
}

func (s *linkService) createWithGeneratedCode(ctx context.Context, link *models.Link) error {
	for attempt := 1; attempt <= maxAllocationAttempts; attempt++ {
		code := s.generator.Generate()

		taken, err := s.codeTaken(ctx, code)
		if err != nil {
			return err
		}
		if taken {
			s.logCollision(code, attempt)
			continue
		}

		link.Short = code
		err = s.linkRepo.Create(ctx, link)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrCodeExists) {
			return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
		}
		s.logCollision(code, attempt)
	}

	s.logger.Error("Short code allocation exhausted", zap.Int("attempts", maxAllocationAttempts))
	link.Short = ""
	return ErrAllocationExhausted
}

func (s *linkService) logCollision(code string, attempt int) {
	metrics.AllocationCollisions.Inc()
	s.logger.Debug("Generated short code collided",
		zap.String("short", code),
		zap.Int("attempt", attempt),
	)
}

// codeTaken проверяет, занят ли код. Это оптимизация, не гарантия.
func (s *linkService) codeTaken(ctx context.Context, code string) (bool, error) {
	_, err := s.linkRepo.GetByShortCode(ctx, code)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, repository.ErrLinkNotFound) {
		return false, nil
	}
	return false, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}

// ListLinks возвращает последние созданные ссылки, не более limit (1..100)
func (s *linkService) ListLinks(ctx context.Context, limit int) ([]models.Link, error) {
	if limit <= 0 || limit > defaultListLimit {
		limit = defaultListLimit
	}

	links, err := s.linkRepo.GetAll(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return links, nil
}

// GetLink читает ссылку напрямую из хранилища, минуя кэш, чтобы счётчик был свежим
func (s *linkService) GetLink(ctx context.Context, code string) (*models.Link, error) {
	link, err := s.linkRepo.GetByShortCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return link, nil
}

// UpdateLink полностью заменяет url, title и description; short меняется, если передан
func (s *linkService) UpdateLink(ctx context.Context, id int64, input *models.UpdateLinkInput) (*models.Link, error) {
	if err := validateURL(input.URL); err != nil {
		return nil, err
	}

	newShort := emptyToNil(input.Short)
	if newShort != nil && !shortcode.ValidFormat(*newShort) {
		return nil, ErrInvalidShortFormat
	}

	current, err := s.linkRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	if newShort != nil && *newShort != current.Short {
		existing, err := s.linkRepo.GetByShortCode(ctx, *newShort)
		switch {
		case err == nil && existing.ID != id:
			return nil, ErrShortTaken
		case err != nil && !errors.Is(err, repository.ErrLinkNotFound):
			return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
		}
	}

	updated, err := s.linkRepo.Update(ctx, models.UpdateLinkParams{
		ID:          id,
		URL:         input.URL,
		Title:       emptyToNil(input.Title),
		Description: emptyToNil(input.Description),
		Short:       newShort,
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrLinkNotFound):
			return nil, ErrNotFound
		case errors.Is(err, repository.ErrCodeExists):
			return nil, ErrShortTaken
		default:
			return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
		}
	}

	s.evict(ctx, current.Short, updated.Short)

	return updated, nil
}

// DeleteLink удаляет ссылку по id
func (s *linkService) DeleteLink(ctx context.Context, id int64) error {
	deleted, err := s.linkRepo.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	s.evict(ctx, deleted.Short)
	return nil
}

func (s *linkService) cacheLink(ctx context.Context, link *models.Link) {
	if s.cacheRepo == nil {
		return
	}
	if err := s.cacheRepo.Set(ctx, link.Short, link, s.cacheTTL); err != nil {
		// Кэш вторичен: логируем и продолжаем
		s.logger.Warn("Failed to cache link", zap.String("short", link.Short), zap.Error(err))
	}
}

func (s *linkService) evict(ctx context.Context, codes ...string) {
	if s.cacheRepo == nil {
		return
	}
	if err := s.cacheRepo.Delete(ctx, codes...); err != nil {
		s.logger.Warn("Failed to evict cached links", zap.Strings("short", codes), zap.Error(err))
	}
}

// validateURL требует абсолютный URL: схема и хост либо непрозрачная часть (mailto:, tel:)
func validateURL(raw string) error {
	if raw == "" || len(raw) > maxURLLength {
		return ErrInvalidURL
	}

	u, err := url.Parse(raw)
	if err != nil {
		return ErrInvalidURL
	}
	if !u.IsAbs() {
		return ErrInvalidURL
	}
	if u.Host == "" && u.Opaque == "" {
		return ErrInvalidURL
	}
	return nil
}

func emptyToNil(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}

package service

import (
	"context"
	"fmt"

	"github.com/SergeiKhy/linkshort/internal/models"
	"github.com/SergeiKhy/linkshort/internal/repository"
)

const summaryListSize = 5

// AnalyticsService сводная статистика для админки
type AnalyticsService interface {
	Summarize(ctx context.Context) (*models.Summary, error)
}

type analyticsService struct {
	linkRepo repository.LinkRepository
}

func NewAnalyticsService(linkRepo repository.LinkRepository) AnalyticsService {
	return &analyticsService{linkRepo: linkRepo}
}

// Summarize считает агрегаты и выбирает 5 последних и 5 самых популярных ссылок.
// Только чтение, кэш не используется.
func (s *analyticsService) Summarize(ctx context.Context) (*models.Summary, error) {
	stats, err := s.linkRepo.Aggregate(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	recent, err := s.linkRepo.GetAll(ctx, summaryListSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	top, err := s.linkRepo.GetTop(ctx, summaryListSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	return &models.Summary{
		Stats:       *stats,
		RecentLinks: nonNil(recent),
		TopLinks:    nonNil(top),
	}, nil
}

// nonNil чтобы в JSON был [], а не null
func nonNil(links []models.Link) []models.Link {
	if links == nil {
		return []models.Link{}
	}
	return links
}

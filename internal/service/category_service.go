package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rulehub/rulehub-backend/internal/common"
	"github.com/rulehub/rulehub-backend/internal/domain"
	"github.com/rulehub/rulehub-backend/internal/repository"
	"github.com/rulehub/rulehub-backend/pkg/cache"
	pkglogger "github.com/rulehub/rulehub-backend/pkg/logger"
)

// CategoryService 카테고리 서비스 인터페이스
type CategoryService interface {
	ListCategories(ctx context.Context) ([]domain.CategoryResponse, error)
	CreateCategory(ctx context.Context, req *domain.CreateCategoryRequest) (*domain.CategoryResponse, error)
}

type categoryService struct {
	repo  repository.CategoryRepository
	cache cache.Service
}

// NewCategoryService 카테고리 서비스 생성
func NewCategoryService(repo repository.CategoryRepository, cacheSvc cache.Service) CategoryService {
	if cacheSvc == nil {
		cacheSvc = cache.NewService(nil)
	}
	return &categoryService{repo: repo, cache: cacheSvc}
}

// ListCategories returns all categories with published rule counts, ordered by name
func (s *categoryService) ListCategories(ctx context.Context) ([]domain.CategoryResponse, error) {
	var cached []domain.CategoryResponse
	if err := s.cache.GetCategories(ctx, &cached); err == nil {
		return cached, nil
	}

	rows, err := s.repo.ListWithCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}

	out := make([]domain.CategoryResponse, len(rows))
	for i := range rows {
		out[i] = rows[i].ToResponse()
	}

	if err := s.cache.SetCategories(ctx, out); err != nil {
		pkglogger.GetLogger().Warn().Err(err).Msg("categories cache set failed")
	}
	return out, nil
}

func (s *categoryService) CreateCategory(ctx context.Context, req *domain.CreateCategoryRequest) (*domain.CategoryResponse, error) {
	slug := strings.TrimSpace(req.Slug)
	if !slugPattern.MatchString(slug) || slug == domain.CategoryAll {
		return nil, fmt.Errorf("%w: invalid category slug %q", common.ErrInvalidInput, slug)
	}

	_, err := s.repo.FindBySlug(ctx, slug)
	switch {
	case err == nil:
		return nil, common.ErrSlugTaken
	case !errors.Is(err, common.ErrCategoryNotFound):
		return nil, err
	}

	category := &domain.Category{
		Name:        strings.TrimSpace(req.Name),
		Slug:        slug,
		Description: req.Description,
	}
	if err := s.repo.Create(ctx, category); err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}

	if err := s.cache.InvalidateCategories(ctx); err != nil {
		pkglogger.GetLogger().Warn().Err(err).Msg("categories cache invalidation failed")
	}

	resp := (&domain.CategoryWithCount{
		ID:          category.ID,
		Name:        category.Name,
		Slug:        category.Slug,
		Description: category.Description,
	}).ToResponse()
	return &resp, nil
}

package repository

import (
	"context"
	"errors"

	"github.com/rulehub/rulehub-backend/internal/common"
	"github.com/rulehub/rulehub-backend/internal/domain"
	"gorm.io/gorm"
)

// CategoryRepository 카테고리 저장소 인터페이스
type CategoryRepository interface {
	Create(ctx context.Context, category *domain.Category) error
	FindBySlug(ctx context.Context, slug string) (*domain.Category, error)
	FindBySlugs(ctx context.Context, slugs []string) ([]domain.Category, error)
	ListWithCounts(ctx context.Context) ([]domain.CategoryWithCount, error)
}

type categoryRepository struct {
	db *gorm.DB
}

// NewCategoryRepository 카테고리 저장소 생성
func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

func (r *categoryRepository) Create(ctx context.Context, category *domain.Category) error {
	return r.db.WithContext(ctx).Create(category).Error
}

func (r *categoryRepository) FindBySlug(ctx context.Context, slug string) (*domain.Category, error) {
	var category domain.Category
	err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&category).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrCategoryNotFound
		}
		return nil, err
	}
	return &category, nil
}

// FindBySlugs returns the categories for the given slugs; a slug with no row
// yields ErrCategoryNotFound.
func (r *categoryRepository) FindBySlugs(ctx context.Context, slugs []string) ([]domain.Category, error) {
	categories := []domain.Category{}
	if len(slugs) == 0 {
		return categories, nil
	}

	uniq := make(map[string]struct{}, len(slugs))
	for _, s := range slugs {
		uniq[s] = struct{}{}
	}

	if err := r.db.WithContext(ctx).Where("slug IN ?", slugs).Order("name ASC").Find(&categories).Error; err != nil {
		return nil, err
	}
	if len(categories) != len(uniq) {
		return nil, common.ErrCategoryNotFound
	}
	return categories, nil
}

// ListWithCounts returns every category with the number of published rules in it
func (r *categoryRepository) ListWithCounts(ctx context.Context) ([]domain.CategoryWithCount, error) {
	rows := []domain.CategoryWithCount{}
	err := r.db.WithContext(ctx).
		Table("categories").
		Select("categories.id, categories.name, categories.slug, categories.description, COUNT(rules.id) AS rule_count").
		Joins("LEFT JOIN rule_categories ON rule_categories.category_id = categories.id").
		Joins("LEFT JOIN rules ON rules.id = rule_categories.rule_id AND rules.published = ?", true).
		Group("categories.id, categories.name, categories.slug, categories.description").
		Order("categories.name ASC").
		Scan(&rows).Error
	return rows, err
}

package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/rulehub/rulehub-backend/internal/common"
	"github.com/rulehub/rulehub-backend/internal/domain"
	"gorm.io/gorm"
)

// RuleRepository 규칙 저장소 인터페이스
type RuleRepository interface {
	List(ctx context.Context, q domain.RuleQuery) ([]*domain.Rule, int64, error)
	ListPublished(ctx context.Context) ([]*domain.Rule, error)
	FindBySlug(ctx context.Context, slug string, publishedOnly bool) (*domain.Rule, error)
	ExistsBySlug(ctx context.Context, slug string) (bool, error)
	Create(ctx context.Context, rule *domain.Rule) error
	Update(ctx context.Context, rule *domain.Rule, categories []domain.Category) error
	Delete(ctx context.Context, slug string) error
	IncrementCounter(ctx context.Context, slug string, column CounterColumn) (*domain.Rule, error)
	Count(ctx context.Context) (int64, error)
}

// CounterColumn names an engagement counter column
type CounterColumn string

const (
	CounterViews     CounterColumn = "view_count"
	CounterCopies    CounterColumn = "copy_count"
	CounterUpvotes   CounterColumn = "upvotes"
	CounterDownvotes CounterColumn = "downvotes"
)

func (c CounterColumn) valid() bool {
	switch c {
	case CounterViews, CounterCopies, CounterUpvotes, CounterDownvotes:
		return true
	}
	return false
}

type ruleRepository struct {
	db *gorm.DB
}

// NewRuleRepository 규칙 저장소 생성
func NewRuleRepository(db *gorm.DB) RuleRepository {
	return &ruleRepository{db: db}
}

// likeEscaper escapes LIKE wildcards using '!' as the escape character,
// which behaves the same on MySQL and SQLite.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// ContainsPattern builds a lower-cased, escaped LIKE pattern for substring match.
// SQLite's LOWER folds ASCII only, so upper-case non-ASCII letters stored in a
// rule never match there. MySQL's utf8mb4 collations fold them.
func ContainsPattern(term string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(term)) + "%"
}

// listScope applies the published/search/category filters shared by count and page queries
func listScope(q domain.RuleQuery) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		db = db.Where("rules.published = ?", true)

		if term := strings.TrimSpace(q.Search); term != "" {
			p := ContainsPattern(term)
			db = db.Where(
				"(LOWER(rules.title) LIKE ? ESCAPE '!' OR LOWER(rules.description) LIKE ? ESCAPE '!' OR LOWER(rules.content) LIKE ? ESCAPE '!')",
				p, p, p,
			)
		}

		if slug := q.CategoryFilter(); slug != "" {
			db = db.Where(
				"EXISTS (SELECT 1 FROM rule_categories rc JOIN categories c ON c.id = rc.category_id WHERE rc.rule_id = rules.id AND c.slug = ?)",
				slug,
			)
		}
		return db
	}
}

// List returns one page of published rules plus the total match count.
// q is expected to be normalized (page >= 1, limit >= 1).
func (r *ruleRepository) List(ctx context.Context, q domain.RuleQuery) ([]*domain.Rule, int64, error) {
	db := r.db.WithContext(ctx)

	var total int64
	if err := db.Model(&domain.Rule{}).Scopes(listScope(q)).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	rules := []*domain.Rule{}
	if total == 0 {
		return rules, 0, nil
	}

	// 정렬: 기준 컬럼 DESC, 동률은 id ASC로 고정 (페이지 경계 안정성)
	order := "rules." + q.SortBy.OrderColumn() + " DESC, rules.id ASC"
	offset := (q.Page - 1) * q.Limit

	err := db.Model(&domain.Rule{}).
		Scopes(listScope(q)).
		Preload("Categories", func(tx *gorm.DB) *gorm.DB { return tx.Order("categories.name ASC") }).
		Order(order).
		Offset(offset).
		Limit(q.Limit).
		Find(&rules).Error
	if err != nil {
		return nil, 0, err
	}
	return rules, total, nil
}

func (r *ruleRepository) ListPublished(ctx context.Context) ([]*domain.Rule, error) {
	var rules []*domain.Rule
	err := r.db.WithContext(ctx).
		Where("published = ?", true).
		Order("id ASC").
		Find(&rules).Error
	return rules, err
}

func (r *ruleRepository) FindBySlug(ctx context.Context, slug string, publishedOnly bool) (*domain.Rule, error) {
	query := r.db.WithContext(ctx).Preload("Categories").Where("slug = ?", slug)
	if publishedOnly {
		query = query.Where("published = ?", true)
	}

	var rule domain.Rule
	if err := query.First(&rule).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrRuleNotFound
		}
		return nil, err
	}
	return &rule, nil
}

func (r *ruleRepository) ExistsBySlug(ctx context.Context, slug string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.Rule{}).Where("slug = ?", slug).Count(&n).Error
	return n > 0, err
}

// Create inserts the rule together with its category associations
func (r *ruleRepository) Create(ctx context.Context, rule *domain.Rule) error {
	return r.db.WithContext(ctx).Create(rule).Error
}

// Update saves rule fields; categories replaces the association when non-nil
func (r *ruleRepository) Update(ctx context.Context, rule *domain.Rule, categories []domain.Category) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Categories").Save(rule).Error; err != nil {
			return err
		}
		if categories == nil {
			return nil
		}
		if err := tx.Model(rule).Association("Categories").Replace(categories); err != nil {
			return err
		}
		rule.Categories = categories
		return nil
	})
}

func (r *ruleRepository) Delete(ctx context.Context, slug string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rule domain.Rule
		if err := tx.Where("slug = ?", slug).First(&rule).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return common.ErrRuleNotFound
			}
			return err
		}
		return tx.Select("Categories").Delete(&rule).Error
	})
}

// IncrementCounter atomically bumps one engagement counter of a published rule
// and returns the rule with its updated counters.
func (r *ruleRepository) IncrementCounter(ctx context.Context, slug string, column CounterColumn) (*domain.Rule, error) {
	if !column.valid() {
		return nil, common.ErrInvalidInput
	}

	db := r.db.WithContext(ctx)
	res := db.Model(&domain.Rule{}).
		Where("slug = ? AND published = ?", slug, true).
		UpdateColumn(string(column), gorm.Expr(string(column)+" + ?", 1))
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, common.ErrRuleNotFound
	}
	return r.FindBySlug(ctx, slug, true)
}

func (r *ruleRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.Rule{}).Count(&n).Error
	return n, err
}

package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rulehub/rulehub-backend/internal/common"
	"github.com/rulehub/rulehub-backend/internal/domain"
	"github.com/rulehub/rulehub-backend/internal/publisher"
	"github.com/rulehub/rulehub-backend/internal/repository"
	"github.com/rulehub/rulehub-backend/pkg/cache"
	pkglogger "github.com/rulehub/rulehub-backend/pkg/logger"
)

const publishTimeout = 2 * time.Second

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// ListOptions page size bounds for rule listing
type ListOptions struct {
	PageSize    int
	MaxPageSize int
}

// RuleService 규칙 비즈니스 로직 인터페이스
type RuleService interface {
	NormalizeQuery(q domain.RuleQuery) domain.RuleQuery
	ListRules(ctx context.Context, q domain.RuleQuery) (*domain.RulePage, error)
	GetRule(ctx context.Context, slug, clientIP string) (*domain.RuleResponse, error)
	CopyRule(ctx context.Context, slug, clientIP string) (*domain.EngagementResponse, error)
	VoteRule(ctx context.Context, slug string, dir domain.VoteDirection, clientIP string) (*domain.EngagementResponse, error)

	// Admin
	CreateRule(ctx context.Context, req *domain.CreateRuleRequest) (*domain.RuleResponse, error)
	UpdateRule(ctx context.Context, slug string, req *domain.UpdateRuleRequest) (*domain.RuleResponse, error)
	DeleteRule(ctx context.Context, slug string) error
}

type ruleService struct {
	ruleRepo     repository.RuleRepository
	categoryRepo repository.CategoryRepository
	cache        cache.Service
	search       SearchService
	publisher    publisher.Publisher
	opts         ListOptions
}

// NewRuleService 규칙 서비스 생성
func NewRuleService(
	ruleRepo repository.RuleRepository,
	categoryRepo repository.CategoryRepository,
	cacheSvc cache.Service,
	search SearchService,
	pub publisher.Publisher,
	opts ListOptions,
) RuleService {
	if opts.PageSize <= 0 {
		opts.PageSize = 12
	}
	if opts.MaxPageSize <= 0 {
		opts.MaxPageSize = 100
	}
	if opts.PageSize > opts.MaxPageSize {
		opts.PageSize = opts.MaxPageSize
	}
	if cacheSvc == nil {
		cacheSvc = cache.NewService(nil)
	}
	if pub == nil {
		pub = publisher.Nop{}
	}
	if search == nil {
		search = NewSearchService(nil, ruleRepo, "")
	}
	return &ruleService{
		ruleRepo:     ruleRepo,
		categoryRepo: categoryRepo,
		cache:        cacheSvc,
		search:       search,
		publisher:    pub,
		opts:         opts,
	}
}

// NormalizeQuery applies page/limit defaults and caps, resolves unknown sort
// tokens to newest, drops the "all" category and trims the search term.
func (s *ruleService) NormalizeQuery(q domain.RuleQuery) domain.RuleQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = s.opts.PageSize
	}
	if q.Limit > s.opts.MaxPageSize {
		q.Limit = s.opts.MaxPageSize
	}
	q.SortBy = domain.ParseSortKey(string(q.SortBy))
	q.Category = q.CategoryFilter()
	q.Search = strings.TrimSpace(q.Search)
	return q
}

func (s *ruleService) ListRules(ctx context.Context, q domain.RuleQuery) (*domain.RulePage, error) {
	q = s.NormalizeQuery(q)
	key := q.CacheKey()

	var cached domain.RulePage
	if err := s.cache.GetRules(ctx, key, &cached); err == nil {
		return &cached, nil
	}

	rules, total, err := s.ruleRepo.List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}

	page := &domain.RulePage{
		Items:      make([]domain.RuleResponse, len(rules)),
		Pagination: domain.NewPagination(q.Page, q.Limit, total),
	}
	for i, r := range rules {
		page.Items[i] = r.ToResponse()
	}

	if err := s.cache.SetRules(ctx, key, page); err != nil {
		pkglogger.GetLogger().Warn().Err(err).Str("key", key).Msg("rules cache set failed")
	}
	return page, nil
}

// GetRule returns a published rule and records a view
func (s *ruleService) GetRule(ctx context.Context, slug, clientIP string) (*domain.RuleResponse, error) {
	rule, err := s.ruleRepo.IncrementCounter(ctx, slug, repository.CounterViews)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, domain.EngagementView, rule, clientIP)
	resp := rule.ToResponse()
	return &resp, nil
}

func (s *ruleService) CopyRule(ctx context.Context, slug, clientIP string) (*domain.EngagementResponse, error) {
	rule, err := s.ruleRepo.IncrementCounter(ctx, slug, repository.CounterCopies)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, domain.EngagementCopy, rule, clientIP)
	return engagementOf(rule), nil
}

func (s *ruleService) VoteRule(ctx context.Context, slug string, dir domain.VoteDirection, clientIP string) (*domain.EngagementResponse, error) {
	var (
		column repository.CounterColumn
		typ    domain.EngagementType
	)
	switch dir {
	case domain.VoteUp:
		column, typ = repository.CounterUpvotes, domain.EngagementUpvote
	case domain.VoteDown:
		column, typ = repository.CounterDownvotes, domain.EngagementDownvote
	default:
		return nil, fmt.Errorf("%w: unknown vote direction %q", common.ErrInvalidInput, dir)
	}

	rule, err := s.ruleRepo.IncrementCounter(ctx, slug, column)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, typ, rule, clientIP)
	return engagementOf(rule), nil
}

// ========================================
// Admin
// ========================================

func (s *ruleService) CreateRule(ctx context.Context, req *domain.CreateRuleRequest) (*domain.RuleResponse, error) {
	slug := strings.TrimSpace(req.Slug)
	if !slugPattern.MatchString(slug) {
		return nil, fmt.Errorf("%w: slug must be lowercase words joined by '-'", common.ErrInvalidInput)
	}

	exists, err := s.ruleRepo.ExistsBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, common.ErrSlugTaken
	}

	categories, err := s.categoryRepo.FindBySlugs(ctx, req.CategorySlugs)
	if err != nil {
		return nil, err
	}

	rule := &domain.Rule{
		Slug:        slug,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Content:     req.Content,
		Published:   true,
		Categories:  categories,
	}
	rule.SetTags(req.Tags)

	if err := s.ruleRepo.Create(ctx, rule); err != nil {
		return nil, fmt.Errorf("create rule: %w", err)
	}
	// published defaults to true at the column level
	if req.Published != nil && !*req.Published {
		rule.Published = false
		if err := s.ruleRepo.Update(ctx, rule, nil); err != nil {
			return nil, fmt.Errorf("unpublish rule: %w", err)
		}
	}

	s.afterWrite(ctx, rule, false)
	resp := rule.ToResponse()
	return &resp, nil
}

func (s *ruleService) UpdateRule(ctx context.Context, slug string, req *domain.UpdateRuleRequest) (*domain.RuleResponse, error) {
	rule, err := s.ruleRepo.FindBySlug(ctx, slug, false)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		rule.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		rule.Description = *req.Description
	}
	if req.Content != nil {
		rule.Content = *req.Content
	}
	if req.Tags != nil {
		rule.SetTags(req.Tags)
	}
	if req.Published != nil {
		rule.Published = *req.Published
	}

	var categories []domain.Category
	if req.CategorySlugs != nil {
		if categories, err = s.categoryRepo.FindBySlugs(ctx, req.CategorySlugs); err != nil {
			return nil, err
		}
	}

	if err := s.ruleRepo.Update(ctx, rule, categories); err != nil {
		return nil, fmt.Errorf("update rule: %w", err)
	}

	s.afterWrite(ctx, rule, false)
	resp := rule.ToResponse()
	return &resp, nil
}

func (s *ruleService) DeleteRule(ctx context.Context, slug string) error {
	rule, err := s.ruleRepo.FindBySlug(ctx, slug, false)
	if err != nil {
		return err
	}
	if err := s.ruleRepo.Delete(ctx, slug); err != nil {
		return err
	}
	s.afterWrite(ctx, rule, true)
	return nil
}

// afterWrite invalidates list/category caches and syncs the suggest index.
// Failures are logged; the database write has already succeeded.
func (s *ruleService) afterWrite(ctx context.Context, rule *domain.Rule, deleted bool) {
	log := pkglogger.GetLogger()
	if err := s.cache.InvalidateRules(ctx); err != nil {
		log.Warn().Err(err).Msg("rules cache invalidation failed")
	}
	if err := s.cache.InvalidateCategories(ctx); err != nil {
		log.Warn().Err(err).Msg("categories cache invalidation failed")
	}

	var err error
	if deleted {
		err = s.search.RemoveRule(ctx, rule)
	} else {
		err = s.search.IndexRule(ctx, rule)
	}
	if err != nil {
		log.Warn().Err(err).Str("slug", rule.Slug).Msg("search index sync failed")
	}
}

// publish emits an engagement event without failing the request
func (s *ruleService) publish(ctx context.Context, typ domain.EngagementType, rule *domain.Rule, clientIP string) {
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	event := domain.EngagementEvent{
		Type:       typ,
		RuleID:     rule.ID,
		Slug:       rule.Slug,
		ClientIP:   clientIP,
		OccurredAt: time.Now().UTC(),
	}
	if err := s.publisher.Publish(pctx, event); err != nil {
		pkglogger.GetLogger().Warn().Err(err).Str("type", string(typ)).Str("slug", rule.Slug).Msg("engagement publish failed")
	}
}

func engagementOf(r *domain.Rule) *domain.EngagementResponse {
	return &domain.EngagementResponse{
		Slug:      r.Slug,
		ViewCount: r.ViewCount,
		CopyCount: r.CopyCount,
		Upvotes:   r.Upvotes,
		Downvotes: r.Downvotes,
	}
}

// IsNotFound reports whether err is one of the not-found sentinels
func IsNotFound(err error) bool {
	return errors.Is(err, common.ErrRuleNotFound) ||
		errors.Is(err, common.ErrCategoryNotFound) ||
		errors.Is(err, common.ErrNotFound)
}

package service

import (
	"context"
	"sync"

	"github.com/rulehub/rulehub-backend/internal/domain"
	"github.com/rulehub/rulehub-backend/internal/repository"
	pkges "github.com/rulehub/rulehub-backend/pkg/elasticsearch"
	"github.com/stretchr/testify/mock"
)

// --- Mock RuleRepository ---

type mockRuleRepo struct {
	mock.Mock
}

func (m *mockRuleRepo) List(ctx context.Context, q domain.RuleQuery) ([]*domain.Rule, int64, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*domain.Rule), args.Get(1).(int64), args.Error(2)
}

func (m *mockRuleRepo) ListPublished(ctx context.Context) ([]*domain.Rule, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Rule), args.Error(1)
}

func (m *mockRuleRepo) FindBySlug(ctx context.Context, slug string, publishedOnly bool) (*domain.Rule, error) {
	args := m.Called(ctx, slug, publishedOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Rule), args.Error(1)
}

func (m *mockRuleRepo) ExistsBySlug(ctx context.Context, slug string) (bool, error) {
	args := m.Called(ctx, slug)
	return args.Bool(0), args.Error(1)
}

func (m *mockRuleRepo) Create(ctx context.Context, rule *domain.Rule) error {
	return m.Called(ctx, rule).Error(0)
}

func (m *mockRuleRepo) Update(ctx context.Context, rule *domain.Rule, categories []domain.Category) error {
	return m.Called(ctx, rule, categories).Error(0)
}

func (m *mockRuleRepo) Delete(ctx context.Context, slug string) error {
	return m.Called(ctx, slug).Error(0)
}

func (m *mockRuleRepo) IncrementCounter(ctx context.Context, slug string, column repository.CounterColumn) (*domain.Rule, error) {
	args := m.Called(ctx, slug, column)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Rule), args.Error(1)
}

func (m *mockRuleRepo) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// --- Mock CategoryRepository ---

type mockCategoryRepo struct {
	mock.Mock
}

func (m *mockCategoryRepo) Create(ctx context.Context, category *domain.Category) error {
	return m.Called(ctx, category).Error(0)
}

func (m *mockCategoryRepo) FindBySlug(ctx context.Context, slug string) (*domain.Category, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Category), args.Error(1)
}

func (m *mockCategoryRepo) FindBySlugs(ctx context.Context, slugs []string) ([]domain.Category, error) {
	args := m.Called(ctx, slugs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Category), args.Error(1)
}

func (m *mockCategoryRepo) ListWithCounts(ctx context.Context) ([]domain.CategoryWithCount, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.CategoryWithCount), args.Error(1)
}

// --- Mock SearchBackend ---

type mockSearchBackend struct {
	mock.Mock
}

func (m *mockSearchBackend) CreateIndex(ctx context.Context, index string, mapping interface{}) error {
	return m.Called(ctx, index, mapping).Error(0)
}

func (m *mockSearchBackend) IndexDocument(ctx context.Context, index, docID string, body interface{}) error {
	return m.Called(ctx, index, docID, body).Error(0)
}

func (m *mockSearchBackend) DeleteDocument(ctx context.Context, index, docID string) error {
	return m.Called(ctx, index, docID).Error(0)
}

func (m *mockSearchBackend) BulkIndex(ctx context.Context, index string, docs []pkges.Document) error {
	return m.Called(ctx, index, docs).Error(0)
}

func (m *mockSearchBackend) Suggest(ctx context.Context, index, field, text string, size int) ([]string, error) {
	args := m.Called(ctx, index, field, text, size)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// --- recording publisher ---

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.EngagementEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e domain.EngagementEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) Events() []domain.EngagementEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.EngagementEvent(nil), p.events...)
}

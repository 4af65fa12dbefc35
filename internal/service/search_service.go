package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rulehub/rulehub-backend/internal/domain"
	"github.com/rulehub/rulehub-backend/internal/repository"
	pkges "github.com/rulehub/rulehub-backend/pkg/elasticsearch"
	pkglogger "github.com/rulehub/rulehub-backend/pkg/logger"
)

const (
	// SuggestField completion field for title autocomplete
	SuggestField = "title_suggest"

	DefaultSuggestSize = 8
	MaxSuggestSize     = 20
)

// SearchBackend is the subset of the elasticsearch client the search service needs
type SearchBackend interface {
	CreateIndex(ctx context.Context, index string, mapping interface{}) error
	IndexDocument(ctx context.Context, index, docID string, body interface{}) error
	DeleteDocument(ctx context.Context, index, docID string) error
	BulkIndex(ctx context.Context, index string, docs []pkges.Document) error
	Suggest(ctx context.Context, index, field, text string, size int) ([]string, error)
}

// RuleDocument represents a rule indexed in Elasticsearch
type RuleDocument struct {
	Slug         string     `json:"slug"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Tags         []string   `json:"tags"`
	TitleSuggest Completion `json:"title_suggest"`
}

// Completion is the input of a completion-suggester field
type Completion struct {
	Input []string `json:"input"`
}

// NewRuleDocument builds the index document for a rule. Autocomplete inputs
// are the full title plus each title word so mid-title prefixes match.
func NewRuleDocument(r *domain.Rule) RuleDocument {
	inputs := []string{r.Title}
	words := strings.Fields(r.Title)
	if len(words) > 1 {
		inputs = append(inputs, words[1:]...)
	}
	return RuleDocument{
		Slug:        r.Slug,
		Title:       r.Title,
		Description: r.Description,
		Tags:        r.TagList(),
		TitleSuggest: Completion{Input: inputs},
	}
}

// SearchService 규칙 제목 자동완성 (Elasticsearch). A nil backend disables it.
type SearchService interface {
	EnsureIndex(ctx context.Context) error
	Suggest(ctx context.Context, prefix string, size int) ([]string, error)
	IndexRule(ctx context.Context, rule *domain.Rule) error
	RemoveRule(ctx context.Context, rule *domain.Rule) error
	Reindex(ctx context.Context) (int, error)
	Enabled() bool
}

type searchService struct {
	backend  SearchBackend
	ruleRepo repository.RuleRepository
	index    string
}

// NewSearchService 검색 서비스 생성
func NewSearchService(backend SearchBackend, ruleRepo repository.RuleRepository, index string) SearchService {
	return &searchService{backend: backend, ruleRepo: ruleRepo, index: index}
}

func (s *searchService) Enabled() bool {
	return s.backend != nil
}

func (s *searchService) EnsureIndex(ctx context.Context) error {
	if s.backend == nil {
		return nil
	}
	mapping := map[string]interface{}{
		"mappings": map[string]interface{}{
			"properties": map[string]interface{}{
				"slug":        map[string]interface{}{"type": "keyword"},
				"title":       map[string]interface{}{"type": "text"},
				"description": map[string]interface{}{"type": "text"},
				"tags":        map[string]interface{}{"type": "keyword"},
				SuggestField: map[string]interface{}{
					"type":     "completion",
					"analyzer": "simple",
				},
			},
		},
	}
	if err := s.backend.CreateIndex(ctx, s.index, mapping); err != nil {
		return fmt.Errorf("create rules index: %w", err)
	}
	return nil
}

// Suggest returns title completions for prefix; empty when disabled or prefix is blank
func (s *searchService) Suggest(ctx context.Context, prefix string, size int) ([]string, error) {
	prefix = strings.TrimSpace(prefix)
	if s.backend == nil || prefix == "" {
		return []string{}, nil
	}
	if size <= 0 {
		size = DefaultSuggestSize
	}
	if size > MaxSuggestSize {
		size = MaxSuggestSize
	}
	return s.backend.Suggest(ctx, s.index, SuggestField, prefix, size)
}

// IndexRule indexes a published rule, or removes it when unpublished
func (s *searchService) IndexRule(ctx context.Context, rule *domain.Rule) error {
	if s.backend == nil {
		return nil
	}
	if !rule.Published {
		return s.RemoveRule(ctx, rule)
	}
	return s.backend.IndexDocument(ctx, s.index, rule.ID, NewRuleDocument(rule))
}

func (s *searchService) RemoveRule(ctx context.Context, rule *domain.Rule) error {
	if s.backend == nil {
		return nil
	}
	return s.backend.DeleteDocument(ctx, s.index, rule.ID)
}

// Reindex bulk-indexes every published rule and returns the count
func (s *searchService) Reindex(ctx context.Context) (int, error) {
	if s.backend == nil {
		return 0, nil
	}
	if err := s.EnsureIndex(ctx); err != nil {
		return 0, err
	}

	rules, err := s.ruleRepo.ListPublished(ctx)
	if err != nil {
		return 0, fmt.Errorf("list published rules: %w", err)
	}

	docs := make([]pkges.Document, 0, len(rules))
	for _, r := range rules {
		docs = append(docs, pkges.Document{ID: r.ID, Body: NewRuleDocument(r)})
	}
	if err := s.backend.BulkIndex(ctx, s.index, docs); err != nil {
		return 0, fmt.Errorf("bulk index rules: %w", err)
	}

	pkglogger.GetLogger().Info().Int("count", len(docs)).Str("index", s.index).Msg("rules reindexed")
	return len(docs), nil
}

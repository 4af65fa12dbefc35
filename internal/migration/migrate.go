package migration

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/rulehub/rulehub-backend/internal/domain"
)

// Run executes AutoMigrate for the catalog tables and seeds a starter catalog if empty.
func Run(db *gorm.DB) error {
	// 1. AutoMigrate - 테이블 없으면 생성, 있으면 skip
	if err := db.AutoMigrate(&domain.Category{}, &domain.Rule{}, &domain.AuditLog{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	// 2. Seed - rules 테이블이 비어있을 때만 기본 데이터 삽입
	var count int64
	if err := db.Model(&domain.Rule{}).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return seed(db)
	}

	return nil
}

type seedRule struct {
	slug, title, description, content string
	tags                               []string
	categories                         []string
}

var seedCategories = []domain.Category{
	{Name: "Backend", Slug: "backend", Description: "Server-side conventions"},
	{Name: "Frontend", Slug: "frontend", Description: "UI and component conventions"},
	{Name: "Testing", Slug: "testing", Description: "Test structure and tooling"},
	{Name: "Security", Slug: "security", Description: "Secure coding rules"},
	{Name: "Go", Slug: "go", Description: "Go language idioms"},
	{Name: "TypeScript", Slug: "typescript", Description: "TypeScript language idioms"},
}

var seedRules = []seedRule{
	{"go-error-wrapping", "Go error wrapping", "Wrap errors with context using %w.", "Always wrap returned errors with fmt.Errorf and %w so callers can use errors.Is.", []string{"go", "errors"}, []string{"go", "backend"}},
	{"go-context-first", "Context as first parameter", "Blocking calls take ctx first.", "Every function that performs I/O accepts context.Context as its first argument.", []string{"go", "context"}, []string{"go", "backend"}},
	{"table-driven-tests", "Table-driven tests", "Prefer test tables for input grids.", "Group related cases in a slice of structs and run them with t.Run.", []string{"go", "testing"}, []string{"go", "testing"}},
	{"no-secrets-in-logs", "No secrets in logs", "Never log tokens or passwords.", "Redact credentials before logging request or config data.", []string{"logging"}, []string{"security", "backend"}},
	{"parameterized-queries", "Parameterized queries only", "Avoid SQL string concatenation.", "Pass user input as bind parameters; never format it into SQL text.", []string{"sql"}, []string{"security", "backend"}},
	{"react-hooks-deps", "Complete hook dependency lists", "List every value a hook reads.", "useEffect and useMemo dependency arrays include every reactive value they read.", []string{"react"}, []string{"frontend", "typescript"}},
	{"strict-null-checks", "Enable strictNullChecks", "Turn on strict mode in tsconfig.", "Compile with strict mode so null and undefined are checked explicitly.", []string{"tsconfig"}, []string{"typescript"}},
	{"avoid-any", "Avoid the any type", "Use unknown and narrow instead.", "Prefer unknown over any and narrow the value with type guards.", []string{"types"}, []string{"typescript", "frontend"}},
	{"accessible-buttons", "Accessible buttons", "Buttons need discernible text.", "Icon-only buttons carry an aria-label describing the action.", []string{"a11y"}, []string{"frontend"}},
	{"test-isolation", "Isolated tests", "Tests must not share mutable state.", "Each test builds its own fixtures and cleans up after itself.", []string{"testing"}, []string{"testing"}},
	{"http-timeouts", "Set HTTP timeouts", "Clients and servers need timeouts.", "Configure read, write and idle timeouts on servers and a timeout on every client.", []string{"http"}, []string{"backend", "go"}},
	{"csrf-tokens", "CSRF protection on forms", "State-changing forms need CSRF tokens.", "Validate a per-session token on every state-changing request from a browser form.", []string{"web"}, []string{"security", "frontend"}},
	{"snapshot-tests-sparingly", "Use snapshot tests sparingly", "Snapshots hide intent.", "Assert on specific output instead of large snapshots that get rubber-stamped.", []string{"testing"}, []string{"testing", "frontend"}},
	{"goroutine-ownership", "Goroutine ownership", "Whoever starts a goroutine stops it.", "Tie each goroutine to a context or done channel owned by its creator.", []string{"go", "concurrency"}, []string{"go"}},
}

func seed(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		bySlug := make(map[string]domain.Category, len(seedCategories))
		for _, c := range seedCategories {
			c := c
			if err := tx.Create(&c).Error; err != nil {
				return fmt.Errorf("seed category %s: %w", c.Slug, err)
			}
			bySlug[c.Slug] = c
		}

		// 오래된 것부터 생성 시각을 하루씩 늘려 newest 정렬이 결정적이도록
		base := time.Now().Add(-time.Duration(len(seedRules)) * 24 * time.Hour)
		for i, s := range seedRules {
			rule := domain.Rule{
				Slug:        s.slug,
				Title:       s.title,
				Description: s.description,
				Content:     s.content,
				Published:   true,
				CreatedAt:   base.Add(time.Duration(i) * 24 * time.Hour),
			}
			rule.SetTags(s.tags)
			for _, slug := range s.categories {
				rule.Categories = append(rule.Categories, bySlug[slug])
			}
			if err := tx.Create(&rule).Error; err != nil {
				return fmt.Errorf("seed rule %s: %w", s.slug, err)
			}
		}
		return nil
	})
}

// Reset drops the catalog tables, join table first.
func Reset(db *gorm.DB) error {
	return db.Migrator().DropTable("rule_categories", &domain.Rule{}, &domain.Category{})
}

// Stats row counts reported by the migrate command
type Stats struct {
	Rules          int64
	PublishedRules int64
	Categories     int64
	Links          int64
}

// Verify counts catalog rows and reports rule_categories links whose rule or category is missing.
func Verify(db *gorm.DB) (Stats, error) {
	var s Stats
	if err := db.Model(&domain.Rule{}).Count(&s.Rules).Error; err != nil {
		return s, err
	}
	if err := db.Model(&domain.Rule{}).Where("published = ?", true).Count(&s.PublishedRules).Error; err != nil {
		return s, err
	}
	if err := db.Model(&domain.Category{}).Count(&s.Categories).Error; err != nil {
		return s, err
	}
	if err := db.Table("rule_categories").Count(&s.Links).Error; err != nil {
		return s, err
	}

	var orphans int64
	err := db.Table("rule_categories AS rc").
		Joins("LEFT JOIN rules r ON r.id = rc.rule_id").
		Joins("LEFT JOIN categories c ON c.id = rc.category_id").
		Where("r.id IS NULL OR c.id IS NULL").
		Count(&orphans).Error
	if err != nil {
		return s, err
	}
	if orphans > 0 {
		return s, fmt.Errorf("%d orphaned rule_categories rows", orphans)
	}
	return s, nil
}

package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CategoryAll is the browse sentinel meaning "no category constraint"
const CategoryAll = "all"

// Category 규칙 카테고리
type Category struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	Name        string    `gorm:"column:name;size:100;not null" json:"name"`
	Slug        string    `gorm:"column:slug;size:100;not null;uniqueIndex" json:"slug"`
	Description string    `gorm:"column:description;type:text" json:"description"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (Category) TableName() string {
	return "categories"
}

// BeforeCreate assigns an opaque id when the caller did not
func (c *Category) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// CategoryWithCount is a category row plus the number of published rules in it
type CategoryWithCount struct {
	ID          string
	Name        string
	Slug        string
	Description string
	RuleCount   int64
}

// CategoryResponse 카테고리 응답
type CategoryResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	RuleCount   int64  `json:"ruleCount"`
}

// ToResponse CategoryWithCount를 CategoryResponse로 변환
func (c *CategoryWithCount) ToResponse() CategoryResponse {
	return CategoryResponse{
		ID:          c.ID,
		Name:        c.Name,
		Slug:        c.Slug,
		Description: c.Description,
		RuleCount:   c.RuleCount,
	}
}

// CreateCategoryRequest 카테고리 생성 요청
type CreateCategoryRequest struct {
	Name        string `json:"name" binding:"required,max=100"`
	Slug        string `json:"slug" binding:"required,max=100"`
	Description string `json:"description"`
}

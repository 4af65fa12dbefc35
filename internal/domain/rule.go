package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Rule 규칙 문서 엔티티
type Rule struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	Slug        string    `gorm:"column:slug;size:191;not null;uniqueIndex" json:"slug"`
	Title       string    `gorm:"column:title;size:255;not null" json:"title"`
	Description string    `gorm:"column:description;type:text" json:"description"`
	Content     string    `gorm:"column:content;type:text" json:"content"`
	Tags        string    `gorm:"column:tags;type:text" json:"tags"` // JSON array
	ViewCount   int64     `gorm:"column:view_count;not null;default:0;index" json:"view_count"`
	CopyCount   int64     `gorm:"column:copy_count;not null;default:0;index" json:"copy_count"`
	Upvotes     int64     `gorm:"column:upvotes;not null;default:0;index" json:"upvotes"`
	Downvotes   int64     `gorm:"column:downvotes;not null;default:0" json:"downvotes"`
	Published   bool      `gorm:"column:published;not null;default:true;index" json:"published"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime;index" json:"created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`

	// Relations
	Categories []Category `gorm:"many2many:rule_categories;" json:"categories,omitempty"`
}

func (Rule) TableName() string {
	return "rules"
}

// BeforeCreate assigns an opaque id when the caller did not
func (r *Rule) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// TagList decodes the stored JSON tag array
func (r *Rule) TagList() []string {
	tags := []string{}
	if r.Tags == "" {
		return tags
	}
	_ = json.Unmarshal([]byte(r.Tags), &tags)
	return tags
}

// SetTags encodes tags into the stored JSON column
func (r *Rule) SetTags(tags []string) {
	if tags == nil {
		tags = []string{}
	}
	data, _ := json.Marshal(tags)
	r.Tags = string(data)
}

// CategoryRef is the {name, slug} pair attached to a rule
type CategoryRef struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// RuleResponse 규칙 응답 (browse item)
type RuleResponse struct {
	ID          string        `json:"id"`
	Slug        string        `json:"slug"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Content     string        `json:"content"`
	Tags        []string      `json:"tags"`
	ViewCount   int64         `json:"viewCount"`
	CopyCount   int64         `json:"copyCount"`
	Upvotes     int64         `json:"upvotes"`
	Downvotes   int64         `json:"downvotes"`
	Categories  []CategoryRef `json:"categories"`
	CreatedAt   time.Time     `json:"createdAt"`
}

// ToResponse Rule을 RuleResponse로 변환
func (r *Rule) ToResponse() RuleResponse {
	refs := make([]CategoryRef, len(r.Categories))
	for i, c := range r.Categories {
		refs[i] = CategoryRef{Name: c.Name, Slug: c.Slug}
	}
	return RuleResponse{
		ID:          r.ID,
		Slug:        r.Slug,
		Title:       r.Title,
		Description: r.Description,
		Content:     r.Content,
		Tags:        r.TagList(),
		ViewCount:   r.ViewCount,
		CopyCount:   r.CopyCount,
		Upvotes:     r.Upvotes,
		Downvotes:   r.Downvotes,
		Categories:  refs,
		CreatedAt:   r.CreatedAt,
	}
}

// CreateRuleRequest 규칙 생성 요청
type CreateRuleRequest struct {
	Slug          string   `json:"slug" binding:"required,max=191"`
	Title         string   `json:"title" binding:"required,max=255"`
	Description   string   `json:"description"`
	Content       string   `json:"content" binding:"required"`
	Tags          []string `json:"tags" binding:"max=20"`
	CategorySlugs []string `json:"categories"`
	Published     *bool    `json:"published"`
}

// UpdateRuleRequest 규칙 수정 요청
type UpdateRuleRequest struct {
	Title         *string  `json:"title" binding:"omitempty,max=255"`
	Description   *string  `json:"description"`
	Content       *string  `json:"content"`
	Tags          []string `json:"tags" binding:"omitempty,max=20"`
	CategorySlugs []string `json:"categories"`
	Published     *bool    `json:"published"`
}

// VoteDirection up/down
type VoteDirection string

const (
	VoteUp   VoteDirection = "up"
	VoteDown VoteDirection = "down"
)

// VoteRequest 투표 요청
type VoteRequest struct {
	Direction VoteDirection `json:"direction" binding:"required,oneof=up down"`
}

// EngagementResponse returns the counters after an engagement write
type EngagementResponse struct {
	Slug      string `json:"slug"`
	ViewCount int64  `json:"viewCount"`
	CopyCount int64  `json:"copyCount"`
	Upvotes   int64  `json:"upvotes"`
	Downvotes int64  `json:"downvotes"`
}

package domain

import (
	"net/url"
	"strconv"
	"strings"
)

// SortKey 규칙 목록 정렬 기준
type SortKey string

const (
	SortNewest     SortKey = "newest"
	SortMostCopied SortKey = "most-copied"
	SortTopVoted   SortKey = "top-voted"
)

// DefaultSort is used when no or an unknown sort token is given
const DefaultSort = SortNewest

// ParseSortKey maps a wire token to a SortKey, falling back to DefaultSort
func ParseSortKey(s string) SortKey {
	switch SortKey(s) {
	case SortNewest, SortMostCopied, SortTopVoted:
		return SortKey(s)
	default:
		return DefaultSort
	}
}

// Valid reports whether k is one of the known sort tokens
func (k SortKey) Valid() bool {
	switch k {
	case SortNewest, SortMostCopied, SortTopVoted:
		return true
	}
	return false
}

// OrderColumn returns the rules column the sort key orders by (descending)
func (k SortKey) OrderColumn() string {
	switch k {
	case SortMostCopied:
		return "copy_count"
	case SortTopVoted:
		return "upvotes"
	default:
		return "created_at"
	}
}

// Pagination 페이지 메타데이터
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

// NewPagination computes totalPages as ceil(total/limit)
func NewPagination(page, limit int, total int64) Pagination {
	totalPages := 0
	if limit > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	return Pagination{Page: page, Limit: limit, Total: total, TotalPages: totalPages}
}

// HasMore reports whether a page after the current one exists
func (p Pagination) HasMore() bool {
	return p.Page < p.TotalPages
}

// RulePage 규칙 목록 응답 (items + pagination)
type RulePage struct {
	Items      []RuleResponse `json:"items"`
	Pagination Pagination     `json:"pagination"`
}

// RuleQuery 규칙 목록 조회 파라미터
type RuleQuery struct {
	Page     int
	Limit    int
	SortBy   SortKey
	Category string // slug; empty or CategoryAll means no constraint
	Search   string
}

// CategoryFilter returns the category slug to constrain by, or "" for none
func (q RuleQuery) CategoryFilter() string {
	if q.Category == CategoryAll {
		return ""
	}
	return q.Category
}

// Values encodes the query as request parameters for the list endpoint
func (q RuleQuery) Values() url.Values {
	v := url.Values{}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	sort := q.SortBy
	if !sort.Valid() {
		sort = DefaultSort
	}
	v.Set("sortBy", string(sort))
	if c := q.CategoryFilter(); c != "" {
		v.Set("category", c)
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		v.Set("search", q.Search)
	}
	return v
}

// CacheKey is a stable key for the normalized query
func (q RuleQuery) CacheKey() string {
	return q.Values().Encode()
}

// BrowseResponse initial browse payload
type BrowseResponse struct {
	Items      []RuleResponse     `json:"items"`
	Pagination Pagination         `json:"pagination"`
	Categories []CategoryResponse `json:"categories"`
	Filters    BrowseFilters      `json:"filters"`
}

// BrowseFilters the normalized filters the initial payload was rendered for
type BrowseFilters struct {
	Search   string  `json:"search"`
	Category string  `json:"category"`
	SortBy   SortKey `json:"sortBy"`
}

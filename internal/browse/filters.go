package browse

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/rulehub/rulehub-backend/internal/domain"
)

// URL query parameter names
const (
	ParamSearch   = "search"
	ParamCategory = "category"
	ParamSort     = "sortBy"
	ParamPage     = "page"
)

// Filters is the coordinator's working query, mirrored to the URL
type Filters struct {
	Search   string
	Category string
	Sort     domain.SortKey
	Page     int
}

// DefaultFilters all categories, newest first, page 1
func DefaultFilters() Filters {
	return Filters{Category: domain.CategoryAll, Sort: domain.DefaultSort, Page: 1}
}

// FiltersFromQuery derives filters from URL params. Missing or invalid
// values fall back to the defaults.
func FiltersFromQuery(v url.Values) Filters {
	f := DefaultFilters()
	f.Search = v.Get(ParamSearch)
	if c := v.Get(ParamCategory); c != "" {
		f.Category = c
	}
	f.Sort = domain.ParseSortKey(v.Get(ParamSort))
	if p, err := strconv.Atoi(v.Get(ParamPage)); err == nil && p > 0 {
		f.Page = p
	}
	return f
}

// Query encodes the filters for the URL. Defaults are omitted, page is always written.
func (f Filters) Query() url.Values {
	v := url.Values{}
	if f.Search != "" {
		v.Set(ParamSearch, f.Search)
	}
	if f.Category != "" && f.Category != domain.CategoryAll {
		v.Set(ParamCategory, f.Category)
	}
	if f.Sort.Valid() && f.Sort != domain.DefaultSort {
		v.Set(ParamSort, string(f.Sort))
	}
	page := f.Page
	if page < 1 {
		page = 1
	}
	v.Set(ParamPage, strconv.Itoa(page))
	return v
}

// Term is the trimmed search text; empty means no search is active
func (f Filters) Term() string {
	return strings.TrimSpace(f.Search)
}

// RuleQuery builds a list request for the filters' category and sort.
func (f Filters) RuleQuery(page, limit int, search string) domain.RuleQuery {
	q := domain.RuleQuery{
		Page:   page,
		Limit:  limit,
		SortBy: f.Sort,
		Search: search,
	}
	if f.Category != domain.CategoryAll {
		q.Category = f.Category
	}
	return q
}

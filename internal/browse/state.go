package browse

import (
	"github.com/rulehub/rulehub-backend/internal/domain"
)

// LoadingState is the single loading indicator shown by the view
type LoadingState int

const (
	Idle LoadingState = iota
	InitialLoading
	SearchLoading
	LoadingMore
)

func (s LoadingState) String() string {
	switch s {
	case InitialLoading:
		return "initialLoading"
	case SearchLoading:
		return "searchLoading"
	case LoadingMore:
		return "loadingMore"
	default:
		return "idle"
	}
}

// Snapshot is an immutable view of the coordinator state. Version grows by
// one on every render.
type Snapshot struct {
	Version     uint64
	Filters     Filters
	Items       []domain.RuleResponse // displayed
	Accumulated []domain.RuleResponse
	Pagination  domain.Pagination
	Categories  []domain.CategoryResponse
	Loading     LoadingState
}

// Empty reports the "no rules found" state, which is distinct from loading.
func (s Snapshot) Empty() bool {
	return len(s.Items) == 0 && s.Loading == Idle
}

// state holds the list data. Transitions return a new value and never
// modify slices reachable from an earlier state.
type state struct {
	filters     Filters
	accumulated []domain.RuleResponse
	displayed   []domain.RuleResponse
	pagination  domain.Pagination
	categories  []domain.CategoryResponse

	// trimmed term of the last server-side search, "" when none
	lastSearched string

	// category/sort the accumulated list was fetched for
	source listSource
}

// listSource identifies one category/sort selection. Category is "" for all.
type listSource struct {
	category string
	sort     domain.SortKey
}

func sourceOf(q domain.RuleQuery) listSource {
	return listSource{category: q.Category, sort: q.SortBy}
}

func initialState(data InitialData, f Filters) state {
	items := cloneItems(data.Items)
	return state{
		filters:      f,
		accumulated:  items,
		displayed:    items,
		pagination:   data.Pagination,
		categories:   append([]domain.CategoryResponse(nil), data.Categories...),
		lastSearched: f.Term(),
		source:       sourceOf(f.RuleQuery(1, 0, "")),
	}
}

// withFilters adopts f and re-projects the displayed list from accumulated.
func (s state) withFilters(f Filters) state {
	s.filters = f
	s.displayed = FilterLocal(s.accumulated, f.Search)
	return s
}

// withSearch sets the search text, resets the page and applies the local filter.
func (s state) withSearch(text string) state {
	f := s.filters
	f.Search = text
	f.Page = 1
	return s.withFilters(f)
}

// withSelection changes category or sort. Lists stay until the response arrives.
func (s state) withSelection(category string, sort domain.SortKey) state {
	if category == "" {
		category = domain.CategoryAll
	}
	s.filters.Category = category
	s.filters.Sort = sort
	s.filters.Page = 1
	return s
}

// replaced installs a fresh first page fetched by q. When the search box
// still holds q's term the page is shown as-is, otherwise the local filter
// is applied on top.
func (s state) replaced(page *domain.RulePage, q domain.RuleQuery) state {
	term := q.Search
	s.accumulated = cloneItems(page.Items)
	if s.filters.Term() == term {
		s.displayed = s.accumulated
	} else {
		s.displayed = FilterLocal(s.accumulated, s.filters.Search)
	}
	s.pagination = page.Pagination
	s.lastSearched = term
	s.source = sourceOf(q)
	return s
}

// appended adds the next page after the accumulated items.
func (s state) appended(page *domain.RulePage) state {
	acc := make([]domain.RuleResponse, 0, len(s.accumulated)+len(page.Items))
	acc = append(acc, s.accumulated...)
	acc = append(acc, page.Items...)
	s.accumulated = acc
	s.displayed = FilterLocal(acc, s.filters.Search)
	s.pagination = page.Pagination
	return s
}

// canLoadMore: no active search, the list matches the selected category and
// sort, and a further page exists
func (s state) canLoadMore() bool {
	return s.filters.Term() == "" &&
		s.source == sourceOf(s.filters.RuleQuery(1, 0, "")) &&
		s.pagination.Page < s.pagination.TotalPages
}

func cloneItems(items []domain.RuleResponse) []domain.RuleResponse {
	return append(make([]domain.RuleResponse, 0, len(items)), items...)
}

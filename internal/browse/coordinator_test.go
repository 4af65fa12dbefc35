package browse

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rulehub/rulehub-backend/internal/domain"
)

func TestCoordinator_InitialLoad(t *testing.T) {
	f := newFixture(t, Options{})
	items := f.initialize(12, 5, url.Values{})

	s := f.c.Snapshot()
	assert.Len(t, s.Items, 12)
	assert.Equal(t, items, s.Accumulated)
	assert.Equal(t, Idle, s.Loading)
	assert.Equal(t, 5, s.Pagination.TotalPages)
	assert.Equal(t, DefaultFilters(), s.Filters)
	assert.Len(t, s.Categories, 1)
	assert.False(t, s.Empty())

	time.Sleep(3 * testDebounce)
	assert.Zero(t, f.svc.count(), "initialize must not fetch")
}

func TestCoordinator_InitializeFromURL(t *testing.T) {
	f := newFixture(t, Options{})
	f.initialize(4, 1, url.Values{"search": {"auth"}, "category": {"go"}, "sortBy": {"top-voted"}})

	s := f.c.Snapshot()
	assert.Equal(t, "auth", s.Filters.Search)
	assert.Equal(t, "go", s.Filters.Category)
	assert.Equal(t, domain.SortTopVoted, s.Filters.Sort)
	assert.Len(t, s.Items, 4, "server-rendered items are shown as-is")

	// typing the same term again must not re-query: it was searched server-side
	f.c.OnSearchInput("auth ")
	time.Sleep(3 * testDebounce)
	assert.Zero(t, f.svc.count())
}

func TestCoordinator_DebounceCollapsesKeystrokes(t *testing.T) {
	f := newFixture(t, Options{})
	items := f.initialize(12, 5, url.Values{})

	f.c.OnSearchInput("auth")
	s := f.c.Snapshot()
	assert.Equal(t, FilterLocal(items, "auth"), s.Items)
	assert.Equal(t, Idle, s.Loading, "local filtering never shows a loading state")

	f.c.OnSearchInput("authentication")
	s = f.c.Snapshot()
	assert.Equal(t, FilterLocal(items, "authentication"), s.Items)
	assert.Less(t, len(s.Items), 12)

	call := f.svc.call(t, 0)
	assert.Equal(t, "authentication", call.q.Search)
	assert.Equal(t, 1, call.q.Page)
	assert.Equal(t, "", call.q.Category)
	assert.Equal(t, domain.SortNewest, call.q.SortBy)
	assert.Equal(t, SearchLoading, f.c.Snapshot().Loading)

	time.Sleep(3 * testDebounce)
	assert.Equal(t, 1, f.svc.count(), "exactly one remote search for the burst")

	result := makeItems("search", 1, 3)
	call.reply(rulePage(result, 1, 12, 3), nil)

	require.Eventually(t, func() bool { return f.c.Snapshot().Loading == Idle }, waitFor, tick)
	s = f.c.Snapshot()
	assert.Equal(t, result, s.Items)
	assert.Equal(t, result, s.Accumulated)
	assert.Equal(t, 1, s.Pagination.TotalPages)

	assert.Equal(t, url.Values{"search": {"authentication"}, "page": {"1"}}, f.nav.last())
}

func TestCoordinator_ScrollLoadsNextPageOnce(t *testing.T) {
	var trigger *ScrollTrigger
	f := newFixture(t, Options{LoadMoreDone: func() { trigger.Rearm() }})
	trigger = NewScrollTrigger(f.c.OnScrollNearBottom)
	items := f.initialize(12, 5, url.Values{})

	assert.True(t, trigger.OnScroll(65, 0, 100))
	assert.False(t, trigger.OnScroll(70, 0, 100), "suppressed until the page lands")
	assert.False(t, f.c.OnScrollNearBottom(), "load-more already outstanding")

	call := f.svc.call(t, 0)
	assert.Equal(t, 2, call.q.Page)
	assert.Equal(t, 12, call.q.Limit)
	assert.Empty(t, call.q.Search)
	assert.Equal(t, LoadingMore, f.c.Snapshot().Loading)

	next := makeItems("p2", 13, 12)
	call.reply(rulePage(next, 2, 12, 60), nil)

	require.Eventually(t, func() bool { return !trigger.Suppressed() }, waitFor, tick)
	s := f.c.Snapshot()
	assert.Len(t, s.Accumulated, 24)
	assert.Equal(t, items, s.Accumulated[:12])
	assert.Equal(t, next, s.Accumulated[12:])
	assert.Equal(t, s.Accumulated, s.Items)
	assert.Equal(t, 2, s.Pagination.Page)
	assert.Equal(t, Idle, s.Loading)
	assert.Equal(t, 1, f.svc.count())
}

func TestCoordinator_AccumulationStopsAtLastPage(t *testing.T) {
	f := newFixture(t, Options{})
	f.initialize(12, 3, url.Values{})

	prev := f.c.Snapshot().Accumulated
	for page := 2; page <= 3; page++ {
		require.True(t, f.c.OnScrollNearBottom())
		call := f.svc.call(t, page-2)
		assert.Equal(t, page, call.q.Page)

		next := makeItems("more", page*100, 12)
		call.reply(rulePage(next, page, 12, 36), nil)
		require.Eventually(t, func() bool { return f.c.Snapshot().Loading == Idle }, waitFor, tick)

		acc := f.c.Snapshot().Accumulated
		require.Len(t, acc, len(prev)+12)
		assert.Equal(t, prev, acc[:len(prev)])
		assert.Equal(t, next, acc[len(prev):])
		prev = acc
	}

	assert.False(t, f.c.OnScrollNearBottom())
	assert.Equal(t, 2, f.svc.count())
}

func TestCoordinator_NoLoadMoreWhileSearching(t *testing.T) {
	f := newFixture(t, Options{})
	f.initialize(12, 5, url.Values{})

	f.c.OnSearchInput("  auth ")
	assert.False(t, f.c.OnScrollNearBottom())

	// whitespace only is not an active search
	f2 := newFixture(t, Options{})
	f2.initialize(12, 5, url.Values{})
	f2.c.OnSearchInput("   ")
	assert.True(t, f2.c.OnScrollNearBottom())
}

func TestCoordinator_SearchAfterAccumulation(t *testing.T) {
	f := newFixture(t, Options{})
	accumulated := makeItems("acc", 1, 48)
	f.c.Initialize(InitialData{
		Items:      accumulated,
		Pagination: domain.NewPagination(4, 12, 60),
	}, url.Values{})

	f.c.OnSearchInput("authentication")
	s := f.c.Snapshot()
	assert.Equal(t, FilterLocal(accumulated, "authentication"), s.Items)
	assert.Len(t, s.Accumulated, 48)
	assert.Zero(t, f.svc.count(), "no request before the debounce elapses")

	call := f.svc.call(t, 0)
	assert.Equal(t, 1, call.q.Page)
	assert.Equal(t, "authentication", call.q.Search)

	result := makeItems("found", 1, 5)
	call.reply(rulePage(result, 1, 12, 5), nil)
	require.Eventually(t, func() bool { return len(f.c.Snapshot().Accumulated) == 5 }, waitFor, tick)
	assert.Equal(t, result, f.c.Snapshot().Items)

	// clearing restores the accumulated list at once, without a request
	f.c.OnSearchInput("")
	s = f.c.Snapshot()
	assert.Equal(t, s.Accumulated, s.Items)
	assert.Equal(t, Idle, s.Loading)

	time.Sleep(3 * testDebounce)
	assert.Equal(t, 1, f.svc.count())
	assert.Equal(t, url.Values{"page": {"1"}}, f.nav.last())

	// the marker was cleared, so the same term searches again
	f.c.OnSearchInput("authentication")
	again := f.svc.call(t, 1)
	assert.Equal(t, "authentication", again.q.Search)
}

func TestCoordinator_StaleSearchDiscarded(t *testing.T) {
	f := newFixture(t, Options{})
	items := f.initialize(12, 5, url.Values{})

	f.c.OnSearchInput("auth")
	first := f.svc.call(t, 0)

	f.c.OnSearchInput("logging")
	first.reply(rulePage(makeItems("stale", 1, 2), 1, 12, 2), nil)

	time.Sleep(3 * testDebounce)
	s := f.c.Snapshot()
	assert.Equal(t, items, s.Accumulated, "response for an old term must not replace the list")
	assert.Equal(t, FilterLocal(items, "logging"), s.Items)
}

func TestCoordinator_CategorySelectReplacesList(t *testing.T) {
	f := newFixture(t, Options{})
	f.initialize(12, 5, url.Values{})

	require.True(t, f.c.OnScrollNearBottom())
	f.svc.call(t, 0).reply(rulePage(makeItems("p2", 13, 12), 2, 12, 60), nil)
	require.Eventually(t, func() bool { return len(f.c.Snapshot().Accumulated) == 24 }, waitFor, tick)

	f.c.OnCategorySelect("go")
	s := f.c.Snapshot()
	assert.Equal(t, InitialLoading, s.Loading)
	assert.Equal(t, "go", s.Filters.Category)
	assert.Equal(t, 1, s.Filters.Page)
	assert.Equal(t, 1, f.view.closeCount())
	assert.Equal(t, url.Values{"category": {"go"}, "page": {"1"}}, f.nav.last())

	call := f.svc.call(t, 1)
	assert.Equal(t, "go", call.q.Category)
	assert.Equal(t, 1, call.q.Page)
	assert.Empty(t, call.q.Search)

	fresh := makeItems("go", 1, 7)
	call.reply(rulePage(fresh, 1, 12, 7), nil)
	require.Eventually(t, func() bool { return f.c.Snapshot().Loading == Idle }, waitFor, tick)

	s = f.c.Snapshot()
	assert.Equal(t, fresh, s.Accumulated, "no items from the previous category survive")
	assert.Equal(t, fresh, s.Items)
	assert.Equal(t, 1, s.Pagination.TotalPages)
	assert.False(t, f.c.OnScrollNearBottom())
}

func TestCoordinator_AllMeansNoCategory(t *testing.T) {
	f := newFixture(t, Options{})
	f.initialize(12, 5, url.Values{"category": {"go"}})

	f.c.OnCategorySelect(domain.CategoryAll)
	call := f.svc.call(t, 0)
	assert.Empty(t, call.q.Category)
	assert.NotContains(t, call.q.Values(), "category")
	assert.NotContains(t, f.nav.last(), "category")

	f.c.OnCategorySelect("security")
	f.c.OnCategorySelect(domain.CategoryAll)
	last := f.svc.call(t, 2)
	assert.Empty(t, last.q.Category)
}

func TestCoordinator_SelectionCarriesSearch(t *testing.T) {
	f := newFixture(t, Options{})
	f.initialize(12, 5, url.Values{})

	f.c.OnSearchInput(" auth ")
	f.c.OnSortSelect(domain.SortMostCopied)

	call := f.svc.call(t, 0)
	assert.Equal(t, "auth", call.q.Search)
	assert.Equal(t, domain.SortMostCopied, call.q.SortBy)

	result := makeItems("copied", 1, 2)
	call.reply(rulePage(result, 1, 12, 2), nil)
	require.Eventually(t, func() bool { return f.c.Snapshot().Loading == Idle }, waitFor, tick)
	assert.Equal(t, result, f.c.Snapshot().Accumulated)

	// the selection request already searched "auth": no debounced repeat
	time.Sleep(3 * testDebounce)
	assert.Equal(t, 1, f.svc.count())
}

func TestCoordinator_LastSelectionWins(t *testing.T) {
	f := newFixture(t, Options{})
	f.initialize(12, 5, url.Values{})

	f.c.OnSortSelect(domain.SortMostCopied)
	first := f.svc.call(t, 0)
	f.c.OnSortSelect(domain.SortTopVoted)
	second := f.svc.call(t, 1)

	require.Eventually(t, func() bool { return first.ctx.Err() != nil }, waitFor, tick, "superseded request is cancelled")
	assert.Equal(t, InitialLoading, f.c.Snapshot().Loading)

	result := makeItems("top", 1, 3)
	second.reply(rulePage(result, 1, 12, 3), nil)
	require.Eventually(t, func() bool { return f.c.Snapshot().Loading == Idle }, waitFor, tick)

	s := f.c.Snapshot()
	assert.Equal(t, domain.SortTopVoted, s.Filters.Sort)
	assert.Equal(t, result, s.Accumulated)
}

func TestCoordinator_UnknownSortFallsBack(t *testing.T) {
	f := newFixture(t, Options{})
	f.initialize(12, 5, url.Values{"sortBy": {"top-voted"}})

	f.c.OnSortSelect("random")
	call := f.svc.call(t, 0)
	assert.Equal(t, domain.SortNewest, call.q.SortBy)
	assert.NotContains(t, f.nav.last(), "sortBy")
}

func TestCoordinator_FailureKeepsState(t *testing.T) {
	f := newFixture(t, Options{})
	items := f.initialize(12, 5, url.Values{})

	require.True(t, f.c.OnScrollNearBottom())
	f.svc.call(t, 0).reply(nil, errors.New("502"))
	require.Eventually(t, func() bool { return f.c.Snapshot().Loading == Idle }, waitFor, tick)
	assert.Equal(t, items, f.c.Snapshot().Accumulated)

	f.c.OnCategorySelect("go")
	f.svc.call(t, 1).reply(nil, errors.New("connection refused"))
	require.Eventually(t, func() bool { return f.c.Snapshot().Loading == Idle }, waitFor, tick)
	assert.Equal(t, items, f.c.Snapshot().Accumulated)

	f.c.OnSearchInput("auth")
	f.svc.call(t, 2).reply(nil, errors.New("bad json"))
	require.Eventually(t, func() bool { return f.c.Snapshot().Loading == Idle }, waitFor, tick)
	s := f.c.Snapshot()
	assert.Equal(t, items, s.Accumulated)
	assert.Equal(t, FilterLocal(items, "auth"), s.Items)

	time.Sleep(3 * testDebounce)
	assert.Equal(t, 3, f.svc.count(), "no automatic retry")
}

func TestCoordinator_EmptyResult(t *testing.T) {
	f := newFixture(t, Options{})
	f.initialize(12, 5, url.Values{})

	f.c.OnCategorySelect("empty")
	assert.False(t, f.c.Snapshot().Empty(), "loading is not the empty state")

	f.svc.call(t, 0).reply(rulePage([]domain.RuleResponse{}, 1, 12, 0), nil)
	require.Eventually(t, func() bool { return f.c.Snapshot().Empty() }, waitFor, tick)
	assert.False(t, f.c.OnScrollNearBottom())
}

func TestCoordinator_URLChangeDoesNotFetch(t *testing.T) {
	f := newFixture(t, Options{})
	items := f.initialize(12, 5, url.Values{})

	f.c.OnURLChange(url.Values{"search": {"logging"}, "category": {"go"}, "sortBy": {"most-copied"}, "page": {"3"}})
	s := f.c.Snapshot()
	assert.Equal(t, Filters{Search: "logging", Category: "go", Sort: domain.SortMostCopied, Page: 3}, s.Filters)
	assert.Equal(t, FilterLocal(items, "logging"), s.Items)
	assert.Equal(t, items, s.Accumulated)

	time.Sleep(3 * testDebounce)
	assert.Zero(t, f.svc.count())
}

func TestCoordinator_HistoryDrivesURLChange(t *testing.T) {
	svc := &fakeQueryService{}
	history := NewHistory(url.Values{})
	c := NewCoordinator(svc, history, nil, Options{Debounce: testDebounce})
	t.Cleanup(c.Close)
	history.Listen(c.OnURLChange)

	c.Initialize(InitialData{Items: makeItems("h", 1, 12), Pagination: domain.NewPagination(1, 12, 60)}, history.Current())
	c.OnCategorySelect("go")
	svc.call(t, 0).reply(rulePage(makeItems("go", 1, 2), 1, 12, 2), nil)
	require.Eventually(t, func() bool { return c.Snapshot().Loading == Idle }, waitFor, tick)

	assert.Equal(t, 2, history.Len())
	require.True(t, history.Back())
	assert.Equal(t, domain.CategoryAll, c.Snapshot().Filters.Category)
	require.True(t, history.Forward())
	assert.Equal(t, "go", c.Snapshot().Filters.Category)
	assert.Equal(t, 1, svc.count(), "navigation re-derives filters only")
}

func TestCoordinator_CloseCancelsWork(t *testing.T) {
	f := newFixture(t, Options{})
	f.initialize(12, 5, url.Values{})

	require.True(t, f.c.OnScrollNearBottom())
	call := f.svc.call(t, 0)
	f.c.OnSearchInput("auth")

	f.c.Close()
	assert.Error(t, call.ctx.Err())

	time.Sleep(3 * testDebounce)
	assert.Equal(t, 1, f.svc.count(), "debounced search never fires after Close")
	assert.False(t, f.c.OnScrollNearBottom())
}

func TestCoordinator_VersionGrowsPerRender(t *testing.T) {
	f := newFixture(t, Options{})
	f.initialize(12, 5, url.Values{})
	v1 := f.view.last().Version

	f.c.OnSearchInput("a")
	v2 := f.view.last().Version
	assert.Greater(t, v2, v1)
	assert.Equal(t, v2, f.c.Snapshot().Version)
}

func TestInflight(t *testing.T) {
	var f inflight
	ctx, gen := f.start(context.Background())
	assert.True(t, f.pending)

	f.stop()
	assert.Error(t, ctx.Err())
	assert.False(t, f.finish(gen), "stopped request is stale")

	_, gen2 := f.start(context.Background())
	assert.True(t, f.finish(gen2))
	assert.False(t, f.pending)
}

func TestCoordinator_NoLoadMoreWhileSelectionPending(t *testing.T) {
	f := newFixture(t, Options{})
	items := f.initialize(12, 5, url.Values{})

	f.c.OnCategorySelect("go")
	selection := f.svc.call(t, 0)
	assert.False(t, f.c.OnScrollNearBottom(), "old list must not be extended with the new category")

	selection.reply(nil, errors.New("boom"))
	require.Eventually(t, func() bool { return f.c.Snapshot().Loading == Idle }, waitFor, tick)

	s := f.c.Snapshot()
	assert.Equal(t, "go", s.Filters.Category)
	assert.Equal(t, items, s.Accumulated)
	assert.False(t, f.c.OnScrollNearBottom(), "list still belongs to the previous category")
	assert.Equal(t, 1, f.svc.count())

	// back on the category the list was loaded for, paging resumes
	f.c.OnURLChange(url.Values{})
	require.True(t, f.c.OnScrollNearBottom())
	assert.Equal(t, "", f.svc.call(t, 1).q.Category)
}

func TestCoordinator_SelectionFailureAfterLoadMore(t *testing.T) {
	f := newFixture(t, Options{})
	items := f.initialize(12, 5, url.Values{})

	require.True(t, f.c.OnScrollNearBottom())
	next := makeItems("p2", 13, 12)
	f.svc.call(t, 0).reply(rulePage(next, 2, 12, 60), nil)
	require.Eventually(t, func() bool { return len(f.c.Snapshot().Accumulated) == 24 }, waitFor, tick)

	f.c.OnSortSelect(domain.SortTopVoted)
	f.svc.call(t, 1).reply(nil, errors.New("unavailable"))
	require.Eventually(t, func() bool { return f.c.Snapshot().Loading == Idle }, waitFor, tick)

	s := f.c.Snapshot()
	assert.Equal(t, domain.SortTopVoted, s.Filters.Sort)
	assert.Equal(t, items, s.Accumulated[:12])
	assert.Equal(t, next, s.Accumulated[12:])
	assert.Equal(t, 2, s.Pagination.Page)
	assert.False(t, f.c.OnScrollNearBottom(), "newest-sorted list must not get top-voted pages")
	assert.Equal(t, 2, f.svc.count())
}

func TestCoordinator_SearchDuringSelection_SelectionRepliesFirst(t *testing.T) {
	f := newFixture(t, Options{})
	f.initialize(12, 5, url.Values{})

	f.c.OnCategorySelect("go")
	selection := f.svc.call(t, 0)
	assert.Empty(t, selection.q.Search)

	f.c.OnSearchInput("auth")
	search := f.svc.call(t, 1)
	assert.Equal(t, "auth", search.q.Search)
	assert.Equal(t, "go", search.q.Category)

	goItems := makeItems("go", 1, 12)
	selection.reply(rulePage(goItems, 1, 12, 36), nil)
	require.Eventually(t, func() bool { return f.c.Snapshot().Loading == SearchLoading }, waitFor, tick)
	s := f.c.Snapshot()
	assert.Equal(t, goItems, s.Accumulated)
	assert.Equal(t, FilterLocal(goItems, "auth"), s.Items)

	found := makeItems("found", 1, 3)
	search.reply(rulePage(found, 1, 12, 3), nil)
	require.Eventually(t, func() bool { return f.c.Snapshot().Loading == Idle }, waitFor, tick)

	s = f.c.Snapshot()
	assert.Equal(t, found, s.Items)
	assert.Equal(t, found, s.Accumulated)
	assert.Equal(t, "go", s.Filters.Category)
	assert.Equal(t, 2, f.svc.count())
}

func TestCoordinator_SearchDuringSelection_SearchRepliesFirst(t *testing.T) {
	f := newFixture(t, Options{})
	f.initialize(12, 5, url.Values{})

	f.c.OnCategorySelect("go")
	selection := f.svc.call(t, 0)
	f.c.OnSearchInput("auth")
	search := f.svc.call(t, 1)

	found := makeItems("found", 1, 3)
	search.reply(rulePage(found, 1, 12, 3), nil)
	require.Eventually(t, func() bool {
		return assert.ObjectsAreEqual(found, f.c.Snapshot().Items)
	}, waitFor, tick)
	assert.Equal(t, InitialLoading, f.c.Snapshot().Loading, "selection still outstanding")

	// the unsearched first page is older than the search result
	selection.reply(rulePage(makeItems("go", 1, 12), 1, 12, 36), nil)
	require.Eventually(t, func() bool { return f.c.Snapshot().Loading == Idle }, waitFor, tick)

	s := f.c.Snapshot()
	assert.Equal(t, found, s.Items)
	assert.Equal(t, found, s.Accumulated)
	assert.Equal(t, 2, f.svc.count())
}

func TestCoordinator_SearchForOldCategoryDiscarded(t *testing.T) {
	f := newFixture(t, Options{})
	items := f.initialize(12, 5, url.Values{})

	f.c.OnSearchInput("auth")
	search := f.svc.call(t, 0)

	// back navigation to another category while the search is outstanding
	f.c.OnURLChange(url.Values{"search": {"auth"}, "category": {"go"}})
	search.reply(rulePage(makeItems("found", 1, 3), 1, 12, 3), nil)
	require.Eventually(t, func() bool { return f.c.Snapshot().Loading == Idle }, waitFor, tick)

	s := f.c.Snapshot()
	assert.Equal(t, items, s.Accumulated)
	assert.Equal(t, FilterLocal(items, "auth"), s.Items)
}

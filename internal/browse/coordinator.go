package browse

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/rulehub/rulehub-backend/internal/domain"
)

const (
	DefaultDebounce       = 500 * time.Millisecond
	DefaultPageSize       = 12
	DefaultRequestTimeout = 15 * time.Second
)

// QueryService returns one page of published rules for a query
type QueryService interface {
	ListRules(ctx context.Context, q domain.RuleQuery) (*domain.RulePage, error)
}

// Navigator receives the URL query whenever a user action changes the filters.
// It is called with the coordinator lock held and must not call back into it.
type Navigator interface {
	Navigate(query url.Values)
}

// View renders snapshots. Both methods are called with the coordinator lock
// held, in state order, and must not call back into the coordinator.
type View interface {
	Render(s Snapshot)
	CloseFilters()
}

// InitialData is the first page rendered by the server for the URL filters
type InitialData struct {
	Items      []domain.RuleResponse
	Pagination domain.Pagination
	Categories []domain.CategoryResponse
}

// Options 코디네이터 설정
type Options struct {
	Debounce       time.Duration // remote search delay, reset on every keystroke
	PageSize       int
	RequestTimeout time.Duration
	Logger         *zerolog.Logger // nil disables logging

	// LoadMoreDone is called after every load-more request finishes, applied
	// or not. ScrollTrigger.Rearm fits here.
	LoadMoreDone func()
}

// inflight tracks one class of outstanding request. gen identifies the
// latest request; responses carrying an older gen are dropped.
type inflight struct {
	gen     uint64
	pending bool
	cancel  context.CancelFunc
}

func (f *inflight) start(parent context.Context) (context.Context, uint64) {
	f.stop()
	f.gen++
	f.pending = true
	ctx, cancel := context.WithCancel(parent)
	f.cancel = cancel
	return ctx, f.gen
}

// stop cancels the outstanding request, if any, and invalidates its response.
func (f *inflight) stop() {
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
	if f.pending {
		f.gen++
	}
	f.pending = false
}

// finish reports whether gen is still current and clears the pending flag if so.
func (f *inflight) finish(gen uint64) bool {
	if gen != f.gen {
		return false
	}
	f.pending = false
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
	return true
}

// Coordinator owns the browse list. It reconciles URL changes, search
// keystrokes, category/sort selection and scroll-driven paging into one
// displayed list and loading indicator.
type Coordinator struct {
	svc    QueryService
	nav    Navigator
	view   View
	opts   Options
	logger zerolog.Logger

	mu      sync.Mutex
	st      state
	version uint64

	// selection: category/sort change requests
	// search: debounced remote search
	// more: load-more (next page)
	selection inflight
	search    inflight
	more      inflight

	// listID changes whenever the accumulated list is replaced. Load-more
	// responses issued under an older id are discarded.
	listID uint64

	debounce    *time.Timer
	debounceSeq uint64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed bool
}

// NewCoordinator 코디네이터 생성. nav and view may be nil.
func NewCoordinator(svc QueryService, nav Navigator, view View, opts Options) *Coordinator {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = opts.Logger.With().Str("component", "browse").Logger()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		svc:    svc,
		nav:    nav,
		view:   view,
		opts:   opts,
		logger: logger,
		st:     state{filters: DefaultFilters()},
		ctx:    ctx,
		cancel: cancel,
	}
}

// ============================================
// Operations
// ============================================

// Initialize seeds the coordinator from server-rendered data. No request is made.
func (c *Coordinator) Initialize(data InitialData, params url.Values) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.st = initialState(data, FiltersFromQuery(params))
	c.listID++
	c.render()
}

// OnURLChange re-derives the filters from the URL (back/forward). It never fetches.
func (c *Coordinator) OnURLChange(params url.Values) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.st = c.st.withFilters(FiltersFromQuery(params))
	c.render()
}

// OnSearchInput applies the local filter immediately and (re)starts the
// debounce timer for the remote search.
func (c *Coordinator) OnSearchInput(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	c.st = c.st.withSearch(text)
	c.navigate()

	c.debounceSeq++
	seq := c.debounceSeq
	if c.debounce != nil {
		c.debounce.Stop()
	}
	c.debounce = time.AfterFunc(c.opts.Debounce, func() { c.remoteSearch(seq) })

	c.render()
}

// OnCategorySelect switches category ("all" means none) and reloads page 1.
func (c *Coordinator) OnCategorySelect(slug string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.selectList(c.st.withSelection(slug, c.st.filters.Sort))
}

// OnSortSelect switches the sort key and reloads page 1. Unknown keys mean newest.
func (c *Coordinator) OnSortSelect(key domain.SortKey) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !key.Valid() {
		key = domain.DefaultSort
	}
	c.selectList(c.st.withSelection(c.st.filters.Category, key))
}

// OnScrollNearBottom requests the next page unless a search is active, a
// load-more is outstanding or the last page is loaded. While a category/sort
// change is in flight the shown list belongs to the old selection, so paging
// waits for the new first page. It reports whether a request was issued.
func (c *Coordinator) OnScrollNearBottom() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.selection.pending || c.more.pending || !c.st.canLoadMore() {
		return false
	}

	limit := c.st.pagination.Limit
	if limit <= 0 {
		limit = c.opts.PageSize
	}
	q := c.st.filters.RuleQuery(c.st.pagination.Page+1, limit, "")
	listID := c.listID

	ctx, gen := c.more.start(c.ctx)
	c.fetch(ctx, q, func(page *domain.RulePage, err error) {
		defer c.loadMoreDone()
		c.mu.Lock()
		defer c.mu.Unlock()

		if !c.more.finish(gen) {
			return
		}
		switch {
		case err != nil:
			c.logFailure("load more", q, err)
		case c.listID != listID:
			c.logger.Debug().Int("page", q.Page).Msg("discarding load-more for replaced list")
		default:
			c.st = c.st.appended(page)
		}
		c.render()
	})

	c.render()
	return true
}

// Snapshot returns the current state
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

// Close stops the debounce timer, cancels outstanding requests and waits
// for their goroutines.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	if c.debounce != nil {
		c.debounce.Stop()
	}
	c.debounceSeq++
	c.cancel()
	c.mu.Unlock()

	c.wg.Wait()
}

// ============================================
// internals (c.mu held unless noted)
// ============================================

// selectList issues the immediate page-1 request for a category/sort change.
// The latest selection wins; the earlier request is cancelled.
func (c *Coordinator) selectList(next state) {
	if c.closed {
		return
	}
	c.st = next
	c.navigate()
	if c.view != nil {
		c.view.CloseFilters()
	}

	// the selection request carries the current search, so a pending
	// debounced search for the same text is redundant
	if c.debounce != nil {
		c.debounce.Stop()
	}
	c.debounceSeq++

	// the list is about to be replaced: older search and load-more
	// responses no longer apply
	c.listID++
	c.search.stop()
	c.more.stop()

	term := c.st.filters.Term()
	q := c.st.filters.RuleQuery(1, c.opts.PageSize, term)
	listID := c.listID

	ctx, gen := c.selection.start(c.ctx)
	c.fetch(ctx, q, func(page *domain.RulePage, err error) {
		c.mu.Lock()
		defer c.mu.Unlock()

		if !c.selection.finish(gen) {
			return
		}
		if err != nil {
			c.logFailure("select", q, err)
		} else if c.listID == listID {
			c.st = c.st.replaced(page, q)
			c.listID++
		}
		c.render()
	})

	c.render()
}

// remoteSearch runs when the debounce timer fires. Called without c.mu.
func (c *Coordinator) remoteSearch(seq uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || seq != c.debounceSeq {
		return
	}

	term := c.st.filters.Term()
	if term == c.st.lastSearched {
		return
	}
	if term == "" {
		// cleared box: the local filter already restored the accumulated list
		c.st.lastSearched = ""
		c.search.stop()
		c.render()
		return
	}

	q := c.st.filters.RuleQuery(1, c.opts.PageSize, term)

	ctx, gen := c.search.start(c.ctx)
	c.fetch(ctx, q, func(page *domain.RulePage, err error) {
		c.mu.Lock()
		defer c.mu.Unlock()

		if !c.search.finish(gen) {
			return
		}
		switch {
		case err != nil:
			c.logFailure("search", q, err)
		case !c.matchesFilters(q):
			c.logger.Debug().Str("term", term).Msg("discarding stale search response")
		default:
			c.st = c.st.replaced(page, q)
			c.listID++
			c.more.stop()
		}
		c.render()
	})

	c.render()
}

// fetch runs the query on its own goroutine and hands the result to done.
func (c *Coordinator) fetch(ctx context.Context, q domain.RuleQuery, done func(*domain.RulePage, error)) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		reqCtx, cancel := context.WithTimeout(ctx, c.opts.RequestTimeout)
		defer cancel()

		page, err := c.svc.ListRules(reqCtx, q)
		if err == nil && page == nil {
			err = errors.New("empty response")
		}
		done(page, err)
	}()
}

// matchesFilters reports whether a first-page query still describes the
// current search text, category and sort.
func (c *Coordinator) matchesFilters(q domain.RuleQuery) bool {
	return q == c.st.filters.RuleQuery(q.Page, q.Limit, c.st.filters.Term())
}

func (c *Coordinator) loadMoreDone() {
	if c.opts.LoadMoreDone != nil {
		c.opts.LoadMoreDone()
	}
}

func (c *Coordinator) logFailure(op string, q domain.RuleQuery, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	c.logger.Warn().Err(err).
		Str("op", op).
		Str("query", q.CacheKey()).
		Msg("rule query failed")
}

func (c *Coordinator) navigate() {
	if c.nav != nil {
		c.nav.Navigate(c.st.filters.Query())
	}
}

func (c *Coordinator) loading() LoadingState {
	switch {
	case c.selection.pending:
		return InitialLoading
	case c.search.pending && c.st.filters.Term() != "":
		return SearchLoading
	case c.more.pending:
		return LoadingMore
	default:
		return Idle
	}
}

func (c *Coordinator) snapshot() Snapshot {
	return Snapshot{
		Version:     c.version,
		Filters:     c.st.filters,
		Items:       c.st.displayed,
		Accumulated: c.st.accumulated,
		Pagination:  c.st.pagination,
		Categories:  c.st.categories,
		Loading:     c.loading(),
	}
}

func (c *Coordinator) render() {
	c.version++
	if c.view != nil {
		c.view.Render(c.snapshot())
	}
}

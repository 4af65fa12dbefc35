package browse

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rulehub/rulehub-backend/internal/domain"
)

const (
	testDebounce = 30 * time.Millisecond
	waitFor      = time.Second
	tick         = 5 * time.Millisecond
)

type result struct {
	page *domain.RulePage
	err  error
}

// pendingCall is one ListRules invocation waiting for a reply
type pendingCall struct {
	q    domain.RuleQuery
	ctx  context.Context
	resp chan result
}

func (p *pendingCall) reply(page *domain.RulePage, err error) {
	p.resp <- result{page: page, err: err}
}

// fakeQueryService blocks every call until the test replies or the
// request context ends.
type fakeQueryService struct {
	mu    sync.Mutex
	calls []*pendingCall
}

func (f *fakeQueryService) ListRules(ctx context.Context, q domain.RuleQuery) (*domain.RulePage, error) {
	call := &pendingCall{q: q, ctx: ctx, resp: make(chan result, 1)}
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()

	select {
	case r := <-call.resp:
		return r.page, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *fakeQueryService) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeQueryService) call(t *testing.T, i int) *pendingCall {
	t.Helper()
	require.Eventually(t, func() bool { return f.count() > i }, waitFor, tick, "expected call #%d", i+1)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[i]
}

type recordingView struct {
	mu        sync.Mutex
	snapshots []Snapshot
	closed    int
}

func (v *recordingView) Render(s Snapshot) {
	v.mu.Lock()
	v.snapshots = append(v.snapshots, s)
	v.mu.Unlock()
}

func (v *recordingView) CloseFilters() {
	v.mu.Lock()
	v.closed++
	v.mu.Unlock()
}

func (v *recordingView) closeCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.closed
}

func (v *recordingView) last() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snapshots[len(v.snapshots)-1]
}

type recordingNav struct {
	mu      sync.Mutex
	queries []url.Values
}

func (n *recordingNav) Navigate(q url.Values) {
	n.mu.Lock()
	n.queries = append(n.queries, q)
	n.mu.Unlock()
}

func (n *recordingNav) last() url.Values {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.queries) == 0 {
		return nil
	}
	return n.queries[len(n.queries)-1]
}

// makeItems builds n rules numbered from start. Titles alternate between an
// auth-related and an unrelated subject.
func makeItems(prefix string, start, n int) []domain.RuleResponse {
	items := make([]domain.RuleResponse, n)
	for i := range items {
		idx := start + i
		title := fmt.Sprintf("%s logging rule %d", prefix, idx)
		desc := "Structured logs"
		if idx%2 == 0 {
			title = fmt.Sprintf("%s Authentication rule %d", prefix, idx)
			desc = "Session handling"
		}
		if idx%3 == 0 {
			desc = "Covers AUTH headers"
		}
		items[i] = domain.RuleResponse{
			ID:          fmt.Sprintf("%s-%d", prefix, idx),
			Slug:        fmt.Sprintf("%s-rule-%d", prefix, idx),
			Title:       title,
			Description: desc,
			Content:     fmt.Sprintf("body %d", idx),
		}
	}
	return items
}

func rulePage(items []domain.RuleResponse, page, limit int, total int64) *domain.RulePage {
	return &domain.RulePage{Items: items, Pagination: domain.NewPagination(page, limit, total)}
}

type fixture struct {
	svc  *fakeQueryService
	view *recordingView
	nav  *recordingNav
	c    *Coordinator
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	if opts.Debounce == 0 {
		opts.Debounce = testDebounce
	}
	f := &fixture{svc: &fakeQueryService{}, view: &recordingView{}, nav: &recordingNav{}}
	f.c = NewCoordinator(f.svc, f.nav, f.view, opts)
	t.Cleanup(f.c.Close)
	return f
}

// initialize seeds n items as page 1 of totalPages with page size 12
func (f *fixture) initialize(n, totalPages int, params url.Values) []domain.RuleResponse {
	items := makeItems("init", 1, n)
	f.c.Initialize(InitialData{
		Items:      items,
		Pagination: domain.NewPagination(1, 12, int64(totalPages*12)),
		Categories: []domain.CategoryResponse{{Name: "Go", Slug: "go", RuleCount: 3}},
	}, params)
	return items
}

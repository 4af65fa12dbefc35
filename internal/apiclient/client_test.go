package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rulehub/rulehub-backend/internal/domain"
)

func newServer(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL + "/")
}

func writeData(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"data": data})
}

func TestListRules(t *testing.T) {
	var got url.Values
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/rules", r.URL.Path)
		got = r.URL.Query()
		writeData(w, http.StatusOK, domain.RulePage{
			Items:      []domain.RuleResponse{{Slug: "a", Title: "A", CopyCount: 3}},
			Pagination: domain.NewPagination(2, 12, 13),
		})
	})

	page, err := c.ListRules(context.Background(), domain.RuleQuery{
		Page: 2, Limit: 12, SortBy: domain.SortMostCopied, Category: domain.CategoryAll, Search: "jwt",
	})
	require.NoError(t, err)

	assert.Equal(t, url.Values{"page": {"2"}, "limit": {"12"}, "sortBy": {"most-copied"}, "search": {"jwt"}}, got)
	require.Len(t, page.Items, 1)
	assert.Equal(t, int64(3), page.Items[0].CopyCount)
	assert.Equal(t, 2, page.Pagination.TotalPages)
}

func TestBrowse_DropsPage(t *testing.T) {
	var got url.Values
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/browse", r.URL.Path)
		got = r.URL.Query()
		writeData(w, http.StatusOK, domain.BrowseResponse{
			Categories: []domain.CategoryResponse{{Slug: "go", RuleCount: 2}},
			Filters:    domain.BrowseFilters{Category: "go", SortBy: domain.SortNewest},
		})
	})

	resp, err := c.Browse(context.Background(), url.Values{"category": {"go"}, "page": {"4"}})
	require.NoError(t, err)
	assert.Equal(t, url.Values{"category": {"go"}}, got)
	assert.Equal(t, "go", resp.Filters.Category)
	assert.Equal(t, int64(2), resp.Categories[0].RuleCount)
}

func TestStatusError(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"code":"NOT_FOUND","message":"Rule not found"}}`))
	})

	_, err := c.GetRule(context.Background(), "missing")
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	assert.Equal(t, "NOT_FOUND", statusErr.Code)
	assert.Equal(t, "Rule not found", statusErr.Message)
	assert.Contains(t, err.Error(), "404")
}

func TestStatusError_PlainBody(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	})

	_, err := c.Categories(context.Background())
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
	assert.Contains(t, statusErr.Message, "bad gateway")
}

func TestMalformedJSON(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data": [`))
	})

	_, err := c.ListRules(context.Background(), domain.RuleQuery{})
	assert.ErrorContains(t, err, "decode response")
}

func TestVoteAndCopy(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		switch r.URL.Path {
		case "/api/v1/rules/jwt-auth/vote":
			var req domain.VoteRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, domain.VoteDown, req.Direction)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			writeData(w, http.StatusOK, domain.EngagementResponse{Slug: "jwt-auth", Downvotes: 4})
		case "/api/v1/rules/jwt-auth/copy":
			writeData(w, http.StatusOK, domain.EngagementResponse{Slug: "jwt-auth", CopyCount: 9})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	vote, err := c.VoteRule(context.Background(), "jwt-auth", domain.VoteDown)
	require.NoError(t, err)
	assert.Equal(t, int64(4), vote.Downvotes)

	cp, err := c.CopyRule(context.Background(), "jwt-auth")
	require.NoError(t, err)
	assert.Equal(t, int64(9), cp.CopyCount)
}

func TestSuggest_NullData(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "jw", r.URL.Query().Get("q"))
		_, _ = w.Write([]byte(`{"data": null}`))
	})

	out, err := c.Suggest(context.Background(), "jw", 0)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestContextCancelled(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeData(w, http.StatusOK, domain.RulePage{})
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.ListRules(ctx, domain.RuleQuery{})
	assert.ErrorIs(t, err, context.Canceled)
}

// Package apiclient is the HTTP client for the rulehub API used by the
// browse CLI.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rulehub/rulehub-backend/internal/common"
	"github.com/rulehub/rulehub-backend/internal/domain"
)

const (
	apiPrefix      = "/api/v1"
	defaultTimeout = 15 * time.Second
	maxErrorBody   = 200
)

// StatusError is returned for non-2xx responses
type StatusError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *StatusError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// Client rulehub API 클라이언트
type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout of the default http.Client
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// New creates a client for the server at baseURL, e.g. http://localhost:8082
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		userAgent:  "rulehub-browse",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListRules GET /rules
func (c *Client) ListRules(ctx context.Context, q domain.RuleQuery) (*domain.RulePage, error) {
	var page domain.RulePage
	if err := c.do(ctx, http.MethodGet, "/rules", q.Values(), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Browse GET /browse, the initial payload for the URL filters
func (c *Client) Browse(ctx context.Context, params url.Values) (*domain.BrowseResponse, error) {
	query := url.Values{}
	for _, k := range []string{"search", "category", "sortBy"} {
		if v := params.Get(k); v != "" {
			query.Set(k, v)
		}
	}
	var resp domain.BrowseResponse
	if err := c.do(ctx, http.MethodGet, "/browse", query, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Categories GET /categories
func (c *Client) Categories(ctx context.Context) ([]domain.CategoryResponse, error) {
	var categories []domain.CategoryResponse
	if err := c.do(ctx, http.MethodGet, "/categories", nil, nil, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

// Suggest GET /rules/suggest
func (c *Client) Suggest(ctx context.Context, prefix string, size int) ([]string, error) {
	query := url.Values{"q": {prefix}}
	if size > 0 {
		query.Set("size", strconv.Itoa(size))
	}
	var out []string
	if err := c.do(ctx, http.MethodGet, "/rules/suggest", query, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetRule GET /rules/:slug (counts a view)
func (c *Client) GetRule(ctx context.Context, slug string) (*domain.RuleResponse, error) {
	var rule domain.RuleResponse
	if err := c.do(ctx, http.MethodGet, "/rules/"+url.PathEscape(slug), nil, nil, &rule); err != nil {
		return nil, err
	}
	return &rule, nil
}

// CopyRule POST /rules/:slug/copy
func (c *Client) CopyRule(ctx context.Context, slug string) (*domain.EngagementResponse, error) {
	var resp domain.EngagementResponse
	if err := c.do(ctx, http.MethodPost, "/rules/"+url.PathEscape(slug)+"/copy", nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// VoteRule POST /rules/:slug/vote
func (c *Client) VoteRule(ctx context.Context, slug string, dir domain.VoteDirection) (*domain.EngagementResponse, error) {
	var resp domain.EngagementResponse
	body := domain.VoteRequest{Direction: dir}
	if err := c.do(ctx, http.MethodPost, "/rules/"+url.PathEscape(slug)+"/vote", nil, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// do sends the request and decodes the data field of the response envelope into out.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	endpoint := c.baseURL + apiPrefix + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var envelope struct {
		Data  json.RawMessage   `json:"data"`
		Error *common.ErrorInfo `json:"error"`
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := &StatusError{StatusCode: resp.StatusCode, Message: truncate(string(raw), maxErrorBody)}
		if json.Unmarshal(raw, &envelope) == nil && envelope.Error != nil {
			statusErr.Code = envelope.Error.Code
			statusErr.Message = envelope.Error.Message
		}
		return statusErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

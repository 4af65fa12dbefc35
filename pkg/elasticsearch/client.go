package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	pkglogger "github.com/rulehub/rulehub-backend/pkg/logger"
)

// suggestName names the completion suggester in requests and responses
const suggestName = "autocomplete"

// Config Elasticsearch 접속 정보
type Config struct {
	Addresses []string
	Username  string
	Password  string
}

// Document is one entry of a bulk request
type Document struct {
	ID   string
	Body interface{}
}

// Client maintains a completion-suggest index over rule titles
type Client struct {
	es *elasticsearch.Client
}

// NewClient connects and pings the cluster
func NewClient(cfg Config) (*Client, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch client creation failed: %w", err)
	}

	res, err := es.Info()
	if err != nil {
		return nil, fmt.Errorf("elasticsearch connection failed: %w", err)
	}
	defer res.Body.Close()
	if err := checkResponse("info", res); err != nil {
		return nil, err
	}

	pkglogger.GetLogger().Info().Strs("addresses", cfg.Addresses).Msg("connected to Elasticsearch")
	return &Client{es: es}, nil
}

// CreateIndex creates index with mapping unless it already exists
func (c *Client) CreateIndex(ctx context.Context, index string, mapping interface{}) error {
	res, err := c.es.Indices.Exists([]string{index}, c.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return err
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	body, err := json.Marshal(mapping)
	if err != nil {
		return fmt.Errorf("encode index mapping: %w", err)
	}
	res, err = c.es.Indices.Create(index,
		c.es.Indices.Create.WithBody(bytes.NewReader(body)),
		c.es.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	err = checkResponse("create index", res)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Type == "resource_already_exists_exception" {
		// 동시에 생성된 경우
		return nil
	}
	return err
}

// IndexDocument upserts one document
func (c *Client) IndexDocument(ctx context.Context, index, docID string, body interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	res, err := esapi.IndexRequest{
		Index:      index,
		DocumentID: docID,
		Body:       bytes.NewReader(data),
	}.Do(ctx, c.es)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	return checkResponse("index", res)
}

// DeleteDocument removes a document. A missing document is not an error.
func (c *Client) DeleteDocument(ctx context.Context, index, docID string) error {
	res, err := esapi.DeleteRequest{Index: index, DocumentID: docID}.Do(ctx, c.es)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotFound {
		return nil
	}
	return checkResponse("delete", res)
}

// BulkIndex indexes docs in one request and refreshes the index, so a
// reindex is visible to the next suggest call.
func (c *Client) BulkIndex(ctx context.Context, index string, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	body, err := encodeBulk(index, docs)
	if err != nil {
		return err
	}

	res, err := c.es.Bulk(bytes.NewReader(body), c.es.Bulk.WithContext(ctx), c.es.Bulk.WithRefresh("true"))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if err := checkResponse("bulk", res); err != nil {
		return err
	}
	return decodeBulk(res.Body)
}

// Suggest returns up to size completions of prefix from a completion field
func (c *Client) Suggest(ctx context.Context, index, field, prefix string, size int) ([]string, error) {
	var req suggestRequest
	req.Source = false
	req.Suggest = map[string]completionSuggester{
		suggestName: {Prefix: prefix, Completion: completionOptions{Field: field, Size: size, SkipDuplicates: true}},
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode suggest query: %w", err)
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(index),
		c.es.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if err := checkResponse("suggest", res); err != nil {
		return nil, err
	}
	return decodeSuggestions(res.Body)
}

// ============================================
// wire types
// ============================================

type suggestRequest struct {
	Source  bool                           `json:"_source"`
	Suggest map[string]completionSuggester `json:"suggest"`
}

type completionSuggester struct {
	Prefix     string            `json:"prefix"`
	Completion completionOptions `json:"completion"`
}

type completionOptions struct {
	Field          string `json:"field"`
	Size           int    `json:"size"`
	SkipDuplicates bool   `json:"skip_duplicates"`
}

type suggestResponse struct {
	Suggest map[string][]struct {
		Options []struct {
			Text string `json:"text"`
		} `json:"options"`
	} `json:"suggest"`
}

type bulkMeta struct {
	Index struct {
		Index string `json:"_index"`
		ID    string `json:"_id"`
	} `json:"index"`
}

type bulkResponse struct {
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		ID     string    `json:"_id"`
		Status int       `json:"status"`
		Error  *apiCause `json:"error"`
	} `json:"items"`
}

type apiCause struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

// APIError is a non-2xx Elasticsearch response
type APIError struct {
	Op     string
	Status int
	Type   string
	Reason string
}

func (e *APIError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("elasticsearch %s failed [%d]: %s", e.Op, e.Status, e.Reason)
	}
	return fmt.Sprintf("elasticsearch %s failed [%d] %s: %s", e.Op, e.Status, e.Type, e.Reason)
}

func checkResponse(op string, res *esapi.Response) error {
	if !res.IsError() {
		return nil
	}
	apiErr := &APIError{Op: op, Status: res.StatusCode}

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		apiErr.Reason = err.Error()
		return apiErr
	}
	var body struct {
		Error *apiCause `json:"error"`
	}
	if json.Unmarshal(raw, &body) == nil && body.Error != nil {
		apiErr.Type = body.Error.Type
		apiErr.Reason = body.Error.Reason
	} else {
		apiErr.Reason = string(raw)
	}
	return apiErr
}

// encodeBulk writes the NDJSON body, keeping docs in order
func encodeBulk(index string, docs []Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, d := range docs {
		var meta bulkMeta
		meta.Index.Index = index
		meta.Index.ID = d.ID
		if err := enc.Encode(meta); err != nil {
			return nil, fmt.Errorf("encode bulk meta for %s: %w", d.ID, err)
		}
		if err := enc.Encode(d.Body); err != nil {
			return nil, fmt.Errorf("encode bulk doc for %s: %w", d.ID, err)
		}
	}
	return buf.Bytes(), nil
}

// decodeBulk reports the first failed item of a bulk response
func decodeBulk(r io.Reader) error {
	var res bulkResponse
	if err := json.NewDecoder(r).Decode(&res); err != nil {
		return fmt.Errorf("decode bulk response: %w", err)
	}
	if !res.Errors {
		return nil
	}
	for _, item := range res.Items {
		for op, result := range item {
			if result.Error != nil {
				return &APIError{Op: "bulk " + op + " " + result.ID, Status: result.Status, Type: result.Error.Type, Reason: result.Error.Reason}
			}
		}
	}
	return &APIError{Op: "bulk", Reason: "errors reported without item detail"}
}

func decodeSuggestions(r io.Reader) ([]string, error) {
	var res suggestResponse
	if err := json.NewDecoder(r).Decode(&res); err != nil {
		return nil, fmt.Errorf("decode suggest response: %w", err)
	}
	out := []string{}
	for _, entry := range res.Suggest[suggestName] {
		for _, opt := range entry.Options {
			out = append(out, opt.Text)
		}
	}
	return out, nil
}

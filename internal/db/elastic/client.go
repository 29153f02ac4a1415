// Package elastic implements the search backend on Elasticsearch.
package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/kailas-cloud/serp/internal/db"
)

// Compile-time check: Backend implements db.Backend.
var _ db.Backend = (*Backend)(nil)

// Config holds connection parameters for an Elasticsearch cluster.
type Config struct {
	Addresses  []string
	Username   string
	Password   string
	APIKey     string
	MaxRetries int
	// Transport overrides the HTTP transport (tests).
	Transport http.RoundTripper
}

// Backend executes search queries on Elasticsearch.
type Backend struct {
	es *elasticsearch.Client
}

// NewBackend creates an Elasticsearch backend.
func NewBackend(cfg Config) (*Backend, error) {
	if len(cfg.Addresses) == 0 {
		return nil, fmt.Errorf("addresses is required")
	}
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:  cfg.Addresses,
		Username:   cfg.Username,
		Password:   cfg.Password,
		APIKey:     cfg.APIKey,
		MaxRetries: cfg.MaxRetries,
		Transport:  cfg.Transport,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return &Backend{es: es}, nil
}

// Ping checks cluster connectivity.
func (b *Backend) Ping(ctx context.Context) error {
	res, err := b.es.Ping(b.es.Ping.WithContext(ctx))
	if err != nil {
		return &db.Error{Op: db.OpPing, Err: err}
	}
	defer res.Body.Close()
	if res.IsError() {
		return &db.Error{Op: db.OpPing, Err: fmt.Errorf("status %d", res.StatusCode)}
	}
	return nil
}

// Close is a no-op; the HTTP transport is shared.
func (b *Backend) Close() {}

// Search executes the pre-query with its rescorer.
func (b *Backend) Search(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error) {
	body, err := json.Marshal(BuildRequestBody(q))
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: fmt.Errorf("encode request: %w", err)}
	}

	opts := []func(*esapi.SearchRequest){
		b.es.Search.WithContext(ctx),
		b.es.Search.WithBody(bytes.NewReader(body)),
		b.es.Search.WithTrackTotalHits(true),
	}
	if len(q.Indices) > 0 {
		opts = append(opts, b.es.Search.WithIndex(q.Indices...))
	}

	res, err := b.es.Search(opts...)
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: fmt.Errorf("read response: %w", err)}
	}
	if res.IsError() {
		return nil, &db.Error{Op: db.OpSearch, Err: parseError(res.StatusCode, raw)}
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return &db.SearchResult{}, nil
	}

	out, err := parseSearchResponse(raw)
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}
	return out, nil
}

func parseError(status int, raw []byte) error {
	var e errorResponse
	if err := json.Unmarshal(raw, &e); err == nil && e.Error.Type != "" {
		if strings.Contains(e.Error.Type, "index_not_found") {
			return fmt.Errorf("%w: %s", db.ErrIndexNotFound, e.Error.Reason)
		}
		return fmt.Errorf("status %d: %s: %s", status, e.Error.Type, e.Error.Reason)
	}
	return fmt.Errorf("status %d", status)
}

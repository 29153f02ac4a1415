// Package serp is a library client for the search pipeline: it parses query
// strings against a ranking rule table, runs the two-phase query on a backend and
// returns display-ready result pages.
package serp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/serp/internal/config"
	"github.com/kailas-cloud/serp/internal/db"
	"github.com/kailas-cloud/serp/internal/db/elastic"
	"github.com/kailas-cloud/serp/internal/db/memindex"
	"github.com/kailas-cloud/serp/internal/domain"
	"github.com/kailas-cloud/serp/internal/domain/search/request"
	"github.com/kailas-cloud/serp/internal/domain/search/rules"
	"github.com/kailas-cloud/serp/internal/repository/serpcache"
	searchuc "github.com/kailas-cloud/serp/internal/usecase/search"
)

const (
	driverElastic = "elastic"
	driverMemory  = "memory"

	defaultReadinessTimeout = 10 * time.Second
)

// Client is the serp library entry point.
type Client struct {
	backend db.Backend
	memory  *memindex.Backend // set for InMemory clients
	svc     *searchuc.Service
}

// New creates a Client. A backend option and WithRules are required.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{}
	for _, o := range opts {
		o(cfg)
	}

	if cfg.driver == "" {
		return nil, errors.New("serp: backend required (use WithElasticsearch or InMemory)")
	}
	if len(cfg.rules) == 0 {
		return nil, fmt.Errorf("serp: %w: rule table required (use WithRules)", ErrInvalidRules)
	}
	tbl, err := config.ParseRules(cfg.rules)
	if err != nil {
		return nil, fmt.Errorf("serp: %w", err)
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}

	c := &Client{}
	switch cfg.driver {
	case driverElastic:
		b, err := elastic.NewBackend(elastic.Config{
			Addresses: cfg.addrs,
			Username:  cfg.username,
			Password:  cfg.password,
			APIKey:    cfg.apiKey,
		})
		if err != nil {
			return nil, fmt.Errorf("serp: create elasticsearch backend: %w", err)
		}
		if err := db.WaitForReady(context.Background(), b, defaultReadinessTimeout); err != nil {
			return nil, fmt.Errorf("serp: elasticsearch not ready: %w", err)
		}
		c.backend = b
	case driverMemory:
		c.memory = memindex.New(memindex.Config{KeywordFields: memindex.KeywordFieldsFor(tbl)})
		c.backend = c.memory
	default:
		return nil, fmt.Errorf("serp: unknown driver %q", cfg.driver)
	}

	c.svc = wireService(c.backend, tbl, cfg)
	return c, nil
}

func wireService(backend db.Backend, tbl *rules.Table, cfg *clientConfig) *searchuc.Service {
	var searcher searchuc.Searcher = backend
	if cfg.cacheSize > 0 && cfg.cacheTTL > 0 {
		store := serpcache.NewLRUStore(cfg.cacheSize, cfg.cacheTTL)
		searcher = serpcache.New(backend, store, cfg.cacheTTL, nil, cfg.logger)
	}
	return searchuc.New(searcher, tbl, searchuc.Options{
		TitleLength:     cfg.titleLength,
		SnippetLength:   cfg.snippetLength,
		DefaultLanguage: cfg.language,
		Indices:         cfg.indices,
		DefaultIndices:  cfg.defaultIndices,
	})
}

// Close releases all resources.
func (c *Client) Close() {
	if c.backend != nil {
		c.backend.Close()
	}
}

// Ping checks backend connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.backend.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Index adds documents to an in-memory index, creating it on first use.
// Only InMemory clients support indexing.
func (c *Client) Index(ctx context.Context, index string, docs []Document) error {
	if c.memory == nil {
		return fmt.Errorf("index: %w: backend is read-only", ErrNotSupported)
	}
	in := make([]memindex.Document, len(docs))
	for i, d := range docs {
		in[i] = memindex.Document{ID: d.ID, Source: d.Source}
	}
	if err := c.memory.Index(ctx, index, in); err != nil {
		return fmt.Errorf("index: %w", err)
	}
	return nil
}

// Search runs query and returns one page of results. opts may be nil.
func (c *Client) Search(ctx context.Context, query string, opts *SearchOptions) (*Page, error) {
	req, err := newRequest(query, opts)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	page, err := c.svc.Search(ctx, &req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return fromPage(page), nil
}

// BuildQuery returns the Elasticsearch _search body for query without running it.
func (c *Client) BuildQuery(query string, opts *SearchOptions) (map[string]any, error) {
	req, err := newRequest(query, opts)
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	return elastic.BuildRequestBody(c.svc.Plan(&req).Query), nil
}

func newRequest(query string, opts *SearchOptions) (request.Request, error) {
	if opts == nil {
		opts = &SearchOptions{}
	}
	if strings.TrimSpace(query) == "" {
		return request.Request{}, domain.ErrEmptyQuery
	}
	size := opts.Size
	if size == 0 {
		size = request.DefaultSize
	}
	req, err := request.New(query, opts.Indices, opts.From, size, opts.Language, opts.Explain)
	if err != nil {
		return request.Request{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if opts.Phrase {
		req = req.WithPhrase(opts.Slop)
	}
	return req, nil
}

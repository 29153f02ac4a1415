package serpcache

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/serp/internal/db"
	"github.com/kailas-cloud/serp/internal/domain/search/query"
)

type mockSearcher struct {
	res   *db.SearchResult
	err   error
	calls atomic.Int32
	// searchFn, when set, runs before the canned result is returned.
	searchFn func(ctx context.Context) error
}

func (m *mockSearcher) Search(ctx context.Context, _ *db.SearchQuery) (*db.SearchResult, error) {
	m.calls.Add(1)
	if m.searchFn != nil {
		if err := m.searchFn(ctx); err != nil {
			return nil, err
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.res, nil
}

// mockKVStore implements the consumer interface for tests.
type mockKVStore struct {
	getFn    func(ctx context.Context, key string) ([]byte, error)
	setFn    func(ctx context.Context, key string, value []byte, ttl time.Duration) error
	deleteFn func(ctx context.Context, key string) error
}

func (m *mockKVStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockKVStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if m.setFn != nil {
		return m.setFn(ctx, key, value, ttl)
	}
	return nil
}

func (m *mockKVStore) Delete(ctx context.Context, key string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, key)
	}
	return nil
}

func newCacheTotal() *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_result_cache_total"}, []string{"result"})
}

func newTestCachedSearcher(t *testing.T, inner *mockSearcher, s store) (*CachedSearcher, *prometheus.CounterVec) {
	t.Helper()
	total := newCacheTotal()
	return New(inner, s, time.Minute, total, zap.NewNop()), total
}

func testQuery(text string) *db.SearchQuery {
	return &db.SearchQuery{
		Indices: []string{"cw12"},
		Query: &query.Bool{
			Must:   []query.Node{&query.SimpleQueryString{Query: text, Fields: []query.WeightedField{{Name: "body_lang.en"}}}},
			Filter: []query.Node{&query.Term{Field: "lang", Value: "en"}},
		},
		Size: 10,
	}
}

func testResult() *db.SearchResult {
	return &db.SearchResult{
		Total: 2,
		Hits: []db.Hit{
			{ID: "d1", Index: "cw12", Score: 2.5, Source: map[string]any{"title_lang.en": "Climate"}},
			{ID: "d2", Index: "cw12", Score: 1.5},
		},
	}
}

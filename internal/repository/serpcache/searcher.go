// Package serpcache caches backend search results.
package serpcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kailas-cloud/serp/internal/db"
)

// KeyPrefix namespaces result cache keys.
const KeyPrefix = "result:"

// DefaultFlightTimeout bounds a shared backend call once its callers are gone.
const DefaultFlightTimeout = 30 * time.Second

// store is the consumer interface for the result cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// searcher is the decorated backend.
type searcher interface {
	Search(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error)
}

// CachedSearcher caches search results in a key-value store. Concurrent identical
// queries share one backend call.
type CachedSearcher struct {
	inner searcher
	store store
	ttl   time.Duration
	group singleflight.Group
	// flightTimeout bounds a shared backend call independently of its callers.
	flightTimeout time.Duration
	cacheTotal    *prometheus.CounterVec
	logger        *zap.Logger
}

// New creates a caching decorator.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"/"shared"), may be nil.
func New(
	inner searcher,
	s store,
	ttl time.Duration,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedSearcher {
	return &CachedSearcher{
		inner:         inner,
		store:         s,
		ttl:           ttl,
		flightTimeout: DefaultFlightTimeout,
		cacheTotal:    cacheTotal,
		logger:        logger,
	}
}

// Search returns a cached result or calls the inner searcher.
// Backend errors are never cached.
func (c *CachedSearcher) Search(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error) {
	key, err := CacheKey(q)
	if err != nil {
		c.logger.Warn("Result cache bypassed", zap.Error(err))
		return c.inner.Search(ctx, q)
	}

	if res, ok := c.getFromCache(ctx, key); ok {
		c.incCache("hit")
		return res, nil
	}

	// The flight outlives any single caller: other callers may share it.
	ch := c.group.DoChan(key, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.flightTimeout)
		defer cancel()
		res, err := c.inner.Search(fctx, q)
		if err != nil {
			return nil, err
		}
		c.putToCache(fctx, key, res)
		return res, nil
	})

	var r singleflight.Result
	select {
	case r = <-ch:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if r.Shared {
		c.incCache("shared")
	} else {
		c.incCache("miss")
	}
	if r.Err != nil {
		return nil, r.Err
	}
	return clone(r.Val.(*db.SearchResult)), nil
}

// CacheKey derives a stable key from the full query.
func CacheKey(q *db.SearchQuery) (string, error) {
	data, err := json.Marshal(q)
	if err != nil {
		return "", fmt.Errorf("encode cache key: %w", err)
	}
	h := sha256.Sum256(data)
	return KeyPrefix + hex.EncodeToString(h[:]), nil
}

func (c *CachedSearcher) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

func (c *CachedSearcher) getFromCache(ctx context.Context, key string) (*db.SearchResult, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Result cache get failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}

	var res db.SearchResult
	if err := json.Unmarshal(data, &res); err != nil {
		c.logger.Warn("Invalid result cache entry", zap.String("key", key), zap.Error(err))
		if err := c.store.Delete(ctx, key); err != nil {
			c.logger.Warn("Failed to drop result cache entry", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	return &res, true
}

func (c *CachedSearcher) putToCache(ctx context.Context, key string, res *db.SearchResult) {
	data, err := json.Marshal(res)
	if err != nil {
		c.logger.Warn("Failed to encode search result", zap.Error(err))
		return
	}
	if err := c.store.SetWithTTL(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("Failed to cache search result", zap.String("key", key), zap.Error(err))
	}
}

// clone copies the hit slice so that callers sharing a flight cannot affect each other.
func clone(res *db.SearchResult) *db.SearchResult {
	if res == nil {
		return nil
	}
	out := *res
	out.Hits = append([]db.Hit(nil), res.Hits...)
	return &out
}

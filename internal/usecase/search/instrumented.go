package search

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/serp/internal/db"
	"github.com/kailas-cloud/serp/internal/metrics"
)

// InstrumentedSearcher wraps a backend with metrics and logging.
type InstrumentedSearcher struct {
	inner   Searcher
	backend string
	logger  *zap.Logger
}

// NewInstrumentedSearcher wraps a backend searcher. backend labels the metrics.
func NewInstrumentedSearcher(inner Searcher, backend string, logger *zap.Logger) *InstrumentedSearcher {
	return &InstrumentedSearcher{inner: inner, backend: backend, logger: logger}
}

// Search delegates to the inner searcher and records duration, status and hit counts.
func (p *InstrumentedSearcher) Search(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error) {
	rescore := "no"
	if q.Rescore != nil {
		rescore = "yes"
	}
	metrics.SearchRescoreTotal.WithLabelValues(p.backend, rescore).Inc()

	start := time.Now()
	res, err := p.inner.Search(ctx, q)
	duration := time.Since(start)

	metrics.SearchRequestDuration.WithLabelValues(p.backend).Observe(duration.Seconds())
	if err != nil {
		metrics.SearchRequestsTotal.WithLabelValues(p.backend, "error").Inc()
		p.logger.Error("Search request failed",
			zap.String("backend", p.backend),
			zap.Strings("indices", q.Indices),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return nil, fmt.Errorf("search %s: %w", p.backend, err)
	}
	metrics.SearchRequestsTotal.WithLabelValues(p.backend, "ok").Inc()

	var total int64
	var hits int
	if res != nil {
		total, hits = res.Total, len(res.Hits)
	}
	metrics.SearchHits.WithLabelValues(p.backend).Observe(float64(total))

	p.logger.Debug("Search request completed",
		zap.String("backend", p.backend),
		zap.Strings("indices", q.Indices),
		zap.Duration("duration", duration),
		zap.Int64("total", total),
		zap.Int("hits", hits),
	)
	return res, nil
}

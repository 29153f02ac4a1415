package search

import (
	"context"

	"github.com/kailas-cloud/serp/internal/db"
)

// Searcher executes a two-phase query against the search backend.
type Searcher interface {
	Search(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error)
}

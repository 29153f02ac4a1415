package db

import (
	"context"
	"time"
)

// Backend is the search backend facade.
type Backend interface {
	Pinger
	Searcher
	Close()
}

// Store is the key-value store facade used for result caching.
type Store interface {
	Pinger
	KVStore
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// KVStore provides simple key-value operations.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Counter provides atomic counters with expiry.
type Counter interface {
	Get(ctx context.Context, key string) ([]byte, error)
	IncrBy(ctx context.Context, key string, val int64) error
	// Expire sets a TTL on key. With nx set, an existing TTL is kept.
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
}

// Searcher executes two-phase search queries.
type Searcher interface {
	Search(ctx context.Context, q *SearchQuery) (*SearchResult, error)
}

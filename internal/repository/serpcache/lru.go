package serpcache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/kailas-cloud/serp/internal/db"
)

// LRUStore is an in-process store with a size bound and a single TTL.
type LRUStore struct {
	lru *expirable.LRU[string, []byte]
}

// NewLRUStore creates a store holding at most size entries for ttl each.
// A zero ttl disables expiry.
func NewLRUStore(size int, ttl time.Duration) *LRUStore {
	return &LRUStore{lru: expirable.NewLRU[string, []byte](size, nil, ttl)}
}

// Get returns db.ErrKeyNotFound for missing or expired keys.
func (s *LRUStore) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := s.lru.Get(key)
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

// SetWithTTL stores value. The per-call ttl is ignored in favor of the store TTL.
func (s *LRUStore) SetWithTTL(_ context.Context, key string, value []byte, _ time.Duration) error {
	s.lru.Add(key, value)
	return nil
}

// Delete removes key.
func (s *LRUStore) Delete(_ context.Context, key string) error {
	s.lru.Remove(key)
	return nil
}

// Len returns the number of cached entries.
func (s *LRUStore) Len() int {
	return s.lru.Len()
}

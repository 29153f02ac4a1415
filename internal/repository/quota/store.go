// Package quota persists per-key request counters in a db.Counter.
package quota

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/serp/internal/db"
)

// Default key lifetimes. Each outlives its period so a restart inside the
// period still finds the counter.
const (
	DefaultDailyTTL   = 48 * time.Hour
	DefaultWeeklyTTL  = 15 * 24 * time.Hour
	DefaultMonthlyTTL = 62 * 24 * time.Hour
)

// Store implements the tracker's counter store with INCRBY + EXPIRE NX.
type Store struct {
	counter db.Counter
	ttls    map[string]time.Duration
}

// New creates a quota store with the default key lifetimes.
func New(c db.Counter) *Store {
	return &Store{
		counter: c,
		ttls: map[string]time.Duration{
			"daily":   DefaultDailyTTL,
			"weekly":  DefaultWeeklyTTL,
			"monthly": DefaultMonthlyTTL,
		},
	}
}

// IncrBy atomically increments the counter and sets its TTL on first write.
func (s *Store) IncrBy(ctx context.Context, key string, val int64) error {
	if err := s.counter.IncrBy(ctx, key, val); err != nil {
		return fmt.Errorf("quota INCRBY %s: %w", key, err)
	}
	// NX keeps the first expiry so repeated writes do not extend the window.
	if err := s.counter.Expire(ctx, key, s.ttlForKey(key), true); err != nil {
		return fmt.Errorf("quota EXPIRE %s: %w", key, err)
	}
	return nil
}

// Get returns the counter value, 0 if the key does not exist.
func (s *Store) Get(ctx context.Context, key string) (int64, error) {
	data, err := s.counter.Get(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("quota GET %s: %w", key, err)
	}

	val, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("quota GET %s parse: %w", key, err)
	}
	return val, nil
}

// ttlForKey picks the TTL from the period segment of quota:{key}:{period}:{label}.
func (s *Store) ttlForKey(key string) time.Duration {
	for period, ttl := range s.ttls {
		if strings.Contains(key, ":"+period+":") {
			return ttl
		}
	}
	return DefaultMonthlyTTL
}

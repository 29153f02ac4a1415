package redis

import (
	"context"
	"time"

	"github.com/kailas-cloud/serp/internal/db"
)

var _ db.Counter = (*Store)(nil)

// IncrBy atomically adds val to the integer stored at key.
func (s *Store) IncrBy(ctx context.Context, key string, val int64) error {
	cmd := s.client.B().Incrby().Key(s.key(key)).Increment(val).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpIncrBy, Err: err}
	}
	return nil
}

// Expire sets a TTL on key, rounded down to whole seconds.
// With nx set the TTL is only applied when the key has none.
func (s *Store) Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error {
	seconds := int64(ttl / time.Second)
	cmd := s.client.B().Expire().Key(s.key(key)).Seconds(seconds).Build()
	if nx {
		cmd = s.client.B().Expire().Key(s.key(key)).Seconds(seconds).Nx().Build()
	}
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpExpire, Err: err}
	}
	return nil
}

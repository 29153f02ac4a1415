// Package quota enforces per-API-key request limits over calendar periods.
package quota

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/serp/internal/domain"
)

// Action defines behavior when a quota is exhausted.
type Action string

const (
	// ActionWarn logs a warning but allows the request.
	ActionWarn Action = "warn"
	// ActionReject blocks the request.
	ActionReject Action = "reject"
)

// Limits caps requests per key. Zero means unlimited.
type Limits struct {
	Daily   int64
	Weekly  int64
	Monthly int64
}

// Enabled reports whether any limit is set.
func (l Limits) Enabled() bool {
	return l.Daily > 0 || l.Weekly > 0 || l.Monthly > 0
}

// Store is the persistence interface for quota counters.
type Store interface {
	IncrBy(ctx context.Context, key string, val int64) error
	Get(ctx context.Context, key string) (int64, error)
}

type period int

const (
	daily period = iota
	weekly
	monthly
	numPeriods
)

var periodNames = [numPeriods]string{"daily", "weekly", "monthly"}

func (p period) String() string { return periodNames[p] }

// start returns the UTC start of the period containing t. Weeks start on Monday.
func (p period) start(t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	switch p {
	case weekly:
		return day.AddDate(0, 0, -((int(day.Weekday()) + 6) % 7))
	case monthly:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		return day
	}
}

func (p period) label(t time.Time) string {
	switch p {
	case weekly:
		y, w := t.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", y, w)
	case monthly:
		return t.Format("2006-01")
	default:
		return t.Format("2006-01-02")
	}
}

// ExceededError reports the period whose limit was reached.
type ExceededError struct {
	Period string
	Limit  int64
	Reset  time.Time
}

func (e *ExceededError) Error() string {
	return fmt.Sprintf("%s quota of %d requests exceeded", e.Period, e.Limit)
}

func (e *ExceededError) Unwrap() error { return domain.ErrQuotaExceeded }

// Remaining is the number of requests left per period, -1 when unlimited.
type Remaining struct {
	Daily   int64
	Weekly  int64
	Monthly int64
}

type counters struct {
	used   [numPeriods]int64
	starts [numPeriods]time.Time
}

// Tracker counts requests per API key in memory, with optional write-behind
// persistence. Allow never waits on the store except to load a key the first
// time it is seen.
type Tracker struct {
	mu     sync.Mutex
	limits [numPeriods]int64
	action Action
	keys   map[string]*counters
	store  Store
	now    func() time.Time
	logger *zap.Logger
}

// NewTracker creates a tracker with the given limits.
func NewTracker(limits Limits, action Action, logger *zap.Logger) *Tracker {
	return &Tracker{
		limits: [numPeriods]int64{limits.Daily, limits.Weekly, limits.Monthly},
		action: action,
		keys:   make(map[string]*counters),
		now:    time.Now,
		logger: logger,
	}
}

// WithStore attaches a persistence store. Counters of a key are loaded from
// it the first time the key is seen.
func (t *Tracker) WithStore(store Store) *Tracker {
	t.store = store
	return t
}

// Allow counts one request for apiKey. It returns an *ExceededError wrapping
// domain.ErrQuotaExceeded when a limit is reached and the action is reject.
// Rejected requests are not counted.
func (t *Tracker) Allow(ctx context.Context, apiKey string) error {
	id := keyID(apiKey)

	t.mu.Lock()
	now := t.now().UTC()
	if _, ok := t.keys[id]; !ok && t.store != nil {
		// Load without the lock; a concurrent first request may win the insert.
		store := t.store
		t.mu.Unlock()
		loaded := t.load(ctx, store, id, now)
		t.mu.Lock()
		if _, ok := t.keys[id]; !ok {
			t.keys[id] = loaded
		}
	}
	c := t.countersFor(id, now)

	for p := range numPeriods {
		limit := t.limits[p]
		if limit == 0 || c.used[p] < limit {
			continue
		}
		if t.action == ActionReject {
			t.mu.Unlock()
			return &ExceededError{Period: p.String(), Limit: limit, Reset: nextStart(p, now)}
		}
		t.logger.Warn("Request quota exceeded",
			zap.String("key_id", id),
			zap.String("period", p.String()),
			zap.Int64("used", c.used[p]),
			zap.Int64("limit", limit),
		)
		break
	}

	var storeKeys []string
	for p := range numPeriods {
		c.used[p]++
		if t.store != nil && t.limits[p] > 0 {
			storeKeys = append(storeKeys, storeKey(id, p, now))
		}
	}
	store := t.store
	t.mu.Unlock()

	if store == nil || len(storeKeys) == 0 {
		return nil
	}

	// Write-behind with its own deadline so a slow store cannot stall the caller's context.
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	for _, key := range storeKeys {
		if err := store.IncrBy(wctx, key, 1); err != nil {
			t.logger.Warn("Failed to persist quota counter", zap.String("key", key), zap.Error(err))
		}
	}
	return nil
}

// Remaining returns the requests left for apiKey in each period.
func (t *Tracker) Remaining(apiKey string) Remaining {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now().UTC()
	var used [numPeriods]int64
	if c, ok := t.keys[keyID(apiKey)]; ok {
		c.roll(now)
		used = c.used
	}

	var left [numPeriods]int64
	for p := range numPeriods {
		switch limit := t.limits[p]; {
		case limit == 0:
			left[p] = -1
		case used[p] >= limit:
			left[p] = 0
		default:
			left[p] = limit - used[p]
		}
	}
	return Remaining{Daily: left[daily], Weekly: left[weekly], Monthly: left[monthly]}
}

// countersFor returns the counters of id rolled to now. Must hold t.mu.
func (t *Tracker) countersFor(id string, now time.Time) *counters {
	c, ok := t.keys[id]
	if !ok {
		c = newCounters(now)
		t.keys[id] = c
		return c
	}
	c.roll(now)
	return c
}

func newCounters(now time.Time) *counters {
	c := &counters{}
	for p := range numPeriods {
		c.starts[p] = p.start(now)
	}
	return c
}

// load reads the persisted counters of id. Must not hold t.mu.
func (t *Tracker) load(ctx context.Context, store Store, id string, now time.Time) *counters {
	c := newCounters(now)
	for p := range numPeriods {
		if t.limits[p] == 0 {
			continue
		}
		val, err := store.Get(ctx, storeKey(id, p, now))
		if err != nil {
			t.logger.Warn("Failed to load quota counter",
				zap.String("key_id", id), zap.String("period", p.String()), zap.Error(err))
			continue
		}
		c.used[p] = val
	}
	return c
}

// roll zeroes the counters of every period that has ended.
func (c *counters) roll(now time.Time) {
	for p := range numPeriods {
		if start := p.start(now); start.After(c.starts[p]) {
			c.used[p] = 0
			c.starts[p] = start
		}
	}
}

func nextStart(p period, now time.Time) time.Time {
	start := p.start(now)
	switch p {
	case weekly:
		return start.AddDate(0, 0, 7)
	case monthly:
		return start.AddDate(0, 1, 0)
	default:
		return start.AddDate(0, 0, 1)
	}
}

func storeKey(id string, p period, t time.Time) string {
	return fmt.Sprintf("quota:%s:%s:%s", id, p, p.label(t))
}

// keyID identifies an API key in logs and storage without revealing it.
func keyID(apiKey string) string {
	sum := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(sum[:8])
}

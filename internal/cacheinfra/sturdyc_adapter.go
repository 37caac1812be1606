package cacheinfra

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/viccon/sturdyc"
)

// ErrMiss is returned by stores when a key is absent or expired.
var ErrMiss = errors.New("cache miss", errors.CategoryNotFound).WithTextCode("CACHE_MISS")

// entry carries its own expiry so keys can live shorter than the client TTL.
type entry struct {
	value     []byte
	expiresAt time.Time
}

// ScanCursorTTL is how long an unfinished scan can be resumed. Cursors of
// abandoned scans are dropped once they are older than this.
const ScanCursorTTL = time.Minute

type scanCursor struct {
	after     string
	createdAt time.Time
}

// MemoryOption customizes a MemoryStore.
type MemoryOption func(*memoryOptions)

type memoryOptions struct {
	clock sturdyc.Clock
}

// WithClock replaces the wall clock, mostly for tests driven by sturdyc.NewTestClock.
func WithClock(clock sturdyc.Clock) MemoryOption {
	return func(o *memoryOptions) {
		o.clock = clock
	}
}

// MemoryStore is an in-process store backed by a sturdyc client.
// It mirrors the redis SCAN contract so prefix purges behave the same on both backends.
type MemoryStore struct {
	client  *sturdyc.Client[entry]
	clock   sturdyc.Clock
	maxTTL  time.Duration
	logger  *slog.Logger
	cursors *xsync.MapOf[uint64, scanCursor]
	nextID  *xsync.Counter
}

// NewMemoryStore validates the configuration and initializes a sturdyc client with it.
func NewMemoryStore(cfg Config, opts ...MemoryOption) (*MemoryStore, error) {
	if cfg.Driver == "" {
		cfg.Driver = DriverMemory
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := memoryOptions{clock: sturdyc.NewClock()}
	for _, opt := range opts {
		opt(&o)
	}

	sturdycOpts := append(cfg.ToSturdycOptions(), sturdyc.WithClock(o.clock))

	client := sturdyc.New[entry](
		cfg.Capacity,
		cfg.NumShards,
		cfg.TTL,
		cfg.EvictionPercentage,
		sturdycOpts...,
	)

	return &MemoryStore{
		client:  client,
		clock:   o.clock,
		maxTTL:  cfg.TTL,
		logger:  cfg.logger(),
		cursors: xsync.NewMapOf[uint64, scanCursor](),
		nextID:  xsync.NewCounter(),
	}, nil
}

// Get returns the stored bytes or ErrMiss.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	e, ok := s.client.Get(key)
	if !ok {
		return nil, ErrMiss
	}
	if s.clock.Now().After(e.expiresAt) {
		s.client.Delete(key)
		return nil, ErrMiss
	}
	return e.value, nil
}

// Set stores value for ttl, capped to the client TTL.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 || ttl > s.maxTTL {
		ttl = s.maxTTL
	}
	buf := make([]byte, len(value))
	copy(buf, value)
	s.client.Set(key, entry{value: buf, expiresAt: s.clock.Now().Add(ttl)})
	return nil
}

// Delete removes the given keys. Missing keys are ignored.
func (s *MemoryStore) Delete(_ context.Context, keys ...string) error {
	for _, key := range keys {
		s.client.Delete(key)
	}
	return nil
}

// Scan walks the keyspace in lexical order, count keys at a time.
// A zero cursor starts a new iteration and a zero next cursor ends it.
// Keys deleted between calls never cause later keys to be skipped.
func (s *MemoryStore) Scan(_ context.Context, cursor uint64, match string, count int64) ([]string, uint64, error) {
	if count <= 0 {
		count = 10
	}

	after := ""
	if cursor != 0 {
		last, ok := s.cursors.LoadAndDelete(cursor)
		if !ok || s.clock.Now().Sub(last.createdAt) > ScanCursorTTL {
			return nil, 0, errors.New("unknown scan cursor", errors.CategoryBadInput).
				WithTextCode("CACHE_SCAN_CURSOR")
		}
		after = last.after
	}

	all := s.client.ScanKeys()
	sort.Strings(all)

	var batch []string
	more := false
	for _, key := range all {
		if key <= after {
			continue
		}
		if int64(len(batch)) == count {
			more = true
			break
		}
		if Match(match, key) {
			batch = append(batch, key)
		}
	}

	if !more || len(batch) == 0 {
		return batch, 0, nil
	}

	now := s.clock.Now()
	s.sweepCursors(now)

	s.nextID.Inc()
	next := uint64(s.nextID.Value())
	s.cursors.Store(next, scanCursor{after: batch[len(batch)-1], createdAt: now})
	return batch, next, nil
}

// sweepCursors drops cursors of scans that were never finished.
func (s *MemoryStore) sweepCursors(now time.Time) {
	s.cursors.Range(func(id uint64, c scanCursor) bool {
		if now.Sub(c.createdAt) > ScanCursorTTL {
			s.cursors.Delete(id)
		}
		return true
	})
}

// PendingScans reports how many scan cursors are waiting to be resumed.
func (s *MemoryStore) PendingScans() int {
	return s.cursors.Size()
}

// Size reports the number of entries held, expired ones included until evicted.
func (s *MemoryStore) Size() int {
	return s.client.Size()
}

// Close is a no-op; sturdyc owns its eviction goroutine for the process lifetime.
func (s *MemoryStore) Close() error {
	return nil
}

// Match reports whether key matches a redis style glob supporting '*' and '?'.
func Match(pattern, key string) bool {
	if pattern == "" || pattern == "*" {
		return true
	}
	p, k := 0, 0
	star, mark := -1, 0
	for k < len(key) {
		switch {
		case p < len(pattern) && (pattern[p] == '?' || pattern[p] == key[k]):
			p++
			k++
		case p < len(pattern) && pattern[p] == '*':
			star = p
			mark = k
			p++
		case star != -1:
			p = star + 1
			mark++
			k = mark
		default:
			return false
		}
	}
	for p < len(pattern) && pattern[p] == '*' {
		p++
	}
	return p == len(pattern)
}

package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-jastip/internal/cacheinfra"
	"github.com/puzpuzpuz/xsync/v3"
)

const (
	// DefaultTTL is used when Set is called without a ttl.
	DefaultTTL = time.Hour

	// ScanBatchSize bounds every SCAN step issued by DeleteByPrefix.
	ScanBatchSize = 100
)

// ErrMiss is reported by stores for absent or expired keys.
var ErrMiss = cacheinfra.ErrMiss

// Store is the key-value backend behind the facade.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Scan(ctx context.Context, cursor uint64, match string, count int64) ([]string, uint64, error)
	Close() error
}

// KeySerializer builds a cache key from a prefix + arbitrary args.
// It is responsible for producing stable keys across calls.
type KeySerializer interface {
	SerializeKey(prefix string, args ...any) string
}

// FetchFn is the function signature GetOrFetch expects when fetching from the source of truth.
type FetchFn[T any] func(ctx context.Context) (T, error)

// CacheService exposes the best-effort operations used by services and decorators.
// None of them report backend failures: a broken cache behaves like an empty one.
type CacheService interface {
	Lookup(ctx context.Context, key string, dest any) bool
	Set(ctx context.Context, key string, value any, ttl time.Duration)
	Delete(ctx context.Context, key string)
	DeleteByPrefix(ctx context.Context, prefix string) int
}

// Stats is a snapshot of the facade counters.
type Stats struct {
	Hits      int64
	Misses    int64
	Errors    int64
	Purged    int64
	ScanCalls int64
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger used to report degraded cache operations.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithDefaultTTL overrides DefaultTTL.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.defaultTTL = ttl
		}
	}
}

// WithCodec replaces the msgpack codec.
func WithCodec(codec Codec) Option {
	return func(s *Service) {
		if codec != nil {
			s.codec = codec
		}
	}
}

// Service is the default CacheService on top of a Store.
type Service struct {
	store      Store
	codec      Codec
	logger     *slog.Logger
	defaultTTL time.Duration

	hits      *xsync.Counter
	misses    *xsync.Counter
	errs      *xsync.Counter
	purged    *xsync.Counter
	scanCalls *xsync.Counter
}

var _ CacheService = (*Service)(nil)

// NewService wraps store with encoding, TTL defaults and failure isolation.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:      store,
		codec:      MsgpackCodec{},
		logger:     slog.Default(),
		defaultTTL: DefaultTTL,
		hits:       xsync.NewCounter(),
		misses:     xsync.NewCounter(),
		errs:       xsync.NewCounter(),
		purged:     xsync.NewCounter(),
		scanCalls:  xsync.NewCounter(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Lookup decodes the value stored at key into dest and reports whether it did.
// Backend errors and undecodable payloads are logged and treated as a miss.
func (s *Service) Lookup(ctx context.Context, key string, dest any) bool {
	data, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrMiss) {
			s.misses.Inc()
			return false
		}
		s.errs.Inc()
		s.logger.Warn("cache get failed", "key", key, "error", err)
		return false
	}

	if err := s.codec.Unmarshal(data, dest); err != nil {
		s.errs.Inc()
		s.logger.Warn("cache payload malformed", "key", key, "error", err)
		return false
	}

	s.hits.Inc()
	return true
}

// Set stores value under key. Failures are logged and swallowed.
func (s *Service) Set(ctx context.Context, key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}

	data, err := s.codec.Marshal(value)
	if err != nil {
		s.errs.Inc()
		s.logger.Warn("cache encode failed", "key", key, "error", err)
		return
	}

	if err := s.store.Set(ctx, key, data, ttl); err != nil {
		s.errs.Inc()
		s.logger.Warn("cache set failed", "key", key, "error", err)
	}
}

// Delete removes a single key.
func (s *Service) Delete(ctx context.Context, key string) {
	if err := s.store.Delete(ctx, key); err != nil {
		s.errs.Inc()
		s.logger.Warn("cache delete failed", "key", key, "error", err)
	}
}

// DeleteByPrefix removes every key starting with prefix, ScanBatchSize keys per
// SCAN step, until the cursor wraps back to zero. The bare prefix key goes too.
// It returns how many keys were removed before any failure stopped it.
func (s *Service) DeleteByPrefix(ctx context.Context, prefix string) int {
	match := prefix + "*"
	deleted := 0

	var cursor uint64
	for {
		s.scanCalls.Inc()
		keys, next, err := s.store.Scan(ctx, cursor, match, ScanBatchSize)
		if err != nil {
			s.errs.Inc()
			s.logger.Warn("cache scan failed", "prefix", prefix, "error", err)
			return deleted
		}

		if len(keys) > 0 {
			if err := s.store.Delete(ctx, keys...); err != nil {
				s.errs.Inc()
				s.logger.Warn("cache purge failed", "prefix", prefix, "error", err)
				return deleted
			}
			deleted += len(keys)
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	s.Delete(ctx, prefix)
	s.purged.Add(int64(deleted))
	s.logger.Debug("cache prefix purged", "prefix", prefix, "deleted", deleted)
	return deleted
}

// Stats returns the current counter values.
func (s *Service) Stats() Stats {
	return Stats{
		Hits:      s.hits.Value(),
		Misses:    s.misses.Value(),
		Errors:    s.errs.Value(),
		Purged:    s.purged.Value(),
		ScanCalls: s.scanCalls.Value(),
	}
}

// Close releases the underlying store.
func (s *Service) Close() error {
	return s.store.Close()
}

// Get is a type-safe wrapper around CacheService.Lookup.
func Get[T any](ctx context.Context, service CacheService, key string) (T, bool) {
	var value T
	if !service.Lookup(ctx, key, &value) {
		var zero T
		return zero, false
	}
	return value, true
}

// GetOrFetch returns the cached value for key or calls fetchFn and caches its result.
// Errors from fetchFn are returned untouched and nothing is cached.
func GetOrFetch[T any](ctx context.Context, service CacheService, key string, ttl time.Duration, fetchFn FetchFn[T]) (T, error) {
	if value, ok := Get[T](ctx, service, key); ok {
		return value, nil
	}

	value, err := fetchFn(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	service.Set(ctx, key, value, ttl)
	return value, nil
}

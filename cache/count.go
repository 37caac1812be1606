package cache

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/puzpuzpuz/xsync/v3"
)

// CountTTL is how long a table count stays cached. Counts drift with every
// write, while listing pages are purged explicitly, so this stays short.
const CountTTL = 120 * time.Second

// CountFn performs the full count against the datastore.
type CountFn func(ctx context.Context) (int, error)

// CountCache memoizes per entity table counts.
type CountCache struct {
	service  CacheService
	ttl      time.Duration
	counters *xsync.MapOf[string, CountFn]
}

// NewCountCache creates a count cache storing entries for CountTTL.
func NewCountCache(service CacheService) *CountCache {
	return &CountCache{
		service:  service,
		ttl:      CountTTL,
		counters: xsync.NewMapOf[string, CountFn](),
	}
}

// CountKey returns the cache key holding the count of entity, e.g. "resi-count".
// It shares the entity prefix so purging the collection drops its count too.
func CountKey(entity string) string {
	return entity + "-count"
}

// Register binds the counting function for entity.
func (c *CountCache) Register(entity string, fn CountFn) {
	c.counters.Store(entity, fn)
}

// GetCount returns the cached count of entity, counting and caching on a miss.
func (c *CountCache) GetCount(ctx context.Context, entity string) (int, error) {
	fn, ok := c.counters.Load(entity)
	if !ok {
		return 0, errors.New("no counter registered for "+entity, errors.CategoryInternal).
			WithCode(errors.CodeInternal).
			WithTextCode("COUNT_UNREGISTERED")
	}

	return GetOrFetch(ctx, c.service, CountKey(entity), c.ttl, FetchFn[int](fn))
}

// Invalidate drops the cached count of entity.
func (c *CountCache) Invalidate(ctx context.Context, entity string) {
	c.service.Delete(ctx, CountKey(entity))
}

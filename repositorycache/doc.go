// Package repositorycache provides cached repository decorators for go-repository-bun.
//
// # Overview
//
// CachedRepository wraps a base repository and serves single-record lookups
// (GetByID, GetByIdentifier) from the cache facade, falling back to the base
// repository on a miss and caching what it returns. Records are stored under
// "{namespace}:{id}", for example "resi:JP1001" or "user:7". The namespace
// defaults to the snake_case name of the record type.
//
// # Basic Usage
//
//	base := repository.NewRepository[*domain.Resi](db, domain.ResiHandlers())
//	resi := repositorycache.New(base, cacheService, cache.NewDefaultKeySerializer(),
//		repositorycache.WithReadCriteria(func(q *bun.SelectQuery) *bun.SelectQuery {
//			return q.Relation("User").Relation("Cod")
//		}),
//	)
//
//	r, err := resi.GetByIdentifier(ctx, "JP1001")
//
// # Cached vs Pass-through Operations
//
// Cached:
//   - GetByID, GetByIdentifier when called without criteria
//
// Pass-through:
//   - Get, List and Count (listings are cached as HTTP responses and counts
//     live in the count cache)
//   - all transaction-based operations (*Tx methods)
//   - Raw SQL queries
//
// # Invalidation
//
// Successful non-transactional writes purge every key under the namespace
// with CacheService.DeleteByPrefix. The namespace is the same prefix the
// listing responses and counts of the collection use, so one purge drops
// them all. Transactional writes never touch the cache: the transaction may
// still roll back, and the caller invalidates once it commits.
//
// # Error Handling
//
// Errors from the base repository are propagated unchanged and never cached.
// Cache failures degrade to a base repository read.
package repositorycache

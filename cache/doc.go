// Package cache provides the best-effort cache facade used in front of the datastore.
//
// # Overview
//
// The package exports:
//
//   - Store: the key-value backend contract (get, set with ttl, delete, scan)
//   - CacheService / Service: the facade that encodes values and never fails the caller
//   - CountCache: short lived per entity table counts
//   - KeySerializer: builds stable, prefix-first keys from arbitrary arguments
//
// Two stores ship with the module: an in-process sturdyc store and a redis store.
// Both are built from Config through NewStore.
//
// # Basic Usage
//
//	store, err := cache.NewStore(cache.DefaultConfig(), logger)
//	svc := cache.NewService(store, cache.WithLogger(logger))
//
//	resi, err := cache.GetOrFetch(ctx, svc, cache.Key("resi", noResi), 10*time.Minute,
//		func(ctx context.Context) (*domain.Resi, error) {
//			return repo.GetByIdentifier(ctx, noResi)
//		})
//
// # Failure Semantics
//
// Lookup treats backend errors and malformed payloads as a miss. Set and Delete
// log failures and return nothing. A cache outage therefore turns every read into
// a datastore read and silently disables write-through.
//
// # Prefix Invalidation
//
// DeleteByPrefix walks the keyspace with SCAN in batches of ScanBatchSize keys
// matching prefix*, deleting each batch, until the cursor returns to zero. Keys are
// therefore laid out prefix first:
//
//	resi:JP001                 single record
//	resi:/api/resi?limit=10    cached listing response
//	resi-count                 table count
//
// so DeleteByPrefix(ctx, "resi") drops all three.
package cache

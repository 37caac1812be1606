package testsupport

import (
	"testing"

	"github.com/goliatone/go-jastip/cache"
)

// NewCache returns a cache service over a fresh in-memory store.
func NewCache(t testing.TB) *cache.Service {
	t.Helper()

	store, err := cache.NewStore(cache.DefaultConfig(), DiscardLogger)
	if err != nil {
		t.Fatalf("failed to create cache store: %v", err)
	}
	svc := cache.NewService(store, cache.WithLogger(DiscardLogger))
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

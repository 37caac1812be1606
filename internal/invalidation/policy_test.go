package invalidation

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-jastip/cache"
	"github.com/goliatone/go-jastip/pkg/testsupport"
)

type record struct {
	NoResi string
	Posisi string
}

func seedKeys(ctx context.Context, svc cache.CacheService) {
	for _, k := range []string{
		"resi",
		"resi:/api/resi?limit=10",
		"resi:/api/resi/search?keyword=itc",
		"resi:JP1001",
		"resi-count",
		"transaksi:/api/transaksi",
		"transaksi-count",
		"users:/api/users",
		"users-count",
		"user:7",
		"user:/api/users/7",
	} {
		svc.Set(ctx, k, k, time.Minute)
	}
}

func has(ctx context.Context, svc cache.CacheService, key string) bool {
	_, ok := cache.Get[string](ctx, svc, key)
	return ok
}

func TestPolicy_Apply(t *testing.T) {
	tests := []struct {
		name    string
		event   Event
		purged  []string
		kept    []string
		reseed  string
		wantCnt int
	}{
		{
			name:    "resi created",
			event:   Event{Mutation: ResiCreated, ID: "JP2002", Record: record{NoResi: "JP2002", Posisi: "Gudang"}},
			purged:  []string{"resi", "resi:/api/resi?limit=10", "resi:JP1001", "resi-count"},
			kept:    []string{"transaksi:/api/transaksi", "users-count", "user:7"},
			reseed:  "resi:JP2002",
			wantCnt: 5,
		},
		{
			name:    "resi deleted",
			event:   Event{Mutation: ResiDeleted, ID: "JP1001"},
			purged:  []string{"resi:JP1001", "resi-count"},
			kept:    []string{"transaksi-count"},
			wantCnt: 5,
		},
		{
			name:    "transaksi created",
			event:   Event{Mutation: TransaksiCreated},
			purged:  []string{"resi:JP1001", "transaksi:/api/transaksi", "transaksi-count", "resi-count"},
			kept:    []string{"users:/api/users", "user:7"},
			wantCnt: 7,
		},
		{
			name:    "user updated",
			event:   Event{Mutation: UserUpdated, ID: "7", Record: record{Posisi: "x"}},
			purged:  []string{"users:/api/users", "users-count", "user:/api/users/7"},
			kept:    []string{"resi-count", "transaksi-count"},
			reseed:  "user:7",
			wantCnt: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			svc := testsupport.NewCache(t)
			seedKeys(ctx, svc)

			policy := NewPolicy(svc, WithLogger(testsupport.DiscardLogger))
			n := policy.Apply(ctx, tt.event)

			if n != tt.wantCnt {
				t.Errorf("expected %d keys purged, got %d", tt.wantCnt, n)
			}
			for _, k := range tt.purged {
				if has(ctx, svc, k) {
					t.Errorf("expected %s to be purged", k)
				}
			}
			for _, k := range tt.kept {
				if !has(ctx, svc, k) {
					t.Errorf("expected %s to survive", k)
				}
			}
			if tt.reseed != "" {
				if _, ok := cache.Get[record](ctx, svc, tt.reseed); !ok {
					t.Errorf("expected %s to be re-seeded", tt.reseed)
				}
			}
		})
	}
}

func TestPolicy_UnknownMutation(t *testing.T) {
	ctx := context.Background()
	svc := testsupport.NewCache(t)
	seedKeys(ctx, svc)

	policy := NewPolicy(svc, WithLogger(testsupport.DiscardLogger), WithRules(map[Mutation]Rule{}))
	if n := policy.Apply(ctx, Event{Mutation: ResiCreated}); n != 0 {
		t.Errorf("expected nothing purged, got %d", n)
	}
	if !has(ctx, svc, "resi:JP1001") {
		t.Error("expected keys to survive")
	}
}

func TestRecordKey(t *testing.T) {
	if got := RecordKey(PrefixResi, "JP1001"); got != "resi:JP1001" {
		t.Errorf("unexpected key %s", got)
	}
}

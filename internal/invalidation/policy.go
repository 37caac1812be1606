// Package invalidation maps domain mutations to cache purges.
//
// Invalidation is coarse: a mutation purges every key under the prefixes of
// the collections it touches, listing pages, filtered searches and counts
// alike, and then optionally re-seeds the single-record entry it just wrote.
package invalidation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/goliatone/go-jastip/cache"
)

// Cache prefixes. Each collection's listing responses, counts and records
// live under its prefix.
const (
	PrefixResi      = "resi"
	PrefixTransaksi = "transaksi"
	PrefixUsers     = "users"
	PrefixUser      = "user"
)

// RecordTTL is how long a re-seeded record stays cached.
const RecordTTL = 600 * time.Second

type Mutation int

const (
	ResiCreated Mutation = iota + 1
	ResiUpdated
	ResiDeleted
	TransaksiCreated
	UserCreated
	UserUpdated
)

func (m Mutation) String() string {
	switch m {
	case ResiCreated:
		return "resi_created"
	case ResiUpdated:
		return "resi_updated"
	case ResiDeleted:
		return "resi_deleted"
	case TransaksiCreated:
		return "transaksi_created"
	case UserCreated:
		return "user_created"
	case UserUpdated:
		return "user_updated"
	}
	return fmt.Sprintf("mutation(%d)", int(m))
}

// Event is a committed mutation. ID identifies the written record (noResi
// for resi, the numeric id for users) and Record is its fresh value.
type Event struct {
	Mutation Mutation
	ID       string
	Record   any
}

// Rule is the invalidation action for one mutation.
type Rule struct {
	Purge []string
	// Reseed is the prefix of the record entry written back after the purge.
	// Empty means nothing is re-seeded.
	Reseed string
}

// DefaultRules is the rule table used by NewPolicy.
func DefaultRules() map[Mutation]Rule {
	return map[Mutation]Rule{
		ResiCreated:      {Purge: []string{PrefixResi}, Reseed: PrefixResi},
		ResiUpdated:      {Purge: []string{PrefixResi}, Reseed: PrefixResi},
		ResiDeleted:      {Purge: []string{PrefixResi}},
		TransaksiCreated: {Purge: []string{PrefixResi, PrefixTransaksi}},
		UserCreated:      {Purge: []string{PrefixUsers, PrefixUser}, Reseed: PrefixUser},
		UserUpdated:      {Purge: []string{PrefixUsers, PrefixUser}, Reseed: PrefixUser},
	}
}

// Policy applies rules to a cache service.
type Policy struct {
	cache  cache.CacheService
	rules  map[Mutation]Rule
	ttl    time.Duration
	logger *slog.Logger
}

type Option func(*Policy)

func WithRules(rules map[Mutation]Rule) Option {
	return func(p *Policy) {
		p.rules = rules
	}
}

func WithRecordTTL(ttl time.Duration) Option {
	return func(p *Policy) {
		if ttl > 0 {
			p.ttl = ttl
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Policy) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func NewPolicy(svc cache.CacheService, opts ...Option) *Policy {
	p := &Policy{
		cache:  svc,
		rules:  DefaultRules(),
		ttl:    RecordTTL,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Apply runs the rule for ev. Cache failures are logged by the cache
// service and never surface here. It returns the number of purged keys.
func (p *Policy) Apply(ctx context.Context, ev Event) int {
	rule, ok := p.rules[ev.Mutation]
	if !ok {
		p.logger.WarnContext(ctx, "no invalidation rule", "mutation", ev.Mutation.String())
		return 0
	}

	purged := 0
	for _, prefix := range rule.Purge {
		purged += p.cache.DeleteByPrefix(ctx, prefix)
	}

	if rule.Reseed != "" && ev.ID != "" && ev.Record != nil {
		p.cache.Set(ctx, RecordKey(rule.Reseed, ev.ID), ev.Record, p.ttl)
	}

	p.logger.DebugContext(ctx, "cache invalidated",
		"mutation", ev.Mutation.String(),
		"id", ev.ID,
		"purged", purged,
	)
	return purged
}

// RecordKey is the cache key of a single record, e.g. "resi:JP1001".
func RecordKey(prefix, id string) string {
	return cache.Key(prefix, id)
}

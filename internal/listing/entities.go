package listing

import (
	"log/slog"

	"github.com/goliatone/go-jastip/cache"
	"github.com/goliatone/go-jastip/internal/domain"
	"github.com/goliatone/go-jastip/internal/search"
	"github.com/uptrace/bun"
)

// Collection names. They double as cache prefixes.
const (
	EntityUsers     = "users"
	EntityResi      = "resi"
	EntityTransaksi = "transaksi"
)

// NewUsers lists users.
func NewUsers(db bun.IDB, counts *cache.CountCache, logger *slog.Logger) *Service[domain.User] {
	return New(db, counts, Config[domain.User]{
		Entity: EntityUsers,
		Search: search.Users,
		ID:     func(u domain.User) int64 { return u.ID },
	}, logger)
}

// NewResi lists resi with their owner and COD record.
func NewResi(db bun.IDB, counts *cache.CountCache, logger *slog.Logger) *Service[domain.Resi] {
	return New(db, counts, Config[domain.Resi]{
		Entity: EntityResi,
		Search: search.Resi,
		Relations: func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Relation("User").Relation("Cod")
		},
		ID: func(r domain.Resi) int64 { return r.ID },
	}, logger)
}

// NewTransaksi lists transaksi with their owner and linked resi.
func NewTransaksi(db bun.IDB, counts *cache.CountCache, logger *slog.Logger) *Service[domain.Transaksi] {
	return New(db, counts, Config[domain.Transaksi]{
		Entity:    EntityTransaksi,
		Search:    search.Transaksi,
		Relations: TransaksiRelations,
		ID:        func(t domain.Transaksi) int64 { return t.ID },
	}, logger)
}

// TransaksiRelations loads the owner and every linked resi with its COD.
func TransaksiRelations(q *bun.SelectQuery) *bun.SelectQuery {
	return q.
		Relation("User").
		Relation("Items", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.OrderExpr("?TableAlias.id ASC")
		}).
		Relation("Items.Resi").
		Relation("Items.Resi.Cod")
}

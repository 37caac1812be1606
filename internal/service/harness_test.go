package service

import (
	"context"
	"testing"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-jastip/cache"
	"github.com/goliatone/go-jastip/internal/auth"
	"github.com/goliatone/go-jastip/internal/domain"
	"github.com/goliatone/go-jastip/internal/invalidation"
	"github.com/goliatone/go-jastip/internal/listing"
	"github.com/goliatone/go-jastip/pkg/testsupport"
	"github.com/goliatone/go-jastip/repositorycache"
	"github.com/uptrace/bun"
)

type harness struct {
	ctx    context.Context
	db     *bun.DB
	seeded testsupport.Seeded
	cache  *cache.Service

	resi      *ResiService
	transaksi *TransaksiService
	users     *UserService
	auth      *AuthService
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	db, seeded := testsupport.NewSeededDB(t)
	svc := testsupport.NewCache(t)
	logger := testsupport.DiscardLogger

	counts := cache.NewCountCache(svc)
	policy := invalidation.NewPolicy(svc, invalidation.WithLogger(logger))
	serializer := cache.NewDefaultKeySerializer()

	userBase := repository.NewRepository(db, domain.UserHandlers())
	users := repositorycache.New(userBase, svc, serializer, repositorycache.WithLogger(logger))
	resi := repositorycache.New(repository.NewRepository(db, domain.ResiHandlers()), svc, serializer,
		repositorycache.WithReadCriteria(
			repository.SelectRelation("User"),
			repository.SelectRelation("Cod"),
		),
		repositorycache.WithLogger(logger),
	)

	return &harness{
		ctx:       context.Background(),
		db:        db,
		seeded:    seeded,
		cache:     svc,
		resi:      NewResiService(db, resi, users, listing.NewResi(db, counts, logger), policy, logger),
		transaksi: NewTransaksiService(db, users, listing.NewTransaksi(db, counts, logger), policy, logger),
		users:     NewUserService(db, users, listing.NewUsers(db, counts, logger), policy, logger),
		auth:      NewAuthService(db, userBase, auth.NewTokens("test-secret", time.Hour), policy, logger),
	}
}

// resiRow reads a resi straight from the database.
func (h *harness) resiRow(t *testing.T, noResi string) *domain.Resi {
	t.Helper()

	resi := new(domain.Resi)
	err := h.db.NewSelect().Model(resi).Relation("Cod").Where("?TableAlias.no_resi = ?", noResi).Scan(h.ctx)
	if err != nil {
		t.Fatalf("failed to read resi %s: %v", noResi, err)
	}
	return resi
}

func (h *harness) count(t *testing.T, model any) int {
	t.Helper()

	n, err := h.db.NewSelect().Model(model).Count(h.ctx)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	return n
}

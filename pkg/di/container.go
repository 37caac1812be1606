package di

import (
	"log/slog"
	"net/http"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-jastip/cache"
	"github.com/goliatone/go-jastip/internal/auth"
	"github.com/goliatone/go-jastip/internal/domain"
	"github.com/goliatone/go-jastip/internal/httpapi"
	"github.com/goliatone/go-jastip/internal/invalidation"
	"github.com/goliatone/go-jastip/internal/listing"
	"github.com/goliatone/go-jastip/internal/service"
	"github.com/goliatone/go-jastip/repositorycache"
	"github.com/uptrace/bun"
)

// Config is everything the container needs besides the database.
type Config struct {
	Cache     cache.Config
	JWTSecret string
	JWTTTL    time.Duration
	HTTP      httpapi.Config
}

// DefaultConfig returns an in-memory cache setup with the default token
// lifetime. JWTSecret is left empty and must be set.
func DefaultConfig() Config {
	return Config{
		Cache:  cache.DefaultConfig(),
		JWTTTL: auth.DefaultTokenTTL,
	}
}

func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.JWTSecret, validation.Required),
		validation.Field(&c.JWTTTL, validation.Min(time.Duration(0))),
	)
	if err != nil {
		return errors.FromOzzoValidation(err, "invalid container configuration")
	}
	return c.Cache.Validate()
}

// Container wires the application. It owns singleton instances of the cache
// service, key serializer, invalidation policy, repositories and services.
type Container struct {
	config        Config
	logger        *slog.Logger
	db            *bun.DB
	cacheService  *cache.Service
	keySerializer cache.KeySerializer
	counts        *cache.CountCache
	policy        *invalidation.Policy

	userBase repository.Repository[*domain.User]
	users    *repositorycache.CachedRepository[*domain.User]
	resi     *repositorycache.CachedRepository[*domain.Resi]

	services httpapi.Services
	handler  http.Handler
}

// NewContainer builds every component on top of db. The cache backend is
// chosen by config.Cache.Driver.
func NewContainer(db *bun.DB, config Config, logger *slog.Logger) (*Container, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	store, err := cache.NewStore(config.Cache, logger)
	if err != nil {
		return nil, err
	}

	cacheService := cache.NewService(store,
		cache.WithLogger(logger),
		cache.WithDefaultTTL(config.Cache.DefaultTTL),
	)

	c := &Container{
		config:        config,
		logger:        logger,
		db:            db,
		cacheService:  cacheService,
		keySerializer: cache.NewDefaultKeySerializer(),
		counts:        cache.NewCountCache(cacheService),
		policy:        invalidation.NewPolicy(cacheService, invalidation.WithLogger(logger)),
	}

	c.userBase = repository.NewRepository(db, domain.UserHandlers())
	c.users = NewCachedRepository(c, c.userBase)
	c.resi = NewCachedRepository(c, repository.NewRepository(db, domain.ResiHandlers()),
		repositorycache.WithReadCriteria(
			repository.SelectRelation("User"),
			repository.SelectRelation("Cod"),
		),
	)

	tokens := auth.NewTokens(config.JWTSecret, config.JWTTTL)
	c.services = httpapi.Services{
		Auth:      service.NewAuthService(db, c.userBase, tokens, c.policy, logger),
		Users:     service.NewUserService(db, c.users, listing.NewUsers(db, c.counts, logger), c.policy, logger),
		Resi:      service.NewResiService(db, c.resi, c.users, listing.NewResi(db, c.counts, logger), c.policy, logger),
		Transaksi: service.NewTransaksiService(db, c.users, listing.NewTransaksi(db, c.counts, logger), c.policy, logger),
	}
	c.handler = httpapi.NewRouter(c.services, cacheService, config.HTTP, logger)

	return c, nil
}

// NewContainerWithDefaults creates a container over DefaultConfig with the
// given token secret.
func NewContainerWithDefaults(db *bun.DB, jwtSecret string) (*Container, error) {
	config := DefaultConfig()
	config.JWTSecret = jwtSecret
	return NewContainer(db, config, nil)
}

// CacheService returns the singleton cache service instance.
func (c *Container) CacheService() *cache.Service {
	return c.cacheService
}

// KeySerializer returns the singleton key serializer instance.
func (c *Container) KeySerializer() cache.KeySerializer {
	return c.keySerializer
}

// Config returns a copy of the configuration used by this container.
func (c *Container) Config() Config {
	return c.config
}

func (c *Container) DB() *bun.DB {
	return c.db
}

func (c *Container) Policy() *invalidation.Policy {
	return c.policy
}

func (c *Container) Counts() *cache.CountCache {
	return c.counts
}

// Users is the cached user repository.
func (c *Container) Users() *repositorycache.CachedRepository[*domain.User] {
	return c.users
}

// Resi is the cached resi repository. Reads load the owner and COD record.
func (c *Container) Resi() *repositorycache.CachedRepository[*domain.Resi] {
	return c.resi
}

func (c *Container) Services() httpapi.Services {
	return c.services
}

// Handler is the HTTP API.
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Close releases the cache backend. The database belongs to the caller.
func (c *Container) Close() error {
	return c.cacheService.Close()
}

// NewCachedRepository creates a cached repository that wraps the provided base
// repository with the container's cache service, key serializer and logger.
//
// Since Go methods cannot have type parameters, this is provided as a package-level function.
// Example: NewCachedRepository[*domain.User](container, baseUserRepository)
func NewCachedRepository[T any](container *Container, base repository.Repository[T], opts ...repositorycache.Option) *repositorycache.CachedRepository[T] {
	opts = append([]repositorycache.Option{repositorycache.WithLogger(container.logger)}, opts...)
	return repositorycache.New(base, container.cacheService, container.keySerializer, opts...)
}

package repositorycache

import (
	"context"
	"log/slog"
	"reflect"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-jastip/cache"
	"github.com/uptrace/bun"
)

// DefaultTTL is how long a cached record lives.
const DefaultTTL = 600 * time.Second

// Interface assertion to ensure CachedRepository implements Repository[T]
var _ repository.Repository[any] = (*CachedRepository[any])(nil)

// CachedRepository decorates a base repository with read-through caching of
// single-record lookups under "{namespace}:{id}".
type CachedRepository[T any] struct {
	base          repository.Repository[T]
	cache         cache.CacheService
	keySerializer cache.KeySerializer
	namespace     string
	ttl           time.Duration
	readCriteria  []repository.SelectCriteria
	logger        *slog.Logger
}

// Option configures a CachedRepository.
type Option func(*options)

type options struct {
	namespace    string
	ttl          time.Duration
	readCriteria []repository.SelectCriteria
	logger       *slog.Logger
}

// WithNamespace overrides the key prefix derived from the record type.
func WithNamespace(ns string) Option {
	return func(o *options) {
		o.namespace = ns
	}
}

// WithTTL sets how long cached records live.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		if ttl > 0 {
			o.ttl = ttl
		}
	}
}

// WithReadCriteria sets the criteria used to load a record on a cache miss,
// typically the relations the cached value must carry.
func WithReadCriteria(criteria ...repository.SelectCriteria) Option {
	return func(o *options) {
		o.readCriteria = criteria
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// New creates a new CachedRepository that wraps the base repository with caching.
// Unless WithNamespace is given, keys are prefixed with the snake_case name of T,
// so *domain.Resi is cached under "resi".
func New[T any](base repository.Repository[T], cacheService cache.CacheService, keySerializer cache.KeySerializer, opts ...Option) *CachedRepository[T] {
	o := options{
		namespace: namespaceOf[T](),
		ttl:       DefaultTTL,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &CachedRepository[T]{
		base:          base,
		cache:         cacheService,
		keySerializer: keySerializer,
		namespace:     o.namespace,
		ttl:           o.ttl,
		readCriteria:  o.readCriteria,
		logger:        o.logger,
	}
}

// Namespace returns the key prefix of this repository.
func (c *CachedRepository[T]) Namespace() string {
	return c.namespace
}

// RecordKey returns the cache key of the record with the given id or identifier.
func (c *CachedRepository[T]) RecordKey(id string) string {
	return c.keySerializer.SerializeKey(c.namespace, id)
}

// GetByID retrieves a record by ID, with caching. Calls that pass criteria
// are not cached since their result depends on the criteria.
func (c *CachedRepository[T]) GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (T, error) {
	if len(criteria) > 0 {
		return c.base.GetByID(ctx, id, criteria...)
	}
	return cache.GetOrFetch(ctx, c.cache, c.RecordKey(id), c.ttl, func(ctx context.Context) (T, error) {
		return c.base.GetByID(ctx, id, c.readCriteria...)
	})
}

// GetByIdentifier retrieves a record by identifier, with caching. Calls that
// pass criteria are not cached.
func (c *CachedRepository[T]) GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (T, error) {
	if len(criteria) > 0 {
		return c.base.GetByIdentifier(ctx, identifier, criteria...)
	}
	return cache.GetOrFetch(ctx, c.cache, c.RecordKey(identifier), c.ttl, func(ctx context.Context) (T, error) {
		return c.base.GetByIdentifier(ctx, identifier, c.readCriteria...)
	})
}

// Get passes through; criteria based reads are not cached.
func (c *CachedRepository[T]) Get(ctx context.Context, criteria ...repository.SelectCriteria) (T, error) {
	return c.base.Get(ctx, criteria...)
}

// List passes through; listings are paginated and cached at the response level.
func (c *CachedRepository[T]) List(ctx context.Context, criteria ...repository.SelectCriteria) ([]T, int, error) {
	return c.base.List(ctx, criteria...)
}

// Count passes through; collection counts live in the count cache.
func (c *CachedRepository[T]) Count(ctx context.Context, criteria ...repository.SelectCriteria) (int, error) {
	return c.base.Count(ctx, criteria...)
}

// Create creates a new record. Write operations pass through to base repository
func (c *CachedRepository[T]) Create(ctx context.Context, record T, criteria ...repository.InsertCriteria) (T, error) {
	result, err := c.base.Create(ctx, record, criteria...)
	if err == nil {
		c.invalidate(ctx)
	}
	return result, err
}

// CreateMany creates multiple records
func (c *CachedRepository[T]) CreateMany(ctx context.Context, records []T, criteria ...repository.InsertCriteria) ([]T, error) {
	result, err := c.base.CreateMany(ctx, records, criteria...)
	if err == nil {
		c.invalidate(ctx)
	}
	return result, err
}

// GetOrCreate gets a record or creates it if it doesn't exist
func (c *CachedRepository[T]) GetOrCreate(ctx context.Context, record T) (T, error) {
	result, err := c.base.GetOrCreate(ctx, record)
	if err == nil {
		c.invalidate(ctx)
	}
	return result, err
}

// Update updates a record
func (c *CachedRepository[T]) Update(ctx context.Context, record T, criteria ...repository.UpdateCriteria) (T, error) {
	result, err := c.base.Update(ctx, record, criteria...)
	if err == nil {
		c.invalidate(ctx)
	}
	return result, err
}

// UpdateMany updates multiple records
func (c *CachedRepository[T]) UpdateMany(ctx context.Context, records []T, criteria ...repository.UpdateCriteria) ([]T, error) {
	result, err := c.base.UpdateMany(ctx, records, criteria...)
	if err == nil {
		c.invalidate(ctx)
	}
	return result, err
}

// Upsert inserts or updates a record
func (c *CachedRepository[T]) Upsert(ctx context.Context, record T, criteria ...repository.UpdateCriteria) (T, error) {
	result, err := c.base.Upsert(ctx, record, criteria...)
	if err == nil {
		c.invalidate(ctx)
	}
	return result, err
}

// UpsertMany inserts or updates multiple records
func (c *CachedRepository[T]) UpsertMany(ctx context.Context, records []T, criteria ...repository.UpdateCriteria) ([]T, error) {
	result, err := c.base.UpsertMany(ctx, records, criteria...)
	if err == nil {
		c.invalidate(ctx)
	}
	return result, err
}

// Delete deletes a record
func (c *CachedRepository[T]) Delete(ctx context.Context, record T) error {
	err := c.base.Delete(ctx, record)
	if err == nil {
		c.invalidate(ctx)
	}
	return err
}

// DeleteMany deletes multiple records based on criteria
func (c *CachedRepository[T]) DeleteMany(ctx context.Context, criteria ...repository.DeleteCriteria) error {
	err := c.base.DeleteMany(ctx, criteria...)
	if err == nil {
		c.invalidate(ctx)
	}
	return err
}

// DeleteWhere deletes records based on criteria
func (c *CachedRepository[T]) DeleteWhere(ctx context.Context, criteria ...repository.DeleteCriteria) error {
	err := c.base.DeleteWhere(ctx, criteria...)
	if err == nil {
		c.invalidate(ctx)
	}
	return err
}

// ForceDelete force deletes a record (bypassing soft delete)
func (c *CachedRepository[T]) ForceDelete(ctx context.Context, record T) error {
	err := c.base.ForceDelete(ctx, record)
	if err == nil {
		c.invalidate(ctx)
	}
	return err
}

// Transactional operations bypass the cache entirely. Nothing is invalidated
// here because the transaction may still roll back; the caller invalidates
// after commit.

func (c *CachedRepository[T]) GetTx(ctx context.Context, tx bun.IDB, criteria ...repository.SelectCriteria) (T, error) {
	return c.base.GetTx(ctx, tx, criteria...)
}

func (c *CachedRepository[T]) GetByIDTx(ctx context.Context, tx bun.IDB, id string, criteria ...repository.SelectCriteria) (T, error) {
	return c.base.GetByIDTx(ctx, tx, id, criteria...)
}

func (c *CachedRepository[T]) ListTx(ctx context.Context, tx bun.IDB, criteria ...repository.SelectCriteria) ([]T, int, error) {
	return c.base.ListTx(ctx, tx, criteria...)
}

func (c *CachedRepository[T]) CountTx(ctx context.Context, tx bun.IDB, criteria ...repository.SelectCriteria) (int, error) {
	return c.base.CountTx(ctx, tx, criteria...)
}

func (c *CachedRepository[T]) GetByIdentifierTx(ctx context.Context, tx bun.IDB, identifier string, criteria ...repository.SelectCriteria) (T, error) {
	return c.base.GetByIdentifierTx(ctx, tx, identifier, criteria...)
}

func (c *CachedRepository[T]) CreateTx(ctx context.Context, tx bun.IDB, record T, criteria ...repository.InsertCriteria) (T, error) {
	return c.base.CreateTx(ctx, tx, record, criteria...)
}

func (c *CachedRepository[T]) CreateManyTx(ctx context.Context, tx bun.IDB, records []T, criteria ...repository.InsertCriteria) ([]T, error) {
	return c.base.CreateManyTx(ctx, tx, records, criteria...)
}

func (c *CachedRepository[T]) GetOrCreateTx(ctx context.Context, tx bun.IDB, record T) (T, error) {
	return c.base.GetOrCreateTx(ctx, tx, record)
}

func (c *CachedRepository[T]) UpdateTx(ctx context.Context, tx bun.IDB, record T, criteria ...repository.UpdateCriteria) (T, error) {
	return c.base.UpdateTx(ctx, tx, record, criteria...)
}

func (c *CachedRepository[T]) UpdateManyTx(ctx context.Context, tx bun.IDB, records []T, criteria ...repository.UpdateCriteria) ([]T, error) {
	return c.base.UpdateManyTx(ctx, tx, records, criteria...)
}

func (c *CachedRepository[T]) UpsertTx(ctx context.Context, tx bun.IDB, record T, criteria ...repository.UpdateCriteria) (T, error) {
	return c.base.UpsertTx(ctx, tx, record, criteria...)
}

func (c *CachedRepository[T]) UpsertManyTx(ctx context.Context, tx bun.IDB, records []T, criteria ...repository.UpdateCriteria) ([]T, error) {
	return c.base.UpsertManyTx(ctx, tx, records, criteria...)
}

func (c *CachedRepository[T]) DeleteTx(ctx context.Context, tx bun.IDB, record T) error {
	return c.base.DeleteTx(ctx, tx, record)
}

func (c *CachedRepository[T]) DeleteManyTx(ctx context.Context, tx bun.IDB, criteria ...repository.DeleteCriteria) error {
	return c.base.DeleteManyTx(ctx, tx, criteria...)
}

func (c *CachedRepository[T]) DeleteWhereTx(ctx context.Context, tx bun.IDB, criteria ...repository.DeleteCriteria) error {
	return c.base.DeleteWhereTx(ctx, tx, criteria...)
}

func (c *CachedRepository[T]) ForceDeleteTx(ctx context.Context, tx bun.IDB, record T) error {
	return c.base.ForceDeleteTx(ctx, tx, record)
}

// Raw executes a raw SQL query and returns the results
func (c *CachedRepository[T]) Raw(ctx context.Context, sql string, args ...any) ([]T, error) {
	return c.base.Raw(ctx, sql, args...)
}

// RawTx executes a raw SQL query within a transaction and returns the results
func (c *CachedRepository[T]) RawTx(ctx context.Context, tx bun.IDB, sql string, args ...any) ([]T, error) {
	return c.base.RawTx(ctx, tx, sql, args...)
}

// Handlers returns the model handlers from the base repository
func (c *CachedRepository[T]) Handlers() repository.ModelHandlers[T] {
	return c.base.Handlers()
}

// invalidate purges every key under the namespace. Record entries, listing
// responses and counts of the collection all share it.
func (c *CachedRepository[T]) invalidate(ctx context.Context) {
	n := c.cache.DeleteByPrefix(ctx, c.namespace)
	c.logger.DebugContext(ctx, "repository cache invalidated", "namespace", c.namespace, "keys", n)
}

// namespaceOf derives a key prefix from the name of T with pointers stripped.
func namespaceOf[T any]() string {
	t := reflect.TypeOf((*T)(nil)).Elem()
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return toSnake(t.Name())
}

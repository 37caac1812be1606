// Package listing serves cursor-paginated listings of one entity, either the
// whole collection or a keyword-filtered slice of it.
package listing

import (
	"context"
	"log/slog"

	"github.com/goliatone/go-jastip/cache"
	"github.com/goliatone/go-jastip/internal/domain"
	"github.com/goliatone/go-jastip/internal/pagination"
	"github.com/goliatone/go-jastip/internal/search"
	"github.com/uptrace/bun"
)

// Filter is a keyword search with paging. A blank keyword lists everything.
type Filter struct {
	Keyword string `json:"keyword"`
	Limit   int    `json:"limit"`
	Cursor  int64  `json:"cursor"`
}

func (f Filter) request() pagination.Request {
	return pagination.Request{Limit: f.Limit, Cursor: f.Cursor}
}

// Config describes one listed entity.
type Config[T any] struct {
	// Entity names the collection. It is also the count cache entry and the
	// cache prefix of the collection.
	Entity string
	// Search builds the keyword filter.
	Search search.Builder
	// Relations loads related rows into each listed row. Optional.
	Relations func(*bun.SelectQuery) *bun.SelectQuery
	// ID returns the cursor column of a row.
	ID func(T) int64
}

// Service lists rows of type T, a bun model struct.
type Service[T any] struct {
	db     bun.IDB
	counts *cache.CountCache
	cfg    Config[T]
	logger *slog.Logger
}

// New creates a listing service and registers the collection count with counts.
func New[T any](db bun.IDB, counts *cache.CountCache, cfg Config[T], logger *slog.Logger) *Service[T] {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service[T]{
		db:     db,
		counts: counts,
		cfg:    cfg,
		logger: logger.With("entity", cfg.Entity),
	}
	counts.Register(cfg.Entity, s.countAll)
	return s
}

// Entity returns the collection name.
func (s *Service[T]) Entity() string {
	return s.cfg.Entity
}

// ListAll returns one page of the whole collection. The total comes from the
// count cache and is also reported as MaxCursor.
func (s *Service[T]) ListAll(ctx context.Context, req pagination.Request) (pagination.Page[T], error) {
	req = req.Normalize()

	total, err := s.counts.GetCount(ctx, s.cfg.Entity)
	if err != nil {
		return pagination.Page[T]{}, domain.FromRepository(err, s.cfg.Entity, "count")
	}

	rows, err := s.fetch(ctx, req, nil)
	if err != nil {
		return pagination.Page[T]{}, err
	}

	page := pagination.Build(rows, req, total, s.cfg.ID)
	page.MaxCursor = total
	return page, nil
}

// ListFiltered returns one page of rows matching the keyword. The total is
// counted live with the same filter and MaxCursor is always 0.
func (s *Service[T]) ListFiltered(ctx context.Context, f Filter) (pagination.Page[T], error) {
	req := f.request().Normalize()
	filter := s.cfg.Search(f.Keyword)

	total, err := s.db.NewSelect().Model((*T)(nil)).Apply(filter).Count(ctx)
	if err != nil {
		return pagination.Page[T]{}, domain.FromRepository(err, s.cfg.Entity, "count")
	}

	rows, err := s.fetch(ctx, req, filter)
	if err != nil {
		return pagination.Page[T]{}, err
	}

	s.logger.DebugContext(ctx, "filtered listing", "keyword", f.Keyword, "total", total, "rows", len(rows))
	return pagination.Build(rows, req, total, s.cfg.ID), nil
}

// Total returns the cached collection count.
func (s *Service[T]) Total(ctx context.Context) (int, error) {
	total, err := s.counts.GetCount(ctx, s.cfg.Entity)
	if err != nil {
		return 0, domain.FromRepository(err, s.cfg.Entity, "count")
	}
	return total, nil
}

func (s *Service[T]) fetch(ctx context.Context, req pagination.Request, filter func(*bun.SelectQuery) *bun.SelectQuery) ([]T, error) {
	var rows []T

	q := s.db.NewSelect().Model(&rows)
	if s.cfg.Relations != nil {
		q = q.Apply(s.cfg.Relations)
	}
	if filter != nil {
		q = q.Apply(filter)
	}
	q = pagination.Apply(q, req)

	if err := q.Scan(ctx); err != nil {
		return nil, domain.FromRepository(err, s.cfg.Entity, "page")
	}
	return rows, nil
}

func (s *Service[T]) countAll(ctx context.Context) (int, error) {
	return s.db.NewSelect().Model((*T)(nil)).Count(ctx)
}

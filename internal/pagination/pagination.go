// Package pagination implements keyset pagination over autoincrement ids.
//
// Pages are read newest first. A page query fetches one row more than the
// requested limit, the extra row only signals that an older page exists and
// is trimmed before the page is returned. Cursors are exclusive: the row whose
// id equals the cursor is never part of the next page.
package pagination

import (
	"github.com/uptrace/bun"
)

// DefaultLimit is used when a request carries no positive limit.
const DefaultLimit = 10

// Request is the cursor and page size requested by a caller. A zero cursor
// starts at the newest row.
type Request struct {
	Limit  int   `json:"limit"`
	Cursor int64 `json:"cursor"`
}

// Normalize fills in the default limit and drops negative cursors.
func (r Request) Normalize() Request {
	if r.Limit < 1 {
		r.Limit = DefaultLimit
	}
	if r.Cursor < 0 {
		r.Cursor = 0
	}
	return r
}

// Page is one page of results. NextCursor is 0 when there is no next page.
type Page[T any] struct {
	Items       []T   `json:"items"`
	NextCursor  int64 `json:"next_cursor"`
	TotalPages  int   `json:"total_pages"`
	MaxCursor   int   `json:"max_cursor"`
	HasNextPage bool  `json:"has_next_page"`
}

// Apply orders q by id descending, limits it to one row past the page and
// starts it after the cursor.
func Apply(q *bun.SelectQuery, req Request) *bun.SelectQuery {
	req = req.Normalize()
	q = q.OrderExpr("?TableAlias.id DESC").Limit(req.Limit + 1)
	if req.Cursor > 0 {
		q = q.Where("?TableAlias.id < ?", req.Cursor)
	}
	return q
}

// Build turns the rows fetched by an Apply'd query into a Page.
func Build[T any](rows []T, req Request, total int, idOf func(T) int64) Page[T] {
	req = req.Normalize()

	page := Page[T]{
		Items:      rows,
		TotalPages: TotalPages(total, req.Limit),
	}
	if page.Items == nil {
		page.Items = []T{}
	}

	if len(rows) > req.Limit {
		page.Items = rows[:req.Limit]
		page.HasNextPage = true
		page.NextCursor = idOf(page.Items[req.Limit-1])
	}
	return page
}

// TotalPages is ceil(total / limit).
func TotalPages(total, limit int) int {
	if total <= 0 || limit <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}

// Map converts the items of p with fn and keeps its paging fields.
func Map[T, U any](p Page[T], fn func(T) U) Page[U] {
	out := Page[U]{
		Items:       make([]U, len(p.Items)),
		NextCursor:  p.NextCursor,
		TotalPages:  p.TotalPages,
		MaxCursor:   p.MaxCursor,
		HasNextPage: p.HasNextPage,
	}
	for i, item := range p.Items {
		out.Items[i] = fn(item)
	}
	return out
}

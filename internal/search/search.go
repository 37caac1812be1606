// Package search turns a free-text keyword into an OR group of predicates
// over a fixed set of columns per entity.
//
// Every builder returns a repository.SelectCriteria so the same filter can be
// handed to go-repository-bun or applied to a hand-built bun query. A blank
// keyword yields a criteria that leaves the query untouched. Branches that
// need the keyword to parse (dates, enum values) are skipped when it does not.
// Columns of related tables are matched through EXISTS subqueries so a filter
// never depends on which relations the caller joined.
package search

import (
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-jastip/internal/domain"
	"github.com/uptrace/bun"
)

// Builder creates the filter for a keyword.
type Builder func(keyword string) repository.SelectCriteria

func none(q *bun.SelectQuery) *bun.SelectQuery { return q }

func contains(keyword string) string {
	return "%" + keyword + "%"
}

// Users matches name, email or whatsapp number containing the keyword.
func Users(keyword string) repository.SelectCriteria {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return none
	}
	pattern := contains(keyword)

	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				WhereOr("?TableAlias.name LIKE ?", pattern).
				WhereOr("?TableAlias.email LIKE ?", pattern).
				WhereOr("?TableAlias.whatsapp_number LIKE ?", pattern)
		})
	}
}

// Resi matches the tracking number containing the upper-cased keyword or
// the owner's name containing the keyword.
func Resi(keyword string) repository.SelectCriteria {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return none
	}

	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				WhereOr("?TableAlias.no_resi LIKE ?", contains(domain.NormalizeNoResi(keyword))).
				WhereOr(ownerNameExists, contains(keyword))
		})
	}
}

// Transaksi matches the owner's name, the pickup date, the status, payment
// method or pickup location, or any linked tracking number.
func Transaksi(keyword string) repository.SelectCriteria {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return none
	}
	pattern := contains(keyword)
	day, exact, isDate := ParseDate(keyword)
	enum := strings.ToUpper(keyword)

	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			q = q.WhereOr(ownerNameExists, pattern)

			switch {
			case isDate && exact:
				q = q.WhereOr("?TableAlias.tanggal_diambil = ?", day)
			case isDate:
				q = q.WhereGroup(" OR ", func(q *bun.SelectQuery) *bun.SelectQuery {
					return q.
						Where("?TableAlias.tanggal_diambil >= ?", day).
						Where("?TableAlias.tanggal_diambil < ?", day.AddDate(0, 0, 1))
				})
			}

			if domain.StatusTransaksi(enum).Valid() {
				q = q.WhereOr("?TableAlias.status_transaksi = ?", enum)
			}
			if domain.MetodePembayaran(enum).Valid() {
				q = q.WhereOr("?TableAlias.metode_pembayaran = ?", enum)
			}
			if domain.AlamatPengambilan(enum).Valid() {
				q = q.WhereOr("?TableAlias.alamat_pengambilan = ?", enum)
			}

			return q.WhereOr(linkedResiExists, pattern)
		})
	}
}

const (
	ownerNameExists = `EXISTS (SELECT 1 FROM "users" AS "owner" WHERE "owner"."id" = ?TableAlias.user_id AND "owner"."name" LIKE ?)`

	linkedResiExists = `EXISTS (SELECT 1 FROM "transaksi_item" AS "item" ` +
		`JOIN "resi" AS "linked" ON "linked"."id" = "item"."resi_id" ` +
		`WHERE "item"."transaksi_id" = ?TableAlias.id AND LOWER("linked"."no_resi") LIKE LOWER(?))`
)

// ParseDate reads keyword as a calendar day (2006-01-02) or an RFC3339
// instant. exact reports whether a full instant was given. Days are UTC.
func ParseDate(keyword string) (t time.Time, exact bool, ok bool) {
	if d, err := time.Parse(time.DateOnly, keyword); err == nil {
		return d.UTC(), false, true
	}
	if d, err := time.Parse(time.RFC3339, keyword); err == nil {
		return d.UTC(), true, true
	}
	return time.Time{}, false, false
}

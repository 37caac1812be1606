// Package storage opens the relational datastore and creates its schema.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-jastip/internal/domain"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Open connects to the datastore named by driver. SQLite connections are
// pinned to a single connection so in-memory databases survive between queries.
func Open(ctx context.Context, driver, dsn string, logger *slog.Logger) (*bun.DB, error) {
	var db *bun.DB

	switch driver {
	case DriverSQLite:
		sqldb, err := sql.Open("sqlite3", dsn)
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryExternal, "open sqlite")
		}
		sqldb.SetMaxOpenConns(1)
		sqldb.SetMaxIdleConns(1)
		sqldb.SetConnMaxLifetime(0)
		db = bun.NewDB(sqldb, sqlitedialect.New())
	case DriverPostgres:
		sqldb, err := sql.Open("postgres", dsn)
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryExternal, "open postgres")
		}
		db = bun.NewDB(sqldb, pgdialect.New())
	default:
		return nil, errors.New(fmt.Sprintf("unsupported database driver %q", driver), errors.CategoryBadInput).
			WithTextCode("DB_DRIVER_UNSUPPORTED")
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, errors.CategoryExternal, "database unreachable").
			WithTextCode("DB_UNAVAILABLE")
	}

	if logger != nil {
		logger.Info("database connected", "driver", driver)
	}
	return db, nil
}

// tables lists the schema in creation order with the references of each table.
var tables = []struct {
	model any
	name  string
	fks   []string
}{
	{(*domain.User)(nil), "users", nil},
	{(*domain.Resi)(nil), "resi", []string{`("user_id") REFERENCES "users" ("id")`}},
	{(*domain.COD)(nil), "cod", []string{`("resi_id") REFERENCES "resi" ("id") ON DELETE CASCADE`}},
	{(*domain.Transaksi)(nil), "transaksi", []string{`("user_id") REFERENCES "users" ("id")`}},
	{(*domain.TransaksiItem)(nil), "transaksi_item", []string{
		`("transaksi_id") REFERENCES "transaksi" ("id") ON DELETE CASCADE`,
		`("resi_id") REFERENCES "resi" ("id")`,
	}},
}

// CreateSchema creates every table that does not exist yet.
func CreateSchema(ctx context.Context, db *bun.DB) error {
	for _, t := range tables {
		q := db.NewCreateTable().Model(t.model).IfNotExists()
		for _, fk := range t.fks {
			q = q.ForeignKey(fk)
		}
		if _, err := q.Exec(ctx); err != nil {
			return errors.Wrap(err, errors.CategoryInternal, fmt.Sprintf("create table %s", t.name))
		}
	}
	return nil
}

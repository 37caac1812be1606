package testsupport

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/goliatone/go-jastip/internal/storage"
	"github.com/uptrace/bun"
)

// DiscardLogger drops every record.
var DiscardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// NewDB opens a private in-memory SQLite database with the full schema and
// foreign keys enforced. It is closed when the test ends.
func NewDB(t testing.TB) *bun.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", name)

	ctx := context.Background()
	db, err := storage.Open(ctx, storage.DriverSQLite, dsn, nil)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := storage.CreateSchema(ctx, db); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}
	return db
}

// NewSeededDB is NewDB followed by Seed with the default dataset.
func NewSeededDB(t testing.TB) (*bun.DB, Seeded) {
	t.Helper()

	db := NewDB(t)
	return db, Seed(t, db, DefaultDataset(t))
}

// Exec runs raw SQL against db, failing the test on error.
func Exec(t testing.TB, db bun.IDB, query string, args ...any) {
	t.Helper()

	if _, err := db.ExecContext(context.Background(), query, args...); err != nil {
		t.Fatalf("exec %q: %v", query, err)
	}
}

// Package storetest opens migrated throwaway databases for tests.
package storetest

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/jjenkins/parliament/internal/store"
)

// Open creates a migrated SQLite database in a per-test directory. It is
// closed when the test ends.
func Open(t testing.TB) *sql.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "parliament.db")
	db, err := store.NewDB(store.DriverSQLite, path, store.PoolOptions{})
	if err != nil {
		t.Fatalf("NewDB() failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := store.Migrate(context.Background(), db, store.DriverSQLite); err != nil {
		t.Fatalf("Migrate() failed: %v", err)
	}
	return db
}

// Date returns midnight UTC of the given day
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Count returns the row count of table
func Count(t testing.TB, db *sql.DB, table string) int {
	t.Helper()

	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}

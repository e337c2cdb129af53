package database

import (
	"database/sql"
	"path/filepath"
	"testing"
)

// OpenTest opens a migrated database under t.TempDir and closes it on
// cleanup. A file is used rather than :memory: so that concurrent
// connections share one database.
func OpenTest(t testing.TB) *sql.DB {
	t.Helper()
	db, err := Open(Config{Path: filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatalf("database.OpenTest: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := Migrate(db); err != nil {
		t.Fatalf("database.OpenTest migrate: %v", err)
	}
	return db
}

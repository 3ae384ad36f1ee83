// Package sqltest provides throwaway SQLite databases carrying the production schema.
package sqltest

import (
	"context"
	"database/sql"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	mysqlrepo "sneaker_hub/internal/storage/mysql"
)

// NewDB opens a fresh in-memory database with the schema applied. The pool is
// limited to one connection because every connection to ":memory:" gets its own
// database.
func NewDB(t *testing.T) *sqlx.DB {
	t.Helper()

	raw, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	raw.SetMaxOpenConns(1)

	if _, err := raw.Exec("PRAGMA foreign_keys=ON"); err != nil {
		raw.Close()
		t.Fatalf("enabling foreign keys: %v", err)
	}

	db := mysqlrepo.Open(raw, "sqlite")
	if err := mysqlrepo.EnsureSchema(context.Background(), db); err != nil {
		raw.Close()
		t.Fatalf("creating test database schema: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

// SeedOwners inserts empty owners.
func SeedOwners(t *testing.T, db *sqlx.DB, ids ...string) {
	t.Helper()
	for _, id := range ids {
		if _, err := db.Exec(`INSERT INTO owners (id, version) VALUES (?, 0)`, id); err != nil {
			t.Fatalf("seeding owner %s: %v", id, err)
		}
	}
}

package webhooks

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"pagehook/internal/platform/database"
)

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open db: %v", err)
	}
	// A second connection would see a different in-memory database.
	db.SetMaxOpenConns(1)

	if err := database.MigrateTenant(db); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

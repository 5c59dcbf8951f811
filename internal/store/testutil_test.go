package store

import (
	"database/sql"
	"testing"

	"github.com/foodian-app/foodian/internal/database"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func mustCreateUser(t *testing.T, us *UserStore, username, name string) int64 {
	t.Helper()
	u, err := us.Create(username, "hash", name)
	if err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return u.ID
}

package testutil

import (
	"testing"

	"fsaudit/internal/store"
)

// NewTestStore creates a new in-memory SQLite record store with schema
// applied. The store is automatically closed when the test completes.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	sqlDB, err := store.OpenConnection(":memory:")
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}

	if _, err := sqlDB.Exec(store.Schema); err != nil {
		sqlDB.Close()
		t.Fatalf("failed to apply schema: %v", err)
	}

	s, err := store.NewSQLiteStoreFromDB(sqlDB)
	if err != nil {
		sqlDB.Close()
		t.Fatalf("failed to create store: %v", err)
	}

	t.Cleanup(func() {
		s.Close()
	})

	return s
}

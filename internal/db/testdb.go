package db

import (
	"context"
	"testing"

	"github.com/unilost/unilost/internal/store"
	"github.com/unilost/unilost/internal/store/sqlite"
)

// NewTestStore returns a migrated in-memory SQLite store that is closed when
// the test ends.
func NewTestStore(t testing.TB) store.Store {
	t.Helper()

	sqlDB, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}

	if err := MigrateSQLite(context.Background(), sqlDB); err != nil {
		sqlDB.Close()
		t.Fatalf("migrating test database: %v", err)
	}

	s := sqlite.New(sqlDB)
	t.Cleanup(func() { s.Close() })
	return s
}

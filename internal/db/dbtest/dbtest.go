// Package dbtest provides a migrated in-memory database for tests.
package dbtest

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/scopeguard/scopeguard/internal/config"
	"github.com/scopeguard/scopeguard/internal/db"
)

// Open creates a fresh in-memory SQLite database with the full schema.
// It is closed when the test ends.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	gdb, err := db.Open(&config.Config{DB: config.DB{Engine: config.EngineSQLite, Path: ":memory:"}})
	require.NoError(t, err, "failed to create test database")

	require.NoError(t, db.Migrate(gdb), "failed to migrate test database")

	t.Cleanup(func() {
		_ = db.Close(gdb)
	})

	return gdb
}

// Package testing provides testing utilities and helpers for the agrisage project.
package testing

import (
	"database/sql"
	"fmt"
	"os"
	"testing"

	"github.com/agrisage/agrisage/internal/database"
	_ "modernc.org/sqlite"
)

// NewTestDB creates a file-backed SQLite database for testing with automatic
// schema migration. Returns the database instance and a cleanup function that
// closes the connection. The cleanup function is idempotent.
//
// Supported schema names:
//   - "advisory" - applies advisory_schema.sql
//   - "history" - applies history_schema.sql
//   - "cache" - applies cache_schema.sql
//   - Unknown names - creates empty database (no schema applied)
func NewTestDB(t *testing.T, name string) (*database.DB, func()) {
	t.Helper()

	// Temporary file per test ensures isolation between tests
	tmpFile, err := os.CreateTemp("", fmt.Sprintf("test_%s_*.db", name))
	if err != nil {
		t.Fatalf("Failed to create temporary database file: %v", err)
	}
	tmpPath := tmpFile.Name()
	_ = tmpFile.Close()

	db, err := database.New(database.Config{
		Path:    tmpPath,
		Profile: database.ProfileStandard,
		Name:    name,
	})
	if err != nil {
		_ = os.Remove(tmpPath)
		t.Fatalf("Failed to create test database %s: %v", name, err)
	}

	// Schemas are embedded in the database package, so migration works
	// without any source-tree path discovery
	if err := db.Migrate(); err != nil {
		_ = db.Close()
		_ = os.Remove(tmpPath)
		t.Fatalf("Failed to migrate test database %s: %v", name, err)
	}

	return db, func() {
		if err := db.Close(); err != nil {
			t.Logf("Warning: Failed to close test database %s: %v", name, err)
		}
		if err := os.Remove(tmpPath); err != nil {
			t.Logf("Warning: Failed to remove temporary database file %s: %v", tmpPath, err)
		}
	}
}

// GetRawConnection returns the raw *sql.DB connection from a database.DB instance.
// This is useful for tests that need direct access to the underlying connection.
func GetRawConnection(db *database.DB) *sql.DB {
	return db.Conn()
}

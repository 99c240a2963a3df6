// Package testing provides testing utilities and helpers for the qfarm project.
package testing

import (
	"path/filepath"
	"testing"

	"github.com/aristath/qfarm/internal/database"
)

// NewTestDB creates a file-backed SQLite database in a temporary directory
// and applies the embedded schema for name ("journal" is the only one with
// a schema today; other names get an empty database).
// The returned cleanup function closes the connection and is safe to call
// more than once. The directory itself is removed by the test framework.
func NewTestDB(t *testing.T, name string) (*database.DB, func()) {
	t.Helper()

	db, err := database.New(database.Config{
		Path:    filepath.Join(t.TempDir(), name+".db"),
		Profile: database.ProfileStandard,
		Name:    name,
	})
	if err != nil {
		t.Fatalf("Failed to create test database %s: %v", name, err)
	}

	if err := db.Migrate(); err != nil {
		_ = db.Close()
		t.Fatalf("Failed to migrate test database %s: %v", name, err)
	}

	closed := false
	return db, func() {
		if closed {
			return
		}
		closed = true
		if err := db.Close(); err != nil {
			t.Logf("Warning: Failed to close test database %s: %v", name, err)
		}
	}
}

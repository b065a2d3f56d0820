// Package storetest opens throwaway databases for repository and handler
// tests.
package storetest

import (
	"path/filepath"
	"testing"

	"gorm.io/gorm"

	"github.com/sprintdeck/sprintdeck/internal/store"
)

func Open(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "sprintdeck.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	return db
}

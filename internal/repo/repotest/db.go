// Package repotest provides the shared database fixture for repository
// tests: an in-memory SQLite handle with the same error-translation contract
// the service relies on against MySQL.
package repotest

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/calendarinvite/event-management/app"
)

// NewDB returns a migrated in-memory database for one test.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Discard,
		TranslateError: true,
	})
	if err != nil {
		t.Fatal("could not open test database:", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatal("could not get sql.DB:", err)
	}
	// A pooled second connection would see its own empty :memory: database.
	sqlDB.SetMaxOpenConns(1)

	if err := app.Migrate(db); err != nil {
		t.Fatal("could not migrate test database:", err)
	}

	return db
}

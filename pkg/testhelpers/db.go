package testhelpers

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/mcpjungle/mcpbridge/internal/db"
	"github.com/mcpjungle/mcpbridge/internal/migrations"
	"gorm.io/gorm"
)

// TestSetup holds the resources shared by a test
type TestSetup struct {
	DB      *gorm.DB
	Cleanup func()
}

// CreateTestDB creates a migrated in-memory SQLite database private to the caller
func CreateTestDB() (*gorm.DB, error) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := db.NewDBConnection(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create test database: %w", err)
	}
	// a single connection keeps the in-memory database alive and avoids "table is locked" errors
	if sqlDB, err := conn.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}
	if err := migrations.Migrate(conn); err != nil {
		return nil, fmt.Errorf("failed to migrate test database: %w", err)
	}
	return conn, nil
}

// SetupDBTest creates a test database and a cleanup function closing it
func SetupDBTest(t *testing.T) *TestSetup {
	t.Helper()
	conn, err := CreateTestDB()
	AssertNoError(t, err)
	return &TestSetup{
		DB: conn,
		Cleanup: func() {
			if sqlDB, err := conn.DB(); err == nil {
				_ = sqlDB.Close()
			}
		},
	}
}

// Package migrations keeps the database schema in sync with the models.
package migrations

import (
	"fmt"

	"github.com/mcpjungle/mcpbridge/internal/model"
	"gorm.io/gorm"
)

// Migrate creates or updates the tables of every model persisted by mcpbridge.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&model.ToolCall{}); err != nil {
		return fmt.Errorf("auto-migration failed: %w", err)
	}
	return nil
}

// Package db opens the database mcpbridge keeps its tool call log in.
package db

import (
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DefaultSQLiteFile is the SQLite database file used when no DSN is given.
const DefaultSQLiteFile = "mcpbridge.db"

// NewDBConnection opens a database connection.
// A DSN starting with "postgres://" or "postgresql://" connects to Postgres.
// Any other DSN is treated as a SQLite DSN, and an empty DSN means the default SQLite file.
func NewDBConnection(dsn string) (*gorm.DB, error) {
	dialector := dialectorFor(dsn)

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s database: %w", dialector.Name(), err)
	}
	return db, nil
}

func dialectorFor(dsn string) gorm.Dialector {
	if isPostgresDSN(dsn) {
		return postgres.Open(dsn)
	}
	if dsn == "" {
		dsn = DefaultSQLiteFile
	}
	return sqlite.Open(dsn)
}

func isPostgresDSN(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

package database

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/xtrinch/food-coach/internal/database/migrations"
	"github.com/xtrinch/food-coach/internal/logger"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open opens (creating if needed) the embedded SQLite store at path and
// applies the migration chain. A store that cannot be opened or migrated
// is unusable and surfaced as an error here.
func Open(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := migrations.Apply(db, migrations.Chain()); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info("Database opened and migrations completed", "path", path)
	return db, nil
}

package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store bundles the per-collection repositories over one database handle.
type Store struct {
	db *gorm.DB
}

// New creates a store over an opened database.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying GORM handle.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// DailyLogs returns the daily log repository.
func (s *Store) DailyLogs() *DailyLogRepository {
	return &DailyLogRepository{db: s.db}
}

// Insights returns the daily insight repository.
func (s *Store) Insights() *InsightRepository {
	return &InsightRepository{db: s.db}
}

// Jobs returns the analysis job repository.
func (s *Store) Jobs() *JobRepository {
	return &JobRepository{db: s.db}
}

// Presets returns the legacy food preset repository.
func (s *Store) Presets() *PresetRepository {
	return &PresetRepository{db: s.db}
}

// RunInTransaction executes fn inside one write transaction. Everything fn
// does through the passed store commits together or not at all.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(New(tx))
	})
}

package repository

import (
	"context"
	"errors"

	"github.com/xtrinch/food-coach/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DailyLogRepository handles daily log rows, keyed by date string.
type DailyLogRepository struct {
	db *gorm.DB
}

// Get returns the log for a date, or nil when none exists.
func (r *DailyLogRepository) Get(ctx context.Context, date string) (*domain.DailyLog, error) {
	var log domain.DailyLog
	err := r.db.WithContext(ctx).First(&log, "date = ?", date).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &log, nil
}

// CreateIfMissing inserts the log unless a row for its date already
// exists. Concurrent callers for the same date leave exactly one row.
func (r *DailyLogRepository) CreateIfMissing(ctx context.Context, log *domain.DailyLog) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(log).Error
}

// Save rewrites the whole row, embedded meal and note sequences included.
func (r *DailyLogRepository) Save(ctx context.Context, log *domain.DailyLog) error {
	return r.db.WithContext(ctx).Save(log).Error
}

// UpdateFields merges the given fields into the row without touching the
// rest of the record.
func (r *DailyLogRepository) UpdateFields(ctx context.Context, date string, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&domain.DailyLog{}).
		Where("date = ?", date).Updates(fields).Error
}

// All returns every log, newest date first.
func (r *DailyLogRepository) All(ctx context.Context) ([]domain.DailyLog, error) {
	var logs []domain.DailyLog
	if err := r.db.WithContext(ctx).Order("date DESC").Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

// Through returns up to limit logs with date <= through, newest first.
// This is the history window insight generation feeds to the model.
func (r *DailyLogRepository) Through(ctx context.Context, through string, limit int) ([]domain.DailyLog, error) {
	var logs []domain.DailyLog
	err := r.db.WithContext(ctx).
		Where("date <= ?", through).
		Order("date DESC").
		Limit(limit).
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}

// BulkAdd inserts all logs; a duplicate date fails the whole insert.
func (r *DailyLogRepository) BulkAdd(ctx context.Context, logs []domain.DailyLog) error {
	if len(logs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&logs).Error
}

// Delete removes the log for a date.
func (r *DailyLogRepository) Delete(ctx context.Context, date string) error {
	return r.db.WithContext(ctx).Delete(&domain.DailyLog{}, "date = ?", date).Error
}

// Clear removes every log.
func (r *DailyLogRepository) Clear(ctx context.Context) error {
	return r.db.WithContext(ctx).Where("1 = 1").Delete(&domain.DailyLog{}).Error
}

// Count returns the number of logs.
func (r *DailyLogRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.DailyLog{}).Count(&n).Error
	return n, err
}

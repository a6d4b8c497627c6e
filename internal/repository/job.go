package repository

import (
	"context"
	"errors"

	"github.com/xtrinch/food-coach/internal/domain"
	"gorm.io/gorm"
)

// JobRepository handles analysis job audit records.
type JobRepository struct {
	db *gorm.DB
}

// Get returns the job with the given id, or nil when none exists.
func (r *JobRepository) Get(ctx context.Context, id string) (*domain.AnalysisJobRecord, error) {
	var job domain.AnalysisJobRecord
	err := r.db.WithContext(ctx).First(&job, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// Add inserts a new job record.
func (r *JobRepository) Add(ctx context.Context, job *domain.AnalysisJobRecord) error {
	return r.db.WithContext(ctx).Create(job).Error
}

// UpdateFields merges the given fields into the job record.
func (r *JobRepository) UpdateFields(ctx context.Context, id string, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&domain.AnalysisJobRecord{}).
		Where("id = ?", id).Updates(fields).Error
}

// Delete removes the job record.
func (r *JobRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&domain.AnalysisJobRecord{}, "id = ?", id).Error
}

// All returns every job, most recently started first.
func (r *JobRepository) All(ctx context.Context) ([]domain.AnalysisJobRecord, error) {
	var jobs []domain.AnalysisJobRecord
	if err := r.db.WithContext(ctx).Order("started_at DESC").Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

// BulkAdd inserts all jobs; a duplicate id fails the whole insert.
func (r *JobRepository) BulkAdd(ctx context.Context, jobs []domain.AnalysisJobRecord) error {
	if len(jobs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&jobs).Error
}

// Clear removes every job record.
func (r *JobRepository) Clear(ctx context.Context) error {
	return r.db.WithContext(ctx).Where("1 = 1").Delete(&domain.AnalysisJobRecord{}).Error
}

// Count returns the number of job records.
func (r *JobRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.AnalysisJobRecord{}).Count(&n).Error
	return n, err
}

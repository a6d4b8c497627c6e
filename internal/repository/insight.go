package repository

import (
	"context"
	"errors"

	"github.com/xtrinch/food-coach/internal/domain"
	"gorm.io/gorm"
)

// InsightRepository handles daily insight rows.
type InsightRepository struct {
	db *gorm.DB
}

// ByDate returns the newest insight for a date, or nil when none exists.
func (r *InsightRepository) ByDate(ctx context.Context, date string) (*domain.DailyInsight, error) {
	var insight domain.DailyInsight
	err := r.db.WithContext(ctx).
		Where("date = ?", date).
		Order("generated_at DESC").
		First(&insight).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &insight, nil
}

// Add inserts the insight and fills in its generated id.
func (r *InsightRepository) Add(ctx context.Context, insight *domain.DailyInsight) error {
	return r.db.WithContext(ctx).Create(insight).Error
}

// DeleteForDate removes every insight row for a date. Regeneration and
// day deletion both go through this, keeping "last insight wins per date".
func (r *InsightRepository) DeleteForDate(ctx context.Context, date string) error {
	return r.db.WithContext(ctx).Delete(&domain.DailyInsight{}, "date = ?", date).Error
}

// All returns every insight, newest date first.
func (r *InsightRepository) All(ctx context.Context) ([]domain.DailyInsight, error) {
	var insights []domain.DailyInsight
	if err := r.db.WithContext(ctx).Order("date DESC").Find(&insights).Error; err != nil {
		return nil, err
	}
	return insights, nil
}

// BulkAdd inserts all insights; a duplicate id fails the whole insert.
func (r *InsightRepository) BulkAdd(ctx context.Context, insights []domain.DailyInsight) error {
	if len(insights) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&insights).Error
}

// Clear removes every insight.
func (r *InsightRepository) Clear(ctx context.Context) error {
	return r.db.WithContext(ctx).Where("1 = 1").Delete(&domain.DailyInsight{}).Error
}

// Count returns the number of insights.
func (r *InsightRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.DailyInsight{}).Count(&n).Error
	return n, err
}

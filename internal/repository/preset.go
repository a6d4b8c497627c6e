package repository

import (
	"context"

	"github.com/xtrinch/food-coach/internal/domain"
	"gorm.io/gorm"
)

// PresetRepository handles the deprecated food preset collection. It only
// exists so legacy backups restore without data loss elsewhere; the
// migration chain clears it.
type PresetRepository struct {
	db *gorm.DB
}

// All returns every preset.
func (r *PresetRepository) All(ctx context.Context) ([]domain.FoodPreset, error) {
	var presets []domain.FoodPreset
	if err := r.db.WithContext(ctx).Find(&presets).Error; err != nil {
		return nil, err
	}
	return presets, nil
}

// BulkAdd inserts all presets.
func (r *PresetRepository) BulkAdd(ctx context.Context, presets []domain.FoodPreset) error {
	if len(presets) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&presets).Error
}

// Clear removes every preset.
func (r *PresetRepository) Clear(ctx context.Context) error {
	return r.db.WithContext(ctx).Where("1 = 1").Delete(&domain.FoodPreset{}).Error
}

// Count returns the number of presets.
func (r *PresetRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.FoodPreset{}).Count(&n).Error
	return n, err
}

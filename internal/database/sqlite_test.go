package database

import (
	"path/filepath"
	"testing"

	"github.com/xtrinch/food-coach/internal/domain"
)

func TestOpenCreatesAndMigrates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "food-coach.db")

	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	for _, model := range []interface{}{
		&domain.DailyLog{}, &domain.DailyInsight{}, &domain.AnalysisJobRecord{}, &domain.FoodPreset{},
	} {
		if !db.Migrator().HasTable(model) {
			t.Errorf("missing table for %T", model)
		}
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "food-coach.db")

	db, err := Open(path)
	if err != nil {
		t.Fatalf("first Open: %v", err)
	}
	if err := db.Create(&domain.DailyLog{Date: "2026-08-01"}).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("DB: %v", err)
	}
	if err := sqlDB.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("second Open: %v", err)
	}
	var n int64
	if err := reopened.Model(&domain.DailyLog{}).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("reopened store holds %d logs, want 1", n)
	}
}

package migrations

import (
	"encoding/json"

	"github.com/xtrinch/food-coach/internal/domain"
	"github.com/xtrinch/food-coach/internal/logger"
	"gorm.io/gorm"
)

// Chain returns the ordered schema history of the store. Append-only:
// new steps get the next version, existing steps never change.
func Chain() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "initial schema",
			Run: func(tx *gorm.DB) error {
				return tx.AutoMigrate(
					&domain.DailyLog{},
					&domain.DailyInsight{},
					&domain.FoodPreset{},
					&domain.AnalysisJobRecord{},
				)
			},
		},
		{
			Version: 2,
			Name:    "rename symptoms to notes",
			Run:     renameSymptomsToNotes,
		},
		{
			Version: 3,
			Name:    "collapse calorie estimates",
			Run:     collapseCalorieEstimates,
		},
		{
			Version: 4,
			Name:    "clear legacy food presets",
			Run: func(tx *gorm.DB) error {
				// Presets are no longer used; a failure here is not worth
				// blocking the open for.
				if err := tx.Exec("DELETE FROM food_presets").Error; err != nil {
					logger.Warningf("Failed to clear legacy presets: %v", err)
				}
				return nil
			},
		},
	}
}

// renameSymptomsToNotes moves the legacy per-day symptoms column into
// notes. Stores created after the rename have no symptoms column and
// skip this entirely.
func renameSymptomsToNotes(tx *gorm.DB) error {
	migrator := tx.Migrator()
	if !migrator.HasColumn(&domain.DailyLog{}, "symptoms") {
		return nil
	}
	if !migrator.HasColumn(&domain.DailyLog{}, "notes") {
		return migrator.RenameColumn(&domain.DailyLog{}, "symptoms", "notes")
	}
	err := tx.Exec(
		"UPDATE daily_logs SET notes = symptoms WHERE notes IS NULL OR notes = '' OR notes = '[]'",
	).Error
	if err != nil {
		return err
	}
	return migrator.DropColumn(&domain.DailyLog{}, "symptoms")
}

// collapseCalorieEstimates rewrites every stored meal so that the single
// finalCaloriesEstimate field carries whichever estimate used to win:
// explicit final, then LLM estimate, then the old user self-report. The
// legacy user fields are dropped from the row JSON.
func collapseCalorieEstimates(tx *gorm.DB) error {
	type logRow struct {
		Date  string
		Meals string
	}

	var rows []logRow
	if err := tx.Table("daily_logs").Select("date", "meals").Find(&rows).Error; err != nil {
		return err
	}

	for _, row := range rows {
		if row.Meals == "" {
			continue
		}
		var meals []map[string]interface{}
		if err := json.Unmarshal([]byte(row.Meals), &meals); err != nil {
			logger.Warningf("Skipping unreadable meals for %s: %v", row.Date, err)
			continue
		}

		changed := false
		for _, meal := range meals {
			final, ok := firstPresent(meal, "finalCaloriesEstimate", "llmCaloriesEstimate", "userCaloriesEstimate")
			if _, had := meal["userCaloriesEstimate"]; had {
				delete(meal, "userCaloriesEstimate")
				changed = true
			}
			if _, had := meal["userCaloriesConfidence"]; had {
				delete(meal, "userCaloriesConfidence")
				changed = true
			}
			if ok {
				if prev, had := meal["finalCaloriesEstimate"]; !had || prev != final {
					meal["finalCaloriesEstimate"] = final
					changed = true
				}
			}
		}
		if !changed {
			continue
		}

		updated, err := json.Marshal(meals)
		if err != nil {
			logger.Warningf("Skipping unencodable meals for %s: %v", row.Date, err)
			continue
		}
		if err := tx.Table("daily_logs").Where("date = ?", row.Date).
			Update("meals", string(updated)).Error; err != nil {
			return err
		}
	}

	return nil
}

func firstPresent(m map[string]interface{}, keys ...string) (interface{}, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

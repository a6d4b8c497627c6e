package migrations

import (
	"fmt"
	"sort"

	"github.com/xtrinch/food-coach/internal/logger"
	"gorm.io/gorm"
)

// Migration is one schema step. Run executes inside a transaction and must
// be safe against rows that predate the fields it touches.
type Migration struct {
	Version int
	Name    string
	Run     func(tx *gorm.DB) error
}

// Record marks an applied migration version.
type Record struct {
	Version   int   `gorm:"primaryKey"`
	AppliedAt int64 `gorm:"autoCreateTime"`
}

func (Record) TableName() string {
	return "schema_migrations"
}

// Apply runs all pending migrations in increasing version order. Each
// version runs at most once per store lifetime; the step and its record
// commit together, so a failed step leaves the store at the prior version.
func Apply(db *gorm.DB, chain []Migration) error {
	if err := db.AutoMigrate(&Record{}); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	var executed []Record
	if err := db.Find(&executed).Error; err != nil {
		return fmt.Errorf("failed to read executed migrations: %w", err)
	}
	executedSet := make(map[int]bool, len(executed))
	for _, r := range executed {
		executedSet[r.Version] = true
	}

	ordered := make([]Migration, len(chain))
	copy(ordered, chain)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Version < ordered[j].Version })

	for _, m := range ordered {
		if executedSet[m.Version] {
			continue
		}
		migration := m
		logger.Infof("Running migration %d: %s", migration.Version, migration.Name)
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := migration.Run(tx); err != nil {
				return err
			}
			return tx.Create(&Record{Version: migration.Version}).Error
		})
		if err != nil {
			return fmt.Errorf("failed to run migration %d (%s): %w", migration.Version, migration.Name, err)
		}
	}

	return nil
}

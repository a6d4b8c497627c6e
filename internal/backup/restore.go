package backup

import (
	"context"

	apperrors "github.com/xtrinch/food-coach/internal/errors"
	"github.com/xtrinch/food-coach/internal/logger"
	"github.com/xtrinch/food-coach/internal/repository"
)

// Restore normalizes raw backup input and atomically replaces the store
// contents with it. All four collections are cleared first, presets
// included even though payloads never carry them, so a restore leaves
// no stale leftovers. Any insert failure rolls the whole replace back;
// the store is either fully replaced or untouched.
func (m *Manager) Restore(ctx context.Context, raw interface{}) (*Payload, error) {
	payload := Normalize(raw)

	err := m.store.RunInTransaction(ctx, func(tx *repository.Store) error {
		if err := tx.DailyLogs().Clear(ctx); err != nil {
			return err
		}
		if err := tx.Insights().Clear(ctx); err != nil {
			return err
		}
		if err := tx.Presets().Clear(ctx); err != nil {
			return err
		}
		if err := tx.Jobs().Clear(ctx); err != nil {
			return err
		}

		if err := tx.DailyLogs().BulkAdd(ctx, payload.DailyLogs); err != nil {
			return err
		}
		if err := tx.Insights().BulkAdd(ctx, payload.DailyInsights); err != nil {
			return err
		}
		return tx.Jobs().BulkAdd(ctx, payload.AnalysisJobs)
	})
	if err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}

	if m.settings != nil && payload.Settings.OpenAIAPIKey != nil {
		if err := m.settings.SetOpenAIAPIKey(*payload.Settings.OpenAIAPIKey); err != nil {
			logger.Warningf("Failed to apply restored API key: %v", err)
		}
	}

	logger.Info("Backup restored",
		"daily_logs", len(payload.DailyLogs),
		"daily_insights", len(payload.DailyInsights),
		"analysis_jobs", len(payload.AnalysisJobs))

	return payload, nil
}

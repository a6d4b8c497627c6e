package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/xtrinch/food-coach/internal/config"
	"github.com/xtrinch/food-coach/internal/domain"
	"github.com/xtrinch/food-coach/internal/logger"
	"github.com/xtrinch/food-coach/internal/photo"
	"github.com/xtrinch/food-coach/internal/repository"
	"golang.org/x/sync/errgroup"
)

// Version is the backup payload format version.
const Version = 1

// Payload is the canonical transfer shape every export, import and sync
// path converges on. It is built on demand and never persisted locally.
type Payload struct {
	Version       int                        `json:"version"`
	GeneratedAt   time.Time                  `json:"generatedAt"`
	DailyLogs     []domain.DailyLog          `json:"dailyLogs"`
	DailyInsights []domain.DailyInsight      `json:"dailyInsights"`
	AnalysisJobs  []domain.AnalysisJobRecord `json:"analysisJobs"`
	Settings      Settings                   `json:"settings"`
}

// Settings carries the non-database state included in backups.
type Settings struct {
	OpenAIAPIKey *string `json:"openAiApiKey"`
}

// Manager builds, restores and round-trips backup payloads against the
// local store. settings may be nil, in which case the settings block is
// left empty on build and ignored on restore.
type Manager struct {
	store    *repository.Store
	settings *config.SettingsFile
}

// NewManager creates a backup manager.
func NewManager(store *repository.Store, settings *config.SettingsFile) *Manager {
	return &Manager{store: store, settings: settings}
}

// FileName returns the default export file name for a date.
func FileName(t time.Time) string {
	return fmt.Sprintf("food-coach-backup-%s.json", t.Format("2006-01-02"))
}

// Build reads the exported collections in parallel and assembles a
// version-stamped payload. Meal photos are recompressed to bound the
// artifact size; a photo that fails to recompress rides along unchanged.
func (m *Manager) Build(ctx context.Context) (*Payload, error) {
	payload := &Payload{
		Version:     Version,
		GeneratedAt: time.Now().UTC(),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logs, err := m.store.DailyLogs().All(gctx)
		if err != nil {
			return fmt.Errorf("read daily logs: %w", err)
		}
		payload.DailyLogs = logs
		return nil
	})
	g.Go(func() error {
		insights, err := m.store.Insights().All(gctx)
		if err != nil {
			return fmt.Errorf("read daily insights: %w", err)
		}
		payload.DailyInsights = insights
		return nil
	})
	g.Go(func() error {
		jobs, err := m.store.Jobs().All(gctx)
		if err != nil {
			return fmt.Errorf("read analysis jobs: %w", err)
		}
		payload.AnalysisJobs = jobs
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for li := range payload.DailyLogs {
		meals := payload.DailyLogs[li].Meals
		for mi := range meals {
			if meals[mi].PhotoDataURL == "" {
				continue
			}
			compressed, err := photo.Recompress(meals[mi].PhotoDataURL)
			if err != nil {
				logger.Warningf("Keeping original photo for meal %s: %v", meals[mi].ID, err)
				continue
			}
			meals[mi].PhotoDataURL = compressed
		}
	}

	if m.settings != nil {
		if key := m.settings.OpenAIAPIKey(); key != "" {
			payload.Settings.OpenAIAPIKey = &key
		}
	}

	return payload, nil
}

// ExportToFile writes a freshly built payload as pretty-printed JSON.
func (m *Manager) ExportToFile(ctx context.Context, path string) (*Payload, error) {
	payload, err := m.Build(ctx)
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode backup: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return nil, fmt.Errorf("write backup file: %w", err)
	}
	return payload, nil
}

// ImportFromFile restores the store from a backup file of any supported
// vintage.
func (m *Manager) ImportFromFile(ctx context.Context, path string) (*Payload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read backup file: %w", err)
	}
	return m.Restore(ctx, data)
}

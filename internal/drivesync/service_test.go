package drivesync

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/xtrinch/food-coach/internal/backup"
	"github.com/xtrinch/food-coach/internal/config"
	"github.com/xtrinch/food-coach/internal/database"
	"github.com/xtrinch/food-coach/internal/domain"
	"github.com/xtrinch/food-coach/internal/repository"
)

func newSyncService(t *testing.T, fake *fakeDrive) (*Service, *repository.Store, *config.SettingsFile) {
	t.Helper()
	dir := t.TempDir()
	db, err := database.Open(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	store := repository.New(db)
	settings := config.NewSettingsFile(filepath.Join(dir, "settings.json"))
	backups := backup.NewManager(store, settings)
	client := testClient(fake.server(t), &fakeTokens{}, 5*time.Second)
	return NewService(client, backups, settings), store, settings
}

func TestSyncUpRecordsLastSync(t *testing.T) {
	fake := &fakeDrive{}
	service, store, settings := newSyncService(t, fake)
	ctx := context.Background()

	now := time.Now().UTC()
	logs := []domain.DailyLog{{
		Date:      "2026-08-20",
		Meals:     domain.MealEntries{{ID: "m1", Description: "soup"}},
		Notes:     domain.NoteEntries{},
		CreatedAt: now, UpdatedAt: now,
	}}
	if err := store.DailyLogs().BulkAdd(ctx, logs); err != nil {
		t.Fatalf("seed: %v", err)
	}

	result, err := service.SyncUp(ctx)
	if err != nil {
		t.Fatalf("SyncUp: %v", err)
	}
	if result.FileID == "" {
		t.Fatalf("result = %+v", result)
	}
	if service.LastSync() != result.ModifiedTime {
		t.Fatalf("LastSync = %q, want %q", service.LastSync(), result.ModifiedTime)
	}
	if settings.LastDriveSync() == "" {
		t.Fatal("last sync not persisted to settings")
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	if !strings.Contains(string(fake.content), "2026-08-20") {
		t.Fatalf("uploaded content = %s", fake.content)
	}
}

func TestImportFromRemoteReplacesLocalStore(t *testing.T) {
	fake := &fakeDrive{
		folderID: "folder-1",
		fileID:   "file-1",
		content: []byte(`{
			"dailyLogs": [
				{"date": "2026-08-21", "meals": [{"id": "m1", "description": "remote meal"}]},
				{"date": "2026-08-22"}
			]
		}`),
	}
	service, store, _ := newSyncService(t, fake)
	ctx := context.Background()

	// Local state the import must wipe.
	now := time.Now().UTC()
	stale := []domain.DailyLog{{Date: "2020-01-01", Meals: domain.MealEntries{}, Notes: domain.NoteEntries{}, CreatedAt: now, UpdatedAt: now}}
	if err := store.DailyLogs().BulkAdd(ctx, stale); err != nil {
		t.Fatalf("seed stale: %v", err)
	}

	payload, err := service.ImportFromRemote(ctx)
	if err != nil {
		t.Fatalf("ImportFromRemote: %v", err)
	}
	if len(payload.DailyLogs) != 2 {
		t.Fatalf("imported %d logs, want 2", len(payload.DailyLogs))
	}

	logs, err := store.DailyLogs().All(ctx)
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("store holds %d logs, want 2", len(logs))
	}
	got, err := store.DailyLogs().Get(ctx, "2026-08-21")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil || len(got.Meals) != 1 || got.Meals[0].Description != "remote meal" {
		t.Fatalf("remote log not restored: %+v", got)
	}
}

func TestRoundTripThroughDrive(t *testing.T) {
	fake := &fakeDrive{}
	source, sourceStore, _ := newSyncService(t, fake)
	ctx := context.Background()

	now := time.Now().UTC()
	weight := 71.0
	logs := []domain.DailyLog{{
		Date:     "2026-08-23",
		WeightKg: &weight,
		Meals: domain.MealEntries{
			{ID: "m1", Description: "pasta", FinalCaloriesEstimate: &weight},
		},
		Notes:     domain.NoteEntries{{ID: "n1", Text: "long walk"}},
		CreatedAt: now, UpdatedAt: now,
	}}
	if err := sourceStore.DailyLogs().BulkAdd(ctx, logs); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := source.SyncUp(ctx); err != nil {
		t.Fatalf("SyncUp: %v", err)
	}

	// A second device against the same remote.
	target, targetStore, _ := newSyncService(t, fake)
	if _, err := target.ImportFromRemote(ctx); err != nil {
		t.Fatalf("ImportFromRemote: %v", err)
	}

	got, err := targetStore.DailyLogs().Get(ctx, "2026-08-23")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil || got.WeightKg == nil || *got.WeightKg != 71.0 {
		t.Fatalf("log = %+v", got)
	}
	if len(got.Meals) != 1 || got.Meals[0].Description != "pasta" {
		t.Fatalf("meals = %+v", got.Meals)
	}
	if len(got.Notes) != 1 || got.Notes[0].Text != "long walk" {
		t.Fatalf("notes = %+v", got.Notes)
	}
}

package repository

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/xtrinch/food-coach/internal/database"
	"github.com/xtrinch/food-coach/internal/domain"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	return New(db)
}

func seedLog(t *testing.T, store *Store, date string) *domain.DailyLog {
	t.Helper()
	now := time.Now().UTC()
	log := &domain.DailyLog{
		Date:      date,
		Meals:     domain.MealEntries{},
		Notes:     domain.NoteEntries{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := store.DailyLogs().CreateIfMissing(context.Background(), log); err != nil {
		t.Fatalf("seed log %s: %v", date, err)
	}
	return log
}

func TestDailyLogGetMissingReturnsNil(t *testing.T) {
	store := newStore(t)
	log, err := store.DailyLogs().Get(context.Background(), "2026-08-01")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if log != nil {
		t.Fatalf("expected nil for missing date, got %+v", log)
	}
}

func TestCreateIfMissingKeepsFirstRow(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	weight := 71.5
	first := seedLog(t, store, "2026-08-01")
	first.WeightKg = &weight
	if err := store.DailyLogs().Save(ctx, first); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// A second create for the same date must not clobber the row.
	if err := store.DailyLogs().CreateIfMissing(ctx, &domain.DailyLog{Date: "2026-08-01"}); err != nil {
		t.Fatalf("CreateIfMissing: %v", err)
	}

	got, err := store.DailyLogs().Get(ctx, "2026-08-01")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.WeightKg == nil || *got.WeightKg != 71.5 {
		t.Fatalf("first row was clobbered: %+v", got)
	}

	n, err := store.DailyLogs().Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 1 {
		t.Fatalf("row count = %d, want 1", n)
	}
}

func TestConcurrentCreateLeavesOneRow(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.DailyLogs().CreateIfMissing(ctx, &domain.DailyLog{
				Date:  "2026-08-02",
				Meals: domain.MealEntries{},
				Notes: domain.NoteEntries{},
			})
		}()
	}
	wg.Wait()

	// One more from this goroutine; whatever the interleaving, exactly one
	// row for the date must exist afterwards.
	if err := store.DailyLogs().CreateIfMissing(ctx, &domain.DailyLog{Date: "2026-08-02"}); err != nil {
		t.Fatalf("CreateIfMissing: %v", err)
	}

	n, err := store.DailyLogs().Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 1 {
		t.Fatalf("row count = %d, want 1", n)
	}
}

func TestUpdateFieldsMergesWithoutTouchingRest(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	log := seedLog(t, store, "2026-08-03")
	log.Meals = domain.MealEntries{{ID: "m1", Description: "toast"}}
	if err := store.DailyLogs().Save(ctx, log); err != nil {
		t.Fatalf("Save: %v", err)
	}

	err := store.DailyLogs().UpdateFields(ctx, "2026-08-03", map[string]interface{}{
		"weight_kg": 70.0,
		"bloating":  3,
	})
	if err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}

	got, err := store.DailyLogs().Get(ctx, "2026-08-03")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.WeightKg == nil || *got.WeightKg != 70.0 || got.Bloating == nil || *got.Bloating != 3 {
		t.Fatalf("fields not merged: %+v", got)
	}
	if len(got.Meals) != 1 || got.Meals[0].Description != "toast" {
		t.Fatalf("merge touched embedded meals: %+v", got.Meals)
	}
}

func TestThroughReturnsWindowNewestFirst(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	for day := 1; day <= 5; day++ {
		seedLog(t, store, fmt.Sprintf("2026-08-%02d", day))
	}

	logs, err := store.DailyLogs().Through(ctx, "2026-08-04", 3)
	if err != nil {
		t.Fatalf("Through: %v", err)
	}
	if len(logs) != 3 {
		t.Fatalf("window size = %d, want 3", len(logs))
	}
	want := []string{"2026-08-04", "2026-08-03", "2026-08-02"}
	for i, date := range want {
		if logs[i].Date != date {
			t.Fatalf("window = %v, want %v at %d", logs[i].Date, date, i)
		}
	}
}

func TestBulkAddDuplicateDateFailsWhole(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	logs := []domain.DailyLog{
		{Date: "2026-08-10", Meals: domain.MealEntries{}, Notes: domain.NoteEntries{}},
		{Date: "2026-08-11", Meals: domain.MealEntries{}, Notes: domain.NoteEntries{}},
		{Date: "2026-08-10", Meals: domain.MealEntries{}, Notes: domain.NoteEntries{}},
	}
	if err := store.DailyLogs().BulkAdd(ctx, logs); err == nil {
		t.Fatal("expected duplicate date to fail the insert")
	}

	n, err := store.DailyLogs().Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 0 {
		t.Fatalf("partial insert left %d rows", n)
	}
}

func TestRunInTransactionRollsBack(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	seedLog(t, store, "2026-08-12")

	wantErr := fmt.Errorf("boom")
	err := store.RunInTransaction(ctx, func(tx *Store) error {
		if err := tx.DailyLogs().Clear(ctx); err != nil {
			return err
		}
		return wantErr
	})
	if err != wantErr {
		t.Fatalf("transaction error = %v, want %v", err, wantErr)
	}

	n, err := store.DailyLogs().Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 1 {
		t.Fatalf("rollback lost rows: count = %d", n)
	}
}

func TestInsightByDateReturnsNewest(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	old := domain.DailyInsight{Date: "2026-08-05", GeneratedAt: time.Now().Add(-time.Hour), PrettyText: "old"}
	fresh := domain.DailyInsight{Date: "2026-08-05", GeneratedAt: time.Now(), PrettyText: "fresh"}
	for _, insight := range []*domain.DailyInsight{&old, &fresh} {
		if err := store.Insights().Add(ctx, insight); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	got, err := store.Insights().ByDate(ctx, "2026-08-05")
	if err != nil {
		t.Fatalf("ByDate: %v", err)
	}
	if got == nil || got.PrettyText != "fresh" {
		t.Fatalf("ByDate = %+v, want newest", got)
	}

	if err := store.Insights().DeleteForDate(ctx, "2026-08-05"); err != nil {
		t.Fatalf("DeleteForDate: %v", err)
	}
	got, err = store.Insights().ByDate(ctx, "2026-08-05")
	if err != nil {
		t.Fatalf("ByDate after delete: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil after delete, got %+v", got)
	}
}

func TestJobUpdateFields(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	job := &domain.AnalysisJobRecord{
		ID:        "job-1",
		Type:      domain.JobKindCustom,
		Status:    domain.JobStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	if err := store.Jobs().Add(ctx, job); err != nil {
		t.Fatalf("Add: %v", err)
	}

	finished := time.Now().UTC()
	err := store.Jobs().UpdateFields(ctx, "job-1", map[string]interface{}{
		"status":        domain.JobStatusError,
		"finished_at":   finished,
		"error_message": "model unavailable",
	})
	if err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}

	got, err := store.Jobs().Get(ctx, "job-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != domain.JobStatusError || got.ErrorMessage != "model unavailable" || got.FinishedAt == nil {
		t.Fatalf("job = %+v", got)
	}
}

package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/xtrinch/food-coach/internal/domain"
	apperrors "github.com/xtrinch/food-coach/internal/errors"
	"github.com/xtrinch/food-coach/internal/repository"
)

// DiaryService owns the daily log collection: one record per date, with
// meals and notes embedded in the parent row. Every meal/note mutation
// rewrites the whole embedded sequence inside a transaction.
type DiaryService struct {
	store *repository.Store
}

// NewDiaryService creates the diary service.
func NewDiaryService(store *repository.Store) *DiaryService {
	return &DiaryService{store: store}
}

// BasicsPatch is a partial update of a day's numeric basics. Nil fields
// are left untouched.
type BasicsPatch struct {
	WeightKg      *float64
	SleepHours    *float64
	StressLevel   *int
	Bloating      *int
	Energy        *int
	ExerciseHours *float64
}

// MealPatch is a partial update of one meal. Changing the description or
// photo invalidates the LLM estimate and forces re-estimation.
type MealPatch struct {
	Description           *string
	PhotoDataURL          *string
	FinalCaloriesEstimate *float64
	FinalProteinGrams     *float64
	FinalCarbsGrams       *float64
	FinalFatGrams         *float64
	FinalFiberGrams       *float64
}

// EnsureLog returns the log for a date, lazily creating it on first
// access. Dates in the future are rejected. Concurrent calls for the same
// missing date still end with exactly one row.
func (s *DiaryService) EnsureLog(ctx context.Context, date string) (*domain.DailyLog, error) {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return nil, apperrors.NewValidationError(fmt.Sprintf("invalid date %q, want YYYY-MM-DD", date))
	}
	if date > domain.TodayID() {
		return nil, apperrors.NewValidationError(fmt.Sprintf("cannot open a log for future date %s", date))
	}

	logs := s.store.DailyLogs()
	if existing, err := logs.Get(ctx, date); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}

	now := time.Now().UTC()
	fresh := &domain.DailyLog{
		Date:      date,
		Meals:     domain.MealEntries{},
		Notes:     domain.NoteEntries{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := logs.CreateIfMissing(ctx, fresh); err != nil {
		return nil, err
	}
	return logs.Get(ctx, date)
}

// Log returns the log for a date without creating it; nil when absent.
func (s *DiaryService) Log(ctx context.Context, date string) (*domain.DailyLog, error) {
	return s.store.DailyLogs().Get(ctx, date)
}

// RecentLogs returns up to limit logs with date <= through, newest first.
func (s *DiaryService) RecentLogs(ctx context.Context, through string, limit int) ([]domain.DailyLog, error) {
	return s.store.DailyLogs().Through(ctx, through, limit)
}

// UpdateBasics merges the set fields of the patch into the day's record.
func (s *DiaryService) UpdateBasics(ctx context.Context, date string, patch BasicsPatch) error {
	if _, err := s.EnsureLog(ctx, date); err != nil {
		return err
	}

	fields := map[string]interface{}{"updated_at": time.Now().UTC()}
	if patch.WeightKg != nil {
		fields["weight_kg"] = *patch.WeightKg
	}
	if patch.SleepHours != nil {
		fields["sleep_hours"] = *patch.SleepHours
	}
	if patch.StressLevel != nil {
		fields["stress_level"] = *patch.StressLevel
	}
	if patch.Bloating != nil {
		fields["bloating"] = *patch.Bloating
	}
	if patch.Energy != nil {
		fields["energy"] = *patch.Energy
	}
	if patch.ExerciseHours != nil {
		fields["exercise_hours"] = *patch.ExerciseHours
	}
	return s.store.DailyLogs().UpdateFields(ctx, date, fields)
}

// AddMeal appends a meal with no estimate fields and commits it. The
// caller kicks off estimation only after this returns, so the optimistic
// insert is always visible before any remote call is issued.
func (s *DiaryService) AddMeal(ctx context.Context, date, description, photoDataURL string) (*domain.MealEntry, error) {
	if _, err := s.EnsureLog(ctx, date); err != nil {
		return nil, err
	}

	meal := domain.MealEntry{
		ID:           uuid.NewString(),
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		Description:  description,
		PhotoDataURL: photoDataURL,
	}

	err := s.mutateLog(ctx, date, func(log *domain.DailyLog) error {
		log.Meals = append(log.Meals, meal)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &meal, nil
}

// UpdateMeal merges a patch into one meal. Description or photo edits
// clear the LLM fields so the meal gets re-estimated.
func (s *DiaryService) UpdateMeal(ctx context.Context, date, mealID string, patch MealPatch) error {
	return s.mutateLog(ctx, date, func(log *domain.DailyLog) error {
		meal := log.Meal(mealID)
		if meal == nil {
			return apperrors.NewValidationError(fmt.Sprintf("no meal %s on %s", mealID, date))
		}

		if patch.Description != nil && *patch.Description != meal.Description {
			meal.Description = *patch.Description
			meal.ClearEstimates()
		}
		if patch.PhotoDataURL != nil && *patch.PhotoDataURL != meal.PhotoDataURL {
			meal.PhotoDataURL = *patch.PhotoDataURL
			meal.ClearEstimates()
		}
		if patch.FinalCaloriesEstimate != nil {
			meal.FinalCaloriesEstimate = patch.FinalCaloriesEstimate
		}
		if patch.FinalProteinGrams != nil {
			meal.FinalProteinGrams = patch.FinalProteinGrams
		}
		if patch.FinalCarbsGrams != nil {
			meal.FinalCarbsGrams = patch.FinalCarbsGrams
		}
		if patch.FinalFatGrams != nil {
			meal.FinalFatGrams = patch.FinalFatGrams
		}
		if patch.FinalFiberGrams != nil {
			meal.FinalFiberGrams = patch.FinalFiberGrams
		}
		return nil
	})
}

// ApplyMealEstimate writes the LLM result onto a meal and defaults any
// unset final fields from it. This is its own transaction, independent of
// the insert that created the meal.
func (s *DiaryService) ApplyMealEstimate(ctx context.Context, date, mealID string, estimate *MealEstimate) error {
	return s.mutateLog(ctx, date, func(log *domain.DailyLog) error {
		meal := log.Meal(mealID)
		if meal == nil {
			return apperrors.NewValidationError(fmt.Sprintf("no meal %s on %s", mealID, date))
		}

		calories := estimate.Calories
		meal.LLMCaloriesEstimate = &calories
		meal.LLMCaloriesExplanation = estimate.Explanation
		meal.LLMImprovementSuggestions = estimate.ImprovementSuggestions
		meal.LLMProteinGrams = estimate.ProteinGrams
		meal.LLMCarbsGrams = estimate.CarbsGrams
		meal.LLMFatGrams = estimate.FatGrams
		meal.LLMFiberGrams = estimate.FiberGrams

		if meal.FinalCaloriesEstimate == nil {
			meal.FinalCaloriesEstimate = &calories
		}
		if meal.FinalProteinGrams == nil {
			meal.FinalProteinGrams = estimate.ProteinGrams
		}
		if meal.FinalCarbsGrams == nil {
			meal.FinalCarbsGrams = estimate.CarbsGrams
		}
		if meal.FinalFatGrams == nil {
			meal.FinalFatGrams = estimate.FatGrams
		}
		if meal.FinalFiberGrams == nil {
			meal.FinalFiberGrams = estimate.FiberGrams
		}
		return nil
	})
}

// RemoveMeal deletes one meal from the day.
func (s *DiaryService) RemoveMeal(ctx context.Context, date, mealID string) error {
	return s.mutateLog(ctx, date, func(log *domain.DailyLog) error {
		for i := range log.Meals {
			if log.Meals[i].ID == mealID {
				log.Meals = append(log.Meals[:i], log.Meals[i+1:]...)
				return nil
			}
		}
		return apperrors.NewValidationError(fmt.Sprintf("no meal %s on %s", mealID, date))
	})
}

// AddNote appends a free-text note to the day.
func (s *DiaryService) AddNote(ctx context.Context, date, text string) (*domain.NoteEntry, error) {
	if _, err := s.EnsureLog(ctx, date); err != nil {
		return nil, err
	}

	note := domain.NoteEntry{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Text:      text,
	}
	err := s.mutateLog(ctx, date, func(log *domain.DailyLog) error {
		log.Notes = append(log.Notes, note)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &note, nil
}

// RemoveNote deletes one note from the day.
func (s *DiaryService) RemoveNote(ctx context.Context, date, noteID string) error {
	return s.mutateLog(ctx, date, func(log *domain.DailyLog) error {
		for i := range log.Notes {
			if log.Notes[i].ID == noteID {
				log.Notes = append(log.Notes[:i], log.Notes[i+1:]...)
				return nil
			}
		}
		return apperrors.NewValidationError(fmt.Sprintf("no note %s on %s", noteID, date))
	})
}

// DeleteDay removes the log for a date together with any insight rows
// referencing it, in one transaction.
func (s *DiaryService) DeleteDay(ctx context.Context, date string) error {
	return s.store.RunInTransaction(ctx, func(tx *repository.Store) error {
		if err := tx.Insights().DeleteForDate(ctx, date); err != nil {
			return err
		}
		return tx.DailyLogs().Delete(ctx, date)
	})
}

// SetInsightRef points the day's log at its generated insight.
func (s *DiaryService) SetInsightRef(ctx context.Context, date, insightID string) error {
	return s.store.DailyLogs().UpdateFields(ctx, date, map[string]interface{}{
		"daily_insight_id": insightID,
		"updated_at":       time.Now().UTC(),
	})
}

// mutateLog runs a read-modify-write of the whole log row inside one
// transaction, so readers never observe a half-rewritten sequence.
func (s *DiaryService) mutateLog(ctx context.Context, date string, mutate func(log *domain.DailyLog) error) error {
	return s.store.RunInTransaction(ctx, func(tx *repository.Store) error {
		log, err := tx.DailyLogs().Get(ctx, date)
		if err != nil {
			return err
		}
		if log == nil {
			return apperrors.NewValidationError(fmt.Sprintf("no log for %s", date))
		}
		if err := mutate(log); err != nil {
			return err
		}
		log.UpdatedAt = time.Now().UTC()
		return tx.DailyLogs().Save(ctx, log)
	})
}

package services

import (
	"context"
	"fmt"

	"github.com/xtrinch/food-coach/internal/domain"
	apperrors "github.com/xtrinch/food-coach/internal/errors"
)

// EstimationService orchestrates the "estimate this meal" flow: it runs
// the AI call under a recorded analysis job and lands the result as an
// independent write. The meal itself was already committed by the diary
// service before this runs.
type EstimationService struct {
	diary *DiaryService
	ai    *AIService
	jobs  *AnalysisJobService
}

// NewEstimationService creates the estimation orchestrator.
func NewEstimationService(diary *DiaryService, ai *AIService, jobs *AnalysisJobService) *EstimationService {
	return &EstimationService{diary: diary, ai: ai, jobs: jobs}
}

// EstimateMeal runs a calorie/macro estimation for one already-persisted
// meal and applies the result. Failures are recorded on the job and
// returned; the meal entry stays as inserted.
func (s *EstimationService) EstimateMeal(ctx context.Context, date, mealID string) (*MealEstimate, error) {
	log, err := s.diary.Log(ctx, date)
	if err != nil {
		return nil, err
	}
	if log == nil {
		return nil, apperrors.NewValidationError(fmt.Sprintf("no log for %s", date))
	}
	meal := log.Meal(mealID)
	if meal == nil {
		return nil, apperrors.NewValidationError(fmt.Sprintf("no meal %s on %s", mealID, date))
	}

	jobID := s.jobs.Start(ctx, domain.JobKindCustom, fmt.Sprintf("Estimate meal on %s", date))

	estimate, err := s.ai.EstimateMealCalories(ctx, meal.Description, meal.PhotoDataURL, dayContext(log, mealID), jobID)
	if err != nil {
		s.jobs.Fail(ctx, jobID, err.Error())
		return nil, err
	}

	if err := s.diary.ApplyMealEstimate(ctx, date, mealID, estimate); err != nil {
		s.jobs.Fail(ctx, jobID, err.Error())
		return nil, err
	}

	s.jobs.Finish(ctx, jobID)
	return estimate, nil
}

// dayContext summarizes the rest of the day's meals so the model can
// judge the new meal against what was already eaten.
func dayContext(log *domain.DailyLog, excludeMealID string) string {
	var others []string
	for i := range log.Meals {
		if log.Meals[i].ID == excludeMealID || log.Meals[i].Description == "" {
			continue
		}
		others = append(others, log.Meals[i].Description)
	}
	if len(others) == 0 {
		return ""
	}
	context := "Other meals today:"
	for _, d := range others {
		context += " " + d + ";"
	}
	return context
}

package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/xtrinch/food-coach/internal/domain"
	"github.com/xtrinch/food-coach/internal/repository"
)

// historyWindow is how many recent logs feed the insight prompt.
const historyWindow = 14

// InsightService produces the narrative daily insight from recent
// history. At most one insight row stays live per date: generation
// deletes prior rows for the date before inserting the new one.
type InsightService struct {
	store *repository.Store
	diary *DiaryService
	ai    *AIService
	jobs  *AnalysisJobService
}

// NewInsightService creates the insight service.
func NewInsightService(store *repository.Store, diary *DiaryService, ai *AIService, jobs *AnalysisJobService) *InsightService {
	return &InsightService{store: store, diary: diary, ai: ai, jobs: jobs}
}

// RunIfNeeded generates the insight for a date unless one already exists.
// Returns the existing or new insight; nil when there is no history to
// summarize.
func (s *InsightService) RunIfNeeded(ctx context.Context, date string) (*domain.DailyInsight, error) {
	existing, err := s.store.Insights().ByDate(ctx, date)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}
	return s.generate(ctx, date)
}

// Regenerate always produces a fresh insight for the date, replacing any
// prior one.
func (s *InsightService) Regenerate(ctx context.Context, date string) (*domain.DailyInsight, error) {
	return s.generate(ctx, date)
}

func (s *InsightService) generate(ctx context.Context, date string) (*domain.DailyInsight, error) {
	logs, err := s.diary.RecentLogs(ctx, date, historyWindow)
	if err != nil {
		return nil, err
	}
	if len(logs) == 0 {
		return nil, nil
	}

	focus := logs[0]
	for i := range logs {
		if logs[i].Date == date {
			focus = logs[i]
			break
		}
	}

	jobID := s.jobs.Start(ctx, domain.JobKindDaily, fmt.Sprintf("Daily insight for %s", date))

	result, err := s.ai.GenerateDailyInsight(ctx, date, logs, jobID)
	if err != nil {
		s.jobs.Fail(ctx, jobID, err.Error())
		return nil, err
	}

	insight := &domain.DailyInsight{
		Date:        date,
		GeneratedAt: time.Now().UTC(),
		Model:       result.Model,
		RawJSON:     result.RawJSON,
		PrettyText:  result.PrettyText,
		Prompt:      result.Prompt,
	}

	// Delete-then-insert in one transaction: last insight wins per date,
	// and a failed insert keeps the prior insight instead of losing both.
	err = s.store.RunInTransaction(ctx, func(tx *repository.Store) error {
		if err := tx.Insights().DeleteForDate(ctx, date); err != nil {
			return err
		}
		if err := tx.Insights().Add(ctx, insight); err != nil {
			return err
		}
		return tx.DailyLogs().UpdateFields(ctx, focus.Date, map[string]interface{}{
			"daily_insight_id": strconv.FormatUint(uint64(insight.ID), 10),
			"updated_at":       time.Now().UTC(),
		})
	})
	if err != nil {
		s.jobs.Fail(ctx, jobID, err.Error())
		return nil, err
	}

	s.jobs.Finish(ctx, jobID)
	return insight, nil
}

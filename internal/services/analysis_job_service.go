package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/xtrinch/food-coach/internal/domain"
	"github.com/xtrinch/food-coach/internal/logger"
	"github.com/xtrinch/food-coach/internal/repository"
)

// AnalysisJobService keeps the audit trail of estimation calls. Job
// bookkeeping is best-effort: a failure to persist a record is logged and
// never fails the call it describes.
type AnalysisJobService struct {
	store *repository.Store
}

// NewAnalysisJobService creates the job service.
func NewAnalysisJobService(store *repository.Store) *AnalysisJobService {
	return &AnalysisJobService{store: store}
}

// Start records a new running job and returns its id.
func (s *AnalysisJobService) Start(ctx context.Context, kind domain.JobKind, label string) string {
	job := &domain.AnalysisJobRecord{
		ID:        uuid.NewString(),
		Type:      kind,
		Label:     label,
		Status:    domain.JobStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	if err := s.store.Jobs().Add(ctx, job); err != nil {
		logger.Errorf("Failed to persist job start: %v", err)
	}
	return job.ID
}

// Finish marks a job successful.
func (s *AnalysisJobService) Finish(ctx context.Context, id string) {
	s.update(ctx, id, map[string]interface{}{
		"status":      domain.JobStatusSuccess,
		"finished_at": time.Now().UTC(),
		"dismissed":   false,
	})
}

// Fail marks a job failed with a user-readable message.
func (s *AnalysisJobService) Fail(ctx context.Context, id, errorMessage string) {
	s.update(ctx, id, map[string]interface{}{
		"status":        domain.JobStatusError,
		"finished_at":   time.Now().UTC(),
		"error_message": errorMessage,
		"dismissed":     false,
	})
}

// RecordPrompt captures the outgoing prompt onto the job.
func (s *AnalysisJobService) RecordPrompt(ctx context.Context, id, prompt string) {
	s.update(ctx, id, map[string]interface{}{"prompt": prompt})
}

// RecordResponse captures the raw model response onto the job.
func (s *AnalysisJobService) RecordResponse(ctx context.Context, id, response string) {
	s.update(ctx, id, map[string]interface{}{"response": response})
}

// Dismiss soft-hides a job from the default listing.
func (s *AnalysisJobService) Dismiss(ctx context.Context, id string) {
	s.update(ctx, id, map[string]interface{}{"dismissed": true})
}

// Delete removes a job record for good.
func (s *AnalysisJobService) Delete(ctx context.Context, id string) error {
	return s.store.Jobs().Delete(ctx, id)
}

// List returns all jobs, most recently started first.
func (s *AnalysisJobService) List(ctx context.Context) ([]domain.AnalysisJobRecord, error) {
	return s.store.Jobs().All(ctx)
}

func (s *AnalysisJobService) update(ctx context.Context, id string, fields map[string]interface{}) {
	if err := s.store.Jobs().UpdateFields(ctx, id, fields); err != nil {
		logger.Errorf("Failed to update job %s: %v", id, err)
	}
}

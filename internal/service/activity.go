package service

import (
	"context"

	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/repository"
)

// ActivityRefs links an audit entry to the records it describes.
type ActivityRefs struct {
	LeadID   *string
	ClientID *string
	ClaimID  *string
	Metadata map[string]any
}

// ActivityRecorder appends audit entries. Every mutating service method calls
// Record once, inside the same transaction as the mutation.
type ActivityRecorder struct {
	repo repository.ActivityRepository
}

// NewActivityRecorder constructs the recorder.
func NewActivityRecorder(repo repository.ActivityRepository) *ActivityRecorder {
	return &ActivityRecorder{repo: repo}
}

// Record appends one activity row.
func (r *ActivityRecorder) Record(ctx context.Context, action domain.ActivityAction, description, actorID string, refs ActivityRefs) error {
	activity := &domain.Activity{
		Action:      action,
		Description: description,
		Metadata:    refs.Metadata,
		UserID:      actorID,
		LeadID:      refs.LeadID,
		ClientID:    refs.ClientID,
		ClaimID:     refs.ClaimID,
	}
	return r.repo.Create(ctx, activity)
}

// Recent lists the latest entries matching filter.
func (r *ActivityRecorder) Recent(ctx context.Context, filter repository.ActivityFilter) ([]domain.Activity, error) {
	return r.repo.ListRecent(ctx, filter)
}

func ref(id string) *string {
	return &id
}

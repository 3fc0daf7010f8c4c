package mocks

import (
	"context"

	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/repository"
)

type activityRepo struct{ s *Store }

func (r *activityRepo) Create(ctx context.Context, activity *domain.Activity) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("activities.Create"); err != nil {
		return err
	}
	if _, ok := r.s.users[activity.UserID]; !ok {
		return foreignKeyViolation("activities_user_id_fkey")
	}
	activity.ID = newID()
	activity.CreatedAt = r.s.tick()
	stored := *activity
	stored.User = nil
	r.s.activities = append(r.s.activities, stored)
	return nil
}

func (r *activityRepo) ListRecent(ctx context.Context, filter repository.ActivityFilter) ([]domain.Activity, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	var out []domain.Activity
	for i := len(r.s.activities) - 1; i >= 0 && len(out) < limit; i-- {
		a := r.s.activities[i]
		if filter.UserID != nil && a.UserID != *filter.UserID {
			continue
		}
		if filter.LeadID != nil && !eqPtr(a.LeadID, *filter.LeadID) {
			continue
		}
		if filter.ClientID != nil && !eqPtr(a.ClientID, *filter.ClientID) {
			continue
		}
		if filter.ClaimID != nil && !eqPtr(a.ClaimID, *filter.ClaimID) {
			continue
		}
		userID := a.UserID
		a.User = r.s.userRef(&userID)
		out = append(out, a)
	}
	return out, nil
}

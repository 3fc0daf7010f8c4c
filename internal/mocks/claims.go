package mocks

import (
	"context"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/repository"
)

type claimRepo struct{ s *Store }

func (r *claimRepo) Create(ctx context.Context, claim *domain.Claim) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("claims.Create"); err != nil {
		return err
	}
	if _, ok := r.s.clients[claim.ClientID]; !ok {
		return foreignKeyViolation("claims_client_id_fkey")
	}
	claim.ID = newID()
	claim.CreatedAt = r.s.tick()
	claim.UpdatedAt = claim.CreatedAt
	r.s.claims[claim.ID] = stripClaim(*claim)
	return nil
}

func (r *claimRepo) Update(ctx context.Context, claim *domain.Claim) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("claims.Update"); err != nil {
		return err
	}
	existing, ok := r.s.claims[claim.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	if existing.ResolvedAt != nil {
		claim.ResolvedAt = existing.ResolvedAt
	}
	claim.UpdatedAt = r.s.tick()
	r.s.claims[claim.ID] = stripClaim(*claim)
	return nil
}

func (r *claimRepo) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.claims[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.s.claims, id)
	for attID, att := range r.s.attachments {
		if att.ClaimID == id {
			delete(r.s.attachments, attID)
		}
	}
	kept := r.s.activities[:0]
	for _, a := range r.s.activities {
		if !eqPtr(a.ClaimID, id) {
			kept = append(kept, a)
		}
	}
	r.s.activities = kept
	return nil
}

func (r *claimRepo) GetByID(ctx context.Context, id string) (*domain.Claim, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	claim, ok := r.s.claims[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := r.s.hydrateClaim(claim)
	return &out, nil
}

func (r *claimRepo) List(ctx context.Context, filter repository.ClaimFilter) ([]domain.Claim, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Claim
	for _, claim := range r.s.claims {
		if !inScope(claim, filter.Scope) {
			continue
		}
		if filter.Status != nil && claim.Status != *filter.Status {
			continue
		}
		if filter.Priority != nil && claim.Priority != *filter.Priority {
			continue
		}
		if filter.Search != "" && !contains(claim.Title, filter.Search) && !contains(claim.Description, filter.Search) {
			continue
		}
		out = append(out, r.s.hydrateClaim(claim))
	}
	sortByCreated(out, func(c domain.Claim) (int64, string) { return c.CreatedAt.UnixNano(), c.ID }, filter.Page)
	return paginate(out, filter.Page), len(out), nil
}

func (r *claimRepo) CountByStatus(ctx context.Context, scope repository.ClaimScope) (map[domain.ClaimStatus]int, error) {
	counts := map[domain.ClaimStatus]int{}
	r.each(scope, func(c domain.Claim) { counts[c.Status]++ })
	return counts, nil
}

func (r *claimRepo) CountByPriority(ctx context.Context, scope repository.ClaimScope) (map[domain.ClaimPriority]int, error) {
	counts := map[domain.ClaimPriority]int{}
	r.each(scope, func(c domain.Claim) { counts[c.Priority]++ })
	return counts, nil
}

func (r *claimRepo) CountResolvedSince(ctx context.Context, scope repository.ClaimScope, since time.Time) (int, error) {
	var n int
	r.each(scope, func(c domain.Claim) {
		if c.ResolvedAt != nil && !c.ResolvedAt.Before(since) {
			n++
		}
	})
	return n, nil
}

func (r *claimRepo) ResolutionDurations(ctx context.Context, scope repository.ClaimScope, limit int) ([]time.Duration, error) {
	var resolved []domain.Claim
	r.each(scope, func(c domain.Claim) {
		if c.ResolvedAt != nil {
			resolved = append(resolved, c)
		}
	})
	sort.Slice(resolved, func(i, j int) bool { return resolved[i].ResolvedAt.After(*resolved[j].ResolvedAt) })
	if limit > 0 && len(resolved) > limit {
		resolved = resolved[:limit]
	}
	durations := make([]time.Duration, 0, len(resolved))
	for _, c := range resolved {
		durations = append(durations, c.ResolvedAt.Sub(c.CreatedAt))
	}
	return durations, nil
}

func (r *claimRepo) each(scope repository.ClaimScope, fn func(domain.Claim)) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, claim := range r.s.claims {
		if inScope(claim, scope) {
			fn(claim)
		}
	}
}

// SetClaimTimes overrides stored timestamps so tests can shape resolution windows.
func (s *Store) SetClaimTimes(id string, createdAt time.Time, resolvedAt *time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	claim, ok := s.claims[id]
	if !ok {
		return
	}
	claim.CreatedAt = createdAt
	claim.ResolvedAt = resolvedAt
	s.claims[id] = claim
}

func inScope(claim domain.Claim, scope repository.ClaimScope) bool {
	if scope.AssignedToID != nil && !eqPtr(claim.AssignedToID, *scope.AssignedToID) {
		return false
	}
	if scope.ClientID != nil && claim.ClientID != *scope.ClientID {
		return false
	}
	return true
}

func stripClaim(claim domain.Claim) domain.Claim {
	claim.Client = nil
	claim.CreatedBy = nil
	claim.AssignedTo = nil
	claim.Attachments = nil
	return claim
}

// hydrateClaim attaches client, creator and assignee references. Caller holds mu.
func (s *Store) hydrateClaim(claim domain.Claim) domain.Claim {
	if client, ok := s.clients[claim.ClientID]; ok {
		claim.Client = client.Ref()
	}
	creator := claim.CreatedByID
	claim.CreatedBy = s.userRef(&creator)
	claim.AssignedTo = s.userRef(claim.AssignedToID)
	return claim
}

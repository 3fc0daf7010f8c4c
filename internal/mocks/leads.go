package mocks

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/repository"
)

type leadRepo struct{ s *Store }

func (r *leadRepo) Create(ctx context.Context, lead *domain.Lead) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("leads.Create"); err != nil {
		return err
	}
	if _, ok := r.s.users[lead.CreatedByID]; !ok {
		return foreignKeyViolation("leads_created_by_id_fkey")
	}
	lead.ID = newID()
	lead.CreatedAt = r.s.tick()
	lead.UpdatedAt = lead.CreatedAt
	r.s.leads[lead.ID] = stripLead(*lead)
	return nil
}

func (r *leadRepo) Update(ctx context.Context, lead *domain.Lead) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("leads.Update"); err != nil {
		return err
	}
	if _, ok := r.s.leads[lead.ID]; !ok {
		return pgx.ErrNoRows
	}
	lead.UpdatedAt = r.s.tick()
	r.s.leads[lead.ID] = stripLead(*lead)
	return nil
}

func (r *leadRepo) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.leads[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.s.leads, id)
	kept := r.s.activities[:0]
	for _, a := range r.s.activities {
		if !eqPtr(a.LeadID, id) {
			kept = append(kept, a)
		}
	}
	r.s.activities = kept
	return nil
}

func (r *leadRepo) GetByID(ctx context.Context, id string) (*domain.Lead, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	lead, ok := r.s.leads[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := r.s.hydrateLead(lead)
	return &out, nil
}

func (r *leadRepo) List(ctx context.Context, filter repository.LeadFilter) ([]domain.Lead, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Lead
	for _, lead := range r.s.leads {
		if !visibleLead(lead, filter.VisibleTo) {
			continue
		}
		if filter.Status != nil && lead.Status != *filter.Status {
			continue
		}
		if filter.Source != "" && !containsPtr(lead.Source, filter.Source) {
			continue
		}
		if filter.AssignedToID != nil && !eqPtr(lead.AssignedToID, *filter.AssignedToID) {
			continue
		}
		if filter.Search != "" && !contains(lead.FirstName, filter.Search) && !contains(lead.LastName, filter.Search) &&
			!contains(lead.Email, filter.Search) && !containsPtr(lead.Company, filter.Search) {
			continue
		}
		out = append(out, r.s.hydrateLead(lead))
	}
	sortByCreated(out, func(l domain.Lead) (int64, string) { return l.CreatedAt.UnixNano(), l.ID }, filter.Page)
	return paginate(out, filter.Page), len(out), nil
}

func (r *leadRepo) CountByStatus(ctx context.Context, visibleTo *string) (map[domain.LeadStatus]int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	counts := map[domain.LeadStatus]int{}
	for _, lead := range r.s.leads {
		if visibleLead(lead, visibleTo) {
			counts[lead.Status]++
		}
	}
	return counts, nil
}

func (r *leadRepo) SumEstimatedValue(ctx context.Context, visibleTo *string) (float64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var sum float64
	for _, lead := range r.s.leads {
		if visibleLead(lead, visibleTo) && lead.EstimatedValue != nil {
			sum += *lead.EstimatedValue
		}
	}
	return sum, nil
}

func (r *leadRepo) Sources(ctx context.Context) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	seen := map[string]struct{}{}
	var out []string
	for _, lead := range r.s.leads {
		if lead.Source == nil || *lead.Source == "" {
			continue
		}
		if _, ok := seen[*lead.Source]; !ok {
			seen[*lead.Source] = struct{}{}
			out = append(out, *lead.Source)
		}
	}
	sortStrings(out)
	return out, nil
}

func visibleLead(lead domain.Lead, visibleTo *string) bool {
	if visibleTo == nil {
		return true
	}
	return lead.CreatedByID == *visibleTo || eqPtr(lead.AssignedToID, *visibleTo)
}

func stripLead(lead domain.Lead) domain.Lead {
	lead.CreatedBy = nil
	lead.AssignedTo = nil
	return lead
}

// hydrateLead attaches creator and assignee references. Caller holds mu.
func (s *Store) hydrateLead(lead domain.Lead) domain.Lead {
	creator := lead.CreatedByID
	lead.CreatedBy = s.userRef(&creator)
	lead.AssignedTo = s.userRef(lead.AssignedToID)
	return lead
}

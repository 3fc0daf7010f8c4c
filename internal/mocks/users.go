package mocks

import (
	"context"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/repository"
)

type userRepo struct{ s *Store }

func (r *userRepo) Create(ctx context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("users.Create"); err != nil {
		return err
	}
	user.Email = strings.ToLower(user.Email)
	for _, existing := range r.s.users {
		if existing.Email == user.Email {
			return uniqueViolation("users_email_key")
		}
	}
	user.ID = newID()
	user.CreatedAt = r.s.tick()
	user.UpdatedAt = user.CreatedAt
	r.s.users[user.ID] = *user
	return nil
}

func (r *userRepo) Update(ctx context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("users.Update"); err != nil {
		return err
	}
	if _, ok := r.s.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	user.Email = strings.ToLower(user.Email)
	for id, existing := range r.s.users {
		if id != user.ID && existing.Email == user.Email {
			return uniqueViolation("users_email_key")
		}
	}
	user.UpdatedAt = r.s.tick()
	r.s.users[user.ID] = *user
	return nil
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	user, ok := r.s.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &user, nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, user := range r.s.users {
		if user.Email == email {
			u := user
			return &u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *userRepo) List(ctx context.Context, filter repository.UserFilter) ([]domain.User, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.User
	for _, user := range r.s.users {
		if filter.Role != nil && user.Role != *filter.Role {
			continue
		}
		if filter.IsActive != nil && user.IsActive != *filter.IsActive {
			continue
		}
		if filter.Search != "" && !contains(user.FirstName, filter.Search) && !contains(user.LastName, filter.Search) && !contains(user.Email, filter.Search) {
			continue
		}
		out = append(out, user)
	}
	sortByCreated(out, func(u domain.User) (int64, string) { return u.CreatedAt.UnixNano(), u.ID }, filter.Page)
	return paginate(out, filter.Page), len(out), nil
}

func (r *userRepo) ListAssignable(ctx context.Context) ([]domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.User
	for _, user := range r.s.users {
		if user.IsActive && user.Role.IsStaff() {
			out = append(out, user)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FirstName < out[j].FirstName })
	return out, nil
}

func (r *userRepo) Counts(ctx context.Context, id string) (domain.UserCounts, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var counts domain.UserCounts
	for _, lead := range r.s.leads {
		if lead.CreatedByID == id {
			counts.CreatedLeads++
		}
		if eqPtr(lead.AssignedToID, id) {
			counts.AssignedLeads++
		}
	}
	for _, claim := range r.s.claims {
		if eqPtr(claim.AssignedToID, id) {
			counts.AssignedClaims++
		}
	}
	return counts, nil
}

func (r *userRepo) Summary(ctx context.Context) (domain.UserSummary, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var summary domain.UserSummary
	byRole := map[domain.Role]int{}
	for _, user := range r.s.users {
		summary.Total++
		if user.IsActive {
			summary.Active++
		}
		byRole[user.Role]++
	}
	for _, role := range domain.Roles() {
		if n := byRole[role]; n > 0 {
			summary.ByRole = append(summary.ByRole, domain.RoleCount{Role: role, Count: n})
		}
	}
	return summary, nil
}

// userRef resolves a user id into an embedded reference. Caller holds mu.
func (s *Store) userRef(id *string) *domain.UserRef {
	if id == nil {
		return nil
	}
	user, ok := s.users[*id]
	if !ok {
		return nil
	}
	return user.Ref()
}

// sortByCreated orders items by creation time honouring the page's sort order.
func sortByCreated[T any](items []T, key func(T) (int64, string), page repository.Page) {
	asc := page.Normalize().SortOrder == "asc"
	sort.SliceStable(items, func(i, j int) bool {
		ti, idi := key(items[i])
		tj, idj := key(items[j])
		if ti == tj {
			if asc {
				return idi < idj
			}
			return idi > idj
		}
		if asc {
			return ti < tj
		}
		return ti > tj
	})
}

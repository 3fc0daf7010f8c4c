package mocks

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/repository"
)

type clientRepo struct{ s *Store }

func (r *clientRepo) Create(ctx context.Context, client *domain.Client) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("clients.Create"); err != nil {
		return err
	}
	if err := r.s.checkClientUnique(*client); err != nil {
		return err
	}
	client.Email = strings.ToLower(client.Email)
	client.ID = newID()
	client.CreatedAt = r.s.tick()
	client.UpdatedAt = client.CreatedAt
	stored := *client
	stored.Subscriptions = nil
	r.s.clients[client.ID] = stored
	return nil
}

func (r *clientRepo) Update(ctx context.Context, client *domain.Client) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("clients.Update"); err != nil {
		return err
	}
	if _, ok := r.s.clients[client.ID]; !ok {
		return pgx.ErrNoRows
	}
	if err := r.s.checkClientUnique(*client); err != nil {
		return err
	}
	client.Email = strings.ToLower(client.Email)
	client.UpdatedAt = r.s.tick()
	stored := *client
	stored.Subscriptions = nil
	r.s.clients[client.ID] = stored
	return nil
}

func (r *clientRepo) GetByID(ctx context.Context, id string) (*domain.Client, error) {
	return r.find(func(c domain.Client) bool { return c.ID == id })
}

func (r *clientRepo) GetByEmail(ctx context.Context, email string) (*domain.Client, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.find(func(c domain.Client) bool { return c.Email == email })
}

func (r *clientRepo) GetByUserID(ctx context.Context, userID string) (*domain.Client, error) {
	return r.find(func(c domain.Client) bool { return eqPtr(c.UserID, userID) })
}

func (r *clientRepo) find(match func(domain.Client) bool) (*domain.Client, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, client := range r.s.clients {
		if match(client) {
			c := client
			return &c, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *clientRepo) List(ctx context.Context, filter repository.ClientFilter) ([]domain.Client, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Client
	for _, client := range r.s.clients {
		if filter.IsActive != nil && client.IsActive != *filter.IsActive {
			continue
		}
		if filter.HasPortalAccess != nil && client.HasPortalAccess() != *filter.HasPortalAccess {
			continue
		}
		if filter.Search != "" && !contains(client.FirstName, filter.Search) && !contains(client.LastName, filter.Search) &&
			!contains(client.Email, filter.Search) && !containsPtr(client.Company, filter.Search) {
			continue
		}
		out = append(out, client)
	}
	sortByCreated(out, func(c domain.Client) (int64, string) { return c.CreatedAt.UnixNano(), c.ID }, filter.Page)
	return paginate(out, filter.Page), len(out), nil
}

func (r *clientRepo) Summary(ctx context.Context) (domain.ClientSummary, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var summary domain.ClientSummary
	for _, client := range r.s.clients {
		summary.Total++
		if client.IsActive {
			summary.Active++
		}
		if client.HasPortalAccess() {
			summary.WithPortal++
		}
		for _, sub := range r.s.subs {
			if sub.ClientID == client.ID && sub.IsActive {
				summary.WithSubscriptions++
				break
			}
		}
	}
	return summary, nil
}

// checkClientUnique mirrors the clients unique indexes. Caller holds mu.
func (s *Store) checkClientUnique(client domain.Client) error {
	email := strings.ToLower(client.Email)
	for id, existing := range s.clients {
		if id == client.ID {
			continue
		}
		if existing.Email == email {
			return uniqueViolation("clients_email_key")
		}
		if client.UserID != nil && eqPtr(existing.UserID, *client.UserID) {
			return uniqueViolation("clients_user_id_key")
		}
		if client.ConvertedFromID != nil && eqPtr(existing.ConvertedFromID, *client.ConvertedFromID) {
			return uniqueViolation("clients_converted_from_id_key")
		}
	}
	return nil
}

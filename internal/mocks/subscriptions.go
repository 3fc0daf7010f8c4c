package mocks

import (
	"context"
	"sort"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/crm-service/internal/domain"
)

type subscriptionRepo struct{ s *Store }

func subKey(clientID, productID string) string {
	return clientID + "|" + productID
}

func (r *subscriptionRepo) Create(ctx context.Context, sub *domain.ClientProduct) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("subscriptions.Create"); err != nil {
		return err
	}
	if _, ok := r.s.clients[sub.ClientID]; !ok {
		return foreignKeyViolation("client_products_client_id_fkey")
	}
	if _, ok := r.s.products[sub.ProductID]; !ok {
		return foreignKeyViolation("client_products_product_id_fkey")
	}
	key := subKey(sub.ClientID, sub.ProductID)
	if _, ok := r.s.subs[key]; ok {
		return uniqueViolation("client_products_subscription_key")
	}
	sub.ID = newID()
	sub.CreatedAt = r.s.tick()
	sub.UpdatedAt = sub.CreatedAt
	if sub.StartDate.IsZero() {
		sub.StartDate = sub.CreatedAt
	}
	r.s.subs[key] = stripSub(*sub)
	*sub = r.s.hydrateSub(r.s.subs[key])
	return nil
}

func (r *subscriptionRepo) Update(ctx context.Context, sub *domain.ClientProduct) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("subscriptions.Update"); err != nil {
		return err
	}
	key := subKey(sub.ClientID, sub.ProductID)
	if _, ok := r.s.subs[key]; !ok {
		return pgx.ErrNoRows
	}
	sub.UpdatedAt = r.s.tick()
	r.s.subs[key] = stripSub(*sub)
	*sub = r.s.hydrateSub(r.s.subs[key])
	return nil
}

func (r *subscriptionRepo) Delete(ctx context.Context, clientID, productID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := subKey(clientID, productID)
	if _, ok := r.s.subs[key]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.s.subs, key)
	return nil
}

func (r *subscriptionRepo) Get(ctx context.Context, clientID, productID string) (*domain.ClientProduct, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sub, ok := r.s.subs[subKey(clientID, productID)]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := r.s.hydrateSub(sub)
	return &out, nil
}

func (r *subscriptionRepo) ListByClient(ctx context.Context, clientID string, activeOnly bool) ([]domain.ClientProduct, error) {
	return r.filter(func(sub domain.ClientProduct) bool {
		return sub.ClientID == clientID && (!activeOnly || sub.IsActive)
	}, newestFirst)
}

func (r *subscriptionRepo) ListByProduct(ctx context.Context, productID string) ([]domain.ClientProduct, error) {
	return r.filter(func(sub domain.ClientProduct) bool { return sub.ProductID == productID }, newestFirst)
}

func (r *subscriptionRepo) ListActive(ctx context.Context) ([]domain.ClientProduct, error) {
	return r.filter(func(sub domain.ClientProduct) bool { return sub.IsActive }, func(a, b domain.ClientProduct) bool {
		if a.ClientID == b.ClientID {
			return a.ProductID < b.ProductID
		}
		return a.ClientID < b.ClientID
	})
}

func (r *subscriptionRepo) CountActiveByProduct(ctx context.Context, productID string) (int, error) {
	subs, err := r.filter(func(sub domain.ClientProduct) bool { return sub.ProductID == productID && sub.IsActive }, newestFirst)
	return len(subs), err
}

func (r *subscriptionRepo) filter(match func(domain.ClientProduct) bool, less func(a, b domain.ClientProduct) bool) ([]domain.ClientProduct, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.ClientProduct
	for _, sub := range r.s.subs {
		if match(sub) {
			out = append(out, r.s.hydrateSub(sub))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out, nil
}

func newestFirst(a, b domain.ClientProduct) bool {
	if a.CreatedAt.Equal(b.CreatedAt) {
		return a.ID > b.ID
	}
	return a.CreatedAt.After(b.CreatedAt)
}

func stripSub(sub domain.ClientProduct) domain.ClientProduct {
	sub.Product = nil
	sub.Client = nil
	return sub
}

// hydrateSub attaches product and client references. Caller holds mu.
func (s *Store) hydrateSub(sub domain.ClientProduct) domain.ClientProduct {
	if product, ok := s.products[sub.ProductID]; ok {
		p := product
		sub.Product = &p
	}
	if client, ok := s.clients[sub.ClientID]; ok {
		sub.Client = client.Ref()
	}
	return sub
}

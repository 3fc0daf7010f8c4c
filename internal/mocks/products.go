package mocks

import (
	"context"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/repository"
)

type productRepo struct{ s *Store }

func (r *productRepo) Create(ctx context.Context, product *domain.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("products.Create"); err != nil {
		return err
	}
	if err := r.s.checkProductName(*product); err != nil {
		return err
	}
	product.ID = newID()
	product.CreatedAt = r.s.tick()
	product.UpdatedAt = product.CreatedAt
	r.s.products[product.ID] = *product
	return nil
}

func (r *productRepo) Update(ctx context.Context, product *domain.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("products.Update"); err != nil {
		return err
	}
	if _, ok := r.s.products[product.ID]; !ok {
		return pgx.ErrNoRows
	}
	if err := r.s.checkProductName(*product); err != nil {
		return err
	}
	product.UpdatedAt = r.s.tick()
	r.s.products[product.ID] = *product
	return nil
}

func (r *productRepo) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	product, ok := r.s.products[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &product, nil
}

func (r *productRepo) GetByName(ctx context.Context, name string) (*domain.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, product := range r.s.products {
		if strings.EqualFold(product.Name, strings.TrimSpace(name)) {
			p := product
			return &p, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *productRepo) List(ctx context.Context, filter repository.ProductFilter) ([]domain.Product, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Product
	for _, product := range r.s.products {
		if filter.IsActive != nil && product.IsActive != *filter.IsActive {
			continue
		}
		if filter.BillingCycle != nil && product.BillingCycle != *filter.BillingCycle {
			continue
		}
		if filter.Search != "" && !contains(product.Name, filter.Search) && !containsPtr(product.Description, filter.Search) {
			continue
		}
		out = append(out, product)
	}
	sortProducts(out)
	return paginate(out, filter.Page), len(out), nil
}

func (r *productRepo) ListActive(ctx context.Context) ([]domain.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Product
	for _, product := range r.s.products {
		if product.IsActive {
			out = append(out, product)
		}
	}
	sortProducts(out)
	return out, nil
}

func sortProducts(products []domain.Product) {
	sort.Slice(products, func(i, j int) bool {
		return strings.ToLower(products[i].Name) < strings.ToLower(products[j].Name)
	})
}

// checkProductName mirrors products_name_key. Caller holds mu.
func (s *Store) checkProductName(product domain.Product) error {
	for id, existing := range s.products {
		if id != product.ID && strings.EqualFold(existing.Name, product.Name) {
			return uniqueViolation("products_name_key")
		}
	}
	return nil
}

func sortStrings(values []string) {
	sort.Strings(values)
}

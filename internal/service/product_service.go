package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/spec-kit/crm-service/internal/authz"
	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/repository"
	apperrors "github.com/spec-kit/crm-service/pkg/util"
)

// ProductService manages the product catalogue.
type ProductService struct {
	products      repository.ProductRepository
	subscriptions repository.SubscriptionRepository
}

type ProductDependencies struct {
	ProductRepo      repository.ProductRepository
	SubscriptionRepo repository.SubscriptionRepository
}

type ProductCreateInput struct {
	Name         string
	Description  *string
	Price        float64
	BillingCycle domain.BillingCycle
	IsActive     *bool
}

type ProductUpdateInput struct {
	Name         *string
	Description  domain.Nullable[string]
	Price        *float64
	BillingCycle *domain.BillingCycle
	IsActive     *bool
}

// ProductDetail is a product with the number of active subscriptions referencing it.
type ProductDetail struct {
	domain.Product
	ActiveSubscriptions int
}

func NewProductService(deps ProductDependencies) *ProductService {
	return &ProductService{products: deps.ProductRepo, subscriptions: deps.SubscriptionRepo}
}

func (s *ProductService) List(ctx context.Context, actor domain.Identity, filter repository.ProductFilter) ([]domain.Product, int, error) {
	if err := authz.RequireStaff(actor); err != nil {
		return nil, 0, err
	}
	return s.products.List(ctx, filter)
}

// ListActive returns every sellable product ordered by name.
func (s *ProductService) ListActive(ctx context.Context, actor domain.Identity) ([]domain.Product, error) {
	if err := authz.RequireStaff(actor); err != nil {
		return nil, err
	}
	return s.products.ListActive(ctx)
}

func (s *ProductService) Get(ctx context.Context, actor domain.Identity, id string) (*ProductDetail, error) {
	if err := authz.RequireStaff(actor); err != nil {
		return nil, err
	}
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "Product", id)
	}
	active, err := s.subscriptions.CountActiveByProduct(ctx, product.ID)
	if err != nil {
		return nil, err
	}
	return &ProductDetail{Product: *product, ActiveSubscriptions: active}, nil
}

func (s *ProductService) Create(ctx context.Context, actor domain.Identity, input ProductCreateInput) (*ProductDetail, error) {
	if err := authz.RequireAnyRole(actor, domain.RoleAdmin); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	if err := s.ensureNameFree(ctx, name, ""); err != nil {
		return nil, err
	}
	if err := validateProduct(input.Price, input.BillingCycle); err != nil {
		return nil, err
	}
	product := &domain.Product{
		Name:         name,
		Description:  optional(input.Description),
		Price:        input.Price,
		BillingCycle: input.BillingCycle,
		IsActive:     true,
	}
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}
	if err := s.products.Create(ctx, product); err != nil {
		return nil, err
	}
	return &ProductDetail{Product: *product}, nil
}

func (s *ProductService) Update(ctx context.Context, actor domain.Identity, id string, input ProductUpdateInput) (*ProductDetail, error) {
	if err := authz.RequireAnyRole(actor, domain.RoleAdmin); err != nil {
		return nil, err
	}
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "Product", id)
	}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if !strings.EqualFold(name, product.Name) {
			if err := s.ensureNameFree(ctx, name, product.ID); err != nil {
				return nil, err
			}
		}
		product.Name = name
	}
	applyText(input.Description, &product.Description)
	if input.Price != nil {
		product.Price = *input.Price
	}
	if input.BillingCycle != nil {
		product.BillingCycle = *input.BillingCycle
	}
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}
	if err := validateProduct(product.Price, product.BillingCycle); err != nil {
		return nil, err
	}
	if err := s.products.Update(ctx, product); err != nil {
		return nil, err
	}
	return s.Get(ctx, actor, product.ID)
}

// Delete deactivates a product that no active subscription references.
func (s *ProductService) Delete(ctx context.Context, actor domain.Identity, id string) error {
	if err := authz.RequireAnyRole(actor, domain.RoleAdmin); err != nil {
		return err
	}
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return notFound(err, "Product", id)
	}
	active, err := s.subscriptions.CountActiveByProduct(ctx, product.ID)
	if err != nil {
		return err
	}
	if active > 0 {
		return apperrors.NewBadRequest(fmt.Sprintf(
			"Cannot delete product with %d active subscription(s). Deactivate it instead.", active))
	}
	product.IsActive = false
	return s.products.Update(ctx, product)
}

// UsageStats reports how many clients use a product and what it earns per month.
func (s *ProductService) UsageStats(ctx context.Context, actor domain.Identity, id string) (*domain.ProductUsage, error) {
	if err := authz.RequireStaff(actor); err != nil {
		return nil, err
	}
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "Product", id)
	}
	subs, err := s.subscriptions.ListByProduct(ctx, product.ID)
	if err != nil {
		return nil, err
	}
	usage := domain.ProductUsage{TotalClients: len(subs)}
	var active []domain.ClientProduct
	for _, sub := range subs {
		if !sub.IsActive {
			continue
		}
		if sub.Product == nil {
			sub.Product = product
		}
		active = append(active, sub)
	}
	usage.ActiveClients = len(active)
	usage.MonthlyRevenue = monthlyRecurring(active)
	return &usage, nil
}

func (s *ProductService) ensureNameFree(ctx context.Context, name, selfID string) error {
	existing, err := s.products.GetByName(ctx, name)
	switch {
	case err == nil && existing.ID != selfID:
		return apperrors.NewBadRequest("A product with this name already exists")
	case err != nil && !isNotFound(err):
		return err
	}
	return nil
}

func validateProduct(price float64, cycle domain.BillingCycle) error {
	if price < 0 {
		return apperrors.NewValidationError("Price must be zero or greater", map[string]any{"field": "price"})
	}
	if !cycle.Valid() {
		return apperrors.NewValidationError("Invalid billing cycle", map[string]any{"field": "billingCycle"})
	}
	return nil
}

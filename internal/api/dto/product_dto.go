package dto

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/repository"
	"github.com/spec-kit/crm-service/internal/service"
	apperrors "github.com/spec-kit/crm-service/pkg/util"
)

type ProductResponse struct {
	ID           string              `json:"id"`
	Name         string              `json:"name"`
	Description  *string             `json:"description"`
	Price        float64             `json:"price"`
	BillingCycle domain.BillingCycle `json:"billingCycle"`
	IsActive     bool                `json:"isActive"`
	CreatedAt    time.Time           `json:"createdAt"`
	UpdatedAt    time.Time           `json:"updatedAt"`
}

type ProductDetailResponse struct {
	ProductResponse
	ActiveSubscriptions int `json:"activeSubscriptions"`
}

type CreateProductRequest struct {
	Name         string              `json:"name"`
	Description  *string             `json:"description"`
	Price        float64             `json:"price"`
	BillingCycle domain.BillingCycle `json:"billingCycle"`
	IsActive     *bool               `json:"isActive"`
}

func (r CreateProductRequest) Validate() error {
	var v validator
	v.required("name", r.Name)
	v.maxLen("name", r.Name, 200)
	v.check(r.Price >= 0, "price", "price must be zero or greater")
	v.check(r.BillingCycle == "" || r.BillingCycle.Valid(), "billingCycle", "Invalid billing cycle")
	return v.err()
}

func (r CreateProductRequest) Input() service.ProductCreateInput {
	cycle := r.BillingCycle
	if cycle == "" {
		cycle = domain.BillingMonthly
	}
	return service.ProductCreateInput{
		Name:         r.Name,
		Description:  r.Description,
		Price:        r.Price,
		BillingCycle: cycle,
		IsActive:     r.IsActive,
	}
}

type UpdateProductRequest struct {
	Name         *string                 `json:"name"`
	Description  domain.Nullable[string] `json:"description"`
	Price        *float64                `json:"price"`
	BillingCycle *domain.BillingCycle    `json:"billingCycle"`
	IsActive     *bool                   `json:"isActive"`
}

func (r UpdateProductRequest) Validate() error {
	var v validator
	if r.Name != nil {
		v.required("name", *r.Name)
	}
	v.check(r.Price == nil || *r.Price >= 0, "price", "price must be zero or greater")
	v.check(r.BillingCycle == nil || r.BillingCycle.Valid(), "billingCycle", "Invalid billing cycle")
	return v.err()
}

func (r UpdateProductRequest) Input() service.ProductUpdateInput {
	return service.ProductUpdateInput{
		Name:         r.Name,
		Description:  r.Description,
		Price:        r.Price,
		BillingCycle: r.BillingCycle,
		IsActive:     r.IsActive,
	}
}

// ParseProductQuery reads GET /products filters. Products sort by name ascending by default.
func ParseProductQuery(c *fiber.Ctx) (repository.ProductFilter, error) {
	filter := repository.ProductFilter{
		Search: strings.TrimSpace(c.Query("search")),
		Page:   ParsePage(c, "asc", "name", "price", "createdAt"),
	}
	if filter.Page.SortBy == "" {
		filter.Page.SortBy = "name"
	}
	var err error
	if filter.IsActive, err = QueryBool(c, "isActive"); err != nil {
		return filter, err
	}
	if raw := QueryString(c, "billingCycle"); raw != nil {
		cycle := domain.BillingCycle(strings.ToLower(*raw))
		if !cycle.Valid() {
			return filter, apperrors.NewValidationError("Invalid billing cycle", map[string]any{"field": "billingCycle"})
		}
		filter.BillingCycle = &cycle
	}
	return filter, nil
}

func NewProductResponse(p *domain.Product) ProductResponse {
	return ProductResponse{
		ID:           p.ID,
		Name:         p.Name,
		Description:  p.Description,
		Price:        p.Price,
		BillingCycle: p.BillingCycle,
		IsActive:     p.IsActive,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func NewProductResponses(products []domain.Product) []ProductResponse {
	out := make([]ProductResponse, 0, len(products))
	for i := range products {
		out = append(out, NewProductResponse(&products[i]))
	}
	return out
}

func NewProductDetailResponse(detail *service.ProductDetail) ProductDetailResponse {
	return ProductDetailResponse{
		ProductResponse:     NewProductResponse(&detail.Product),
		ActiveSubscriptions: detail.ActiveSubscriptions,
	}
}

package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/crm-service/internal/api/dto"
	"github.com/spec-kit/crm-service/internal/service"
)

// ProductsHandler exposes the product catalogue.
type ProductsHandler struct {
	products *service.ProductService
}

func NewProductsHandler(productService *service.ProductService) *ProductsHandler {
	return &ProductsHandler{products: productService}
}

// List GET /products.
func (h *ProductsHandler) List(c *fiber.Ctx) error {
	actor, err := identity(c)
	if err != nil {
		return err
	}
	filter, err := dto.ParseProductQuery(c)
	if err != nil {
		return err
	}
	products, total, err := h.products.List(c.UserContext(), actor, filter)
	if err != nil {
		return err
	}
	return paginated(c, "Products retrieved", dto.NewProductResponses(products), filter.Page, total)
}

// Active GET /products/active.
func (h *ProductsHandler) Active(c *fiber.Ctx) error {
	actor, err := identity(c)
	if err != nil {
		return err
	}
	products, err := h.products.ListActive(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return ok(c, "Active products retrieved", dto.NewProductResponses(products))
}

// Get GET /products/:id.
func (h *ProductsHandler) Get(c *fiber.Ctx) error {
	actor, err := identity(c)
	if err != nil {
		return err
	}
	detail, err := h.products.Get(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return ok(c, "Product retrieved", dto.NewProductDetailResponse(detail))
}

// Stats GET /products/:id/stats.
func (h *ProductsHandler) Stats(c *fiber.Ctx) error {
	actor, err := identity(c)
	if err != nil {
		return err
	}
	usage, err := h.products.UsageStats(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return ok(c, "Product statistics retrieved", usage)
}

// Create POST /products.
func (h *ProductsHandler) Create(c *fiber.Ctx) error {
	actor, err := identity(c)
	if err != nil {
		return err
	}
	var req dto.CreateProductRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	detail, err := h.products.Create(c.UserContext(), actor, req.Input())
	if err != nil {
		return err
	}
	return created(c, "Product created", dto.NewProductDetailResponse(detail))
}

// Update PUT /products/:id.
func (h *ProductsHandler) Update(c *fiber.Ctx) error {
	actor, err := identity(c)
	if err != nil {
		return err
	}
	var req dto.UpdateProductRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	detail, err := h.products.Update(c.UserContext(), actor, c.Params("id"), req.Input())
	if err != nil {
		return err
	}
	return ok(c, "Product updated", dto.NewProductDetailResponse(detail))
}

// Delete DELETE /products/:id.
func (h *ProductsHandler) Delete(c *fiber.Ctx) error {
	actor, err := identity(c)
	if err != nil {
		return err
	}
	if err := h.products.Delete(c.UserContext(), actor, c.Params("id")); err != nil {
		return err
	}
	return ok(c, "Product deactivated", nil)
}

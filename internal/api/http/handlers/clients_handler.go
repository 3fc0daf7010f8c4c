package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/crm-service/internal/api/dto"
	"github.com/spec-kit/crm-service/internal/service"
)

// ClientsHandler exposes client records, subscriptions and income.
type ClientsHandler struct {
	clients *service.ClientService
}

func NewClientsHandler(clientService *service.ClientService) *ClientsHandler {
	return &ClientsHandler{clients: clientService}
}

// List GET /clients.
func (h *ClientsHandler) List(c *fiber.Ctx) error {
	actor, err := identity(c)
	if err != nil {
		return err
	}
	filter, err := dto.ParseClientQuery(c)
	if err != nil {
		return err
	}
	clients, total, err := h.clients.List(c.UserContext(), actor, filter)
	if err != nil {
		return err
	}
	return paginated(c, "Clients retrieved", dto.NewClientResponses(clients), filter.Page, total)
}

// IncomeReport GET /clients/income-report.
func (h *ClientsHandler) IncomeReport(c *fiber.Ctx) error {
	actor, err := identity(c)
	if err != nil {
		return err
	}
	report, err := h.clients.IncomeReport(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return ok(c, "Income report retrieved", report)
}

// Get GET /clients/:id.
func (h *ClientsHandler) Get(c *fiber.Ctx) error {
	actor, err := identity(c)
	if err != nil {
		return err
	}
	client, err := h.clients.Get(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return ok(c, "Client retrieved", dto.NewClientResponse(client))
}

// Create POST /clients.
func (h *ClientsHandler) Create(c *fiber.Ctx) error {
	actor, err := identity(c)
	if err != nil {
		return err
	}
	var req dto.CreateClientRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	client, err := h.clients.Create(c.UserContext(), actor, req.Input())
	if err != nil {
		return err
	}
	return created(c, "Client created", dto.NewClientResponse(client))
}

// Update PUT /clients/:id.
func (h *ClientsHandler) Update(c *fiber.Ctx) error {
	actor, err := identity(c)
	if err != nil {
		return err
	}
	var req dto.UpdateClientRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	client, err := h.clients.Update(c.UserContext(), actor, c.Params("id"), req.Input())
	if err != nil {
		return err
	}
	return ok(c, "Client updated", dto.NewClientResponse(client))
}

// Delete DELETE /clients/:id.
func (h *ClientsHandler) Delete(c *fiber.Ctx) error {
	actor, err := identity(c)
	if err != nil {
		return err
	}
	if err := h.clients.Delete(c.UserContext(), actor, c.Params("id")); err != nil {
		return err
	}
	return ok(c, "Client deactivated", nil)
}

// AddProduct POST /clients/:id/products.
func (h *ClientsHandler) AddProduct(c *fiber.Ctx) error {
	actor, err := identity(c)
	if err != nil {
		return err
	}
	var req dto.AddProductRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	client, err := h.clients.AddProduct(c.UserContext(), actor, c.Params("id"), req.Input())
	if err != nil {
		return err
	}
	return created(c, "Product added to client", dto.NewClientResponse(client))
}

// UpdateProduct PUT /clients/:id/products/:productId.
func (h *ClientsHandler) UpdateProduct(c *fiber.Ctx) error {
	actor, err := identity(c)
	if err != nil {
		return err
	}
	var req dto.UpdateSubscriptionRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	client, err := h.clients.UpdateProduct(c.UserContext(), actor, c.Params("id"), c.Params("productId"), req.Input())
	if err != nil {
		return err
	}
	return ok(c, "Client product updated", dto.NewClientResponse(client))
}

// RemoveProduct DELETE /clients/:id/products/:productId.
func (h *ClientsHandler) RemoveProduct(c *fiber.Ctx) error {
	actor, err := identity(c)
	if err != nil {
		return err
	}
	client, err := h.clients.RemoveProduct(c.UserContext(), actor, c.Params("id"), c.Params("productId"))
	if err != nil {
		return err
	}
	return ok(c, "Product removed from client", dto.NewClientResponse(client))
}

// Income GET /clients/:id/income.
func (h *ClientsHandler) Income(c *fiber.Ctx) error {
	actor, err := identity(c)
	if err != nil {
		return err
	}
	income, err := h.clients.Income(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return ok(c, "Client income retrieved", income)
}

// CreatePortalAccount POST /clients/:id/create-portal-account.
func (h *ClientsHandler) CreatePortalAccount(c *fiber.Ctx) error {
	actor, err := identity(c)
	if err != nil {
		return err
	}
	var req dto.PortalAccountRequest
	if err := dto.ParseBody(c, &req); err != nil {
		return err
	}
	client, err := h.clients.CreatePortalAccount(c.UserContext(), actor, c.Params("id"), req.Password)
	if err != nil {
		return err
	}
	return created(c, "Portal account created", dto.NewClientResponse(client))
}

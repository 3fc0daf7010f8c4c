package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/crm-service/internal/service"
)

// DashboardHandler exposes the role landing views.
type DashboardHandler struct {
	dashboard *service.DashboardService
}

func NewDashboardHandler(dashboardService *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboardService}
}

// Get GET /dashboard picks the view from the caller's role.
func (h *DashboardHandler) Get(c *fiber.Ctx) error {
	actor, err := identity(c)
	if err != nil {
		return err
	}
	view, err := h.dashboard.ForRole(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return ok(c, "Dashboard retrieved", view)
}

// Admin GET /dashboard/admin.
func (h *DashboardHandler) Admin(c *fiber.Ctx) error {
	actor, err := identity(c)
	if err != nil {
		return err
	}
	view, err := h.dashboard.Admin(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return ok(c, "Dashboard retrieved", view)
}

// Supervisor GET /dashboard/supervisor.
func (h *DashboardHandler) Supervisor(c *fiber.Ctx) error {
	actor, err := identity(c)
	if err != nil {
		return err
	}
	view, err := h.dashboard.Supervisor(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return ok(c, "Dashboard retrieved", view)
}

// Operator GET /dashboard/operator.
func (h *DashboardHandler) Operator(c *fiber.Ctx) error {
	actor, err := identity(c)
	if err != nil {
		return err
	}
	view, err := h.dashboard.Operator(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return ok(c, "Dashboard retrieved", view)
}

// Client GET /dashboard/client.
func (h *DashboardHandler) Client(c *fiber.Ctx) error {
	actor, err := identity(c)
	if err != nil {
		return err
	}
	view, err := h.dashboard.Client(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return ok(c, "Dashboard retrieved", view)
}

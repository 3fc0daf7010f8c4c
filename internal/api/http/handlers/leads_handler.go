package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/crm-service/internal/api/dto"
	"github.com/spec-kit/crm-service/internal/service"
)

// LeadsHandler exposes the sales pipeline.
type LeadsHandler struct {
	leads *service.LeadService
}

func NewLeadsHandler(leadService *service.LeadService) *LeadsHandler {
	return &LeadsHandler{leads: leadService}
}

// List GET /leads.
func (h *LeadsHandler) List(c *fiber.Ctx) error {
	actor, err := identity(c)
	if err != nil {
		return err
	}
	input, err := dto.ParseLeadQuery(c)
	if err != nil {
		return err
	}
	leads, total, err := h.leads.List(c.UserContext(), actor, input)
	if err != nil {
		return err
	}
	return paginated(c, "Leads retrieved", dto.NewLeadResponses(leads), input.Page, total)
}

// Stats GET /leads/stats.
func (h *LeadsHandler) Stats(c *fiber.Ctx) error {
	actor, err := identity(c)
	if err != nil {
		return err
	}
	stats, err := h.leads.Stats(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return ok(c, "Lead statistics retrieved", stats)
}

// Sources GET /leads/sources.
func (h *LeadsHandler) Sources(c *fiber.Ctx) error {
	actor, err := identity(c)
	if err != nil {
		return err
	}
	sources, err := h.leads.Sources(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return ok(c, "Lead sources retrieved", sources)
}

// Get GET /leads/:id.
func (h *LeadsHandler) Get(c *fiber.Ctx) error {
	actor, err := identity(c)
	if err != nil {
		return err
	}
	lead, err := h.leads.Get(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return ok(c, "Lead retrieved", dto.NewLeadResponse(lead))
}

// Create POST /leads.
func (h *LeadsHandler) Create(c *fiber.Ctx) error {
	actor, err := identity(c)
	if err != nil {
		return err
	}
	var req dto.CreateLeadRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	lead, err := h.leads.Create(c.UserContext(), actor, req.Input())
	if err != nil {
		return err
	}
	return created(c, "Lead created", dto.NewLeadResponse(lead))
}

// Update PUT /leads/:id.
func (h *LeadsHandler) Update(c *fiber.Ctx) error {
	actor, err := identity(c)
	if err != nil {
		return err
	}
	var req dto.UpdateLeadRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	lead, err := h.leads.Update(c.UserContext(), actor, c.Params("id"), req.Input())
	if err != nil {
		return err
	}
	return ok(c, "Lead updated", dto.NewLeadResponse(lead))
}

// Delete DELETE /leads/:id.
func (h *LeadsHandler) Delete(c *fiber.Ctx) error {
	actor, err := identity(c)
	if err != nil {
		return err
	}
	if err := h.leads.Delete(c.UserContext(), actor, c.Params("id")); err != nil {
		return err
	}
	return ok(c, "Lead deleted", nil)
}

// UpdateStatus PATCH /leads/:id/status.
func (h *LeadsHandler) UpdateStatus(c *fiber.Ctx) error {
	actor, err := identity(c)
	if err != nil {
		return err
	}
	var req dto.LeadStatusRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	lead, err := h.leads.UpdateStatus(c.UserContext(), actor, c.Params("id"), req.Status)
	if err != nil {
		return err
	}
	return ok(c, "Lead status updated", dto.NewLeadResponse(lead))
}

// Assign PATCH /leads/:id/assign.
func (h *LeadsHandler) Assign(c *fiber.Ctx) error {
	actor, err := identity(c)
	if err != nil {
		return err
	}
	var req dto.AssignRequest
	if err := dto.ParseBody(c, &req); err != nil {
		return err
	}
	lead, err := h.leads.Assign(c.UserContext(), actor, c.Params("id"), req.AssigneeID())
	if err != nil {
		return err
	}
	return ok(c, "Lead assignment updated", dto.NewLeadResponse(lead))
}

// Convert POST /leads/:id/convert.
func (h *LeadsHandler) Convert(c *fiber.Ctx) error {
	actor, err := identity(c)
	if err != nil {
		return err
	}
	var req dto.ConvertLeadRequest
	if err := dto.ParseBody(c, &req); err != nil {
		return err
	}
	conversion, err := h.leads.Convert(c.UserContext(), actor, c.Params("id"), req.Input())
	if err != nil {
		return err
	}
	return created(c, "Lead converted to client", dto.NewConversionResponse(conversion))
}

package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/crm-service/internal/api/dto"
	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/service"
)

// PortalHandler exposes the client-facing mirror of the API.
type PortalHandler struct {
	portal *service.PortalService
}

func NewPortalHandler(portalService *service.PortalService) *PortalHandler {
	return &PortalHandler{portal: portalService}
}

// Dashboard GET /portal/dashboard.
func (h *PortalHandler) Dashboard(c *fiber.Ctx) error {
	actor, err := identity(c)
	if err != nil {
		return err
	}
	dashboard, err := h.portal.Dashboard(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return ok(c, "Dashboard retrieved", dashboard)
}

// Profile GET /portal/profile.
func (h *PortalHandler) Profile(c *fiber.Ctx) error {
	actor, err := identity(c)
	if err != nil {
		return err
	}
	client, err := h.portal.Profile(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return ok(c, "Profile retrieved", dto.NewClientResponse(client))
}

// UpdateProfile PUT /portal/profile.
func (h *PortalHandler) UpdateProfile(c *fiber.Ctx) error {
	actor, err := identity(c)
	if err != nil {
		return err
	}
	var req dto.UpdatePortalProfileRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	client, err := h.portal.UpdateProfile(c.UserContext(), actor, req.Input())
	if err != nil {
		return err
	}
	return ok(c, "Profile updated", dto.NewClientResponse(client))
}

// Subscriptions GET /portal/subscriptions.
func (h *PortalHandler) Subscriptions(c *fiber.Ctx) error {
	actor, err := identity(c)
	if err != nil {
		return err
	}
	subs, err := h.portal.Subscriptions(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return ok(c, "Subscriptions retrieved", dto.NewSubscriptionResponses(subs))
}

// Claims GET /portal/claims.
func (h *PortalHandler) Claims(c *fiber.Ctx) error {
	actor, err := identity(c)
	if err != nil {
		return err
	}
	input, err := dto.ParseClaimQuery(c)
	if err != nil {
		return err
	}
	claims, total, err := h.portal.Claims(c.UserContext(), actor, input)
	if err != nil {
		return err
	}
	return paginated(c, "Claims retrieved", dto.NewClaimResponses(claims), input.Page, total)
}

// Claim GET /portal/claims/:id.
func (h *PortalHandler) Claim(c *fiber.Ctx) error {
	actor, err := identity(c)
	if err != nil {
		return err
	}
	claim, err := h.portal.Claim(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return ok(c, "Claim retrieved", dto.NewClaimResponse(claim))
}

// CreateClaim POST /portal/claims.
func (h *PortalHandler) CreateClaim(c *fiber.Ctx) error {
	actor, err := identity(c)
	if err != nil {
		return err
	}
	var req dto.PortalClaimRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	claim, err := h.portal.CreateClaim(c.UserContext(), actor, req.Input())
	if err != nil {
		return err
	}
	return created(c, "Claim submitted", dto.NewClaimResponse(claim))
}

// AddAttachment POST /portal/claims/:id/attachments.
func (h *PortalHandler) AddAttachment(c *fiber.Ctx) error {
	actor, err := identity(c)
	if err != nil {
		return err
	}
	return receiveUpload(c, func(upload service.Upload) (*domain.ClaimAttachment, error) {
		return h.portal.AddAttachment(c.UserContext(), actor, c.Params("id"), upload)
	})
}

// DownloadAttachment GET /portal/claims/:id/attachments/:attachmentId.
func (h *PortalHandler) DownloadAttachment(c *fiber.Ctx) error {
	actor, err := identity(c)
	if err != nil {
		return err
	}
	attachment, body, err := h.portal.OpenAttachment(c.UserContext(), actor, c.Params("id"), c.Params("attachmentId"))
	if err != nil {
		return err
	}
	return sendAttachment(c, attachment, body)
}

package handlers

import (
	"io"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/crm-service/internal/api/dto"
	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/service"
	apperrors "github.com/spec-kit/crm-service/pkg/util"
)

const uploadField = "file"

// ClaimsHandler exposes staff claim endpoints.
type ClaimsHandler struct {
	claims *service.ClaimService
}

func NewClaimsHandler(claimService *service.ClaimService) *ClaimsHandler {
	return &ClaimsHandler{claims: claimService}
}

// List GET /claims.
func (h *ClaimsHandler) List(c *fiber.Ctx) error {
	actor, err := identity(c)
	if err != nil {
		return err
	}
	input, err := dto.ParseClaimQuery(c)
	if err != nil {
		return err
	}
	claims, total, err := h.claims.List(c.UserContext(), actor, input)
	if err != nil {
		return err
	}
	return paginated(c, "Claims retrieved", dto.NewClaimResponses(claims), input.Page, total)
}

// Stats GET /claims/stats.
func (h *ClaimsHandler) Stats(c *fiber.Ctx) error {
	actor, err := identity(c)
	if err != nil {
		return err
	}
	stats, err := h.claims.Stats(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return ok(c, "Claim statistics retrieved", stats)
}

// Get GET /claims/:id.
func (h *ClaimsHandler) Get(c *fiber.Ctx) error {
	actor, err := identity(c)
	if err != nil {
		return err
	}
	claim, err := h.claims.Get(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return ok(c, "Claim retrieved", dto.NewClaimResponse(claim))
}

// Create POST /claims.
func (h *ClaimsHandler) Create(c *fiber.Ctx) error {
	actor, err := identity(c)
	if err != nil {
		return err
	}
	var req dto.CreateClaimRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	claim, err := h.claims.Create(c.UserContext(), actor, req.Input())
	if err != nil {
		return err
	}
	return created(c, "Claim created", dto.NewClaimResponse(claim))
}

// Update PUT /claims/:id.
func (h *ClaimsHandler) Update(c *fiber.Ctx) error {
	actor, err := identity(c)
	if err != nil {
		return err
	}
	var req dto.UpdateClaimRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	claim, err := h.claims.Update(c.UserContext(), actor, c.Params("id"), req.Input())
	if err != nil {
		return err
	}
	return ok(c, "Claim updated", dto.NewClaimResponse(claim))
}

// Delete DELETE /claims/:id.
func (h *ClaimsHandler) Delete(c *fiber.Ctx) error {
	actor, err := identity(c)
	if err != nil {
		return err
	}
	if err := h.claims.Delete(c.UserContext(), actor, c.Params("id")); err != nil {
		return err
	}
	return ok(c, "Claim deleted", nil)
}

// UpdateStatus PATCH /claims/:id/status.
func (h *ClaimsHandler) UpdateStatus(c *fiber.Ctx) error {
	actor, err := identity(c)
	if err != nil {
		return err
	}
	var req dto.ClaimStatusRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	claim, err := h.claims.UpdateStatus(c.UserContext(), actor, c.Params("id"), req.Status, req.Resolution)
	if err != nil {
		return err
	}
	return ok(c, "Claim status updated", dto.NewClaimResponse(claim))
}

// Assign PATCH /claims/:id/assign.
func (h *ClaimsHandler) Assign(c *fiber.Ctx) error {
	actor, err := identity(c)
	if err != nil {
		return err
	}
	var req dto.AssignRequest
	if err := dto.ParseBody(c, &req); err != nil {
		return err
	}
	claim, err := h.claims.Assign(c.UserContext(), actor, c.Params("id"), req.AssigneeID())
	if err != nil {
		return err
	}
	return ok(c, "Claim assignment updated", dto.NewClaimResponse(claim))
}

// AddAttachment POST /claims/:id/attachments.
func (h *ClaimsHandler) AddAttachment(c *fiber.Ctx) error {
	actor, err := identity(c)
	if err != nil {
		return err
	}
	return receiveUpload(c, func(upload service.Upload) (*domain.ClaimAttachment, error) {
		return h.claims.AddAttachment(c.UserContext(), actor, c.Params("id"), upload)
	})
}

// DownloadAttachment GET /claims/:id/attachments/:attachmentId.
func (h *ClaimsHandler) DownloadAttachment(c *fiber.Ctx) error {
	actor, err := identity(c)
	if err != nil {
		return err
	}
	attachment, body, err := h.claims.OpenAttachment(c.UserContext(), actor, c.Params("id"), c.Params("attachmentId"))
	if err != nil {
		return err
	}
	return sendAttachment(c, attachment, body)
}

// DeleteAttachment DELETE /claims/:id/attachments/:attachmentId.
func (h *ClaimsHandler) DeleteAttachment(c *fiber.Ctx) error {
	actor, err := identity(c)
	if err != nil {
		return err
	}
	claim, err := h.claims.DeleteAttachment(c.UserContext(), actor, c.Params("id"), c.Params("attachmentId"))
	if err != nil {
		return err
	}
	return ok(c, "Attachment deleted", dto.NewClaimResponse(claim))
}

// receiveUpload reads the multipart file field and hands it to store.
func receiveUpload(c *fiber.Ctx, store func(service.Upload) (*domain.ClaimAttachment, error)) error {
	header, err := c.FormFile(uploadField)
	if err != nil {
		return apperrors.NewBadRequest("No file uploaded")
	}
	file, err := header.Open()
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	defer file.Close()

	attachment, err := store(service.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get(fiber.HeaderContentType),
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		return err
	}
	return created(c, "Attachment uploaded", dto.NewAttachmentResponse(attachment))
}

// sendAttachment streams body with the original filename. The response owns body.
func sendAttachment(c *fiber.Ctx, attachment *domain.ClaimAttachment, body io.ReadCloser) error {
	c.Attachment(attachment.OriginalName)
	c.Set(fiber.HeaderContentType, attachment.MimeType)
	return c.SendStream(body, int(attachment.Size))
}

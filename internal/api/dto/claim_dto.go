package dto

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/service"
	apperrors "github.com/spec-kit/crm-service/pkg/util"
)

type ClaimResponse struct {
	ID           string               `json:"id"`
	Title        string               `json:"title"`
	Description  string               `json:"description"`
	Status       domain.ClaimStatus   `json:"status"`
	Priority     domain.ClaimPriority `json:"priority"`
	Resolution   *string              `json:"resolution"`
	ClientID     string               `json:"clientId"`
	CreatedByID  string               `json:"createdById"`
	AssignedToID *string              `json:"assignedToId"`
	ResolvedAt   *time.Time           `json:"resolvedAt"`
	CreatedAt    time.Time            `json:"createdAt"`
	UpdatedAt    time.Time            `json:"updatedAt"`
	Client       *ClientRefResponse   `json:"client,omitempty"`
	CreatedBy    *UserRefResponse     `json:"createdBy,omitempty"`
	AssignedTo   *UserRefResponse     `json:"assignedTo"`
	Attachments  []AttachmentResponse `json:"attachments,omitempty"`
}

// AttachmentResponse omits the storage path.
type AttachmentResponse struct {
	ID           string    `json:"id"`
	ClaimID      string    `json:"claimId"`
	Filename     string    `json:"filename"`
	OriginalName string    `json:"originalName"`
	MimeType     string    `json:"mimeType"`
	Size         int64     `json:"size"`
	CreatedAt    time.Time `json:"createdAt"`
}

type CreateClaimRequest struct {
	Title        string               `json:"title"`
	Description  string               `json:"description"`
	Priority     domain.ClaimPriority `json:"priority"`
	ClientID     string               `json:"clientId"`
	AssignedToID *string              `json:"assignedToId"`
}

func (r CreateClaimRequest) Validate() error {
	var v validator
	v.required("title", r.Title)
	v.maxLen("title", r.Title, 200)
	v.required("description", r.Description)
	v.required("clientId", r.ClientID)
	v.check(r.Priority == "" || r.Priority.Valid(), "priority", "Invalid claim priority")
	return v.err()
}

func (r CreateClaimRequest) Input() service.ClaimCreateInput {
	return service.ClaimCreateInput{
		Title:        r.Title,
		Description:  r.Description,
		Priority:     r.Priority,
		ClientID:     strings.TrimSpace(r.ClientID),
		AssignedToID: emptyToNil(r.AssignedToID),
	}
}

// PortalClaimRequest has no client field. The client comes from the caller's identity.
type PortalClaimRequest struct {
	Title       string               `json:"title"`
	Description string               `json:"description"`
	Priority    domain.ClaimPriority `json:"priority"`
}

func (r PortalClaimRequest) Validate() error {
	var v validator
	v.required("title", r.Title)
	v.maxLen("title", r.Title, 200)
	v.required("description", r.Description)
	v.check(r.Priority == "" || r.Priority.Valid(), "priority", "Invalid claim priority")
	return v.err()
}

func (r PortalClaimRequest) Input() service.PortalClaimInput {
	return service.PortalClaimInput{Title: r.Title, Description: r.Description, Priority: r.Priority}
}

type UpdateClaimRequest struct {
	Title       *string               `json:"title"`
	Description *string               `json:"description"`
	Priority    *domain.ClaimPriority `json:"priority"`
}

func (r UpdateClaimRequest) Validate() error {
	var v validator
	if r.Title != nil {
		v.required("title", *r.Title)
		v.maxLen("title", *r.Title, 200)
	}
	if r.Description != nil {
		v.required("description", *r.Description)
	}
	v.check(r.Priority == nil || r.Priority.Valid(), "priority", "Invalid claim priority")
	return v.err()
}

func (r UpdateClaimRequest) Input() service.ClaimUpdateInput {
	return service.ClaimUpdateInput{Title: r.Title, Description: r.Description, Priority: r.Priority}
}

type ClaimStatusRequest struct {
	Status     domain.ClaimStatus `json:"status"`
	Resolution string             `json:"resolution"`
}

func (r ClaimStatusRequest) Validate() error {
	var v validator
	v.check(r.Status.Valid(), "status", "Invalid claim status")
	return v.err()
}

// ParseClaimQuery reads GET /claims filters.
func ParseClaimQuery(c *fiber.Ctx) (service.ClaimListInput, error) {
	input := service.ClaimListInput{
		ClientID:     QueryString(c, "clientId"),
		AssignedToID: QueryString(c, "assignedToId"),
		Search:       strings.TrimSpace(c.Query("search")),
		Page:         ParsePage(c, "desc", "createdAt", "updatedAt", "title", "status", "priority"),
	}
	if raw := QueryString(c, "status"); raw != nil {
		status := domain.ClaimStatus(strings.ToUpper(*raw))
		if !status.Valid() {
			return input, apperrors.NewValidationError("Invalid claim status", map[string]any{"field": "status"})
		}
		input.Status = &status
	}
	if raw := QueryString(c, "priority"); raw != nil {
		priority := domain.ClaimPriority(strings.ToUpper(*raw))
		if !priority.Valid() {
			return input, apperrors.NewValidationError("Invalid claim priority", map[string]any{"field": "priority"})
		}
		input.Priority = &priority
	}
	return input, nil
}

func NewClaimResponse(claim *domain.Claim) ClaimResponse {
	resp := ClaimResponse{
		ID:           claim.ID,
		Title:        claim.Title,
		Description:  claim.Description,
		Status:       claim.Status,
		Priority:     claim.Priority,
		Resolution:   claim.Resolution,
		ClientID:     claim.ClientID,
		CreatedByID:  claim.CreatedByID,
		AssignedToID: claim.AssignedToID,
		ResolvedAt:   claim.ResolvedAt,
		CreatedAt:    claim.CreatedAt,
		UpdatedAt:    claim.UpdatedAt,
		Client:       newClientRef(claim.Client),
		CreatedBy:    newUserRef(claim.CreatedBy),
		AssignedTo:   newUserRef(claim.AssignedTo),
	}
	if claim.Attachments != nil {
		resp.Attachments = make([]AttachmentResponse, 0, len(claim.Attachments))
		for i := range claim.Attachments {
			resp.Attachments = append(resp.Attachments, NewAttachmentResponse(&claim.Attachments[i]))
		}
	}
	return resp
}

func NewClaimResponses(claims []domain.Claim) []ClaimResponse {
	out := make([]ClaimResponse, 0, len(claims))
	for i := range claims {
		out = append(out, NewClaimResponse(&claims[i]))
	}
	return out
}

func NewAttachmentResponse(a *domain.ClaimAttachment) AttachmentResponse {
	return AttachmentResponse{
		ID:           a.ID,
		ClaimID:      a.ClaimID,
		Filename:     a.Filename,
		OriginalName: a.OriginalName,
		MimeType:     a.MimeType,
		Size:         a.Size,
		CreatedAt:    a.CreatedAt,
	}
}

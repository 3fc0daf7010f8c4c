package dto

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/service"
	apperrors "github.com/spec-kit/crm-service/pkg/util"
)

type LeadResponse struct {
	ID             string            `json:"id"`
	FirstName      string            `json:"firstName"`
	LastName       string            `json:"lastName"`
	Email          string            `json:"email"`
	Phone          *string           `json:"phone"`
	Company        *string           `json:"company"`
	Source         *string           `json:"source"`
	Status         domain.LeadStatus `json:"status"`
	Notes          *string           `json:"notes"`
	EstimatedValue *float64          `json:"estimatedValue"`
	CreatedByID    string            `json:"createdById"`
	AssignedToID   *string           `json:"assignedToId"`
	ConvertedAt    *time.Time        `json:"convertedAt"`
	CreatedAt      time.Time         `json:"createdAt"`
	UpdatedAt      time.Time         `json:"updatedAt"`
	CreatedBy      *UserRefResponse  `json:"createdBy,omitempty"`
	AssignedTo     *UserRefResponse  `json:"assignedTo"`
}

type CreateLeadRequest struct {
	FirstName      string   `json:"firstName"`
	LastName       string   `json:"lastName"`
	Email          string   `json:"email"`
	Phone          *string  `json:"phone"`
	Company        *string  `json:"company"`
	Source         *string  `json:"source"`
	Notes          *string  `json:"notes"`
	EstimatedValue *float64 `json:"estimatedValue"`
	AssignedToID   *string  `json:"assignedToId"`
}

func (r CreateLeadRequest) Validate() error {
	var v validator
	v.required("firstName", r.FirstName)
	v.required("lastName", r.LastName)
	v.email("email", r.Email)
	v.check(r.EstimatedValue == nil || *r.EstimatedValue >= 0, "estimatedValue", "estimatedValue must be zero or greater")
	return v.err()
}

func (r CreateLeadRequest) Input() service.LeadCreateInput {
	return service.LeadCreateInput{
		FirstName:      r.FirstName,
		LastName:       r.LastName,
		Email:          r.Email,
		Phone:          r.Phone,
		Company:        r.Company,
		Source:         r.Source,
		Notes:          r.Notes,
		EstimatedValue: r.EstimatedValue,
		AssignedToID:   emptyToNil(r.AssignedToID),
	}
}

// UpdateLeadRequest rejects status so pipeline moves go through /status.
type UpdateLeadRequest struct {
	FirstName      *string                  `json:"firstName"`
	LastName       *string                  `json:"lastName"`
	Email          *string                  `json:"email"`
	Phone          domain.Nullable[string]  `json:"phone"`
	Company        domain.Nullable[string]  `json:"company"`
	Source         domain.Nullable[string]  `json:"source"`
	Notes          domain.Nullable[string]  `json:"notes"`
	EstimatedValue domain.Nullable[float64] `json:"estimatedValue"`
	Status         *domain.LeadStatus       `json:"status"`
}

func (r UpdateLeadRequest) Validate() error {
	var v validator
	if r.FirstName != nil {
		v.required("firstName", *r.FirstName)
	}
	if r.LastName != nil {
		v.required("lastName", *r.LastName)
	}
	if r.Email != nil {
		v.email("email", *r.Email)
	}
	if r.EstimatedValue.Value != nil {
		v.check(*r.EstimatedValue.Value >= 0, "estimatedValue", "estimatedValue must be zero or greater")
	}
	v.check(r.Status == nil, "status", "Use the status endpoint to change lead status")
	return v.err()
}

func (r UpdateLeadRequest) Input() service.LeadUpdateInput {
	return service.LeadUpdateInput{
		FirstName:      r.FirstName,
		LastName:       r.LastName,
		Email:          r.Email,
		Phone:          r.Phone,
		Company:        r.Company,
		Source:         r.Source,
		Notes:          r.Notes,
		EstimatedValue: r.EstimatedValue,
	}
}

type LeadStatusRequest struct {
	Status domain.LeadStatus `json:"status"`
}

func (r LeadStatusRequest) Validate() error {
	var v validator
	v.check(r.Status.Valid(), "status", "Invalid lead status")
	return v.err()
}

// AssignRequest sets or clears an assignee. A null or empty id unassigns.
type AssignRequest struct {
	AssignedToID *string `json:"assignedToId"`
}

func (r AssignRequest) AssigneeID() *string {
	return emptyToNil(r.AssignedToID)
}

type ConvertLeadRequest struct {
	CreatePortalAccount bool    `json:"createPortalAccount"`
	Address             *string `json:"address"`
	City                *string `json:"city"`
	State               *string `json:"state"`
	ZipCode             *string `json:"zipCode"`
	Country             *string `json:"country"`
	TaxID               *string `json:"taxId"`
}

func (r ConvertLeadRequest) Input() service.LeadConvertInput {
	return service.LeadConvertInput{
		CreatePortalAccount: r.CreatePortalAccount,
		Address:             r.Address,
		City:                r.City,
		State:               r.State,
		ZipCode:             r.ZipCode,
		Country:             r.Country,
		TaxID:               r.TaxID,
	}
}

type ConversionResponse struct {
	Lead     LeadResponse `json:"lead"`
	ClientID string       `json:"clientId"`
}

// ParseLeadQuery reads GET /leads filters.
func ParseLeadQuery(c *fiber.Ctx) (service.LeadListInput, error) {
	input := service.LeadListInput{
		Source:       strings.TrimSpace(c.Query("source")),
		AssignedToID: QueryString(c, "assignedToId"),
		Search:       strings.TrimSpace(c.Query("search")),
		Page:         ParsePage(c, "desc", "createdAt", "firstName", "lastName", "status", "estimatedValue"),
	}
	if raw := QueryString(c, "status"); raw != nil {
		status := domain.LeadStatus(strings.ToUpper(*raw))
		if !status.Valid() {
			return input, apperrors.NewValidationError("Invalid lead status", map[string]any{"field": "status"})
		}
		input.Status = &status
	}
	return input, nil
}

func NewLeadResponse(l *domain.Lead) LeadResponse {
	return LeadResponse{
		ID:             l.ID,
		FirstName:      l.FirstName,
		LastName:       l.LastName,
		Email:          l.Email,
		Phone:          l.Phone,
		Company:        l.Company,
		Source:         l.Source,
		Status:         l.Status,
		Notes:          l.Notes,
		EstimatedValue: l.EstimatedValue,
		CreatedByID:    l.CreatedByID,
		AssignedToID:   l.AssignedToID,
		ConvertedAt:    l.ConvertedAt,
		CreatedAt:      l.CreatedAt,
		UpdatedAt:      l.UpdatedAt,
		CreatedBy:      newUserRef(l.CreatedBy),
		AssignedTo:     newUserRef(l.AssignedTo),
	}
}

func NewLeadResponses(leads []domain.Lead) []LeadResponse {
	out := make([]LeadResponse, 0, len(leads))
	for i := range leads {
		out = append(out, NewLeadResponse(&leads[i]))
	}
	return out
}

func NewConversionResponse(conversion *service.LeadConversion) ConversionResponse {
	return ConversionResponse{Lead: NewLeadResponse(conversion.Lead), ClientID: conversion.ClientID}
}

func emptyToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return trimmed(s)
}

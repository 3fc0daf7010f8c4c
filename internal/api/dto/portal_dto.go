package dto

import (
	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/service"
)

// UpdatePortalProfileRequest lists the fields a client may edit. Email and tax id stay staff-managed.
type UpdatePortalProfileRequest struct {
	FirstName *string                 `json:"firstName"`
	LastName  *string                 `json:"lastName"`
	Phone     domain.Nullable[string] `json:"phone"`
	Company   domain.Nullable[string] `json:"company"`
	Address   domain.Nullable[string] `json:"address"`
	City      domain.Nullable[string] `json:"city"`
	State     domain.Nullable[string] `json:"state"`
	ZipCode   domain.Nullable[string] `json:"zipCode"`
	Country   domain.Nullable[string] `json:"country"`
}

func (r UpdatePortalProfileRequest) Validate() error {
	var v validator
	if r.FirstName != nil {
		v.required("firstName", *r.FirstName)
	}
	if r.LastName != nil {
		v.required("lastName", *r.LastName)
	}
	return v.err()
}

func (r UpdatePortalProfileRequest) Input() service.PortalProfileInput {
	return service.PortalProfileInput{
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Phone:     r.Phone,
		Company:   r.Company,
		Address:   r.Address,
		City:      r.City,
		State:     r.State,
		ZipCode:   r.ZipCode,
		Country:   r.Country,
	}
}

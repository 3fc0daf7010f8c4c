package dto

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/repository"
	"github.com/spec-kit/crm-service/internal/service"
)

type ClientResponse struct {
	ID              string                 `json:"id"`
	FirstName       string                 `json:"firstName"`
	LastName        string                 `json:"lastName"`
	Email           string                 `json:"email"`
	Phone           *string                `json:"phone"`
	Company         *string                `json:"company"`
	Address         *string                `json:"address"`
	City            *string                `json:"city"`
	State           *string                `json:"state"`
	ZipCode         *string                `json:"zipCode"`
	Country         *string                `json:"country"`
	TaxID           *string                `json:"taxId"`
	IsActive        bool                   `json:"isActive"`
	UserID          *string                `json:"userId"`
	HasPortalAccess bool                   `json:"hasPortalAccess"`
	ConvertedFromID *string                `json:"convertedFromId"`
	CreatedAt       time.Time              `json:"createdAt"`
	UpdatedAt       time.Time              `json:"updatedAt"`
	Products        []SubscriptionResponse `json:"products,omitempty"`
}

// ClientRefResponse is the compact client embedded in claims and subscriptions.
type ClientRefResponse struct {
	ID        string  `json:"id"`
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
	Email     string  `json:"email"`
	Company   *string `json:"company"`
}

type SubscriptionResponse struct {
	ID          string             `json:"id"`
	ClientID    string             `json:"clientId"`
	ProductID   string             `json:"productId"`
	Quantity    int                `json:"quantity"`
	CustomPrice *float64           `json:"customPrice"`
	StartDate   time.Time          `json:"startDate"`
	EndDate     *time.Time         `json:"endDate"`
	IsActive    bool               `json:"isActive"`
	CreatedAt   time.Time          `json:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt"`
	Product     *ProductResponse   `json:"product,omitempty"`
	Client      *ClientRefResponse `json:"client,omitempty"`
}

type CreateClientRequest struct {
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
	Email     string  `json:"email"`
	Phone     *string `json:"phone"`
	Company   *string `json:"company"`
	Address   *string `json:"address"`
	City      *string `json:"city"`
	State     *string `json:"state"`
	ZipCode   *string `json:"zipCode"`
	Country   *string `json:"country"`
	TaxID     *string `json:"taxId"`
}

func (r CreateClientRequest) Validate() error {
	var v validator
	v.required("firstName", r.FirstName)
	v.required("lastName", r.LastName)
	v.email("email", r.Email)
	return v.err()
}

func (r CreateClientRequest) Input() service.ClientCreateInput {
	return service.ClientCreateInput{
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Email:     r.Email,
		Phone:     r.Phone,
		Company:   r.Company,
		Address:   r.Address,
		City:      r.City,
		State:     r.State,
		ZipCode:   r.ZipCode,
		Country:   r.Country,
		TaxID:     r.TaxID,
	}
}

type UpdateClientRequest struct {
	FirstName *string                 `json:"firstName"`
	LastName  *string                 `json:"lastName"`
	Email     *string                 `json:"email"`
	Phone     domain.Nullable[string] `json:"phone"`
	Company   domain.Nullable[string] `json:"company"`
	Address   domain.Nullable[string] `json:"address"`
	City      domain.Nullable[string] `json:"city"`
	State     domain.Nullable[string] `json:"state"`
	ZipCode   domain.Nullable[string] `json:"zipCode"`
	Country   domain.Nullable[string] `json:"country"`
	TaxID     domain.Nullable[string] `json:"taxId"`
	IsActive  *bool                   `json:"isActive"`
}

func (r UpdateClientRequest) Validate() error {
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
	return v.err()
}

func (r UpdateClientRequest) Input() service.ClientUpdateInput {
	return service.ClientUpdateInput{
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Email:     r.Email,
		Phone:     r.Phone,
		Company:   r.Company,
		Address:   r.Address,
		City:      r.City,
		State:     r.State,
		ZipCode:   r.ZipCode,
		Country:   r.Country,
		TaxID:     r.TaxID,
		IsActive:  r.IsActive,
	}
}

type AddProductRequest struct {
	ProductID   string     `json:"productId"`
	Quantity    int        `json:"quantity"`
	CustomPrice *float64   `json:"customPrice"`
	StartDate   *time.Time `json:"startDate"`
	EndDate     *time.Time `json:"endDate"`
}

func (r AddProductRequest) Validate() error {
	var v validator
	v.required("productId", r.ProductID)
	v.check(r.Quantity >= 0, "quantity", "quantity must be at least 1")
	v.check(r.CustomPrice == nil || *r.CustomPrice >= 0, "customPrice", "customPrice must be zero or greater")
	v.check(r.StartDate == nil || r.EndDate == nil || !r.EndDate.Before(*r.StartDate), "endDate", "endDate must not precede startDate")
	return v.err()
}

func (r AddProductRequest) Input() service.SubscriptionInput {
	return service.SubscriptionInput{
		ProductID:   strings.TrimSpace(r.ProductID),
		Quantity:    r.Quantity,
		CustomPrice: r.CustomPrice,
		StartDate:   r.StartDate,
		EndDate:     r.EndDate,
	}
}

type UpdateSubscriptionRequest struct {
	Quantity    *int                       `json:"quantity"`
	CustomPrice domain.Nullable[float64]   `json:"customPrice"`
	IsActive    *bool                      `json:"isActive"`
	EndDate     domain.Nullable[time.Time] `json:"endDate"`
}

func (r UpdateSubscriptionRequest) Validate() error {
	var v validator
	v.check(r.Quantity == nil || *r.Quantity >= 1, "quantity", "quantity must be at least 1")
	v.check(r.CustomPrice.Value == nil || *r.CustomPrice.Value >= 0, "customPrice", "customPrice must be zero or greater")
	return v.err()
}

func (r UpdateSubscriptionRequest) Input() service.SubscriptionUpdateInput {
	return service.SubscriptionUpdateInput{
		Quantity:    r.Quantity,
		CustomPrice: r.CustomPrice,
		IsActive:    r.IsActive,
		EndDate:     r.EndDate,
	}
}

// PortalAccountRequest optionally carries the initial portal password.
type PortalAccountRequest struct {
	Password string `json:"password"`
}

// ParseClientQuery reads GET /clients filters.
func ParseClientQuery(c *fiber.Ctx) (repository.ClientFilter, error) {
	filter := repository.ClientFilter{
		Search: strings.TrimSpace(c.Query("search")),
		Page:   ParsePage(c, "desc", "createdAt", "firstName", "lastName", "email", "company"),
	}
	var err error
	if filter.IsActive, err = QueryBool(c, "isActive"); err != nil {
		return filter, err
	}
	if filter.HasPortalAccess, err = QueryBool(c, "hasPortalAccess"); err != nil {
		return filter, err
	}
	return filter, nil
}

func NewClientResponse(client *domain.Client) ClientResponse {
	resp := ClientResponse{
		ID:              client.ID,
		FirstName:       client.FirstName,
		LastName:        client.LastName,
		Email:           client.Email,
		Phone:           client.Phone,
		Company:         client.Company,
		Address:         client.Address,
		City:            client.City,
		State:           client.State,
		ZipCode:         client.ZipCode,
		Country:         client.Country,
		TaxID:           client.TaxID,
		IsActive:        client.IsActive,
		UserID:          client.UserID,
		HasPortalAccess: client.HasPortalAccess(),
		ConvertedFromID: client.ConvertedFromID,
		CreatedAt:       client.CreatedAt,
		UpdatedAt:       client.UpdatedAt,
	}
	if client.Subscriptions != nil {
		resp.Products = NewSubscriptionResponses(client.Subscriptions)
	}
	return resp
}

func NewClientResponses(clients []domain.Client) []ClientResponse {
	out := make([]ClientResponse, 0, len(clients))
	for i := range clients {
		out = append(out, NewClientResponse(&clients[i]))
	}
	return out
}

func NewSubscriptionResponse(sub domain.ClientProduct) SubscriptionResponse {
	resp := SubscriptionResponse{
		ID:          sub.ID,
		ClientID:    sub.ClientID,
		ProductID:   sub.ProductID,
		Quantity:    sub.Quantity,
		CustomPrice: sub.CustomPrice,
		StartDate:   sub.StartDate,
		EndDate:     sub.EndDate,
		IsActive:    sub.IsActive,
		CreatedAt:   sub.CreatedAt,
		UpdatedAt:   sub.UpdatedAt,
		Client:      newClientRef(sub.Client),
	}
	if sub.Product != nil {
		product := NewProductResponse(sub.Product)
		resp.Product = &product
	}
	return resp
}

func NewSubscriptionResponses(subs []domain.ClientProduct) []SubscriptionResponse {
	out := make([]SubscriptionResponse, 0, len(subs))
	for _, sub := range subs {
		out = append(out, NewSubscriptionResponse(sub))
	}
	return out
}

func newClientRef(ref *domain.ClientRef) *ClientRefResponse {
	if ref == nil {
		return nil
	}
	return &ClientRefResponse{ID: ref.ID, FirstName: ref.FirstName, LastName: ref.LastName, Email: ref.Email, Company: ref.Company}
}

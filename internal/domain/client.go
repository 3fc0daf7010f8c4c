package domain

import "time"

// Client is a billing customer, usually converted from a lead.
type Client struct {
	ID              string
	FirstName       string
	LastName        string
	Email           string
	Phone           *string
	Company         *string
	Address         *string
	City            *string
	State           *string
	ZipCode         *string
	Country         *string
	TaxID           *string
	IsActive        bool
	UserID          *string
	ConvertedFromID *string
	CreatedAt       time.Time
	UpdatedAt       time.Time

	Subscriptions []ClientProduct
}

// Ref returns the compact reference embedded in claims and subscriptions.
func (c Client) Ref() *ClientRef {
	return &ClientRef{ID: c.ID, FirstName: c.FirstName, LastName: c.LastName, Email: c.Email, Company: c.Company, IsActive: c.IsActive}
}

func (c Client) FullName() string {
	return c.FirstName + " " + c.LastName
}

// HasPortalAccess reports whether a CLIENT user is linked.
func (c Client) HasPortalAccess() bool {
	return c.UserID != nil && *c.UserID != ""
}

// ClientRef is the summary of a client embedded in claims.
type ClientRef struct {
	ID        string
	FirstName string
	LastName  string
	Email     string
	Company   *string
	IsActive  bool
}

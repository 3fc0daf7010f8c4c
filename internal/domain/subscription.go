package domain

import "time"

// ClientProduct is a client's subscription to a product. (ClientID, ProductID) is unique.
type ClientProduct struct {
	ID          string
	ClientID    string
	ProductID   string
	Quantity    int
	CustomPrice *float64
	StartDate   time.Time
	EndDate     *time.Time
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Product *Product
	Client  *ClientRef
}

// UnitPrice is the custom price when set, otherwise the product list price.
func (cp ClientProduct) UnitPrice() float64 {
	if cp.CustomPrice != nil {
		return *cp.CustomPrice
	}
	if cp.Product != nil {
		return cp.Product.Price
	}
	return 0
}

// MonthlyAmount is the subscription's contribution to monthly revenue.
func (cp ClientProduct) MonthlyAmount() float64 {
	if cp.Product == nil {
		return 0
	}
	return cp.Product.BillingCycle.Monthly(cp.UnitPrice() * float64(cp.Quantity))
}

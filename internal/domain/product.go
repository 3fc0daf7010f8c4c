package domain

import "time"

// BillingCycle controls how a product's price recurs.
type BillingCycle string

const (
	BillingMonthly BillingCycle = "monthly"
	BillingYearly  BillingCycle = "yearly"
	BillingOneTime BillingCycle = "one-time"
)

func (b BillingCycle) Valid() bool {
	switch b {
	case BillingMonthly, BillingYearly, BillingOneTime:
		return true
	}
	return false
}

// Monthly normalizes an amount billed on this cycle to a monthly figure.
// One-time charges do not recur and contribute nothing.
func (b BillingCycle) Monthly(amount float64) float64 {
	switch b {
	case BillingMonthly:
		return amount
	case BillingYearly:
		return amount / 12
	default:
		return 0
	}
}

// Product is a sellable item clients can subscribe to.
type Product struct {
	ID           string
	Name         string
	Description  *string
	Price        float64
	BillingCycle BillingCycle
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

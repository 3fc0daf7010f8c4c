package domain

import "time"

// Read models returned by the aggregate endpoints. They are serialized as-is.

type StatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

type PriorityCount struct {
	Priority string `json:"priority"`
	Count    int    `json:"count"`
}

type RoleCount struct {
	Role  Role `json:"role"`
	Count int  `json:"count"`
}

// LeadStats summarizes the pipeline visible to the caller.
type LeadStats struct {
	Total               int           `json:"total"`
	ByStatus            []StatusCount `json:"byStatus"`
	TotalEstimatedValue float64       `json:"totalEstimatedValue"`
	ConversionRate      float64       `json:"conversionRate"`
}

// ClaimStats summarizes support workload visible to the caller.
type ClaimStats struct {
	Total                 int             `json:"total"`
	ByStatus              []StatusCount   `json:"byStatus"`
	ByPriority            []PriorityCount `json:"byPriority"`
	AverageResolutionTime float64         `json:"averageResolutionTime"`
	ResolvedThisMonth     int             `json:"resolvedThisMonth"`
	OpenClaims            int             `json:"openClaims"`
}

// ProductUsage summarizes subscriptions of a single product.
type ProductUsage struct {
	ActiveClients  int     `json:"activeClients"`
	TotalClients   int     `json:"totalClients"`
	MonthlyRevenue float64 `json:"monthlyRevenue"`
}

// IncomeLine is one subscription's monthly contribution.
type IncomeLine struct {
	ProductID    string       `json:"productId"`
	ProductName  string       `json:"productName"`
	Price        float64      `json:"price"`
	Quantity     int          `json:"quantity"`
	BillingCycle BillingCycle `json:"billingCycle"`
	TotalMonthly float64      `json:"totalMonthly"`
}

// ClientIncome is the revenue attributable to one client.
type ClientIncome struct {
	ClientID      string       `json:"clientId"`
	ClientName    string       `json:"clientName"`
	MonthlyIncome float64      `json:"monthlyIncome"`
	YearlyIncome  float64      `json:"yearlyIncome"`
	Products      []IncomeLine `json:"products"`
}

type ProductRevenue struct {
	ProductID           string  `json:"productId"`
	ProductName         string  `json:"productName"`
	ClientCount         int     `json:"clientCount"`
	TotalMonthlyRevenue float64 `json:"totalMonthlyRevenue"`
}

// IncomeReport aggregates revenue across all active subscriptions.
type IncomeReport struct {
	TotalMonthlyIncome  float64          `json:"totalMonthlyIncome"`
	TotalYearlyIncome   float64          `json:"totalYearlyIncome"`
	ClientCount         int              `json:"clientCount"`
	ActiveSubscriptions int              `json:"activeSubscriptions"`
	TopClients          []ClientIncome   `json:"topClients"`
	ProductBreakdown    []ProductRevenue `json:"productBreakdown"`
}

type UserSummary struct {
	Total  int         `json:"total"`
	Active int         `json:"active"`
	ByRole []RoleCount `json:"byRole"`
}

type LeadSummary struct {
	Total          int     `json:"total"`
	New            int     `json:"new"`
	Converted      int     `json:"converted"`
	ConversionRate float64 `json:"conversionRate"`
}

type ClientSummary struct {
	Total             int `json:"total"`
	Active            int `json:"active"`
	WithSubscriptions int `json:"withSubscriptions"`
	WithPortal        int `json:"withPortal"`
}

type ClaimSummary struct {
	Total      int `json:"total"`
	Open       int `json:"open"`
	InProgress int `json:"inProgress"`
	Resolved   int `json:"resolved"`
}

type RevenueSummary struct {
	MonthlyRecurring float64 `json:"monthlyRecurring"`
	YearlyProjected  float64 `json:"yearlyProjected"`
}

type ActivityItem struct {
	ID          string         `json:"id"`
	Action      ActivityAction `json:"action"`
	Description string         `json:"description"`
	CreatedAt   time.Time      `json:"createdAt"`
	User        ActivityUser   `json:"user"`
}

type ActivityUser struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// StaffDashboard is the admin, supervisor and operator landing view.
// Users and Revenue are omitted for roles that may not see them.
type StaffDashboard struct {
	Users          *UserSummary    `json:"users,omitempty"`
	Leads          LeadSummary     `json:"leads"`
	Clients        ClientSummary   `json:"clients"`
	Claims         ClaimSummary    `json:"claims"`
	Revenue        *RevenueSummary `json:"revenue,omitempty"`
	RecentActivity []ActivityItem  `json:"recentActivity"`
}

type PortalProfile struct {
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
	Email     string  `json:"email"`
	Company   *string `json:"company"`
}

type PortalSubscriptionSummary struct {
	Active       int     `json:"active"`
	Total        int     `json:"total"`
	MonthlySpend float64 `json:"monthlySpend"`
}

type PortalClaimSummary struct {
	Total    int `json:"total"`
	Open     int `json:"open"`
	Resolved int `json:"resolved"`
}

type RecentClaim struct {
	ID        string      `json:"id"`
	Title     string      `json:"title"`
	Status    ClaimStatus `json:"status"`
	CreatedAt time.Time   `json:"createdAt"`
}

// ClientDashboard is the portal landing view.
type ClientDashboard struct {
	Profile       PortalProfile             `json:"profile"`
	Subscriptions PortalSubscriptionSummary `json:"subscriptions"`
	Claims        PortalClaimSummary        `json:"claims"`
	RecentClaims  []RecentClaim             `json:"recentClaims"`
}

package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/crm-service/internal/domain"
)

func TestProductValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.staff(t, domain.RoleAdmin, "admin@example.com")
	supervisor := env.staff(t, domain.RoleSupervisor, "sup@example.com")

	_, err := env.products.Create(ctx, supervisor, ProductCreateInput{Name: "X", Price: 1, BillingCycle: domain.BillingMonthly})
	requireStatus(t, err, http.StatusForbidden)

	_, err = env.products.Create(ctx, admin, ProductCreateInput{Name: "X", Price: -1, BillingCycle: domain.BillingMonthly})
	requireStatus(t, err, http.StatusBadRequest)

	_, err = env.products.Create(ctx, admin, ProductCreateInput{Name: "X", Price: 1, BillingCycle: "weekly"})
	requireStatus(t, err, http.StatusBadRequest)

	env.product(t, admin, "Fiber 100", 50, domain.BillingMonthly)
	_, err = env.products.Create(ctx, admin, ProductCreateInput{Name: "Fiber 100", Price: 60, BillingCycle: domain.BillingMonthly})
	domainErr := requireStatus(t, err, http.StatusBadRequest)
	assert.Equal(t, "A product with this name already exists", domainErr.Message)
}

func TestProductDeleteBlockedByActiveSubscriptions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.staff(t, domain.RoleAdmin, "admin@example.com")
	client := env.client(t, admin, "client@example.com")
	product := env.product(t, admin, "Fiber 100", 50, domain.BillingMonthly)
	_, err := env.clients.AddProduct(ctx, admin, client.ID, SubscriptionInput{ProductID: product.ID, Quantity: 2})
	require.NoError(t, err)

	err = env.products.Delete(ctx, admin, product.ID)
	domainErr := requireStatus(t, err, http.StatusBadRequest)
	assert.Equal(t, "Cannot delete product with 1 active subscription(s). Deactivate it instead.", domainErr.Message)

	usage, err := env.products.UsageStats(ctx, admin, product.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ProductUsage{ActiveClients: 1, TotalClients: 1, MonthlyRevenue: 100}, *usage)

	inactive := false
	_, err = env.clients.UpdateProduct(ctx, admin, client.ID, product.ID, SubscriptionUpdateInput{IsActive: &inactive})
	require.NoError(t, err)

	require.NoError(t, env.products.Delete(ctx, admin, product.ID))
	detail, err := env.products.Get(ctx, admin, product.ID)
	require.NoError(t, err)
	assert.False(t, detail.IsActive)
	assert.Equal(t, 0, detail.ActiveSubscriptions)

	active, err := env.products.ListActive(ctx, admin)
	require.NoError(t, err)
	assert.Empty(t, active)
}

package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRoleHierarchy(t *testing.T) {
	assert.Equal(t, []Role{RoleClient, RoleOperator, RoleSupervisor, RoleAdmin}, Roles())

	assert.True(t, RoleAdmin.AtLeast(RoleSupervisor))
	assert.True(t, RoleSupervisor.AtLeast(RoleSupervisor))
	assert.False(t, RoleOperator.AtLeast(RoleSupervisor))
	assert.False(t, RoleClient.AtLeast(RoleOperator))
	assert.False(t, Role("ROOT").AtLeast(RoleClient))
	assert.False(t, RoleAdmin.AtLeast(Role("ROOT")))

	assert.False(t, RoleClient.IsStaff())
	assert.True(t, RoleOperator.IsStaff())
	assert.False(t, Role("").IsStaff())
}

func TestClaimTransitionKeepsFirstResolution(t *testing.T) {
	claim := &Claim{Status: ClaimStatusOpen}
	first := mustTime(t, "2024-03-01T10:00:00Z")
	later := mustTime(t, "2024-03-05T10:00:00Z")

	claim.TransitionTo(ClaimStatusInProgress, "", first)
	assert.Nil(t, claim.ResolvedAt)

	claim.TransitionTo(ClaimStatusResolved, "replaced router", first)
	if assert.NotNil(t, claim.ResolvedAt) {
		assert.Equal(t, first, *claim.ResolvedAt)
	}
	assert.Equal(t, "replaced router", *claim.Resolution)

	claim.TransitionTo(ClaimStatusOpen, "", later)
	claim.TransitionTo(ClaimStatusClosed, "", later)
	assert.Equal(t, first, *claim.ResolvedAt)
	assert.Equal(t, "replaced router", *claim.Resolution)
}

func TestBillingCycleMonthly(t *testing.T) {
	assert.Equal(t, 200.0, BillingMonthly.Monthly(200))
	assert.Equal(t, 100.0, BillingYearly.Monthly(1200))
	assert.Equal(t, 0.0, BillingOneTime.Monthly(500))
}

func TestLeadStatusLock(t *testing.T) {
	assert.True(t, LeadStatusConverted.Locked())
	assert.False(t, LeadStatusLost.Locked())
	assert.False(t, LeadStatus("WON").Valid())
}

func mustTime(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("parse %q: %v", value, err)
	}
	return parsed
}

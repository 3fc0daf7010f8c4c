package service

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/events"
	"github.com/spec-kit/crm-service/internal/repository"
)

func newLead(t *testing.T, env *testEnv, actor domain.Identity, email string) *domain.Lead {
	t.Helper()
	value := 1000.0
	lead, err := env.leads.Create(context.Background(), actor, LeadCreateInput{
		FirstName:      "Grace",
		LastName:       "Hopper",
		Email:          email,
		Source:         strPtr("website"),
		EstimatedValue: &value,
	})
	require.NoError(t, err)
	return lead
}

func strPtr(s string) *string { return &s }

func TestOperatorSeesOnlyOwnLeads(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.staff(t, domain.RoleAdmin, "admin@example.com")
	op1 := env.staff(t, domain.RoleOperator, "op1@example.com")
	op2 := env.staff(t, domain.RoleOperator, "op2@example.com")

	mine := newLead(t, env, op1, "mine@example.com")
	newLead(t, env, op2, "theirs@example.com")
	assigned := newLead(t, env, admin, "assigned@example.com")
	_, err := env.leads.Assign(ctx, admin, assigned.ID, &op1.UserID)
	require.NoError(t, err)

	leads, total, err := env.leads.List(ctx, op1, LeadListInput{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, leads, 2)

	_, total, err = env.leads.List(ctx, admin, LeadListInput{})
	require.NoError(t, err)
	assert.Equal(t, 3, total)

	_, err = env.leads.Get(ctx, op2, mine.ID)
	requireStatus(t, err, http.StatusForbidden)

	_, err = env.leads.Update(ctx, op2, mine.ID, LeadUpdateInput{FirstName: strPtr("Eve")})
	domainErr := requireStatus(t, err, http.StatusForbidden)
	assert.Equal(t, "Access denied to this lead", domainErr.Message)

	_, err = env.leads.UpdateStatus(ctx, op2, mine.ID, domain.LeadStatusLost)
	requireStatus(t, err, http.StatusForbidden)

	untouched, err := env.leads.Get(ctx, op1, mine.ID)
	require.NoError(t, err)
	assert.Equal(t, "Grace", untouched.FirstName)
	assert.Equal(t, domain.LeadStatusNew, untouched.Status)

	_, err = env.leads.UpdateStatus(ctx, op1, assigned.ID, domain.LeadStatusContacted)
	require.NoError(t, err)
}

func TestOperatorCannotAssignOthers(t *testing.T) {
	env := newTestEnv(t)
	op := env.staff(t, domain.RoleOperator, "op@example.com")
	other := env.staff(t, domain.RoleOperator, "other@example.com")

	_, err := env.leads.Create(context.Background(), op, LeadCreateInput{
		FirstName: "A", LastName: "B", Email: "a@example.com", AssignedToID: &other.UserID,
	})
	requireStatus(t, err, http.StatusForbidden)

	lead := newLead(t, env, op, "lead@example.com")
	_, err = env.leads.Assign(context.Background(), op, lead.ID, &op.UserID)
	requireStatus(t, err, http.StatusForbidden)
}

func TestLeadStatusRecordsActivity(t *testing.T) {
	env := newTestEnv(t)
	admin := env.staff(t, domain.RoleAdmin, "admin@example.com")
	lead := newLead(t, env, admin, "lead@example.com")

	updated, err := env.leads.UpdateStatus(context.Background(), admin, lead.ID, domain.LeadStatusQualified)
	require.NoError(t, err)
	assert.Equal(t, domain.LeadStatusQualified, updated.Status)

	_, err = env.leads.UpdateStatus(context.Background(), admin, lead.ID, domain.LeadStatus("WON"))
	requireStatus(t, err, http.StatusBadRequest)

	activities := env.store.Activities()
	last := activities[len(activities)-1]
	assert.Equal(t, domain.ActionStatusChanged, last.Action)
	assert.Equal(t, "Lead status changed from NEW to QUALIFIED", last.Description)
}

func TestConvertLeadWithPortalAccount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.staff(t, domain.RoleAdmin, "admin@example.com")
	lead := newLead(t, env, admin, "Grace@Example.com")

	conversion, err := env.leads.Convert(ctx, admin, lead.ID, LeadConvertInput{CreatePortalAccount: true, City: strPtr(" Arlington ")})
	require.NoError(t, err)
	assert.Equal(t, domain.LeadStatusConverted, conversion.Lead.Status)
	require.NotNil(t, conversion.Lead.ConvertedAt)
	assert.Equal(t, testNow, *conversion.Lead.ConvertedAt)

	client, err := env.clients.Get(ctx, admin, conversion.ClientID)
	require.NoError(t, err)
	assert.Equal(t, "grace@example.com", client.Email)
	assert.Equal(t, "Arlington", *client.City)
	assert.Equal(t, lead.ID, *client.ConvertedFromID)
	require.True(t, client.HasPortalAccess())

	portalUser, err := env.store.UserRepo().GetByID(ctx, *client.UserID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleClient, portalUser.Role)

	created := env.dispatcher.ofType(events.EventPortalAccountCreated)
	require.Len(t, created, 1)
	payload := created[0].Payload.(events.PortalAccountCreatedPayload)
	assert.NotEmpty(t, payload.TempPassword)
	assert.Len(t, env.dispatcher.ofType(events.EventLeadConverted), 1)

	_, err = env.leads.UpdateStatus(ctx, admin, lead.ID, domain.LeadStatusLost)
	domainErr := requireStatus(t, err, http.StatusBadRequest)
	assert.Equal(t, "Cannot change status of converted leads", domainErr.Message)

	_, err = env.leads.Convert(ctx, admin, lead.ID, LeadConvertInput{})
	domainErr = requireStatus(t, err, http.StatusBadRequest)
	assert.Equal(t, "Lead is already converted", domainErr.Message)
}

func TestConvertLeadRollsBackOnFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.staff(t, domain.RoleAdmin, "admin@example.com")
	lead := newLead(t, env, admin, "lead@example.com")

	clientsBefore, usersBefore := env.store.ClientCount(), env.store.UserCount()
	activitiesBefore := len(env.store.Activities())
	env.store.FailNext("leads.Update", errors.New("connection reset"))

	_, err := env.leads.Convert(ctx, admin, lead.ID, LeadConvertInput{CreatePortalAccount: true})
	require.Error(t, err)

	assert.Equal(t, clientsBefore, env.store.ClientCount())
	assert.Equal(t, usersBefore, env.store.UserCount())
	assert.Len(t, env.store.Activities(), activitiesBefore)
	assert.Empty(t, env.dispatcher.ofType(events.EventLeadConverted))

	reloaded, err := env.leads.Get(ctx, admin, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LeadStatusNew, reloaded.Status)
	assert.Nil(t, reloaded.ConvertedAt)
}

func TestConvertRejectsExistingClientEmail(t *testing.T) {
	env := newTestEnv(t)
	admin := env.staff(t, domain.RoleAdmin, "admin@example.com")
	env.client(t, admin, "taken@example.com")
	lead := newLead(t, env, admin, "taken@example.com")

	_, err := env.leads.Convert(context.Background(), admin, lead.ID, LeadConvertInput{})
	domainErr := requireStatus(t, err, http.StatusBadRequest)
	assert.Equal(t, "A client with this email already exists", domainErr.Message)
}

func TestLeadStats(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.staff(t, domain.RoleAdmin, "admin@example.com")
	first := newLead(t, env, admin, "one@example.com")
	newLead(t, env, admin, "two@example.com")
	newLead(t, env, admin, "three@example.com")
	_, err := env.leads.Convert(ctx, admin, first.ID, LeadConvertInput{})
	require.NoError(t, err)

	stats, err := env.leads.Stats(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 3000.0, stats.TotalEstimatedValue)
	assert.Equal(t, 33.3, stats.ConversionRate)
	assert.Equal(t, []domain.StatusCount{{Status: "NEW", Count: 2}, {Status: "CONVERTED", Count: 1}}, stats.ByStatus)

	page := repository.Page{Page: 1, Limit: 2}
	leads, total, err := env.leads.List(ctx, admin, LeadListInput{Page: page})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, leads, 2)
}

package authz

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/crm-service/internal/domain"
	apperrors "github.com/spec-kit/crm-service/pkg/util"
)

func strPtr(s string) *string { return &s }

const (
	selfID      = "user-self"
	otherID     = "user-other"
	ownClient   = "client-own"
	otherClient = "client-other"
)

func identity(role domain.Role) domain.Identity {
	id := domain.Identity{UserID: selfID, Role: role}
	if role == domain.RoleClient {
		id.ClientID = strPtr(ownClient)
	}
	return id
}

// relation describes how the acting user relates to a record.
type relation string

const (
	relCreated  relation = "created"
	relAssigned relation = "assigned"
	relOwnClnt  relation = "own-client"
	relNone     relation = "unrelated"
)

func ownerFor(kind Resource, rel relation) OwnerRef {
	ref := OwnerRef{Kind: kind, ID: "res-1", CreatedByID: otherID, AssignedToID: strPtr(otherID), ClientID: otherClient}
	switch rel {
	case relCreated:
		ref.CreatedByID = selfID
	case relAssigned:
		ref.AssignedToID = strPtr(selfID)
	case relOwnClnt:
		ref.ClientID = ownClient
	}
	return ref
}

func TestCanAccessMatrix(t *testing.T) {
	expected := map[domain.Role]map[Resource]map[relation]bool{
		domain.RoleAdmin: {
			ResourceLead:   {relCreated: true, relAssigned: true, relOwnClnt: true, relNone: true},
			ResourceClaim:  {relCreated: true, relAssigned: true, relOwnClnt: true, relNone: true},
			ResourceClient: {relCreated: true, relAssigned: true, relOwnClnt: true, relNone: true},
		},
		domain.RoleSupervisor: {
			ResourceLead:   {relCreated: true, relAssigned: true, relOwnClnt: true, relNone: true},
			ResourceClaim:  {relCreated: true, relAssigned: true, relOwnClnt: true, relNone: true},
			ResourceClient: {relCreated: true, relAssigned: true, relOwnClnt: true, relNone: true},
		},
		domain.RoleOperator: {
			ResourceLead:   {relCreated: true, relAssigned: true, relOwnClnt: false, relNone: false},
			ResourceClaim:  {relCreated: false, relAssigned: true, relOwnClnt: false, relNone: false},
			ResourceClient: {relCreated: true, relAssigned: true, relOwnClnt: true, relNone: true},
		},
		domain.RoleClient: {
			ResourceLead:   {relCreated: false, relAssigned: false, relOwnClnt: false, relNone: false},
			ResourceClaim:  {relCreated: false, relAssigned: false, relOwnClnt: true, relNone: false},
			ResourceClient: {relCreated: false, relAssigned: false, relOwnClnt: true, relNone: false},
		},
	}

	for _, role := range domain.Roles() {
		for _, kind := range []Resource{ResourceLead, ResourceClaim, ResourceClient} {
			for _, rel := range []relation{relCreated, relAssigned, relOwnClnt, relNone} {
				name := fmt.Sprintf("%s/%s/%s", role, kind, rel)
				t.Run(name, func(t *testing.T) {
					want := expected[role][kind][rel]
					got := CanAccess(identity(role), ownerFor(kind, rel))
					assert.Equal(t, want, got)

					err := Authorize(identity(role), ownerFor(kind, rel))
					if want {
						assert.NoError(t, err)
						return
					}
					require.Error(t, err)
					assert.Equal(t, 403, apperrors.ToDomainError(err).HTTPStatus)
				})
			}
		}
	}
}

func TestCanAccessClientWithoutLinkedProfile(t *testing.T) {
	actor := domain.Identity{UserID: selfID, Role: domain.RoleClient}
	ref := OwnerRef{Kind: ResourceClaim, ClientID: ""}
	assert.False(t, CanAccess(actor, ref))
}

func TestCanAccessUnknownRole(t *testing.T) {
	actor := domain.Identity{UserID: selfID, Role: domain.Role("GUEST")}
	assert.False(t, CanAccess(actor, ownerFor(ResourceLead, relCreated)))
}

func TestOperatorClaimCreatorIsNotOwner(t *testing.T) {
	claim := domain.Claim{ID: "c1", CreatedByID: selfID, ClientID: otherClient}
	assert.False(t, CanAccess(identity(domain.RoleOperator), ClaimOwner(claim)))

	claim.AssignedToID = strPtr(selfID)
	assert.True(t, CanAccess(identity(domain.RoleOperator), ClaimOwner(claim)))
}

func TestRouteGates(t *testing.T) {
	for _, role := range domain.Roles() {
		actor := identity(role)
		assert.Equal(t, role.IsManager(), RequireManager(actor) == nil, "manager %s", role)
		assert.Equal(t, role != domain.RoleClient, RequireStaff(actor) == nil, "staff %s", role)
		assert.Equal(t, role == domain.RoleClient, RequireClientPortal(actor) == nil, "portal %s", role)
		assert.Equal(t, role.AtLeast(domain.RoleSupervisor), RequireMinRole(actor, domain.RoleSupervisor) == nil, "min %s", role)
	}

	unlinked := domain.Identity{UserID: selfID, Role: domain.RoleClient}
	err := RequireClientPortal(unlinked)
	require.Error(t, err)
	assert.Equal(t, "No client profile linked", apperrors.ToDomainError(err).Message)

	assert.NoError(t, RequireAnyRole(identity(domain.RoleOperator), domain.RoleAdmin, domain.RoleOperator))
	assert.Error(t, RequireAnyRole(identity(domain.RoleSupervisor), domain.RoleAdmin))
}

func TestScopes(t *testing.T) {
	assert.Nil(t, LeadScope(identity(domain.RoleAdmin)))
	require.NotNil(t, LeadScope(identity(domain.RoleOperator)))
	assert.Equal(t, selfID, *LeadScope(identity(domain.RoleOperator)))

	scope := ClaimScopeFor(identity(domain.RoleClient))
	require.NotNil(t, scope.ClientID)
	assert.Equal(t, ownClient, *scope.ClientID)
	assert.Nil(t, scope.AssignedToID)

	scope = ClaimScopeFor(identity(domain.RoleOperator))
	require.NotNil(t, scope.AssignedToID)
	assert.Nil(t, scope.ClientID)

	assert.Equal(t, ClaimScope{}, ClaimScopeFor(identity(domain.RoleSupervisor)))
}

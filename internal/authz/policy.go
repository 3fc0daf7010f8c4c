// Package authz holds the resource-ownership rules shared by every domain service.
// Functions here are pure: they look only at the acting identity and the owner
// reference of the resource being touched.
package authz

import (
	"github.com/spec-kit/crm-service/internal/domain"
	apperrors "github.com/spec-kit/crm-service/pkg/util"
)

// Resource names a kind of owned record.
type Resource string

const (
	ResourceLead   Resource = "lead"
	ResourceClaim  Resource = "claim"
	ResourceClient Resource = "client"
)

// OwnerRef carries the ownership columns of a single record.
type OwnerRef struct {
	Kind         Resource
	ID           string
	CreatedByID  string
	AssignedToID *string
	ClientID     string
}

// LeadOwner builds the owner reference of a lead.
func LeadOwner(l domain.Lead) OwnerRef {
	return OwnerRef{Kind: ResourceLead, ID: l.ID, CreatedByID: l.CreatedByID, AssignedToID: l.AssignedToID}
}

// ClaimOwner builds the owner reference of a claim.
func ClaimOwner(c domain.Claim) OwnerRef {
	return OwnerRef{Kind: ResourceClaim, ID: c.ID, CreatedByID: c.CreatedByID, AssignedToID: c.AssignedToID, ClientID: c.ClientID}
}

// ClientOwner builds the owner reference of a client record.
func ClientOwner(c domain.Client) OwnerRef {
	return OwnerRef{Kind: ResourceClient, ID: c.ID, ClientID: c.ID}
}

// CanAccess reports whether actor may read or update the referenced record.
//
//	ADMIN, SUPERVISOR  everything
//	OPERATOR           leads they created or are assigned, claims they are assigned, any client
//	CLIENT             their own client record and its claims, never leads
func CanAccess(actor domain.Identity, ref OwnerRef) bool {
	switch actor.Role {
	case domain.RoleAdmin, domain.RoleSupervisor:
		return true
	case domain.RoleOperator:
		switch ref.Kind {
		case ResourceLead:
			return ref.CreatedByID == actor.UserID || isAssignedTo(ref, actor.UserID)
		case ResourceClaim:
			return isAssignedTo(ref, actor.UserID)
		case ResourceClient:
			return true
		}
	case domain.RoleClient:
		clientID := actor.LinkedClientID()
		if clientID == "" {
			return false
		}
		switch ref.Kind {
		case ResourceClaim, ResourceClient:
			return ref.ClientID == clientID
		}
	}
	return false
}

// Authorize returns Forbidden when actor may not touch the referenced record.
func Authorize(actor domain.Identity, ref OwnerRef) error {
	if CanAccess(actor, ref) {
		return nil
	}
	return apperrors.NewForbidden("Access denied to this " + string(ref.Kind))
}

// CanManage reports whether actor may assign or delete leads and claims and
// delete claim attachments.
func CanManage(actor domain.Identity) bool {
	return actor.Role.IsManager()
}

// RequireManager returns Forbidden unless actor is ADMIN or SUPERVISOR.
func RequireManager(actor domain.Identity) error {
	if CanManage(actor) {
		return nil
	}
	return apperrors.NewForbidden("Insufficient permissions")
}

// RequireMinRole returns Forbidden unless actor ranks at least min.
func RequireMinRole(actor domain.Identity, min domain.Role) error {
	if actor.Role.AtLeast(min) {
		return nil
	}
	return apperrors.NewForbidden("Insufficient permissions")
}

// RequireAnyRole returns Forbidden unless actor holds one of roles.
func RequireAnyRole(actor domain.Identity, roles ...domain.Role) error {
	for _, r := range roles {
		if actor.Role == r {
			return nil
		}
	}
	return apperrors.NewForbidden("Insufficient permissions")
}

// RequireStaff returns Forbidden for portal identities.
func RequireStaff(actor domain.Identity) error {
	if actor.Role.IsStaff() {
		return nil
	}
	return apperrors.NewForbidden("Staff access required")
}

// RequireClientPortal returns Forbidden unless actor is a CLIENT with a linked profile.
func RequireClientPortal(actor domain.Identity) error {
	if actor.Role != domain.RoleClient {
		return apperrors.NewForbidden("Client portal access only")
	}
	if actor.LinkedClientID() == "" {
		return apperrors.NewForbidden("No client profile linked")
	}
	return nil
}

// LeadScope returns the user id an operator's lead queries are restricted to, or nil.
func LeadScope(actor domain.Identity) *string {
	if actor.Role == domain.RoleOperator {
		id := actor.UserID
		return &id
	}
	return nil
}

// ClaimScope narrows claim queries: operators to their assignments, clients to their own records.
type ClaimScope struct {
	AssignedToID *string
	ClientID     *string
}

func ClaimScopeFor(actor domain.Identity) ClaimScope {
	switch actor.Role {
	case domain.RoleOperator:
		id := actor.UserID
		return ClaimScope{AssignedToID: &id}
	case domain.RoleClient:
		id := actor.LinkedClientID()
		return ClaimScope{ClientID: &id}
	}
	return ClaimScope{}
}

func isAssignedTo(ref OwnerRef, userID string) bool {
	return ref.AssignedToID != nil && *ref.AssignedToID == userID
}

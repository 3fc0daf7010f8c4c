package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/crm-service/internal/authz"
	"github.com/spec-kit/crm-service/internal/domain"
	apperrors "github.com/spec-kit/crm-service/pkg/util"
)

// gate wraps a policy check as a route handler. It must run after AuthMiddleware.Handle.
func gate(check func(domain.Identity) error) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, ok := IdentityFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("Authentication required")
		}
		if err := check(identity); err != nil {
			return err
		}
		return c.Next()
	}
}

// RequireAuthenticated admits any resolved identity.
func RequireAuthenticated() fiber.Handler {
	return gate(func(domain.Identity) error { return nil })
}

// RequireMinRole admits identities ranked at or above min.
func RequireMinRole(min domain.Role) fiber.Handler {
	return gate(func(id domain.Identity) error { return authz.RequireMinRole(id, min) })
}

// RequireRoles admits identities holding one of the listed roles.
func RequireRoles(allowed ...domain.Role) fiber.Handler {
	return gate(func(id domain.Identity) error { return authz.RequireAnyRole(id, allowed...) })
}

// RequireAdmin admits ADMIN only.
func RequireAdmin() fiber.Handler {
	return RequireRoles(domain.RoleAdmin)
}

// RequireManager admits ADMIN and SUPERVISOR.
func RequireManager() fiber.Handler {
	return RequireRoles(domain.RoleAdmin, domain.RoleSupervisor)
}

// RequireStaff admits every non-CLIENT role.
func RequireStaff() fiber.Handler {
	return gate(authz.RequireStaff)
}

// RequireClientPortal admits CLIENT identities with a linked client profile.
func RequireClientPortal() fiber.Handler {
	return gate(authz.RequireClientPortal)
}

package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/crm-service/internal/api/dto"
	"github.com/spec-kit/crm-service/internal/service"
)

// UsersHandler exposes account administration.
type UsersHandler struct {
	users *service.UserService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(userService *service.UserService) *UsersHandler {
	return &UsersHandler{users: userService}
}

// List handles GET /users.
func (h *UsersHandler) List(c *fiber.Ctx) error {
	actor, err := identity(c)
	if err != nil {
		return err
	}
	filter, err := dto.ParseUserQuery(c)
	if err != nil {
		return err
	}
	users, total, err := h.users.List(c.UserContext(), actor, filter)
	if err != nil {
		return err
	}
	return paginated(c, "Users retrieved", dto.NewUserResponses(users), filter.Page, total)
}

// Assignable handles GET /users/assignable.
func (h *UsersHandler) Assignable(c *fiber.Ctx) error {
	actor, err := identity(c)
	if err != nil {
		return err
	}
	users, err := h.users.Assignable(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return ok(c, "Assignable users retrieved", dto.NewUserResponses(users))
}

// Get handles GET /users/:id.
func (h *UsersHandler) Get(c *fiber.Ctx) error {
	actor, err := identity(c)
	if err != nil {
		return err
	}
	detail, err := h.users.Get(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return ok(c, "User retrieved", dto.NewUserDetailResponse(detail))
}

// Create handles POST /users.
func (h *UsersHandler) Create(c *fiber.Ctx) error {
	actor, err := identity(c)
	if err != nil {
		return err
	}
	var req dto.CreateUserRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	user, err := h.users.Create(c.UserContext(), actor, req.Input())
	if err != nil {
		return err
	}
	return created(c, "User created", dto.NewUserResponse(*user))
}

// Update handles PUT /users/:id.
func (h *UsersHandler) Update(c *fiber.Ctx) error {
	actor, err := identity(c)
	if err != nil {
		return err
	}
	var req dto.UpdateUserRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	user, err := h.users.Update(c.UserContext(), actor, c.Params("id"), req.Input())
	if err != nil {
		return err
	}
	return ok(c, "User updated", dto.NewUserResponse(*user))
}

// Delete handles DELETE /users/:id. Accounts are deactivated, never removed.
func (h *UsersHandler) Delete(c *fiber.Ctx) error {
	actor, err := identity(c)
	if err != nil {
		return err
	}
	if err := h.users.Delete(c.UserContext(), actor, c.Params("id")); err != nil {
		return err
	}
	return ok(c, "User deactivated", nil)
}

// ToggleStatus handles PATCH /users/:id/toggle-status.
func (h *UsersHandler) ToggleStatus(c *fiber.Ctx) error {
	actor, err := identity(c)
	if err != nil {
		return err
	}
	user, err := h.users.ToggleStatus(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	message := "User deactivated"
	if user.IsActive {
		message = "User activated"
	}
	return ok(c, message, dto.NewUserResponse(*user))
}

// ResetPassword handles POST /users/:id/reset-password.
func (h *UsersHandler) ResetPassword(c *fiber.Ctx) error {
	actor, err := identity(c)
	if err != nil {
		return err
	}
	var req dto.ResetPasswordRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.users.ResetPassword(c.UserContext(), actor, c.Params("id"), req.NewPassword); err != nil {
		return err
	}
	return ok(c, "Password reset successfully", nil)
}

package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/crm-service/internal/api/dto"
	"github.com/spec-kit/crm-service/internal/service"
)

// AuthHandler exposes login, token refresh and the caller's own account.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	session, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return ok(c, "Login successful", dto.NewLoginResponse(session))
}

// Refresh handles POST /auth/refresh.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req dto.RefreshRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	pair, err := h.auth.Refresh(c.UserContext(), req.RefreshToken)
	if err != nil {
		return err
	}
	return ok(c, "Token refreshed", dto.NewTokenResponse(pair))
}

// Logout handles POST /auth/logout. The refresh token is optional.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	actor, err := identity(c)
	if err != nil {
		return err
	}
	var req dto.RefreshRequest
	if err := dto.ParseBody(c, &req); err != nil {
		return err
	}
	if err := h.auth.Logout(c.UserContext(), actor, req.RefreshToken); err != nil {
		return err
	}
	return ok(c, "Logged out", nil)
}

// Me handles GET /auth/me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	actor, err := identity(c)
	if err != nil {
		return err
	}
	profile, err := h.auth.Me(c.UserContext(), actor)
	if err != nil {
		return err
	}
	user := dto.NewUserResponse(profile.User)
	user.ClientID = profile.ClientID
	return ok(c, "Profile retrieved", user)
}

// ChangePassword handles PUT /auth/change-password.
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	actor, err := identity(c)
	if err != nil {
		return err
	}
	var req dto.ChangePasswordRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.auth.ChangePassword(c.UserContext(), actor, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return ok(c, "Password changed successfully", nil)
}

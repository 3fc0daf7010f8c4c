package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/crm-service/internal/api/dto"
	"github.com/spec-kit/crm-service/internal/auth"
	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/repository"
	apperrors "github.com/spec-kit/crm-service/pkg/util"
)

// envelope is the body of every successful response.
type envelope struct {
	Success bool      `json:"success"`
	Message string    `json:"message"`
	Data    any       `json:"data,omitempty"`
	Meta    *dto.Meta `json:"meta,omitempty"`
}

func ok(c *fiber.Ctx, message string, data any) error {
	return c.JSON(envelope{Success: true, Message: message, Data: data})
}

func created(c *fiber.Ctx, message string, data any) error {
	return c.Status(http.StatusCreated).JSON(envelope{Success: true, Message: message, Data: data})
}

func paginated(c *fiber.Ctx, message string, data any, page repository.Page, total int) error {
	meta := dto.NewMeta(page, total)
	return c.JSON(envelope{Success: true, Message: message, Data: data, Meta: &meta})
}

// identity returns the caller resolved by the auth middleware.
func identity(c *fiber.Ctx) (domain.Identity, error) {
	id, found := auth.IdentityFromContext(c)
	if !found {
		return domain.Identity{}, apperrors.NewUnauthorized("Authentication required")
	}
	return id, nil
}

type validatable interface {
	Validate() error
}

// bind parses the JSON body into req and validates it.
func bind(c *fiber.Ctx, req validatable) error {
	if err := dto.ParseBody(c, req); err != nil {
		return err
	}
	return req.Validate()
}

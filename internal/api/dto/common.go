package dto

import (
	"net/mail"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/crm-service/internal/repository"
	apperrors "github.com/spec-kit/crm-service/pkg/util"
)

// Meta describes one page of a list response.
type Meta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// NewMeta builds pagination metadata for a normalized page.
func NewMeta(page repository.Page, total int) Meta {
	page = page.Normalize()
	pages := 0
	if total > 0 {
		pages = (total + page.Limit - 1) / page.Limit
	}
	return Meta{Page: page.Page, Limit: page.Limit, Total: total, TotalPages: pages}
}

// FieldError names one invalid request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// validator accumulates field errors so a request reports all of them at once.
type validator struct {
	errs []FieldError
}

func (v *validator) add(field, message string) {
	v.errs = append(v.errs, FieldError{Field: field, Message: message})
}

func (v *validator) required(field, value string) {
	if strings.TrimSpace(value) == "" {
		v.add(field, field+" is required")
	}
}

func (v *validator) email(field, value string) {
	if strings.TrimSpace(value) == "" {
		v.add(field, field+" is required")
		return
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(value)); err != nil {
		v.add(field, "Invalid email address")
	}
}

func (v *validator) maxLen(field, value string, n int) {
	if len(value) > n {
		v.add(field, field+" must be at most "+strconv.Itoa(n)+" characters")
	}
}

func (v *validator) check(ok bool, field, message string) {
	if !ok {
		v.add(field, message)
	}
}

func (v *validator) err() error {
	if len(v.errs) == 0 {
		return nil
	}
	return apperrors.NewValidationError("Validation failed", map[string]any{"errors": v.errs})
}

// ParsePage reads page, limit, sortBy and sortOrder. sortBy values outside
// sortable are dropped so the repository falls back to its default column.
func ParsePage(c *fiber.Ctx, defaultOrder string, sortable ...string) repository.Page {
	page := repository.Page{
		Page:      parseInt(c.Query("page"), 1),
		Limit:     parseInt(c.Query("limit"), 10),
		SortOrder: strings.ToLower(c.Query("sortOrder", defaultOrder)),
	}
	sortBy := c.Query("sortBy")
	for _, allowed := range sortable {
		if sortBy == allowed {
			page.SortBy = sortBy
			break
		}
	}
	return page.Normalize()
}

// QueryBool parses an optional boolean query parameter.
func QueryBool(c *fiber.Ctx, key string) (*bool, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, apperrors.NewValidationError("Invalid query parameter", map[string]any{"field": key})
	}
	return &parsed, nil
}

// QueryString returns an optional trimmed query parameter.
func QueryString(c *fiber.Ctx, key string) *string {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil
	}
	return &raw
}

// ParseBody decodes the JSON body into dst.
func ParseBody(c *fiber.Ctx, dst any) error {
	if len(c.Body()) == 0 {
		return nil
	}
	if err := c.BodyParser(dst); err != nil {
		return apperrors.NewValidationError("Invalid request body", nil)
	}
	return nil
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

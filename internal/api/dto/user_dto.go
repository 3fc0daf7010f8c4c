package dto

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/crm-service/internal/auth"
	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/repository"
	"github.com/spec-kit/crm-service/internal/service"
	apperrors "github.com/spec-kit/crm-service/pkg/util"
)

// LoginRequest payload for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r LoginRequest) Validate() error {
	var v validator
	v.email("email", r.Email)
	v.required("password", r.Password)
	return v.err()
}

// RefreshRequest payload for POST /auth/refresh and /auth/logout.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (r RefreshRequest) Validate() error {
	var v validator
	v.required("refreshToken", r.RefreshToken)
	return v.err()
}

// ChangePasswordRequest payload for PUT /auth/change-password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (r ChangePasswordRequest) Validate() error {
	var v validator
	v.required("currentPassword", r.CurrentPassword)
	v.required("newPassword", r.NewPassword)
	return v.err()
}

// TokenResponse carries a freshly issued pair.
type TokenResponse struct {
	AccessToken      string    `json:"accessToken"`
	RefreshToken     string    `json:"refreshToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}

// LoginResponse is the body of a successful login.
type LoginResponse struct {
	User         UserResponse `json:"user"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
}

// UserResponse never carries the password hash.
type UserResponse struct {
	ID        string      `json:"id"`
	Email     string      `json:"email"`
	FirstName string      `json:"firstName"`
	LastName  string      `json:"lastName"`
	Phone     *string     `json:"phone"`
	Role      domain.Role `json:"role"`
	IsActive  bool        `json:"isActive"`
	ClientID  *string     `json:"clientId,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

type UserCountsResponse struct {
	CreatedLeads   int `json:"createdLeads"`
	AssignedLeads  int `json:"assignedLeads"`
	AssignedClaims int `json:"assignedClaims"`
}

type UserDetailResponse struct {
	UserResponse
	Count UserCountsResponse `json:"_count"`
}

// UserRefResponse is the compact user embedded in other resources.
type UserRefResponse struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

type CreateUserRequest struct {
	Email     string      `json:"email"`
	Password  string      `json:"password"`
	FirstName string      `json:"firstName"`
	LastName  string      `json:"lastName"`
	Phone     *string     `json:"phone"`
	Role      domain.Role `json:"role"`
	IsActive  *bool       `json:"isActive"`
}

func (r CreateUserRequest) Validate() error {
	var v validator
	v.email("email", r.Email)
	v.required("password", r.Password)
	v.required("firstName", r.FirstName)
	v.required("lastName", r.LastName)
	v.maxLen("firstName", r.FirstName, 100)
	v.maxLen("lastName", r.LastName, 100)
	v.check(r.Role == "" || r.Role.Valid(), "role", "Invalid role")
	return v.err()
}

func (r CreateUserRequest) Input() service.UserCreateInput {
	return service.UserCreateInput{
		Email:     r.Email,
		Password:  r.Password,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Phone:     r.Phone,
		Role:      r.Role,
		IsActive:  r.IsActive,
	}
}

type UpdateUserRequest struct {
	Email     *string                 `json:"email"`
	FirstName *string                 `json:"firstName"`
	LastName  *string                 `json:"lastName"`
	Phone     domain.Nullable[string] `json:"phone"`
	Role      *domain.Role            `json:"role"`
	IsActive  *bool                   `json:"isActive"`
}

func (r UpdateUserRequest) Validate() error {
	var v validator
	if r.Email != nil {
		v.email("email", *r.Email)
	}
	if r.FirstName != nil {
		v.required("firstName", *r.FirstName)
	}
	if r.LastName != nil {
		v.required("lastName", *r.LastName)
	}
	v.check(r.Role == nil || r.Role.Valid(), "role", "Invalid role")
	return v.err()
}

func (r UpdateUserRequest) Input() service.UserUpdateInput {
	return service.UserUpdateInput{
		Email:     r.Email,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Phone:     r.Phone,
		Role:      r.Role,
		IsActive:  r.IsActive,
	}
}

type ResetPasswordRequest struct {
	NewPassword string `json:"newPassword"`
}

func (r ResetPasswordRequest) Validate() error {
	var v validator
	v.required("newPassword", r.NewPassword)
	return v.err()
}

func NewTokenResponse(pair auth.TokenPair) TokenResponse {
	return TokenResponse{
		AccessToken:      pair.AccessToken,
		RefreshToken:     pair.RefreshToken,
		AccessExpiresAt:  pair.AccessExpiresAt,
		RefreshExpiresAt: pair.RefreshExpiresAt,
	}
}

func NewLoginResponse(session *service.Session) LoginResponse {
	user := NewUserResponse(session.User)
	user.ClientID = session.ClientID
	return LoginResponse{
		User:         user,
		AccessToken:  session.Tokens.AccessToken,
		RefreshToken: session.Tokens.RefreshToken,
	}
}

func NewUserResponse(u domain.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Phone:     u.Phone,
		Role:      u.Role,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func NewUserResponses(users []domain.User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, NewUserResponse(u))
	}
	return out
}

func NewUserDetailResponse(detail *service.UserDetail) UserDetailResponse {
	return UserDetailResponse{
		UserResponse: NewUserResponse(detail.User),
		Count: UserCountsResponse{
			CreatedLeads:   detail.Counts.CreatedLeads,
			AssignedLeads:  detail.Counts.AssignedLeads,
			AssignedClaims: detail.Counts.AssignedClaims,
		},
	}
}

func newUserRef(ref *domain.UserRef) *UserRefResponse {
	if ref == nil {
		return nil
	}
	return &UserRefResponse{ID: ref.ID, FirstName: ref.FirstName, LastName: ref.LastName, Email: ref.Email}
}

// ParseUserQuery reads GET /users filters.
func ParseUserQuery(c *fiber.Ctx) (repository.UserFilter, error) {
	filter := repository.UserFilter{
		Search: strings.TrimSpace(c.Query("search")),
		Page:   ParsePage(c, "desc", "createdAt", "firstName", "lastName", "email", "role"),
	}
	if raw := QueryString(c, "role"); raw != nil {
		role := domain.Role(strings.ToUpper(*raw))
		if !role.Valid() {
			return filter, apperrors.NewValidationError("Invalid role", map[string]any{"field": "role"})
		}
		filter.Role = &role
	}
	var err error
	if filter.IsActive, err = QueryBool(c, "isActive"); err != nil {
		return filter, err
	}
	return filter, nil
}

package service

import (
	"context"
	"strings"

	"github.com/spec-kit/crm-service/internal/auth"
	"github.com/spec-kit/crm-service/internal/authz"
	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/repository"
	apperrors "github.com/spec-kit/crm-service/pkg/util"
)

// UserService manages staff and portal accounts. Every method except
// Assignable is restricted to ADMIN.
type UserService struct {
	users      repository.UserRepository
	bcryptCost int
}

// UserDependencies bundles repositories for the user service.
type UserDependencies struct {
	UserRepo   repository.UserRepository
	BcryptCost int
}

// UserCreateInput describes a new account.
type UserCreateInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     *string
	Role      domain.Role
	IsActive  *bool
}

// UserUpdateInput describes a partial account update.
type UserUpdateInput struct {
	Email     *string
	FirstName *string
	LastName  *string
	Phone     domain.Nullable[string]
	Role      *domain.Role
	IsActive  *bool
}

// UserDetail is a user with workload counters.
type UserDetail struct {
	User   domain.User
	Counts domain.UserCounts
}

func NewUserService(deps UserDependencies) *UserService {
	return &UserService{users: deps.UserRepo, bcryptCost: deps.BcryptCost}
}

func (s *UserService) List(ctx context.Context, actor domain.Identity, filter repository.UserFilter) ([]domain.User, int, error) {
	if err := authz.RequireAnyRole(actor, domain.RoleAdmin); err != nil {
		return nil, 0, err
	}
	return s.users.List(ctx, filter)
}

func (s *UserService) Get(ctx context.Context, actor domain.Identity, id string) (*UserDetail, error) {
	if err := authz.RequireAnyRole(actor, domain.RoleAdmin); err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "User", id)
	}
	counts, err := s.users.Counts(ctx, id)
	if err != nil {
		return nil, err
	}
	return &UserDetail{User: *user, Counts: counts}, nil
}

func (s *UserService) Create(ctx context.Context, actor domain.Identity, input UserCreateInput) (*domain.User, error) {
	if err := authz.RequireAnyRole(actor, domain.RoleAdmin); err != nil {
		return nil, err
	}
	if !auth.StrongPassword(input.Password) {
		return nil, apperrors.NewValidationError(weakPasswordMessage, map[string]any{"field": "password"})
	}
	email := normalizeEmail(input.Email)
	if err := s.ensureEmailFree(ctx, email, ""); err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	role := input.Role
	if role == "" {
		role = domain.RoleOperator
	}
	active := true
	if input.IsActive != nil {
		active = *input.IsActive
	}
	user := &domain.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Phone:        optional(input.Phone),
		Role:         role,
		IsActive:     active,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) Update(ctx context.Context, actor domain.Identity, id string, input UserUpdateInput) (*domain.User, error) {
	if err := authz.RequireAnyRole(actor, domain.RoleAdmin); err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "User", id)
	}
	if input.Email != nil {
		email := normalizeEmail(*input.Email)
		if email != user.Email {
			if err := s.ensureEmailFree(ctx, email, user.ID); err != nil {
				return nil, err
			}
			user.Email = email
		}
	}
	if input.FirstName != nil {
		user.FirstName = strings.TrimSpace(*input.FirstName)
	}
	if input.LastName != nil {
		user.LastName = strings.TrimSpace(*input.LastName)
	}
	applyText(input.Phone, &user.Phone)
	if input.Role != nil {
		user.Role = *input.Role
	}
	if input.IsActive != nil {
		user.IsActive = *input.IsActive
	}
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Delete deactivates the account; users are never removed.
func (s *UserService) Delete(ctx context.Context, actor domain.Identity, id string) error {
	if err := authz.RequireAnyRole(actor, domain.RoleAdmin); err != nil {
		return err
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return notFound(err, "User", id)
	}
	user.IsActive = false
	return s.users.Update(ctx, user)
}

func (s *UserService) ToggleStatus(ctx context.Context, actor domain.Identity, id string) (*domain.User, error) {
	if err := authz.RequireAnyRole(actor, domain.RoleAdmin); err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "User", id)
	}
	user.IsActive = !user.IsActive
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) ResetPassword(ctx context.Context, actor domain.Identity, id, newPassword string) error {
	if err := authz.RequireAnyRole(actor, domain.RoleAdmin); err != nil {
		return err
	}
	if !auth.StrongPassword(newPassword) {
		return apperrors.NewValidationError(weakPasswordMessage, map[string]any{"field": "newPassword"})
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return notFound(err, "User", id)
	}
	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	return s.users.Update(ctx, user)
}

// Assignable lists active staff that leads and claims can be assigned to.
func (s *UserService) Assignable(ctx context.Context, actor domain.Identity) ([]domain.User, error) {
	if err := authz.RequireStaff(actor); err != nil {
		return nil, err
	}
	return s.users.ListAssignable(ctx)
}

func (s *UserService) ensureEmailFree(ctx context.Context, email, selfID string) error {
	existing, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil && existing.ID != selfID:
		return apperrors.NewBadRequest("Email already in use")
	case err != nil && !isNotFound(err):
		return err
	}
	return nil
}

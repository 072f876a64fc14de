package service

import (
	"context"

	"github.com/civicpulse/issue-service/internal/domain"
	"github.com/civicpulse/issue-service/internal/policy"
	"github.com/civicpulse/issue-service/internal/query"
	"github.com/civicpulse/issue-service/internal/repository"
	apperrors "github.com/civicpulse/issue-service/pkg/util/errorutil"
)

// UserService exposes profile and role management.
type UserService struct {
	users repository.UserRepository
}

// UserDependencies bundles repositories for user service.
type UserDependencies struct {
	UserRepo repository.UserRepository
}

// UserListFilter narrows the admin listing.
type UserListFilter struct {
	Role *domain.Role
	Page query.Page
}

// UserPage is one page of users with their issue counts.
type UserPage struct {
	Users []domain.UserStats
	Meta  query.Meta
}

// UserUpdateInput carries optional profile changes.
type UserUpdateInput struct {
	Name           *string
	ProfilePicture *string
}

// NewUserService constructs the service.
func NewUserService(deps UserDependencies) *UserService {
	return &UserService{users: deps.UserRepo}
}

// List returns users with issue counts. ADMIN only.
func (s *UserService) List(ctx context.Context, actor policy.Actor, filter UserListFilter) (*UserPage, error) {
	if err := policy.Enforce(actor, policy.ActionListUsers, ""); err != nil {
		return nil, err
	}
	if filter.Role != nil && !filter.Role.Valid() {
		return nil, apperrors.NewValidationError("validation failed", map[string]any{"role": "unknown role"})
	}
	if filter.Page.Limit == 0 {
		filter.Page = query.NewPage(filter.Page.Page, query.DefaultLimit)
	}
	rows, total, err := s.users.List(ctx, repository.UserFilter{Role: filter.Role, Page: filter.Page})
	if err != nil {
		return nil, err
	}
	return &UserPage{Users: rows, Meta: filter.Page.MetaFor(total)}, nil
}

// Get returns a profile visible to its owner or an ADMIN.
func (s *UserService) Get(ctx context.Context, actor policy.Actor, id string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "user", id)
	}
	if err := policy.Enforce(actor, policy.ActionViewUser, user.ID); err != nil {
		return nil, err
	}
	return user, nil
}

// Update changes the display name and profile picture.
func (s *UserService) Update(ctx context.Context, actor policy.Actor, id string, input UserUpdateInput) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "user", id)
	}
	if err := policy.Enforce(actor, policy.ActionUpdateUser, user.ID); err != nil {
		return nil, err
	}

	if input.Name != nil {
		user.Name = *input.Name
	}
	if input.ProfilePicture != nil {
		user.ProfilePicture = input.ProfilePicture
	}
	errs := fieldErrors{}
	errs.text("name", user.Name, 100)
	if err := errs.err(); err != nil {
		return nil, err
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, notFoundOr(err, "user", id)
	}
	return user, nil
}

// ChangeRole sets a user's role. ADMIN only.
func (s *UserService) ChangeRole(ctx context.Context, actor policy.Actor, id string, role domain.Role) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "user", id)
	}
	if err := policy.Enforce(actor, policy.ActionChangeRole, user.ID); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, apperrors.NewValidationError("validation failed", map[string]any{"role": "unknown role"})
	}
	if user.Role == role {
		return user, nil
	}
	user.Role = role
	if err := s.users.Update(ctx, user); err != nil {
		return nil, notFoundOr(err, "user", id)
	}
	return user, nil
}

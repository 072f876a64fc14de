package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/civicpulse/issue-service/internal/auth"
	"github.com/civicpulse/issue-service/internal/config"
	"github.com/civicpulse/issue-service/internal/domain"
	"github.com/civicpulse/issue-service/internal/repository"
	apperrors "github.com/civicpulse/issue-service/pkg/util/errorutil"
)

// AuthService coordinates registration and login flows.
type AuthService struct {
	users      repository.UserRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
	logger     *zap.Logger
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	UserRepo repository.UserRepository
	Logger   *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:      deps.UserRepo,
		tokenMgr:   auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
		bcryptCost: cfg.BcryptCost,
		logger:     logger,
	}
}

// Register creates a CITIZEN account and signs a token for it.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*domain.User, string, time.Time, error) {
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return nil, "", time.Time{}, apperrors.NewValidationError("validation failed", map[string]any{"password": "must be at most 72 bytes"})
		}
		return nil, "", time.Time{}, err
	}

	user := &domain.User{
		Name:         strings.TrimSpace(name),
		Email:        normalizeEmail(email),
		PasswordHash: hash,
		Role:         domain.RoleCitizen,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, "", time.Time{}, apperrors.NewConflict("email already registered", map[string]any{"email": user.Email})
		}
		return nil, "", time.Time{}, err
	}

	token, exp, err := s.tokenMgr.GenerateToken(user)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return user, token, exp, nil
}

// Login authenticates by email and password. Unknown email and wrong password
// produce the same error.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, string, time.Time, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", time.Time{}, apperrors.NewUnauthenticated("invalid email or password")
		}
		return nil, "", time.Time{}, err
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, apperrors.NewUnauthenticated("invalid email or password")
	}
	token, exp, err := s.tokenMgr.GenerateToken(user)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return user, token, exp, nil
}

// Me returns the caller's own account.
func (s *AuthService) Me(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, "user", userID)
	}
	return user, nil
}

// EnsureAdmin makes sure the bootstrap account exists with role ADMIN.
// An existing account keeps its password and is promoted if needed.
func (s *AuthService) EnsureAdmin(ctx context.Context, admin config.BootstrapAdmin) error {
	if !admin.Enabled() {
		return nil
	}
	email := normalizeEmail(admin.Email)
	existing, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.Role == domain.RoleAdmin {
			return nil
		}
		existing.Role = domain.RoleAdmin
		if err := s.users.Update(ctx, existing); err != nil {
			return err
		}
		s.logger.Info("promoted bootstrap admin", zap.String("user_id", existing.ID))
		return nil
	case !errors.Is(err, repository.ErrNotFound):
		return err
	}

	hash, err := auth.HashPassword(admin.Password, s.bcryptCost)
	if err != nil {
		return err
	}
	user := &domain.User{
		Name:         admin.Name,
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleAdmin,
	}
	if err := s.users.Create(ctx, user); err != nil {
		// Another replica may have won the race.
		if errors.Is(err, repository.ErrDuplicate) {
			return nil
		}
		return err
	}
	s.logger.Info("created bootstrap admin", zap.String("user_id", user.ID))
	return nil
}

// TokenManager exposes token manager for middleware.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

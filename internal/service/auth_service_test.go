package service

import (
	"context"
	"testing"

	"github.com/civicpulse/issue-service/internal/config"
	"github.com/civicpulse/issue-service/internal/domain"
	"github.com/civicpulse/issue-service/internal/repository/repotest"
	apperrors "github.com/civicpulse/issue-service/pkg/util/errorutil"
)

func newAuthService(store *repotest.Store) *AuthService {
	return NewAuthService(config.AuthConfig{JWTSecret: "secret", AccessTokenTTLMinutes: 30, BcryptCost: 4}, AuthDependencies{
		UserRepo: store.Users(),
	})
}

func TestRegisterAndLogin(t *testing.T) {
	store := repotest.NewStore()
	svc := newAuthService(store)
	ctx := context.Background()

	user, token, _, err := svc.Register(ctx, "Avery", " Avery@Example.com ", "secret1")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if user.Role != domain.RoleCitizen || user.Email != "avery@example.com" || token == "" {
		t.Fatalf("unexpected registration: %+v", user)
	}
	if user.PasswordHash == "secret1" {
		t.Fatal("password stored in clear text")
	}

	claims, err := svc.TokenManager().ParseToken(token)
	if err != nil || claims.Subject != user.ID {
		t.Fatalf("token does not identify the user: %v", err)
	}

	_, _, _, err = svc.Register(ctx, "Other", "AVERY@example.com", "secret2")
	assertCode(t, err, apperrors.CodeConflict)

	if _, _, _, err := svc.Login(ctx, "avery@example.com", "secret1"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	_, _, _, err = svc.Login(ctx, "avery@example.com", "wrong")
	assertCode(t, err, apperrors.CodeUnauthenticated)
	_, _, _, err = svc.Login(ctx, "nobody@example.com", "secret1")
	assertCode(t, err, apperrors.CodeUnauthenticated)
}

func TestEnsureAdmin(t *testing.T) {
	store := repotest.NewStore()
	svc := newAuthService(store)
	ctx := context.Background()
	admin := config.BootstrapAdmin{Name: "Root", Email: "root@example.com", Password: "changeme"}

	if err := svc.EnsureAdmin(ctx, config.BootstrapAdmin{}); err != nil {
		t.Fatalf("disabled EnsureAdmin() error = %v", err)
	}

	if err := svc.EnsureAdmin(ctx, admin); err != nil {
		t.Fatalf("EnsureAdmin() error = %v", err)
	}
	if err := svc.EnsureAdmin(ctx, admin); err != nil {
		t.Fatalf("second EnsureAdmin() error = %v", err)
	}
	admins, _ := store.Users().ListByRole(ctx, domain.RoleAdmin)
	if len(admins) != 1 {
		t.Fatalf("expected exactly one admin, got %d", len(admins))
	}
	if _, _, _, err := svc.Login(ctx, admin.Email, admin.Password); err != nil {
		t.Fatalf("bootstrap admin cannot log in: %v", err)
	}

	// An existing citizen account is promoted.
	other := repotest.NewStore()
	svc = newAuthService(other)
	if _, _, _, err := svc.Register(ctx, "Root", admin.Email, "whatever"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := svc.EnsureAdmin(ctx, admin); err != nil {
		t.Fatalf("EnsureAdmin() error = %v", err)
	}
	promoted, _ := other.Users().GetByEmail(ctx, admin.Email)
	if promoted.Role != domain.RoleAdmin {
		t.Fatalf("role = %s, want ADMIN", promoted.Role)
	}
}

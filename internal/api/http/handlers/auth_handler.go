package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/civicpulse/issue-service/internal/api/dto"
	"github.com/civicpulse/issue-service/internal/auth"
	"github.com/civicpulse/issue-service/internal/service"
	apperrors "github.com/civicpulse/issue-service/pkg/util/errorutil"
)

// AuthHandler exposes registration, login and the current-user endpoint.
type AuthHandler struct {
	binder
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService, validator *dto.Validator) *AuthHandler {
	return &AuthHandler{binder: newBinder(validator), auth: authService}
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}

	user, token, exp, err := h.auth.Register(c.UserContext(), req.Name, req.Email, req.Password)
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, dto.AuthResponse{User: dto.NewUserResponse(user), Token: token, ExpiresAt: exp})
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}

	user, token, exp, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.AuthResponse{User: dto.NewUserResponse(user), Token: token, ExpiresAt: exp})
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	user, err := h.auth.Me(c.UserContext(), principal.ID)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, fiber.Map{"user": dto.NewUserResponse(user)})
}

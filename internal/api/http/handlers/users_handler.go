package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/civicpulse/issue-service/internal/api/dto"
	"github.com/civicpulse/issue-service/internal/service"
)

// UsersHandler serves profiles, the admin listing and role changes.
type UsersHandler struct {
	binder
	users  *service.UserService
	issues *service.IssueService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(userService *service.UserService, issueService *service.IssueService, validator *dto.Validator) *UsersHandler {
	return &UsersHandler{binder: newBinder(validator), users: userService, issues: issueService}
}

// List GET /api/users (ADMIN).
func (h *UsersHandler) List(c *fiber.Ctx) error {
	filter, err := parseUserQuery(c)
	if err != nil {
		return err
	}
	page, err := h.users.List(c.UserContext(), actor(c), filter)
	if err != nil {
		return err
	}
	return respondList(c, "users", dto.NewUserSummaryList(page.Users), &page.Meta)
}

// Get GET /api/users/:id.
func (h *UsersHandler) Get(c *fiber.Ctx) error {
	user, err := h.users.Get(c.UserContext(), actor(c), c.Params("id"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, fiber.Map{"user": dto.NewUserResponse(user)})
}

// Update PUT /api/users/:id.
func (h *UsersHandler) Update(c *fiber.Ctx) error {
	var req dto.UpdateUserRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}
	user, err := h.users.Update(c.UserContext(), actor(c), c.Params("id"), service.UserUpdateInput{
		Name:           req.Name,
		ProfilePicture: req.ProfilePicture,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, fiber.Map{"user": dto.NewUserResponse(user)})
}

// Issues GET /api/users/:id/issues.
func (h *UsersHandler) Issues(c *fiber.Ctx) error {
	filter, err := parseIssueQuery(c)
	if err != nil {
		return err
	}
	page, err := h.issues.ListForUser(c.UserContext(), actor(c), c.Params("id"), filter)
	if err != nil {
		return err
	}
	return respondList(c, "issues", dto.NewIssueListResponse(page.Issues), &page.Meta)
}

// ChangeRole PUT /api/users/:id/role (ADMIN).
func (h *UsersHandler) ChangeRole(c *fiber.Ctx) error {
	var req dto.ChangeRoleRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}
	user, err := h.users.ChangeRole(c.UserContext(), actor(c), c.Params("id"), req.Role)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, fiber.Map{"user": dto.NewUserResponse(user)})
}

package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/civicpulse/issue-service/internal/api/dto"
	"github.com/civicpulse/issue-service/internal/service"
)

// IssuesHandler serves the issue collection and its lifecycle operations.
type IssuesHandler struct {
	binder
	issues *service.IssueService
}

// NewIssuesHandler constructs handler.
func NewIssuesHandler(issueService *service.IssueService, validator *dto.Validator) *IssuesHandler {
	return &IssuesHandler{binder: newBinder(validator), issues: issueService}
}

// List GET /api/issues.
func (h *IssuesHandler) List(c *fiber.Ctx) error {
	filter, err := parseIssueQuery(c)
	if err != nil {
		return err
	}
	page, err := h.issues.List(c.UserContext(), filter)
	if err != nil {
		return err
	}
	return respondList(c, "issues", dto.NewIssueListResponse(page.Issues), &page.Meta)
}

// Get GET /api/issues/:id, including reporter and comments.
func (h *IssuesHandler) Get(c *fiber.Ctx) error {
	issue, comments, err := h.issues.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	resp := dto.NewIssueResponse(issue)
	resp.Comments = dto.NewCommentListResponse(comments)
	return respond(c, http.StatusOK, fiber.Map{"issue": resp})
}

// Create POST /api/issues.
func (h *IssuesHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateIssueRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}

	issue, err := h.issues.Create(c.UserContext(), actor(c), service.IssueCreateInput{
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		Category:    req.Category,
		Images:      req.Images,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, fiber.Map{"issue": dto.NewIssueResponse(issue)})
}

// Update PUT /api/issues/:id.
func (h *IssuesHandler) Update(c *fiber.Ctx) error {
	var req dto.UpdateIssueRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}

	issue, err := h.issues.Update(c.UserContext(), actor(c), c.Params("id"), service.IssueUpdateInput{
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		Category:    req.Category,
		Status:      req.Status,
		Images:      req.Images,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, fiber.Map{"issue": dto.NewIssueResponse(issue)})
}

// Delete DELETE /api/issues/:id. Comments go with the issue.
func (h *IssuesHandler) Delete(c *fiber.Ctx) error {
	if err := h.issues.Delete(c.UserContext(), actor(c), c.Params("id")); err != nil {
		return err
	}
	return respondMessage(c, "issue deleted")
}

// Upvote POST /api/issues/:id/upvote.
func (h *IssuesHandler) Upvote(c *fiber.Ctx) error {
	id := c.Params("id")
	upvotes, err := h.issues.Upvote(c.UserContext(), actor(c), id)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, fiber.Map{"issue": dto.UpvoteResponse{ID: id, Upvotes: upvotes}})
}

// History GET /api/issues/:id/history.
func (h *IssuesHandler) History(c *fiber.Ctx) error {
	entries, err := h.issues.History(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return respondList(c, "history", dto.NewIssueHistoryResponse(entries), nil)
}

package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/civicpulse/issue-service/internal/api/dto"
	"github.com/civicpulse/issue-service/internal/service"
)

// CommentsHandler serves the discussion thread under an issue.
type CommentsHandler struct {
	binder
	comments *service.CommentService
}

// NewCommentsHandler constructs handler.
func NewCommentsHandler(commentService *service.CommentService, validator *dto.Validator) *CommentsHandler {
	return &CommentsHandler{binder: newBinder(validator), comments: commentService}
}

// List GET /api/issues/:id/comments, newest first.
func (h *CommentsHandler) List(c *fiber.Ctx) error {
	comments, err := h.comments.List(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return respondList(c, "comments", dto.NewCommentListResponse(comments), nil)
}

// Add POST /api/issues/:id/comments.
func (h *CommentsHandler) Add(c *fiber.Ctx) error {
	var req dto.CreateCommentRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}
	comment, err := h.comments.Add(c.UserContext(), actor(c), c.Params("id"), req.Content)
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, fiber.Map{"comment": dto.NewCommentResponse(comment)})
}

// Delete DELETE /api/issues/:id/comments/:commentId.
func (h *CommentsHandler) Delete(c *fiber.Ctx) error {
	if err := h.comments.Delete(c.UserContext(), actor(c), c.Params("id"), c.Params("commentId")); err != nil {
		return err
	}
	return respondMessage(c, "comment deleted")
}

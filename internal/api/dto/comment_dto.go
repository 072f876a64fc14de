package dto

import (
	"strings"
	"time"

	"github.com/civicpulse/issue-service/internal/domain"
)

// CreateCommentRequest payload.
type CreateCommentRequest struct {
	Content string `json:"content" validate:"required,notblank,max=1000"`
}

// Normalize trims content before validation.
func (r *CreateCommentRequest) Normalize() {
	r.Content = strings.TrimSpace(r.Content)
}

// CommentResponse represents a thread message.
type CommentResponse struct {
	ID        string        `json:"id"`
	Content   string        `json:"content"`
	IssueID   string        `json:"issueId"`
	AuthorID  string        `json:"authorId"`
	Author    *UserResponse `json:"author,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
}

// NewCommentResponse projects a domain comment with its author.
func NewCommentResponse(comment *domain.Comment) CommentResponse {
	resp := CommentResponse{
		ID:        comment.ID,
		Content:   comment.Content,
		IssueID:   comment.IssueID,
		AuthorID:  comment.AuthorID,
		CreatedAt: comment.CreatedAt,
	}
	if comment.Author != nil {
		author := NewUserResponse(comment.Author)
		resp.Author = &author
	}
	return resp
}

// NewCommentListResponse projects a thread.
func NewCommentListResponse(comments []domain.Comment) []CommentResponse {
	out := make([]CommentResponse, 0, len(comments))
	for i := range comments {
		out = append(out, NewCommentResponse(&comments[i]))
	}
	return out
}

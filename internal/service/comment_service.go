package service

import (
	"context"
	"strings"

	"github.com/civicpulse/issue-service/internal/domain"
	"github.com/civicpulse/issue-service/internal/policy"
	"github.com/civicpulse/issue-service/internal/repository"
)

// CommentService manages discussion threads on issues.
type CommentService struct {
	issues   repository.IssueRepository
	comments repository.CommentRepository
}

// CommentDependencies bundles repositories for comment service.
type CommentDependencies struct {
	IssueRepo   repository.IssueRepository
	CommentRepo repository.CommentRepository
}

// NewCommentService constructs the service.
func NewCommentService(deps CommentDependencies) *CommentService {
	return &CommentService{issues: deps.IssueRepo, comments: deps.CommentRepo}
}

// Add appends a comment by actor and returns it with its author.
func (s *CommentService) Add(ctx context.Context, actor policy.Actor, issueID, content string) (*domain.Comment, error) {
	if _, err := s.issues.GetByID(ctx, issueID); err != nil {
		return nil, notFoundOr(err, "issue", issueID)
	}
	if err := policy.Enforce(actor, policy.ActionAddComment, ""); err != nil {
		return nil, err
	}

	content = strings.TrimSpace(content)
	errs := fieldErrors{}
	errs.text("content", content, domain.MaxCommentLength)
	if err := errs.err(); err != nil {
		return nil, err
	}

	comment := &domain.Comment{IssueID: issueID, AuthorID: actor.ID, Content: content}
	if err := s.comments.Create(ctx, comment); err != nil {
		// The issue was deleted between the check and the insert.
		return nil, notFoundOr(err, "issue", issueID)
	}
	created, err := s.comments.GetByID(ctx, comment.ID)
	if err != nil {
		return nil, notFoundOr(err, "comment", comment.ID)
	}
	return created, nil
}

// List returns every comment on the issue, newest first.
func (s *CommentService) List(ctx context.Context, issueID string) ([]domain.Comment, error) {
	if _, err := s.issues.GetByID(ctx, issueID); err != nil {
		return nil, notFoundOr(err, "issue", issueID)
	}
	return s.comments.ListByIssue(ctx, issueID)
}

// Delete removes one comment. Only its author or an ADMIN may do so.
func (s *CommentService) Delete(ctx context.Context, actor policy.Actor, issueID, commentID string) error {
	comment, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		return notFoundOr(err, "comment", commentID)
	}
	if comment.IssueID != issueID {
		return notFoundOr(repository.ErrNotFound, "comment", commentID)
	}
	if err := policy.Enforce(actor, policy.ActionDeleteComment, comment.AuthorID); err != nil {
		return err
	}
	if err := s.comments.Delete(ctx, commentID); err != nil {
		return notFoundOr(err, "comment", commentID)
	}
	return nil
}

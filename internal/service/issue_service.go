package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/civicpulse/issue-service/internal/domain"
	"github.com/civicpulse/issue-service/internal/events"
	"github.com/civicpulse/issue-service/internal/policy"
	"github.com/civicpulse/issue-service/internal/query"
	"github.com/civicpulse/issue-service/internal/repository"
	apperrors "github.com/civicpulse/issue-service/pkg/util/errorutil"
)

const maxIssueImages = 10

// IssueService owns the issue lifecycle: creation, edits, status changes,
// deletion and upvotes.
type IssueService struct {
	issues     repository.IssueRepository
	comments   repository.CommentRepository
	history    repository.IssueHistoryRepository
	users      repository.UserRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// IssueDependencies bundles repositories for issue service.
type IssueDependencies struct {
	IssueRepo   repository.IssueRepository
	CommentRepo repository.CommentRepository
	HistoryRepo repository.IssueHistoryRepository
	UserRepo    repository.UserRepository
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// IssueCreateInput describes issue creation payload.
type IssueCreateInput struct {
	Title       string
	Description string
	Location    string
	Latitude    *float64
	Longitude   *float64
	Category    domain.IssueCategory
	Images      []string
}

// IssueUpdateInput carries optional changes; nil fields are left as they are.
type IssueUpdateInput struct {
	Title       *string
	Description *string
	Location    *string
	Latitude    *float64
	Longitude   *float64
	Category    *domain.IssueCategory
	Status      *domain.IssueStatus
	Images      *[]string
}

// IssueListFilter describes list filters.
type IssueListFilter struct {
	Status   *domain.IssueStatus
	Category *domain.IssueCategory
	Page     query.Page
}

// IssuePage is one page of issues plus pagination metadata.
type IssuePage struct {
	Issues []domain.Issue
	Meta   query.Meta
}

// NewIssueService constructs the service.
func NewIssueService(deps IssueDependencies) *IssueService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IssueService{
		issues:     deps.IssueRepo,
		comments:   deps.CommentRepo,
		history:    deps.HistoryRepo,
		users:      deps.UserRepo,
		dispatcher: deps.Dispatcher,
		logger:     logger,
	}
}

// Create records a new issue reported by actor with status REPORTED.
func (s *IssueService) Create(ctx context.Context, actor policy.Actor, input IssueCreateInput) (*domain.Issue, error) {
	if err := policy.Enforce(actor, policy.ActionCreateIssue, ""); err != nil {
		return nil, err
	}

	issue := &domain.Issue{
		Title:       input.Title,
		Description: input.Description,
		Location:    input.Location,
		Latitude:    input.Latitude,
		Longitude:   input.Longitude,
		Category:    input.Category,
		Status:      domain.IssueStatusReported,
		Images:      input.Images,
		ReporterID:  actor.ID,
	}
	if err := validateIssue(issue); err != nil {
		return nil, err
	}

	if err := s.issues.Create(ctx, issue); err != nil {
		return nil, notFoundOr(err, "user", actor.ID)
	}

	s.publishEvent(ctx, events.NewEvent(events.EventIssueCreated, issue.ID, eventActor(actor), events.IssueCreatedPayload{
		Title:      issue.Title,
		Category:   issue.Category,
		Location:   issue.Location,
		ReporterID: issue.ReporterID,
	}))
	return issue, nil
}

// Get returns an issue with its reporter and comment thread.
func (s *IssueService) Get(ctx context.Context, id string) (*domain.Issue, []domain.Comment, error) {
	issue, err := s.issues.GetByID(ctx, id)
	if err != nil {
		return nil, nil, notFoundOr(err, "issue", id)
	}
	comments, err := s.comments.ListByIssue(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return issue, comments, nil
}

// List returns a filtered page of issues, newest first.
func (s *IssueService) List(ctx context.Context, filter IssueListFilter) (*IssuePage, error) {
	return s.list(ctx, repository.IssueFilter{
		Status:   filter.Status,
		Category: filter.Category,
		Page:     filter.Page,
	})
}

// ListForUser returns issues reported by userID. The user must exist before
// the caller's access is checked.
func (s *IssueService) ListForUser(ctx context.Context, actor policy.Actor, userID string, filter IssueListFilter) (*IssuePage, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, notFoundOr(err, "user", userID)
	}
	if err := policy.Enforce(actor, policy.ActionViewUserIssues, userID); err != nil {
		return nil, err
	}
	return s.list(ctx, repository.IssueFilter{
		ReporterID: &userID,
		Status:     filter.Status,
		Category:   filter.Category,
		Page:       filter.Page,
	})
}

func (s *IssueService) list(ctx context.Context, filter repository.IssueFilter) (*IssuePage, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, apperrors.NewValidationError("validation failed", map[string]any{"status": "unknown status"})
	}
	if filter.Category != nil && !filter.Category.Valid() {
		return nil, apperrors.NewValidationError("validation failed", map[string]any{"category": "unknown category"})
	}
	if filter.Page.Limit == 0 {
		filter.Page = query.NewPage(filter.Page.Page, query.DefaultLimit)
	}
	issues, total, err := s.issues.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &IssuePage{Issues: issues, Meta: filter.Page.MetaFor(total)}, nil
}

// Update applies field and status changes in one write. A status change
// triggers a best-effort notification to the reporter.
func (s *IssueService) Update(ctx context.Context, actor policy.Actor, id string, input IssueUpdateInput) (*domain.Issue, error) {
	issue, err := s.issues.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "issue", id)
	}
	if err := policy.Enforce(actor, policy.ActionUpdateIssue, issue.ReporterID); err != nil {
		return nil, err
	}

	oldStatus, oldCategory := issue.Status, issue.Category
	if input.Title != nil {
		issue.Title = *input.Title
	}
	if input.Description != nil {
		issue.Description = *input.Description
	}
	if input.Location != nil {
		issue.Location = *input.Location
	}
	if input.Latitude != nil {
		issue.Latitude = input.Latitude
	}
	if input.Longitude != nil {
		issue.Longitude = input.Longitude
	}
	if input.Category != nil {
		issue.Category = *input.Category
	}
	if input.Status != nil {
		issue.Status = *input.Status
	}
	if input.Images != nil {
		issue.Images = append([]string{}, (*input.Images)...)
	}
	if err := validateIssue(issue); err != nil {
		return nil, err
	}

	var changes []domain.IssueHistory
	if issue.Status != oldStatus {
		changes = append(changes, domain.IssueHistory{
			ChangedByID: actor.ID, ChangeType: domain.ChangeTypeStatus,
			OldValue: string(oldStatus), NewValue: string(issue.Status),
		})
	}
	if issue.Category != oldCategory {
		changes = append(changes, domain.IssueHistory{
			ChangedByID: actor.ID, ChangeType: domain.ChangeTypeCategory,
			OldValue: string(oldCategory), NewValue: string(issue.Category),
		})
	}
	if err := s.issues.Update(ctx, issue, changes...); err != nil {
		return nil, notFoundOr(err, "issue", id)
	}

	if issue.Status != oldStatus {
		s.publishEvent(ctx, events.NewEvent(events.EventIssueStatusChanged, issue.ID, eventActor(actor), events.IssueStatusChangedPayload{
			Title:      issue.Title,
			ReporterID: issue.ReporterID,
			OldStatus:  oldStatus,
			NewStatus:  issue.Status,
		}))
	}
	return issue, nil
}

// History returns the status and category changes of an issue, oldest first.
func (s *IssueService) History(ctx context.Context, id string) ([]domain.IssueHistory, error) {
	if _, err := s.issues.GetByID(ctx, id); err != nil {
		return nil, notFoundOr(err, "issue", id)
	}
	return s.history.ListByIssue(ctx, id)
}

// Delete removes an issue together with its comments.
func (s *IssueService) Delete(ctx context.Context, actor policy.Actor, id string) error {
	issue, err := s.issues.GetByID(ctx, id)
	if err != nil {
		return notFoundOr(err, "issue", id)
	}
	if err := policy.Enforce(actor, policy.ActionDeleteIssue, issue.ReporterID); err != nil {
		return err
	}
	if err := s.issues.Delete(ctx, id); err != nil {
		return notFoundOr(err, "issue", id)
	}
	return nil
}

// Upvote adds exactly one vote and returns the new total.
func (s *IssueService) Upvote(ctx context.Context, actor policy.Actor, id string) (int, error) {
	if err := policy.Enforce(actor, policy.ActionUpvoteIssue, ""); err != nil {
		return 0, err
	}
	upvotes, err := s.issues.IncrementUpvotes(ctx, id)
	if err != nil {
		return 0, notFoundOr(err, "issue", id)
	}
	return upvotes, nil
}

// publishEvent hands the event to the dispatcher. Dispatch failures are logged and never returned.
func (s *IssueService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("notification dispatch failed",
			zap.String("event_type", string(event.Type)),
			zap.String("issue_id", event.IssueID),
			zap.Error(err))
	}
}

func eventActor(actor policy.Actor) events.Actor {
	return events.Actor{UserID: actor.ID, Role: actor.Role}
}

func validateIssue(issue *domain.Issue) error {
	errs := fieldErrors{}
	errs.text("title", issue.Title, 200)
	errs.text("description", issue.Description, 5000)
	errs.text("location", issue.Location, 200)
	if !issue.Category.Valid() {
		errs["category"] = "unknown category"
	}
	if !issue.Status.Valid() {
		errs["status"] = "unknown status"
	}
	if issue.Latitude != nil && (*issue.Latitude < -90 || *issue.Latitude > 90) {
		errs["latitude"] = "must be between -90 and 90"
	}
	if issue.Longitude != nil && (*issue.Longitude < -180 || *issue.Longitude > 180) {
		errs["longitude"] = "must be between -180 and 180"
	}
	if len(issue.Images) > maxIssueImages {
		errs["images"] = "too many images"
	}
	return errs.err()
}

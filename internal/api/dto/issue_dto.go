package dto

import (
	"strings"
	"time"

	"github.com/civicpulse/issue-service/internal/domain"
)

// CreateIssueRequest payload.
type CreateIssueRequest struct {
	Title       string               `json:"title" validate:"required,notblank,max=200"`
	Description string               `json:"description" validate:"required,notblank,max=5000"`
	Location    string               `json:"location" validate:"required,notblank,max=200"`
	Latitude    *float64             `json:"latitude" validate:"omitempty,min=-90,max=90"`
	Longitude   *float64             `json:"longitude" validate:"omitempty,min=-180,max=180"`
	Category    domain.IssueCategory `json:"category" validate:"required,issue_category"`
	Images      []string             `json:"images" validate:"omitempty,max=10,dive,required,notblank,max=2048"`
}

// Normalize trims free-text fields before validation.
func (r *CreateIssueRequest) Normalize() {
	r.Title = strings.TrimSpace(r.Title)
	r.Description = strings.TrimSpace(r.Description)
	r.Location = strings.TrimSpace(r.Location)
}

// UpdateIssueRequest payload. Absent fields are left unchanged.
type UpdateIssueRequest struct {
	Title       *string               `json:"title" validate:"omitempty,notblank,max=200"`
	Description *string               `json:"description" validate:"omitempty,notblank,max=5000"`
	Location    *string               `json:"location" validate:"omitempty,notblank,max=200"`
	Latitude    *float64              `json:"latitude" validate:"omitempty,min=-90,max=90"`
	Longitude   *float64              `json:"longitude" validate:"omitempty,min=-180,max=180"`
	Category    *domain.IssueCategory `json:"category" validate:"omitempty,issue_category"`
	Status      *domain.IssueStatus   `json:"status" validate:"omitempty,issue_status"`
	Images      *[]string             `json:"images" validate:"omitempty,max=10,dive,required,notblank,max=2048"`
}

// Normalize trims free-text fields before validation.
func (r *UpdateIssueRequest) Normalize() {
	for _, s := range []*string{r.Title, r.Description, r.Location} {
		if s != nil {
			*s = strings.TrimSpace(*s)
		}
	}
}

// IssueResponse is the public projection of an issue.
type IssueResponse struct {
	ID          string               `json:"id"`
	Title       string               `json:"title"`
	Description string               `json:"description"`
	Location    string               `json:"location"`
	Latitude    *float64             `json:"latitude,omitempty"`
	Longitude   *float64             `json:"longitude,omitempty"`
	Category    domain.IssueCategory `json:"category"`
	Status      domain.IssueStatus   `json:"status"`
	Upvotes     int                  `json:"upvotes"`
	Images      []string             `json:"images"`
	ReporterID  string               `json:"reporterId"`
	Reporter    *UserResponse        `json:"reporter,omitempty"`
	Comments    []CommentResponse    `json:"comments,omitempty"`
	CreatedAt   time.Time            `json:"createdAt"`
	UpdatedAt   time.Time            `json:"updatedAt"`
}

// NewIssueResponse projects a domain issue.
func NewIssueResponse(issue *domain.Issue) IssueResponse {
	images := issue.Images
	if images == nil {
		images = []string{}
	}
	resp := IssueResponse{
		ID:          issue.ID,
		Title:       issue.Title,
		Description: issue.Description,
		Location:    issue.Location,
		Latitude:    issue.Latitude,
		Longitude:   issue.Longitude,
		Category:    issue.Category,
		Status:      issue.Status,
		Upvotes:     issue.Upvotes,
		Images:      images,
		ReporterID:  issue.ReporterID,
		CreatedAt:   issue.CreatedAt,
		UpdatedAt:   issue.UpdatedAt,
	}
	if issue.Reporter != nil {
		reporter := NewUserResponse(issue.Reporter)
		resp.Reporter = &reporter
	}
	return resp
}

// NewIssueListResponse projects a page of issues.
func NewIssueListResponse(issues []domain.Issue) []IssueResponse {
	out := make([]IssueResponse, 0, len(issues))
	for i := range issues {
		out = append(out, NewIssueResponse(&issues[i]))
	}
	return out
}

// UpvoteResponse reports the counter after an upvote.
type UpvoteResponse struct {
	ID      string `json:"id"`
	Upvotes int    `json:"upvotes"`
}

// IssueHistoryResponse is one audit trail entry.
type IssueHistoryResponse struct {
	ID          string                 `json:"id"`
	IssueID     string                 `json:"issueId"`
	ChangedByID string                 `json:"changedById"`
	ChangeType  domain.IssueChangeType `json:"changeType"`
	OldValue    string                 `json:"oldValue"`
	NewValue    string                 `json:"newValue"`
	CreatedAt   time.Time              `json:"createdAt"`
}

// NewIssueHistoryResponse projects an audit trail.
func NewIssueHistoryResponse(entries []domain.IssueHistory) []IssueHistoryResponse {
	out := make([]IssueHistoryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, IssueHistoryResponse{
			ID:          e.ID,
			IssueID:     e.IssueID,
			ChangedByID: e.ChangedByID,
			ChangeType:  e.ChangeType,
			OldValue:    e.OldValue,
			NewValue:    e.NewValue,
			CreatedAt:   e.CreatedAt,
		})
	}
	return out
}

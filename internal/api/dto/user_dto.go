package dto

import (
	"strings"
	"time"

	"github.com/civicpulse/issue-service/internal/domain"
)

// UpdateUserRequest payload. Absent fields are left unchanged.
type UpdateUserRequest struct {
	Name           *string `json:"name" validate:"omitempty,notblank,max=100"`
	ProfilePicture *string `json:"profilePicture" validate:"omitempty,url,max=2048"`
}

// Normalize trims the display name before validation.
func (r *UpdateUserRequest) Normalize() {
	if r.Name != nil {
		*r.Name = strings.TrimSpace(*r.Name)
	}
}

// ChangeRoleRequest payload.
type ChangeRoleRequest struct {
	Role domain.Role `json:"role" validate:"required,user_role"`
}

// UserResponse is the public projection of a user. The password hash never leaves the service.
type UserResponse struct {
	ID             string      `json:"id"`
	Name           string      `json:"name"`
	Email          string      `json:"email"`
	Role           domain.Role `json:"role"`
	ProfilePicture *string     `json:"profilePicture,omitempty"`
	CreatedAt      time.Time   `json:"createdAt"`
	UpdatedAt      time.Time   `json:"updatedAt"`
}

// NewUserResponse projects a domain user.
func NewUserResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:             user.ID,
		Name:           user.Name,
		Email:          user.Email,
		Role:           user.Role,
		ProfilePicture: user.ProfilePicture,
		CreatedAt:      user.CreatedAt,
		UpdatedAt:      user.UpdatedAt,
	}
}

// UserSummaryResponse adds the number of reported issues for admin listings.
type UserSummaryResponse struct {
	UserResponse
	IssueCount int `json:"issueCount"`
}

// NewUserSummaryList projects admin listing rows.
func NewUserSummaryList(rows []domain.UserStats) []UserSummaryResponse {
	out := make([]UserSummaryResponse, 0, len(rows))
	for i := range rows {
		out = append(out, UserSummaryResponse{
			UserResponse: NewUserResponse(&rows[i].User),
			IssueCount:   rows[i].IssueCount,
		})
	}
	return out
}

// UploadResponse returns the stored image reference.
type UploadResponse struct {
	URL string `json:"url"`
}

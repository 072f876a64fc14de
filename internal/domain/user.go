package domain

import "time"

// Role determines which actions a user may perform.
type Role string

const (
	RoleCitizen  Role = "CITIZEN"
	RoleOfficial Role = "OFFICIAL"
	RoleAdmin    Role = "ADMIN"
)

// Roles lists every valid role.
var Roles = []Role{RoleCitizen, RoleOfficial, RoleAdmin}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleCitizen, RoleOfficial, RoleAdmin:
		return true
	default:
		return false
	}
}

// User is a registered account. PasswordHash never leaves the service layer.
type User struct {
	ID             string
	Name           string
	Email          string
	PasswordHash   string
	Role           Role
	ProfilePicture *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// UserStats pairs a user with the number of issues they reported.
type UserStats struct {
	User
	IssueCount int
}

// Package policy decides whether an actor may perform an action on a resource.
//
// Every mutating endpoint and every restricted read goes through Can or
// Enforce; callers never compare roles themselves.
package policy

import (
	"github.com/civicpulse/issue-service/internal/domain"
	apperrors "github.com/civicpulse/issue-service/pkg/util/errorutil"
)

// Action names a guarded operation.
type Action string

const (
	ActionViewUser       Action = "user:view"
	ActionUpdateUser     Action = "user:update"
	ActionChangeRole     Action = "user:change_role"
	ActionListUsers      Action = "user:list"
	ActionViewUserIssues Action = "user:view_issues"
	ActionCreateIssue    Action = "issue:create"
	ActionUpdateIssue    Action = "issue:update"
	ActionDeleteIssue    Action = "issue:delete"
	ActionUpvoteIssue    Action = "issue:upvote"
	ActionAddComment     Action = "comment:create"
	ActionDeleteComment  Action = "comment:delete"
	ActionUploadImage    Action = "upload:create"
)

// Actor is the authenticated caller as seen by the policy.
type Actor struct {
	ID   string
	Role domain.Role
}

// Authenticated reports whether the actor carries an identity.
func (a Actor) Authenticated() bool {
	return a.ID != "" && a.Role.Valid()
}

// relationship describes who, besides matching roles, may act.
type relationship int

const (
	anyone relationship = iota
	ownerOnly
	rolesOnly
)

type rule struct {
	rel   relationship
	roles []domain.Role
}

var rules = map[Action]rule{
	ActionViewUser:       {rel: ownerOnly, roles: []domain.Role{domain.RoleAdmin}},
	ActionUpdateUser:     {rel: ownerOnly, roles: []domain.Role{domain.RoleAdmin}},
	ActionChangeRole:     {rel: rolesOnly, roles: []domain.Role{domain.RoleAdmin}},
	ActionListUsers:      {rel: rolesOnly, roles: []domain.Role{domain.RoleAdmin}},
	ActionViewUserIssues: {rel: ownerOnly, roles: []domain.Role{domain.RoleAdmin, domain.RoleOfficial}},
	ActionCreateIssue:    {rel: anyone},
	ActionUpdateIssue:    {rel: ownerOnly, roles: []domain.Role{domain.RoleOfficial, domain.RoleAdmin}},
	ActionDeleteIssue:    {rel: ownerOnly, roles: []domain.Role{domain.RoleAdmin}},
	ActionUpvoteIssue:    {rel: anyone},
	ActionAddComment:     {rel: anyone},
	ActionDeleteComment:  {rel: ownerOnly, roles: []domain.Role{domain.RoleAdmin}},
	ActionUploadImage:    {rel: anyone},
}

// Can reports whether actor may perform action on a resource owned by ownerID.
// ownerID is ignored for actions that are not ownership-scoped.
// Unknown actions and unauthenticated actors are always denied.
func Can(actor Actor, action Action, ownerID string) bool {
	if !actor.Authenticated() {
		return false
	}
	r, ok := rules[action]
	if !ok {
		return false
	}
	if r.rel == anyone {
		return true
	}
	for _, role := range r.roles {
		if actor.Role == role {
			return true
		}
	}
	return r.rel == ownerOnly && ownerID != "" && actor.ID == ownerID
}

// Enforce is Can that returns a Forbidden domain error on denial.
func Enforce(actor Actor, action Action, ownerID string) error {
	if !actor.Authenticated() {
		return apperrors.NewUnauthenticated("authentication required")
	}
	if !Can(actor, action, ownerID) {
		return apperrors.NewForbidden("not allowed to perform this action")
	}
	return nil
}

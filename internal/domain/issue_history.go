package domain

import "time"

// IssueChangeType captures what changed in a history entry.
type IssueChangeType string

const (
	ChangeTypeStatus   IssueChangeType = "STATUS_CHANGE"
	ChangeTypeCategory IssueChangeType = "CATEGORY_CHANGE"
)

// IssueHistory is an immutable audit trail entry written alongside an issue update.
type IssueHistory struct {
	ID          string
	IssueID     string
	ChangedByID string
	ChangeType  IssueChangeType
	OldValue    string
	NewValue    string
	CreatedAt   time.Time
}

package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/civicpulse/issue-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventIssueCreated       EventType = "issue_created"
	EventIssueStatusChanged EventType = "issue_status_changed"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	UserID string      `json:"userId"`
	Role   domain.Role `json:"role"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	IssueID   string      `json:"issueId"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// NewEvent stamps an event with a fresh id and the current time.
func NewEvent(eventType EventType, issueID string, actor Actor, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		IssueID:   issueID,
		Actor:     actor,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// IssueCreatedPayload payload.
type IssueCreatedPayload struct {
	Title      string               `json:"title"`
	Category   domain.IssueCategory `json:"category"`
	Location   string               `json:"location"`
	ReporterID string               `json:"reporterId"`
}

// IssueStatusChangedPayload carries both sides of the transition.
type IssueStatusChangedPayload struct {
	Title      string             `json:"title"`
	ReporterID string             `json:"reporterId"`
	OldStatus  domain.IssueStatus `json:"oldStatus"`
	NewStatus  domain.IssueStatus `json:"newStatus"`
}

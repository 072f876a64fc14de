package domain

import "time"

// IssueStatus enumerates lifecycle stages for issues.
type IssueStatus string

const (
	IssueStatusReported    IssueStatus = "REPORTED"
	IssueStatusUnderReview IssueStatus = "UNDER_REVIEW"
	IssueStatusInProgress  IssueStatus = "IN_PROGRESS"
	IssueStatusResolved    IssueStatus = "RESOLVED"
	IssueStatusClosed      IssueStatus = "CLOSED"
)

// IssueStatuses lists every valid status.
var IssueStatuses = []IssueStatus{
	IssueStatusReported,
	IssueStatusUnderReview,
	IssueStatusInProgress,
	IssueStatusResolved,
	IssueStatusClosed,
}

// Valid reports whether s is one of the known statuses.
func (s IssueStatus) Valid() bool {
	for _, candidate := range IssueStatuses {
		if s == candidate {
			return true
		}
	}
	return false
}

// IssueCategory classifies the kind of civic problem.
type IssueCategory string

const (
	CategoryRoads          IssueCategory = "ROADS"
	CategoryWater          IssueCategory = "WATER"
	CategoryElectricity    IssueCategory = "ELECTRICITY"
	CategorySanitation     IssueCategory = "SANITATION"
	CategoryPublicSafety   IssueCategory = "PUBLIC_SAFETY"
	CategoryEnvironment    IssueCategory = "ENVIRONMENT"
	CategoryPublicProperty IssueCategory = "PUBLIC_PROPERTY"
	CategoryOther          IssueCategory = "OTHER"
)

// IssueCategories lists every valid category.
var IssueCategories = []IssueCategory{
	CategoryRoads,
	CategoryWater,
	CategoryElectricity,
	CategorySanitation,
	CategoryPublicSafety,
	CategoryEnvironment,
	CategoryPublicProperty,
	CategoryOther,
}

// Valid reports whether c is one of the known categories.
func (c IssueCategory) Valid() bool {
	for _, candidate := range IssueCategories {
		if c == candidate {
			return true
		}
	}
	return false
}

// Issue is the aggregate for a reported civic problem.
type Issue struct {
	ID          string
	Title       string
	Description string
	Location    string
	Latitude    *float64
	Longitude   *float64
	Category    IssueCategory
	Status      IssueStatus
	Upvotes     int
	Images      []string
	ReporterID  string
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// Reporter is populated by reads that join the reporting user.
	Reporter *User
}

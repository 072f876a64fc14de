package domain

import "time"

// MaxCommentLength bounds comment content in characters.
const MaxCommentLength = 1000

// Comment is a message in an issue's discussion thread.
type Comment struct {
	ID        string
	IssueID   string
	AuthorID  string
	Content   string
	CreatedAt time.Time

	Author *User
}

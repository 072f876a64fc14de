// Package repotest provides an in-memory implementation of the repository
// interfaces for service and handler tests.
package repotest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/civicpulse/issue-service/internal/domain"
	"github.com/civicpulse/issue-service/internal/repository"
)

// Store keeps users, issues and comments in maps guarded by one mutex.
// Rows carry a sequence number so same-timestamp rows keep insertion order.
type Store struct {
	mu       sync.Mutex
	seq      int64
	now      func() time.Time
	users    map[string]*userRow
	issues   map[string]*issueRow
	comments map[string]*commentRow
	history  []domain.IssueHistory
}

type userRow struct {
	user domain.User
	seq  int64
}

type issueRow struct {
	issue domain.Issue
	seq   int64
}

type commentRow struct {
	comment domain.Comment
	seq     int64
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		now:      time.Now,
		users:    map[string]*userRow{},
		issues:   map[string]*issueRow{},
		comments: map[string]*commentRow{},
	}
}

// SetClock overrides the timestamp source.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Users returns the store as a UserRepository.
func (s *Store) Users() repository.UserRepository { return userRepo{s} }

// Issues returns the store as an IssueRepository.
func (s *Store) Issues() repository.IssueRepository { return issueRepo{s} }

// Comments returns the store as a CommentRepository.
func (s *Store) Comments() repository.CommentRepository { return commentRepo{s} }

// History returns the store as an IssueHistoryRepository.
func (s *Store) History() repository.IssueHistoryRepository { return historyRepo{s} }

// CommentCount returns the number of comments referencing issueID.
func (s *Store) CommentCount(issueID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, row := range s.comments {
		if row.comment.IssueID == issueID {
			n++
		}
	}
	return n
}

func (s *Store) next() int64 {
	s.seq++
	return s.seq
}

func (s *Store) publicUser(id string) *domain.User {
	row, ok := s.users[id]
	if !ok {
		return nil
	}
	u := row.user
	return &u
}

type userRepo struct{ s *Store }

func (r userRepo) Create(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, row := range r.s.users {
		if strings.EqualFold(row.user.Email, user.Email) {
			return repository.ErrDuplicate
		}
	}
	now := r.s.now()
	user.ID = uuid.NewString()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.s.users[user.ID] = &userRow{user: *user, seq: r.s.next()}
	return nil
}

func (r userRepo) Update(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.users[user.ID]
	if !ok {
		return repository.ErrNotFound
	}
	user.UpdatedAt = r.s.now()
	row.user.Name = user.Name
	row.user.PasswordHash = user.PasswordHash
	row.user.Role = user.Role
	row.user.ProfilePicture = user.ProfilePicture
	row.user.UpdatedAt = user.UpdatedAt
	return nil
}

func (r userRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if u := r.s.publicUser(id); u != nil {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

func (r userRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, row := range r.s.users {
		if strings.EqualFold(row.user.Email, email) {
			u := row.user
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r userRepo) ListByRole(_ context.Context, role domain.Role) ([]domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rows := make([]*userRow, 0, len(r.s.users))
	for _, row := range r.s.users {
		if row.user.Role == role {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })
	result := make([]domain.User, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.user)
	}
	return result, nil
}

func (r userRepo) List(_ context.Context, filter repository.UserFilter) ([]domain.UserStats, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rows := make([]*userRow, 0, len(r.s.users))
	for _, row := range r.s.users {
		if filter.Role != nil && row.user.Role != *filter.Role {
			continue
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if !a.user.CreatedAt.Equal(b.user.CreatedAt) {
			return a.user.CreatedAt.After(b.user.CreatedAt)
		}
		return a.seq > b.seq
	})

	start, end := filter.Page.Window(len(rows))
	result := make([]domain.UserStats, 0, end-start)
	for _, row := range rows[start:end] {
		count := 0
		for _, issue := range r.s.issues {
			if issue.issue.ReporterID == row.user.ID {
				count++
			}
		}
		result = append(result, domain.UserStats{User: row.user, IssueCount: count})
	}
	return result, len(rows), nil
}

type issueRepo struct{ s *Store }

func (r issueRepo) Create(_ context.Context, issue *domain.Issue) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[issue.ReporterID]; !ok {
		return repository.ErrNotFound
	}
	now := r.s.now()
	issue.ID = uuid.NewString()
	issue.Upvotes = 0
	issue.CreatedAt = now
	issue.UpdatedAt = now
	if issue.Images == nil {
		issue.Images = []string{}
	}
	stored := *issue
	stored.Images = append([]string(nil), issue.Images...)
	stored.Reporter = nil
	r.s.issues[issue.ID] = &issueRow{issue: stored, seq: r.s.next()}
	return nil
}

func (r issueRepo) Update(_ context.Context, issue *domain.Issue, history ...domain.IssueHistory) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.issues[issue.ID]
	if !ok {
		return repository.ErrNotFound
	}
	row.issue.Title = issue.Title
	row.issue.Description = issue.Description
	row.issue.Location = issue.Location
	row.issue.Latitude = issue.Latitude
	row.issue.Longitude = issue.Longitude
	row.issue.Category = issue.Category
	row.issue.Status = issue.Status
	row.issue.Images = append([]string{}, issue.Images...)
	row.issue.UpdatedAt = r.s.now()
	issue.Upvotes = row.issue.Upvotes
	issue.UpdatedAt = row.issue.UpdatedAt
	for i := range history {
		history[i].ID = uuid.NewString()
		history[i].IssueID = issue.ID
		history[i].CreatedAt = row.issue.UpdatedAt
		r.s.history = append(r.s.history, history[i])
	}
	return nil
}

func (r issueRepo) GetByID(_ context.Context, id string) (*domain.Issue, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.issues[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return r.project(row), nil
}

func (r issueRepo) List(_ context.Context, filter repository.IssueFilter) ([]domain.Issue, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rows := make([]*issueRow, 0, len(r.s.issues))
	for _, row := range r.s.issues {
		if filter.ReporterID != nil && row.issue.ReporterID != *filter.ReporterID {
			continue
		}
		if filter.Status != nil && row.issue.Status != *filter.Status {
			continue
		}
		if filter.Category != nil && row.issue.Category != *filter.Category {
			continue
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if !a.issue.CreatedAt.Equal(b.issue.CreatedAt) {
			return a.issue.CreatedAt.After(b.issue.CreatedAt)
		}
		return a.seq > b.seq
	})

	start, end := filter.Page.Window(len(rows))
	result := make([]domain.Issue, 0, end-start)
	for _, row := range rows[start:end] {
		result = append(result, *r.project(row))
	}
	return result, len(rows), nil
}

func (r issueRepo) IncrementUpvotes(_ context.Context, id string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.issues[id]
	if !ok {
		return 0, repository.ErrNotFound
	}
	row.issue.Upvotes++
	return row.issue.Upvotes, nil
}

func (r issueRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.issues[id]; !ok {
		return repository.ErrNotFound
	}
	for cid, row := range r.s.comments {
		if row.comment.IssueID == id {
			delete(r.s.comments, cid)
		}
	}
	kept := r.s.history[:0]
	for _, entry := range r.s.history {
		if entry.IssueID != id {
			kept = append(kept, entry)
		}
	}
	r.s.history = kept
	delete(r.s.issues, id)
	return nil
}

func (r issueRepo) project(row *issueRow) *domain.Issue {
	issue := row.issue
	issue.Images = append([]string{}, row.issue.Images...)
	issue.Reporter = r.s.publicUser(issue.ReporterID)
	return &issue
}

type commentRepo struct{ s *Store }

func (r commentRepo) Create(_ context.Context, comment *domain.Comment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.issues[comment.IssueID]; !ok {
		return repository.ErrNotFound
	}
	if _, ok := r.s.users[comment.AuthorID]; !ok {
		return repository.ErrNotFound
	}
	comment.ID = uuid.NewString()
	comment.CreatedAt = r.s.now()
	stored := *comment
	stored.Author = nil
	r.s.comments[comment.ID] = &commentRow{comment: stored, seq: r.s.next()}
	return nil
}

func (r commentRepo) GetByID(_ context.Context, id string) (*domain.Comment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.comments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	comment := row.comment
	comment.Author = r.s.publicUser(comment.AuthorID)
	return &comment, nil
}

func (r commentRepo) ListByIssue(_ context.Context, issueID string) ([]domain.Comment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rows := make([]*commentRow, 0)
	for _, row := range r.s.comments {
		if row.comment.IssueID == issueID {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if !a.comment.CreatedAt.Equal(b.comment.CreatedAt) {
			return a.comment.CreatedAt.After(b.comment.CreatedAt)
		}
		return a.seq > b.seq
	})
	result := make([]domain.Comment, 0, len(rows))
	for _, row := range rows {
		comment := row.comment
		comment.Author = r.s.publicUser(comment.AuthorID)
		result = append(result, comment)
	}
	return result, nil
}

func (r commentRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.comments[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.comments, id)
	return nil
}

type historyRepo struct{ s *Store }

// ListByIssue returns entries oldest first.
func (r historyRepo) ListByIssue(_ context.Context, issueID string) ([]domain.IssueHistory, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	result := []domain.IssueHistory{}
	for _, entry := range r.s.history {
		if entry.IssueID == issueID {
			result = append(result, entry)
		}
	}
	return result, nil
}

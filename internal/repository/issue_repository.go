package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/civicpulse/issue-service/internal/domain"
	"github.com/civicpulse/issue-service/internal/query"
)

// IssueFilter captures list parameters. Nil fields do not filter.
type IssueFilter struct {
	ReporterID *string
	Status     *domain.IssueStatus
	Category   *domain.IssueCategory
	Page       query.Page
}

// IssueRepository encapsulates issue persistence.
type IssueRepository interface {
	Create(ctx context.Context, issue *domain.Issue) error
	// Update writes the issue and any history entries atomically.
	Update(ctx context.Context, issue *domain.Issue, history ...domain.IssueHistory) error
	GetByID(ctx context.Context, id string) (*domain.Issue, error)
	List(ctx context.Context, filter IssueFilter) ([]domain.Issue, int, error)
	IncrementUpvotes(ctx context.Context, id string) (int, error)
	// Delete removes the issue, its comments and its history in one transaction.
	Delete(ctx context.Context, id string) error
}

type issueRepository struct {
	pool *pgxpool.Pool
}

// NewIssueRepository instantiates repository.
func NewIssueRepository(pool *pgxpool.Pool) IssueRepository {
	return &issueRepository{pool: pool}
}

const issueSelect = `
        SELECT i.id, i.title, i.description, i.location, i.latitude, i.longitude, i.category, i.status,
               i.upvotes, i.images, i.reporter_id, i.created_at, i.updated_at,
               u.id, u.name, u.email, u.role, u.profile_picture, u.created_at, u.updated_at
        FROM issues i
        JOIN users u ON u.id = i.reporter_id`

func (r *issueRepository) Create(ctx context.Context, issue *domain.Issue) error {
	const query = `
        INSERT INTO issues (title, description, location, latitude, longitude, category, status, images, reporter_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id, upvotes, created_at, updated_at`
	if issue.Images == nil {
		issue.Images = []string{}
	}
	err := r.pool.QueryRow(ctx, query,
		issue.Title,
		issue.Description,
		issue.Location,
		issue.Latitude,
		issue.Longitude,
		issue.Category,
		issue.Status,
		issue.Images,
		issue.ReporterID,
	).Scan(&issue.ID, &issue.Upvotes, &issue.CreatedAt, &issue.UpdatedAt)
	return translate(err)
}

// Update writes every mutable field, status included, in a single statement.
// Upvotes are left alone so a concurrent IncrementUpvotes is never lost.
func (r *issueRepository) Update(ctx context.Context, issue *domain.Issue, history ...domain.IssueHistory) error {
	const query = `
        UPDATE issues SET title=$1, description=$2, location=$3, latitude=$4, longitude=$5,
            category=$6, status=$7, images=$8, updated_at=NOW()
        WHERE id=$9
        RETURNING upvotes, updated_at`
	if issue.Images == nil {
		issue.Images = []string{}
	}
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, query,
			issue.Title,
			issue.Description,
			issue.Location,
			issue.Latitude,
			issue.Longitude,
			issue.Category,
			issue.Status,
			issue.Images,
			issue.ID,
		).Scan(&issue.Upvotes, &issue.UpdatedAt)
		if err != nil {
			return translate(err)
		}
		for i := range history {
			history[i].IssueID = issue.ID
			if err := insertHistory(ctx, tx, &history[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *issueRepository) GetByID(ctx context.Context, id string) (*domain.Issue, error) {
	issue, err := scanIssue(r.pool.QueryRow(ctx, issueSelect+` WHERE i.id=$1`, id))
	if err != nil {
		return nil, translate(err)
	}
	return issue, nil
}

func (r *issueRepository) List(ctx context.Context, filter IssueFilter) ([]domain.Issue, int, error) {
	var where query.Where
	if filter.ReporterID != nil {
		where.Add("i.reporter_id = ?", *filter.ReporterID)
	}
	if filter.Status != nil {
		where.Add("i.status = ?", *filter.Status)
	}
	if filter.Category != nil {
		where.Add("i.category = ?", *filter.Category)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM issues i`+where.SQL(), where.Args()...).Scan(&total); err != nil {
		return nil, 0, err
	}

	suffix, args := where.Paged(filter.Page)
	rows, err := r.pool.Query(ctx, issueSelect+where.SQL()+` ORDER BY i.created_at DESC, i.seq DESC`+suffix, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	result := []domain.Issue{}
	for rows.Next() {
		issue, err := scanIssue(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, *issue)
	}
	return result, total, rows.Err()
}

func (r *issueRepository) IncrementUpvotes(ctx context.Context, id string) (int, error) {
	var upvotes int
	err := r.pool.QueryRow(ctx, `UPDATE issues SET upvotes = upvotes + 1 WHERE id=$1 RETURNING upvotes`, id).Scan(&upvotes)
	return upvotes, translate(err)
}

func (r *issueRepository) Delete(ctx context.Context, id string) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		// Lock the issue first so a concurrent comment insert waits on the FK check.
		var locked string
		if err := tx.QueryRow(ctx, `SELECT id FROM issues WHERE id=$1 FOR UPDATE`, id).Scan(&locked); err != nil {
			return translate(err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM comments WHERE issue_id=$1`, id); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM issue_history WHERE issue_id=$1`, id); err != nil {
			return err
		}
		cmd, err := tx.Exec(ctx, `DELETE FROM issues WHERE id=$1`, id)
		if err != nil {
			return err
		}
		if cmd.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func scanIssue(row pgx.Row) (*domain.Issue, error) {
	var issue domain.Issue
	var reporter domain.User
	if err := row.Scan(
		&issue.ID,
		&issue.Title,
		&issue.Description,
		&issue.Location,
		&issue.Latitude,
		&issue.Longitude,
		&issue.Category,
		&issue.Status,
		&issue.Upvotes,
		&issue.Images,
		&issue.ReporterID,
		&issue.CreatedAt,
		&issue.UpdatedAt,
		&reporter.ID,
		&reporter.Name,
		&reporter.Email,
		&reporter.Role,
		&reporter.ProfilePicture,
		&reporter.CreatedAt,
		&reporter.UpdatedAt,
	); err != nil {
		return nil, err
	}
	issue.Reporter = &reporter
	return &issue, nil
}

package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/civicpulse/issue-service/internal/domain"
)

// CommentRepository manages issue discussion threads.
type CommentRepository interface {
	Create(ctx context.Context, comment *domain.Comment) error
	GetByID(ctx context.Context, id string) (*domain.Comment, error)
	ListByIssue(ctx context.Context, issueID string) ([]domain.Comment, error)
	Delete(ctx context.Context, id string) error
}

type commentRepository struct {
	pool *pgxpool.Pool
}

// NewCommentRepository builds repository.
func NewCommentRepository(pool *pgxpool.Pool) CommentRepository {
	return &commentRepository{pool: pool}
}

const commentSelect = `
        SELECT c.id, c.issue_id, c.author_id, c.content, c.created_at,
               u.id, u.name, u.email, u.role, u.profile_picture, u.created_at, u.updated_at
        FROM comments c
        JOIN users u ON u.id = c.author_id`

func (r *commentRepository) Create(ctx context.Context, comment *domain.Comment) error {
	const query = `
        INSERT INTO comments (issue_id, author_id, content)
        VALUES ($1,$2,$3)
        RETURNING id, created_at`
	err := r.pool.QueryRow(ctx, query,
		comment.IssueID,
		comment.AuthorID,
		comment.Content,
	).Scan(&comment.ID, &comment.CreatedAt)
	return translate(err)
}

func (r *commentRepository) GetByID(ctx context.Context, id string) (*domain.Comment, error) {
	comment, err := scanComment(r.pool.QueryRow(ctx, commentSelect+` WHERE c.id=$1`, id))
	if err != nil {
		return nil, translate(err)
	}
	return comment, nil
}

func (r *commentRepository) ListByIssue(ctx context.Context, issueID string) ([]domain.Comment, error) {
	rows, err := r.pool.Query(ctx, commentSelect+` WHERE c.issue_id=$1 ORDER BY c.created_at DESC, c.seq DESC`, issueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Comment{}
	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *comment)
	}
	return result, rows.Err()
}

func (r *commentRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM comments WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanComment(row pgx.Row) (*domain.Comment, error) {
	var comment domain.Comment
	var author domain.User
	if err := row.Scan(
		&comment.ID,
		&comment.IssueID,
		&comment.AuthorID,
		&comment.Content,
		&comment.CreatedAt,
		&author.ID,
		&author.Name,
		&author.Email,
		&author.Role,
		&author.ProfilePicture,
		&author.CreatedAt,
		&author.UpdatedAt,
	); err != nil {
		return nil, err
	}
	comment.Author = &author
	return &comment, nil
}

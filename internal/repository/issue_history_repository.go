package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/civicpulse/issue-service/internal/domain"
)

// IssueHistoryRepository reads the audit trail. Entries are written by
// IssueRepository.Update in the same transaction as the change.
type IssueHistoryRepository interface {
	ListByIssue(ctx context.Context, issueID string) ([]domain.IssueHistory, error)
}

type issueHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewIssueHistoryRepository builds repository.
func NewIssueHistoryRepository(pool *pgxpool.Pool) IssueHistoryRepository {
	return &issueHistoryRepository{pool: pool}
}

func insertHistory(ctx context.Context, tx pgx.Tx, history *domain.IssueHistory) error {
	const query = `
        INSERT INTO issue_history (issue_id, changed_by_id, change_type, old_value, new_value)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return tx.QueryRow(ctx, query,
		history.IssueID,
		history.ChangedByID,
		history.ChangeType,
		history.OldValue,
		history.NewValue,
	).Scan(&history.ID, &history.CreatedAt)
}

func (r *issueHistoryRepository) ListByIssue(ctx context.Context, issueID string) ([]domain.IssueHistory, error) {
	const query = `
        SELECT id, issue_id, changed_by_id, change_type, old_value, new_value, created_at
        FROM issue_history WHERE issue_id=$1 ORDER BY created_at ASC, seq ASC`
	rows, err := r.pool.Query(ctx, query, issueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.IssueHistory{}
	for rows.Next() {
		var history domain.IssueHistory
		if err := rows.Scan(
			&history.ID,
			&history.IssueID,
			&history.ChangedByID,
			&history.ChangeType,
			&history.OldValue,
			&history.NewValue,
			&history.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, history)
	}
	return result, rows.Err()
}

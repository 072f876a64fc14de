package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/civicpulse/issue-service/internal/domain"
	"github.com/civicpulse/issue-service/internal/query"
)

// UserFilter narrows the admin user listing.
type UserFilter struct {
	Role *domain.Role
	Page query.Page
}

// UserRepository defines persistence access for accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	ListByRole(ctx context.Context, role domain.Role) ([]domain.User, error)
	List(ctx context.Context, filter UserFilter) ([]domain.UserStats, int, error)
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

const userColumns = `id, name, email, password_hash, role, profile_picture, created_at, updated_at`

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (name, email, password_hash, role, profile_picture)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.ProfilePicture,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	return translate(err)
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	const query = `
        UPDATE users SET name=$1, password_hash=$2, role=$3, profile_picture=$4, updated_at=NOW()
        WHERE id=$5
        RETURNING updated_at`

	err := r.pool.QueryRow(ctx, query,
		user.Name,
		user.PasswordHash,
		user.Role,
		user.ProfilePicture,
		user.ID,
	).Scan(&user.UpdatedAt)
	return translate(err)
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.fetchSingle(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.fetchSingle(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(email)=LOWER($1)`, email)
}

func (r *userRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.User, error) {
	var user domain.User
	if err := scanUser(r.pool.QueryRow(ctx, query, arg), &user); err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *userRepository) ListByRole(ctx context.Context, role domain.Role) ([]domain.User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users WHERE role=$1 ORDER BY created_at ASC`, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.User
	for rows.Next() {
		var user domain.User
		if err := scanUser(rows, &user); err != nil {
			return nil, err
		}
		result = append(result, user)
	}
	return result, rows.Err()
}

func (r *userRepository) List(ctx context.Context, filter UserFilter) ([]domain.UserStats, int, error) {
	var where query.Where
	if filter.Role != nil {
		where.Add("u.role = ?", *filter.Role)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users u`+where.SQL(), where.Args()...).Scan(&total); err != nil {
		return nil, 0, err
	}

	suffix, args := where.Paged(filter.Page)
	rows, err := r.pool.Query(ctx, `
        SELECT u.id, u.name, u.email, u.password_hash, u.role, u.profile_picture, u.created_at, u.updated_at,
               (SELECT COUNT(*) FROM issues i WHERE i.reporter_id = u.id) AS issue_count
        FROM users u`+where.SQL()+` ORDER BY u.created_at DESC, u.id`+suffix, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	result := []domain.UserStats{}
	for rows.Next() {
		var stats domain.UserStats
		if err := rows.Scan(
			&stats.ID,
			&stats.Name,
			&stats.Email,
			&stats.PasswordHash,
			&stats.Role,
			&stats.ProfilePicture,
			&stats.CreatedAt,
			&stats.UpdatedAt,
			&stats.IssueCount,
		); err != nil {
			return nil, 0, err
		}
		result = append(result, stats)
	}
	return result, total, rows.Err()
}

func scanUser(row pgx.Row, user *domain.User) error {
	return row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.ProfilePicture,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
}

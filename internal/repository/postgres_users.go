package repository

import (
	"context"
	"database/sql"
	"fmt"

	"emri-dispatch/internal/domain"
)

// PostgresUsersRepository UsersRepository implementation
type PostgresUsersRepository struct {
	db *sql.DB
}

func NewPostgresUsersRepository(db *sql.DB) *PostgresUsersRepository {
	return &PostgresUsersRepository{db: db}
}

var _ UsersRepository = (*PostgresUsersRepository)(nil)

// FindByUserID fetches the operator account for login. sql.ErrNoRows is
// passed through so the service can map it to invalid-credentials.
func (r *PostgresUsersRepository) FindByUserID(ctx context.Context, userID string) (*domain.User, error) {
	if userID == "" {
		return nil, sql.ErrNoRows
	}

	query := `
		SELECT id, user_id, user_name, user_pass, roll
		FROM users
		WHERE user_id = $1
		LIMIT 1
	`

	var u domain.User
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&u.ID,
		&u.UserID,
		&u.UserName,
		&u.PasswordHash,
		&u.Role,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return &u, nil
}

package postgres

import (
	"context"
	"fmt"

	"github.com/hszk-dev/videohub/internal/domain/model"
	"github.com/hszk-dev/videohub/internal/domain/repository"
)

// UserRepository implements repository.UserRepository using PostgreSQL.
// Password hashes and tokens are never selected.
type UserRepository struct {
	db DBTX
}

var _ repository.UserRepository = (*UserRepository)(nil)

// NewUserRepository creates a new UserRepository instance.
func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// List returns every user ordered by creation time.
func (r *UserRepository) List(ctx context.Context) ([]model.User, error) {
	const query = `
		SELECT id::text, email, first_name, last_name, created_at
		FROM users
		ORDER BY created_at
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	users := make([]model.User, 0)
	for rows.Next() {
		var (
			u                   model.User
			firstName, lastName *string
		)
		if err := rows.Scan(&u.ID, &u.Email, &firstName, &lastName, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		u.FirstName = derefString(firstName)
		u.LastName = derefString(lastName)
		users = append(users, u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}

// Count returns the number of users.
func (r *UserRepository) Count(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(*) FROM users`

	var n int64
	if err := r.db.QueryRow(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return int(n), nil
}

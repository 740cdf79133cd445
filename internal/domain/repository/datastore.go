package repository

import (
	"context"

	"github.com/hszk-dev/videohub/internal/domain/model"
)

// LogRepository reads the application log table.
// Implementations should be provided by the infrastructure layer (e.g., PostgreSQL).
type LogRepository interface {
	// Recent returns at most limit entries, newest first.
	Recent(ctx context.Context, limit int) ([]model.LogEntry, error)

	// Count returns the total number of log entries.
	Count(ctx context.Context) (int, error)
}

// UserRepository reads user accounts without sensitive columns.
type UserRepository interface {
	// List returns every user ordered by creation time.
	List(ctx context.Context) ([]model.User, error)

	// Count returns the total number of users.
	Count(ctx context.Context) (int, error)
}

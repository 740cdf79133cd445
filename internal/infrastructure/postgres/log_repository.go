package postgres

import (
	"context"
	"fmt"

	"github.com/hszk-dev/videohub/internal/domain/model"
	"github.com/hszk-dev/videohub/internal/domain/repository"
)

// LogRepository implements repository.LogRepository using PostgreSQL.
type LogRepository struct {
	db DBTX
}

var _ repository.LogRepository = (*LogRepository)(nil)

// NewLogRepository creates a new LogRepository instance.
func NewLogRepository(db DBTX) *LogRepository {
	return &LogRepository{db: db}
}

// Recent returns at most limit log entries, newest first.
func (r *LogRepository) Recent(ctx context.Context, limit int) ([]model.LogEntry, error) {
	const query = `
		SELECT id, level, message, context::text, timestamp
		FROM logs
		ORDER BY timestamp DESC
		LIMIT $1
	`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query logs: %w", err)
	}
	defer rows.Close()

	entries := make([]model.LogEntry, 0)
	for rows.Next() {
		var (
			e       model.LogEntry
			ctxText *string
		)
		if err := rows.Scan(&e.ID, &e.Level, &e.Message, &ctxText, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan log entry: %w", err)
		}
		e.Context = derefString(ctxText)
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating logs: %w", err)
	}

	return entries, nil
}

// Count returns the number of log entries.
func (r *LogRepository) Count(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(*) FROM logs`

	var n int64
	if err := r.db.QueryRow(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count logs: %w", err)
	}
	return int(n), nil
}

package repository

import (
	"context"

	"github.com/google/uuid"
)

// BackupTask represents an on-demand backup request message.
type BackupTask struct {
	TaskID        uuid.UUID `json:"task_id"`
	RequestID     string    `json:"request_id,omitempty"`
	IncludeVideos bool      `json:"include_videos"`
	IncludeLogs   bool      `json:"include_logs"`
	IncludeUsers  bool      `json:"include_users"`
	RetryCount    int       `json:"retry_count"`
}

// MessageQueue defines the interface for message queue operations.
// Implementations should be provided by the infrastructure layer (e.g., RabbitMQ).
type MessageQueue interface {
	// PublishBackupTask sends a backup task to the queue.
	// Used by the API server when an admin requests a backup.
	PublishBackupTask(ctx context.Context, task BackupTask) error

	// ConsumeBackupTasks starts consuming backup tasks from the queue.
	// The handler function is called for each received task.
	// Used by the worker service.
	ConsumeBackupTasks(ctx context.Context, handler func(task BackupTask) error) error

	// Close gracefully closes the connection to the message queue.
	Close() error
}

// TaskPublisher is the publishing half of MessageQueue.
type TaskPublisher interface {
	PublishBackupTask(ctx context.Context, task BackupTask) error
}

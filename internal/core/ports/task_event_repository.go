package ports

import (
	"context"

	"github.com/tasktracker/task-api/internal/core/domain"
)

// TaskEventRepository persists the task activity log.
type TaskEventRepository interface {
	InsertEvent(ctx context.Context, event *domain.TaskEvent) error
	// ListByTask returns the events of one task, oldest first.
	ListByTask(ctx context.Context, userID, taskID int64) ([]domain.TaskEvent, error)
}

// TaskEventRecorder accepts activity events without blocking the caller.
type TaskEventRecorder interface {
	Record(event domain.TaskEvent)
}

// IdempotencyStore remembers which task a creation key produced.
type IdempotencyStore interface {
	// Lookup returns the task id stored for key, or found=false.
	Lookup(ctx context.Context, userID int64, key string) (taskID int64, found bool, err error)
	Remember(ctx context.Context, userID int64, key string, taskID int64) error
}

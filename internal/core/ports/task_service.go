package ports

import (
	"context"
	"time"

	"github.com/tasktracker/task-api/internal/core/domain"
)

// CreateTaskInput is the DTO passed from the transport layer to TaskService.
type CreateTaskInput struct {
	Title          string
	Description    *string
	DueDate        time.Time
	Status         domain.TaskStatus // empty defaults to pending
	IdempotencyKey string
}

// CreateTaskResult is returned by TaskService.Create.
type CreateTaskResult struct {
	Task *domain.Task
	// Replayed is true when the Idempotency-Key matched an earlier creation.
	Replayed bool
}

// TaskService defines the ownership-scoped task use cases.
type TaskService interface {
	List(ctx context.Context, userID int64, status string) ([]*domain.Task, error)
	Get(ctx context.Context, userID, taskID int64) (*domain.Task, error)
	Create(ctx context.Context, userID int64, input CreateTaskInput) (*CreateTaskResult, error)
	Update(ctx context.Context, userID, taskID int64, patch domain.TaskPatch) (*domain.Task, error)
	Delete(ctx context.Context, userID, taskID int64) error
	MarkDone(ctx context.Context, userID, taskID int64) (*domain.Task, error)
	Stats(ctx context.Context, userID int64) (domain.TaskStats, error)
	History(ctx context.Context, userID, taskID int64) ([]domain.TaskEvent, error)
}

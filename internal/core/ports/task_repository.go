package ports

import (
	"context"
	"time"

	"github.com/tasktracker/task-api/internal/core/domain"
)

// TaskRepository defines persistence operations for tasks. Every method is
// scoped by the owning user id; a task owned by someone else is reported as
// domain.ErrTaskNotFound.
type TaskRepository interface {
	// List returns the user's tasks ordered by due date ascending. An empty
	// status means no status filter.
	List(ctx context.Context, userID int64, status domain.TaskStatus) ([]*domain.Task, error)
	FindByID(ctx context.Context, userID, taskID int64) (*domain.Task, error)
	Create(ctx context.Context, task *domain.Task) (*domain.Task, error)
	// Update applies the non-nil patch fields in a single statement.
	Update(ctx context.Context, userID, taskID int64, patch domain.TaskPatch) (*domain.Task, error)
	Delete(ctx context.Context, userID, taskID int64) error
	// MarkDone transitions a pending task to done. It returns
	// domain.ErrTaskAlreadyDone when the task is already done.
	MarkDone(ctx context.Context, userID, taskID int64) (*domain.Task, error)
	// Counts aggregates the user's tasks; overdue is pending with due date
	// before now.
	Counts(ctx context.Context, userID int64, now time.Time) (domain.TaskCounts, error)
}

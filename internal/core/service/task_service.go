package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tasktracker/task-api/internal/core/domain"
	"github.com/tasktracker/task-api/internal/core/ports"
)

type nopRecorder struct{}

func (nopRecorder) Record(domain.TaskEvent) {}

// TaskService implements the ownership-scoped task use cases. Every call is
// filtered by the authenticated user's id.
type TaskService struct {
	repo        ports.TaskRepository
	events      ports.TaskEventRepository
	recorder    ports.TaskEventRecorder
	idempotency ports.IdempotencyStore
	logger      zerolog.Logger
	now         func() time.Time
}

// TaskServiceOption configures the optional collaborators of TaskService.
type TaskServiceOption func(*TaskService)

// WithEventLog enables the task activity log: recorder receives events,
// events serves History.
func WithEventLog(recorder ports.TaskEventRecorder, events ports.TaskEventRepository) TaskServiceOption {
	return func(s *TaskService) {
		s.recorder = recorder
		s.events = events
	}
}

// WithIdempotency enables Idempotency-Key replay on Create.
func WithIdempotency(store ports.IdempotencyStore) TaskServiceOption {
	return func(s *TaskService) { s.idempotency = store }
}

func NewTaskService(repo ports.TaskRepository, logger zerolog.Logger, opts ...TaskServiceOption) *TaskService {
	s := &TaskService{
		repo:     repo,
		recorder: nopRecorder{},
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns the user's tasks by due date. Unknown status values are
// ignored rather than rejected.
func (s *TaskService) List(ctx context.Context, userID int64, status string) ([]*domain.Task, error) {
	filter := domain.TaskStatus(status)
	if !filter.Valid() {
		filter = ""
	}
	tasks, err := s.repo.List(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

func (s *TaskService) Get(ctx context.Context, userID, taskID int64) (*domain.Task, error) {
	task, err := s.repo.FindByID(ctx, userID, taskID)
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return task, nil
}

// Create stores a new task for the user. When an idempotency key is given
// and already seen, the earlier task is returned without side effects.
func (s *TaskService) Create(ctx context.Context, userID int64, in ports.CreateTaskInput) (*ports.CreateTaskResult, error) {
	if in.IdempotencyKey != "" && s.idempotency != nil {
		if existing := s.replay(ctx, userID, in.IdempotencyKey); existing != nil {
			return &ports.CreateTaskResult{Task: existing, Replayed: true}, nil
		}
	}

	status := in.Status
	if status == "" {
		status = domain.StatusPending
	}

	task, err := s.repo.Create(ctx, &domain.Task{
		UserID:      userID,
		Title:       in.Title,
		Description: in.Description,
		Status:      status,
		DueDate:     in.DueDate.UTC(),
		CreatedAt:   s.now().UTC(),
	})
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to create task")
		return nil, fmt.Errorf("create task: %w", err)
	}

	if in.IdempotencyKey != "" && s.idempotency != nil {
		if err := s.idempotency.Remember(ctx, userID, in.IdempotencyKey, task.ID); err != nil {
			s.logger.Warn().Err(err).Str("idempotency_key", in.IdempotencyKey).Msg("failed to store idempotency key")
		}
	}

	s.record(task.ID, userID, domain.ActionCreated, map[string]any{
		"title":    task.Title,
		"status":   string(task.Status),
		"due_date": task.DueDate,
	})
	s.logger.Info().Int64("task_id", task.ID).Int64("user_id", userID).Msg("task created")

	return &ports.CreateTaskResult{Task: task}, nil
}

func (s *TaskService) replay(ctx context.Context, userID int64, key string) *domain.Task {
	taskID, found, err := s.idempotency.Lookup(ctx, userID, key)
	if err != nil {
		s.logger.Warn().Err(err).Str("idempotency_key", key).Msg("idempotency lookup failed, creating anyway")
		return nil
	}
	if !found {
		return nil
	}
	task, err := s.repo.FindByID(ctx, userID, taskID)
	if err != nil {
		// The remembered task is gone; treat the key as fresh.
		return nil
	}
	s.logger.Info().Str("idempotency_key", key).Int64("task_id", task.ID).Msg("idempotent replay")
	return task
}

// Update overwrites only the fields present in patch. An empty patch
// returns the current task unchanged.
func (s *TaskService) Update(ctx context.Context, userID, taskID int64, patch domain.TaskPatch) (*domain.Task, error) {
	if patch.Empty() {
		return s.Get(ctx, userID, taskID)
	}
	if patch.DueDate != nil {
		due := patch.DueDate.UTC()
		patch.DueDate = &due
	}

	task, err := s.repo.Update(ctx, userID, taskID, patch)
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}

	s.record(task.ID, userID, domain.ActionUpdated, patchChanges(patch))
	return task, nil
}

func (s *TaskService) Delete(ctx context.Context, userID, taskID int64) error {
	if err := s.repo.Delete(ctx, userID, taskID); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	s.record(taskID, userID, domain.ActionDeleted, nil)
	s.logger.Info().Int64("task_id", taskID).Int64("user_id", userID).Msg("task deleted")
	return nil
}

// MarkDone transitions the task to done; a task that is already done
// yields domain.ErrTaskAlreadyDone.
func (s *TaskService) MarkDone(ctx context.Context, userID, taskID int64) (*domain.Task, error) {
	task, err := s.repo.MarkDone(ctx, userID, taskID)
	if err != nil {
		return nil, fmt.Errorf("mark task done: %w", err)
	}
	s.record(task.ID, userID, domain.ActionDone, nil)
	return task, nil
}

func (s *TaskService) Stats(ctx context.Context, userID int64) (domain.TaskStats, error) {
	counts, err := s.repo.Counts(ctx, userID, s.now().UTC())
	if err != nil {
		return domain.TaskStats{}, fmt.Errorf("task stats: %w", err)
	}
	return domain.NewTaskStats(counts), nil
}

// History returns the activity log of a task the user owns. Without an
// event log configured the history is empty.
func (s *TaskService) History(ctx context.Context, userID, taskID int64) ([]domain.TaskEvent, error) {
	if _, err := s.Get(ctx, userID, taskID); err != nil {
		return nil, err
	}
	if s.events == nil {
		return []domain.TaskEvent{}, nil
	}
	events, err := s.events.ListByTask(ctx, userID, taskID)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, fmt.Errorf("task history: %w: %v", domain.ErrUnavailable, err)
	}
	return events, nil
}

func (s *TaskService) record(taskID, userID int64, action domain.TaskAction, changes map[string]any) {
	s.recorder.Record(domain.TaskEvent{
		TaskID:     taskID,
		UserID:     userID,
		Action:     action,
		OccurredAt: s.now().UTC(),
		Changes:    changes,
	})
}

func patchChanges(p domain.TaskPatch) map[string]any {
	changes := make(map[string]any, 4)
	if p.Title != nil {
		changes["title"] = *p.Title
	}
	if p.Description != nil {
		changes["description"] = *p.Description
	}
	if p.DueDate != nil {
		changes["due_date"] = *p.DueDate
	}
	if p.Status != nil {
		changes["status"] = string(*p.Status)
	}
	return changes
}

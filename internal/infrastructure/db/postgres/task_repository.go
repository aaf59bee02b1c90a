package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/tasktracker/task-api/internal/core/domain"
)

// taskColumns selects a task joined with its owner summary. Queries alias
// the task relation as t and the owner as u.
const taskColumns = `t.id, t.user_id, t.title, t.description, t.status, t.due_date, t.created_at, u.id, u.name, u.email`

const returningTask = `RETURNING id, user_id, title, description, status, due_date, created_at`

// TaskRepository implements ports.TaskRepository on Postgres. Every
// statement filters on user_id.
type TaskRepository struct {
	db DBTX
}

func NewTaskRepository(db DBTX) *TaskRepository {
	return &TaskRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var (
		t      domain.Task
		owner  domain.Owner
		desc   sql.NullString
		status string
	)
	if err := row.Scan(&t.ID, &t.UserID, &t.Title, &desc, &status, &t.DueDate, &t.CreatedAt,
		&owner.ID, &owner.Name, &owner.Email); err != nil {
		return nil, err
	}
	if desc.Valid {
		t.Description = &desc.String
	}
	t.Status = domain.TaskStatus(status)
	t.DueDate = t.DueDate.UTC()
	t.CreatedAt = t.CreatedAt.UTC()
	t.Owner = &owner
	return &t, nil
}

func (r *TaskRepository) queryOne(ctx context.Context, query string, args ...any) (*domain.Task, error) {
	task, err := scanTask(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, translateError(err)
	}
	return task, nil
}

// List returns the user's tasks ordered by due date. An empty status
// disables the status filter.
func (r *TaskRepository) List(ctx context.Context, userID int64, status domain.TaskStatus) ([]*domain.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks t
		JOIN users u ON u.id = t.user_id
		WHERE t.user_id = $1 AND ($2 = '' OR t.status = $2)
		ORDER BY t.due_date ASC, t.id ASC`

	rows, err := r.db.QueryContext(ctx, query, userID, string(status))
	if err != nil {
		return nil, translateError(err)
	}
	defer rows.Close()

	tasks := make([]*domain.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, translateError(err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, translateError(err)
	}
	return tasks, nil
}

func (r *TaskRepository) FindByID(ctx context.Context, userID, taskID int64) (*domain.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks t
		JOIN users u ON u.id = t.user_id
		WHERE t.id = $1 AND t.user_id = $2`

	return r.queryOne(ctx, query, taskID, userID)
}

func (r *TaskRepository) Create(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	query := `
		WITH t AS (
			INSERT INTO tasks (user_id, title, description, status, due_date, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			` + returningTask + `
		)
		SELECT ` + taskColumns + `
		FROM t
		JOIN users u ON u.id = t.user_id`

	created, err := r.queryOne(ctx, query,
		task.UserID, task.Title, task.Description, string(task.Status), task.DueDate, task.CreatedAt)
	if errors.Is(err, domain.ErrTaskNotFound) {
		// The insert succeeded but the owner join came back empty.
		return nil, domain.ErrInvalidReference
	}
	return created, err
}

// Update sets only the non-nil patch fields; absent fields keep their
// stored value through COALESCE.
func (r *TaskRepository) Update(ctx context.Context, userID, taskID int64, p domain.TaskPatch) (*domain.Task, error) {
	query := `
		WITH t AS (
			UPDATE tasks SET
				title       = COALESCE($3, title),
				description = COALESCE($4, description),
				due_date    = COALESCE($5, due_date),
				status      = COALESCE($6, status)
			WHERE id = $1 AND user_id = $2
			` + returningTask + `
		)
		SELECT ` + taskColumns + `
		FROM t
		JOIN users u ON u.id = t.user_id`

	var status *string
	if p.Status != nil {
		s := string(*p.Status)
		status = &s
	}
	var due *time.Time
	if p.DueDate != nil {
		d := p.DueDate.UTC()
		due = &d
	}

	return r.queryOne(ctx, query, taskID, userID, p.Title, p.Description, due, status)
}

func (r *TaskRepository) Delete(ctx context.Context, userID, taskID int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1 AND user_id = $2`, taskID, userID)
	if err != nil {
		return translateError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return translateError(err)
	}
	if n == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

// MarkDone flips a pending task to done in one conditional statement. When
// nothing was updated, a scoped read tells a missing task from one that is
// already done.
func (r *TaskRepository) MarkDone(ctx context.Context, userID, taskID int64) (*domain.Task, error) {
	query := `
		WITH t AS (
			UPDATE tasks SET status = 'done'
			WHERE id = $1 AND user_id = $2 AND status = 'pending'
			` + returningTask + `
		)
		SELECT ` + taskColumns + `
		FROM t
		JOIN users u ON u.id = t.user_id`

	task, err := r.queryOne(ctx, query, taskID, userID)
	if !errors.Is(err, domain.ErrTaskNotFound) {
		return task, err
	}

	current, err := r.FindByID(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	if current.Status == domain.StatusDone {
		return nil, domain.ErrTaskAlreadyDone
	}
	// Concurrently reverted to pending between the two statements.
	return nil, domain.ErrTaskNotFound
}

func (r *TaskRepository) Counts(ctx context.Context, userID int64, now time.Time) (domain.TaskCounts, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'done'),
			COUNT(*) FILTER (WHERE status = 'pending' AND due_date < $2)
		FROM tasks
		WHERE user_id = $1`

	var c domain.TaskCounts
	if err := r.db.QueryRowContext(ctx, query, userID, now).Scan(&c.Total, &c.Pending, &c.Done, &c.Overdue); err != nil {
		return domain.TaskCounts{}, translateError(err)
	}
	return c, nil
}

package domain

import (
	"math"
	"time"
)

// TaskStatus represents the lifecycle state of a task.
type TaskStatus string

const (
	StatusPending TaskStatus = "pending"
	StatusDone    TaskStatus = "done"
)

// Valid reports whether s is one of the known statuses.
func (s TaskStatus) Valid() bool {
	return s == StatusPending || s == StatusDone
}

// Task is a work item owned by exactly one user.
type Task struct {
	ID          int64      `json:"id"`
	UserID      int64      `json:"user_id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	Status      TaskStatus `json:"status"`
	DueDate     time.Time  `json:"due_date"`
	CreatedAt   time.Time  `json:"created_at"`
	Owner       *Owner     `json:"user,omitempty"`
}

// TaskPatch carries the fields of a partial update. Nil fields are left
// untouched.
type TaskPatch struct {
	Title       *string
	Description *string
	DueDate     *time.Time
	Status      *TaskStatus
}

// Empty reports whether the patch changes nothing.
func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.DueDate == nil && p.Status == nil
}

// TaskCounts are the raw per-user aggregates read from the store.
type TaskCounts struct {
	Total   int64
	Pending int64
	Done    int64
	Overdue int64
}

// TaskStats is the statistics view returned to clients.
type TaskStats struct {
	Total          int64   `json:"total"`
	Pending        int64   `json:"pending"`
	Done           int64   `json:"done"`
	Overdue        int64   `json:"overdue"`
	CompletionRate float64 `json:"completion_rate"`
}

// NewTaskStats derives the completion rate (percent, two decimals) from counts.
func NewTaskStats(c TaskCounts) TaskStats {
	stats := TaskStats{
		Total:   c.Total,
		Pending: c.Pending,
		Done:    c.Done,
		Overdue: c.Overdue,
	}
	if c.Total > 0 {
		rate := float64(c.Done) / float64(c.Total) * 100
		stats.CompletionRate = math.Round(rate*100) / 100
	}
	return stats
}

package domain

import "time"

// TaskAction names a change recorded in a task's activity log.
type TaskAction string

const (
	ActionCreated TaskAction = "created"
	ActionUpdated TaskAction = "updated"
	ActionDone    TaskAction = "done"
	ActionDeleted TaskAction = "deleted"
)

// TaskEvent is one entry of a task's activity log.
type TaskEvent struct {
	TaskID     int64          `json:"task_id"`
	UserID     int64          `json:"user_id"`
	Action     TaskAction     `json:"action"`
	OccurredAt time.Time      `json:"occurred_at"`
	Changes    map[string]any `json:"changes,omitempty"`
}

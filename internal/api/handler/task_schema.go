package handler

import (
	"strconv"
	"strings"

	"github.com/tasktracker/task-api/internal/core/domain"
)

type createTaskRequest struct {
	Title       string  `json:"title"       validate:"required,min=3,max=255"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	DueDate     string  `json:"due_date"    validate:"required,iso8601,futuredate"`
	Status      string  `json:"status"      validate:"omitempty,oneof=pending done"`
}

func (r *createTaskRequest) normalize() {
	r.Title = strings.TrimSpace(r.Title)
	r.Description = trimPtr(r.Description)
	r.DueDate = strings.TrimSpace(r.DueDate)
}

// updateTaskRequest uses pointers so absent fields stay nil. A JSON null
// is indistinguishable from an absent field and leaves the value as is.
type updateTaskRequest struct {
	Title       *string `json:"title"       validate:"omitempty,min=3,max=255"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	DueDate     *string `json:"due_date"    validate:"omitempty,iso8601"`
	Status      *string `json:"status"      validate:"omitempty,oneof=pending done"`
}

func (r *updateTaskRequest) normalize() {
	r.Title = trimPtr(r.Title)
	r.Description = trimPtr(r.Description)
	r.DueDate = trimPtr(r.DueDate)
}

// patch converts a validated request into a domain.TaskPatch.
func (r *updateTaskRequest) patch() domain.TaskPatch {
	p := domain.TaskPatch{
		Title:       r.Title,
		Description: r.Description,
	}
	if r.DueDate != nil {
		if due, err := parseISODate(*r.DueDate); err == nil {
			p.DueDate = &due
		}
	}
	if r.Status != nil {
		s := domain.TaskStatus(*r.Status)
		p.Status = &s
	}
	return p
}

type taskIDParam struct {
	ID string `json:"id" validate:"required,posint"`
}

// value is only meaningful after validation has passed.
func (p taskIDParam) value() int64 {
	id, _ := strconv.ParseInt(p.ID, 10, 64)
	return id
}

type taskData struct {
	Task *domain.Task `json:"task"`
}

type taskListData struct {
	Tasks []*domain.Task `json:"tasks"`
}

type statsData struct {
	Stats domain.TaskStats `json:"stats"`
}

type eventsData struct {
	Events []domain.TaskEvent `json:"events"`
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

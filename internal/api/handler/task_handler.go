package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/tasktracker/task-api/internal/api/metrics"
	"github.com/tasktracker/task-api/internal/core/domain"
	"github.com/tasktracker/task-api/internal/core/ports"
)

// HeaderIdempotencyKey lets clients retry task creation safely.
const HeaderIdempotencyKey = "Idempotency-Key"

const maxIdempotencyKeyLen = 128

// TaskHandler handles HTTP requests for the authenticated user's tasks.
type TaskHandler struct {
	service ports.TaskService
}

func NewTaskHandler(service ports.TaskService) *TaskHandler {
	return &TaskHandler{service: service}
}

// List returns the user's tasks ordered by due date.
//
// @Summary      List tasks
// @Tags         tasks
// @Produce      json
// @Security     BearerAuth
// @Param        status  query     string  false  "Filter by status (pending, done)"
// @Success      200     {object}  successResponse{data=taskListData}
// @Failure      401     {object}  api.ErrorResponse
// @Router       /tasks [get]
func (h *TaskHandler) List(c echo.Context) error {
	user, err := ctxUser(c)
	if err != nil {
		return err
	}

	tasks, err := h.service.List(c.Request().Context(), user.ID, c.QueryParam("status"))
	metrics.TaskOperationsTotal.WithLabelValues("list", metrics.Result(err)).Inc()
	if err != nil {
		return err
	}
	return respondList(c, http.StatusOK, len(tasks), taskListData{Tasks: tasks})
}

// Get returns one task.
//
// @Summary      Get a task
// @Tags         tasks
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Task ID"
// @Success      200  {object}  successResponse{data=taskData}
// @Failure      400  {object}  api.ErrorResponse
// @Failure      404  {object}  api.ErrorResponse
// @Router       /tasks/{id} [get]
func (h *TaskHandler) Get(c echo.Context) error {
	user, taskID, err := h.scope(c)
	if err != nil {
		return err
	}

	task, err := h.service.Get(c.Request().Context(), user.ID, taskID)
	metrics.TaskOperationsTotal.WithLabelValues("get", metrics.Result(err)).Inc()
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "", taskData{Task: task})
}

// Create adds a task for the user. Repeating a request with the same
// Idempotency-Key returns the task created the first time with 200.
//
// @Summary      Create a task
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        Idempotency-Key  header    string             false  "Idempotency key to prevent duplicate submissions"
// @Param        body             body      createTaskRequest  true   "Task details"
// @Success      201              {object}  successResponse{data=taskData}
// @Success      200              {object}  successResponse{data=taskData}
// @Failure      400              {object}  api.ErrorResponse
// @Failure      401              {object}  api.ErrorResponse
// @Router       /tasks [post]
func (h *TaskHandler) Create(c echo.Context) error {
	user, err := ctxUser(c)
	if err != nil {
		return err
	}

	var req createTaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	key := strings.TrimSpace(c.Request().Header.Get(HeaderIdempotencyKey))
	if len(key) > maxIdempotencyKeyLen {
		return &domain.ValidationError{Fields: []domain.FieldError{{
			Field:   HeaderIdempotencyKey,
			Message: "Idempotency-Key must be at most 128 characters",
		}}}
	}

	due, _ := parseISODate(req.DueDate)
	res, err := h.service.Create(c.Request().Context(), user.ID, ports.CreateTaskInput{
		Title:          req.Title,
		Description:    req.Description,
		DueDate:        due,
		Status:         domain.TaskStatus(req.Status),
		IdempotencyKey: key,
	})
	metrics.TaskOperationsTotal.WithLabelValues("create", metrics.Result(err)).Inc()
	if err != nil {
		return err
	}

	if res.Replayed {
		metrics.IdempotentReplaysTotal.Inc()
		return respond(c, http.StatusOK, "task already created", taskData{Task: res.Task})
	}
	return respond(c, http.StatusCreated, "task created", taskData{Task: res.Task})
}

// Update applies a partial update to a task.
//
// @Summary      Update a task
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int                true  "Task ID"
// @Param        body  body      updateTaskRequest  true  "Fields to change"
// @Success      200   {object}  successResponse{data=taskData}
// @Failure      400   {object}  api.ErrorResponse
// @Failure      404   {object}  api.ErrorResponse
// @Router       /tasks/{id} [put]
func (h *TaskHandler) Update(c echo.Context) error {
	user, taskID, err := h.scope(c)
	if err != nil {
		return err
	}

	var req updateTaskRequest
	if err := (&echo.DefaultBinder{}).BindBody(c, &req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	task, err := h.service.Update(c.Request().Context(), user.ID, taskID, req.patch())
	metrics.TaskOperationsTotal.WithLabelValues("update", metrics.Result(err)).Inc()
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "task updated", taskData{Task: task})
}

// Delete removes a task.
//
// @Summary      Delete a task
// @Tags         tasks
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Task ID"
// @Success      200  {object}  successResponse
// @Failure      404  {object}  api.ErrorResponse
// @Router       /tasks/{id} [delete]
func (h *TaskHandler) Delete(c echo.Context) error {
	user, taskID, err := h.scope(c)
	if err != nil {
		return err
	}

	err = h.service.Delete(c.Request().Context(), user.ID, taskID)
	metrics.TaskOperationsTotal.WithLabelValues("delete", metrics.Result(err)).Inc()
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "task deleted", nil)
}

// MarkDone completes a pending task.
//
// @Summary      Mark a task as done
// @Tags         tasks
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Task ID"
// @Success      200  {object}  successResponse{data=taskData}
// @Failure      400  {object}  api.ErrorResponse
// @Failure      404  {object}  api.ErrorResponse
// @Router       /tasks/{id}/done [patch]
func (h *TaskHandler) MarkDone(c echo.Context) error {
	user, taskID, err := h.scope(c)
	if err != nil {
		return err
	}

	task, err := h.service.MarkDone(c.Request().Context(), user.ID, taskID)
	metrics.TaskOperationsTotal.WithLabelValues("done", metrics.Result(err)).Inc()
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "task marked as done", taskData{Task: task})
}

// Stats returns the user's task counters.
//
// @Summary      Task statistics
// @Tags         tasks
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  successResponse{data=statsData}
// @Failure      401  {object}  api.ErrorResponse
// @Router       /tasks/stats [get]
func (h *TaskHandler) Stats(c echo.Context) error {
	user, err := ctxUser(c)
	if err != nil {
		return err
	}

	stats, err := h.service.Stats(c.Request().Context(), user.ID)
	metrics.TaskOperationsTotal.WithLabelValues("stats", metrics.Result(err)).Inc()
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "", statsData{Stats: stats})
}

// History returns the activity log of a task.
//
// @Summary      Task activity log
// @Tags         tasks
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Task ID"
// @Success      200  {object}  successResponse{data=eventsData}
// @Failure      404  {object}  api.ErrorResponse
// @Router       /tasks/{id}/events [get]
func (h *TaskHandler) History(c echo.Context) error {
	user, taskID, err := h.scope(c)
	if err != nil {
		return err
	}

	events, err := h.service.History(c.Request().Context(), user.ID, taskID)
	metrics.TaskOperationsTotal.WithLabelValues("history", metrics.Result(err)).Inc()
	if err != nil {
		return err
	}
	return respondList(c, http.StatusOK, len(events), eventsData{Events: events})
}

// scope resolves the authenticated user and the validated :id parameter.
func (h *TaskHandler) scope(c echo.Context) (*domain.User, int64, error) {
	user, err := ctxUser(c)
	if err != nil {
		return nil, 0, err
	}
	param := taskIDParam{ID: c.Param("id")}
	if err := c.Validate(&param); err != nil {
		return nil, 0, err
	}
	return user, param.value(), nil
}

package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tasktracker/task-api/internal/api/middleware"
	"github.com/tasktracker/task-api/internal/core/domain"
	"github.com/tasktracker/task-api/internal/core/ports"
)

type stubTaskService struct {
	listFn     func(ctx context.Context, userID int64, status string) ([]*domain.Task, error)
	getFn      func(ctx context.Context, userID, taskID int64) (*domain.Task, error)
	createFn   func(ctx context.Context, userID int64, in ports.CreateTaskInput) (*ports.CreateTaskResult, error)
	updateFn   func(ctx context.Context, userID, taskID int64, patch domain.TaskPatch) (*domain.Task, error)
	deleteFn   func(ctx context.Context, userID, taskID int64) error
	markDoneFn func(ctx context.Context, userID, taskID int64) (*domain.Task, error)
	statsFn    func(ctx context.Context, userID int64) (domain.TaskStats, error)
	historyFn  func(ctx context.Context, userID, taskID int64) ([]domain.TaskEvent, error)
}

func (s *stubTaskService) List(ctx context.Context, userID int64, status string) ([]*domain.Task, error) {
	return s.listFn(ctx, userID, status)
}
func (s *stubTaskService) Get(ctx context.Context, userID, taskID int64) (*domain.Task, error) {
	return s.getFn(ctx, userID, taskID)
}
func (s *stubTaskService) Create(ctx context.Context, userID int64, in ports.CreateTaskInput) (*ports.CreateTaskResult, error) {
	return s.createFn(ctx, userID, in)
}
func (s *stubTaskService) Update(ctx context.Context, userID, taskID int64, patch domain.TaskPatch) (*domain.Task, error) {
	return s.updateFn(ctx, userID, taskID, patch)
}
func (s *stubTaskService) Delete(ctx context.Context, userID, taskID int64) error {
	return s.deleteFn(ctx, userID, taskID)
}
func (s *stubTaskService) MarkDone(ctx context.Context, userID, taskID int64) (*domain.Task, error) {
	return s.markDoneFn(ctx, userID, taskID)
}
func (s *stubTaskService) Stats(ctx context.Context, userID int64) (domain.TaskStats, error) {
	return s.statsFn(ctx, userID)
}
func (s *stubTaskService) History(ctx context.Context, userID, taskID int64) ([]domain.TaskEvent, error) {
	return s.historyFn(ctx, userID, taskID)
}

var ana = &domain.User{ID: 1, Name: "Ana", Email: "ana@x.io"}

// authedRequest builds a context as the access guard would leave it.
func authedRequest(method, target, body string, params ...string) (echo.Context, *httptest.ResponseRecorder) {
	e := newTestEcho()
	c, rec := jsonRequest(e, method, target, body)
	c.Set(middleware.UserKey, ana)
	if len(params) > 0 {
		c.SetParamNames("id")
		c.SetParamValues(params...)
	}
	return c, rec
}

func futureDate() string {
	return time.Now().AddDate(0, 0, 10).Format("2006-01-02")
}

func TestTaskHandler_Create_Success(t *testing.T) {
	var got ports.CreateTaskInput
	h := NewTaskHandler(&stubTaskService{
		createFn: func(_ context.Context, userID int64, in ports.CreateTaskInput) (*ports.CreateTaskResult, error) {
			if userID != ana.ID {
				t.Fatalf("expected user %d, got %d", ana.ID, userID)
			}
			got = in
			return &ports.CreateTaskResult{Task: &domain.Task{ID: 5, UserID: userID, Title: in.Title, Status: domain.StatusPending}}, nil
		},
	})

	due := futureDate()
	c, rec := authedRequest(http.MethodPost, "/api/tasks",
		`{"title":"  Write report  ","description":" notes ","due_date":"`+due+`"}`)
	c.Request().Header.Set(HeaderIdempotencyKey, "req-1")

	if err := h.Create(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if got.Title != "Write report" || got.Description == nil || *got.Description != "notes" {
		t.Fatalf("expected trimmed input, got %+v", got)
	}
	if got.DueDate.Format("2006-01-02") != due || got.Status != "" || got.IdempotencyKey != "req-1" {
		t.Fatalf("unexpected input: %+v", got)
	}
	task := decodeBody(t, rec)["data"].(map[string]any)["task"].(map[string]any)
	if task["id"] != float64(5) {
		t.Fatalf("unexpected task payload: %+v", task)
	}
}

func TestTaskHandler_Create_Replay(t *testing.T) {
	h := NewTaskHandler(&stubTaskService{
		createFn: func(context.Context, int64, ports.CreateTaskInput) (*ports.CreateTaskResult, error) {
			return &ports.CreateTaskResult{Task: &domain.Task{ID: 5}, Replayed: true}, nil
		},
	})

	c, rec := authedRequest(http.MethodPost, "/api/tasks", `{"title":"Write report","due_date":"`+futureDate()+`"}`)
	if err := h.Create(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on replay, got %d", rec.Code)
	}
}

func TestTaskHandler_Create_PastDueDate(t *testing.T) {
	h := NewTaskHandler(&stubTaskService{
		createFn: func(context.Context, int64, ports.CreateTaskInput) (*ports.CreateTaskResult, error) {
			t.Fatalf("should not be called")
			return nil, nil
		},
	})

	c, _ := authedRequest(http.MethodPost, "/api/tasks", `{"title":"Old task","due_date":"2020-01-01"}`)
	got := validationFields(t, h.Create(c))
	if len(got) != 1 || got[0] != "due_date" {
		t.Fatalf("expected due_date error, got %v", got)
	}
}

func TestTaskHandler_Create_InvalidFields(t *testing.T) {
	h := NewTaskHandler(&stubTaskService{})

	c, _ := authedRequest(http.MethodPost, "/api/tasks",
		`{"title":"  ab  ","description":"`+strings.Repeat("x", 2001)+`","due_date":"tomorrow","status":"archived"}`)
	got := validationFields(t, h.Create(c))
	want := "title,description,due_date,status"
	if strings.Join(got, ",") != want {
		t.Fatalf("expected %s, got %v", want, got)
	}
}

func TestTaskHandler_Create_IdempotencyKeyTooLong(t *testing.T) {
	h := NewTaskHandler(&stubTaskService{})

	c, _ := authedRequest(http.MethodPost, "/api/tasks", `{"title":"Write report","due_date":"`+futureDate()+`"}`)
	c.Request().Header.Set(HeaderIdempotencyKey, strings.Repeat("k", 129))

	got := validationFields(t, h.Create(c))
	if len(got) != 1 || got[0] != HeaderIdempotencyKey {
		t.Fatalf("unexpected fields: %v", got)
	}
}

func TestTaskHandler_List(t *testing.T) {
	h := NewTaskHandler(&stubTaskService{
		listFn: func(_ context.Context, userID int64, status string) ([]*domain.Task, error) {
			if status != "pending" {
				t.Fatalf("expected status filter to pass through, got %q", status)
			}
			return []*domain.Task{{ID: 1}, {ID: 2}}, nil
		},
	})

	c, rec := authedRequest(http.MethodGet, "/api/tasks?status=pending", "")
	if err := h.List(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	resp := decodeBody(t, rec)
	if resp["count"] != float64(2) {
		t.Fatalf("expected count 2, got %v", resp["count"])
	}
}

func TestTaskHandler_List_EmptyHasZeroCount(t *testing.T) {
	h := NewTaskHandler(&stubTaskService{
		listFn: func(context.Context, int64, string) ([]*domain.Task, error) {
			return []*domain.Task{}, nil
		},
	})

	c, rec := authedRequest(http.MethodGet, "/api/tasks", "")
	if err := h.List(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"count":0`) || !strings.Contains(rec.Body.String(), `"tasks":[]`) {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestTaskHandler_Get_InvalidID(t *testing.T) {
	h := NewTaskHandler(&stubTaskService{
		getFn: func(context.Context, int64, int64) (*domain.Task, error) {
			t.Fatalf("should not be called")
			return nil, nil
		},
	})

	for _, id := range []string{"abc", "0", "-3", "1.5"} {
		c, _ := authedRequest(http.MethodGet, "/api/tasks/"+id, "", id)
		got := validationFields(t, h.Get(c))
		if len(got) != 1 || got[0] != "id" {
			t.Fatalf("id %q: unexpected fields %v", id, got)
		}
	}
}

func TestTaskHandler_Get_NotFound(t *testing.T) {
	h := NewTaskHandler(&stubTaskService{
		getFn: func(_ context.Context, userID, taskID int64) (*domain.Task, error) {
			if taskID != 42 {
				t.Fatalf("expected task 42, got %d", taskID)
			}
			return nil, domain.ErrTaskNotFound
		},
	})

	c, _ := authedRequest(http.MethodGet, "/api/tasks/42", "", "42")
	if err := h.Get(c); !errors.Is(err, domain.ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound, got %v", err)
	}
}

func TestTaskHandler_Update_PartialPatch(t *testing.T) {
	var got domain.TaskPatch
	h := NewTaskHandler(&stubTaskService{
		updateFn: func(_ context.Context, _, _ int64, patch domain.TaskPatch) (*domain.Task, error) {
			got = patch
			return &domain.Task{ID: 3, Title: *patch.Title}, nil
		},
	})

	c, rec := authedRequest(http.MethodPut, "/api/tasks/3", `{"title":" Renamed ","status":"done"}`, "3")
	if err := h.Update(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got.Title == nil || *got.Title != "Renamed" {
		t.Fatalf("expected trimmed title, got %+v", got.Title)
	}
	if got.Description != nil || got.DueDate != nil {
		t.Fatalf("absent fields must stay nil: %+v", got)
	}
	if got.Status == nil || *got.Status != domain.StatusDone {
		t.Fatalf("expected status done, got %+v", got.Status)
	}
}

func TestTaskHandler_Update_PastDueDateAllowed(t *testing.T) {
	var got domain.TaskPatch
	h := NewTaskHandler(&stubTaskService{
		updateFn: func(_ context.Context, _, _ int64, patch domain.TaskPatch) (*domain.Task, error) {
			got = patch
			return &domain.Task{ID: 3}, nil
		},
	})

	c, _ := authedRequest(http.MethodPut, "/api/tasks/3", `{"due_date":"2020-01-01T10:00:00Z"}`, "3")
	if err := h.Update(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	want := time.Date(2020, 1, 1, 10, 0, 0, 0, time.UTC)
	if got.DueDate == nil || !got.DueDate.Equal(want) {
		t.Fatalf("expected due date %v, got %v", want, got.DueDate)
	}
}

func TestTaskHandler_Update_Invalid(t *testing.T) {
	h := NewTaskHandler(&stubTaskService{})

	c, _ := authedRequest(http.MethodPut, "/api/tasks/3", `{"title":"","status":"nope"}`, "3")
	got := validationFields(t, h.Update(c))
	if strings.Join(got, ",") != "title,status" {
		t.Fatalf("unexpected fields: %v", got)
	}
}

func TestTaskHandler_Delete(t *testing.T) {
	h := NewTaskHandler(&stubTaskService{
		deleteFn: func(context.Context, int64, int64) error { return nil },
	})

	c, rec := authedRequest(http.MethodDelete, "/api/tasks/3", "", "3")
	if err := h.Delete(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	resp := decodeBody(t, rec)
	if resp["success"] != true || resp["message"] != "task deleted" {
		t.Fatalf("unexpected body: %+v", resp)
	}
	if _, ok := resp["data"]; ok {
		t.Fatalf("delete must not return data: %+v", resp)
	}
}

func TestTaskHandler_MarkDone_AlreadyDone(t *testing.T) {
	h := NewTaskHandler(&stubTaskService{
		markDoneFn: func(context.Context, int64, int64) (*domain.Task, error) {
			return nil, domain.ErrTaskAlreadyDone
		},
	})

	c, _ := authedRequest(http.MethodPatch, "/api/tasks/3/done", "", "3")
	if err := h.MarkDone(c); !errors.Is(err, domain.ErrTaskAlreadyDone) {
		t.Fatalf("expected ErrTaskAlreadyDone, got %v", err)
	}
}

func TestTaskHandler_Stats(t *testing.T) {
	h := NewTaskHandler(&stubTaskService{
		statsFn: func(context.Context, int64) (domain.TaskStats, error) {
			return domain.NewTaskStats(domain.TaskCounts{Total: 3, Pending: 2, Done: 1, Overdue: 1}), nil
		},
	})

	c, rec := authedRequest(http.MethodGet, "/api/tasks/stats", "")
	if err := h.Stats(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	stats := decodeBody(t, rec)["data"].(map[string]any)["stats"].(map[string]any)
	if stats["total"] != float64(3) || stats["completion_rate"] != 33.33 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestTaskHandler_History(t *testing.T) {
	h := NewTaskHandler(&stubTaskService{
		historyFn: func(context.Context, int64, int64) ([]domain.TaskEvent, error) {
			return []domain.TaskEvent{{TaskID: 3, Action: domain.ActionCreated}}, nil
		},
	})

	c, rec := authedRequest(http.MethodGet, "/api/tasks/3/events", "", "3")
	if err := h.History(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if decodeBody(t, rec)["count"] != float64(1) {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

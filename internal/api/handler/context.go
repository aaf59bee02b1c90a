package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tasktracker/task-api/internal/api/middleware"
	"github.com/tasktracker/task-api/internal/core/domain"
)

// ctxUser returns the user attached by the access guard. A missing user
// means the route was registered without the guard.
func ctxUser(c echo.Context) (*domain.User, error) {
	user, ok := c.Get(middleware.UserKey).(*domain.User)
	if !ok || user == nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "missing authenticated user")
	}
	return user, nil
}

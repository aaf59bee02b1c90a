package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/tasktracker/task-api/internal/core/domain"
)

// ErrorResponse is the canonical error envelope for all API errors.
type ErrorResponse struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Errors  []domain.FieldError `json:"errors,omitempty"`
	Detail  string              `json:"detail,omitempty"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that maps domain
// errors to status codes and renders ErrorResponse. Unexpected errors are
// logged; their text is only exposed in the detail field outside
// production.
func NewHTTPErrorHandler(log zerolog.Logger, env string) echo.HTTPErrorHandler {
	exposeDetail := env != "production"

	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, resp := resolveError(err)
		if code >= http.StatusInternalServerError {
			log.Error().
				Err(err).
				Int("status", code).
				Str("method", c.Request().Method).
				Str("path", c.Path()).
				Msg("request failed")
			if exposeDetail && code == http.StatusInternalServerError {
				resp.Detail = err.Error()
			}
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, resp)
	}
}

func resolveError(err error) (int, ErrorResponse) {
	fail := func(code int, msg string) (int, ErrorResponse) {
		return code, ErrorResponse{Success: false, Message: msg}
	}

	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return http.StatusBadRequest, ErrorResponse{
			Success: false,
			Message: "validation failed",
			Errors:  ve.Fields,
		}
	}

	switch {
	case errors.Is(err, domain.ErrEmailTaken):
		return fail(http.StatusConflict, "email is already in use")
	case errors.Is(err, domain.ErrInvalidReference):
		return fail(http.StatusBadRequest, "invalid reference")
	case errors.Is(err, domain.ErrUnavailable):
		return fail(http.StatusServiceUnavailable, "database unavailable")
	case errors.Is(err, domain.ErrInvalidCredentials):
		return fail(http.StatusUnauthorized, domain.ErrInvalidCredentials.Error())
	case errors.Is(err, domain.ErrMissingToken):
		return fail(http.StatusUnauthorized, "access denied: missing token")
	case errors.Is(err, domain.ErrTokenExpired):
		return fail(http.StatusUnauthorized, "token expired, please log in again")
	case errors.Is(err, domain.ErrUserNotFound) && domain.IsAuthError(err):
		return fail(http.StatusUnauthorized, "user not found")
	case errors.Is(err, domain.ErrUserNotFound):
		return fail(http.StatusNotFound, "user not found")
	case errors.Is(err, domain.ErrTokenMalformed), errors.Is(err, domain.ErrTokenInvalid):
		return fail(http.StatusUnauthorized, "invalid token")
	case errors.Is(err, domain.ErrTaskNotFound):
		return fail(http.StatusNotFound, "task not found")
	case errors.Is(err, domain.ErrTaskAlreadyDone):
		return fail(http.StatusBadRequest, "task is already done")
	}

	// Echo's own errors (bind failures, 404/405 from the router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return fail(he.Code, fmt.Sprintf("%v", he.Message))
	}

	return fail(http.StatusInternalServerError, "internal server error")
}

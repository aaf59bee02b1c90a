package middleware

import (
	"errors"
	"fmt"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/tasktracker/task-api/internal/api/metrics"
	"github.com/tasktracker/task-api/internal/core/domain"
	"github.com/tasktracker/task-api/internal/core/ports"
)

// UserKey is the echo context key holding the authenticated *domain.User.
const UserKey = "user"

// Auth guards a route group: it requires a Bearer token, verifies it,
// resolves the claimed user and attaches the user to the context. Every
// rejection is returned as an error for the HTTP error handler to render.
func Auth(verifier ports.TokenVerifier, users ports.UserFinder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				metrics.GuardRejectionsTotal.WithLabelValues("missing_token").Inc()
				return domain.ErrMissingToken
			}

			claims, err := verifier.Verify(token)
			if err != nil {
				metrics.GuardRejectionsTotal.WithLabelValues(rejectionReason(err)).Inc()
				return err
			}

			user, err := users.FindByID(c.Request().Context(), claims.UserID)
			if err != nil {
				if errors.Is(err, domain.ErrUserNotFound) {
					metrics.GuardRejectionsTotal.WithLabelValues("user_not_found").Inc()
					return fmt.Errorf("%w: %w", domain.ErrTokenInvalid, err)
				}
				return err
			}

			c.Set(UserKey, user)
			return next(c)
		}
	}
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrTokenExpired):
		return "token_expired"
	case errors.Is(err, domain.ErrTokenMalformed):
		return "token_malformed"
	default:
		return "token_invalid"
	}
}

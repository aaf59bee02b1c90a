package domain

import (
	"errors"
	"strings"
)

var (
	ErrTaskNotFound    = errors.New("task not found")
	ErrTaskAlreadyDone = errors.New("task is already done")

	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email is already in use")
	ErrInvalidCredentials = errors.New("incorrect email or password")

	ErrMissingToken   = errors.New("missing bearer token")
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenMalformed = errors.New("malformed token")
	ErrTokenInvalid   = errors.New("invalid token")

	ErrInvalidReference = errors.New("invalid reference")
	ErrUnavailable      = errors.New("datastore unavailable")
)

// FieldError is a single rule violation on a request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError aggregates the field errors of a rejected payload, in
// rule order.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// IsAuthError reports whether err means the caller is not authenticated.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrMissingToken) ||
		errors.Is(err, ErrTokenExpired) ||
		errors.Is(err, ErrTokenMalformed) ||
		errors.Is(err, ErrTokenInvalid) ||
		errors.Is(err, ErrInvalidCredentials)
}

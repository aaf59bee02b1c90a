package handler

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/tasktracker/task-api/internal/core/domain"
)

// normalizer is implemented by request schemas that trim or canonicalise
// their fields before the rules run.
type normalizer interface {
	normalize()
}

// echoValidator wraps go-playground/validator so Echo can call c.Validate(req).
type echoValidator struct {
	v   *validator.Validate
	now func() time.Time
}

// NewValidator returns an echoValidator ready to be assigned to echo.Echo.Validator.
func NewValidator() *echoValidator {
	return newValidator(time.Now)
}

func newValidator(now func() time.Time) *echoValidator {
	ev := &echoValidator{v: validator.New(), now: now}

	ev.v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "param", "query"} {
			name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return f.Name
	})

	// Registration of static, well-formed validators cannot fail.
	_ = ev.v.RegisterValidation("password", validatePassword)
	_ = ev.v.RegisterValidation("iso8601", validateISODate)
	_ = ev.v.RegisterValidation("futuredate", ev.validateFutureDate)
	_ = ev.v.RegisterValidation("posint", validatePositiveInt)

	return ev
}

// Validate satisfies the echo.Validator interface. Rule violations are
// returned as *domain.ValidationError, one entry per failing field in
// declaration order.
func (ev *echoValidator) Validate(i any) error {
	if n, ok := i.(normalizer); ok {
		n.normalize()
	}
	if err := ev.v.Struct(i); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			fields := make([]domain.FieldError, 0, len(ve))
			for _, fe := range ve {
				fields = append(fields, domain.FieldError{
					Field:   fe.Field(),
					Message: fieldError(fe),
				})
			}
			return &domain.ValidationError{Fields: fields}
		}
		return err
	}
	return nil
}

// fieldError converts a single FieldError into a human-readable message.
func fieldError(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "password":
		return field + " must contain an uppercase letter, a lowercase letter and a digit"
	case "iso8601":
		return field + " must be an ISO 8601 date (YYYY-MM-DD)"
	case "futuredate":
		return field + " must be in the future"
	case "posint":
		return field + " must be a positive integer"
	default:
		return fmt.Sprintf("%s failed validation (%s)", field, fe.Tag())
	}
}

func validatePassword(fl validator.FieldLevel) bool {
	var upper, lower, digit bool
	for _, r := range fl.Field().String() {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return upper && lower && digit
}

func validateISODate(fl validator.FieldLevel) bool {
	_, err := parseISODate(fl.Field().String())
	return err == nil
}

func (ev *echoValidator) validateFutureDate(fl validator.FieldLevel) bool {
	t, err := parseISODate(fl.Field().String())
	if err != nil {
		return false
	}
	return t.After(ev.now())
}

func validatePositiveInt(fl validator.FieldLevel) bool {
	n, err := strconv.ParseInt(fl.Field().String(), 10, 64)
	return err == nil && n > 0
}

// isoLayouts are the accepted due date encodings. Layouts without a zone
// are read as UTC.
var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

func parseISODate(s string) (time.Time, error) {
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

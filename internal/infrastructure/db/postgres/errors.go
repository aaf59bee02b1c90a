package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tasktracker/task-api/internal/core/domain"
)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeAdminShutdown       = "57P01"
	codeCannotConnectNow    = "57P03"
	classConnectionError    = "08"
)

// translateError maps driver errors onto domain sentinels, keeping the
// original error in the chain.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == codeUniqueViolation:
			return fmt.Errorf("%w: %w", domain.ErrEmailTaken, err)
		case pgErr.Code == codeForeignKeyViolation:
			return fmt.Errorf("%w: %w", domain.ErrInvalidReference, err)
		case pgErr.Code == codeAdminShutdown,
			pgErr.Code == codeCannotConnectNow,
			strings.HasPrefix(pgErr.Code, classConnectionError):
			return fmt.Errorf("%w: %w", domain.ErrUnavailable, err)
		}
		return fmt.Errorf("db error: %w", err)
	}

	if isConnectionError(err) {
		return fmt.Errorf("%w: %w", domain.ErrUnavailable, err)
	}
	return fmt.Errorf("db error: %w", err)
}

func isConnectionError(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

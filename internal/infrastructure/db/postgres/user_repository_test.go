package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tasktracker/task-api/internal/core/domain"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

var userColumns = []string{"id", "name", "email", "password_hash", "created_at"}

func TestUserRepository_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectQuery(`(?s)INSERT\s+INTO\s+users\s*\(name,\s*email,\s*password_hash,\s*created_at\).*RETURNING\s+id,\s*created_at`).
		WithArgs("Ana", "ana@x.io", "digest", now).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(7), now))

	got, err := repo.Create(context.Background(), &domain.User{
		Name: "Ana", Email: "ana@x.io", PasswordHash: "digest", CreatedAt: now,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.ID)
	assert.Equal(t, "ana@x.io", got.Email)
	assert.Equal(t, "digest", got.PasswordHash)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Create_DuplicateEmail(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(`INSERT\s+INTO\s+users`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})

	_, err := repo.Create(context.Background(), &domain.User{Name: "Ana", Email: "ana@x.io"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmailTaken)
}

func TestUserRepository_FindByEmail(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)
	now := time.Now().UTC()

	mock.ExpectQuery(`(?s)SELECT\s+id,\s*name,\s*email,\s*password_hash,\s*created_at\s+FROM\s+users\s+WHERE\s+email\s*=\s*\$1`).
		WithArgs("ana@x.io").
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow(int64(1), "Ana", "ana@x.io", "digest", now))

	got, err := repo.FindByEmail(context.Background(), "ana@x.io")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.ID)
	assert.Equal(t, "Ana", got.Name)
	assert.Equal(t, "digest", got.PasswordHash)
}

func TestUserRepository_FindByID_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(`FROM\s+users\s+WHERE\s+id\s*=\s*\$1`).
		WithArgs(int64(99)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), 99)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestUserRepository_FindByID_Unavailable(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(`FROM\s+users`).
		WillReturnError(&pgconn.PgError{Code: "08006"})

	_, err := repo.FindByID(context.Background(), 1)
	assert.ErrorIs(t, err, domain.ErrUnavailable)
}

func TestTranslateError(t *testing.T) {
	cases := []struct {
		name string
		in   error
		want error
	}{
		{"unique", &pgconn.PgError{Code: "23505"}, domain.ErrEmailTaken},
		{"foreign key", &pgconn.PgError{Code: "23503"}, domain.ErrInvalidReference},
		{"admin shutdown", &pgconn.PgError{Code: "57P01"}, domain.ErrUnavailable},
		{"bad conn", sql.ErrConnDone, domain.ErrUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, translateError(tc.in), tc.want)
		})
	}

	assert.NoError(t, translateError(nil))

	plain := translateError(errors.New("boom"))
	assert.EqualError(t, plain, "db error: boom")
	assert.NotErrorIs(t, translateError(context.Canceled), domain.ErrUnavailable)
}

package ports

import (
	"context"

	"github.com/tasktracker/task-api/internal/core/domain"
)

// RegisterInput carries the validated registration payload.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	User  *domain.User
	Token string
}

type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
}

// TokenVerifier resolves a bearer token into its claims.
type TokenVerifier interface {
	Verify(token string) (*domain.Claims, error)
}

// UserFinder resolves a user id to a live account.
type UserFinder interface {
	FindByID(ctx context.Context, id int64) (*domain.User, error)
}

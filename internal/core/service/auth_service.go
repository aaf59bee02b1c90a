package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tasktracker/task-api/internal/core/domain"
	"github.com/tasktracker/task-api/internal/core/ports"
)

// Hasher is the credential hashing dependency of AuthService.
type Hasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, digest string) bool
}

// TokenSigner issues session tokens for authenticated users.
type TokenSigner interface {
	Issue(user *domain.User) (string, error)
}

// fallbackDummyHash is a cost-10 bcrypt digest used when the configured
// hasher cannot produce one at construction time.
const fallbackDummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// AuthService implements registration and login.
type AuthService struct {
	repo   ports.UserRepository
	hasher Hasher
	tokens TokenSigner
	log    zerolog.Logger

	// dummyHash is compared against when the email is unknown so both
	// login failure paths cost one bcrypt comparison.
	dummyHash string
}

func NewAuthService(repo ports.UserRepository, hasher Hasher, tokens TokenSigner, log zerolog.Logger) *AuthService {
	dummy, err := hasher.Hash("dummy-password-for-timing")
	if err != nil || dummy == "" {
		log.Warn().Err(err).Msg("dummy hash unavailable, using fallback digest")
		dummy = fallbackDummyHash
	}
	return &AuthService{repo: repo, hasher: hasher, tokens: tokens, log: log, dummyHash: dummy}
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register hashes the password, stores the user and issues a token. A
// duplicate email yields domain.ErrEmailTaken.
func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error) {
	email := NormalizeEmail(in.Email)

	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, domain.ErrEmailTaken
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, fmt.Errorf("register: %w", err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("register: hash password: %w", err)
	}

	user, err := s.repo.Create(ctx, &domain.User{
		Name:         strings.TrimSpace(in.Name),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("register: issue token: %w", err)
	}

	s.log.Info().Int64("user_id", user.ID).Msg("user registered")
	return &ports.AuthResult{User: user, Token: token}, nil
}

// Login checks the credentials and issues a token. Unknown email and wrong
// password both yield domain.ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (*ports.AuthResult, error) {
	user, err := s.repo.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			s.hasher.Verify(password, s.dummyHash)
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("login: %w", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("login: issue token: %w", err)
	}

	return &ports.AuthResult{User: user, Token: token}, nil
}

package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/vovakirdan/pairchat/internal/store"
)

var (
	// ErrUserExists is returned when the username or email is already taken.
	ErrUserExists = errors.New("user already exists")
	// ErrInvalidUsername is returned when username doesn't meet constraints.
	ErrInvalidUsername = errors.New("invalid username")
	// ErrInvalidEmail is returned when email doesn't meet constraints.
	ErrInvalidEmail = errors.New("invalid email")
	// ErrInvalidPassword is returned when password doesn't meet constraints.
	ErrInvalidPassword = errors.New("invalid password")
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,32}$`)

// Service seeds accounts and issues tokens for them. It backs the operator CLI;
// the realtime path only verifies tokens.
type Service struct {
	store     store.UserStore
	jwtConfig *JWTConfig
}

// NewService creates a new authentication service.
func NewService(userStore store.UserStore, jwtConfig *JWTConfig) *Service {
	return &Service{
		store:     userStore,
		jwtConfig: jwtConfig,
	}
}

// CreateAdmin stores an administrator with a bcrypt-hashed password.
func (s *Service) CreateAdmin(ctx context.Context, username, email, password string) (*store.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if !usernamePattern.MatchString(username) {
		return nil, ErrInvalidUsername
	}
	if email != "" && (strings.ContainsAny(email, " \t") || !strings.Contains(email, "@")) {
		return nil, ErrInvalidEmail
	}
	if len(password) < 8 || len(password) > 72 {
		return nil, ErrInvalidPassword
	}

	hashedPassword, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &store.User{
		ID:           store.NewID(),
		Username:     username,
		Email:        email,
		PasswordHash: hashedPassword,
		IsAdmin:      true,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.InsertUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return user, nil
}

// IssueToken returns a signed access token for the account.
func (s *Service) IssueToken(username, email string) (string, error) {
	token, err := GenerateToken(s.jwtConfig, username, email)
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return token, nil
}

// Authenticate checks the password of a seeded account and returns a token for it.
// Unknown accounts and accounts without a password fail like a wrong password.
func (s *Service) Authenticate(ctx context.Context, username, password string) (string, error) {
	user, err := s.store.GetUserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, store.ErrNotFound) {
		return "", ErrPasswordMismatch
	}
	if err != nil {
		return "", fmt.Errorf("get user: %w", err)
	}
	if user.PasswordHash == "" {
		return "", ErrPasswordMismatch
	}
	if err := ComparePassword(user.PasswordHash, password); err != nil {
		return "", err
	}
	return s.IssueToken(user.Username, user.Email)
}

// Verifier returns a verifier sharing this service's JWT configuration.
func (s *Service) Verifier() *JWTVerifier {
	return NewJWTVerifier(s.jwtConfig)
}

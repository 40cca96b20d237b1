package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vovakirdan/pairchat/internal/store"
)

var (
	// ErrMissingCredential is returned when no Authorization header was sent.
	ErrMissingCredential = errors.New("missing authorization header")
	// ErrMalformedCredential is returned when the header is not "Bearer <token>".
	ErrMalformedCredential = errors.New("invalid authorization header format")
	// ErrInvalidCredential is returned when the token fails verification.
	ErrInvalidCredential = errors.New("invalid token")
)

// Verifier turns a bearer token into a verified identity claim.
type Verifier interface {
	Verify(token string) (store.Claim, error)
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header value.
func BearerToken(header string) (string, error) {
	if header == "" {
		return "", ErrMissingCredential
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || scheme != "Bearer" || token == "" || strings.ContainsAny(token, " \t") {
		return "", ErrMalformedCredential
	}
	return token, nil
}

// JWTVerifier verifies HS256 access tokens.
type JWTVerifier struct {
	cfg *JWTConfig
}

// NewJWTVerifier creates a verifier for tokens signed with cfg.
func NewJWTVerifier(cfg *JWTConfig) *JWTVerifier {
	return &JWTVerifier{cfg: cfg}
}

// Verify validates the token and returns its claim. Tokens without a username fall
// back to the subject.
func (v *JWTVerifier) Verify(token string) (store.Claim, error) {
	claims, err := ValidateToken(v.cfg, token)
	if err != nil {
		return store.Claim{}, fmt.Errorf("%w: %w", ErrInvalidCredential, err)
	}

	username := claims.Username
	if username == "" {
		username = claims.Subject
	}
	if username == "" {
		return store.Claim{}, fmt.Errorf("%w: no username claim", ErrInvalidCredential)
	}

	return store.Claim{Username: username, Email: claims.Email}, nil
}

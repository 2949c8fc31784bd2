package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/vovakirdan/coderoom-server/internal/store"
)

var (
	// ErrInvalidCredentials is returned when username/password don't match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserExists is returned when registering an already-taken username.
	ErrUserExists = errors.New("user already exists")
	// ErrInvalidUsername is returned when the username fails validation.
	ErrInvalidUsername = errors.New("invalid username")
	// ErrInvalidPassword is returned when the password fails validation.
	ErrInvalidPassword = errors.New("invalid password")
)

// Service issues and validates the credentials the HTTP API and the room
// join path both rely on.
type Service struct {
	store     store.UserStore
	jwtConfig *JWTConfig
}

// NewService creates an authentication service over the given user store.
func NewService(userStore store.UserStore, jwtConfig *JWTConfig) *Service {
	return &Service{
		store:     userStore,
		jwtConfig: jwtConfig,
	}
}

// Register creates an account and returns a token for it. The username is
// trimmed before validation so padded variants collide with the plain one.
func (s *Service) Register(ctx context.Context, username, password string) (string, error) {
	username = strings.TrimSpace(username)
	if len(username) < 3 || len(username) > 32 {
		return "", ErrInvalidUsername
	}
	if len(password) < 6 {
		return "", ErrInvalidPassword
	}

	if existing, err := s.store.GetUserByUsername(ctx, username); err == nil && existing != nil {
		return "", ErrUserExists
	}

	hash, err := HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	user, err := s.store.CreateUser(ctx, username, hash)
	if err != nil {
		return "", fmt.Errorf("create user: %w", err)
	}

	return s.issueToken(user, false)
}

// Login checks the credentials and returns a token. Lookup and password
// failures collapse into the same error so usernames can't be probed.
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		return "", ErrInvalidCredentials
	}
	if err := ComparePassword(user.PasswordHash, password); err != nil {
		return "", ErrInvalidCredentials
	}
	return s.issueToken(user, false)
}

// CreateGuestUser mints a throwaway account keyed by a random session ID
// and returns its token alongside the session ID for the cookie.
func (s *Service) CreateGuestUser(ctx context.Context) (token, sessionID string, err error) {
	raw := make([]byte, 16)
	if _, err := rand.Read(raw); err != nil {
		return "", "", fmt.Errorf("generate session ID: %w", err)
	}
	sessionID = hex.EncodeToString(raw)

	user, err := s.store.CreateGuestUser(ctx, sessionID)
	if err != nil {
		return "", "", fmt.Errorf("create guest user: %w", err)
	}

	token, err = s.issueToken(user, true)
	if err != nil {
		return "", "", err
	}
	return token, sessionID, nil
}

// ResumeGuest re-issues a token for an existing guest session. Returns
// store.ErrNotFound when the session ID does not map to a guest account.
func (s *Service) ResumeGuest(ctx context.Context, sessionID string) (string, error) {
	user, err := s.store.GetUserBySessionID(ctx, sessionID)
	if err != nil {
		return "", err
	}
	return s.issueToken(user, true)
}

// ValidateToken parses and validates a token, returning its claims.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	return ValidateToken(s.jwtConfig, tokenString)
}

// VerifyToken validates a bearer credential and yields the embedded identity.
// It satisfies the hub's TokenVerifier dependency.
func (s *Service) VerifyToken(tokenString string) (userID, username string, err error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return "", "", err
	}
	return claims.UserID, claims.Username, nil
}

func (s *Service) issueToken(user *store.User, isGuest bool) (string, error) {
	token, err := GenerateToken(s.jwtConfig, user.ID, user.Username, isGuest)
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return token, nil
}

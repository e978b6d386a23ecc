package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ledgerly/internal/auth"
	"ledgerly/internal/core"
	"ledgerly/internal/session"
	"ledgerly/internal/storage"
)

// UserStore is the persistence surface for account records.
type UserStore interface {
	CreateUser(ctx context.Context, email, passwordHash string) (*storage.User, error)
	GetUserByEmail(ctx context.Context, email string) (*storage.User, error)
}

// AuthService handles registration, login and logout. Both register
// and login leave the caller with a live session.
type AuthService struct {
	storage    UserStore
	sessions   session.Store
	bcryptCost int
}

func NewAuthService(storage UserStore, sessions session.Store, bcryptCost int) *AuthService {
	return &AuthService{
		storage:    storage,
		sessions:   sessions,
		bcryptCost: bcryptCost,
	}
}

// Register creates an account and opens a session for it. The email is
// lowercased so lookups are case insensitive.
func (s *AuthService) Register(ctx context.Context, email, password string) (core.Identity, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return core.Identity{}, "", fmt.Errorf("hash password: %w", err)
	}

	user, err := s.storage.CreateUser(ctx, email, hash)
	if err != nil {
		return core.Identity{}, "", err
	}

	identity := core.Identity{ID: user.ID, Email: user.Email}
	token, err := s.sessions.Create(ctx, identity)
	if err != nil {
		return core.Identity{}, "", err
	}
	return identity, token, nil
}

// Login verifies the credentials and opens a session. An unknown email
// and a wrong password produce the same error.
func (s *AuthService) Login(ctx context.Context, email, password string) (core.Identity, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.storage.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.Identity{}, "", core.ErrInvalidCredentials
		}
		return core.Identity{}, "", fmt.Errorf("load user: %w", err)
	}

	if !auth.CheckPassword(password, user.PasswordHash) {
		return core.Identity{}, "", core.ErrInvalidCredentials
	}

	identity := core.Identity{ID: user.ID, Email: user.Email}
	token, err := s.sessions.Create(ctx, identity)
	if err != nil {
		return core.Identity{}, "", err
	}
	return identity, token, nil
}

// Logout destroys the session behind the token. Unknown tokens are
// ignored so logout is idempotent.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.sessions.Destroy(ctx, token)
}

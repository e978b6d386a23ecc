package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ledgerly/internal/auth"
	"ledgerly/internal/cache"
	"ledgerly/internal/core"
	"ledgerly/internal/storage"
)

// Store issues opaque session tokens and resolves them back to the
// identity that owns them. Tokens expire after a fixed TTL with no
// sliding renewal.
type Store interface {
	// Create mints a new token for the identity.
	Create(ctx context.Context, identity core.Identity) (string, error)

	// Lookup resolves a token to its identity. An unknown or expired
	// token yields core.ErrUnauthenticated.
	Lookup(ctx context.Context, token string) (core.Identity, error)

	// Destroy invalidates a token. Destroying an unknown token is not
	// an error.
	Destroy(ctx context.Context, token string) error
}

// Repository is the persistence surface the SQL-backed store needs.
type Repository interface {
	CreateSession(ctx context.Context, token string, userID int64, expiresAt time.Time) error
	GetSession(ctx context.Context, token string) (*storage.Session, error)
	DeleteSession(ctx context.Context, token string) error
}

const lookupCacheSize = 1024

// SQLStore persists sessions in SQLite and keeps a short-lived lookup
// cache in front of the sessions table. Expiry is always re-checked
// against the stored deadline, cached or not.
type SQLStore struct {
	repo  Repository
	ttl   time.Duration
	cache cache.Cache[storage.Session]
	now   func() time.Time
}

// NewSQLStore creates a session store with the given fixed TTL.
func NewSQLStore(repo Repository, ttl time.Duration) *SQLStore {
	// Cache entries live well under the session TTL so a stale row
	// never outlives its backing session by much.
	cacheTTL := min(ttl/4, 5*time.Minute)
	return &SQLStore{
		repo:  repo,
		ttl:   ttl,
		cache: cache.NewLRUCache[storage.Session](lookupCacheSize, cacheTTL),
		now:   time.Now,
	}
}

// RegisterCache attaches the lookup cache to a cleanup manager.
func (s *SQLStore) RegisterCache(m *cache.Manager) {
	if c, ok := s.cache.(*cache.LRUCache[storage.Session]); ok {
		m.Register(c)
	}
}

func (s *SQLStore) Create(ctx context.Context, identity core.Identity) (string, error) {
	token, err := auth.GenerateSessionToken()
	if err != nil {
		return "", fmt.Errorf("generating session token: %w", err)
	}

	expiresAt := s.now().UTC().Add(s.ttl)
	if err := s.repo.CreateSession(ctx, token, identity.ID, expiresAt); err != nil {
		return "", fmt.Errorf("persisting session: %w", err)
	}

	s.cache.Set(token, storage.Session{
		Token:     token,
		UserID:    identity.ID,
		Email:     identity.Email,
		ExpiresAt: expiresAt,
	})
	return token, nil
}

func (s *SQLStore) Lookup(ctx context.Context, token string) (core.Identity, error) {
	if token == "" {
		return core.Identity{}, core.ErrUnauthenticated
	}

	if cached, ok := s.cache.Get(token); ok {
		if s.now().UTC().After(cached.ExpiresAt) {
			s.cache.Delete(token)
			return core.Identity{}, core.ErrUnauthenticated
		}
		return core.Identity{ID: cached.UserID, Email: cached.Email}, nil
	}

	sess, err := s.repo.GetSession(ctx, token)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.Identity{}, core.ErrUnauthenticated
		}
		return core.Identity{}, fmt.Errorf("loading session: %w", err)
	}

	if s.now().UTC().After(sess.ExpiresAt) {
		// Expired rows are removed lazily here and in bulk by the
		// sweeper.
		_ = s.repo.DeleteSession(ctx, token)
		return core.Identity{}, core.ErrUnauthenticated
	}

	s.cache.Set(token, *sess)
	return core.Identity{ID: sess.UserID, Email: sess.Email}, nil
}

func (s *SQLStore) Destroy(ctx context.Context, token string) error {
	s.cache.Delete(token)
	if err := s.repo.DeleteSession(ctx, token); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

package session

import (
	"context"
	"sync"
	"time"

	"ledgerly/internal/auth"
	"ledgerly/internal/core"
)

type memorySession struct {
	identity  core.Identity
	expiresAt time.Time
}

// MemoryStore keeps sessions in a map. It backs tests and short-lived
// tooling; the server uses the SQL-backed store.
type MemoryStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]memorySession
	now      func() time.Time
}

// NewMemoryStore creates an in-memory session store.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:      ttl,
		sessions: make(map[string]memorySession),
		now:      time.Now,
	}
}

func (s *MemoryStore) Create(_ context.Context, identity core.Identity) (string, error) {
	token, err := auth.GenerateSessionToken()
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[token] = memorySession{
		identity:  identity,
		expiresAt: s.now().Add(s.ttl),
	}
	return token, nil
}

func (s *MemoryStore) Lookup(_ context.Context, token string) (core.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[token]
	if !ok {
		return core.Identity{}, core.ErrUnauthenticated
	}
	if s.now().After(sess.expiresAt) {
		delete(s.sessions, token)
		return core.Identity{}, core.ErrUnauthenticated
	}
	return sess.identity, nil
}

func (s *MemoryStore) Destroy(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}

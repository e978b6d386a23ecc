package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"ledgerly/internal/core"
	"ledgerly/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	mu       sync.Mutex
	sessions map[string]storage.Session
	getCalls int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{sessions: make(map[string]storage.Session)}
}

func (f *fakeRepo) CreateSession(_ context.Context, token string, userID int64, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[token] = storage.Session{
		Token:     token,
		UserID:    userID,
		Email:     "alice@example.com",
		ExpiresAt: expiresAt,
	}
	return nil
}

func (f *fakeRepo) GetSession(_ context.Context, token string) (*storage.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	s, ok := f.sessions[token]
	if !ok {
		return nil, core.ErrNotFound
	}
	return &s, nil
}

func (f *fakeRepo) DeleteSession(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, token)
	return nil
}

var alice = core.Identity{ID: 1, Email: "alice@example.com"}

func TestCreateAndLookup(t *testing.T) {
	repo := newFakeRepo()
	store := NewSQLStore(repo, 24*time.Hour)
	ctx := context.Background()

	token, err := store.Create(ctx, alice)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	got, err := store.Lookup(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, alice, got)
}

func TestLookupUnknownToken(t *testing.T) {
	store := NewSQLStore(newFakeRepo(), 24*time.Hour)

	_, err := store.Lookup(context.Background(), "no-such-token")
	assert.ErrorIs(t, err, core.ErrUnauthenticated)

	_, err = store.Lookup(context.Background(), "")
	assert.ErrorIs(t, err, core.ErrUnauthenticated)
}

func TestLookupServedFromCache(t *testing.T) {
	repo := newFakeRepo()
	store := NewSQLStore(repo, 24*time.Hour)
	ctx := context.Background()

	token, err := store.Create(ctx, alice)
	require.NoError(t, err)

	// Create primes the cache; repeated lookups stay off the database.
	for i := 0; i < 3; i++ {
		_, err := store.Lookup(ctx, token)
		require.NoError(t, err)
	}
	assert.Equal(t, 0, repo.getCalls)
}

func TestLookupExpiredToken(t *testing.T) {
	repo := newFakeRepo()
	store := NewSQLStore(repo, 24*time.Hour)
	ctx := context.Background()

	token, err := store.Create(ctx, alice)
	require.NoError(t, err)

	// Jump past the deadline. The cached record must not resurrect an
	// expired session.
	store.now = func() time.Time { return time.Now().Add(25 * time.Hour) }

	_, err = store.Lookup(ctx, token)
	assert.ErrorIs(t, err, core.ErrUnauthenticated)

	_, stillThere := repo.sessions[token]
	assert.False(t, stillThere, "expired row should be deleted lazily")
}

func TestDestroyInvalidatesImmediately(t *testing.T) {
	repo := newFakeRepo()
	store := NewSQLStore(repo, 24*time.Hour)
	ctx := context.Background()

	token, err := store.Create(ctx, alice)
	require.NoError(t, err)

	require.NoError(t, store.Destroy(ctx, token))

	// Neither the cache nor the table may honor the token afterwards.
	_, err = store.Lookup(ctx, token)
	assert.ErrorIs(t, err, core.ErrUnauthenticated)

	// Destroying again stays silent.
	assert.NoError(t, store.Destroy(ctx, token))
}

func TestMemoryStoreContract(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	ctx := context.Background()

	token, err := store.Create(ctx, alice)
	require.NoError(t, err)

	got, err := store.Lookup(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, alice, got)

	_, err = store.Lookup(ctx, "bogus")
	assert.ErrorIs(t, err, core.ErrUnauthenticated)

	store.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = store.Lookup(ctx, token)
	assert.ErrorIs(t, err, core.ErrUnauthenticated)
}

package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"ledgerly/internal/log"
	"ledgerly/internal/services"
	"ledgerly/internal/session"
	"ledgerly/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"
)

// ServerTestSuite drives the JSON API end to end against a real
// SQLite-backed stack.
type ServerTestSuite struct {
	suite.Suite
	repo   *storage.SQLiteRepository
	server *Server
}

func (s *ServerTestSuite) SetupTest() {
	repo, err := storage.NewSQLiteRepository(filepath.Join(s.T().TempDir(), "test.db"))
	require.NoError(s.T(), err)
	s.repo = repo

	sessions := session.NewSQLStore(repo, 24*time.Hour)
	logger := log.New(log.DefaultConfig())

	s.server = NewServer(
		Config{
			Addr:                  ":0",
			SessionTTL:            24 * time.Hour,
			AuthRequestsPerMinute: 1000,
		},
		logger,
		sessions,
		services.NewAuthService(repo, sessions, bcrypt.MinCost),
		services.NewEntryService(repo, nil),
		repo,
	)
}

func (s *ServerTestSuite) TearDownTest() {
	if s.repo != nil {
		s.repo.Close()
	}
}

// do performs a request against the full middleware chain.
func (s *ServerTestSuite) do(method, path string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.T(), json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(rec, req)
	return rec
}

func (s *ServerTestSuite) decode(rec *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	require.NoError(s.T(), json.Unmarshal(rec.Body.Bytes(), &out), "body: %s", rec.Body.String())
	return out
}

// register creates an account and returns its session cookie.
func (s *ServerTestSuite) register(email string) *http.Cookie {
	rec := s.do(http.MethodPost, "/api/register", map[string]string{
		"email":    email,
		"password": "s3cret",
	}, nil)
	require.Equal(s.T(), http.StatusOK, rec.Code, "body: %s", rec.Body.String())

	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookieName {
			return c
		}
	}
	s.T().Fatal("register response carried no session cookie")
	return nil
}

func (s *ServerTestSuite) createEntry(cookie *http.Cookie, body map[string]any) map[string]any {
	rec := s.do(http.MethodPost, "/api/items", body, cookie)
	require.Equal(s.T(), http.StatusCreated, rec.Code, "body: %s", rec.Body.String())
	return s.decode(rec)["item"].(map[string]any)
}

func (s *ServerTestSuite) TestHealth() {
	rec := s.do(http.MethodGet, "/api/health", nil, nil)
	assert.Equal(s.T(), http.StatusOK, rec.Code)
	assert.Equal(s.T(), true, s.decode(rec)["ok"])
}

func (s *ServerTestSuite) TestMeWithoutSession() {
	rec := s.do(http.MethodGet, "/api/me", nil, nil)
	assert.Equal(s.T(), http.StatusUnauthorized, rec.Code)
	assert.Nil(s.T(), s.decode(rec)["user"])
}

func (s *ServerTestSuite) TestRegisterAndMe() {
	cookie := s.register("alice@example.com")
	assert.True(s.T(), cookie.HttpOnly, "session cookie must be HttpOnly")

	rec := s.do(http.MethodGet, "/api/me", nil, cookie)
	require.Equal(s.T(), http.StatusOK, rec.Code)

	user := s.decode(rec)["user"].(map[string]any)
	assert.Equal(s.T(), "alice@example.com", user["email"])
	assert.NotZero(s.T(), user["id"])
}

func (s *ServerTestSuite) TestRegisterDuplicateEmail() {
	s.register("alice@example.com")

	rec := s.do(http.MethodPost, "/api/register", map[string]string{
		"email":    "alice@example.com",
		"password": "other",
	}, nil)
	assert.Equal(s.T(), http.StatusBadRequest, rec.Code)
	assert.Equal(s.T(), "Email already registered", s.decode(rec)["error"])
}

func (s *ServerTestSuite) TestRegisterMissingFields() {
	rec := s.do(http.MethodPost, "/api/register", map[string]string{"email": "alice@example.com"}, nil)
	assert.Equal(s.T(), http.StatusBadRequest, rec.Code)
	assert.Equal(s.T(), "Email and password are required", s.decode(rec)["error"])
}

func (s *ServerTestSuite) TestLoginWrongCredentials() {
	s.register("alice@example.com")

	for _, body := range []map[string]string{
		{"email": "alice@example.com", "password": "wrong"},
		{"email": "nobody@example.com", "password": "s3cret"},
	} {
		rec := s.do(http.MethodPost, "/api/login", body, nil)
		assert.Equal(s.T(), http.StatusUnauthorized, rec.Code)
		assert.Equal(s.T(), "Invalid credentials", s.decode(rec)["error"])
	}
}

func (s *ServerTestSuite) TestLogin() {
	s.register("alice@example.com")

	rec := s.do(http.MethodPost, "/api/login", map[string]string{
		"email":    "alice@example.com",
		"password": "s3cret",
	}, nil)
	require.Equal(s.T(), http.StatusOK, rec.Code)

	user := s.decode(rec)["user"].(map[string]any)
	assert.Equal(s.T(), "alice@example.com", user["email"])
	assert.NotEmpty(s.T(), rec.Result().Cookies())
}

func (s *ServerTestSuite) TestProtectedEndpointsRequireSession() {
	paths := []struct {
		method, path string
	}{
		{http.MethodGet, "/api/items"},
		{http.MethodPost, "/api/items"},
		{http.MethodGet, "/api/items/1"},
		{http.MethodPut, "/api/items/1"},
		{http.MethodDelete, "/api/items/1"},
	}

	for _, p := range paths {
		rec := s.do(p.method, p.path, nil, nil)
		assert.Equal(s.T(), http.StatusUnauthorized, rec.Code, "%s %s", p.method, p.path)
		assert.Equal(s.T(), "Unauthorized", s.decode(rec)["error"])
	}

	// A garbage token reads the same as no token.
	bogus := &http.Cookie{Name: SessionCookieName, Value: "bogus"}
	rec := s.do(http.MethodGet, "/api/items", nil, bogus)
	assert.Equal(s.T(), http.StatusUnauthorized, rec.Code)
}

func (s *ServerTestSuite) TestEntryCRUDFlow() {
	cookie := s.register("alice@example.com")

	created := s.createEntry(cookie, map[string]any{
		"title":      "Coffee",
		"amount":     "450",
		"type":       "expense",
		"occurredOn": "2024-01-10",
		"memo":       "morning",
	})
	assert.Equal(s.T(), "Coffee", created["title"])
	assert.Equal(s.T(), float64(450), created["amount"])
	assert.Equal(s.T(), "2024-01-10", created["occurredOn"])
	assert.NotZero(s.T(), created["id"])
	assert.NotEmpty(s.T(), created["createdAt"])

	id := int64(created["id"].(float64))

	rec := s.do(http.MethodGet, fmt.Sprintf("/api/items/%d", id), nil, cookie)
	require.Equal(s.T(), http.StatusOK, rec.Code)
	assert.Equal(s.T(), created, s.decode(rec)["item"])

	rec = s.do(http.MethodPut, fmt.Sprintf("/api/items/%d", id), map[string]any{
		"title":      "Refund",
		"amount":     450,
		"type":       "income",
		"occurredOn": "2024-01-11",
	}, cookie)
	require.Equal(s.T(), http.StatusOK, rec.Code)
	updated := s.decode(rec)["item"].(map[string]any)
	assert.Equal(s.T(), "income", updated["type"])
	assert.Equal(s.T(), created["createdAt"], updated["createdAt"], "createdAt is immutable")

	rec = s.do(http.MethodDelete, fmt.Sprintf("/api/items/%d", id), nil, cookie)
	require.Equal(s.T(), http.StatusOK, rec.Code)
	assert.Equal(s.T(), true, s.decode(rec)["ok"])

	rec = s.do(http.MethodGet, fmt.Sprintf("/api/items/%d", id), nil, cookie)
	assert.Equal(s.T(), http.StatusNotFound, rec.Code)
}

func (s *ServerTestSuite) TestListWithSummary() {
	cookie := s.register("alice@example.com")
	s.createEntry(cookie, map[string]any{
		"title": "Coffee", "amount": "450", "type": "expense", "occurredOn": "2024-01-10",
	})
	s.createEntry(cookie, map[string]any{
		"title": "Salary", "amount": 280000, "type": "income", "occurredOn": "2024-01-05",
	})

	rec := s.do(http.MethodGet, "/api/items", nil, cookie)
	require.Equal(s.T(), http.StatusOK, rec.Code)

	body := s.decode(rec)
	items := body["items"].([]any)
	require.Len(s.T(), items, 2)

	// Newest occurredOn first.
	assert.Equal(s.T(), "Coffee", items[0].(map[string]any)["title"])
	assert.Equal(s.T(), "Salary", items[1].(map[string]any)["title"])

	summary := body["summary"].(map[string]any)
	assert.Equal(s.T(), float64(280000), summary["incomeTotal"])
	assert.Equal(s.T(), float64(450), summary["expenseTotal"])
	assert.Equal(s.T(), float64(279550), summary["balance"])
}

func (s *ServerTestSuite) TestListFilters() {
	cookie := s.register("alice@example.com")
	s.createEntry(cookie, map[string]any{
		"title": "Coffee", "amount": "450", "type": "expense", "occurredOn": "2024-01-10",
	})
	s.createEntry(cookie, map[string]any{
		"title": "Salary", "amount": 280000, "type": "income", "occurredOn": "2024-01-05",
	})

	// Conjunctive filter with an empty result still answers zeroed totals.
	rec := s.do(http.MethodGet, "/api/items?type=income&startDate=2024-01-06", nil, cookie)
	require.Equal(s.T(), http.StatusOK, rec.Code)
	body := s.decode(rec)
	assert.Empty(s.T(), body["items"])
	summary := body["summary"].(map[string]any)
	assert.Equal(s.T(), float64(0), summary["balance"])

	// An unrecognized type value means no type filter.
	rec = s.do(http.MethodGet, "/api/items?type=all", nil, cookie)
	require.Equal(s.T(), http.StatusOK, rec.Code)
	assert.Len(s.T(), s.decode(rec)["items"], 2)

	// Summary describes the filtered subset.
	rec = s.do(http.MethodGet, "/api/items?type=expense", nil, cookie)
	require.Equal(s.T(), http.StatusOK, rec.Code)
	body = s.decode(rec)
	assert.Len(s.T(), body["items"], 1)
	assert.Equal(s.T(), float64(-450), body["summary"].(map[string]any)["balance"])

	rec = s.do(http.MethodGet, "/api/items?startDate=not-a-date", nil, cookie)
	assert.Equal(s.T(), http.StatusBadRequest, rec.Code)
}

func (s *ServerTestSuite) TestCrossUserIsolation() {
	alice := s.register("alice@example.com")
	bob := s.register("bob@example.com")

	created := s.createEntry(alice, map[string]any{
		"title": "Private", "amount": 100, "type": "income", "occurredOn": "2024-01-01",
	})
	id := int64(created["id"].(float64))

	rec := s.do(http.MethodGet, fmt.Sprintf("/api/items/%d", id), nil, bob)
	assert.Equal(s.T(), http.StatusNotFound, rec.Code, "another user's entry must look absent")

	rec = s.do(http.MethodDelete, fmt.Sprintf("/api/items/%d", id), nil, bob)
	assert.Equal(s.T(), http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodGet, "/api/items", nil, bob)
	require.Equal(s.T(), http.StatusOK, rec.Code)
	assert.Empty(s.T(), s.decode(rec)["items"])
}

func (s *ServerTestSuite) TestCreateValidation() {
	cookie := s.register("alice@example.com")

	tests := []struct {
		name string
		body map[string]any
	}{
		{"missing type", map[string]any{"amount": 100}},
		{"bad type", map[string]any{"amount": 100, "type": "transfer"}},
		{"missing amount", map[string]any{"type": "income"}},
		{"non-numeric amount", map[string]any{"amount": "abc", "type": "income"}},
		{"fractional amount", map[string]any{"amount": "4.5", "type": "income"}},
		{"bad date", map[string]any{"amount": 100, "type": "income", "occurredOn": "01/10/2024"}},
	}

	for _, tt := range tests {
		rec := s.do(http.MethodPost, "/api/items", tt.body, cookie)
		assert.Equal(s.T(), http.StatusBadRequest, rec.Code, "%s: %s", tt.name, rec.Body.String())
	}

	rec := s.do(http.MethodGet, "/api/items", nil, cookie)
	require.Equal(s.T(), http.StatusOK, rec.Code)
	assert.Empty(s.T(), s.decode(rec)["items"], "failed validation must not write")
}

func (s *ServerTestSuite) TestCreateDefaultsDateAndAcceptsNegative() {
	cookie := s.register("alice@example.com")

	created := s.createEntry(cookie, map[string]any{"amount": -50, "type": "expense"})
	assert.Equal(s.T(), float64(-50), created["amount"])
	assert.Equal(s.T(), time.Now().UTC().Format("2006-01-02"), created["occurredOn"])
}

func (s *ServerTestSuite) TestInvalidPathID() {
	cookie := s.register("alice@example.com")

	rec := s.do(http.MethodGet, "/api/items/abc", nil, cookie)
	assert.Equal(s.T(), http.StatusBadRequest, rec.Code)
	assert.Equal(s.T(), "Invalid id", s.decode(rec)["error"])
}

func (s *ServerTestSuite) TestLogout() {
	cookie := s.register("alice@example.com")

	rec := s.do(http.MethodPost, "/api/logout", nil, cookie)
	require.Equal(s.T(), http.StatusOK, rec.Code)
	assert.Equal(s.T(), true, s.decode(rec)["ok"])

	// The token is dead immediately, not just the browser cookie.
	rec = s.do(http.MethodGet, "/api/items", nil, cookie)
	assert.Equal(s.T(), http.StatusUnauthorized, rec.Code)

	// Logging out without a session still succeeds.
	rec = s.do(http.MethodPost, "/api/logout", nil, nil)
	assert.Equal(s.T(), http.StatusOK, rec.Code)
}

func (s *ServerTestSuite) TestSecurityHeaders() {
	rec := s.do(http.MethodGet, "/api/health", nil, nil)
	assert.Equal(s.T(), "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(s.T(), rec.Header().Get("Content-Security-Policy"))
}

func TestServerSuite(t *testing.T) {
	suite.Run(t, new(ServerTestSuite))
}

func TestAuthRateLimit(t *testing.T) {
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer repo.Close()

	sessions := session.NewSQLStore(repo, 24*time.Hour)
	server := NewServer(
		Config{Addr: ":0", SessionTTL: 24 * time.Hour, AuthRequestsPerMinute: 2},
		log.New(log.DefaultConfig()),
		sessions,
		services.NewAuthService(repo, sessions, bcrypt.MinCost),
		services.NewEntryService(repo, nil),
		repo,
	)
	defer server.authLimiter.Stop()

	attempt := func() int {
		var buf bytes.Buffer
		require.NoError(t, json.NewEncoder(&buf).Encode(map[string]string{
			"email": "alice@example.com", "password": "guess",
		}))
		req := httptest.NewRequest(http.MethodPost, "/api/login", &buf)
		req.Header.Set("Content-Type", "application/json")
		req.RemoteAddr = "203.0.113.5:41000"
		rec := httptest.NewRecorder()
		server.Handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusUnauthorized, attempt())
	assert.Equal(t, http.StatusUnauthorized, attempt())
	assert.Equal(t, http.StatusTooManyRequests, attempt(), "third attempt in the window is throttled")
}

// Package http provides the JSON API server and its handlers.
package http

import (
	"context"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"ledgerly/internal/log"
	"ledgerly/internal/middleware/ratelimit"
	"ledgerly/internal/middleware/security"
	"ledgerly/internal/middleware/trace"
	"ledgerly/internal/services"
	"ledgerly/internal/session"
	appweb "ledgerly/web"
)

// SessionCookieName is the cookie carrying the opaque session token.
const SessionCookieName = "ledger_session"

// Pinger reports storage liveness for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config holds the server's boundary settings.
type Config struct {
	Addr         string
	SessionTTL   time.Duration
	SecureCookie bool

	// Requests per minute allowed on the credential endpoints, per IP.
	AuthRequestsPerMinute int
}

// Server wires the JSON API, static assets and middleware on top of
// the standard http.Server.
type Server struct {
	http.Server

	logger   *log.Logger
	sessions session.Store
	auth     *services.AuthService
	entries  *services.EntryService
	store    Pinger

	sessionTTL   time.Duration
	secureCookie bool

	authLimiter  *ratelimit.Limiter
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(
	cfg Config,
	logger *log.Logger,
	sessions session.Store,
	auth *services.AuthService,
	entries *services.EntryService,
	store Pinger,
) *Server {
	s := &Server{
		logger:       logger.WithComponent(log.ComponentHTTP),
		sessions:     sessions,
		auth:         auth,
		entries:      entries,
		store:        store,
		sessionTTL:   cfg.SessionTTL,
		secureCookie: cfg.SecureCookie,
		authLimiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: cfg.AuthRequestsPerMinute,
		}),
	}

	ipExtractor := security.NewClientIPExtractor()
	authLimit := s.authLimiter.Middleware(ipExtractor.ExtractClientIP, s.handleRateLimited)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/me", s.handleMe)
	mux.Handle("POST /api/register", authLimit(http.HandlerFunc(s.handleRegister)))
	mux.Handle("POST /api/login", authLimit(http.HandlerFunc(s.handleLogin)))
	mux.HandleFunc("POST /api/logout", s.handleLogout)

	mux.Handle("GET /api/items", s.requireAuth(s.handleListEntries))
	mux.Handle("POST /api/items", s.requireAuth(s.handleCreateEntry))
	mux.Handle("GET /api/items/{id}", s.requireAuth(s.handleGetEntry))
	mux.Handle("PUT /api/items/{id}", s.requireAuth(s.handleUpdateEntry))
	mux.Handle("DELETE /api/items/{id}", s.requireAuth(s.handleDeleteEntry))

	// Static front-end from the embedded FS.
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := security.StaticAssetMiddleware(3600)(http.FileServer(http.FS(sub)))
		mux.Handle("/", static)
	} else {
		logger.Warn("failed to mount embedded static FS", log.FieldError, err.Error())
	}

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	tracer := trace.NewMiddleware(ipExtractor.ExtractClientIP)
	withLogger := log.Middleware(s.logger)

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           headers.Middleware(tracer.Middleware(withLogger(mux))),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	s.logger.WarnContext(r.Context(), "rate limit exceeded",
		log.FieldPath, r.URL.Path,
		log.FieldMethod, r.Method)
	w.Header().Set("Retry-After", "60")
	writeJSONError(w, http.StatusTooManyRequests, "Too many requests, try again later")
}

// Shutdown stops the HTTP server and the background cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.authLimiter != nil {
			s.authLimiter.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

package http

import (
	"net/http"
	"time"

	"ledgerly/internal/core"
)

// authedHandler receives the identity resolved from the session.
type authedHandler func(w http.ResponseWriter, r *http.Request, user core.Identity)

// requireAuth resolves the session cookie before anything else runs.
// No session, expired session and garbage token all read the same to
// the caller.
func (s *Server) requireAuth(next authedHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := s.resolveSession(r)
		if err != nil {
			writeJSONError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next(w, r, user)
	})
}

// resolveSession resolves the cookie token to an identity.
func (s *Server) resolveSession(r *http.Request) (core.Identity, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return core.Identity{}, core.ErrUnauthenticated
	}
	return s.sessions.Lookup(r.Context(), cookie.Value)
}

func (s *Server) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.sessionTTL / time.Second),
		HttpOnly: true,
		Secure:   s.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

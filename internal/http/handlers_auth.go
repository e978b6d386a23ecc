package http

import (
	"net/http"

	"ledgerly/internal/log"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		s.logger.ErrorContext(r.Context(), "health check failed", log.FieldError, err.Error())
		writeJSONError(w, http.StatusInternalServerError, "Storage unavailable")
		return
	}
	writeJSON(w, http.StatusOK, okBody{OK: true})
}

// handleMe reports the caller's identity. Unlike the protected
// endpoints it answers 401 with a null user, so the front-end can
// probe for a live session without special error handling.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := s.resolveSession(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"user": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user": userJSON{ID: user.ID, Email: user.Email},
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	creds, ok := parseCredentials(r)
	if !ok {
		writeJSONError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	identity, token, err := s.auth.Register(r.Context(), creds.Email, creds.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.logger.InfoContext(r.Context(), "user registered",
		log.FieldOperation, log.OpRegister,
		log.FieldUserID, identity.ID)

	s.setSessionCookie(w, token)
	writeJSON(w, http.StatusOK, map[string]any{
		"user": userJSON{ID: identity.ID, Email: identity.Email},
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	creds, ok := parseCredentials(r)
	if !ok {
		writeJSONError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	identity, token, err := s.auth.Login(r.Context(), creds.Email, creds.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.logger.InfoContext(r.Context(), "user logged in",
		log.FieldOperation, log.OpLogin,
		log.FieldUserID, identity.ID)

	s.setSessionCookie(w, token)
	writeJSON(w, http.StatusOK, map[string]any{
		"user": userJSON{ID: identity.ID, Email: identity.Email},
	})
}

// handleLogout succeeds whether or not a session exists.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		if err := s.auth.Logout(r.Context(), cookie.Value); err != nil {
			s.logger.ErrorContext(r.Context(), "failed to destroy session",
				log.FieldOperation, log.OpLogout,
				log.FieldError, err.Error())
		}
	}
	s.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, okBody{OK: true})
}

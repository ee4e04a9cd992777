package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/raizel-hub/academic-assistant/internal/domain/student"
	"github.com/raizel-hub/academic-assistant/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SESSIONS
// A session is a signed token carried in a cookie for browsers or in an
// Authorization: Bearer header for scripts.
// ══════════════════════════════════════════════════════════════════════════════

// studentHandler is a handler that runs for an authenticated student.
type studentHandler func(w http.ResponseWriter, r *http.Request, reg student.RegistrationNumber)

// requireAPI answers 401 JSON when the request has no valid session.
func (s *Server) requireAPI(next studentHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reg, ok := s.currentStudent(r)
		if !ok {
			writeJSONError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		next(w, s.withStudent(r, reg), reg)
	})
}

// requirePage redirects to /login when the request has no valid session.
func (s *Server) requirePage(next studentHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reg, ok := s.currentStudent(r)
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next(w, s.withStudent(r, reg), reg)
	})
}

func (s *Server) withStudent(r *http.Request, reg student.RegistrationNumber) *http.Request {
	l := logger.FromContext(r.Context(), s.logger).With(logger.KeyRegistrationNumber, reg.String())
	return r.WithContext(logger.WithContext(r.Context(), l))
}

// currentStudent returns the registration number of the session, if any.
func (s *Server) currentStudent(r *http.Request) (student.RegistrationNumber, bool) {
	token := bearerToken(r)
	if token == "" {
		c, err := r.Cookie(s.config.CookieName)
		if err != nil {
			return "", false
		}
		token = c.Value
	}

	reg, err := s.deps.Tokens.Parse(token)
	if err != nil {
		return "", false
	}
	return reg, true
}

// startSession signs a token for reg and sets the session cookie.
func (s *Server) startSession(w http.ResponseWriter, reg student.RegistrationNumber) (string, time.Time, error) {
	token, expires, err := s.deps.Tokens.Issue(reg)
	if err != nil {
		return "", time.Time{}, err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     s.config.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		MaxAge:   int(time.Until(expires).Seconds()),
		HttpOnly: true,
		Secure:   s.config.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	return token, expires, nil
}

// endSession expires the session cookie.
func (s *Server) endSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.config.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.config.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(h, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

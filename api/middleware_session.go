package api

import (
	"net/http"

	"github.com/linesmerrill/docket-api/config"
	"github.com/linesmerrill/docket-api/models"
	"github.com/linesmerrill/docket-api/sessions"
)

// RequireSession rejects requests that carry no live session and stores the
// session in the request context for the handler
func RequireSession(m *sessions.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, ok := m.Load(r)
			if !ok || s.Token == "" {
				config.ErrorStatus("session required", http.StatusUnauthorized, w, models.ErrUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(sessions.WithSession(r.Context(), s)))
		})
	}
}

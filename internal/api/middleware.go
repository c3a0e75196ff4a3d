// Package api implements the Othala REST API using chi.
package api

import (
	"net/http"
	"strings"

	"github.com/starford/othala/internal/auth"
)

// AuthMiddleware returns middleware that validates a Bearer token
// against the auth service. With the gate disabled, all requests pass
// through.
func AuthMiddleware(svc *auth.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !svc.Enabled() {
				next.ServeHTTP(w, r)
				return
			}
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || svc.Verify(token) != nil {
				w.Header().Set("WWW-Authenticate", "Bearer")
				writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

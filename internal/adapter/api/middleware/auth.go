package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
)

// Auth is a middleware factory that returns a bearer-token
// authentication middleware. An empty apiKey disables authentication.
func Auth(apiKey string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if apiKey == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok {
				logger.Warn("bearer token missing from request", "remote_addr", r.RemoteAddr)
				http.Error(w, "Unauthorized: bearer token required", http.StatusUnauthorized)
				return
			}

			if subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) != 1 {
				logger.Warn("invalid bearer token provided", "remote_addr", r.RemoteAddr)
				http.Error(w, "Unauthorized: invalid token", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Package middleware provides HTTP middleware for the promo engine API.
package middleware

import (
	"context"
	"net/http"
	"strings"
)

// Context keys for request-scoped values.
type contextKey string

// UserIDKey is the context key for the authenticated user ID.
const UserIDKey contextKey = "user_id"

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	Enabled bool
	// Token is the static bearer token the API gateway presents.
	Token string
}

// Auth authenticates the gateway and resolves the acting user. The
// gateway terminates end-user auth and forwards the verified identity
// in X-User-ID.
func Auth(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Enabled {
				authHeader := r.Header.Get("Authorization")
				parts := strings.SplitN(authHeader, " ", 2)
				if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] != cfg.Token {
					writeError(w, http.StatusUnauthorized, "unauthorized", "missing or invalid bearer token")
					return
				}
			}

			userID := r.Header.Get("X-User-ID")
			if userID == "" {
				userID = r.URL.Query().Get("user_id")
			}
			if userID == "" {
				writeError(w, http.StatusBadRequest, "missing_user", "no user identity on request")
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserID extracts the authenticated user ID from the request context.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(UserIDKey).(string)
	return id
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(`{"error": "` + code + `", "message": "` + message + `"}`))
}

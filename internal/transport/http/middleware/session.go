package middleware

import (
	"context"
	"net/http"

	"socialsync/internal/httputil"
	"socialsync/internal/model"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	// UserIDKey is the context key for the logged-in user's ID
	UserIDKey contextKey = "user_id"
)

// SessionSource reports the logged-in user, if any.
type SessionSource interface {
	CurrentUser() (*model.User, bool)
}

// RequireSession rejects requests while nobody is logged in and puts the
// session user's ID on the request context otherwise.
func RequireSession(s SessionSource) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := s.CurrentUser()
			if !ok {
				httputil.WriteUnauthorized(w, "Not logged in")
				return
			}
			ctx := context.WithValue(r.Context(), UserIDKey, u.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserIDFromContext extracts the user ID placed by RequireSession.
func GetUserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)
	return userID, ok && userID != ""
}

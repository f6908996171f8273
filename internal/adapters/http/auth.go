package httpadapter

import (
	"context"
	"net/http"
	"strings"
)

const (
	sessionCookieName = "session_token"
	apiKeyHeader      = "X-Api-Key"
)

type userIDContextKey struct{}

func userIDFromContext(ctx context.Context) string {
	userID, _ := ctx.Value(userIDContextKey{}).(string)
	return userID
}

func withUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey{}, userID)
}

// sessionAuthMiddleware resolves the web session cookie to a user identity.
func (rt *Router) sessionAuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil || strings.TrimSpace(cookie.Value) == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthenticated"})
			return
		}

		userID, err := rt.auth.ResolveSessionToken(r.Context(), cookie.Value)
		if err != nil {
			writeError(w, r, err)
			return
		}
		next(w, r.WithContext(withUserID(r.Context(), userID)))
	}
}

// apiKeyAuthMiddleware resolves the extension key header to a user identity.
// Unknown, rotated-out and malformed keys all yield the same 401; the
// response never says which.
func (rt *Router) apiKeyAuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimSpace(r.Header.Get(apiKeyHeader))
		if key == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthenticated"})
			return
		}

		userID, err := rt.keyResolver.ResolveKey(r.Context(), key)
		if err != nil {
			writeError(w, r, err)
			return
		}
		next(w, r.WithContext(withUserID(r.Context(), userID)))
	}
}

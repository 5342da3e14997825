package auth

import (
	"context"
	"net/http"
	"strings"

	"course-scene-service/internal/domain"
)

type contextKey string

const identityKey contextKey = "identity"

// DefaultCookieName carries the session token for browser clients.
const DefaultCookieName = "session"

// Middleware authenticates requests by session cookie or bearer token.
func (s *Service) Middleware(cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := tokenFromRequest(r, cookieName)
			if token == "" {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing credentials"})
				return
			}

			ident, err := s.ValidateToken(token)
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), ident)))
		})
	}
}

func tokenFromRequest(r *http.Request, cookieName string) string {
	if cookie, err := r.Cookie(cookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) == 2 && parts[0] == "Bearer" {
		return parts[1]
	}
	// browsers cannot set headers on websocket upgrades
	return r.URL.Query().Get("token")
}

// WithIdentity stores ident in ctx.
func WithIdentity(ctx context.Context, ident domain.Identity) context.Context {
	return context.WithValue(ctx, identityKey, ident)
}

// IdentityFromContext returns the authenticated caller.
func IdentityFromContext(ctx context.Context) (domain.Identity, bool) {
	ident, ok := ctx.Value(identityKey).(domain.Identity)
	return ident, ok
}

// RequireEditor rejects callers that cannot author courses.
func RequireEditor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ident, ok := IdentityFromContext(r.Context())
		if !ok || !ident.Role.CanEdit() {
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

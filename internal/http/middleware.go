package httpapi

import (
	"context"
	"net/http"
	"strings"

	"emri-dispatch/internal/domain"
	"emri-dispatch/internal/service"

	"go.uber.org/zap"
)

type contextKey int

const sessionContextKey contextKey = iota

// SessionFrom returns the authenticated session attached by AuthMiddleware.
func SessionFrom(ctx context.Context) (*domain.Session, bool) {
	s, ok := ctx.Value(sessionContextKey).(*domain.Session)
	return s, ok
}

// AuthMiddleware verifies the session token on every protected request. The
// client holds only the opaque token; role and identity always come from the
// verified claims, never from anything the client caches.
type AuthMiddleware struct {
	auth   service.AuthService
	logger *zap.Logger
}

func NewAuthMiddleware(auth service.AuthService, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{auth: auth, logger: logger}
}

// Require rejects the request with 401 unless a valid, unrevoked session
// token arrives via the auth cookie or a bearer header.
func (m *AuthMiddleware) Require(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := tokenFromRequest(r)
		if token == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"authenticated": false})
			return
		}

		session, err := m.auth.Authenticate(r.Context(), token)
		if err != nil {
			if err != service.ErrSessionInvalid {
				m.logger.Error("session check failed", zap.Error(err))
			}
			writeJSON(w, http.StatusUnauthorized, map[string]any{"authenticated": false})
			return
		}

		next(w, r.WithContext(context.WithValue(r.Context(), sessionContextKey, session)))
	}
}

func tokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(authCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

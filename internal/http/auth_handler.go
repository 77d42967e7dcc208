package httpapi

import (
	"net/http"
	"time"

	"emri-dispatch/internal/service"

	"go.uber.org/zap"
)

const authCookieName = "token"

// AuthHandler serves /login, /logout and /me.
type AuthHandler struct {
	auth         service.AuthService
	cookieMaxAge time.Duration
	cookieSecure bool
	logger       *zap.Logger
}

func NewAuthHandler(auth service.AuthService, cookieMaxAge time.Duration, cookieSecure bool, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		auth:         auth,
		cookieMaxAge: cookieMaxAge,
		cookieSecure: cookieSecure,
		logger:       logger,
	}
}

// Login verifies credentials and issues the session token both as an httpOnly
// cookie and in the JSON body.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "Invalid request body"})
		return
	}

	result, err := h.auth.Login(r.Context(), body.Username, body.Password)
	if err != nil {
		if err == service.ErrInvalidCredentials {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "Invalid credentials"})
			return
		}
		h.logger.Error("login failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]any{"message": "Internal server error"})
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     authCookieName,
		Value:    result.Token,
		Path:     "/",
		MaxAge:   int(h.cookieMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteStrictMode,
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"token":  result.Token,
		"user": map[string]any{
			"id":       result.User.ID,
			"username": result.User.UserName,
			"user_id":  result.User.UserID,
			"role":     result.User.Role,
		},
	})
}

// Logout revokes the server-side session and expires the cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := tokenFromRequest(r); token != "" {
		if err := h.auth.Logout(r.Context(), token); err != nil {
			h.logger.Error("logout revocation failed", zap.Error(err))
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     authCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteStrictMode,
	})

	writeJSON(w, http.StatusOK, map[string]any{"status": "logged_out"})
}

// Me introspects the session cookie.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	token := tokenFromRequest(r)
	if token == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"authenticated": false})
		return
	}

	session, err := h.auth.Authenticate(r.Context(), token)
	if err != nil {
		if err != service.ErrSessionInvalid {
			h.logger.Error("session check failed", zap.Error(err))
		}
		writeJSON(w, http.StatusUnauthorized, map[string]any{"authenticated": false})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"user": map[string]any{
			"id":       session.ID,
			"username": session.Username,
			"role":     session.Role,
		},
	})
}

package handler

import (
	"net/http"

	"github.com/bozor-api/internal/domain"
	jwtinfra "github.com/bozor-api/internal/infrastructure/jwt"
)

// AuthHandler serves token refresh and sign-out. Both operate on the refresh
// cookie alone; no account kind is involved.
type AuthHandler struct {
	tokens      *jwtinfra.Provider
	refreshDays int
}

func NewAuthHandler(tokens *jwtinfra.Provider, refreshDays int) *AuthHandler {
	return &AuthHandler{tokens: tokens, refreshDays: refreshDays}
}

// Refresh re-issues an access token from a valid refresh cookie and rotates
// the cookie itself.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(jwtinfra.CookieName)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "missing refresh token")
		return
	}
	claims, err := h.tokens.VerifyRefresh(cookie.Value)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid or expired refresh token")
		return
	}
	if !claims.IsActive {
		writeError(w, http.StatusUnauthorized, "account is deactivated")
		return
	}

	payload := domain.TokenPayload{ID: claims.ID, Role: claims.Role, IsActive: claims.IsActive}
	access, err := h.tokens.SignAccess(payload)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	refresh, err := h.tokens.SignRefresh(payload)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	h.tokens.WriteRefreshCookie(w, refresh, h.refreshDays)
	writeJSON(w, http.StatusOK, AuthEnvelope{AccessToken: access, Role: claims.Role})
}

func (h *AuthHandler) SignOut(w http.ResponseWriter, _ *http.Request) {
	h.tokens.ClearRefreshCookie(w)
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "signed out"})
}

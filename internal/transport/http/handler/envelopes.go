package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/bozor-api/internal/domain"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// OtpEnvelope carries the issued code back to the caller. Delivery to the
// phone is outside this service, so the code travels in the response.
type OtpEnvelope struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// VerifyEnvelope wraps OTP verification responses. VerifyToken is only set
// for account kinds whose marker is token-bound.
type VerifyEnvelope struct {
	Verified    bool   `json:"verified"`
	VerifyToken string `json:"verify_token,omitempty"`
}

// AuthEnvelope wraps sign-in and refresh responses. The refresh token never
// appears here; it travels only in the cookie.
type AuthEnvelope struct {
	AccessToken string          `json:"access_token"`
	Role        string          `json:"role,omitempty"`
	Account     *domain.Account `json:"account,omitempty"`
}

// PaginatedAccountsEnvelope wraps cursor-paginated account lists.
type PaginatedAccountsEnvelope struct {
	Data       []domain.Account `json:"data"`
	NextCursor string           `json:"next_cursor,omitempty"`
}

// AvailabilityEnvelope wraps check-phone / check-username responses.
type AvailabilityEnvelope struct {
	Exists bool `json:"exists"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}

// writeDomainError maps sentinel errors to HTTP statuses. Anything not in the
// taxonomy is an infrastructure failure and stays opaque to the client.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrBadRequest),
		errors.Is(err, domain.ErrOtpExpired),
		errors.Is(err, domain.ErrOtpAttemptsExceeded),
		errors.Is(err, domain.ErrIncorrectOtp),
		errors.Is(err, domain.ErrPhoneNotVerified),
		errors.Is(err, domain.ErrInvalidCredentials):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

package handler

import (
	"encoding/json"
	"net/http"

	"github.com/bozor-api/internal/application/otp"
	"github.com/bozor-api/internal/application/register"
	"github.com/bozor-api/internal/domain"
	"github.com/bozor-api/internal/pkg/validate"
)

// RegisterHandler drives the phone-verified registration flow for one account
// kind: request a code, verify it, complete registration.
type RegisterHandler struct {
	kind     domain.AccountKind
	otp      otp.Service
	register register.Service
}

func NewRegisterHandler(kind domain.AccountKind, otpSvc otp.Service, regSvc register.Service) *RegisterHandler {
	return &RegisterHandler{kind: kind, otp: otpSvc, register: regSvc}
}

func (h *RegisterHandler) RequestOtp(w http.ResponseWriter, r *http.Request) {
	var req domain.RequestOtpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	code, err := h.otp.Request(r.Context(), req.PhoneNumber)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, OtpEnvelope{Message: "verification code sent", Code: code})
}

func (h *RegisterHandler) VerifyOtp(w http.ResponseWriter, r *http.Request) {
	var req domain.VerifyOtpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	token, err := h.otp.Verify(r.Context(), req.PhoneNumber, req.Code)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, VerifyEnvelope{Verified: true, VerifyToken: token})
}

func (h *RegisterHandler) Complete(w http.ResponseWriter, r *http.Request) {
	var req domain.CompleteRegistrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	acc, err := h.register.Complete(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, acc)
}

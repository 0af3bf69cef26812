package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrBadRequest = errors.New("bad request")

	// Registration state machine.
	ErrOtpExpired          = errors.New("otp expired")
	ErrOtpAttemptsExceeded = errors.New("otp attempts exceeded")
	ErrIncorrectOtp        = errors.New("otp is incorrect")
	ErrPhoneNotVerified    = errors.New("phone not verified")

	// Deliberately indistinguishable: unknown identifier, wrong password and
	// deactivated account all surface as the same error.
	ErrInvalidCredentials = errors.New("username or password incorrect")

	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

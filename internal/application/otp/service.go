package otp

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/bozor-api/internal/domain"
	"github.com/bozor-api/internal/pkg/phone"
	pkgtoken "github.com/bozor-api/internal/pkg/token"
)

// Service drives the phone-verification state machine for one account
// variant: request a code, verify it, hand back a verified-phone marker.
type Service interface {
	// Request issues a fresh OTP for the phone number and returns the
	// plaintext code. Delivery is the caller's concern.
	Request(ctx context.Context, phoneNumber string) (string, error)
	// Verify checks the submitted code. On success it consumes the OTP record
	// and returns the verified-marker token (empty for kinds whose marker is
	// bound to the phone alone).
	Verify(ctx context.Context, phoneNumber, code string) (string, error)
}

type accountStore interface {
	GetByPhone(ctx context.Context, phoneNumber string) (*domain.Account, error)
}

type ephemeralStore interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, key string) error
	TTL(ctx context.Context, key string) (int64, error)
}

type service struct {
	kind        domain.AccountKind
	accounts    accountStore
	store       ephemeralStore
	otpTTL      time.Duration
	verifyTTL   time.Duration
	maxAttempts int
}

type ServiceDeps struct {
	Kind        domain.AccountKind
	Accounts    accountStore
	Store       ephemeralStore
	OtpTTL      time.Duration
	VerifyTTL   time.Duration
	MaxAttempts int
}

func NewService(deps ServiceDeps) Service {
	return &service{
		kind:        deps.Kind,
		accounts:    deps.Accounts,
		store:       deps.Store,
		otpTTL:      deps.OtpTTL,
		verifyTTL:   deps.VerifyTTL,
		maxAttempts: deps.MaxAttempts,
	}
}

func (s *service) Request(ctx context.Context, phoneNumber string) (string, error) {
	phoneNumber = phone.Normalize(phoneNumber)
	if !phone.Valid(phoneNumber) {
		return "", fmt.Errorf("invalid phone number: %w", domain.ErrBadRequest)
	}

	if _, err := s.accounts.GetByPhone(ctx, phoneNumber); err == nil {
		return "", fmt.Errorf("phone number already exists: %w", domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return "", err
	}

	code, err := randomCode()
	if err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	raw, err := json.Marshal(domain.OtpRecord{Hash: string(hash), Attempts: 0})
	if err != nil {
		return "", err
	}

	// Overwrites any outstanding record for this phone: last request wins.
	if err := s.store.Set(ctx, domain.OtpKey(s.kind, phoneNumber), string(raw), s.otpTTL); err != nil {
		return "", err
	}
	return code, nil
}

func (s *service) Verify(ctx context.Context, phoneNumber, code string) (string, error) {
	phoneNumber = phone.Normalize(phoneNumber)
	key := domain.OtpKey(s.kind, phoneNumber)

	raw, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", fmt.Errorf("no outstanding code: %w", domain.ErrOtpExpired)
		}
		return "", err
	}
	var rec domain.OtpRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return "", fmt.Errorf("corrupt otp record: %w", err)
	}

	if rec.Attempts >= s.maxAttempts {
		return "", domain.ErrOtpAttemptsExceeded
	}

	if bcrypt.CompareHashAndPassword([]byte(rec.Hash), []byte(code)) != nil {
		if err := s.recordFailedAttempt(ctx, key, rec); err != nil {
			return "", err
		}
		return "", domain.ErrIncorrectOtp
	}

	if err := s.store.Del(ctx, key); err != nil {
		return "", err
	}

	verifyToken := ""
	if s.kind.DeviceBoundMarker() {
		verifyToken, err = pkgtoken.NewVerifyToken()
		if err != nil {
			return "", err
		}
	}
	markerKey := domain.VerifiedKey(s.kind, phoneNumber, verifyToken)
	if err := s.store.Set(ctx, markerKey, "1", s.verifyTTL); err != nil {
		return "", err
	}
	return verifyToken, nil
}

// recordFailedAttempt rewrites the record with the incremented counter while
// preserving whatever TTL remained, so failed guesses never extend the code's
// absolute expiry. A fresh TTL is used only when the remaining one could not
// be read.
func (s *service) recordFailedAttempt(ctx context.Context, key string, rec domain.OtpRecord) error {
	rec.Attempts++
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	ttl := s.otpTTL
	if remaining, err := s.store.TTL(ctx, key); err == nil && remaining > 0 {
		ttl = time.Duration(remaining) * time.Second
	} else if err != nil {
		slog.Warn("could not read otp ttl, falling back to full window", "key", key, "err", err)
	}
	return s.store.Set(ctx, key, string(raw), ttl)
}

// randomCode draws a uniformly random 6-digit code.
func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

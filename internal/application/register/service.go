package register

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/bozor-api/internal/domain"
	"github.com/bozor-api/internal/pkg/id"
	"github.com/bozor-api/internal/pkg/phone"
)

// Service turns a verified-phone marker into an account of one variant.
type Service interface {
	Complete(ctx context.Context, req domain.CompleteRegistrationRequest) (*domain.Account, error)
}

type accountStore interface {
	GetByPhone(ctx context.Context, phoneNumber string) (*domain.Account, error)
	GetByUsername(ctx context.Context, username string) (*domain.Account, error)
	Create(ctx context.Context, a *domain.Account) error
}

type ephemeralStore interface {
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, key string) error
}

type service struct {
	kind     domain.AccountKind
	accounts accountStore
	store    ephemeralStore
}

type ServiceDeps struct {
	Kind     domain.AccountKind
	Accounts accountStore
	Store    ephemeralStore
}

func NewService(deps ServiceDeps) Service {
	return &service{kind: deps.Kind, accounts: deps.Accounts, store: deps.Store}
}

func (s *service) Complete(ctx context.Context, req domain.CompleteRegistrationRequest) (*domain.Account, error) {
	phoneNumber := phone.Normalize(req.PhoneNumber)

	// An absent marker covers expired, never-issued and already-consumed
	// alike; callers cannot tell those apart.
	markerKey := domain.VerifiedKey(s.kind, phoneNumber, req.VerifyToken)
	if _, err := s.store.Get(ctx, markerKey); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("phone %s: %w", phoneNumber, domain.ErrPhoneNotVerified)
		}
		return nil, err
	}

	// Advisory pre-checks; the repository's uniqueness guard is the final
	// authority and also maps to ErrConflict when it fires at insert time.
	if _, err := s.accounts.GetByPhone(ctx, phoneNumber); err == nil {
		return nil, fmt.Errorf("phone number already exists: %w", domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	var username *string
	if req.Username != nil {
		u := strings.TrimSpace(*req.Username)
		if u == "" {
			return nil, fmt.Errorf("username cannot be empty: %w", domain.ErrBadRequest)
		}
		if _, err := s.accounts.GetByUsername(ctx, u); err == nil {
			return nil, fmt.Errorf("username already exists: %w", domain.ErrConflict)
		} else if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		username = &u
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	a := &domain.Account{
		AccountID:    id.New(),
		FullName:     strings.TrimSpace(req.FullName),
		Username:     username,
		PhoneNumber:  phoneNumber,
		PasswordHash: string(hash),
		Role:         s.kind.DefaultRole(),
		Language:     req.Language,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.accounts.Create(ctx, a); err != nil {
		return nil, err
	}

	// Consume-once: the marker is deleted only after the account exists, and
	// a second Complete with the same marker fails the marker check above.
	if err := s.store.Del(ctx, markerKey); err != nil {
		slog.Warn("failed to delete verified marker", "key", markerKey, "err", err)
	}
	return a, nil
}

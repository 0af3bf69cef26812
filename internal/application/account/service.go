package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/bozor-api/internal/config"
	"github.com/bozor-api/internal/domain"
	"github.com/bozor-api/internal/pkg/id"
	"github.com/bozor-api/internal/pkg/phone"
)

// Service covers sign-in and the account CRUD surface for one account kind.
type Service interface {
	SignIn(ctx context.Context, req domain.LoginRequest) (*LoginResult, error)
	Get(ctx context.Context, accountID string) (*domain.Account, error)
	List(ctx context.Context, limit int32, cursor string) ([]domain.Account, string, error)
	Create(ctx context.Context, req domain.CreateAccountRequest) (*domain.Account, error)
	Update(ctx context.Context, accountID string, req domain.UpdateAccountRequest) (*domain.Account, error)
	UpdateSelf(ctx context.Context, accountID string, req domain.UpdateAccountRequest) (*domain.Account, error)
	Delete(ctx context.Context, accountID string) error
	CheckPhone(ctx context.Context, phoneNumber string) (bool, error)
	CheckUsername(ctx context.Context, username string) (bool, error)
}

// LoginResult carries both tokens so the transport layer decides how each
// travels (body vs cookie).
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	Account      *domain.Account
}

type accountStore interface {
	Get(ctx context.Context, accountID string) (*domain.Account, error)
	GetByPhone(ctx context.Context, phoneNumber string) (*domain.Account, error)
	GetByUsername(ctx context.Context, username string) (*domain.Account, error)
	Create(ctx context.Context, a *domain.Account) error
	Update(ctx context.Context, accountID string, updates map[string]interface{}) error
	Delete(ctx context.Context, accountID string) error
	ScanPage(ctx context.Context, limit int32, cursor string) ([]domain.Account, string, error)
	RebindPhoneGuard(ctx context.Context, accountID, oldPhone, newPhone string) error
	RebindUsernameGuard(ctx context.Context, accountID, oldUsername, newUsername string) error
}

type tokenSigner interface {
	SignAccess(payload domain.TokenPayload) (string, error)
	SignRefresh(payload domain.TokenPayload) (string, error)
}

type service struct {
	kind     domain.AccountKind
	accounts accountStore
	tokens   tokenSigner
}

type ServiceDeps struct {
	Kind     domain.AccountKind
	Accounts accountStore
	Tokens   tokenSigner
}

func NewService(deps ServiceDeps) Service {
	return &service{kind: deps.Kind, accounts: deps.Accounts, tokens: deps.Tokens}
}

// SignIn resolves the account by the identifier this kind signs in with, then
// checks the password. Unknown identifier, wrong password and deactivated
// account all produce the same error so the response leaks nothing.
func (s *service) SignIn(ctx context.Context, req domain.LoginRequest) (*LoginResult, error) {
	acc, err := s.lookup(ctx, req)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if !acc.IsActive {
		return nil, domain.ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(req.Password)) != nil {
		return nil, domain.ErrInvalidCredentials
	}

	payload := domain.TokenPayload{ID: acc.AccountID, Role: acc.Role, IsActive: acc.IsActive}
	access, err := s.tokens.SignAccess(payload)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := s.tokens.SignRefresh(payload)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}
	return &LoginResult{AccessToken: access, RefreshToken: refresh, Account: acc}, nil
}

func (s *service) lookup(ctx context.Context, req domain.LoginRequest) (*domain.Account, error) {
	username := strings.TrimSpace(req.Username)
	phoneNumber := phone.Normalize(req.PhoneNumber)

	switch s.kind {
	case domain.KindAdmin:
		if username == "" {
			return nil, domain.ErrInvalidCredentials
		}
		return s.accounts.GetByUsername(ctx, username)
	case domain.KindMarket:
		if phoneNumber == "" {
			return nil, domain.ErrInvalidCredentials
		}
		return s.accounts.GetByPhone(ctx, phoneNumber)
	default:
		// Clients may present either identifier.
		if phoneNumber != "" {
			acc, err := s.accounts.GetByPhone(ctx, phoneNumber)
			if err == nil || !errors.Is(err, domain.ErrNotFound) {
				return acc, err
			}
		}
		if username == "" {
			return nil, domain.ErrInvalidCredentials
		}
		return s.accounts.GetByUsername(ctx, username)
	}
}

func (s *service) Get(ctx context.Context, accountID string) (*domain.Account, error) {
	return s.accounts.Get(ctx, accountID)
}

func (s *service) List(ctx context.Context, limit int32, cursor string) ([]domain.Account, string, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.accounts.ScanPage(ctx, limit, cursor)
}

// Create is the administrative path: no OTP flow, the phone is taken on trust.
func (s *service) Create(ctx context.Context, req domain.CreateAccountRequest) (*domain.Account, error) {
	phoneNumber := phone.Normalize(req.PhoneNumber)
	if !phone.Valid(phoneNumber) {
		return nil, fmt.Errorf("invalid phone number: %w", domain.ErrBadRequest)
	}
	if _, err := s.accounts.GetByPhone(ctx, phoneNumber); err == nil {
		return nil, fmt.Errorf("phone number already registered: %w", domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	var username *string
	if req.Username != nil {
		trimmed := strings.TrimSpace(*req.Username)
		if trimmed == "" {
			return nil, fmt.Errorf("username must not be empty: %w", domain.ErrBadRequest)
		}
		if _, err := s.accounts.GetByUsername(ctx, trimmed); err == nil {
			return nil, fmt.Errorf("username already taken: %w", domain.ErrConflict)
		} else if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		username = &trimmed
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	acc := &domain.Account{
		AccountID:    id.New(),
		FullName:     strings.TrimSpace(req.FullName),
		Username:     username,
		PhoneNumber:  phoneNumber,
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         s.kind.DefaultRole(),
		Language:     req.Language,
		PhotoPath:    req.PhotoPath,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.accounts.Create(ctx, acc); err != nil {
		return nil, err
	}
	return acc, nil
}

func (s *service) Update(ctx context.Context, accountID string, req domain.UpdateAccountRequest) (*domain.Account, error) {
	return s.update(ctx, accountID, req)
}

// UpdateSelf is Update minus the administrative fields.
func (s *service) UpdateSelf(ctx context.Context, accountID string, req domain.UpdateAccountRequest) (*domain.Account, error) {
	req.IsActive = nil
	return s.update(ctx, accountID, req)
}

func (s *service) update(ctx context.Context, accountID string, req domain.UpdateAccountRequest) (*domain.Account, error) {
	current, err := s.accounts.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.FullName != nil {
		updates["full_name"] = strings.TrimSpace(*req.FullName)
	}
	if req.Email != nil {
		updates["email"] = *req.Email
	}
	if req.Language != nil {
		updates["language"] = *req.Language
	}
	if req.PhotoPath != nil {
		updates["photo_path"] = *req.PhotoPath
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if req.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		updates["password_hash"] = string(hash)
	}

	if req.PhoneNumber != nil {
		newPhone := phone.Normalize(*req.PhoneNumber)
		if !phone.Valid(newPhone) {
			return nil, fmt.Errorf("invalid phone number: %w", domain.ErrBadRequest)
		}
		if newPhone != current.PhoneNumber {
			if err := s.accounts.RebindPhoneGuard(ctx, accountID, current.PhoneNumber, newPhone); err != nil {
				return nil, err
			}
			updates["phone_number"] = newPhone
		}
	}
	if req.Username != nil {
		newUsername := strings.TrimSpace(*req.Username)
		if newUsername == "" {
			return nil, fmt.Errorf("username must not be empty: %w", domain.ErrBadRequest)
		}
		oldUsername := ""
		if current.Username != nil {
			oldUsername = *current.Username
		}
		if newUsername != oldUsername {
			if err := s.accounts.RebindUsernameGuard(ctx, accountID, oldUsername, newUsername); err != nil {
				return nil, err
			}
			updates["username"] = newUsername
		}
	}

	if len(updates) == 0 {
		return current, nil
	}
	if err := s.accounts.Update(ctx, accountID, updates); err != nil {
		return nil, err
	}
	return s.accounts.Get(ctx, accountID)
}

func (s *service) Delete(ctx context.Context, accountID string) error {
	return s.accounts.Delete(ctx, accountID)
}

func (s *service) CheckPhone(ctx context.Context, phoneNumber string) (bool, error) {
	normalized := phone.Normalize(phoneNumber)
	if !phone.Valid(normalized) {
		return false, fmt.Errorf("invalid phone number: %w", domain.ErrBadRequest)
	}
	_, err := s.accounts.GetByPhone(ctx, normalized)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *service) CheckUsername(ctx context.Context, username string) (bool, error) {
	trimmed := strings.TrimSpace(username)
	if trimmed == "" {
		return false, fmt.Errorf("username must not be empty: %w", domain.ErrBadRequest)
	}
	_, err := s.accounts.GetByUsername(ctx, trimmed)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// seedStore is the slice of the repository EnsureSuperAdmin needs.
type seedStore interface {
	GetByRole(ctx context.Context, role string) (*domain.Account, error)
	Create(ctx context.Context, a *domain.Account) error
}

// EnsureSuperAdmin creates the seed superadmin account on first boot. It is a
// no-op when one already exists or when no seed password is configured.
func EnsureSuperAdmin(ctx context.Context, store seedStore, cfg *config.Config) error {
	if cfg.SuperAdminPassword == "" {
		slog.Warn("superadmin seed skipped: no password configured")
		return nil
	}
	_, err := store.GetByRole(ctx, domain.RoleSuperAdmin)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("look up superadmin: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.SuperAdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash superadmin password: %w", err)
	}
	username := cfg.SuperAdminUsername
	now := time.Now().UTC()
	acc := &domain.Account{
		AccountID:    id.New(),
		FullName:     "Super Admin",
		Username:     &username,
		PhoneNumber:  cfg.SuperAdminPhone,
		PasswordHash: string(hash),
		Role:         domain.RoleSuperAdmin,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if cfg.SuperAdminEmail != "" {
		email := cfg.SuperAdminEmail
		acc.Email = &email
	}
	if err := store.Create(ctx, acc); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			// Another replica seeded first.
			return nil
		}
		return fmt.Errorf("create superadmin: %w", err)
	}
	slog.Info("superadmin account seeded", "username", username)
	return nil
}

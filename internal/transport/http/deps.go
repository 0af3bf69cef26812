package http

import (
	"context"
	"time"

	"github.com/bozor-api/internal/domain"
)

// AccountRepository is the minimal interface the router requires from an
// account store. One implementation is instantiated per account kind, each
// backed by its own table.
type AccountRepository interface {
	Create(ctx context.Context, a *domain.Account) error
	Get(ctx context.Context, accountID string) (*domain.Account, error)
	GetByPhone(ctx context.Context, phoneNumber string) (*domain.Account, error)
	GetByUsername(ctx context.Context, username string) (*domain.Account, error)
	Update(ctx context.Context, accountID string, updates map[string]interface{}) error
	Delete(ctx context.Context, accountID string) error
	ScanPage(ctx context.Context, limit int32, cursor string) ([]domain.Account, string, error)
	RebindPhoneGuard(ctx context.Context, accountID, oldPhone, newPhone string) error
	RebindUsernameGuard(ctx context.Context, accountID, oldUsername, newUsername string) error
}

// EphemeralStore is the minimal interface the router requires from the keyed
// TTL store holding OTP records and verified-phone markers.
type EphemeralStore interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, key string) error
	TTL(ctx context.Context, key string) (int64, error)
}

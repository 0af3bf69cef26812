package account

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/bozor-api/internal/domain"
)

type mockAccountStore struct{ mock.Mock }

func (m *mockAccountStore) Get(ctx context.Context, accountID string) (*domain.Account, error) {
	args := m.Called(ctx, accountID)
	if a, _ := args.Get(0).(*domain.Account); a != nil {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAccountStore) GetByPhone(ctx context.Context, phoneNumber string) (*domain.Account, error) {
	args := m.Called(ctx, phoneNumber)
	if a, _ := args.Get(0).(*domain.Account); a != nil {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAccountStore) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	args := m.Called(ctx, username)
	if a, _ := args.Get(0).(*domain.Account); a != nil {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAccountStore) Create(ctx context.Context, a *domain.Account) error {
	return m.Called(ctx, a).Error(0)
}

func (m *mockAccountStore) Update(ctx context.Context, accountID string, updates map[string]interface{}) error {
	return m.Called(ctx, accountID, updates).Error(0)
}

func (m *mockAccountStore) Delete(ctx context.Context, accountID string) error {
	return m.Called(ctx, accountID).Error(0)
}

func (m *mockAccountStore) ScanPage(ctx context.Context, limit int32, cursor string) ([]domain.Account, string, error) {
	args := m.Called(ctx, limit, cursor)
	accs, _ := args.Get(0).([]domain.Account)
	return accs, args.String(1), args.Error(2)
}

func (m *mockAccountStore) RebindPhoneGuard(ctx context.Context, accountID, oldPhone, newPhone string) error {
	return m.Called(ctx, accountID, oldPhone, newPhone).Error(0)
}

func (m *mockAccountStore) RebindUsernameGuard(ctx context.Context, accountID, oldUsername, newUsername string) error {
	return m.Called(ctx, accountID, oldUsername, newUsername).Error(0)
}

type fakeSigner struct{}

func (fakeSigner) SignAccess(p domain.TokenPayload) (string, error)  { return "access-" + p.ID, nil }
func (fakeSigner) SignRefresh(p domain.TokenPayload) (string, error) { return "refresh-" + p.ID, nil }

const testPhone = "+998901234567"

func hashOf(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func activeAccount(t *testing.T) *domain.Account {
	return &domain.Account{
		AccountID:    "acc1",
		Username:     strPtr("ali"),
		PhoneNumber:  testPhone,
		PasswordHash: hashOf(t, "secret99"),
		Role:         domain.RoleClient,
		IsActive:     true,
	}
}

func newTestService(kind domain.AccountKind, as *mockAccountStore) Service {
	return NewService(ServiceDeps{Kind: kind, Accounts: as, Tokens: fakeSigner{}})
}

// --- SignIn ---

func TestSignIn_AdminUsesUsername(t *testing.T) {
	acc := activeAccount(t)
	acc.Role = domain.RoleAdmin
	as := &mockAccountStore{}
	as.On("GetByUsername", mock.Anything, "ali").Return(acc, nil)

	res, err := newTestService(domain.KindAdmin, as).SignIn(context.Background(), domain.LoginRequest{
		Username: "ali", Password: "secret99",
	})
	require.NoError(t, err)
	assert.Equal(t, "access-acc1", res.AccessToken)
	assert.Equal(t, "refresh-acc1", res.RefreshToken)
	assert.Equal(t, domain.RoleAdmin, res.Account.Role)
}

func TestSignIn_MarketUsesPhone(t *testing.T) {
	acc := activeAccount(t)
	as := &mockAccountStore{}
	as.On("GetByPhone", mock.Anything, testPhone).Return(acc, nil)

	_, err := newTestService(domain.KindMarket, as).SignIn(context.Background(), domain.LoginRequest{
		PhoneNumber: testPhone, Password: "secret99",
	})
	assert.NoError(t, err)
}

func TestSignIn_ClientFallsBackToUsername(t *testing.T) {
	acc := activeAccount(t)
	as := &mockAccountStore{}
	as.On("GetByPhone", mock.Anything, testPhone).Return(nil, domain.ErrNotFound)
	as.On("GetByUsername", mock.Anything, "ali").Return(acc, nil)

	_, err := newTestService(domain.KindClient, as).SignIn(context.Background(), domain.LoginRequest{
		PhoneNumber: testPhone, Username: "ali", Password: "secret99",
	})
	assert.NoError(t, err)
}

func TestSignIn_IndistinguishableFailures(t *testing.T) {
	// Unknown account, wrong password and deactivated account must be
	// observationally identical to the caller.
	acc := activeAccount(t)
	inactive := activeAccount(t)
	inactive.IsActive = false

	cases := []struct {
		name     string
		stored   *domain.Account
		password string
	}{
		{"unknown account", nil, "secret99"},
		{"wrong password", acc, "wrong-pass"},
		{"inactive account", inactive, "secret99"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			as := &mockAccountStore{}
			if tc.stored == nil {
				as.On("GetByUsername", mock.Anything, "ali").Return(nil, domain.ErrNotFound)
			} else {
				as.On("GetByUsername", mock.Anything, "ali").Return(tc.stored, nil)
			}
			_, err := newTestService(domain.KindAdmin, as).SignIn(context.Background(), domain.LoginRequest{
				Username: "ali", Password: tc.password,
			})
			assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
			assert.EqualError(t, err, domain.ErrInvalidCredentials.Error())
		})
	}
}

func TestSignIn_MissingIdentifier(t *testing.T) {
	_, err := newTestService(domain.KindAdmin, &mockAccountStore{}).SignIn(context.Background(), domain.LoginRequest{
		Password: "secret99",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

// --- Create ---

func TestCreate_HashesPasswordAndDefaultsRole(t *testing.T) {
	as := &mockAccountStore{}
	as.On("GetByPhone", mock.Anything, testPhone).Return(nil, domain.ErrNotFound)
	as.On("GetByUsername", mock.Anything, "vali").Return(nil, domain.ErrNotFound)
	as.On("Create", mock.Anything, mock.AnythingOfType("*domain.Account")).Return(nil)

	acc, err := newTestService(domain.KindMarket, as).Create(context.Background(), domain.CreateAccountRequest{
		FullName:    "Vali Aliyev",
		Username:    strPtr("vali"),
		PhoneNumber: testPhone,
		Password:    "secret99",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleMarket, acc.Role)
	assert.True(t, acc.IsActive)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte("secret99")))
}

func TestCreate_PhoneConflict(t *testing.T) {
	as := &mockAccountStore{}
	as.On("GetByPhone", mock.Anything, testPhone).Return(activeAccount(t), nil)

	_, err := newTestService(domain.KindClient, as).Create(context.Background(), domain.CreateAccountRequest{
		PhoneNumber: testPhone, Password: "secret99",
	})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestCreate_InvalidPhone(t *testing.T) {
	_, err := newTestService(domain.KindClient, &mockAccountStore{}).Create(context.Background(), domain.CreateAccountRequest{
		PhoneNumber: "12345", Password: "secret99",
	})
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

// --- Update ---

func TestUpdate_RebindsGuardsOnIdentifierChange(t *testing.T) {
	current := activeAccount(t)
	newPhone := "+998909999999"

	as := &mockAccountStore{}
	as.On("Get", mock.Anything, "acc1").Return(current, nil)
	as.On("RebindPhoneGuard", mock.Anything, "acc1", testPhone, newPhone).Return(nil)
	as.On("RebindUsernameGuard", mock.Anything, "acc1", "ali", "vali").Return(nil)
	as.On("Update", mock.Anything, "acc1", mock.MatchedBy(func(u map[string]interface{}) bool {
		return u["phone_number"] == newPhone && u["username"] == "vali"
	})).Return(nil)

	_, err := newTestService(domain.KindClient, as).Update(context.Background(), "acc1", domain.UpdateAccountRequest{
		PhoneNumber: strPtr(newPhone),
		Username:    strPtr("vali"),
	})
	require.NoError(t, err)
	as.AssertExpectations(t)
}

func TestUpdate_GuardConflictAborts(t *testing.T) {
	as := &mockAccountStore{}
	as.On("Get", mock.Anything, "acc1").Return(activeAccount(t), nil)
	as.On("RebindUsernameGuard", mock.Anything, "acc1", "ali", "vali").Return(domain.ErrConflict)

	_, err := newTestService(domain.KindClient, as).Update(context.Background(), "acc1", domain.UpdateAccountRequest{
		Username: strPtr("vali"),
	})
	assert.ErrorIs(t, err, domain.ErrConflict)
	as.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdate_NoChangesSkipsWrite(t *testing.T) {
	current := activeAccount(t)
	as := &mockAccountStore{}
	as.On("Get", mock.Anything, "acc1").Return(current, nil)

	got, err := newTestService(domain.KindClient, as).Update(context.Background(), "acc1", domain.UpdateAccountRequest{})
	require.NoError(t, err)
	assert.Same(t, current, got)
	as.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateSelf_CannotToggleActivation(t *testing.T) {
	as := &mockAccountStore{}
	as.On("Get", mock.Anything, "acc1").Return(activeAccount(t), nil)
	as.On("Update", mock.Anything, "acc1", mock.MatchedBy(func(u map[string]interface{}) bool {
		_, hasActive := u["is_active"]
		return !hasActive && u["full_name"] == "New Name"
	})).Return(nil)

	_, err := newTestService(domain.KindClient, as).UpdateSelf(context.Background(), "acc1", domain.UpdateAccountRequest{
		FullName: strPtr("New Name"),
		IsActive: boolPtr(false),
	})
	require.NoError(t, err)
	as.AssertExpectations(t)
}

// --- availability checks ---

func TestCheckPhone(t *testing.T) {
	as := &mockAccountStore{}
	as.On("GetByPhone", mock.Anything, testPhone).Return(activeAccount(t), nil)

	taken, err := newTestService(domain.KindClient, as).CheckPhone(context.Background(), testPhone)
	require.NoError(t, err)
	assert.True(t, taken)

	as2 := &mockAccountStore{}
	as2.On("GetByPhone", mock.Anything, testPhone).Return(nil, domain.ErrNotFound)
	taken, err = newTestService(domain.KindClient, as2).CheckPhone(context.Background(), testPhone)
	require.NoError(t, err)
	assert.False(t, taken)
}

func TestCheckUsername_Empty(t *testing.T) {
	_, err := newTestService(domain.KindClient, &mockAccountStore{}).CheckUsername(context.Background(), "  ")
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

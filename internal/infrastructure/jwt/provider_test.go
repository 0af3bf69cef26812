package jwtinfra

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bozor-api/internal/config"
	"github.com/bozor-api/internal/domain"
)

func testConfig() *config.Config {
	return &config.Config{
		AppEnv:             "test",
		AccessTokenSecret:  "access-secret-for-tests",
		AccessTokenTTL:     15 * time.Minute,
		RefreshTokenSecret: "refresh-secret-for-tests",
		RefreshTokenDays:   15,
	}
}

func newTestProvider(t *testing.T) *Provider {
	t.Helper()
	p, err := NewProvider(testConfig())
	require.NoError(t, err)
	return p
}

func TestNewProvider_MissingSecrets(t *testing.T) {
	cfg := testConfig()
	cfg.AccessTokenSecret = ""
	_, err := NewProvider(cfg)
	assert.Error(t, err)

	cfg = testConfig()
	cfg.RefreshTokenSecret = cfg.AccessTokenSecret
	_, err = NewProvider(cfg)
	assert.Error(t, err)
}

func TestSignAccess_RoundTrip(t *testing.T) {
	p := newTestProvider(t)

	signed, err := p.SignAccess(domain.TokenPayload{ID: "a1", Role: domain.RoleClient, IsActive: true})
	require.NoError(t, err)

	claims, err := p.VerifyAccess(signed)
	require.NoError(t, err)
	assert.Equal(t, "a1", claims.ID)
	assert.Equal(t, domain.RoleClient, claims.Role)
	assert.True(t, claims.IsActive)
	assert.Equal(t, TypeAccess, claims.TokenType)
}

func TestVerifyAccess_RejectsRefreshToken(t *testing.T) {
	p := newTestProvider(t)

	refresh, err := p.SignRefresh(domain.TokenPayload{ID: "a1", Role: domain.RoleClient, IsActive: true})
	require.NoError(t, err)

	_, err = p.VerifyAccess(refresh)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestVerifyRefresh_RejectsAccessToken(t *testing.T) {
	p := newTestProvider(t)

	access, err := p.SignAccess(domain.TokenPayload{ID: "a1", Role: domain.RoleClient, IsActive: true})
	require.NoError(t, err)

	_, err = p.VerifyRefresh(access)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestVerifyAccess_ExpiredToken(t *testing.T) {
	cfg := testConfig()
	cfg.AccessTokenTTL = -time.Minute
	p, err := NewProvider(cfg)
	require.NoError(t, err)

	signed, err := p.SignAccess(domain.TokenPayload{ID: "a1"})
	require.NoError(t, err)

	_, err = p.VerifyAccess(signed)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestVerifyAccess_Garbage(t *testing.T) {
	p := newTestProvider(t)
	_, err := p.VerifyAccess("not-a-token")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestWriteRefreshCookie_Development(t *testing.T) {
	p := newTestProvider(t)

	rr := httptest.NewRecorder()
	p.WriteRefreshCookie(rr, "refresh-value", 15)

	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, CookieName, c.Name)
	assert.Equal(t, "refresh-value", c.Value)
	assert.True(t, c.HttpOnly)
	assert.False(t, c.Secure)
	assert.Equal(t, 15*24*60*60, c.MaxAge)
}

func TestWriteRefreshCookie_Production(t *testing.T) {
	cfg := testConfig()
	cfg.AppEnv = "production"
	p, err := NewProvider(cfg)
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	p.WriteRefreshCookie(rr, "refresh-value", 15)

	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.True(t, cookies[0].Secure)
}

func TestClearRefreshCookie(t *testing.T) {
	p := newTestProvider(t)

	rr := httptest.NewRecorder()
	p.ClearRefreshCookie(rr)

	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.Less(t, cookies[0].MaxAge, 0)
}

package jwtinfra

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/bozor-api/internal/config"
	"github.com/bozor-api/internal/domain"
)

const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"

	// CookieName carries the refresh token on browser clients.
	CookieName = "token"
)

// Claims holds the JWT payload fields.
type Claims struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	IsActive  bool   `json:"is_active"`
	TokenType string `json:"type"`
	jwt.RegisteredClaims
}

// Provider signs and verifies HS256 JWTs. Access and refresh tokens use
// independent secrets and lifetimes, so a leaked access secret cannot be
// used to mint refresh tokens.
type Provider struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	production    bool
}

func NewProvider(cfg *config.Config) (*Provider, error) {
	if cfg.AccessTokenSecret == "" || cfg.RefreshTokenSecret == "" {
		return nil, errors.New("access and refresh token secrets must be set")
	}
	if cfg.AccessTokenSecret == cfg.RefreshTokenSecret {
		return nil, errors.New("access and refresh token secrets must differ")
	}
	return &Provider{
		accessSecret:  []byte(cfg.AccessTokenSecret),
		refreshSecret: []byte(cfg.RefreshTokenSecret),
		accessTTL:     cfg.AccessTokenTTL,
		refreshTTL:    cfg.RefreshTokenTTL(),
		production:    cfg.IsProduction(),
	}, nil
}

func (p *Provider) SignAccess(payload domain.TokenPayload) (string, error) {
	return p.sign(payload, TypeAccess, p.accessSecret, p.accessTTL)
}

func (p *Provider) SignRefresh(payload domain.TokenPayload) (string, error) {
	return p.sign(payload, TypeRefresh, p.refreshSecret, p.refreshTTL)
}

func (p *Provider) sign(payload domain.TokenPayload, tokenType string, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		ID:        payload.ID,
		Role:      payload.Role,
		IsActive:  payload.IsActive,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// VerifyAccess validates signature and expiry and rejects non-access tokens,
// so a refresh token can never be replayed as a bearer credential.
func (p *Provider) VerifyAccess(tokenStr string) (*Claims, error) {
	return p.verify(tokenStr, TypeAccess, p.accessSecret)
}

func (p *Provider) VerifyRefresh(tokenStr string) (*Claims, error) {
	return p.verify(tokenStr, TypeRefresh, p.refreshSecret)
}

func (p *Provider) verify(tokenStr, wantType string, secret []byte) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid or expired token: %w", domain.ErrUnauthorized)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims: %w", domain.ErrUnauthorized)
	}
	if claims.TokenType != wantType {
		return nil, fmt.Errorf("wrong token type: %w", domain.ErrUnauthorized)
	}
	return claims, nil
}

// WriteRefreshCookie sets the refresh token as an HTTP-only cookie. Secure +
// SameSite=None in production, SameSite=Lax locally so plain-HTTP dev setups
// still receive it.
func (p *Provider) WriteRefreshCookie(w http.ResponseWriter, value string, days int) {
	sameSite := http.SameSiteLaxMode
	if p.production {
		sameSite = http.SameSiteNoneMode
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   days * 24 * 60 * 60,
		HttpOnly: true,
		Secure:   p.production,
		SameSite: sameSite,
	})
}

// ClearRefreshCookie expires the refresh cookie immediately.
func (p *Provider) ClearRefreshCookie(w http.ResponseWriter) {
	sameSite := http.SameSiteLaxMode
	if p.production {
		sameSite = http.SameSiteNoneMode
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   p.production,
		SameSite: sameSite,
	})
}

package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort string
	AppEnv  string

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables

	AccessTokenSecret  string
	AccessTokenTTL     time.Duration // minutes-scale
	RefreshTokenSecret string
	RefreshTokenDays   int // cookie lifetime mirrors this

	OtpTTL         time.Duration
	VerifyTTL      time.Duration
	MaxOtpAttempts int

	SuperAdminUsername string
	SuperAdminPassword string
	SuperAdminPhone    string
	SuperAdminEmail    string

	AllowedOrigins []string // CORS allowed origins
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Admins    string
	Clients   string
	Markets   string
	Ephemeral string
}

// IsProduction controls cookie hardening (secure + SameSite=None).
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// RefreshTokenTTL is the refresh-token lifetime as a duration.
func (c *Config) RefreshTokenTTL() time.Duration {
	return time.Duration(c.RefreshTokenDays) * 24 * time.Hour
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort: getEnv("APP_PORT", "3000"),
		AppEnv:  getEnv("APP_ENV", "development"),

		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Admins:    getEnv("DYNAMO_TABLE_ADMINS", "admins"),
			Clients:   getEnv("DYNAMO_TABLE_CLIENTS", "clients"),
			Markets:   getEnv("DYNAMO_TABLE_MARKETS", "markets"),
			Ephemeral: getEnv("DYNAMO_TABLE_EPHEMERAL", "ephemeral"),
		},

		AccessTokenSecret:  getEnv("ACCESS_TOKEN_SECRET", ""),
		AccessTokenTTL:     time.Duration(getEnvInt("ACCESS_TOKEN_TIME_MIN", 15)) * time.Minute,
		RefreshTokenSecret: getEnv("REFRESH_TOKEN_SECRET", ""),
		RefreshTokenDays:   getEnvInt("REFRESH_TOKEN_TIME_DAYS", 15),

		OtpTTL:         time.Duration(getEnvInt("OTP_TTL_SEC", 300)) * time.Second,
		VerifyTTL:      time.Duration(getEnvInt("VERIFY_TTL_SEC", 600)) * time.Second,
		MaxOtpAttempts: getEnvInt("OTP_MAX_ATTEMPTS", 5),

		SuperAdminUsername: getEnv("SUPERADMIN_USERNAME", "superadmin"),
		SuperAdminPassword: getEnv("SUPERADMIN_PASSWORD", ""),
		SuperAdminPhone:    getEnv("SUPERADMIN_PHONE_NUMBER", ""),
		SuperAdminEmail:    getEnv("SUPERADMIN_EMAIL", ""),

		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Provider names accepted in OTP_PROVIDER.
const (
	ProviderMock    = "mock"
	ProviderTwilio  = "twilio"
	ProviderInfobip = "infobip"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN used for OTP codes and the audit log.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`

	// OTPProvider selects the active delivery provider: mock, twilio, or infobip.
	// An unconfigured non-mock provider falls back to mock at startup (logged).
	OTPProvider string `mapstructure:"OTP_PROVIDER"`
	// OTPLength is the default number of code digits (4-8).
	OTPLength int `mapstructure:"OTP_LENGTH"`
	// OTPExpiry is the default code lifetime (e.g. "10m").
	OTPExpiry string `mapstructure:"OTP_EXPIRY"`

	// MockLatencyMS is the simulated send latency for the mock provider, in milliseconds.
	MockLatencyMS int `mapstructure:"OTP_MOCK_LATENCY_MS"`
	// MockFailureRate is the simulated send failure rate for the mock provider (0.0-1.0).
	MockFailureRate float64 `mapstructure:"OTP_MOCK_FAILURE_RATE"`

	// TwilioAccountSID, TwilioAuthToken, and TwilioFromNumber configure the Twilio
	// direct-SMS provider; all three are required for it to be considered configured.
	TwilioAccountSID string `mapstructure:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken  string `mapstructure:"TWILIO_AUTH_TOKEN"`
	TwilioFromNumber string `mapstructure:"TWILIO_FROM_NUMBER"`
	// TwilioBaseURL overrides the Twilio API base URL (tests).
	TwilioBaseURL string `mapstructure:"TWILIO_BASE_URL"`

	// InfobipAPIKey, InfobipAppID, and InfobipMessageID configure the Infobip 2FA
	// provider; all three are required for it to be considered configured.
	InfobipAPIKey    string `mapstructure:"INFOBIP_API_KEY"`
	InfobipAppID     string `mapstructure:"INFOBIP_APP_ID"`
	InfobipMessageID string `mapstructure:"INFOBIP_MESSAGE_ID"`
	// InfobipBaseURL overrides the Infobip API base URL (tests).
	InfobipBaseURL string `mapstructure:"INFOBIP_BASE_URL"`

	// JWTPrivateKey is the PEM-encoded private key (RSA or ECDSA) or path to file.
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	// JWTPublicKey is the PEM-encoded public key or path to file.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	// JWTIssuer is the iss claim (e.g. "notevault-auth").
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAudience is the aud claim (e.g. "notevault-api").
	JWTAudience string `mapstructure:"JWT_AUDIENCE"`
	// JWTAccessTTL is the access token lifetime (e.g. "15m").
	JWTAccessTTL string `mapstructure:"JWT_ACCESS_TTL"`
	// JWTRefreshTTL is the refresh token lifetime (e.g. "168h").
	JWTRefreshTTL string `mapstructure:"JWT_REFRESH_TTL"`

	// SessionMaxAge is how long an untouched session survives before the sweep
	// removes it (e.g. "720h" = 30 days).
	SessionMaxAge string `mapstructure:"SESSION_MAX_AGE"`
	// SessionCleanupInterval is how often the background sweep runs (e.g. "1h").
	SessionCleanupInterval string `mapstructure:"SESSION_CLEANUP_INTERVAL"`

	// OTLPEndpoint is the OTLP gRPC endpoint for traces/metrics/logs; empty disables export.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTLPInsecure forces plaintext OTLP export even for https endpoints.
	OTLPInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	// ServiceName is the OTel service.name resource attribute.
	ServiceName string `mapstructure:"OTEL_SERVICE_NAME"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("OTP_PROVIDER", ProviderMock)
	v.SetDefault("OTP_LENGTH", 4)
	v.SetDefault("OTP_EXPIRY", "10m")
	v.SetDefault("OTP_MOCK_LATENCY_MS", 100)
	v.SetDefault("OTP_MOCK_FAILURE_RATE", 0.0)
	v.SetDefault("JWT_ISSUER", "notevault-auth")
	v.SetDefault("JWT_AUDIENCE", "notevault-api")
	v.SetDefault("JWT_ACCESS_TTL", "15m")
	v.SetDefault("JWT_REFRESH_TTL", "168h") // 7d
	v.SetDefault("SESSION_MAX_AGE", "720h") // 30d
	v.SetDefault("SESSION_CLEANUP_INTERVAL", "1h")
	v.SetDefault("OTEL_SERVICE_NAME", "notevault-auth")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}

	switch cfg.OTPProvider {
	case ProviderMock, ProviderTwilio, ProviderInfobip:
	default:
		return nil, fmt.Errorf("config: OTP_PROVIDER must be one of mock, twilio, infobip; got %q", cfg.OTPProvider)
	}

	if cfg.OTPProvider == ProviderMock && cfg.Env == "production" {
		return nil, errors.New("config: OTP_PROVIDER=mock must not be used when APP_ENV=production")
	}

	if cfg.OTPLength < 4 || cfg.OTPLength > 8 {
		return nil, errors.New("config: OTP_LENGTH must be between 4 and 8")
	}

	if cfg.MockFailureRate < 0 || cfg.MockFailureRate > 1 {
		return nil, errors.New("config: OTP_MOCK_FAILURE_RATE must be between 0.0 and 1.0")
	}

	return &cfg, nil
}

// AccessTTL parses JWTAccessTTL as a time.Duration. Returns 15m if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTAccessTTL)
	if err != nil || d <= 0 {
		return 15 * time.Minute
	}
	return d
}

// RefreshTTL parses JWTRefreshTTL as a time.Duration. Returns 168h if unset or invalid.
func (c *Config) RefreshTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTRefreshTTL)
	if err != nil || d <= 0 {
		return 168 * time.Hour
	}
	return d
}

// OTPExpiryDuration parses OTPExpiry as a time.Duration. Returns 10m if unset or invalid.
func (c *Config) OTPExpiryDuration() time.Duration {
	d, err := time.ParseDuration(c.OTPExpiry)
	if err != nil || d <= 0 {
		return 10 * time.Minute
	}
	return d
}

// SessionMaxAgeDuration parses SessionMaxAge as a time.Duration. Returns 720h if unset or invalid.
func (c *Config) SessionMaxAgeDuration() time.Duration {
	d, err := time.ParseDuration(c.SessionMaxAge)
	if err != nil || d <= 0 {
		return 720 * time.Hour
	}
	return d
}

// SessionCleanupIntervalDuration parses SessionCleanupInterval as a time.Duration. Returns 1h if unset or invalid.
func (c *Config) SessionCleanupIntervalDuration() time.Duration {
	d, err := time.ParseDuration(c.SessionCleanupInterval)
	if err != nil || d <= 0 {
		return time.Hour
	}
	return d
}

package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":8080")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg == nil {
		t.Fatal("Load returned nil config")
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":8080")
	}
	if cfg.OTPProvider != ProviderMock {
		t.Errorf("OTPProvider = %q, want %q", cfg.OTPProvider, ProviderMock)
	}
	if cfg.OTPLength != 4 {
		t.Errorf("OTPLength = %d, want 4", cfg.OTPLength)
	}
	if cfg.OTPExpiry != "10m" {
		t.Errorf("OTPExpiry = %q, want %q", cfg.OTPExpiry, "10m")
	}
	if cfg.JWTIssuer != "notevault-auth" {
		t.Errorf("JWTIssuer = %q, want %q", cfg.JWTIssuer, "notevault-auth")
	}
	if cfg.JWTAudience != "notevault-api" {
		t.Errorf("JWTAudience = %q, want %q", cfg.JWTAudience, "notevault-api")
	}
	if cfg.JWTAccessTTL != "15m" {
		t.Errorf("JWTAccessTTL = %q, want %q", cfg.JWTAccessTTL, "15m")
	}
	if cfg.JWTRefreshTTL != "168h" {
		t.Errorf("JWTRefreshTTL = %q, want %q", cfg.JWTRefreshTTL, "168h")
	}
	if cfg.SessionMaxAge != "720h" {
		t.Errorf("SessionMaxAge = %q, want %q", cfg.SessionMaxAge, "720h")
	}
	if cfg.MockFailureRate != 0 {
		t.Errorf("MockFailureRate = %v, want 0", cfg.MockFailureRate)
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":9090")
	os.Setenv("OTP_PROVIDER", "twilio")
	os.Setenv("OTP_LENGTH", "6")
	os.Setenv("JWT_ISSUER", "custom-issuer")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":9090")
	}
	if cfg.OTPProvider != ProviderTwilio {
		t.Errorf("OTPProvider = %q, want %q", cfg.OTPProvider, ProviderTwilio)
	}
	if cfg.OTPLength != 6 {
		t.Errorf("OTPLength = %d, want 6", cfg.OTPLength)
	}
	if cfg.JWTIssuer != "custom-issuer" {
		t.Errorf("JWTIssuer = %q, want %q", cfg.JWTIssuer, "custom-issuer")
	}
}

func TestLoad_RejectsUnknownProvider(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":8080")
	os.Setenv("OTP_PROVIDER", "carrier-pigeon")

	if _, err := Load(); err == nil {
		t.Fatal("Load should fail for unknown OTP_PROVIDER")
	}
}

func TestLoad_RejectsMockInProduction(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":8080")
	os.Setenv("OTP_PROVIDER", "mock")
	os.Setenv("APP_ENV", "production")

	if _, err := Load(); err == nil {
		t.Fatal("Load should fail when OTP_PROVIDER=mock in production")
	}
}

func TestLoad_RejectsBadLength(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":8080")
	os.Setenv("OTP_LENGTH", "9")

	if _, err := Load(); err == nil {
		t.Fatal("Load should fail when OTP_LENGTH is out of range")
	}
}

func TestDurationHelpers_Defaults(t *testing.T) {
	cfg := &Config{}
	if got := cfg.AccessTTL(); got != 15*time.Minute {
		t.Errorf("AccessTTL = %v, want 15m", got)
	}
	if got := cfg.RefreshTTL(); got != 168*time.Hour {
		t.Errorf("RefreshTTL = %v, want 168h", got)
	}
	if got := cfg.OTPExpiryDuration(); got != 10*time.Minute {
		t.Errorf("OTPExpiryDuration = %v, want 10m", got)
	}
	if got := cfg.SessionMaxAgeDuration(); got != 720*time.Hour {
		t.Errorf("SessionMaxAgeDuration = %v, want 720h", got)
	}
	if got := cfg.SessionCleanupIntervalDuration(); got != time.Hour {
		t.Errorf("SessionCleanupIntervalDuration = %v, want 1h", got)
	}
}

func TestDurationHelpers_Parsed(t *testing.T) {
	cfg := &Config{
		JWTAccessTTL:           "5m",
		JWTRefreshTTL:          "24h",
		OTPExpiry:              "2m",
		SessionMaxAge:          "48h",
		SessionCleanupInterval: "30m",
	}
	if got := cfg.AccessTTL(); got != 5*time.Minute {
		t.Errorf("AccessTTL = %v, want 5m", got)
	}
	if got := cfg.RefreshTTL(); got != 24*time.Hour {
		t.Errorf("RefreshTTL = %v, want 24h", got)
	}
	if got := cfg.OTPExpiryDuration(); got != 2*time.Minute {
		t.Errorf("OTPExpiryDuration = %v, want 2m", got)
	}
	if got := cfg.SessionMaxAgeDuration(); got != 48*time.Hour {
		t.Errorf("SessionMaxAgeDuration = %v, want 48h", got)
	}
	if got := cfg.SessionCleanupIntervalDuration(); got != 30*time.Minute {
		t.Errorf("SessionCleanupIntervalDuration = %v, want 30m", got)
	}
}

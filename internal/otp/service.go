// Package otp orchestrates OTP issuance and verification across delivery
// providers and the durable code store.
package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"math/big"
	"regexp"
	"time"

	"notevault/auth-service/internal/config"
	"notevault/auth-service/internal/otp/provider"
	"notevault/auth-service/internal/otp/repository"
)

// Sentinel errors for OTP operations; handlers map them to HTTP responses.
var (
	ErrInvalidPhone  = errors.New("invalid phone number format, expected E.164 (e.g. +15551234567)")
	ErrInvalidCode   = errors.New("invalid OTP code format, expected 4-8 digits")
	ErrInvalidLength = errors.New("OTP length must be between 4 and 8")
)

var (
	phonePattern = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)
	codePattern  = regexp.MustCompile(`^\d{4,8}$`)
)

// SendOptions controls code generation for one send.
type SendOptions struct {
	// Length is the number of code digits (4-8); 0 means the service default.
	Length int
	// Expiry is the code TTL; 0 means the service default.
	Expiry time.Duration
}

// SendResult holds the outcome of a successful send.
type SendResult struct {
	MessageID string
	Provider  string
	ExpiresIn time.Duration
}

// ProviderInfo describes one registered provider for diagnostics.
type ProviderInfo struct {
	Name       string            `json:"name"`
	Configured bool              `json:"configured"`
	Active     bool              `json:"active"`
	Features   provider.Features `json:"features"`
}

// Status holds service diagnostics.
type Status struct {
	ActiveProvider string            `json:"active_provider"`
	Providers      []ProviderInfo    `json:"providers"`
	Store          *repository.Stats `json:"store,omitempty"`
}

// Service selects the active provider, generates codes, delegates delivery,
// and persists/verifies codes via the repository.
type Service struct {
	registry      *provider.Registry
	active        string
	repo          repository.Repository
	defaultLength int
	defaultExpiry time.Duration
}

// BuildRegistry registers the mock provider unconditionally and the vendor
// providers whose credentials are present in cfg.
func BuildRegistry(cfg *config.Config) *provider.Registry {
	reg := provider.NewRegistry()
	reg.Register(provider.NewMock(time.Duration(cfg.MockLatencyMS)*time.Millisecond, cfg.MockFailureRate))
	if cfg.TwilioAccountSID != "" || cfg.TwilioAuthToken != "" || cfg.TwilioFromNumber != "" {
		reg.Register(provider.NewTwilio(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber, cfg.TwilioBaseURL))
	}
	if cfg.InfobipAPIKey != "" || cfg.InfobipAppID != "" || cfg.InfobipMessageID != "" {
		reg.Register(provider.NewInfobip(cfg.InfobipAPIKey, cfg.InfobipAppID, cfg.InfobipMessageID, cfg.InfobipBaseURL))
	}
	return reg
}

// NewService returns a Service using the given registry and repository.
// If the requested provider is missing or unconfigured, the service falls
// back to mock and logs the degradation instead of failing startup.
func NewService(reg *provider.Registry, activeName string, repo repository.Repository, defaultLength int, defaultExpiry time.Duration) *Service {
	if defaultLength < 4 || defaultLength > 8 {
		defaultLength = 4
	}
	if defaultExpiry <= 0 {
		defaultExpiry = repository.DefaultTTL
	}
	active := activeName
	p, ok := reg.Get(active)
	if !ok || !p.IsConfigured() {
		if active != config.ProviderMock {
			log.Printf("otp: provider %q is not configured, falling back to mock", active)
		}
		active = config.ProviderMock
	}
	return &Service{
		registry:      reg,
		active:        active,
		repo:          repo,
		defaultLength: defaultLength,
		defaultExpiry: defaultExpiry,
	}
}

// ActiveProvider returns the name of the provider in use.
func (s *Service) ActiveProvider() string { return s.active }

// SendOTP generates a code and delivers it to phone via the active provider,
// then persists the code for later verification.
func (s *Service) SendOTP(ctx context.Context, phone string, opts SendOptions) (*SendResult, error) {
	if !phonePattern.MatchString(phone) {
		return nil, ErrInvalidPhone
	}
	length := opts.Length
	if length == 0 {
		length = s.defaultLength
	}
	if length < 4 || length > 8 {
		return nil, ErrInvalidLength
	}
	expiry := opts.Expiry
	if expiry <= 0 {
		expiry = s.defaultExpiry
	}

	code, err := GenerateCode(length)
	if err != nil {
		return nil, fmt.Errorf("generate code: %w", err)
	}

	p, _ := s.registry.Get(s.active)
	res, err := p.SendOTP(ctx, phone, code)
	if err != nil {
		return nil, fmt.Errorf("provider %s: %w", s.active, err)
	}

	// A delivered but unstorable code can never be verified, so persistence
	// failure fails the whole send.
	if err := s.repo.Store(ctx, phone, code, expiry, res.MessageID); err != nil {
		return nil, err
	}
	log.Printf("otp: code sent to %s via %s (expires in %s)", phone, s.active, expiry)
	return &SendResult{MessageID: res.MessageID, Provider: s.active, ExpiresIn: expiry}, nil
}

// VerifyOTP checks code against the stored record. When the active provider
// supports server-side verification, the vendor check runs as well and both
// must pass; the local store stays the source of truth for expiry and
// single use.
func (s *Service) VerifyOTP(ctx context.Context, phone, code string) error {
	if !phonePattern.MatchString(phone) {
		return ErrInvalidPhone
	}
	if !codePattern.MatchString(code) {
		return ErrInvalidCode
	}

	messageID, err := s.repo.Verify(ctx, phone, code)
	if err != nil {
		return err
	}

	p, _ := s.registry.Get(s.active)
	if p.Features().ServerSideVerification {
		if err := p.VerifyOTP(ctx, phone, code, messageID); err != nil {
			log.Printf("otp: provider-side verification failed for %s via %s: %v", phone, s.active, err)
			return repository.ErrCodeMismatch
		}
	}
	log.Printf("otp: code verified for %s", phone)
	return nil
}

// Cleanup deletes all expired records.
func (s *Service) Cleanup(ctx context.Context) error {
	return s.repo.CleanupExpired(ctx, "")
}

// ProvidersInfo describes all registered providers.
func (s *Service) ProvidersInfo() []ProviderInfo {
	names := s.registry.Names()
	out := make([]ProviderInfo, 0, len(names))
	for _, name := range names {
		p, _ := s.registry.Get(name)
		out = append(out, ProviderInfo{
			Name:       name,
			Configured: p.IsConfigured(),
			Active:     name == s.active,
			Features:   p.Features(),
		})
	}
	return out
}

// Status returns provider and store diagnostics. Store stats errors are
// reported in-band as a nil Store, not as a failure.
func (s *Service) Status(ctx context.Context) *Status {
	st := &Status{
		ActiveProvider: s.active,
		Providers:      s.ProvidersInfo(),
	}
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		log.Printf("otp: stats unavailable: %v", err)
	} else {
		st.Store = stats
	}
	return st
}

// GenerateCode returns a uniformly random numeric code of exactly length
// digits, zero-padded. Uses crypto/rand with rejection sampling (via big.Int)
// to avoid modulo bias.
func GenerateCode(length int) (string, error) {
	if length < 4 || length > 8 {
		return "", ErrInvalidLength
	}
	max := big.NewInt(1)
	for i := 0; i < length; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", length, n), nil
}

// Package provider defines the OTP delivery provider contract and its
// implementations (mock, twilio, infobip).
package provider

import (
	"context"
	"errors"
)

// Sentinel errors for provider adapters; the OTP service maps them to caller-facing failures.
var (
	// ErrNotConfigured is returned when a provider is invoked without required credentials.
	ErrNotConfigured = errors.New("provider not configured")
	// ErrVerifyUnsupported is returned when VerifyOTP is called on a provider
	// whose Features().ServerSideVerification is false.
	ErrVerifyUnsupported = errors.New("provider does not support server-side verification")
	// ErrVerifyFailed is returned when the vendor rejects the code.
	ErrVerifyFailed = errors.New("provider rejected the code")
)

// Features describes optional provider capabilities.
type Features struct {
	// ServerSideVerification is true when the vendor can verify a code itself
	// (the local store check still runs first and remains the source of truth).
	ServerSideVerification bool `json:"server_side_verification"`
	// DeliveryStatus is true when the vendor reports per-message delivery status.
	DeliveryStatus bool `json:"delivery_status"`
}

// SendResult holds the outcome of a successful send.
type SendResult struct {
	// MessageID is the vendor's opaque message or challenge id; empty when the
	// vendor issues none.
	MessageID string
}

// Provider delivers and optionally verifies OTP codes via one vendor channel.
// Implementations must not log the raw code outside explicit dev channels.
type Provider interface {
	// Name returns the registry key (e.g. "mock", "twilio", "infobip").
	Name() string
	// SendOTP transmits code to phone. Vendors with native OTP semantics may
	// ignore the pre-generated code and start their own challenge; the returned
	// MessageID then identifies that challenge.
	SendOTP(ctx context.Context, phone, code string) (*SendResult, error)
	// VerifyOTP checks code with the vendor. messageID is the id returned by
	// SendOTP. Providers without server-side verification return ErrVerifyUnsupported.
	VerifyOTP(ctx context.Context, phone, code, messageID string) error
	// IsConfigured reports whether all required credentials are present.
	IsConfigured() bool
	// Features reports the provider's capabilities.
	Features() Features
}

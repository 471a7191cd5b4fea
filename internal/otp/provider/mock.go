package provider

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"math/big"
	"regexp"
	"time"
)

var wellFormedCode = regexp.MustCompile(`^\d{4,8}$`)

// Mock is a provider for environments without an SMS budget. It is always
// configured, simulates latency and an optional random send failure, and
// accepts any well-formed code on verify.
type Mock struct {
	// Latency is the simulated send delay.
	Latency time.Duration
	// FailureRate is the probability (0.0-1.0) that a send fails.
	FailureRate float64
}

// NewMock returns a mock provider with the given simulated latency and failure rate.
func NewMock(latency time.Duration, failureRate float64) *Mock {
	return &Mock{Latency: latency, FailureRate: failureRate}
}

// Name returns "mock".
func (m *Mock) Name() string { return "mock" }

// SendOTP simulates delivery. The code is printed to the process log; this is
// the one place a raw code may be logged, and only because the mock provider
// never runs in production.
func (m *Mock) SendOTP(ctx context.Context, phone, code string) (*SendResult, error) {
	if m.Latency > 0 {
		select {
		case <-time.After(m.Latency):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.FailureRate > 0 {
		n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
		if err == nil && float64(n.Int64())/1_000_000 < m.FailureRate {
			return nil, fmt.Errorf("mock: simulated send failure to %s", phone)
		}
	}
	id := make([]byte, 8)
	if _, err := rand.Read(id); err != nil {
		return nil, err
	}
	messageID := "mock_" + hex.EncodeToString(id)
	log.Printf("mock provider: OTP for %s is %s (message %s)", phone, code, messageID)
	return &SendResult{MessageID: messageID}, nil
}

// VerifyOTP accepts any well-formed 4-8 digit code.
func (m *Mock) VerifyOTP(ctx context.Context, phone, code, messageID string) error {
	if !wellFormedCode.MatchString(code) {
		return ErrVerifyFailed
	}
	return nil
}

// IsConfigured always returns true; the mock needs no credentials.
func (m *Mock) IsConfigured() bool { return true }

// Features reports server-side verification support (the permissive mock check).
func (m *Mock) Features() Features {
	return Features{ServerSideVerification: true, DeliveryStatus: false}
}

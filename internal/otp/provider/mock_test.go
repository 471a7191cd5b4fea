package provider

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestMock_SendOTP_ReturnsMockMessageID(t *testing.T) {
	m := NewMock(0, 0)
	res, err := m.SendOTP(context.Background(), "+15551234567", "1234")
	if err != nil {
		t.Fatalf("SendOTP: %v", err)
	}
	if !strings.HasPrefix(res.MessageID, "mock_") {
		t.Errorf("MessageID = %q, want prefix mock_", res.MessageID)
	}
}

func TestMock_SendOTP_SimulatesLatency(t *testing.T) {
	m := NewMock(50*time.Millisecond, 0)
	start := time.Now()
	if _, err := m.SendOTP(context.Background(), "+15551234567", "1234"); err != nil {
		t.Fatalf("SendOTP: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("elapsed = %v, want >= 50ms", elapsed)
	}
}

func TestMock_SendOTP_AlwaysFailsAtFullFailureRate(t *testing.T) {
	m := NewMock(0, 1.0)
	if _, err := m.SendOTP(context.Background(), "+15551234567", "1234"); err == nil {
		t.Fatal("SendOTP should fail with failure rate 1.0")
	}
}

func TestMock_SendOTP_CancelledContext(t *testing.T) {
	m := NewMock(time.Second, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := m.SendOTP(ctx, "+15551234567", "1234"); err == nil {
		t.Fatal("SendOTP should fail when context is cancelled")
	}
}

func TestMock_VerifyOTP_AcceptsWellFormedCode(t *testing.T) {
	m := NewMock(0, 0)
	for _, code := range []string{"1234", "123456", "12345678"} {
		if err := m.VerifyOTP(context.Background(), "+15551234567", code, ""); err != nil {
			t.Errorf("VerifyOTP(%q) = %v, want nil", code, err)
		}
	}
}

func TestMock_VerifyOTP_RejectsMalformedCode(t *testing.T) {
	m := NewMock(0, 0)
	for _, code := range []string{"", "123", "12a4", "123456789"} {
		if err := m.VerifyOTP(context.Background(), "+15551234567", code, ""); err == nil {
			t.Errorf("VerifyOTP(%q) should fail", code)
		}
	}
}

func TestMock_IsConfiguredAndFeatures(t *testing.T) {
	m := NewMock(0, 0)
	if !m.IsConfigured() {
		t.Error("mock should always be configured")
	}
	if !m.Features().ServerSideVerification {
		t.Error("mock should report server-side verification")
	}
	if m.Name() != "mock" {
		t.Errorf("Name = %q, want mock", m.Name())
	}
}

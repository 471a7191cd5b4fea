package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestInfobip_SendOTP_StartsChallengeAndIgnoresLocalCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/2fa/2/pin" {
			t.Errorf("path = %q, want /2fa/2/pin", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "App test-key" {
			t.Errorf("Authorization = %q, want App test-key", r.Header.Get("Authorization"))
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("Decode body: %v", err)
		}
		if body["applicationId"] != "app-1" {
			t.Errorf("applicationId = %q, want app-1", body["applicationId"])
		}
		if body["messageId"] != "tmpl-1" {
			t.Errorf("messageId = %q, want tmpl-1", body["messageId"])
		}
		if body["to"] != "+15551234567" {
			t.Errorf("to = %q, want +15551234567", body["to"])
		}
		if _, ok := body["pin"]; ok {
			t.Error("send request must not carry the locally generated code")
		}
		w.Write([]byte(`{"pinId":"pin-abc","smsStatus":"MESSAGE_SENT"}`))
	}))
	defer server.Close()

	p := NewInfobip("test-key", "app-1", "tmpl-1", server.URL)
	res, err := p.SendOTP(context.Background(), "+15551234567", "999999")
	if err != nil {
		t.Fatalf("SendOTP: %v", err)
	}
	if res.MessageID != "pin-abc" {
		t.Errorf("MessageID = %q, want pin-abc", res.MessageID)
	}
}

func TestInfobip_SendOTP_MissingPinID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	p := NewInfobip("test-key", "app-1", "tmpl-1", server.URL)
	if _, err := p.SendOTP(context.Background(), "+15551234567", "999999"); err == nil {
		t.Fatal("SendOTP should fail when response has no pinId")
	}
}

func TestInfobip_VerifyOTP_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/2fa/2/pin/pin-abc/verify" {
			t.Errorf("path = %q, want /2fa/2/pin/pin-abc/verify", r.URL.Path)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("Decode body: %v", err)
		}
		if body["pin"] != "123456" {
			t.Errorf("pin = %q, want 123456", body["pin"])
		}
		w.Write([]byte(`{"pinId":"pin-abc","verified":true}`))
	}))
	defer server.Close()

	p := NewInfobip("test-key", "app-1", "tmpl-1", server.URL)
	if err := p.VerifyOTP(context.Background(), "+15551234567", "123456", "pin-abc"); err != nil {
		t.Fatalf("VerifyOTP: %v", err)
	}
}

func TestInfobip_VerifyOTP_Rejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"pinId":"pin-abc","verified":false,"attemptsRemaining":2}`))
	}))
	defer server.Close()

	p := NewInfobip("test-key", "app-1", "tmpl-1", server.URL)
	err := p.VerifyOTP(context.Background(), "+15551234567", "000000", "pin-abc")
	if !errors.Is(err, ErrVerifyFailed) {
		t.Errorf("err = %v, want ErrVerifyFailed", err)
	}
}

func TestInfobip_VerifyOTP_MissingPinID(t *testing.T) {
	p := NewInfobip("test-key", "app-1", "tmpl-1", "")
	if err := p.VerifyOTP(context.Background(), "+15551234567", "123456", ""); err == nil {
		t.Fatal("VerifyOTP should fail without a pinId")
	}
}

func TestInfobip_IsConfigured(t *testing.T) {
	testCases := []struct {
		name               string
		key, app, template string
		want               bool
	}{
		{"all set", "k", "a", "m", true},
		{"missing key", "", "a", "m", false},
		{"missing app", "k", "", "m", false},
		{"missing template", "k", "a", "", false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := NewInfobip(tc.key, tc.app, tc.template, "")
			if got := p.IsConfigured(); got != tc.want {
				t.Errorf("IsConfigured = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestInfobip_Features(t *testing.T) {
	p := NewInfobip("k", "a", "m", "")
	f := p.Features()
	if !f.ServerSideVerification {
		t.Error("infobip should report server-side verification")
	}
	if !f.DeliveryStatus {
		t.Error("infobip should report delivery status")
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.Register(NewMock(0, 0))
	r.Register(NewTwilio("sid", "token", "+1555", ""))

	if _, ok := r.Get("mock"); !ok {
		t.Error("mock should be registered")
	}
	if _, ok := r.Get("twilio"); !ok {
		t.Error("twilio should be registered")
	}
	if _, ok := r.Get("infobip"); ok {
		t.Error("infobip should not be registered")
	}
	names := r.Names()
	if len(names) != 2 || names[0] != "mock" || names[1] != "twilio" {
		t.Errorf("Names = %v, want [mock twilio]", names)
	}
}

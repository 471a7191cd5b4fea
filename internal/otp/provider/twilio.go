package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const twilioDefaultBaseURL = "https://api.twilio.com"

// Twilio sends OTP codes as plain SMS via the Twilio Messages API.
// Twilio has no native OTP semantics here, so verification always delegates
// to the local store: VerifyOTP fails loudly if invoked.
type Twilio struct {
	AccountSID string
	AuthToken  string
	FromNumber string
	BaseURL    string
	HTTPClient *http.Client
}

// NewTwilio returns a Twilio direct-SMS provider. baseURL is optional and
// overrides the API host (tests).
func NewTwilio(accountSID, authToken, fromNumber, baseURL string) *Twilio {
	if baseURL == "" {
		baseURL = twilioDefaultBaseURL
	}
	return &Twilio{
		AccountSID: accountSID,
		AuthToken:  authToken,
		FromNumber: fromNumber,
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: defaultTimeout},
	}
}

// Name returns "twilio".
func (t *Twilio) Name() string { return "twilio" }

// SendOTP sends the code to phone as an SMS body. Does not log the code.
func (t *Twilio) SendOTP(ctx context.Context, phone, code string) (*SendResult, error) {
	if !t.IsConfigured() {
		return nil, ErrNotConfigured
	}
	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", t.BaseURL, t.AccountSID)
	form := url.Values{}
	form.Set("To", phone)
	form.Set("From", t.FromNumber)
	form.Set("Body", fmt.Sprintf("Your NoteVault verification code is %s", code))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(t.AccountSID, t.AuthToken)

	resp, err := t.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("twilio: request failed status=%d body=%s", resp.StatusCode, string(b))
	}

	var out struct {
		SID string `json:"sid"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("twilio: decode response: %w", err)
	}
	return &SendResult{MessageID: out.SID}, nil
}

// VerifyOTP always fails: Twilio direct SMS cannot verify codes server-side.
func (t *Twilio) VerifyOTP(ctx context.Context, phone, code, messageID string) error {
	return ErrVerifyUnsupported
}

// IsConfigured reports whether account SID, auth token, and sender number are all set.
func (t *Twilio) IsConfigured() bool {
	return t.AccountSID != "" && t.AuthToken != "" && t.FromNumber != ""
}

// Features reports delivery-status support only.
func (t *Twilio) Features() Features {
	return Features{ServerSideVerification: false, DeliveryStatus: true}
}

const defaultTimeout = 15 * time.Second

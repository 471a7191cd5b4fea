package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const infobipDefaultBaseURL = "https://api.infobip.com"

// Infobip delivers OTPs via the Infobip 2FA API. The vendor generates and
// verifies its own code against a message-template id, so SendOTP ignores the
// locally generated code and starts a vendor-side challenge; the returned
// pinId is the message id the verify call needs.
type Infobip struct {
	APIKey     string
	AppID      string
	MessageID  string
	BaseURL    string
	HTTPClient *http.Client
}

// NewInfobip returns an Infobip 2FA provider. baseURL is optional and
// overrides the API host (tests).
func NewInfobip(apiKey, appID, messageID, baseURL string) *Infobip {
	if baseURL == "" {
		baseURL = infobipDefaultBaseURL
	}
	return &Infobip{
		APIKey:     apiKey,
		AppID:      appID,
		MessageID:  messageID,
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: defaultTimeout},
	}
}

// Name returns "infobip".
func (i *Infobip) Name() string { return "infobip" }

// SendOTP starts a vendor-side 2FA challenge for phone. The code argument is
// ignored: Infobip generates its own pin from the configured message template.
func (i *Infobip) SendOTP(ctx context.Context, phone, code string) (*SendResult, error) {
	if !i.IsConfigured() {
		return nil, ErrNotConfigured
	}
	body := map[string]string{
		"applicationId": i.AppID,
		"messageId":     i.MessageID,
		"to":            phone,
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, i.BaseURL+"/2fa/2/pin", bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "App "+i.APIKey)

	resp, err := i.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("infobip: request failed status=%d body=%s", resp.StatusCode, string(b))
	}

	var out struct {
		PinID string `json:"pinId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("infobip: decode response: %w", err)
	}
	if out.PinID == "" {
		return nil, fmt.Errorf("infobip: response missing pinId")
	}
	return &SendResult{MessageID: out.PinID}, nil
}

// VerifyOTP checks the pin against the challenge identified by messageID (the pinId).
func (i *Infobip) VerifyOTP(ctx context.Context, phone, code, messageID string) error {
	if !i.IsConfigured() {
		return ErrNotConfigured
	}
	if messageID == "" {
		return fmt.Errorf("infobip: missing pinId for verification")
	}
	raw, err := json.Marshal(map[string]string{"pin": code})
	if err != nil {
		return err
	}
	endpoint := fmt.Sprintf("%s/2fa/2/pin/%s/verify", i.BaseURL, messageID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "App "+i.APIKey)

	resp, err := i.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("infobip: verify failed status=%d body=%s", resp.StatusCode, string(b))
	}

	var out struct {
		Verified bool `json:"verified"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("infobip: decode response: %w", err)
	}
	if !out.Verified {
		return ErrVerifyFailed
	}
	return nil
}

// IsConfigured reports whether API key, application id, and message template id are all set.
func (i *Infobip) IsConfigured() bool {
	return i.APIKey != "" && i.AppID != "" && i.MessageID != ""
}

// Features reports vendor-side verification support.
func (i *Infobip) Features() Features {
	return Features{ServerSideVerification: true, DeliveryStatus: true}
}

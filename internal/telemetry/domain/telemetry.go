package domain

import "time"

// Event types emitted by the auth flows.
const (
	EventOTPSent          = "otp.sent"
	EventOTPVerified      = "otp.verified"
	EventOTPRejected      = "otp.rejected"
	EventSessionCreated   = "session.created"
	EventSessionRevoked   = "session.revoked"
	EventRefreshRotated   = "refresh.rotated"
	EventTokenBlacklisted = "token.blacklisted"
)

// Event represents one auth telemetry event.
type Event struct {
	EventType string
	UserID    string
	SessionID string
	Phone     string
	Provider  string
	Source    string
	Metadata  []byte // JSON
	CreatedAt time.Time
}

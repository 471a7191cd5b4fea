package domain

import "time"

// Record represents one outstanding verification code for a phone number
// (stored in the otp_codes table). At most one unverified, unexpired record
// exists per phone.
type Record struct {
	Phone     string
	Code      string
	MessageID string // provider message/challenge id; empty when the provider has none
	Verified  bool
	Attempts  int
	ExpiresAt time.Time
	CreatedAt time.Time
}

// State is the OTP lifecycle state for a phone number, derived from record
// presence and expiry.
type State string

const (
	// StateNone means no outstanding code exists.
	StateNone State = "none"
	// StateSent means a code was issued and is still verifiable.
	StateSent State = "sent"
	// StateExpired means the outstanding code is past its expiry.
	StateExpired State = "expired"
)

// StateOf derives the lifecycle state of a record at the given time.
// A nil record means StateNone.
func StateOf(r *Record, now time.Time) State {
	if r == nil || r.Verified {
		return StateNone
	}
	if now.After(r.ExpiresAt) {
		return StateExpired
	}
	return StateSent
}

// Expired reports whether the record is past its expiry at the given time.
func (r *Record) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

package repository

import (
	"context"
	"errors"
	"time"
)

// DefaultTTL is the default OTP code expiry.
const DefaultTTL = 10 * time.Minute

// MaxAttempts is the number of wrong codes tolerated before the record is
// discarded and the caller must request a new code.
const MaxAttempts = 5

// Sentinel errors for OTP verification outcomes.
var (
	// ErrNoValidOTP is returned when no unverified record exists for the phone.
	ErrNoValidOTP = errors.New("no valid OTP found")
	// ErrOTPExpired is returned when the record is past its expiry; the record is deleted.
	ErrOTPExpired = errors.New("OTP has expired")
	// ErrCodeMismatch is returned on a wrong code; the record is kept so the
	// caller may retry within the TTL, up to MaxAttempts.
	ErrCodeMismatch = errors.New("invalid OTP code")
	// ErrTooManyAttempts is returned when MaxAttempts wrong codes have been
	// tried; the record is deleted and a new code must be requested.
	ErrTooManyAttempts = errors.New("too many failed attempts")
)

// ErrStorage marks persistence failures, as opposed to verification outcomes.
// Callers treat it as fatal for the current operation.
var ErrStorage = errors.New("otp storage unavailable")

// Stats holds diagnostic counts over stored OTP records.
type Stats struct {
	TotalActive  int
	ExpiredCount int
}

// Repository defines persistence for OTP codes. At most one unverified,
// unexpired record exists per phone; Store replaces any prior record.
type Repository interface {
	// Store persists a fresh code for phone with the given TTL, replacing any
	// existing unverified record. messageID may be empty.
	Store(ctx context.Context, phone, code string, ttl time.Duration, messageID string) error
	// Verify checks code against the stored record for phone. On success the
	// record is consumed and its message id returned. Failure is one of the
	// sentinel errors above, or an error wrapping ErrStorage.
	Verify(ctx context.Context, phone, code string) (messageID string, err error)
	// CleanupExpired deletes expired records; phone narrows the sweep to one
	// number, empty means all.
	CleanupExpired(ctx context.Context, phone string) error
	// Stats returns diagnostic counts.
	Stats(ctx context.Context) (*Stats, error)
}

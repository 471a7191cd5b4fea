package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"notevault/auth-service/internal/otp/domain"
)

// PostgresRepository stores OTP codes in the otp_codes table. The phone
// column is the primary key, so the single-active-code invariant holds even
// under concurrent sends: the insert is an upsert, not delete-then-insert.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an OTP repository backed by the given db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Store sweeps expired records, then upserts a fresh code for phone.
func (r *PostgresRepository) Store(ctx context.Context, phone, code string, ttl time.Duration, messageID string) error {
	// Opportunistic sweep so correctness does not depend on a background timer.
	if err := r.CleanupExpired(ctx, ""); err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	const query = `
        INSERT INTO otp_codes (phone, code, message_id, verified, attempts, expires_at, created_at)
        VALUES ($1, $2, $3, FALSE, 0, $4, NOW())
        ON CONFLICT (phone) DO UPDATE SET
            code = EXCLUDED.code,
            message_id = EXCLUDED.message_id,
            verified = FALSE,
            attempts = 0,
            expires_at = EXCLUDED.expires_at,
            created_at = NOW()
    `
	expiresAt := time.Now().UTC().Add(ttl)
	if _, err := r.db.ExecContext(ctx, query, phone, code, nullString(messageID), expiresAt); err != nil {
		return storageErr("failed to store OTP", err)
	}
	return nil
}

// Verify checks code against the stored record for phone and consumes the
// record on success. Expired records are deleted on sight; a mismatch keeps
// the record (bounded by MaxAttempts) so the caller may retry within the TTL.
func (r *PostgresRepository) Verify(ctx context.Context, phone, code string) (string, error) {
	const query = `
        SELECT code, message_id, attempts, expires_at
        FROM otp_codes WHERE phone = $1 AND verified = FALSE
    `
	var (
		rec       domain.Record
		messageID sql.NullString
	)
	rec.Phone = phone
	err := r.db.QueryRowContext(ctx, query, phone).Scan(&rec.Code, &messageID, &rec.Attempts, &rec.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNoValidOTP
		}
		return "", storageErr("failed to get OTP", err)
	}

	if rec.Expired(time.Now().UTC()) {
		if err := r.delete(ctx, phone); err != nil {
			return "", err
		}
		return "", ErrOTPExpired
	}

	// Trimmed-string compare defends against numeric/string type drift in
	// whatever produced the code.
	if strings.TrimSpace(rec.Code) != strings.TrimSpace(code) {
		if rec.Attempts+1 >= MaxAttempts {
			if err := r.delete(ctx, phone); err != nil {
				return "", err
			}
			return "", ErrTooManyAttempts
		}
		const bump = `UPDATE otp_codes SET attempts = attempts + 1 WHERE phone = $1`
		if _, err := r.db.ExecContext(ctx, bump, phone); err != nil {
			return "", storageErr("failed to record attempt", err)
		}
		return "", ErrCodeMismatch
	}

	if err := r.delete(ctx, phone); err != nil {
		return "", err
	}
	if messageID.Valid {
		return messageID.String, nil
	}
	return "", nil
}

// CleanupExpired deletes expired records; phone narrows the sweep, empty means all.
func (r *PostgresRepository) CleanupExpired(ctx context.Context, phone string) error {
	if phone != "" {
		const query = `DELETE FROM otp_codes WHERE phone = $1 AND expires_at < NOW()`
		if _, err := r.db.ExecContext(ctx, query, phone); err != nil {
			return storageErr("failed to cleanup expired OTPs", err)
		}
		return nil
	}
	const query = `DELETE FROM otp_codes WHERE expires_at < NOW()`
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return storageErr("failed to cleanup expired OTPs", err)
	}
	return nil
}

// Stats returns counts of active and expired unverified records.
func (r *PostgresRepository) Stats(ctx context.Context) (*Stats, error) {
	const query = `
        SELECT
            COUNT(*) FILTER (WHERE expires_at >= NOW()),
            COUNT(*) FILTER (WHERE expires_at < NOW())
        FROM otp_codes WHERE verified = FALSE
    `
	var s Stats
	if err := r.db.QueryRowContext(ctx, query).Scan(&s.TotalActive, &s.ExpiredCount); err != nil {
		return nil, storageErr("failed to get OTP stats", err)
	}
	return &s, nil
}

func (r *PostgresRepository) delete(ctx context.Context, phone string) error {
	const query = `DELETE FROM otp_codes WHERE phone = $1`
	if _, err := r.db.ExecContext(ctx, query, phone); err != nil {
		return storageErr("failed to delete OTP", err)
	}
	return nil
}

// storageErr tags a database failure with ErrStorage while keeping the
// original error in the chain.
func storageErr(msg string, err error) error {
	return fmt.Errorf("%s: %w", msg, errors.Join(ErrStorage, err))
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

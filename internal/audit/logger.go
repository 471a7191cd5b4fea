// Package audit records auth events (OTP sends, verifications, session
// changes) for later inspection.
package audit

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"notevault/auth-service/internal/audit/domain"
	auditrepo "notevault/auth-service/internal/audit/repository"
)

type ctxKey int

const clientIPKey ctxKey = 0

// WithClientIP returns a context carrying the client IP for audit entries.
// The HTTP middleware sets it; LogEvent reads it back.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey, ip)
}

// ClientIP returns the client IP from ctx, or "unknown".
func ClientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(clientIPKey).(string); ok && ip != "" {
		return ip
	}
	return "unknown"
}

// AuditLogger records auth events and serves them back per user. LogEvent is
// best-effort: failures are logged and do not affect the caller. UserEvents
// is a real read and does return errors.
type AuditLogger interface {
	LogEvent(ctx context.Context, userID, phone, action, resource, metadata string)
	UserEvents(ctx context.Context, userID string, limit, offset int32) ([]*domain.Entry, error)
}

// Logger implements AuditLogger on top of the audit repository.
type Logger struct {
	repo auditrepo.Repository
}

// NewLogger returns an AuditLogger that persists to repo. repo may be nil;
// then LogEvent is a no-op.
func NewLogger(repo auditrepo.Repository) *Logger {
	return &Logger{repo: repo}
}

// LogEvent writes one audit entry. Best-effort: errors are logged, not returned.
func (l *Logger) LogEvent(ctx context.Context, userID, phone, action, resource, metadata string) {
	if l.repo == nil {
		return
	}
	entry := &domain.Entry{
		ID:        uuid.New().String(),
		UserID:    userID,
		Phone:     phone,
		Action:    action,
		Resource:  resource,
		IP:        ClientIP(ctx),
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}
	if err := l.repo.Create(ctx, entry); err != nil {
		log.Printf("audit: failed to log event %s/%s: %v", action, resource, err)
	}
}

// UserEvents returns the user's audit entries, newest first. Without a
// repository there is nothing recorded, so the result is empty.
func (l *Logger) UserEvents(ctx context.Context, userID string, limit, offset int32) ([]*domain.Entry, error) {
	if l.repo == nil {
		return nil, nil
	}
	return l.repo.ListByUser(ctx, userID, limit, offset)
}

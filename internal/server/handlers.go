package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"notevault/auth-service/internal/audit"
	auditdomain "notevault/auth-service/internal/audit/domain"
	"notevault/auth-service/internal/otp"
	"notevault/auth-service/internal/otp/repository"
	"notevault/auth-service/internal/security"
	"notevault/auth-service/internal/session"
	"notevault/auth-service/internal/telemetry"
	telemetrydomain "notevault/auth-service/internal/telemetry/domain"
)

// Handlers carries the service dependencies for all HTTP endpoints.
type Handlers struct {
	otp      *otp.Service
	sessions *session.Manager
	tokens   *security.TokenProvider
	audit    audit.AuditLogger
	emitter  telemetry.EventEmitter
}

// NewHandlers returns route handlers over deps. A nil audit logger or
// emitter disables that concern.
func NewHandlers(deps Deps) *Handlers {
	auditLogger := deps.Audit
	if auditLogger == nil {
		auditLogger = audit.NewLogger(nil)
	}
	return &Handlers{
		otp:      deps.OTP,
		sessions: deps.Sessions,
		tokens:   deps.Tokens,
		audit:    auditLogger,
		emitter:  deps.Emitter,
	}
}

// userIDNamespace scopes the deterministic phone -> user ID derivation.
var userIDNamespace = uuid.MustParse("8b1fd109-7a1e-4e5b-9fcd-2f4c60a8b3a1")

// userIDForPhone derives a stable user ID from the phone number. The same
// phone always maps to the same user across restarts.
func userIDForPhone(phone string) string {
	return uuid.NewSHA1(userIDNamespace, []byte(phone)).String()
}

type sendOTPRequest struct {
	Phone         string `json:"phone" binding:"required"`
	Length        int    `json:"length"`
	ExpirySeconds int    `json:"expiry_seconds"`
}

type verifyOTPRequest struct {
	Phone string `json:"phone" binding:"required"`
	Code  string `json:"code" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type tokenResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresAt    time.Time `json:"expires_at"`
	SessionID    string    `json:"session_id"`
	UserID       string    `json:"user_id"`
}

// SendOTP generates and delivers a verification code.
func (h *Handlers) SendOTP(c *gin.Context) {
	var req sendOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload", "details": err.Error()})
		return
	}
	ctx := c.Request.Context()
	res, err := h.otp.SendOTP(ctx, req.Phone, otp.SendOptions{
		Length: req.Length,
		Expiry: time.Duration(req.ExpirySeconds) * time.Second,
	})
	if err != nil {
		if isValidationError(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		log.Printf("server: send OTP to %s failed: %v", req.Phone, err)
		// Persistence trouble is ours; a 502 is reserved for the SMS vendor.
		if errors.Is(err, repository.ErrStorage) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to send verification code"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to send verification code"})
		return
	}

	ar := audit.ParseRoute(c.Request.Method, c.FullPath())
	h.audit.LogEvent(ctx, "", req.Phone, ar.Action, ar.Resource, metadataJSON(gin.H{"provider": res.Provider}))
	telemetry.EmitAsync(h.emitter, ctx, &telemetrydomain.Event{
		EventType: telemetrydomain.EventOTPSent,
		Phone:     req.Phone,
		Provider:  res.Provider,
		Source:    "auth-service",
		CreatedAt: time.Now().UTC(),
	})

	c.JSON(http.StatusOK, gin.H{
		"message_id": res.MessageID,
		"provider":   res.Provider,
		"expires_in": int(res.ExpiresIn.Seconds()),
	})
}

// VerifyOTP checks the code; on success it opens a session and mints an
// access/refresh token pair.
func (h *Handlers) VerifyOTP(c *gin.Context) {
	var req verifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload", "details": err.Error()})
		return
	}
	ctx := c.Request.Context()
	if err := h.otp.VerifyOTP(ctx, req.Phone, req.Code); err != nil {
		h.rejectVerify(c, req.Phone, err)
		return
	}

	userID := userIDForPhone(req.Phone)
	sess, err := h.sessions.CreateSession(ctx, userID, c.ClientIP(), c.GetHeader("User-Agent"))
	if err != nil {
		log.Printf("server: create session for %s failed: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
		return
	}
	resp, err := h.mintTokens(c, sess.ID, userID, req.Phone)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue tokens"})
		return
	}

	ar := audit.ParseRoute(c.Request.Method, c.FullPath())
	h.audit.LogEvent(ctx, userID, req.Phone, ar.Action, ar.Resource, metadataJSON(gin.H{"session_id": sess.ID}))
	telemetry.EmitAsync(h.emitter, ctx, &telemetrydomain.Event{
		EventType: telemetrydomain.EventOTPVerified,
		UserID:    userID,
		Phone:     req.Phone,
		Source:    "auth-service",
		CreatedAt: time.Now().UTC(),
	})
	telemetry.EmitAsync(h.emitter, ctx, &telemetrydomain.Event{
		EventType: telemetrydomain.EventSessionCreated,
		UserID:    userID,
		SessionID: sess.ID,
		Phone:     req.Phone,
		Source:    "auth-service",
		CreatedAt: time.Now().UTC(),
	})

	c.JSON(http.StatusOK, resp)
}

func (h *Handlers) rejectVerify(c *gin.Context, phone string, err error) {
	ctx := c.Request.Context()
	status := http.StatusUnauthorized
	switch {
	case isValidationError(err):
		status = http.StatusBadRequest
	case errors.Is(err, repository.ErrTooManyAttempts):
		status = http.StatusTooManyRequests
	case errors.Is(err, repository.ErrNoValidOTP),
		errors.Is(err, repository.ErrOTPExpired),
		errors.Is(err, repository.ErrCodeMismatch):
		status = http.StatusUnauthorized
	default:
		log.Printf("server: verify OTP for %s failed: %v", phone, err)
		status = http.StatusInternalServerError
		c.JSON(status, gin.H{"error": "failed to verify code"})
		return
	}
	if status != http.StatusBadRequest {
		h.audit.LogEvent(ctx, "", phone, "otp_verify_failed", "otp", metadataJSON(gin.H{"reason": err.Error()}))
		telemetry.EmitAsync(h.emitter, ctx, &telemetrydomain.Event{
			EventType: telemetrydomain.EventOTPRejected,
			Phone:     phone,
			Source:    "auth-service",
			CreatedAt: time.Now().UTC(),
		})
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// mintTokens issues a new access/refresh pair for the session and registers
// the refresh token (by hash) with the session manager.
func (h *Handlers) mintTokens(c *gin.Context, sessionID, userID, phone string) (*tokenResponse, error) {
	access, _, accessExp, err := h.tokens.IssueAccess(sessionID, userID, phone)
	if err != nil {
		return nil, fmt.Errorf("issue access: %w", err)
	}
	refresh, _, _, err := h.tokens.IssueRefresh(sessionID, userID, phone)
	if err != nil {
		return nil, fmt.Errorf("issue refresh: %w", err)
	}
	h.sessions.StoreRefreshToken(c.Request.Context(), security.HashToken(refresh), sessionID, h.tokens.RefreshTTL())
	return &tokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresAt:    accessExp,
		SessionID:    sessionID,
		UserID:       userID,
	}, nil
}

// Refresh rotates the refresh token: the presented token is revoked and a
// fresh pair is issued. A structurally valid token that the manager no
// longer knows is treated as reuse and kills the session.
func (h *Handlers) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload", "details": err.Error()})
		return
	}
	ctx := c.Request.Context()
	claims, err := h.tokens.ValidateRefresh(req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired refresh token"})
		return
	}
	if h.sessions.IsTokenBlacklisted(ctx, claims.ID) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "token has been revoked"})
		return
	}

	hash := security.HashToken(req.RefreshToken)
	sessionID, err := h.sessions.ValidateRefreshToken(ctx, hash)
	if err != nil {
		if errors.Is(err, session.ErrRefreshTokenInvalid) {
			// The JWT checks out but the manager does not know it: either it
			// was already rotated (replay) or state was lost. Kill the session.
			_ = h.sessions.InvalidateSession(ctx, claims.SessionID)
			h.audit.LogEvent(ctx, claims.Subject, "", "refresh_reuse", "session", metadataJSON(gin.H{"session_id": claims.SessionID}))
			log.Printf("server: refresh token reuse detected for session %s", claims.SessionID)
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired refresh token"})
		return
	}
	if sessionID != claims.SessionID {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired refresh token"})
		return
	}

	h.sessions.RevokeRefreshToken(ctx, hash)
	sess, err := h.sessions.GetSession(ctx, sessionID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "session is no longer active"})
		return
	}
	resp, err := h.mintTokens(c, sessionID, sess.UserID, claims.Phone)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue tokens"})
		return
	}

	ar := audit.ParseRoute(c.Request.Method, c.FullPath())
	h.audit.LogEvent(ctx, sess.UserID, "", ar.Action, ar.Resource, metadataJSON(gin.H{"session_id": sessionID}))
	telemetry.EmitAsync(h.emitter, ctx, &telemetrydomain.Event{
		EventType: telemetrydomain.EventRefreshRotated,
		UserID:    sess.UserID,
		SessionID: sessionID,
		Source:    "auth-service",
		CreatedAt: time.Now().UTC(),
	})

	c.JSON(http.StatusOK, resp)
}

// Logout revokes the caller's access token and session. Best-effort: a
// missing or invalid token still yields 200 so clients can always clear
// local state.
func (h *Handlers) Logout(c *gin.Context) {
	ctx := c.Request.Context()
	if token, ok := bearerToken(c); ok {
		if claims, err := h.tokens.ValidateAccess(token); err == nil {
			ttl := time.Until(claims.ExpiresAt.Time)
			h.sessions.BlacklistToken(ctx, claims.ID, ttl)
			_ = h.sessions.InvalidateSession(ctx, claims.SessionID)
			telemetry.EmitAsync(h.emitter, ctx, &telemetrydomain.Event{
				EventType: telemetrydomain.EventTokenBlacklisted,
				UserID:    claims.Subject,
				SessionID: claims.SessionID,
				Source:    "auth-service",
				CreatedAt: time.Now().UTC(),
			})

			ar := audit.ParseRoute(c.Request.Method, c.FullPath())
			h.audit.LogEvent(ctx, claims.Subject, claims.Phone, ar.Action, ar.Resource, metadataJSON(gin.H{"session_id": claims.SessionID}))
			telemetry.EmitAsync(h.emitter, ctx, &telemetrydomain.Event{
				EventType: telemetrydomain.EventSessionRevoked,
				UserID:    claims.Subject,
				SessionID: claims.SessionID,
				Source:    "auth-service",
				CreatedAt: time.Now().UTC(),
			})
		}
	}

	// An optional refresh token in the body is revoked as well.
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.ShouldBindJSON(&req); err == nil && req.RefreshToken != "" {
		if claims, err := h.tokens.ValidateRefresh(req.RefreshToken); err == nil {
			h.sessions.RevokeRefreshToken(ctx, security.HashToken(req.RefreshToken))
			h.sessions.BlacklistToken(ctx, claims.ID, time.Until(claims.ExpiresAt.Time))
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// ListSessions returns the caller's active sessions.
func (h *Handlers) ListSessions(c *gin.Context) {
	userID := c.GetString(ctxKeyUserID)
	sessions := h.sessions.ListUserSessions(c.Request.Context(), userID)
	c.JSON(http.StatusOK, gin.H{"sessions": sessions, "total": len(sessions)})
}

// ListAuditEvents returns the caller's recent auth activity, newest first.
// limit and offset query parameters page through the history.
func (h *Handlers) ListAuditEvents(c *gin.Context) {
	userID := c.GetString(ctxKeyUserID)
	limit := queryInt(c, "limit", 20, 1, 100)
	offset := queryInt(c, "offset", 0, 0, 1<<30)

	events, err := h.audit.UserEvents(c.Request.Context(), userID, limit, offset)
	if err != nil {
		log.Printf("server: list audit events for %s failed: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load audit events"})
		return
	}
	if events == nil {
		events = []*auditdomain.Entry{}
	}
	c.JSON(http.StatusOK, gin.H{"events": events, "total": len(events)})
}

// queryInt parses an integer query parameter, clamping to [min, max].
func queryInt(c *gin.Context, name string, def, min, max int32) int32 {
	raw := c.Query(name)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return def
	}
	n := int32(v)
	if n < min {
		return min
	}
	if n > max {
		return max
	}
	return n
}

// RevokeSession invalidates one of the caller's sessions by ID. Sessions
// belonging to other users are reported as not found.
func (h *Handlers) RevokeSession(c *gin.Context) {
	ctx := c.Request.Context()
	userID := c.GetString(ctxKeyUserID)
	id := c.Param("id")

	sess, err := h.sessions.GetSession(ctx, id)
	if err != nil || sess.UserID != userID {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	// Refresh tokens bound to the session die with it: validation requires
	// an active session.
	_ = h.sessions.InvalidateSession(ctx, id)

	ar := audit.ParseRoute(c.Request.Method, c.FullPath())
	h.audit.LogEvent(ctx, userID, "", ar.Action, ar.Resource, metadataJSON(gin.H{"session_id": id}))
	telemetry.EmitAsync(h.emitter, ctx, &telemetrydomain.Event{
		EventType: telemetrydomain.EventSessionRevoked,
		UserID:    userID,
		SessionID: id,
		Source:    "auth-service",
		CreatedAt: time.Now().UTC(),
	})

	c.JSON(http.StatusOK, gin.H{"message": "session revoked"})
}

// RevokeOtherSessions invalidates all of the caller's sessions except the
// current one.
func (h *Handlers) RevokeOtherSessions(c *gin.Context) {
	ctx := c.Request.Context()
	userID := c.GetString(ctxKeyUserID)
	current := c.GetString(ctxKeySessionID)

	n := h.sessions.InvalidateUserSessions(ctx, userID, current)

	ar := audit.ParseRoute(c.Request.Method, c.FullPath())
	h.audit.LogEvent(ctx, userID, "", ar.Action, ar.Resource, metadataJSON(gin.H{"invalidated": n}))
	c.JSON(http.StatusOK, gin.H{"invalidated": n})
}

// Stats reports provider, store, and session diagnostics.
func (h *Handlers) Stats(c *gin.Context) {
	ctx := c.Request.Context()
	c.JSON(http.StatusOK, gin.H{
		"otp":      h.otp.Status(ctx),
		"sessions": h.sessions.Stats(ctx),
	})
}

// Health is the liveness endpoint.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func isValidationError(err error) bool {
	return errors.Is(err, otp.ErrInvalidPhone) ||
		errors.Is(err, otp.ErrInvalidCode) ||
		errors.Is(err, otp.ErrInvalidLength)
}

func metadataJSON(fields gin.H) string {
	b, err := json.Marshal(fields)
	if err != nil {
		return ""
	}
	return string(b)
}

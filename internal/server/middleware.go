package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"notevault/auth-service/internal/audit"
	"notevault/auth-service/internal/security"
	"notevault/auth-service/internal/session"
)

// Context keys set by the middleware for downstream handlers.
const (
	ctxKeyClaims    = "auth.claims"
	ctxKeyUserID    = "auth.user_id"
	ctxKeySessionID = "auth.session_id"
)

// ClientContext stores the client IP on the request context so audit entries
// written deeper in the stack can pick it up.
func ClientContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := audit.WithClientIP(c.Request.Context(), c.ClientIP())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// bearerToken extracts the token from an Authorization: Bearer header.
func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// RequireAuth validates the Bearer access token, rejects blacklisted tokens,
// and confirms the session is still active (bumping its activity timestamp).
func RequireAuth(tokens *security.TokenProvider, sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization header format must be Bearer {token}"})
			return
		}
		claims, err := tokens.ValidateAccess(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired access token"})
			return
		}
		if sessions.IsTokenBlacklisted(c.Request.Context(), claims.ID) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token has been revoked"})
			return
		}
		if err := sessions.TouchSession(c.Request.Context(), claims.SessionID); err != nil {
			if errors.Is(err, session.ErrSessionNotFound) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session is no longer active"})
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to check session"})
			return
		}
		c.Set(ctxKeyClaims, claims)
		c.Set(ctxKeyUserID, claims.Subject)
		c.Set(ctxKeySessionID, claims.SessionID)
		c.Next()
	}
}

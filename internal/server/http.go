// Package server assembles the HTTP API: routes, middleware, and the
// dependency wiring between handlers and the underlying services.
package server

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"notevault/auth-service/internal/audit"
	"notevault/auth-service/internal/otp"
	"notevault/auth-service/internal/security"
	"notevault/auth-service/internal/session"
	"notevault/auth-service/internal/telemetry"
)

// Deps holds the service dependencies for HTTP handlers.
type Deps struct {
	// OTP is the OTP send/verify service. Required.
	OTP *otp.Service
	// Sessions is the in-memory session manager. Required.
	Sessions *session.Manager
	// Tokens issues and validates JWTs. Required.
	Tokens *security.TokenProvider
	// Audit records auth events. If nil, nothing is audited.
	Audit audit.AuditLogger
	// Emitter emits telemetry events. If nil, nothing is emitted.
	Emitter telemetry.EventEmitter
	// ServiceName labels traces; defaults to "notevault-auth" when empty.
	ServiceName string
}

// NewRouter returns the configured gin engine.
//
// Route → handler mapping:
//   - POST   /v1/auth/otp/send      → SendOTP
//   - POST   /v1/auth/otp/verify    → VerifyOTP (creates session, mints tokens)
//   - POST   /v1/auth/refresh       → Refresh (rotates the refresh token)
//   - POST   /v1/auth/logout        → Logout (best-effort, always 200)
//   - GET    /v1/auth/sessions      → ListSessions (auth)
//   - DELETE /v1/auth/sessions/:id  → RevokeSession (auth)
//   - DELETE /v1/auth/sessions      → RevokeOtherSessions (auth)
//   - GET    /v1/auth/audit         → ListAuditEvents (auth)
//   - GET    /v1/auth/stats         → Stats
//   - GET    /healthz               → Health
func NewRouter(deps Deps) *gin.Engine {
	serviceName := deps.ServiceName
	if serviceName == "" {
		serviceName = "notevault-auth"
	}

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(otelgin.Middleware(serviceName))
	r.Use(ClientContext())

	h := NewHandlers(deps)

	r.GET("/healthz", h.Health)

	v1 := r.Group("/v1/auth")
	{
		v1.POST("/otp/send", h.SendOTP)
		v1.POST("/otp/verify", h.VerifyOTP)
		v1.POST("/refresh", h.Refresh)
		v1.POST("/logout", h.Logout)
		v1.GET("/stats", h.Stats)

		authed := v1.Group("", RequireAuth(deps.Tokens, deps.Sessions))
		{
			authed.GET("/sessions", h.ListSessions)
			authed.DELETE("/sessions/:id", h.RevokeSession)
			authed.DELETE("/sessions", h.RevokeOtherSessions)
			authed.GET("/audit", h.ListAuditEvents)
		}
	}
	return r
}

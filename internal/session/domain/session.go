package domain

import "time"

// Session represents one authenticated device session for a user.
type Session struct {
	ID            string     `json:"id"`
	UserID        string     `json:"user_id"`
	CreatedAt     time.Time  `json:"created_at"`
	LastActivity  time.Time  `json:"last_activity"`
	IPAddress     string     `json:"ip_address,omitempty"`
	UserAgent     string     `json:"user_agent,omitempty"`
	IsActive      bool       `json:"is_active"`
	InvalidatedAt *time.Time `json:"invalidated_at,omitempty"` // nil while active
}

// RefreshToken tracks an issued refresh token for rotation. The token value
// itself is the map key in the manager; only bookkeeping lives here.
type RefreshToken struct {
	SessionID string
	ExpiresAt time.Time
	CreatedAt time.Time
}

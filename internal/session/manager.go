// Package session provides an in-memory manager for user sessions, refresh
// token rotation, and a token blacklist. State lives in process memory and
// does not survive restarts.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"notevault/auth-service/internal/session/domain"
)

// Sentinel errors for session and refresh token operations.
var (
	ErrSessionNotFound     = errors.New("session not found")
	ErrSessionInactive     = errors.New("session is no longer active")
	ErrRefreshTokenInvalid = errors.New("invalid or expired refresh token")
)

// DefaultMaxAge is the idle lifetime of a session when none is configured.
const DefaultMaxAge = 30 * 24 * time.Hour

// Stats holds diagnostic counts over manager state.
type Stats struct {
	ActiveSessions    int `json:"active_sessions"`
	UsersWithSessions int `json:"users_with_sessions"`
	RefreshTokens     int `json:"refresh_tokens"`
	BlacklistedTokens int `json:"blacklisted_tokens"`
}

// Manager tracks sessions, refresh tokens, and blacklisted token IDs.
// All maps are guarded by a single mutex; reads take the shared lock.
type Manager struct {
	mu sync.RWMutex
	// userSessions maps a user ID to the set of their active session IDs.
	// Invalidation removes the ID from the set and prunes empty entries, so
	// the index never outgrows the live sessions.
	userSessions  map[string]map[string]struct{}
	sessions      map[string]*domain.Session
	refreshTokens map[string]domain.RefreshToken
	blacklist     map[string]struct{}

	maxAge time.Duration
	nowF   func() time.Time
}

// NewManager returns an empty Manager. maxAge bounds how long an idle
// session stays valid; values <= 0 fall back to DefaultMaxAge.
func NewManager(maxAge time.Duration) *Manager {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &Manager{
		userSessions:  make(map[string]map[string]struct{}),
		sessions:      make(map[string]*domain.Session),
		refreshTokens: make(map[string]domain.RefreshToken),
		blacklist:     make(map[string]struct{}),
		maxAge:        maxAge,
		nowF:          func() time.Time { return time.Now().UTC() },
	}
}

// newSessionID returns a unique session ID. A time prefix keeps IDs roughly
// sortable; the random suffix makes them unguessable.
func newSessionID(now time.Time) (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate session id: %w", err)
	}
	return fmt.Sprintf("sess_%d_%s", now.UnixNano(), hex.EncodeToString(buf)), nil
}

// CreateSession starts a new active session for userID.
func (m *Manager) CreateSession(ctx context.Context, userID, ipAddress, userAgent string) (*domain.Session, error) {
	now := m.nowF()
	id, err := newSessionID(now)
	if err != nil {
		return nil, err
	}
	s := &domain.Session{
		ID:           id,
		UserID:       userID,
		CreatedAt:    now,
		LastActivity: now,
		IPAddress:    ipAddress,
		UserAgent:    userAgent,
		IsActive:     true,
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.userSessions[userID] == nil {
		m.userSessions[userID] = make(map[string]struct{})
	}
	m.userSessions[userID][id] = struct{}{}
	m.sessions[id] = s

	out := *s
	return &out, nil
}

// GetSession returns the session if it exists and is active, bumping its
// last-activity timestamp. Inactive sessions behave as missing.
func (m *Manager) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || !s.IsActive {
		return nil, ErrSessionNotFound
	}
	s.LastActivity = m.nowF()
	out := *s
	return &out, nil
}

// TouchSession bumps the last-activity timestamp without returning the
// session. Missing or inactive sessions return ErrSessionNotFound.
func (m *Manager) TouchSession(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || !s.IsActive {
		return ErrSessionNotFound
	}
	s.LastActivity = m.nowF()
	return nil
}

// UpdateSession records the latest client address and user agent.
func (m *Manager) UpdateSession(ctx context.Context, id, ipAddress, userAgent string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || !s.IsActive {
		return ErrSessionNotFound
	}
	if ipAddress != "" {
		s.IPAddress = ipAddress
	}
	if userAgent != "" {
		s.UserAgent = userAgent
	}
	s.LastActivity = m.nowF()
	return nil
}

// InvalidateSession marks the session inactive and removes it from the
// user's active set, pruning the user entry once empty. Invalidation is
// idempotent; an unknown ID returns ErrSessionNotFound.
func (m *Manager) InvalidateSession(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.invalidateLocked(id)
}

func (m *Manager) invalidateLocked(id string) error {
	s, ok := m.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	if !s.IsActive {
		return nil
	}
	now := m.nowF()
	s.IsActive = false
	s.InvalidatedAt = &now
	m.dropFromUserSetLocked(s.UserID, id)
	return nil
}

func (m *Manager) dropFromUserSetLocked(userID, id string) {
	set, ok := m.userSessions[userID]
	if !ok {
		return
	}
	delete(set, id)
	if len(set) == 0 {
		delete(m.userSessions, userID)
	}
}

// InvalidateUserSessions marks all of a user's sessions inactive, skipping
// exceptID when non-empty, and prunes them from the user's active set.
// Returns how many sessions were invalidated.
func (m *Manager) InvalidateUserSessions(ctx context.Context, userID, exceptID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for id := range m.userSessions[userID] {
		if id == exceptID {
			continue
		}
		if s, ok := m.sessions[id]; ok && s.IsActive {
			now := m.nowF()
			s.IsActive = false
			s.InvalidatedAt = &now
			count++
		}
		delete(m.userSessions[userID], id)
	}
	if len(m.userSessions[userID]) == 0 {
		delete(m.userSessions, userID)
	}
	return count
}

// ListUserSessions returns the user's active sessions, newest first.
func (m *Manager) ListUserSessions(ctx context.Context, userID string) []*domain.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.Session, 0, len(m.userSessions[userID]))
	for id := range m.userSessions[userID] {
		if s, ok := m.sessions[id]; ok && s.IsActive {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// StoreRefreshToken associates token with sessionID until expiry.
func (m *Manager) StoreRefreshToken(ctx context.Context, token, sessionID string, ttl time.Duration) {
	now := m.nowF()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshTokens[token] = domain.RefreshToken{
		SessionID: sessionID,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
}

// ValidateRefreshToken returns the session ID for token if the token is
// unexpired and its session is still active. Expired entries are pruned on
// sight.
func (m *Manager) ValidateRefreshToken(ctx context.Context, token string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rt, ok := m.refreshTokens[token]
	if !ok {
		return "", ErrRefreshTokenInvalid
	}
	if m.nowF().After(rt.ExpiresAt) {
		delete(m.refreshTokens, token)
		return "", ErrRefreshTokenInvalid
	}
	s, ok := m.sessions[rt.SessionID]
	if !ok || !s.IsActive {
		delete(m.refreshTokens, token)
		return "", ErrSessionInactive
	}
	return rt.SessionID, nil
}

// RevokeRefreshToken removes token from the store. Rotation is revoke old,
// store new; a revoked token can never validate again.
func (m *Manager) RevokeRefreshToken(ctx context.Context, token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.refreshTokens, token)
}

// BlacklistToken marks a token ID as revoked until ttl elapses. The entry
// removes itself once the underlying token would have expired anyway; a
// token already past expiry needs no entry at all, so the set only ever
// holds tokens that are still otherwise valid.
func (m *Manager) BlacklistToken(ctx context.Context, jti string, ttl time.Duration) {
	if jti == "" || ttl <= 0 {
		return
	}
	m.mu.Lock()
	m.blacklist[jti] = struct{}{}
	m.mu.Unlock()
	time.AfterFunc(ttl, func() {
		m.mu.Lock()
		delete(m.blacklist, jti)
		m.mu.Unlock()
	})
}

// IsTokenBlacklisted reports whether the token ID has been revoked.
func (m *Manager) IsTokenBlacklisted(ctx context.Context, jti string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.blacklist[jti]
	return ok
}

// Cleanup removes sessions idle past maxAge (and invalidated ones), expired
// refresh tokens, and empty per-user sets. Intended to run periodically.
func (m *Manager) Cleanup(ctx context.Context) (sessions, tokens int) {
	now := m.nowF()
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, s := range m.sessions {
		if s.IsActive && now.Sub(s.LastActivity) <= m.maxAge {
			continue
		}
		delete(m.sessions, id)
		if set, ok := m.userSessions[s.UserID]; ok {
			delete(set, id)
			if len(set) == 0 {
				delete(m.userSessions, s.UserID)
			}
		}
		sessions++
	}
	for token, rt := range m.refreshTokens {
		_, alive := m.sessions[rt.SessionID]
		if now.After(rt.ExpiresAt) || !alive {
			delete(m.refreshTokens, token)
			tokens++
		}
	}
	if sessions > 0 || tokens > 0 {
		log.Printf("session: cleanup removed %d sessions, %d refresh tokens", sessions, tokens)
	}
	return sessions, tokens
}

// Stats returns diagnostic counts.
func (m *Manager) Stats(ctx context.Context) Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	active := 0
	for _, s := range m.sessions {
		if s.IsActive {
			active++
		}
	}
	return Stats{
		ActiveSessions:    active,
		UsersWithSessions: len(m.userSessions),
		RefreshTokens:     len(m.refreshTokens),
		BlacklistedTokens: len(m.blacklist),
	}
}

// Package security issues and validates the service's JWTs and parses the
// signing key material.
package security

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/rsa"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned when a token is malformed, expired, or signed
// for another issuer or audience.
var ErrInvalidToken = errors.New("invalid token")

// AccessClaims holds JWT claims for the short-lived access token. Subject is
// the user ID.
type AccessClaims struct {
	jwt.RegisteredClaims
	SessionID string `json:"session_id"`
	Phone     string `json:"phone,omitempty"`
}

// RefreshClaims holds JWT claims for the refresh token. The jti binds the
// token to one rotation step; the phone rides along so rotated access
// tokens keep the claim.
type RefreshClaims struct {
	jwt.RegisteredClaims
	SessionID string `json:"session_id"`
	Phone     string `json:"phone,omitempty"`
}

// TokenProvider issues and validates JWTs using RS256 or ES256.
type TokenProvider struct {
	privateKey crypto.Signer
	publicKey  crypto.PublicKey
	issuer     string
	audience   string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenProvider returns a TokenProvider that signs with privateKey.
// issuer and audience are stamped on every token and checked on validation.
func NewTokenProvider(privateKey crypto.Signer, publicKey crypto.PublicKey, issuer, audience string, accessTTL, refreshTTL time.Duration) *TokenProvider {
	return &TokenProvider{
		privateKey: privateKey,
		publicKey:  publicKey,
		issuer:     issuer,
		audience:   audience,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// AccessTTL returns the configured access token lifetime.
func (p *TokenProvider) AccessTTL() time.Duration { return p.accessTTL }

// RefreshTTL returns the configured refresh token lifetime.
func (p *TokenProvider) RefreshTTL() time.Duration { return p.refreshTTL }

// IssueAccess issues an access JWT for the session. Returns the token, its
// jti, and expiry.
func (p *TokenProvider) IssueAccess(sessionID, userID, phone string) (token, jti string, expiresAt time.Time, err error) {
	jti, err = generateJTI()
	if err != nil {
		return "", "", time.Time{}, err
	}
	now := time.Now().UTC()
	expiresAt = now.Add(p.accessTTL)
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   userID,
			Issuer:    p.issuer,
			Audience:  jwt.ClaimStrings{p.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		SessionID: sessionID,
		Phone:     phone,
	}
	token, err = p.sign(claims)
	return token, jti, expiresAt, err
}

// IssueRefresh issues a refresh JWT bound to the session. The jti changes on
// every rotation; the caller tracks the token in the session manager.
func (p *TokenProvider) IssueRefresh(sessionID, userID, phone string) (token, jti string, expiresAt time.Time, err error) {
	jti, err = generateJTI()
	if err != nil {
		return "", "", time.Time{}, err
	}
	now := time.Now().UTC()
	expiresAt = now.Add(p.refreshTTL)
	claims := RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   userID,
			Issuer:    p.issuer,
			Audience:  jwt.ClaimStrings{p.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		SessionID: sessionID,
		Phone:     phone,
	}
	token, err = p.sign(claims)
	return token, jti, expiresAt, err
}

func (p *TokenProvider) sign(claims jwt.Claims) (string, error) {
	var method jwt.SigningMethod
	switch p.privateKey.Public().(type) {
	case *rsa.PublicKey:
		method = jwt.SigningMethodRS256
	case *ecdsa.PublicKey:
		method = jwt.SigningMethodES256
	default:
		return "", ErrInvalidToken
	}
	t := jwt.NewWithClaims(method, claims)
	return t.SignedString(p.privateKey)
}

func (p *TokenProvider) keyFunc(token *jwt.Token) (interface{}, error) {
	switch token.Method.(type) {
	case *jwt.SigningMethodRSA, *jwt.SigningMethodECDSA:
		return p.publicKey, nil
	default:
		return nil, ErrInvalidToken
	}
}

// ValidateAccess parses and validates an access token: signature, expiry,
// issuer, and audience.
func (p *TokenProvider) ValidateAccess(tokenString string) (*AccessClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, p.keyFunc,
		jwt.WithIssuer(p.issuer), jwt.WithAudience(p.audience))
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*AccessClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ValidateRefresh parses and validates a refresh token: signature, expiry,
// issuer, and audience.
func (p *TokenProvider) ValidateRefresh(tokenString string) (*RefreshClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &RefreshClaims{}, p.keyFunc,
		jwt.WithIssuer(p.issuer), jwt.WithAudience(p.audience))
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*RefreshClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func generateJTI() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

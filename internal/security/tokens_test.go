package security

import (
	"errors"
	"testing"
	"time"
)

func TestTokenProvider_IssueAccessAndRefresh(t *testing.T) {
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	sessionID, userID, phone := "sess_1", "u1", "+15551234567"

	access, accessJti, exp, err := p.IssueAccess(sessionID, userID, phone)
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if access == "" || accessJti == "" {
		t.Fatal("access token or jti empty")
	}
	if exp.Before(time.Now()) {
		t.Fatal("access expiry in the past")
	}

	refresh, jti, refreshExp, err := p.IssueRefresh(sessionID, userID, phone)
	if err != nil {
		t.Fatalf("IssueRefresh: %v", err)
	}
	if refresh == "" || jti == "" {
		t.Fatal("refresh token or jti empty")
	}
	if refreshExp.Before(exp) {
		t.Fatal("refresh should outlive access")
	}

	claims, err := p.ValidateRefresh(refresh)
	if err != nil {
		t.Fatalf("ValidateRefresh: %v", err)
	}
	if claims.SessionID != sessionID || claims.ID != jti || claims.Subject != userID {
		t.Errorf("ValidateRefresh claims = %+v", claims)
	}
	if claims.Phone != phone {
		t.Errorf("refresh Phone = %q, want %q", claims.Phone, phone)
	}
}

func TestTokenProvider_ValidateAccess(t *testing.T) {
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	access, jti, _, err := p.IssueAccess("sess_1", "u1", "+15551234567")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	claims, err := p.ValidateAccess(access)
	if err != nil {
		t.Fatalf("ValidateAccess: %v", err)
	}
	if claims.SessionID != "sess_1" || claims.Subject != "u1" || claims.Phone != "+15551234567" || claims.ID != jti {
		t.Errorf("ValidateAccess claims = %+v", claims)
	}
}

func TestTokenProvider_RejectsMalformed(t *testing.T) {
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	if _, err := p.ValidateAccess("not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("ValidateAccess err = %v, want ErrInvalidToken", err)
	}
	if _, err := p.ValidateRefresh("not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("ValidateRefresh err = %v, want ErrInvalidToken", err)
	}
}

func TestTokenProvider_RejectsWrongTokenKind(t *testing.T) {
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	// An access token parsed as refresh claims still carries a session id,
	// but a token signed by a different key must never validate.
	other, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	access, _, _, err := other.IssueAccess("sess_1", "u1", "")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if _, err := p.ValidateAccess(access); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("foreign-key token err = %v, want ErrInvalidToken", err)
	}
}

func TestTokenProvider_RejectsWrongIssuer(t *testing.T) {
	signer, err := GenerateEphemeralKey()
	if err != nil {
		t.Fatalf("GenerateEphemeralKey: %v", err)
	}
	issuerA := NewTokenProvider(signer, signer.Public(), "issuer-a", "aud", time.Minute, time.Hour)
	issuerB := NewTokenProvider(signer, signer.Public(), "issuer-b", "aud", time.Minute, time.Hour)

	access, _, _, err := issuerA.IssueAccess("sess_1", "u1", "")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if _, err := issuerB.ValidateAccess(access); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("cross-issuer token err = %v, want ErrInvalidToken", err)
	}
}

func TestTokenProvider_JTIsAreUnique(t *testing.T) {
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	seen := make(map[string]struct{})
	for i := 0; i < 20; i++ {
		_, jti, _, err := p.IssueRefresh("sess_1", "u1", "")
		if err != nil {
			t.Fatalf("IssueRefresh: %v", err)
		}
		if _, dup := seen[jti]; dup {
			t.Fatalf("duplicate jti %q", jti)
		}
		seen[jti] = struct{}{}
	}
}
